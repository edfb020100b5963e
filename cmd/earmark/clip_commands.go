package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"earmark/internal/library"
)

func newClipCommand(ctx *commandContext) *cobra.Command {
	clipCmd := &cobra.Command{
		Use:   "clip",
		Short: "Operate on a single clip",
	}

	clipCmd.AddCommand(newClipAddCommand(ctx))
	clipCmd.AddCommand(newClipEditCommand(ctx))
	clipCmd.AddCommand(newClipDeleteCommand(ctx))
	clipCmd.AddCommand(newClipShowCommand(ctx))

	return clipCmd
}

func newClipAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <book> <position-ms>",
		Short: "Slice a clip out of a book at the given offset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			positionMS, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || positionMS < 0 {
				return fmt.Errorf("position must be a non-negative millisecond count, got %q", args[1])
			}
			return ctx.withRuntime(func(rt *runtime) error {
				book, err := resolveBook(cmd.Context(), rt, args[0])
				if err != nil {
					return err
				}
				clip, err := rt.manager.AddClip(cmd.Context(), book.ID, positionMS)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Clip %s: %s from %s, length %s\n",
					shortID(clip.ID), book.DisplayTitle(), formatMS(clip.StartMS), formatMS(clip.DurationMS))
				return nil
			})
		},
	}
}

func newClipEditCommand(ctx *commandContext) *cobra.Command {
	var note string
	var startMS, durationMS int64

	cmd := &cobra.Command{
		Use:   "edit <clip>",
		Short: "Edit a clip's note or bounds; changing bounds re-slices the audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var change library.ClipChange
			if cmd.Flags().Changed("note") {
				change.Note = &note
			}
			if cmd.Flags().Changed("start") {
				change.StartMS = &startMS
			}
			if cmd.Flags().Changed("duration") {
				change.DurationMS = &durationMS
			}
			if change.Empty() {
				return fmt.Errorf("nothing to change; pass --note, --start, or --duration")
			}

			return ctx.withRuntime(func(rt *runtime) error {
				clip, err := resolveClip(cmd.Context(), rt, args[0])
				if err != nil {
					return err
				}
				updated, err := rt.manager.UpdateClip(cmd.Context(), clip.ID, change)
				if err != nil {
					return err
				}
				if updated == nil {
					return fmt.Errorf("clip %s no longer exists", shortID(clip.ID))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Clip %s now %s from %s, length %s\n",
					shortID(updated.ID), clipSourceTitle(*updated), formatMS(updated.StartMS), formatMS(updated.DurationMS))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Free-text note stored on the clip")
	cmd.Flags().Int64Var(&startMS, "start", 0, "New start offset in milliseconds")
	cmd.Flags().Int64Var(&durationMS, "duration", 0, "New length in milliseconds")
	return cmd
}

func newClipDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <clip>",
		Short: "Delete a clip and its audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				clip, err := resolveClip(cmd.Context(), rt, args[0])
				if err != nil {
					return err
				}
				if err := rt.manager.DeleteClip(cmd.Context(), clip.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted clip %s.\n", shortID(clip.ID))
				return nil
			})
		},
	}
}

func newClipShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <clip>",
		Short: "Show a clip's details and transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				clip, err := resolveClip(cmd.Context(), rt, args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Clip:    %s\n", clip.ID)
				fmt.Fprintf(out, "Book:    %s\n", clipSourceTitle(clip))
				fmt.Fprintf(out, "Range:   %s - %s\n", formatMS(clip.StartMS), formatMS(clip.EndMS()))
				fmt.Fprintf(out, "File:    %s\n", clip.URI)
				if clip.Note != "" {
					fmt.Fprintf(out, "Note:    %s\n", clip.Note)
				}
				if clip.Transcription != "" {
					fmt.Fprintf(out, "Transcript:\n%s\n", clip.Transcription)
				} else {
					fmt.Fprintln(out, "Transcript: pending")
				}
				return nil
			})
		},
	}
}
