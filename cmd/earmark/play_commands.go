package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"earmark/internal/player"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var fromMS int64

	cmd := &cobra.Command{
		Use:   "play [book]",
		Short: "Play a book through MPD, resuming its saved position",
		Long: "Play a book through MPD. Without an argument the paused stream resumes.\n" +
			"With a book the stream is loaded (or sought) and a listening session opens.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				if len(args) == 0 {
					if err := attachPlayback(cmd.Context(), rt); err != nil {
						return err
					}
					if err := rt.controller.Play(cmd.Context(), nil); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Resumed.")
					return nil
				}

				book, err := resolveBook(cmd.Context(), rt, args[0])
				if err != nil {
					return err
				}
				if book.Archived() {
					return fmt.Errorf("%s is archived; re-import its file to play it", book.DisplayTitle())
				}

				position := book.PositionMS
				if cmd.Flags().Changed("from") {
					position = fromMS
				}
				if err := rt.controller.Play(cmd.Context(), &player.Request{
					FileURI:    book.URI,
					PositionMS: position,
					OwnerID:    book.ID,
				}); err != nil {
					return err
				}
				if err := rt.manager.TrackSession(cmd.Context(), book.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Playing %s from %s.\n", book.DisplayTitle(), formatMS(position))
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&fromMS, "from", 0, "Start offset in milliseconds instead of the saved position")
	return cmd
}

func newPauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause playback and save the position on the owning book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				if err := attachPlayback(cmd.Context(), rt); err != nil {
					return err
				}
				if err := rt.controller.Pause(cmd.Context()); err != nil {
					return err
				}
				if err := persistPlaybackPosition(cmd.Context(), rt); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Paused.")
				return nil
			})
		},
	}
}

func newSeekCommand(ctx *commandContext) *cobra.Command {
	var deltaMS int64

	cmd := &cobra.Command{
		Use:   "seek [offset-ms]",
		Short: "Move the playhead to an absolute offset, or by --by milliseconds",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			byChanged := cmd.Flags().Changed("by")
			if len(args) == 0 && !byChanged {
				return fmt.Errorf("pass an absolute offset or --by <delta-ms>")
			}
			if len(args) == 1 && byChanged {
				return fmt.Errorf("pass either an absolute offset or --by, not both")
			}

			return ctx.withRuntime(func(rt *runtime) error {
				if err := attachPlayback(cmd.Context(), rt); err != nil {
					return err
				}

				if byChanged {
					if err := rt.controller.SkipBy(cmd.Context(), deltaMS); err != nil {
						return err
					}
				} else {
					positionMS, err := strconv.ParseInt(args[0], 10, 64)
					if err != nil {
						return fmt.Errorf("offset must be a millisecond count, got %q", args[0])
					}
					if err := rt.controller.SeekTo(cmd.Context(), positionMS); err != nil {
						return err
					}
				}
				if err := persistPlaybackPosition(cmd.Context(), rt); err != nil {
					return err
				}
				state := rt.controller.Snapshot()
				fmt.Fprintf(cmd.OutOrStdout(), "Playhead at %s.\n", formatMS(state.PositionMS))
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&deltaMS, "by", 0, "Relative skip in milliseconds, negative to rewind")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop playback, saving the position and closing the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				if err := attachPlayback(cmd.Context(), rt); err != nil {
					return err
				}
				state := rt.controller.Snapshot()
				if state.URI == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing is playing.")
					return nil
				}

				if err := persistPlaybackPosition(cmd.Context(), rt); err != nil {
					return err
				}
				book, err := rt.store.BookByURI(cmd.Context(), state.URI)
				if err != nil {
					return err
				}
				if err := rt.controller.Unload(cmd.Context()); err != nil {
					return err
				}
				if book != nil {
					if err := rt.manager.FinalizeSession(cmd.Context(), book.ID); err != nil {
						return err
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Stopped.")
				return nil
			})
		},
	}
}

// attachPlayback seeds the in-process controller with whatever stream MPD,
// which outlives individual earmark invocations, already has loaded.
func attachPlayback(ctx context.Context, rt *runtime) error {
	uri, durationMS, status, err := rt.engine.Current(ctx)
	if err != nil {
		return err
	}
	rt.controller.Adopt(uri, durationMS, status)
	return nil
}

// persistPlaybackPosition writes the controller's position back onto the
// book owning the loaded stream, if the stream belongs to a book.
func persistPlaybackPosition(ctx context.Context, rt *runtime) error {
	state := rt.controller.Snapshot()
	if state.URI == "" {
		return nil
	}
	book, err := rt.store.BookByURI(ctx, state.URI)
	if err != nil {
		return err
	}
	if book == nil {
		return nil
	}
	return rt.manager.SavePosition(ctx, book.ID, state.PositionMS)
}
