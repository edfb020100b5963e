package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"earmark/internal/library"
)

func newBooksCommand(ctx *commandContext) *cobra.Command {
	var includeArchived bool

	cmd := &cobra.Command{
		Use:   "books",
		Short: "List library books, newest import first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				if err := rt.manager.Refresh(cmd.Context()); err != nil {
					return err
				}
				books := rt.manager.Books()

				rows := make([][]string, 0, len(books))
				for _, book := range books {
					if book.Archived() && !includeArchived {
						continue
					}
					state := "active"
					if book.Archived() {
						state = "archived"
					}
					rows = append(rows, []string{
						shortID(book.ID),
						truncate(book.DisplayTitle(), 40),
						dash(truncate(book.Artist, 24)),
						formatMS(book.DurationMS),
						formatMS(book.PositionMS),
						state,
					})
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No books in the library. Add one with `earmark import <file>`.")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Artist", "Length", "Position", "State"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&includeArchived, "all", "a", false, "Include archived books")
	return cmd
}

func newClipsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clips",
		Short: "List clips with their source books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				if err := rt.manager.Refresh(cmd.Context()); err != nil {
					return err
				}
				clips := rt.manager.Clips()
				if len(clips) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No clips yet. Create one with `earmark clip add <book> <position>`.")
					return nil
				}

				rows := make([][]string, 0, len(clips))
				for _, clip := range clips {
					rows = append(rows, []string{
						shortID(clip.ID),
						truncate(clipSourceTitle(clip), 32),
						formatMS(clip.StartMS),
						formatMS(clip.DurationMS),
						dash(truncate(clip.Note, 32)),
						yesNo(clip.Transcription != ""),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Book", "Start", "Length", "Note", "Transcribed"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List recorded listening sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				sessions, err := rt.manager.Sessions(cmd.Context())
				if err != nil {
					return err
				}
				if len(sessions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No listening sessions recorded yet.")
					return nil
				}

				rows := make([][]string, 0, len(sessions))
				for _, session := range sessions {
					title := session.BookTitle
					if title == "" {
						title = session.BookName
					}
					rows = append(rows, []string{
						truncate(title, 40),
						session.StartedAt.Local().Format("2006-01-02 15:04"),
						session.Duration().Round(time.Second).String(),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Book", "Started", "Listened"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func clipSourceTitle(clip library.ClipWithFile) string {
	if clip.SourceTitle != "" {
		return clip.SourceTitle
	}
	if clip.SourceName != "" {
		return clip.SourceName
	}
	return clip.SourceID
}
