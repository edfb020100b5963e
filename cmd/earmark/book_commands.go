package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"earmark/internal/library"
	"earmark/internal/textutil"
)

func newBookCommand(ctx *commandContext) *cobra.Command {
	bookCmd := &cobra.Command{
		Use:   "book",
		Short: "Operate on a single book",
	}

	bookCmd.AddCommand(newBookArchiveCommand(ctx))
	bookCmd.AddCommand(newBookDeleteCommand(ctx))
	bookCmd.AddCommand(newBookPositionCommand(ctx))

	return bookCmd
}

func newBookArchiveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <book>",
		Short: "Remove a book's audio file, keeping its record for later restore",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				book, err := resolveBook(cmd.Context(), rt, args[0])
				if err != nil {
					return err
				}
				if err := rt.manager.ArchiveBook(cmd.Context(), book.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Archived %s. Re-import the same file to restore it.\n", book.DisplayTitle())
				return nil
			})
		},
	}
}

func newBookDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <book>",
		Short: "Delete a book from the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				book, err := resolveBook(cmd.Context(), rt, args[0])
				if err != nil {
					return err
				}
				if err := rt.manager.DeleteBook(cmd.Context(), book.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", book.DisplayTitle())
				return nil
			})
		},
	}
}

func newBookPositionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "position <book> <offset-ms>",
		Short: "Record the playback position on a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			positionMS, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || positionMS < 0 {
				return fmt.Errorf("offset must be a non-negative millisecond count, got %q", args[1])
			}
			return ctx.withRuntime(func(rt *runtime) error {
				book, err := resolveBook(cmd.Context(), rt, args[0])
				if err != nil {
					return err
				}
				if err := rt.manager.SavePosition(cmd.Context(), book.ID, positionMS); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Position on %s set to %s.\n", book.DisplayTitle(), formatMS(positionMS))
				return nil
			})
		},
	}
}

// resolveBook accepts a full book id, an unambiguous id prefix, or a title.
// Titles are matched fuzzily so `earmark play summer` finds "My Summer Book".
func resolveBook(ctx context.Context, rt *runtime, ref string) (library.Book, error) {
	if err := rt.manager.Refresh(ctx); err != nil {
		return library.Book{}, err
	}
	ref = strings.TrimSpace(ref)

	books := rt.manager.Books()
	var matches []library.Book
	for _, book := range books {
		if book.ID == ref {
			return book, nil
		}
		if strings.HasPrefix(book.ID, ref) {
			matches = append(matches, book)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return resolveBookByTitle(ref, books)
	default:
		return library.Book{}, fmt.Errorf("%q matches %d books; use a longer prefix", ref, len(matches))
	}
}

// titleMatchThreshold is the minimum similarity for a title to count as a
// match; below it a typo'd id prefix would pull in unrelated books.
const titleMatchThreshold = 0.5

func resolveBookByTitle(ref string, books []library.Book) (library.Book, error) {
	var best library.Book
	bestScore, secondScore := 0.0, 0.0
	for _, book := range books {
		score := textutil.Similarity(ref, book.DisplayTitle())
		if score > bestScore {
			best, bestScore, secondScore = book, score, bestScore
		} else if score > secondScore {
			secondScore = score
		}
	}
	if bestScore < titleMatchThreshold {
		return library.Book{}, fmt.Errorf("no book matches %q; list books with `earmark books`", ref)
	}
	if secondScore >= bestScore {
		return library.Book{}, fmt.Errorf("%q matches multiple titles equally well; use an id", ref)
	}
	return best, nil
}

// resolveClip accepts a full clip id or an unambiguous prefix.
func resolveClip(ctx context.Context, rt *runtime, ref string) (library.ClipWithFile, error) {
	if err := rt.manager.Refresh(ctx); err != nil {
		return library.ClipWithFile{}, err
	}
	ref = strings.TrimSpace(ref)

	var matches []library.ClipWithFile
	for _, clip := range rt.manager.Clips() {
		if clip.ID == ref {
			return clip, nil
		}
		if strings.HasPrefix(clip.ID, ref) {
			matches = append(matches, clip)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return library.ClipWithFile{}, fmt.Errorf("no clip matches %q; list ids with `earmark clips`", ref)
	default:
		return library.ClipWithFile{}, fmt.Errorf("%q matches %d clips; use a longer prefix", ref, len(matches))
	}
}
