package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"earmark/internal/logging"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Copy audio files into the library, deduplicating by content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name != "" && len(args) > 1 {
				return fmt.Errorf("--name applies to a single file, got %d", len(args))
			}
			return ctx.withRuntime(func(rt *runtime) error {
				out := cmd.OutOrStdout()
				for _, arg := range args {
					source, err := filepath.Abs(arg)
					if err != nil {
						return fmt.Errorf("resolve %s: %w", arg, err)
					}
					book, err := rt.manager.LoadFile(cmd.Context(), source, name)
					if err != nil {
						return fmt.Errorf("import %s: %w", arg, err)
					}
					fmt.Fprintf(out, "Imported %s (%s, %s)\n", book.Name, book.ID, formatMS(book.DurationMS))
					if err := rt.notifier.NotifyBookImported(cmd.Context(), book.Name); err != nil {
						rt.logger.Warn("import notification failed", logging.Error(err))
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name for the imported book")
	return cmd
}
