package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"earmark/internal/deps"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show library, queue, and database health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				health, err := rt.store.CheckHealth(cmd.Context())
				if err != nil {
					return fmt.Errorf("check database health: %w", err)
				}
				syncDepth, err := rt.syncs.Depth(cmd.Context())
				if err != nil {
					return err
				}
				transDepth, err := rt.trans.Depth(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database:       %s\n", health.DBPath)
				fmt.Fprintf(out, "Readable:       %s\n", yesNo(health.DatabaseReadable))
				fmt.Fprintf(out, "Integrity:      %s\n", yesNo(health.IntegrityCheck))
				if len(health.MissingTables) > 0 {
					fmt.Fprintf(out, "Missing tables: %s\n", strings.Join(health.MissingTables, ", "))
				}
				if health.Error != "" {
					fmt.Fprintf(out, "Problem:        %s\n", health.Error)
				}
				fmt.Fprintf(out, "Books:          %d\n", health.BookCount)
				fmt.Fprintf(out, "Clips:          %d\n", health.ClipCount)
				fmt.Fprintf(out, "Sessions:       %d\n", health.SessionCount)
				fmt.Fprintf(out, "Sync queue:     %d pending\n", syncDepth)
				fmt.Fprintf(out, "Transcriptions: %d pending\n", transDepth)

				fmt.Fprintln(out, "\nExternal tools:")
				for _, tool := range deps.Check(deps.Requirements(rt.cfg)) {
					state := "ok"
					if !tool.Available {
						state = "missing"
						if tool.Optional {
							state = "missing (optional)"
						}
						if tool.Detail != "" {
							state += ": " + tool.Detail
						}
					}
					fmt.Fprintf(out, "  %-8s %s (%s)\n", tool.Name, state, tool.Description)
				}
				return nil
			})
		},
	}
}
