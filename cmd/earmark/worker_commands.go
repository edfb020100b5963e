package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"earmark/internal/syncqueue"
	"earmark/internal/transcribe"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Upload queued changes to the sync endpoint once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				drainer := syncqueue.NewDrainer(rt.cfg, rt.syncs, rt.logger)
				if !drainer.Enabled() {
					return fmt.Errorf("no sync_endpoint configured; set one in the config file")
				}
				delivered, err := drainer.DrainOnce(cmd.Context())
				if err != nil {
					return err
				}
				depth, depthErr := rt.syncs.Depth(cmd.Context())
				if depthErr != nil {
					return depthErr
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Delivered %d changes, %d remaining.\n", delivered, depth)
				return nil
			})
		},
	}
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe",
		Short: "Transcribe queued clips once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				worker := transcribe.NewWorker(rt.cfg, rt.trans, rt.store, rt.logger)
				worker.WithNotifier(rt.notifier)
				processed, err := worker.ProcessOnce(cmd.Context())
				if err != nil {
					return err
				}
				depth, depthErr := rt.trans.Depth(cmd.Context())
				if depthErr != nil {
					return depthErr
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Transcribed %d clips, %d remaining.\n", processed, depth)
				return nil
			})
		},
	}
}

func newWorkersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "workers",
		Short: "Run the sync drainer and transcription worker until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				var wg sync.WaitGroup
				wg.Add(2)
				go func() {
					defer wg.Done()
					_ = syncqueue.NewDrainer(rt.cfg, rt.syncs, rt.logger).Run(runCtx)
				}()
				go func() {
					defer wg.Done()
					worker := transcribe.NewWorker(rt.cfg, rt.trans, rt.store, rt.logger)
					worker.WithNotifier(rt.notifier)
					_ = worker.Run(runCtx)
				}()

				fmt.Fprintln(cmd.OutOrStdout(), "Workers running; press Ctrl-C to stop.")
				wg.Wait()
				if errors.Is(runCtx.Err(), context.Canceled) {
					return nil
				}
				return runCtx.Err()
			})
		},
	}
}
