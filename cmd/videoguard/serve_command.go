package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/yungbote/videoguard-backend/internal/app"
	httpserver "github.com/yungbote/videoguard-backend/internal/http"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var withWorker bool
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the stale sweep and optionally the worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), app.Options{Moderation: true}, func(a *app.App) error {
				runCtx, cancel := context.WithCancel(cmd.Context())
				defer cancel()

				a.StartBackground(runCtx)

				var wg sync.WaitGroup
				if withWorker {
					if err := startDelivery(runCtx, a, &wg); err != nil {
						return err
					}
				}

				if addr == "" {
					addr = ":" + a.Cfg.Port
				}
				a.Log.Info("Starting HTTP server", "addr", addr)
				srv := &httpserver.Server{Engine: a.Router()}
				err := srv.Run(runCtx, addr)
				cancel()
				wg.Wait()
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&withWorker, "with-worker", true, "Also process pending videos in this process")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default :$PORT)")
	return cmd
}

// startDelivery runs the Temporal worker when Temporal is configured and the polling worker
// otherwise.
func startDelivery(ctx context.Context, a *app.App, wg *sync.WaitGroup) error {
	if a.TemporalEnabled() {
		runner, err := a.NewTemporalRunner()
		if err != nil {
			return err
		}
		if err := runner.Start(ctx); err != nil {
			return fmt.Errorf("start temporal worker: %w", err)
		}
		return nil
	}
	w, err := a.NewWorker()
	if err != nil {
		return err
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()
	return nil
}
