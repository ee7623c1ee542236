package main

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/yungbote/videoguard-backend/internal/app"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	var once bool
	var limit int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Process pending videos",
		Long: "Runs the Temporal worker when TEMPORAL_ADDRESS is set, otherwise polls for pending videos.\n" +
			"With --once, processes one batch of pending videos and exits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := app.Options{Moderation: true, SkipDelivery: once}
			return ctx.withApp(cmd.Context(), opts, func(a *app.App) error {
				if once {
					w, err := a.NewWorker()
					if err != nil {
						return err
					}
					n, err := w.ProcessPending(cmd.Context(), limit)
					if err != nil {
						return err
					}
					if ctx.wantJSON() {
						return writeJSON(cmd, map[string]int{"processed": n})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Processed %d video(s)\n", n)
					return nil
				}

				go a.Sweeper.Run(cmd.Context())
				var wg sync.WaitGroup
				if err := startDelivery(cmd.Context(), a, &wg); err != nil {
					return err
				}
				<-cmd.Context().Done()
				wg.Wait()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Process one batch of pending videos and exit")
	cmd.Flags().IntVar(&limit, "limit", 100, "Batch size for --once")
	return cmd
}
