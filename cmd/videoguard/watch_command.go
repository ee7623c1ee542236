package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/videoguard-backend/internal/app"
	"github.com/yungbote/videoguard-backend/internal/domain/videos"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print job status changes as they are published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), app.Options{}, func(a *app.App) error {
				bus := a.Clients.StatusBus
				if bus == nil {
					return fmt.Errorf("REDIS_ADDR is not set")
				}
				onEvent := func(ev videos.StatusEvent) {
					if ctx.wantJSON() {
						_ = writeJSON(cmd, ev)
						return
					}
					line := fmt.Sprintf("%s %s %s -> %s", ev.At.Local().Format("15:04:05"), ev.VideoID, orDash(ev.FromState), ev.State)
					if ev.Verdict != "" {
						line += " " + ev.Verdict
					}
					if ev.Reason != "" {
						line += " (" + ev.Reason + ")"
					}
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				if err := bus.StartForwarder(cmd.Context(), onEvent); err != nil {
					return err
				}
				<-cmd.Context().Done()
				return nil
			})
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
