package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/videoguard-backend/internal/app"
	"github.com/yungbote/videoguard-backend/internal/pkg/dbctx"
	"github.com/yungbote/videoguard-backend/internal/services"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "submit <gs://bucket/object>",
		Short: "Register a video for moderation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), app.Options{}, func(a *app.App) error {
				v, err := a.Videos.Submit(dbctx.Context{Ctx: cmd.Context()}, services.SubmitVideoInput{Title: title, URI: args[0]})
				if err != nil {
					return err
				}
				if ctx.wantJSON() {
					return writeJSON(cmd, v)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted %s (%s)\n", v.ID, v.State)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Video title")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <video-id>...",
		Short: "Show the moderation status of videos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseVideoIDs(args)
			if err != nil {
				return err
			}
			opts := app.Options{SkipDelivery: true}
			return ctx.withApp(cmd.Context(), opts, func(a *app.App) error {
				rows, missing, err := a.Videos.Statuses(dbctx.Context{Ctx: cmd.Context()}, ids)
				if err != nil {
					return err
				}
				if ctx.wantJSON() {
					return writeJSON(cmd, map[string]any{"videos": rows, "missing": missing})
				}
				table := make([][]string, 0, len(rows))
				for _, r := range rows {
					table = append(table, []string{
						r.VideoID.String(),
						string(r.State),
						r.Status.Text,
						strconv.Itoa(r.Display.Score),
						r.TextLevel,
						formatTime(r.ProcessedAt),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Video", "State", "Status", "Score", "Text", "Processed"},
					table,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				for _, id := range missing {
					fmt.Fprintf(cmd.ErrOrStderr(), "not found: %s\n", id)
				}
				return nil
			})
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count videos per job state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := app.Options{SkipDelivery: true}
			return ctx.withApp(cmd.Context(), opts, func(a *app.App) error {
				stats, err := a.Videos.Stats(dbctx.Context{Ctx: cmd.Context()})
				if err != nil {
					return err
				}
				if ctx.wantJSON() {
					return writeJSON(cmd, stats)
				}
				rows := make([][]string, 0, len(stats.States)+1)
				for _, s := range stats.States {
					rows = append(rows, []string{string(s.State), strconv.FormatInt(s.Count, 10), fmt.Sprintf("%.2f%%", s.Percent)})
				}
				rows = append(rows, []string{"total", strconv.FormatInt(stats.Total, 10), ""})
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"State", "Videos", "Share"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}

func newReprocessCommand(ctx *commandContext) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "reprocess <video-id>...",
		Short: "Return videos to pending with their results cleared",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseVideoIDs(args)
			if err != nil {
				return err
			}
			return ctx.withApp(cmd.Context(), app.Options{}, func(a *app.App) error {
				dbc := dbctx.Context{Ctx: cmd.Context()}
				out := map[string]bool{}
				for _, id := range ids {
					ok, err := a.Videos.Reprocess(dbc, id, reason)
					if err != nil {
						return fmt.Errorf("reprocess %s: %w", id, err)
					}
					out[id.String()] = ok
					if !ctx.wantJSON() {
						if ok {
							fmt.Fprintf(cmd.OutOrStdout(), "%s requeued\n", id)
						} else {
							fmt.Fprintf(cmd.OutOrStdout(), "%s is processing; skipped\n", id)
						}
					}
				}
				if ctx.wantJSON() {
					return writeJSON(cmd, out)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded on the job event")
	return cmd
}

func newSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Reset videos stuck in processing back to pending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := app.Options{SkipDelivery: true}
			return ctx.withApp(cmd.Context(), opts, func(a *app.App) error {
				reset, err := a.Sweeper.SweepOnce(cmd.Context())
				if err != nil {
					return err
				}
				ids := make([]string, 0, len(reset))
				for _, r := range reset {
					ids = append(ids, r.VideoID)
				}
				if ctx.wantJSON() {
					return writeJSON(cmd, map[string]any{"reset": len(ids), "video_ids": ids})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d video(s)\n", len(ids))
				for _, r := range reset {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", r.Error())
				}
				return nil
			})
		},
	}
}

func parseVideoIDs(args []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(args))
	for _, a := range args {
		id, err := uuid.Parse(strings.TrimSpace(a))
		if err != nil {
			return nil, fmt.Errorf("invalid video id %q", a)
		}
		out = append(out, id)
	}
	return out, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
