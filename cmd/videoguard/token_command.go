package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/videoguard-backend/internal/http/middleware"
	"github.com/yungbote/videoguard-backend/internal/pkg/envutil"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin API token signed with ADMIN_JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			auth := middleware.NewAdminAuth(logger.Nop(), envutil.GetEnv("ADMIN_JWT_SECRET", "", nil))
			token, err := auth.IssueToken(subject, ttl)
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, map[string]string{"token": token, "subject": subject})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	return cmd
}
