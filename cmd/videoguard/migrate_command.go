package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/videoguard-backend/internal/app"
	"github.com/yungbote/videoguard-backend/internal/pkg/dbctx"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// app.New migrates on open
			opts := app.Options{SkipDelivery: true}
			return ctx.withApp(cmd.Context(), opts, func(a *app.App) error {
				fmt.Fprintf(cmd.OutOrStdout(), "Schema up to date (%s)\n", a.DB.Driver())
				if !seed {
					return nil
				}
				n, err := a.Repos.BadWord.Seed(dbctx.Context{Ctx: cmd.Context()})
				if err != nil {
					return fmt.Errorf("seed bad words: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d bad word(s)\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "Insert the bundled bad word list")
	return cmd
}
