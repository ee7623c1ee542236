package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/yungbote/videoguard-backend/internal/app"
)

type commandContext struct {
	jsonOut *bool
}

// withApp builds the application for one command and closes it afterwards.
func (c *commandContext) withApp(ctx context.Context, opts app.Options, fn func(*app.App) error) error {
	a, err := app.New(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func (c *commandContext) wantJSON() bool {
	return c.jsonOut != nil && *c.jsonOut
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
