// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models.go - list the backend's models.
//
// Command: models
// Short:   List available models

package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jeranaias/warriorchat/internal/backend"
)

func newModelsCmd(env *Env, global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List available models",
		Long: `List the models the backend offers. The model selected by default
is marked with *. The listing needs no sign-in.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(env, global, false)
			if err != nil {
				return err
			}
			defer a.Close()

			models, err := a.client.ListModels(cmd.Context())
			if backend.IsNotFound(err) {
				fmt.Fprintln(env.Out, DimStyle.Render("The backend does not list models; the configured default is used."))
				models = []backend.ModelInfo{{Name: a.cfg.Chat.DefaultModel}}
			} else if err != nil {
				return NewCommandError("models", "list", "could not load models", err)
			}
			if len(models) == 0 {
				fmt.Fprintln(env.Out, DimStyle.Render("No models available."))
				return nil
			}

			selected := a.cfg.Chat.DefaultModel
			if !listed(models, selected) {
				selected = models[0].Name
			}

			tw := tabwriter.NewWriter(env.Out, 0, 4, 2, ' ', 0)
			for _, m := range models {
				mark := " "
				if m.Name == selected {
					mark = "*"
				}
				fmt.Fprintf(tw, "%s %s\t%s\t%s\n", mark, m.Name, m.Label(), m.Type)
			}
			return tw.Flush()
		},
	}
}

func listed(models []backend.ModelInfo, name string) bool {
	for _, m := range models {
		if m.Name == name {
			return true
		}
	}
	return false
}
