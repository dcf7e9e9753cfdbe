// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(env.Out, TitleStyle.Render("warriorchat")+" "+Version)
			fmt.Fprintln(env.Out, RenderField("Commit", Commit))
			fmt.Fprintln(env.Out, RenderField("Built", Date))
			fmt.Fprintln(env.Out, RenderField("Go", runtime.Version()))
			fmt.Fprintln(env.Out, RenderField("Platform", runtime.GOOS+"/"+runtime.GOARCH))
			return nil
		},
	}
}
