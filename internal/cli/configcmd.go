// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// configcmd.go - configuration file helpers.
//
// Command: config path|show|init|check

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeranaias/warriorchat/internal/config"
)

func newConfigCmd(env *Env, global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFile(global)
			if err != nil {
				return err
			}
			fmt.Fprintln(env.Out, path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  "Print the configuration after defaults, environment variables and flags.",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(global.configPath)
			if err != nil {
				return &ConfigError{Err: err}
			}
			if err := global.apply(cfg); err != nil {
				return &ConfigError{Err: err}
			}
			fmt.Fprint(env.Out, cfg.String())
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFile(global)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return Usagef("%s already exists (use --force to overwrite)", path)
			}
			if err := config.SaveTOML(config.Default(), path); err != nil {
				return &ConfigError{Err: err}
			}
			fmt.Fprintln(env.Out, SuccessStyle.Render("Wrote")+" "+path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the configuration file",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFile(global)
			if err != nil {
				return err
			}
			cfg, err := config.Load(global.configPath)
			if err != nil {
				return &ConfigError{Err: err}
			}
			if cfg.Path() == "" {
				fmt.Fprintln(env.Out, DimStyle.Render("No file at "+path+"; using defaults."))
				return nil
			}
			for _, key := range cfg.UnknownKeys() {
				fmt.Fprintln(env.Out, WarningStyle.Render("[WARN]")+" unknown key "+key)
			}
			fmt.Fprintln(env.Out, SuccessStyle.Render("[OK]")+" "+cfg.Path())
			return nil
		},
	})

	return cmd
}

// configFile returns --config or the default path.
func configFile(global *globalOptions) (string, error) {
	if global.configPath != "" {
		return global.configPath, nil
	}
	path, err := config.ConfigPath()
	if err != nil {
		return "", &ConfigError{Err: err}
	}
	return path, nil
}
