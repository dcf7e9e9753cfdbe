// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// root.go - the warriorchat command tree.

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Build information, set with -ldflags "-X".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Env holds the process streams a run uses. Tests substitute buffers.
type Env struct {
	In       io.Reader
	Out      io.Writer
	Err      io.Writer
	Prompter Prompter
}

// DefaultEnv returns the process streams with a terminal prompter.
func DefaultEnv() *Env {
	return &Env{
		In:       os.Stdin,
		Out:      os.Stdout,
		Err:      os.Stderr,
		Prompter: NewTermPrompter(os.Stdin, os.Stderr),
	}
}

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	baseURL    string
	model      string
	email      string
	dropDir    string
	verbose    bool
	noColor    bool
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

func newRootCmd(env *Env) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "warriorchat",
		Short: "Terminal client for the WarriorChat backend",
		Long: `warriorchat talks to a WarriorChat server from the terminal.

Run it with no arguments to open the full-screen chat. The chat, ask,
register, reset and models commands work without a full-screen terminal
and are suitable for scripts.`,
		Version:       versionString(),
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, env, opts)
		},
	}

	root.SetIn(env.In)
	root.SetOut(env.Out)
	root.SetErr(env.Err)
	root.SetVersionTemplate("warriorchat {{.Version}}\n")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default ~/.warriorchat/config.toml)")
	flags.StringVar(&opts.baseURL, "url", "", "backend base URL (overrides backend.base_url)")
	flags.StringVarP(&opts.model, "model", "m", "", "model to use (overrides chat.default_model)")
	flags.StringVarP(&opts.email, "email", "e", "", "account email (or WARRIORCHAT_EMAIL)")
	flags.StringVar(&opts.dropDir, "drop-dir", "", "stage files dropped into this folder (chat and TUI)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newTUICmd(env, opts),
		newChatCmd(env, opts),
		newAskCmd(env, opts),
		newRegisterCmd(env, opts),
		newResetCmd(env, opts),
		newModelsCmd(env, opts),
		newConfigCmd(env, opts),
		newVersionCmd(env),
	)
	return root
}

// =============================================================================
// EXECUTION
// =============================================================================

// Run executes the command line args and returns the exit code.
func Run(args []string, env *Env) int {
	root := newRootCmd(env)
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return ExitSuccess
	}
	if isUsage(err) {
		fmt.Fprintln(env.Err, DimStyle.Render("Run 'warriorchat --help' for usage."))
	}
	DisplayError(env.Err, err)
	return GetExitCode(err)
}

// Execute runs the command line of the current process and exits.
func Execute() {
	os.Exit(Run(os.Args[1:], DefaultEnv()))
}

// usageArgs marks positional argument failures as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}

func isUsage(err error) bool {
	var usageErr *UsageError
	return errors.As(err, &usageErr)
}

func versionString() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
