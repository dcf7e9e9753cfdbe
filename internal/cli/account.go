// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// account.go - register and password reset commands.
//
// Command: register
// Command: reset request EMAIL
// Command: reset confirm TOKEN

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRegisterCmd(env *Env, global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create an account on the backend. The account is not signed in;
use chat, ask or the TUI afterwards.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(env, global, false)
			if err != nil {
				return err
			}
			defer a.Close()

			email, err := a.email()
			if err != nil {
				return err
			}
			password, err := a.newPassword()
			if err != nil {
				return err
			}

			ctrl := a.newController(nil, nil)
			if _, err := ctrl.Register(cmd.Context(), email, password); err != nil {
				return NewCommandError("register", email, "account not created", err)
			}
			fmt.Fprintln(env.Out, SuccessStyle.Render("Account created.")+" You can now sign in as "+email+".")
			return nil
		},
	}
}

func newResetCmd(env *Env, global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset a forgotten password",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "request EMAIL",
		Short: "Request a password reset token",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(env, global, false)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.newController(nil, nil).RequestPasswordReset(cmd.Context(), args[0])
			if err != nil {
				return NewCommandError("reset", "request", "no token issued", err)
			}
			if resp.ResetToken != "" {
				// Development backends hand the token back directly
				fmt.Fprintln(env.Out, RenderField("Token (dev only)", resp.ResetToken))
				if resp.ExpiresInMinutes > 0 {
					fmt.Fprintln(env.Out, RenderField("Expires", fmt.Sprintf("in %d minutes", resp.ExpiresInMinutes)))
				}
				return nil
			}
			fmt.Fprintln(env.Out, "If that account exists, a reset email was sent.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "confirm TOKEN",
		Short: "Set a new password with a reset token",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(env, global, false)
			if err != nil {
				return err
			}
			defer a.Close()

			password, err := a.newPassword()
			if err != nil {
				return err
			}
			if err := a.newController(nil, nil).ResetPassword(cmd.Context(), args[0], password); err != nil {
				return NewCommandError("reset", "confirm", "password unchanged", err)
			}
			fmt.Fprintln(env.Out, SuccessStyle.Render("Password reset.")+" You can log in now.")
			return nil
		},
	})

	return cmd
}
