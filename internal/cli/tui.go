// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/warriorchat/internal/preview"
	"github.com/jeranaias/warriorchat/internal/ui/chat"
	"github.com/jeranaias/warriorchat/internal/ui/styles"
)

// logoutTimeout bounds the best-effort logout when a terminal session ends.
const logoutTimeout = 5 * time.Second

func newTUICmd(env *Env, global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the full-screen chat (the default)",
		Long: `Open the full-screen chat.

Sign in (or press Ctrl+R to create an account), then type a message and
press Enter. Type /help for the commands. Ctrl+Q quits.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, env, global)
		},
	}
}

// runTUI runs the Bubble Tea program until the user quits.
func runTUI(cmd *cobra.Command, env *Env, global *globalOptions) error {
	if !isTerminal(env.In) || !isTerminal(env.Out) {
		return &TTYRequiredError{Operation: "open the full-screen chat"}
	}

	// The program owns the terminal, so logs go to the log file
	a, err := newApp(env, global, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	surface := chat.NewSurface()
	previews := preview.NewMemoryStore()
	ctrl := a.newController(surface, previews)

	theme := styles.NewTheme()
	m := chat.New(chat.Options{
		Controller:   ctrl,
		Surface:      surface,
		Previews:     previews,
		Context:      ctx,
		Theme:        theme,
		Markdown:     a.cfg.UI.Markdown,
		GlamourStyle: a.cfg.UI.GlamourStyle,
		BaseURL:      a.cfg.Backend.BaseURL,
		Logger:       a.logger,
	})

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
		tea.WithInput(env.In),
		tea.WithOutput(env.Out),
	)
	surface.Attach(p)

	if global.dropDir != "" {
		// Staged files reach the view through the surface
		w, err := startDropWatch(a, global.dropDir, ctrl, nil)
		if err != nil {
			return err
		}
		defer w.Close()
	}

	a.logger.Info("tui started", "url", a.cfg.Backend.BaseURL)
	_, runErr := p.Run()

	// Stop a reply that is still streaming
	cancel()
	logoutCtx, stop := context.WithTimeout(context.Background(), logoutTimeout)
	defer stop()
	if ctrl.Identity() != nil {
		if err := a.client.Logout(logoutCtx); err != nil {
			a.logger.Debug("logout on exit failed", "err", err)
		}
	}

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return nil
}
