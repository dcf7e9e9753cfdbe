// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - configuration, logging and client wiring shared by commands.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/warriorchat/internal/backend"
	"github.com/jeranaias/warriorchat/internal/config"
	"github.com/jeranaias/warriorchat/internal/logging"
	"github.com/jeranaias/warriorchat/internal/preview"
	"github.com/jeranaias/warriorchat/internal/session"
)

// app is everything a command needs after startup.
type app struct {
	env    *Env
	opts   *globalOptions
	cfg    *config.Config
	logger *log.Logger
	client *backend.Client
	closer io.Closer

	// prompter answers credential questions; the REPL swaps in its line reader
	prompter Prompter
}

// newApp loads configuration, applies flag overrides and builds the backend
// client. With logToFile set, log output goes to the log file.
func newApp(env *Env, opts *globalOptions, logToFile bool) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	if err := opts.apply(cfg); err != nil {
		return nil, &ConfigError{Err: err}
	}

	logger, closer, err := logging.Open(cfg.Log, logToFile, env.Err)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	ApplyColor(cfg.UI.Color, env.Out)

	client := backend.NewClientWithConfig(&backend.ClientConfig{
		BaseURL:    cfg.Backend.BaseURL,
		Timeout:    cfg.Backend.Timeout(),
		ModelsPath: cfg.Backend.ModelsPath,
		Logger:     logger,
	})

	prompter := env.Prompter
	if prompter == nil {
		prompter = NewTermPrompter(env.In, env.Err)
	}

	logger.Debug("starting", "version", Version, "backend", client.BaseURL(), "config", cfg.Path())

	return &app{
		env:    env,
		opts:   opts,
		cfg:    cfg,
		logger: logger,
		client: client,
		closer: closer,

		prompter: prompter,
	}, nil
}

// apply folds the persistent flags into cfg and re-validates it.
func (o *globalOptions) apply(cfg *config.Config) error {
	if o.baseURL != "" {
		cfg.Backend.BaseURL = o.baseURL
	}
	if o.model != "" {
		cfg.Chat.DefaultModel = o.model
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	if o.noColor {
		cfg.UI.Color = "never"
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// newController builds a session controller over the app's client.
func (a *app) newController(surface session.Surface, previews preview.Store) *session.Controller {
	return session.New(session.Deps{
		Backend:  a.client,
		Surface:  surface,
		Previews: previews,
		Logger:   a.logger,
		Options: session.Options{
			DefaultModel: a.cfg.Chat.DefaultModel,
			SystemPrompt: a.cfg.Chat.SystemPrompt,
			LLMParams:    a.cfg.Chat.LLMParams,
			ReadSize:     a.cfg.Chat.ReadBufferSize,
		},
	})
}

// signIn logs ctrl in unless a session already exists. Credentials come
// from flags, the environment or the prompter, in that order.
func (a *app) signIn(ctx context.Context, ctrl *session.Controller) error {
	if id := ctrl.Bootstrap(ctx); id != nil {
		a.logger.Debug("existing session", "user", id.Email)
		return nil
	}

	email, err := a.email()
	if err != nil {
		return err
	}
	password, err := a.password("Password: ")
	if err != nil {
		return err
	}
	if err := ctrl.Login(ctx, email, password); err != nil {
		return &AuthError{Err: fmt.Errorf("sign in as %s: %w", email, err)}
	}
	return nil
}

// email returns the account email from --email, WARRIORCHAT_EMAIL or a prompt.
func (a *app) email() (string, error) {
	if e := strings.TrimSpace(a.opts.email); e != "" {
		return e, nil
	}
	if e := strings.TrimSpace(os.Getenv("WARRIORCHAT_EMAIL")); e != "" {
		return e, nil
	}
	e, err := a.prompter.Line("Email: ")
	if err != nil {
		return "", err
	}
	e = strings.TrimSpace(e)
	if e == "" {
		return "", Usagef("an email is required (use --email or WARRIORCHAT_EMAIL)")
	}
	return e, nil
}

// password returns WARRIORCHAT_PASSWORD or a hidden prompt.
func (a *app) password(prompt string) (string, error) {
	if p := os.Getenv("WARRIORCHAT_PASSWORD"); p != "" {
		return p, nil
	}
	p, err := a.prompter.Password(prompt)
	if err != nil {
		return "", err
	}
	if p == "" {
		return "", Usagef("a password is required (use WARRIORCHAT_PASSWORD or a terminal)")
	}
	return p, nil
}

// newPassword prompts twice and requires both entries to match.
func (a *app) newPassword() (string, error) {
	if p := os.Getenv("WARRIORCHAT_PASSWORD"); p != "" {
		return p, nil
	}
	first, err := a.password("New password: ")
	if err != nil {
		return "", err
	}
	second, err := a.prompter.Password("Confirm password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", Usagef("passwords do not match")
	}
	return first, nil
}

// Close releases the log file.
func (a *app) Close() error {
	return a.closer.Close()
}

// interruptContext returns a context cancelled by SIGINT or SIGTERM.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
