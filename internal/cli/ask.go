// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - one-shot prompt command.
//
// Command: ask [PROMPT]
// Short:   Send one prompt and stream the reply to stdout
//
// Examples:
//   warriorchat ask "summarize this" --attach report.pdf
//   git diff | warriorchat ask - --system "review this diff"

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/jeranaias/warriorchat/internal/attach"
	"github.com/jeranaias/warriorchat/internal/model"
	"github.com/jeranaias/warriorchat/internal/session"
)

type askOptions struct {
	attachments []string
	system      string
}

func newAskCmd(env *Env, global *globalOptions) *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask [PROMPT]",
		Short: "Send one prompt and stream the reply to stdout",
		Long: `Send one prompt, with optional attachments, and stream the reply.

The prompt is the joined arguments, or standard input when the only
argument is "-". A prompt may be empty when files are attached.`,
		Args: usageArgs(cobra.ArbitraryArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), env, global, opts, args)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.attachments, "attach", "a", nil, "attach a file (repeatable)")
	cmd.Flags().StringVarP(&opts.system, "system", "s", "", "system prompt (overrides chat.system_prompt)")
	return cmd
}

func runAsk(ctx context.Context, env *Env, global *globalOptions, opts *askOptions, args []string) error {
	prompt, err := readPrompt(env.In, args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(prompt) == "" && len(opts.attachments) == 0 {
		return Usagef("nothing to send: give a prompt or --attach a file")
	}

	files, err := attach.ReadFiles(opts.attachments...)
	if err != nil {
		return Usagef("attach: %v", err)
	}

	a, err := newApp(env, global, false)
	if err != nil {
		return err
	}
	defer a.Close()
	if opts.system != "" {
		a.cfg.Chat.SystemPrompt = opts.system
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := interruptContext(ctx)
	defer stop()

	out := &streamSurface{out: env.Out}
	ctrl := a.newController(out, nil)

	if err := a.signIn(ctx, ctrl); err != nil {
		return err
	}
	// The server session is not reused
	defer func() {
		if err := a.client.Logout(context.Background()); err != nil {
			a.logger.Debug("logout failed", "err", err)
		}
	}()

	if global.model != "" {
		if err := ctrl.SelectModel(global.model); errors.Is(err, session.ErrUnknownModel) {
			return Usagef("unknown model %q (see 'warriorchat models')", global.model)
		}
	}

	ctrl.AddLocalFiles(files...)
	err = ctrl.Send(ctx, prompt)
	out.finish()
	return err
}

// readPrompt joins args, or reads in when the only argument is "-".
func readPrompt(in io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read prompt: %w", err)
		}
		return string(b), nil
	}
	return strings.Join(args, " "), nil
}

// =============================================================================
// STREAM SURFACE
// =============================================================================

// streamSurface writes streamed reply text to out as it arrives.
type streamSurface struct {
	session.NopSurface

	mu     sync.Mutex
	out    io.Writer
	wrote  bool
	lastNL bool
}

func (s *streamSurface) EntryUpdated(_ model.TranscriptEntry, appended string) {
	if appended == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	io.WriteString(s.out, appended)
	s.wrote = true
	s.lastNL = strings.HasSuffix(appended, "\n")
}

// finish terminates a reply that did not end in a newline.
func (s *streamSurface) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wrote && !s.lastNL {
		io.WriteString(s.out, "\n")
	}
	s.wrote = false
	s.lastNL = false
}
