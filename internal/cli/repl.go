// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl.go - interactive line-oriented chat.
//
// Command: chat
// Short:   Start an interactive chat session
//
// Examples:
//   warriorchat chat                      Sign in and chat
//   warriorchat chat --model llama3       Use a specific model
//   warriorchat chat --drop-dir ~/Drop    Stage files saved into ~/Drop
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /attach <path>...   Stage files for the next message
//   /rm <n>             Unstage local attachment n
//   /files              List files uploaded in this session
//   /model [name]       Show or switch model
//   /login, /logout     Sign in or out
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel current generation
//   Ctrl+D              Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/warriorchat/internal/attach"
	"github.com/jeranaias/warriorchat/internal/commands"
	"github.com/jeranaias/warriorchat/internal/model"
	"github.com/jeranaias/warriorchat/internal/session"
	"github.com/jeranaias/warriorchat/internal/ui/styles"
)

// =============================================================================
// LINE INPUT
// =============================================================================

// LineReader reads edited input lines. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	PasswordPrompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

// linePrompter answers credential prompts through the REPL's line reader so
// the terminal is never read by two readers at once.
type linePrompter struct {
	lines    LineReader
	terminal bool
}

func (p linePrompter) Line(prompt string) (string, error) {
	return p.lines.Prompt(prompt)
}

func (p linePrompter) Password(prompt string) (string, error) {
	if !p.terminal {
		return p.lines.Prompt(prompt)
	}
	return p.lines.PasswordPrompt(prompt)
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

func newChatCmd(env *Env, global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start a line-oriented chat session with line editing and history.

Replies stream as they arrive. Ctrl+C cancels a reply in progress and
exits at the prompt. Type /help for the session commands.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), env, global)
		},
	}
}

func runChat(ctx context.Context, env *Env, global *globalOptions) error {
	a, err := newApp(env, global, false)
	if err != nil {
		return err
	}
	defer a.Close()

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	r := newREPL(a, line, IsTTY())
	line.SetCompleter(r.completer.Line)

	if global.dropDir != "" {
		w, err := startDropWatch(a, global.dropDir, r.ctrl, r.surface.dropped)
		if err != nil {
			return err
		}
		defer w.Close()
	}

	// Ctrl+C outside the prompt cancels the running send; SIGTERM ends the
	// session even while the prompt is waiting for input
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	defer func() {
		signal.Stop(sigChan)
		close(done)
	}()
	go r.watchSignals(sigChan, done, func() {
		r.ctrl.Cancel()
		logoutCtx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
		r.exit(logoutCtx)
		cancel()
		line.Close()
		a.Close()
		os.Exit(exitTerminated)
	})

	if ctx == nil {
		ctx = context.Background()
	}
	return r.run(ctx)
}

// =============================================================================
// REPL
// =============================================================================

type repl struct {
	app       *app
	ctrl      *session.Controller
	lines     LineReader
	surface   *replSurface
	registry  *commands.Registry
	parser    *commands.Parser
	completer *commands.Completer
}

func newREPL(a *app, lines LineReader, terminal bool) *repl {
	surface := newReplSurface(a.env.Out)
	registry := commands.NewRegistry()

	r := &repl{
		app:       a,
		lines:     lines,
		surface:   surface,
		registry:  registry,
		parser:    commands.NewParser(registry),
		completer: commands.NewCompleter(registry, commands.SurfaceREPL),
	}
	r.ctrl = a.newController(surface, nil)
	a.prompter = linePrompter{lines: lines, terminal: terminal}

	r.completer.ModelsFn = r.modelNames
	r.completer.IndicesFn = r.localIndices
	r.completer.RemoteFn = r.remoteIDs
	return r
}

// exitTerminated is the conventional status for a process ended by SIGTERM.
const exitTerminated = 128 + int(syscall.SIGTERM)

// watchSignals cancels the running send on SIGINT and calls terminate on
// SIGTERM. It returns after terminate or once done is closed.
func (r *repl) watchSignals(sigs <-chan os.Signal, done <-chan struct{}, terminate func()) {
	for {
		select {
		case <-done:
			return
		case sig := <-sigs:
			if sig == syscall.SIGTERM {
				terminate()
				return
			}
			if r.ctrl.Cancel() {
				r.surface.println(WarningStyle.Render("[Cancelled]"))
			}
		}
	}
}

// run reads lines until /quit, EOF or an aborted prompt.
func (r *repl) run(ctx context.Context) error {
	if id := r.ctrl.Bootstrap(ctx); id == nil {
		if err := r.app.signIn(ctx, r.ctrl); err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			// A rejected login was already shown as a status line
			if !isAuthError(err) {
				DisplayError(r.app.env.Out, err)
			}
			r.surface.println(DimStyle.Render("Use /login to try again or /register to create an account."))
		}
	}
	r.printWelcome()

	for {
		input, err := r.lines.Prompt(r.prompt())
		if err != nil {
			// Ctrl+C or Ctrl+D at the prompt
			r.surface.println("")
			r.exit(ctx)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.lines.AppendHistory(input)

		if commands.IsCommand(input) {
			keepGoing, err := r.handleCommand(ctx, input)
			if err != nil {
				DisplayError(r.app.env.Out, err)
			}
			if !keepGoing {
				r.exit(ctx)
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			r.exit(ctx)
			return nil
		}

		r.send(ctx, input)
	}
}

func (r *repl) prompt() string {
	if r.ctrl.Identity().IsAnonymous() {
		return "warriorchat> "
	}
	if n := len(r.ctrl.Snapshot().Records); n > 0 {
		return fmt.Sprintf("warriorchat [%d]> ", n)
	}
	return "warriorchat> "
}

// send posts one message. Send failures are already on the transcript and
// the status line; only refusals are reported here.
func (r *repl) send(ctx context.Context, prompt string) {
	err := r.ctrl.Send(ctx, prompt)
	r.surface.finish()

	var sendErr *session.SendError
	var stagingErr *attach.StagingError
	switch {
	case err == nil, errors.Is(err, session.ErrSessionEnded),
		errors.As(err, &sendErr), errors.As(err, &stagingErr):
	case errors.Is(err, session.ErrNotAuthenticated):
		r.surface.println(styles.RenderError("Not signed in. Use /login first."))
	default:
		DisplayError(r.app.env.Out, err)
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleCommand runs one slash command. It returns false to exit.
func (r *repl) handleCommand(ctx context.Context, input string) (bool, error) {
	res := r.parser.Parse(input)
	if res.Error != nil {
		return true, res.Error
	}
	if !res.Command.Available(commands.SurfaceREPL) {
		return true, fmt.Errorf("%s is not available here", res.Command.Name)
	}

	args := res.Args
	switch res.Command.Name {
	case commands.Help:
		r.printHelp()

	case commands.Quit:
		return false, nil

	case commands.Attach:
		files, err := attach.ReadFiles(args...)
		if err != nil {
			return true, err
		}
		for _, rec := range r.ctrl.AddLocalFiles(files...) {
			r.surface.println(styles.RenderSuccess(fmt.Sprintf("Staged %s as #%d", rec.Label(), rec.LocalIndex)))
		}

	case commands.Remove:
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return true, Usagef("%q is not an attachment index", args[0])
		}
		if !r.ctrl.RemoveLocal(n) {
			return true, fmt.Errorf("no local attachment #%d", n)
		}
		r.printStage()

	case commands.RemoveFile:
		if err := r.ctrl.RemoveRemote(ctx, args[0]); err != nil {
			return true, nil
		}
		r.surface.println(styles.RenderSuccess("Deleted " + args[0]))

	case commands.Files:
		files, err := r.ctrl.ListSessionFiles(ctx)
		if err != nil {
			return true, nil
		}
		if len(files) == 0 {
			r.surface.println(DimStyle.Render("No files in this session."))
			break
		}
		for _, f := range files {
			line := fmt.Sprintf("  %s  %s  %s", f.ID, f.Name, DimStyle.Render(humanize.Bytes(uint64(f.Size))))
			if f.ExpiresIn > 0 {
				line += DimStyle.Render(fmt.Sprintf("  expires in %d min", f.ExpiresIn/60))
			}
			r.surface.println(line)
		}

	case commands.Clear:
		n := r.ctrl.ClearLocalAttachments()
		r.surface.println(styles.RenderInfo(fmt.Sprintf("Unstaged %d local file(s)", n)))

	case commands.Models:
		models := r.ctrl.LoadModels(ctx)
		selected := r.ctrl.Snapshot().Model
		if len(models) == 0 {
			r.surface.println(DimStyle.Render("No models available."))
			break
		}
		for _, m := range models {
			mark := "  "
			if m.Name == selected {
				mark = "* "
			}
			r.surface.println(mark + m.Label())
		}

	case commands.Model:
		if len(args) == 0 {
			r.surface.println(RenderField("Model", r.ctrl.Snapshot().Model))
			break
		}
		if err := r.ctrl.SelectModel(args[0]); err != nil {
			return true, fmt.Errorf("%w %q (see /models)", err, args[0])
		}
		r.surface.println(styles.RenderSuccess("Switched to " + args[0]))

	case commands.Logout:
		// The controller reports a failed server call itself
		_ = r.ctrl.Logout(ctx)

	case commands.Login:
		if len(args) > 0 {
			r.app.opts.email = args[0]
		}
		if err := r.app.signIn(ctx, r.ctrl); err != nil && !isAuthError(err) {
			return true, err
		}

	case commands.Register:
		if len(args) > 0 {
			r.app.opts.email = args[0]
		}
		email, err := r.app.email()
		if err != nil {
			return true, err
		}
		password, err := r.app.newPassword()
		if err != nil {
			return true, err
		}
		if _, err := r.ctrl.Register(ctx, email, password); err == nil {
			r.app.opts.email = email
		}

	case commands.ResetRequest:
		_, _ = r.ctrl.RequestPasswordReset(ctx, args[0])

	case commands.Reset:
		password, err := r.app.newPassword()
		if err != nil {
			return true, err
		}
		_ = r.ctrl.ResetPassword(ctx, args[0], password)
	}
	return true, nil
}

func isAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// =============================================================================
// COMPLETION SOURCES
// =============================================================================

func (r *repl) modelNames() []string {
	var names []string
	for _, m := range r.ctrl.Snapshot().Models {
		names = append(names, m.Name)
	}
	return names
}

func (r *repl) localIndices() []string {
	var out []string
	for _, rec := range r.ctrl.Snapshot().Records {
		if rec.HasLocalIndex() {
			out = append(out, strconv.Itoa(rec.LocalIndex))
		}
	}
	return out
}

func (r *repl) remoteIDs() []string {
	var out []string
	for _, rec := range r.ctrl.Snapshot().Records {
		if rec.Kind == attach.Remote {
			out = append(out, rec.RemoteID)
		}
	}
	return out
}

// =============================================================================
// DISPLAY FUNCTIONS
// =============================================================================

func (r *repl) printWelcome() {
	st := r.ctrl.Snapshot()
	r.surface.println("")
	r.surface.println(AssistantStyle.Render("warriorchat interactive chat"))
	r.surface.println(RenderSeparator(30))
	r.surface.println(RenderField("Server", r.app.client.BaseURL()))
	r.surface.println(RenderField("User", st.Identity.Label()))
	if st.Model != "" {
		r.surface.println(RenderField("Model", st.Model))
	}
	r.surface.println("")
	r.surface.println(DimStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	r.surface.println("")
}

func (r *repl) printHelp() {
	r.surface.println("")
	r.surface.println(TitleStyle.Render("Available Commands"))
	r.surface.println(RenderSeparator(20))
	for _, cmd := range r.registry.For(commands.SurfaceREPL) {
		name := cmd.Name
		if cmd.Usage != "" {
			name = cmd.Usage
		}
		if len(cmd.Aliases) > 0 {
			name += ", " + strings.Join(cmd.Aliases, ", ")
		}
		r.surface.println(fmt.Sprintf("  %s  %s", SuccessStyle.Render(fmt.Sprintf("%-24s", name)), DimStyle.Render(cmd.Description)))
	}
	r.surface.println("")
	r.surface.println(DimStyle.Render("Tip: Ctrl+C cancels the current reply, Ctrl+D exits"))
	r.surface.println("")
}

func (r *repl) printStage() {
	records := r.ctrl.Snapshot().Records
	if len(records) == 0 {
		r.surface.println(DimStyle.Render("Nothing staged."))
		return
	}
	for _, rec := range records {
		r.surface.println("  " + recordLine(rec))
	}
}

// recordLine formats one staged record for the line-oriented surfaces.
func recordLine(rec attach.Record) string {
	switch {
	case rec.Kind == attach.Remote:
		return fmt.Sprintf("[%s] %s", rec.RemoteID, rec.Label())
	case rec.IsImage:
		return fmt.Sprintf("#%d %s (image, %s)", rec.LocalIndex, rec.Label(), humanize.Bytes(uint64(rec.Size)))
	default:
		return fmt.Sprintf("#%d %s (%s)", rec.LocalIndex, rec.Label(), humanize.Bytes(uint64(rec.Size)))
	}
}

func (r *repl) exit(ctx context.Context) {
	if !r.ctrl.Identity().IsAnonymous() {
		if err := r.app.client.Logout(ctx); err != nil {
			r.app.logger.Debug("logout on exit failed", "err", err)
		}
	}
	r.surface.println(DimStyle.Render("Goodbye!"))
}

// =============================================================================
// REPL SURFACE
// =============================================================================

// replSurface streams reply text and prints status and identity changes as
// lines. Output from the drop folder goroutine is serialized with it.
type replSurface struct {
	*streamSurface

	idMu     sync.Mutex
	signedIn bool
}

func newReplSurface(out io.Writer) *replSurface {
	return &replSurface{streamSurface: &streamSurface{out: out}}
}

func (s *replSurface) IdentityChanged(id *model.Identity) {
	s.idMu.Lock()
	was := s.signedIn
	s.signedIn = id != nil
	s.idMu.Unlock()

	switch {
	case id != nil && !was:
		s.println(styles.RenderSuccess("Signed in as " + id.Label()))
	case id == nil && was:
		s.println(styles.RenderInfo("Signed out"))
	}
}

func (s *replSurface) Status(st session.Status) {
	if st.Text == "" {
		return
	}
	s.println(styles.RenderStatus(st.Error, st.Text))
}

// dropped reports files staged from the drop folder.
func (s *replSurface) dropped(records []attach.Record) {
	for _, rec := range records {
		s.println(styles.RenderInfo("Staged from drop folder: " + recordLine(rec)))
	}
}

// println writes line on its own line, ending a partial reply first.
func (s *replSurface) println(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wrote && !s.lastNL {
		io.WriteString(s.out, "\n")
		s.lastNL = true
	}
	io.WriteString(s.out, line+"\n")
}
