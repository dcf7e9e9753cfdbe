// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"

	"github.com/jeranaias/warriorchat/internal/attach"
	"github.com/jeranaias/warriorchat/internal/backend"
	"github.com/jeranaias/warriorchat/internal/commands"
	"github.com/jeranaias/warriorchat/internal/model"
	"github.com/jeranaias/warriorchat/internal/preview"
	"github.com/jeranaias/warriorchat/internal/session"
	"github.com/jeranaias/warriorchat/internal/ui/styles"
)

// =============================================================================
// CONTROLLER PORT
// =============================================================================

// Controller is the part of *session.Controller the chat view drives.
type Controller interface {
	Bootstrap(ctx context.Context) *model.Identity
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
	Register(ctx context.Context, email, password string) (string, error)

	Send(ctx context.Context, prompt string) error
	Cancel() bool

	AddLocalFiles(files ...attach.LocalFile) []attach.Record
	RemoveLocal(index int) bool
	RemoveRemote(ctx context.Context, remoteID string) error
	ClearLocalAttachments() int
	ListSessionFiles(ctx context.Context) ([]backend.SessionFile, error)

	LoadModels(ctx context.Context) []backend.ModelInfo
	SelectModel(name string) error
}

var _ Controller = (*session.Controller)(nil)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a chat Model.
type Options struct {
	// Controller is required.
	Controller Controller

	// Surface supplies streaming snapshots. Nil disables streaming redraws.
	Surface *Surface

	// Previews holds image preview blobs; decoded previews are revoked.
	Previews preview.Store

	// Context is the parent of every controller call.
	Context context.Context

	Theme *styles.Theme

	// Markdown renders finished assistant entries with glamour.
	Markdown bool

	// GlamourStyle is "auto", "dark", "light" or "notty".
	GlamourStyle string

	// BaseURL is shown in the header.
	BaseURL string

	Logger *log.Logger

	// ReadFiles loads /attach paths. Defaults to attach.ReadFiles.
	ReadFiles func(paths ...string) ([]attach.LocalFile, error)
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// formField identifies the focused sign-in field.
type formField int

const (
	fieldEmail formField = iota
	fieldPassword
)

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctrl     Controller
	surface  *Surface
	previews preview.Store
	ctx      context.Context
	logger   *log.Logger
	readFile func(paths ...string) ([]attach.LocalFile, error)

	// Styling
	theme        *styles.Theme
	keys         KeyMap
	markdown     bool
	glamourStyle string
	renderer     *glamour.TermRenderer
	rendered     map[string]string // Entry ID -> rendered markdown
	baseURL      string

	// Dimensions
	width  int
	height int
	ready  bool

	// Session mirror
	probing    bool
	identity   *model.Identity
	transcript []model.TranscriptEntry
	streaming  *model.TranscriptEntry
	records    []attach.Record
	images     map[string]preview.Image // Record ID -> decoded header
	models     []backend.ModelInfo
	selected   string
	busy       bool
	status     map[session.StatusArea]session.Status
	notice     *noticeMsg

	// Chat widgets
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Sign-in form
	email    textinput.Model
	password textinput.Model
	focus    formField
	signUp   bool
	authBusy bool

	// Slash commands
	registry  *commands.Registry
	parser    *commands.Parser
	completer *commands.Completer
	completion

	showHelp bool
	quitting bool
}

// New creates a chat Model for opts.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	readFiles := opts.ReadFiles
	if readFiles == nil {
		readFiles = attach.ReadFiles
	}

	input := textinput.New()
	input.Placeholder = "Message, or /help"
	input.Prompt = "> "
	input.CharLimit = 0
	input.Focus()

	email := textinput.New()
	email.Placeholder = "you@example.mil"
	email.Prompt = ""
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = ""
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	sp := spinner.New()
	sp.Spinner = styles.DotsSpinner.Bubbles()
	sp.Style = theme.Spinner

	registry := commands.NewRegistry()

	m := Model{
		ctrl:         opts.Controller,
		surface:      opts.Surface,
		previews:     opts.Previews,
		ctx:          ctx,
		logger:       logger.WithPrefix("tui"),
		readFile:     readFiles,
		theme:        theme,
		keys:         DefaultKeyMap(),
		markdown:     opts.Markdown,
		glamourStyle: opts.GlamourStyle,
		rendered:     make(map[string]string),
		baseURL:      opts.BaseURL,
		probing:      true,
		images:       make(map[string]preview.Image),
		status:       make(map[session.StatusArea]session.Status),
		viewport:     viewport.New(80, 20),
		input:        input,
		spinner:      sp,
		email:        email,
		password:     password,
		registry:     registry,
		parser:       commands.NewParser(registry),
		completer:    commands.NewCompleter(registry, commands.SurfaceTUI),
	}
	return m
}

// Init probes for an existing session.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.bootstrapCmd())
}

// =============================================================================
// ACCESSORS
// =============================================================================

// SignedIn reports whether the chat view is shown.
func (m Model) SignedIn() bool {
	return !m.identity.IsAnonymous()
}

// Busy reports whether a send is in flight.
func (m Model) Busy() bool {
	return m.busy
}

// Records returns the staged attachments as last reported.
func (m Model) Records() []attach.Record {
	return m.records
}

// Transcript returns the finished and streaming entries as last reported.
func (m Model) Transcript() []model.TranscriptEntry {
	return m.transcript
}

// Selected returns the selected model name.
func (m Model) Selected() string {
	return m.selected
}

// StatusText returns the text shown for area.
func (m Model) StatusText(area session.StatusArea) string {
	return m.status[area].Text
}

// Input returns the current chat input value.
func (m Model) Input() string {
	return m.input.Value()
}
