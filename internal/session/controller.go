// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/warriorchat/internal/attach"
	"github.com/jeranaias/warriorchat/internal/backend"
	"github.com/jeranaias/warriorchat/internal/model"
	"github.com/jeranaias/warriorchat/internal/preview"
	"github.com/jeranaias/warriorchat/internal/stream"
)

var (
	// ErrNothingToSend is returned by Send for an empty prompt with nothing staged.
	ErrNothingToSend = errors.New("nothing to send")

	// ErrSendInFlight is returned by Send while another send is running.
	ErrSendInFlight = errors.New("a message is already being sent")

	// ErrNotAuthenticated is returned by Send while no user is signed in.
	ErrNotAuthenticated = errors.New("not signed in")

	// ErrSessionNotEstablished is returned by Login when the backend accepted
	// the credentials but /me still reports no user.
	ErrSessionNotEstablished = errors.New("signed in but the session could not be verified")

	// ErrUnknownModel is returned by SelectModel for a name not in the list.
	ErrUnknownModel = errors.New("unknown model")

	// ErrSessionEnded is returned by a Send that was running when Logout
	// ended the session. Nothing from that send reaches the new state.
	ErrSessionEnded = errors.New("session ended during send")
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Backend is everything the controller needs from the server.
// *backend.Client satisfies it.
type Backend interface {
	attach.FileStore
	stream.Generator

	Me(ctx context.Context) (*model.Identity, error)
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
	Register(ctx context.Context, email, password string) (*backend.RegisteredUser, error)
	RequestPasswordReset(ctx context.Context, email string) (*backend.ResetRequestResponse, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	ListModels(ctx context.Context) ([]backend.ModelInfo, error)
	ListSessionFiles(ctx context.Context) ([]backend.SessionFile, error)
}

// Options are the per-request settings taken from configuration.
type Options struct {
	// DefaultModel is selected initially and offered when the model list
	// cannot be loaded.
	DefaultModel string

	// SystemPrompt is sent as the generate request's system text.
	SystemPrompt string

	// LLMParams is sent as llm_params.
	LLMParams map[string]any

	// ReadSize is the body read buffer size (0 = stream.DefaultReadSize).
	ReadSize int
}

// Deps wires a Controller. Backend is required. Surface and Logger have
// defaults.
type Deps struct {
	Backend Backend
	Surface Surface

	// Previews is only needed by surfaces that render image previews. When
	// nil, staged images get no preview URL and no copy of their bytes.
	Previews preview.Store

	Logger  *log.Logger
	Options Options
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller is the session state machine.
//
// The Controller is safe for concurrent use. Network calls run without
// holding its lock.
type Controller struct {
	mu sync.Mutex

	identity   *model.Identity
	epoch      uint64 // bumped by Logout
	inFlight   bool
	cancelSend context.CancelFunc
	models     []backend.ModelInfo
	model      string

	stage      *attach.Stage
	transcript *model.Transcript
	consumer   *stream.Consumer
	backend    Backend
	surface    Surface
	opts       Options
	logger     *log.Logger
}

// New creates an anonymous session.
func New(deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	surface := deps.Surface
	if surface == nil {
		surface = NopSurface{}
	}
	return &Controller{
		model:      deps.Options.DefaultModel,
		stage:      attach.NewStage(deps.Backend, deps.Previews, logger),
		transcript: model.NewTranscript(),
		consumer:   stream.NewConsumer(deps.Backend, logger).WithReadSize(deps.Options.ReadSize),
		backend:    deps.Backend,
		surface:    surface,
		opts:       deps.Options,
		logger:     logger.WithPrefix("session"),
	}
}

// =============================================================================
// STATE
// =============================================================================

// State is a point-in-time copy of the session.
type State struct {
	Identity   *model.Identity
	Records    []attach.Record
	Transcript []model.TranscriptEntry
	InFlight   bool
	Models     []backend.ModelInfo
	Model      string
}

// Authenticated reports whether a user is signed in.
func (s State) Authenticated() bool {
	return !s.Identity.IsAnonymous()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	st := State{
		Identity: c.identity.Clone(),
		InFlight: c.inFlight,
		Models:   append([]backend.ModelInfo(nil), c.models...),
		Model:    c.model,
	}
	c.mu.Unlock()

	st.Records = c.stage.Snapshot()
	st.Transcript = c.transcript.Snapshot()
	return st
}

// Identity returns the signed-in user, or nil.
func (c *Controller) Identity() *model.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity.Clone()
}

// InFlight reports whether a send is running.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func (c *Controller) status(area StatusArea, text string, isErr bool) {
	c.surface.Status(Status{Area: area, Text: text, Error: isErr})
}

func (c *Controller) notifyStage() {
	c.surface.StageChanged(c.stage.Snapshot())
}

func (c *Controller) notifyTranscript() {
	c.surface.TranscriptChanged(c.transcript.Snapshot())
}

// within runs fn under the lock while epoch is still the current session
// and reports whether it ran. fn must not call the surface.
func (c *Controller) within(epoch uint64, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return false
	}
	if fn != nil {
		fn()
	}
	return true
}

func (c *Controller) setIdentity(id *model.Identity) {
	c.mu.Lock()
	c.identity = id.Clone()
	c.mu.Unlock()
	c.surface.IdentityChanged(id.Clone())
}

// =============================================================================
// SESSION & AUTH
// =============================================================================

// Bootstrap probes for an existing session. Any failure leaves the session
// anonymous. When a user is found the model list is loaded.
func (c *Controller) Bootstrap(ctx context.Context) *model.Identity {
	id, err := c.backend.Me(ctx)
	if err != nil {
		c.logger.Debug("session probe failed", "op", "me", "err", err)
		id = nil
	}
	c.setIdentity(id)
	if id != nil {
		c.LoadModels(ctx)
	}
	return id.Clone()
}

// Login signs in and re-probes the session. On success the identity is set
// and the model list is loaded.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	c.status(AreaAuth, "Signing in…", false)

	if err := c.backend.Login(ctx, email, password); err != nil {
		c.logger.Debug("login failed", "op", "login", "err", err)
		c.status(AreaAuth, backend.UserMessage(err, "Invalid credentials"), true)
		return err
	}

	id, err := c.backend.Me(ctx)
	if err != nil || id == nil {
		if err == nil {
			err = ErrSessionNotEstablished
		}
		c.status(AreaAuth, ErrSessionNotEstablished.Error(), true)
		return err
	}

	c.status(AreaAuth, "", false)
	c.setIdentity(id)
	c.logger.Info("signed in")
	c.LoadModels(ctx)
	return nil
}

// Logout ends the session. Local state is cleared even when the server call
// fails; the error is still returned and reported. A running send is
// cancelled and its remaining results are dropped.
func (c *Controller) Logout(ctx context.Context) error {
	err := c.backend.Logout(ctx)

	c.mu.Lock()
	cancel := c.cancelSend
	c.epoch++
	c.identity = nil
	c.models = nil
	c.model = c.opts.DefaultModel
	c.transcript.Clear()
	c.stage.Clear()
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	c.surface.IdentityChanged(nil)
	c.notifyTranscript()
	c.notifyStage()

	if err != nil {
		c.logger.Debug("logout failed", "op", "logout", "err", err)
		c.status(AreaAuth, "Signed out locally; the server did not confirm.", true)
		return err
	}
	c.status(AreaAuth, "", false)
	c.logger.Info("signed out")
	return nil
}

// Register creates an account without signing in. It returns the trimmed
// email so the surface can pre-fill the login form.
func (c *Controller) Register(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	c.status(AreaAuth, "Creating account…", false)

	if _, err := c.backend.Register(ctx, email, password); err != nil {
		c.logger.Debug("register failed", "op", "register", "err", err)
		c.status(AreaAuth, backend.UserMessage(err, "Registration failed"), true)
		return email, err
	}
	c.status(AreaAuth, "Account created. You can now sign in.", false)
	return email, nil
}

// RequestPasswordReset asks for a reset token. Development backends return
// the token directly; it is shown in the status message.
func (c *Controller) RequestPasswordReset(ctx context.Context, email string) (*backend.ResetRequestResponse, error) {
	c.status(AreaAuth, "Requesting reset token…", false)

	resp, err := c.backend.RequestPasswordReset(ctx, strings.TrimSpace(email))
	if err != nil {
		c.logger.Debug("reset request failed", "op", "request_reset", "err", err)
		c.status(AreaAuth, "Reset request failed.", true)
		return nil, err
	}
	if resp.ResetToken != "" {
		c.status(AreaAuth, "Token (dev only): "+resp.ResetToken, false)
	} else {
		c.status(AreaAuth, "If that account exists, a reset email was sent.", false)
	}
	return resp, nil
}

// ResetPassword consumes a reset token.
func (c *Controller) ResetPassword(ctx context.Context, token, newPassword string) error {
	c.status(AreaAuth, "Resetting password…", false)

	if err := c.backend.ResetPassword(ctx, strings.TrimSpace(token), newPassword); err != nil {
		c.logger.Debug("reset failed", "op", "reset_password", "err", err)
		c.status(AreaAuth, backend.UserMessage(err, "Reset failed"), true)
		return err
	}
	c.status(AreaAuth, "Password reset. You can log in now.", false)
	return nil
}

// =============================================================================
// MODELS
// =============================================================================

// LoadModels fetches the model list. When the list cannot be loaded, or is
// empty, the configured default is offered alone. The current selection is
// kept when it is still listed.
func (c *Controller) LoadModels(ctx context.Context) []backend.ModelInfo {
	models, err := c.backend.ListModels(ctx)
	if err != nil {
		c.logger.Debug("model list unavailable", "op", "list_models", "err", err)
	}
	if err != nil || len(models) == 0 {
		models = nil
		if c.opts.DefaultModel != "" {
			models = []backend.ModelInfo{{Name: c.opts.DefaultModel, DisplayName: c.opts.DefaultModel}}
		}
	}

	c.mu.Lock()
	c.models = models
	if !hasModel(models, c.model) {
		c.model = ""
		if len(models) > 0 {
			c.model = models[0].Name
		}
	}
	selected := c.model
	c.mu.Unlock()

	c.surface.ModelsLoaded(append([]backend.ModelInfo(nil), models...), selected)
	return models
}

// SelectModel makes name the model for subsequent sends.
func (c *Controller) SelectModel(name string) error {
	name = strings.TrimSpace(name)

	c.mu.Lock()
	if len(c.models) > 0 && !hasModel(c.models, name) {
		c.mu.Unlock()
		return ErrUnknownModel
	}
	c.model = name
	models := append([]backend.ModelInfo(nil), c.models...)
	c.mu.Unlock()

	c.surface.ModelsLoaded(models, name)
	return nil
}

func hasModel(models []backend.ModelInfo, name string) bool {
	if name == "" {
		return false
	}
	for _, m := range models {
		if m.Name == name {
			return true
		}
	}
	return false
}
