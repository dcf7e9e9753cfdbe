// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - exit codes and error display for warriorchat commands.
//
// Commands always return errors; Run prints them once and picks the exit
// code from the error's type.

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/warriorchat/internal/attach"
	"github.com/jeranaias/warriorchat/internal/backend"
	"github.com/jeranaias/warriorchat/internal/commands"
	"github.com/jeranaias/warriorchat/internal/config"
	"github.com/jeranaias/warriorchat/internal/session"
	"github.com/jeranaias/warriorchat/internal/stream"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates a failed or missing sign-in
	ExitAuthError = 4
	// ExitNetworkError indicates the backend could not be reached
	ExitNetworkError = 5
	// ExitGenerateError indicates the generate request or upload failed
	ExitGenerateError = 6
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError wraps an invalid flag or argument.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// Usagef creates a UsageError.
func Usagef(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// ConfigError wraps a failure to load or validate configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// AuthError wraps a failed sign-in.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return e.Err.Error() }
func (e *AuthError) Unwrap() error { return e.Err }

// CommandError adds the failing command and action to an error.
type CommandError struct {
	Command string // e.g. "reset"
	Action  string // e.g. "confirm"
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a CommandError.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode determines the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	var cmdValidation *commands.ValidationError
	var ttyErr *TTYRequiredError
	if errors.As(err, &usageErr) || errors.As(err, &cmdValidation) || errors.As(err, &ttyErr) {
		return ExitUsageError
	}

	var configErr *ConfigError
	var validateErrs config.ValidateErrors
	if errors.As(err, &configErr) || errors.As(err, &validateErrs) {
		return ExitConfigError
	}

	// An unreachable server explains a failed sign-in too
	if backend.IsTransport(err) {
		return ExitNetworkError
	}

	var authErr *AuthError
	if errors.As(err, &authErr) ||
		errors.Is(err, session.ErrNotAuthenticated) ||
		errors.Is(err, session.ErrSessionNotEstablished) ||
		backend.IsUnauthorized(err) {
		return ExitAuthError
	}

	var sendErr *session.SendError
	if errors.As(err, &sendErr) {
		if sendErr.Result.Kind == stream.NetworkFailed {
			return ExitNetworkError
		}
		return ExitGenerateError
	}

	var stagingErr *attach.StagingError
	if errors.As(err, &stagingErr) {
		return ExitGenerateError
	}

	return ExitGeneralError
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err in the standard format.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), describeError(err))
}

// describeError prefers the backend's own message over the wrapped chain.
func describeError(err error) string {
	var sendErr *session.SendError
	if errors.As(err, &sendErr) && sendErr.Result.Message != "" {
		return sendErr.Result.Message
	}
	if clientErr := backend.AsClientError(err); clientErr != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return fmt.Sprintf("%s %s failed: %s", cmdErr.Command, cmdErr.Action, clientErr.Detail())
		}
		return clientErr.Detail()
	}
	return err.Error()
}
