// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"strings"
	"unicode"
)

// =============================================================================
// PARSE RESULT
// =============================================================================

// ParseResult is one line of input split into a command and its arguments.
type ParseResult struct {
	// IsCommand is true when the input starts with "/".
	IsCommand bool

	// Command is nil for plain text and for unknown names.
	Command *Command

	// Args are the arguments with quotes removed.
	Args []string

	// Error is a *ValidationError for an unknown command or a bad argument count.
	Error error
}

// =============================================================================
// PARSER
// =============================================================================

// Parser resolves slash commands against a Registry.
type Parser struct {
	registry *Registry
}

// NewParser creates a parser over registry.
func NewParser(registry *Registry) *Parser {
	return &Parser{registry: registry}
}

// Parse splits input and looks up its command. Plain text comes back with
// IsCommand false and nothing else set.
func (p *Parser) Parse(input string) ParseResult {
	if !IsCommand(input) {
		return ParseResult{}
	}

	tokens := ParseArgs(input)
	res := ParseResult{IsCommand: true, Args: tokens[1:]}

	name := tokens[0]
	res.Command = p.registry.Get(strings.ToLower(name))
	if res.Command == nil {
		res.Error = &ValidationError{Command: name, Message: "unknown command", Expected: "/help"}
		return res
	}
	res.Error = ValidateArgs(res.Command, res.Args)
	return res
}

// IsCommand reports whether input is a slash command.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// ParseArgs splits input on unquoted whitespace. Single and double quotes
// group words; inside quotes a backslash escapes a quote or a backslash.
func ParseArgs(input string) []string {
	var (
		tokens []string
		buf    strings.Builder
		quote  rune // the open quote, or 0
		quoted bool // the current token had quotes, so "" is kept
	)
	flush := func() {
		if buf.Len() > 0 || quoted {
			tokens = append(tokens, buf.String())
		}
		buf.Reset()
		quoted = false
	}

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0 && r == '\\' && i+1 < len(runes) && strings.ContainsRune(`"'\`, runes[i+1]):
			i++
			buf.WriteRune(runes[i])
		case quote != 0:
			buf.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			quoted = true
		case unicode.IsSpace(r):
			flush()
		default:
			buf.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// ValidateArgs checks args against the command's argument definitions.
func ValidateArgs(cmd *Command, args []string) error {
	if cmd == nil {
		return nil
	}

	for i, def := range cmd.Args {
		if def.Required && i >= len(args) {
			return &ValidationError{
				Command:  cmd.Name,
				Arg:      def.Name,
				Message:  "required argument missing",
				Expected: cmd.usage(),
			}
		}
	}

	n := len(cmd.Args)
	if n > 0 && cmd.Args[n-1].Variadic {
		return nil
	}
	if len(args) > n {
		return &ValidationError{
			Command:  cmd.Name,
			Message:  "too many arguments",
			Got:      strings.Join(args[n:], " "),
			Expected: cmd.usage(),
		}
	}
	return nil
}

func (c *Command) usage() string {
	if c.Usage != "" {
		return c.Usage
	}
	return c.Name
}

// =============================================================================
// VALIDATION ERROR
// =============================================================================

// ValidationError describes input the parser rejected.
type ValidationError struct {
	Command  string
	Arg      string
	Message  string
	Got      string
	Expected string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Command, e.Message)
	if e.Arg != "" {
		fmt.Fprintf(&b, " for argument '%s'", e.Arg)
	}
	if e.Got != "" {
		fmt.Fprintf(&b, " (got: %s)", e.Got)
	}
	if e.Expected != "" {
		fmt.Fprintf(&b, " - expected: %s", e.Expected)
	}
	return b.String()
}
