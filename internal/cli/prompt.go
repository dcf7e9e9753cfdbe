// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// prompt.go - credential prompts for the line-oriented commands.

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// Prompter reads answers to interactive questions.
type Prompter interface {
	// Line reads one line of visible input.
	Line(prompt string) (string, error)
	// Password reads one line without echo when the input is a terminal.
	Password(prompt string) (string, error)
}

// termPrompter prompts on out and reads from in. Passwords are read with
// echo disabled when in is a terminal.
type termPrompter struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

// NewTermPrompter creates a Prompter over in and out.
func NewTermPrompter(in io.Reader, out io.Writer) Prompter {
	return &termPrompter{in: in, out: out, reader: bufio.NewReader(in)}
}

func (p *termPrompter) Line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", &TTYRequiredError{Operation: "read " + strings.TrimSuffix(strings.ToLower(prompt), ": ")}
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *termPrompter) Password(prompt string) (string, error) {
	f, ok := p.in.(fder)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return p.Line(prompt)
	}

	fmt.Fprint(p.out, prompt)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
