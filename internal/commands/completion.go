// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// maxFileCompletions caps path suggestions for one directory.
const maxFileCompletions = 20

// Completion is one suggestion.
type Completion struct {
	// Value replaces the token being completed
	Value string

	// Display is shown in the completion list
	Display string

	Description string

	// Score ranks suggestions (higher is better)
	Score int
}

// =============================================================================
// COMPLETER
// =============================================================================

// Completer completes command names and arguments for one surface.
type Completer struct {
	registry *Registry
	surface  Surface

	// Callbacks for dynamic values, set by the surface
	ModelsFn  func() []string              // Model names
	IndicesFn func() []string              // Local attachment indices
	RemoteFn  func() []string              // Session file ids
	FilesFn   func(prefix string) []string // Paths matching prefix
}

// NewCompleter creates a completer offering the commands available on s.
func NewCompleter(registry *Registry, s Surface) *Completer {
	return &Completer{registry: registry, surface: s}
}

// Complete returns suggestions for the token under the cursor.
func (c *Completer) Complete(input string, cursorPos int) []Completion {
	if cursorPos >= 0 && cursorPos < len(input) {
		input = input[:cursorPos]
	}
	input = strings.TrimLeft(input, " \t")

	if !strings.HasPrefix(input, "/") {
		return nil
	}

	parts := ParseArgs(input)
	trailingSpace := strings.HasSuffix(input, " ")

	if len(parts) == 0 {
		return c.completeCommands("")
	}
	if len(parts) == 1 && !trailingSpace {
		return c.completeCommands(parts[0])
	}

	cmd := c.registry.Get(strings.ToLower(parts[0]))
	if cmd == nil || !cmd.Available(c.surface) {
		return nil
	}

	argIndex := len(parts) - 2
	partial := ""
	if trailingSpace {
		argIndex++
	} else {
		partial = parts[len(parts)-1]
	}

	return c.completeArg(cmd, argIndex, partial)
}

// Line completes a whole input line, returning full replacement lines.
// liner uses this form.
func (c *Completer) Line(line string) []string {
	completions := c.Complete(line, len(line))
	if len(completions) == 0 {
		return nil
	}

	head := line
	if !strings.HasSuffix(line, " ") {
		if idx := strings.LastIndexAny(line, " \t"); idx >= 0 {
			head = line[:idx+1]
		} else {
			head = ""
		}
	}

	out := make([]string, 0, len(completions))
	for _, comp := range completions {
		out = append(out, head+quoteIfNeeded(comp.Value))
	}
	return out
}

// =============================================================================
// COMMAND COMPLETION
// =============================================================================

func (c *Completer) completeCommands(partial string) []Completion {
	var completions []Completion
	partial = strings.ToLower(partial)

	for _, cmd := range c.registry.For(c.surface) {
		if strings.HasPrefix(cmd.Name, partial) {
			completions = append(completions, Completion{
				Value:       cmd.Name,
				Display:     cmd.Name,
				Description: cmd.Description,
				Score:       calculateScore(cmd.Name, partial),
			})
		}
		for _, alias := range cmd.Aliases {
			if partial != "/" && strings.HasPrefix(alias, partial) {
				completions = append(completions, Completion{
					Value:       alias,
					Display:     alias + " -> " + cmd.Name,
					Description: cmd.Description,
					Score:       calculateScore(alias, partial) - 10,
				})
			}
		}
	}

	sortCompletions(completions)
	return completions
}

// =============================================================================
// ARGUMENT COMPLETION
// =============================================================================

func (c *Completer) completeArg(cmd *Command, argIndex int, partial string) []Completion {
	if argIndex < 0 || len(cmd.Args) == 0 {
		return nil
	}
	if argIndex >= len(cmd.Args) {
		last := cmd.Args[len(cmd.Args)-1]
		if !last.Variadic {
			return nil
		}
		argIndex = len(cmd.Args) - 1
	}

	switch cmd.Args[argIndex].Type {
	case ArgTypeModel:
		return completeFromList(call(c.ModelsFn), partial)
	case ArgTypeIndex:
		return completeFromList(call(c.IndicesFn), partial)
	case ArgTypeRemoteFile:
		return completeFromList(call(c.RemoteFn), partial)
	case ArgTypeFile:
		if c.FilesFn != nil {
			return completeFromList(c.FilesFn(partial), partial)
		}
		return completeFiles(partial)
	default:
		return nil
	}
}

func call(fn func() []string) []string {
	if fn == nil {
		return nil
	}
	return fn()
}

// completeFiles lists directory entries matching partial.
func completeFiles(partial string) []Completion {
	dir := filepath.Dir(partial)
	prefix := filepath.Base(partial)
	if partial == "" {
		dir, prefix = ".", ""
	} else if strings.HasSuffix(partial, string(os.PathSeparator)) {
		dir, prefix = partial, ""
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	lowerPrefix := strings.ToLower(prefix)
	var completions []Completion
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(strings.ToLower(name), lowerPrefix) {
			continue
		}
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}

		path := name
		if dir != "." || strings.HasPrefix(partial, ".") {
			path = filepath.Join(dir, name)
		}
		score := calculateScore(name, lowerPrefix)
		desc := ""
		if entry.IsDir() {
			path += string(os.PathSeparator)
			score += 5
			desc = "directory"
		} else if info, err := entry.Info(); err == nil {
			desc = humanize.Bytes(uint64(info.Size()))
		}

		completions = append(completions, Completion{
			Value:       path,
			Display:     name,
			Description: desc,
			Score:       score,
		})
	}

	sortCompletions(completions)
	if len(completions) > maxFileCompletions {
		completions = completions[:maxFileCompletions]
	}
	return completions
}

func completeFromList(values []string, partial string) []Completion {
	var completions []Completion
	lower := strings.ToLower(partial)
	for _, value := range values {
		if strings.HasPrefix(strings.ToLower(value), lower) {
			completions = append(completions, Completion{
				Value:   value,
				Display: value,
				Score:   calculateScore(value, lower),
			})
		}
	}
	sortCompletions(completions)
	return completions
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// calculateScore ranks a prefix match. Exact and short matches rank higher.
func calculateScore(value, partial string) int {
	value = strings.ToLower(value)
	partial = strings.ToLower(partial)

	score := 100
	if value == partial {
		return score + 100
	}
	if strings.HasPrefix(value, partial) {
		score += 50
		score += 20 - len(value)
	}
	score -= len(value) / 2
	return score
}

func sortCompletions(completions []Completion) {
	sort.SliceStable(completions, func(i, j int) bool {
		if completions[i].Score != completions[j].Score {
			return completions[i].Score > completions[j].Score
		}
		return completions[i].Value < completions[j].Value
	})
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, " \t'") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}
