// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import "sort"

// Command names.
const (
	Help         = "/help"
	Quit         = "/quit"
	Attach       = "/attach"
	Remove       = "/rm"
	RemoveFile   = "/rmfile"
	Files        = "/files"
	Clear        = "/clear"
	Models       = "/models"
	Model        = "/model"
	Logout       = "/logout"
	Login        = "/login"
	Register     = "/register"
	ResetRequest = "/reset-request"
	Reset        = "/reset"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Surface selects where a command is offered.
type Surface uint8

const (
	SurfaceTUI Surface = 1 << iota
	SurfaceREPL

	SurfaceAll = SurfaceTUI | SurfaceREPL
)

// Command describes one slash command.
type Command struct {
	// Name is the primary name, e.g. "/rm".
	Name string

	// Aliases are alternative names, e.g. "/q".
	Aliases []string

	Description string

	// Usage shows argument syntax, e.g. "/rm <n>".
	Usage string

	Args []ArgDef

	// Surfaces lists where the command is available.
	Surfaces Surface

	// Category groups commands in help.
	Category string
}

// Available reports whether the command is offered on s.
func (c *Command) Available(s Surface) bool {
	return c.Surfaces&s != 0
}

// ArgDef defines one positional argument.
type ArgDef struct {
	Name        string
	Required    bool
	Type        ArgType
	Description string

	// Variadic accepts any number of values (last argument only).
	Variadic bool
}

// ArgType selects completion behavior.
type ArgType int

const (
	ArgTypeString     ArgType = iota // Free-form
	ArgTypeModel                     // Model name from the backend list
	ArgTypeFile                      // Local file path
	ArgTypeIndex                     // Local attachment index
	ArgTypeRemoteFile                // Session file id
)

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds the command table.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a registry with every built-in command.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns every command sorted by category then name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool {
		if cmds[i].Category != cmds[j].Category {
			return categoryRank(cmds[i].Category) < categoryRank(cmds[j].Category)
		}
		return cmds[i].Name < cmds[j].Name
	})
	return cmds
}

// For returns the commands offered on s, in All order.
func (r *Registry) For(s Surface) []*Command {
	var out []*Command
	for _, cmd := range r.All() {
		if cmd.Available(s) {
			out = append(out, cmd)
		}
	}
	return out
}

var categoryOrder = []string{"Chat", "Files", "Model", "Account", "General"}

func categoryRank(category string) int {
	for i, c := range categoryOrder {
		if c == category {
			return i
		}
	}
	return len(categoryOrder)
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        Help,
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Surfaces:    SurfaceAll,
		Category:    "General",
	})

	r.Register(&Command{
		Name:        Quit,
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit warriorchat",
		Surfaces:    SurfaceAll,
		Category:    "General",
	})

	r.Register(&Command{
		Name:        Clear,
		Aliases:     []string{"/c"},
		Description: "Unstage every local attachment",
		Surfaces:    SurfaceAll,
		Category:    "Files",
	})

	r.Register(&Command{
		Name:        Attach,
		Aliases:     []string{"/a"},
		Description: "Stage local files for the next message",
		Usage:       "/attach <path>...",
		Args: []ArgDef{
			{Name: "path", Required: true, Type: ArgTypeFile, Variadic: true, Description: "File to attach"},
		},
		Surfaces: SurfaceAll,
		Category: "Files",
	})

	r.Register(&Command{
		Name:        Remove,
		Description: "Unstage the local attachment at index n",
		Usage:       "/rm <n>",
		Args: []ArgDef{
			{Name: "n", Required: true, Type: ArgTypeIndex, Description: "Attachment index"},
		},
		Surfaces: SurfaceAll,
		Category: "Files",
	})

	r.Register(&Command{
		Name:        RemoveFile,
		Description: "Delete an uploaded session file",
		Usage:       "/rmfile <id>",
		Args: []ArgDef{
			{Name: "id", Required: true, Type: ArgTypeRemoteFile, Description: "Session file id"},
		},
		Surfaces: SurfaceAll,
		Category: "Files",
	})

	r.Register(&Command{
		Name:        Files,
		Description: "List files uploaded in this session",
		Surfaces:    SurfaceAll,
		Category:    "Files",
	})

	r.Register(&Command{
		Name:        Models,
		Description: "List available models",
		Surfaces:    SurfaceAll,
		Category:    "Model",
	})

	r.Register(&Command{
		Name:        Model,
		Aliases:     []string{"/m"},
		Description: "Show or switch the model",
		Usage:       "/model [name]",
		Args: []ArgDef{
			{Name: "name", Type: ArgTypeModel, Description: "Model to switch to"},
		},
		Surfaces: SurfaceAll,
		Category: "Model",
	})

	r.Register(&Command{
		Name:        Logout,
		Description: "Sign out",
		Surfaces:    SurfaceAll,
		Category:    "Account",
	})

	r.Register(&Command{
		Name:        Login,
		Description: "Sign in",
		Usage:       "/login [email]",
		Args: []ArgDef{
			{Name: "email", Type: ArgTypeString, Description: "Account email"},
		},
		Surfaces: SurfaceREPL,
		Category: "Account",
	})

	r.Register(&Command{
		Name:        Register,
		Description: "Create an account",
		Usage:       "/register [email]",
		Args: []ArgDef{
			{Name: "email", Type: ArgTypeString, Description: "Account email"},
		},
		Surfaces: SurfaceREPL,
		Category: "Account",
	})

	r.Register(&Command{
		Name:        ResetRequest,
		Description: "Request a password reset token",
		Usage:       "/reset-request <email>",
		Args: []ArgDef{
			{Name: "email", Required: true, Type: ArgTypeString, Description: "Account email"},
		},
		Surfaces: SurfaceREPL,
		Category: "Account",
	})

	r.Register(&Command{
		Name:        Reset,
		Description: "Set a new password with a reset token",
		Usage:       "/reset <token>",
		Args: []ArgDef{
			{Name: "token", Required: true, Type: ArgTypeString, Description: "Reset token"},
		},
		Surfaces: SurfaceREPL,
		Category: "Account",
	})
}
