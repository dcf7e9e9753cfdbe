// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// Identity is the signed-in user as reported by the session probe.
// A nil *Identity means the session is anonymous.
type Identity struct {
	ID          int64  `json:"id,omitempty"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// IsAnonymous reports whether no user is signed in.
func (i *Identity) IsAnonymous() bool {
	return i == nil
}

// Label returns the name shown in headers.
func (i *Identity) Label() string {
	if i == nil {
		return "Not signed in"
	}
	if name := strings.TrimSpace(i.DisplayName); name != "" {
		return name
	}
	return i.Email
}

// Clone returns a copy so callers cannot mutate a shared snapshot.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}
