// Package state provides filesystem-backed storage implementations.
package state

import "github.com/avanolabs/tradepanel/internal/types"

// Compile-time interface compliance check.
var _ types.SessionStore = (*SessionStore)(nil)
