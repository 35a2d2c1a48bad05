package core

import "strings"

// ModuleID uniquely identifies a module, namespaced by dots
// (e.g. "channel.telegram", "provider.gemini", "store.sqlite").
type ModuleID string

// Namespace returns the portion of the ID before the last dot, or the
// whole ID when it has no namespace.
func (id ModuleID) Namespace() string {
	s := string(id)
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[:i]
	}
	return s
}

// Name returns the portion of the ID after the last dot.
func (id ModuleID) Name() string {
	s := string(id)
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return s
}

// ModuleInfo describes a registered module: its identity and constructor.
type ModuleInfo struct {
	// ID is the unique, namespaced module identifier.
	ID ModuleID

	// New returns a fresh, unconfigured instance of the module.
	New func() Module
}

// Module is the minimal interface every module implements. Lifecycle
// behavior is added by implementing the optional interfaces in
// lifecycle.go (Configurable, Provisioner, Validator, Starter, Stopper).
type Module interface {
	ModuleInfo() ModuleInfo
}
