// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package log threads github.com/luxfi/log's structured Logger through
// every VCR component, and defines the Console capability spec.md §1
// treats as an external collaborator: the core asks yes/no questions and
// reads strings through this interface, never a terminal directly.
package log

import (
	lux "github.com/luxfi/log"
)

// Logger is re-exported so callers importing this package don't also
// need to import github.com/luxfi/log directly.
type Logger = lux.Logger

// NewNoOp returns a Logger that discards everything, the
// zero-configuration default for library consumers that haven't wired up
// their own logger.
func NewNoOp() Logger {
	return lux.NewNoOpLogger()
}

// Console is the user-interaction capability spec.md's design notes
// reduce the original Swing/CLI UI to: a handful of ask/print primitives,
// nothing more. The core never owns a terminal; it calls through this
// interface wherever the original tool would have prompted an operator
// (e.g. "a working directory already exists, overwrite?").
type Console interface {
	// Print writes a line of output.
	Print(line string)

	// AskYesNo prompts for a yes/no answer.
	AskYesNo(prompt string) bool

	// AskString prompts for a free-form string.
	AskString(prompt string) string

	// AskChoice prompts for one of a fixed set of options, returning its
	// index.
	AskChoice(prompt string, options []string) int
}

// NoConsole is a Console that never blocks: every ask defaults to its
// safest answer (no / empty / first option). Used wherever VCR runs
// unattended (tests, daemonized supervisors).
type NoConsole struct{}

func (NoConsole) Print(string)           {}
func (NoConsole) AskYesNo(string) bool   { return false }
func (NoConsole) AskString(string) string { return "" }
func (NoConsole) AskChoice(string, []string) int { return 0 }
