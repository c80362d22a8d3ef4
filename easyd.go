// Package easyd starts programs as detached daemons and stops them with an
// identity check followed by SIGTERM and, after a grace period, SIGKILL.
//
// A program that calls Spawn must call RunChildIfRequested first thing in
// main (and in TestMain), because the child side of Spawn runs there.
package easyd

import "github.com/loykin/easyd/internal/process"

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type (
	Outcome         = process.Outcome
	State           = process.State
	Terminator      = process.Terminator
	ValidationError = process.ValidationError
	SpawnError      = process.SpawnError
	SignalError     = process.SignalError
)

const (
	OutcomeNone    = process.OutcomeNone
	OutcomeStopped = process.OutcomeStopped
	OutcomeKilled  = process.OutcomeKilled

	DevNull            = process.DevNull
	DefaultGracePeriod = process.DefaultGracePeriod

	ExitSessionFailed  = process.ExitSessionFailed
	ExitRedirectFailed = process.ExitRedirectFailed
	ExitExecFailed     = process.ExitExecFailed
)

var (
	ErrValidation       = process.ErrValidation
	ErrSpawn            = process.ErrSpawn
	ErrProcessNotFound  = process.ErrProcessNotFound
	ErrIdentityMismatch = process.ErrIdentityMismatch
	ErrSignal           = process.ErrSignal
)

// Spawn starts executable with args as a daemon in its own session, with
// stdin on the null device and stdout/stderr appended to output (DevNull
// discards). It returns the daemon's pid.
func Spawn(executable string, args []string, output string) (int, error) {
	return process.Spawn(executable, args, output)
}

// Terminate stops pid if its command line still contains identity, waiting
// DefaultGracePeriod before escalating to SIGKILL.
func Terminate(pid int, identity string) (Outcome, error) {
	return process.Terminate(pid, identity)
}

// Identify reports whether pid is alive and running identity, without
// signalling it.
func Identify(pid int, identity string) error { return process.Identify(pid, identity) }

// BuildArgv validates and assembles the argument vector Spawn would execute.
func BuildArgv(executable string, args []string) ([]string, error) {
	return process.BuildArgv(executable, args)
}

// RunChildIfRequested completes a Spawn in the child process. It returns
// immediately in any other process.
func RunChildIfRequested() { process.RunChildIfRequested() }
