package process

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	ErrValidation       = errors.New("invalid spawn argument")
	ErrSpawn            = errors.New("failed to create process")
	ErrProcessNotFound  = errors.New("process not found")
	ErrIdentityMismatch = errors.New("process does not match expected identity")
	ErrSignal           = errors.New("failed to deliver signal")
)

// Exit statuses used by the detached child when its setup fails before the
// program image is replaced. The parent has already returned by then, so
// these codes are the only trace of the failure.
const (
	ExitSessionFailed  = 70
	ExitRedirectFailed = 71
	ExitExecFailed     = 127
)

// ValidationError reports a spawn argument that cannot be passed to execve.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q contains a NUL byte", e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// SpawnError wraps a failure to create the child process.
type SpawnError struct {
	Executable string
	Err        error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Executable, e.Err)
}

func (e *SpawnError) Is(target error) bool { return target == ErrSpawn }

func (e *SpawnError) Unwrap() error { return e.Err }

// SignalError is returned when the OS refuses to deliver a signal.
type SignalError struct {
	PID    int
	Signal syscall.Signal
	Err    error
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("send %s to pid %d: %v", signalName(e.Signal), e.PID, e.Err)
}

func (e *SignalError) Is(target error) bool { return target == ErrSignal }

func (e *SignalError) Unwrap() error { return e.Err }

func signalName(sig syscall.Signal) string {
	switch sig {
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGKILL:
		return "SIGKILL"
	case 0:
		return "signal 0"
	default:
		return sig.String()
	}
}
