package process

import (
	"errors"
	"fmt"
	"log/slog"
	"syscall"
	"time"
)

// DefaultGracePeriod is how long Terminate waits between SIGTERM and the
// liveness probe that decides whether to escalate to SIGKILL.
const DefaultGracePeriod = 2 * time.Second

// State is a stage of the termination protocol.
type State int

const (
	StateChecking State = iota
	StateSignalSent
	StateWaiting
	StateEscalating
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateSignalSent:
		return "signal_sent"
	case StateWaiting:
		return "waiting"
	case StateEscalating:
		return "escalating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome tells how a successful Terminate ended.
type Outcome int

const (
	OutcomeNone    Outcome = iota
	OutcomeStopped         // exited on SIGTERM within the grace period
	OutcomeKilled          // still alive after the grace period, SIGKILL delivered
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStopped:
		return "stopped"
	case OutcomeKilled:
		return "killed"
	default:
		return "none"
	}
}

// Terminator runs the identity-checked SIGTERM/SIGKILL protocol.
// The zero value uses DefaultGracePeriod and the operating system.
type Terminator struct {
	GracePeriod time.Duration

	// test seams; nil means the real OS call
	cmdline func(pid int) (string, error)
	signal  func(pid int, sig syscall.Signal) error
	zombie  func(pid int) bool
	sleep   func(time.Duration)
}

// DefaultTerminator is used by Terminate.
var DefaultTerminator = Terminator{GracePeriod: DefaultGracePeriod}

// Terminate stops pid with DefaultTerminator. See Terminator.Terminate.
func Terminate(pid int, identity string) (Outcome, error) {
	return DefaultTerminator.Terminate(pid, identity)
}

// Terminate verifies that pid still runs a program whose command line
// contains identity, sends SIGTERM, waits for the grace period and sends
// SIGKILL if the process is still there. Each stage runs at most once.
//
// Errors: ErrProcessNotFound when pid has no live process, ErrIdentityMismatch
// when the pid was recycled for something else (no signal is sent), and a
// *SignalError when the OS rejects a signal.
func (t Terminator) Terminate(pid int, identity string) (Outcome, error) {
	state := StateChecking
	log := slog.With("pid", pid)
	enter := func(next State) {
		log.Debug("terminate state", "from", state.String(), "to", next.String())
		state = next
	}
	fail := func(err error) (Outcome, error) {
		enter(StateFailed)
		return OutcomeNone, err
	}

	cmdline, err := t.readCmdline(pid)
	if err != nil {
		return fail(err)
	}
	if err := matchIdentity(pid, cmdline, identity); err != nil {
		log.Warn("pid does not match target", "identity", identity)
		return fail(err)
	}

	if err := t.kill(pid, syscall.SIGTERM); err != nil {
		return fail(&SignalError{PID: pid, Signal: syscall.SIGTERM, Err: err})
	}
	enter(StateSignalSent)

	grace := t.grace()
	log.Info("sent SIGTERM, waiting", "grace", grace)
	enter(StateWaiting)
	t.wait(grace)

	enter(StateEscalating)
	err = t.kill(pid, 0)
	switch {
	case errors.Is(err, syscall.ESRCH):
		log.Info("process stopped")
		enter(StateDone)
		return OutcomeStopped, nil
	case err != nil:
		return fail(fmt.Errorf("check pid %d: %w", pid, err))
	case t.isZombie(pid):
		// exited but not yet reaped by its parent
		log.Info("process stopped")
		enter(StateDone)
		return OutcomeStopped, nil
	}

	if err := t.kill(pid, syscall.SIGKILL); err != nil {
		return fail(&SignalError{PID: pid, Signal: syscall.SIGKILL, Err: err})
	}
	log.Info("sent SIGKILL")
	enter(StateDone)
	return OutcomeKilled, nil
}

func (t Terminator) grace() time.Duration {
	if t.GracePeriod <= 0 {
		return DefaultGracePeriod
	}
	return t.GracePeriod
}

func (t Terminator) readCmdline(pid int) (string, error) {
	if pid <= 0 {
		// 0 and negatives address process groups; never a tracked daemon
		return "", fmt.Errorf("pid %d: %w", pid, ErrProcessNotFound)
	}
	if t.cmdline != nil {
		return t.cmdline(pid)
	}
	return readCmdline(pid)
}

func (t Terminator) kill(pid int, sig syscall.Signal) error {
	if t.signal != nil {
		return t.signal(pid, sig)
	}
	return killProcess(pid, sig)
}

func (t Terminator) isZombie(pid int) bool {
	if t.zombie != nil {
		return t.zombie(pid)
	}
	return isZombie(pid)
}

func (t Terminator) wait(d time.Duration) {
	if t.sleep != nil {
		t.sleep(d)
		return
	}
	time.Sleep(d)
}
