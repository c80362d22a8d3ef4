package process

import (
	"errors"
	"syscall"
	"testing"
	"time"
)

type fakeOS struct {
	cmdline  string
	cmdErr   error
	results  map[syscall.Signal]error
	zombie   bool
	sent     []syscall.Signal
	slept    []time.Duration
	readPIDs []int
}

func (f *fakeOS) terminator(grace time.Duration) Terminator {
	return Terminator{
		GracePeriod: grace,
		cmdline: func(pid int) (string, error) {
			f.readPIDs = append(f.readPIDs, pid)
			return f.cmdline, f.cmdErr
		},
		signal: func(pid int, sig syscall.Signal) error {
			f.sent = append(f.sent, sig)
			return f.results[sig]
		},
		zombie: func(int) bool { return f.zombie },
		sleep:  func(d time.Duration) { f.slept = append(f.slept, d) },
	}
}

func signalsEqual(got, want []syscall.Signal) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestTerminateGracefulExitSkipsKill(t *testing.T) {
	f := &fakeOS{cmdline: "/bin/sleep\x0030\x00", results: map[syscall.Signal]error{0: syscall.ESRCH}}
	out, err := f.terminator(time.Second).Terminate(42, "/bin/sleep")
	if err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if out != OutcomeStopped {
		t.Fatalf("expected stopped, got %v", out)
	}
	if !signalsEqual(f.sent, []syscall.Signal{syscall.SIGTERM, 0}) {
		t.Fatalf("unexpected signals: %v", f.sent)
	}
	if len(f.slept) != 1 || f.slept[0] != time.Second {
		t.Fatalf("expected one grace wait of 1s, got %v", f.slept)
	}
}

func TestTerminateEscalatesToKill(t *testing.T) {
	f := &fakeOS{cmdline: "/usr/bin/stubborn", results: map[syscall.Signal]error{}}
	out, err := f.terminator(0).Terminate(42, "stubborn")
	if err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if out != OutcomeKilled {
		t.Fatalf("expected killed, got %v", out)
	}
	if !signalsEqual(f.sent, []syscall.Signal{syscall.SIGTERM, 0, syscall.SIGKILL}) {
		t.Fatalf("unexpected signals: %v", f.sent)
	}
	if len(f.slept) != 1 || f.slept[0] != DefaultGracePeriod {
		t.Fatalf("zero grace should fall back to default, got %v", f.slept)
	}
}

func TestTerminateZombieAfterGraceCountsAsStopped(t *testing.T) {
	f := &fakeOS{cmdline: "/bin/sleep", results: map[syscall.Signal]error{}, zombie: true}
	out, err := f.terminator(time.Millisecond).Terminate(7, "/bin/sleep")
	if err != nil || out != OutcomeStopped {
		t.Fatalf("expected stopped,nil got %v,%v", out, err)
	}
	if !signalsEqual(f.sent, []syscall.Signal{syscall.SIGTERM, 0}) {
		t.Fatalf("kill must not be sent to a zombie: %v", f.sent)
	}
}

func TestTerminateNotFoundSendsNothing(t *testing.T) {
	f := &fakeOS{cmdErr: ErrProcessNotFound}
	_, err := f.terminator(time.Millisecond).Terminate(999999, "anything")
	if !errors.Is(err, ErrProcessNotFound) {
		t.Fatalf("expected ErrProcessNotFound, got %v", err)
	}
	if errors.Is(err, ErrSignal) {
		t.Fatalf("not found must never be a signal error")
	}
	if len(f.sent) != 0 || len(f.slept) != 0 {
		t.Fatalf("no signal or wait expected, got %v %v", f.sent, f.slept)
	}
}

func TestTerminateNonPositivePID(t *testing.T) {
	for _, pid := range []int{0, -1} {
		f := &fakeOS{cmdline: "x"}
		_, err := f.terminator(time.Millisecond).Terminate(pid, "x")
		if !errors.Is(err, ErrProcessNotFound) {
			t.Fatalf("pid %d: expected ErrProcessNotFound, got %v", pid, err)
		}
		if len(f.readPIDs) != 0 || len(f.sent) != 0 {
			t.Fatalf("pid %d: process table must not be consulted", pid)
		}
	}
}

func TestTerminateIdentityMismatchSendsNothing(t *testing.T) {
	f := &fakeOS{cmdline: "/usr/sbin/sshd\x00-D\x00"}
	_, err := f.terminator(time.Millisecond).Terminate(42, "/bin/sleep")
	if !errors.Is(err, ErrIdentityMismatch) {
		t.Fatalf("expected ErrIdentityMismatch, got %v", err)
	}
	if len(f.sent) != 0 {
		t.Fatalf("no signal may be sent on mismatch, got %v", f.sent)
	}
}

func TestTerminateSigtermRejected(t *testing.T) {
	f := &fakeOS{cmdline: "/bin/sleep", results: map[syscall.Signal]error{syscall.SIGTERM: syscall.EPERM}}
	_, err := f.terminator(time.Millisecond).Terminate(1, "/bin/sleep")
	if !errors.Is(err, ErrSignal) {
		t.Fatalf("expected ErrSignal, got %v", err)
	}
	var se *SignalError
	if !errors.As(err, &se) || se.Signal != syscall.SIGTERM || !errors.Is(err, syscall.EPERM) {
		t.Fatalf("expected SIGTERM SignalError wrapping EPERM, got %#v", err)
	}
	if len(f.slept) != 0 {
		t.Fatalf("grace period must not start after a failed SIGTERM")
	}
}

func TestTerminateSigkillRejected(t *testing.T) {
	f := &fakeOS{cmdline: "/bin/sleep", results: map[syscall.Signal]error{syscall.SIGKILL: syscall.EPERM}}
	_, err := f.terminator(time.Millisecond).Terminate(1, "/bin/sleep")
	var se *SignalError
	if !errors.As(err, &se) || se.Signal != syscall.SIGKILL {
		t.Fatalf("expected SIGKILL SignalError, got %v", err)
	}
}

func TestTerminateProbeFailureIsGeneric(t *testing.T) {
	f := &fakeOS{cmdline: "/bin/sleep", results: map[syscall.Signal]error{0: syscall.EPERM}}
	_, err := f.terminator(time.Millisecond).Terminate(1, "/bin/sleep")
	if err == nil || errors.Is(err, ErrSignal) || errors.Is(err, ErrProcessNotFound) {
		t.Fatalf("expected generic probe error, got %v", err)
	}
	if !errors.Is(err, syscall.EPERM) {
		t.Fatalf("probe error should wrap EPERM: %v", err)
	}
	if !signalsEqual(f.sent, []syscall.Signal{syscall.SIGTERM, 0}) {
		t.Fatalf("unexpected signals: %v", f.sent)
	}
}

func TestStateAndOutcomeStrings(t *testing.T) {
	states := map[State]string{
		StateChecking:   "checking",
		StateSignalSent: "signal_sent",
		StateWaiting:    "waiting",
		StateEscalating: "escalating",
		StateDone:       "done",
		StateFailed:     "failed",
	}
	for s, want := range states {
		if s.String() != want {
			t.Fatalf("state %d: got %q want %q", int(s), s.String(), want)
		}
	}
	if OutcomeStopped.String() != "stopped" || OutcomeKilled.String() != "killed" || OutcomeNone.String() != "none" {
		t.Fatalf("unexpected outcome strings")
	}
}
