package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/loykin/easyd"
	"github.com/loykin/easyd/internal/detector"
	"github.com/loykin/easyd/internal/metrics"
	"github.com/loykin/easyd/internal/store"
)

// command carries the handlers behind the subcommands. spawn, terminate and
// detect are swappable so handlers can be tested without real processes.
type command struct {
	ctx       context.Context
	store     store.Store
	out       io.Writer
	spawn     func(executable string, args []string, output string) (int, error)
	terminate func(pid int, identity string) (easyd.Outcome, error)
	detect    func(pid int, identity string) detector.Detector
}

func identityDetector(pid int, identity string) detector.Detector {
	return detector.IdentityDetector{PID: pid, Identity: identity}
}

// alive reports whether the recorded pid still runs the daemon's program.
// A pid that cannot be inspected is an error, never "not running".
func (c *command) alive(rec store.Record) (bool, error) {
	if !rec.Running() {
		return false, nil
	}
	d := c.detect(rec.PID, rec.Exe)
	ok, err := d.Alive()
	if err != nil {
		return false, fmt.Errorf("cannot verify daemon [%s] (%s): %w", rec.Name, d.Describe(), err)
	}
	return ok, nil
}

func (c *command) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format+"\n", args...)
}

func (c *command) lookup(name string) (store.Record, error) {
	rec, err := c.store.Get(c.ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return rec, fmt.Errorf("daemon [%s] not found", name)
	}
	return rec, err
}

// Add registers or replaces a daemon. The tracked pid is reset.
func (c *command) Add(f AddFlags) error {
	rec := store.Record{
		Name:   f.Name,
		Exe:    f.Program,
		Args:   f.Args,
		Output: f.Output,
	}.Normalize()
	if err := rec.Validate(); err != nil {
		return err
	}
	if _, err := easyd.BuildArgv(rec.Exe, rec.Args); err != nil {
		return err
	}
	if strings.IndexByte(rec.Output, 0) >= 0 {
		return &easyd.ValidationError{Field: "output", Value: rec.Output}
	}
	if err := c.store.Put(c.ctx, rec); err != nil {
		return fmt.Errorf("save daemon [%s]: %w", rec.Name, err)
	}
	c.printf("Daemon [%s] added", rec.Name)
	return nil
}

// Run starts the daemon and records its pid. A daemon whose recorded pid
// is still alive and running its program is not started twice.
func (c *command) Run(name string) error {
	rec, err := c.lookup(name)
	if err != nil {
		return err
	}
	running, err := c.alive(rec)
	if err != nil {
		return err
	}
	if running {
		return fmt.Errorf("daemon [%s] already running with pid %d", name, rec.PID)
	}

	pid, err := c.spawn(rec.Exe, rec.Args, rec.Output)
	metrics.IncSpawn(err)
	if err != nil {
		return fmt.Errorf("failed to start [%s]: %w", name, err)
	}
	if err := c.store.SetPID(c.ctx, name, pid); err != nil {
		return fmt.Errorf("daemon [%s] started with pid %d but the registry was not updated: %w", name, pid, err)
	}
	slog.Debug("daemon started", "name", name, "pid", pid, "output", rec.Output)
	c.printf("Daemon [%s] started with pid %d", name, pid)
	return nil
}

// Stop terminates the daemon's recorded pid. The pid is forgotten when the
// process is gone afterwards or was never ours (gone already, or recycled
// by another program); it is kept when a signal could not be delivered.
func (c *command) Stop(name string) error {
	rec, err := c.lookup(name)
	if err != nil {
		return err
	}
	if !rec.Running() {
		return fmt.Errorf("daemon [%s] not running", name)
	}

	start := time.Now()
	outcome, err := c.terminate(rec.PID, rec.Exe)
	metrics.ObserveTerminate(outcomeLabel(outcome, err), time.Since(start))

	switch {
	case err == nil:
		if cerr := c.clearPID(name); cerr != nil {
			return cerr
		}
		c.printf("Daemon [%s] %s (pid %d)", name, outcome, rec.PID)
		return nil
	case errors.Is(err, easyd.ErrProcessNotFound):
		if cerr := c.clearPID(name); cerr != nil {
			return cerr
		}
		c.printf("Daemon [%s] had already exited (pid %d)", name, rec.PID)
		return nil
	case errors.Is(err, easyd.ErrIdentityMismatch):
		if cerr := c.clearPID(name); cerr != nil {
			return cerr
		}
		return fmt.Errorf("daemon [%s]: pid %d now runs another program, nothing was signalled: %w", name, rec.PID, err)
	default:
		return fmt.Errorf("failed to stop [%s]: %w", name, err)
	}
}

func (c *command) clearPID(name string) error {
	if err := c.store.SetPID(c.ctx, name, 0); err != nil {
		return fmt.Errorf("clear pid of [%s]: %w", name, err)
	}
	return nil
}

func outcomeLabel(o easyd.Outcome, err error) string {
	switch {
	case err == nil:
		return o.String()
	case errors.Is(err, easyd.ErrProcessNotFound):
		return "not_found"
	case errors.Is(err, easyd.ErrIdentityMismatch):
		return "mismatch"
	default:
		return "error"
	}
}

// Delete removes the daemon from the registry. A running daemon is only
// removed with --force and is left running.
func (c *command) Delete(name string, f DeleteFlags) error {
	rec, err := c.lookup(name)
	if err != nil {
		return err
	}
	if !f.Force {
		running, err := c.alive(rec)
		if err != nil {
			return fmt.Errorf("%w; use --force to delete anyway", err)
		}
		if running {
			return fmt.Errorf("daemon [%s] is running with pid %d; stop it first or use --force", name, rec.PID)
		}
	}
	if err := c.store.Delete(c.ctx, name); err != nil {
		return fmt.Errorf("delete daemon [%s]: %w", name, err)
	}
	c.printf("Daemon [%s] deleted", name)
	return nil
}

type listEntry struct {
	Name      string             `json:"name"`
	PID       int                `json:"pid"`
	Status    detector.Status    `json:"status"`
	Program   string             `json:"program"`
	Args      []string           `json:"args"`
	Output    string             `json:"output"`
	Resources *metrics.Resources `json:"resources,omitempty"`
}

// List prints daemons with a tracked pid, or all of them with --all.
func (c *command) List(f ListFlags) error {
	recs, err := c.store.List(c.ctx)
	if err != nil {
		return fmt.Errorf("list daemons: %w", err)
	}

	entries := make([]listEntry, 0, len(recs))
	for _, rec := range recs {
		if !f.All && !rec.Running() {
			continue
		}
		e := listEntry{
			Name:    rec.Name,
			PID:     rec.PID,
			Status:  detector.Check(rec.PID, rec.Exe),
			Program: rec.Exe,
			Args:    rec.Args,
			Output:  rec.Output,
		}
		metrics.SetDaemonUp(rec.Name, e.Status == detector.StatusRunning)
		if e.Status == detector.StatusRunning {
			if r, err := metrics.Sample(rec.PID); err == nil {
				e.Resources = &r
				metrics.SetDaemonRSS(rec.Name, r.MemoryRSS)
			}
		}
		entries = append(entries, e)
	}

	if f.JSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	if len(entries) == 0 {
		c.printf("No daemons")
		return nil
	}

	c.printf("%s", renderDaemons(entries))
	return nil
}
