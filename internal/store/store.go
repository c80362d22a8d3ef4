package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DevNull is the default output target of a record.
const DevNull = "/dev/null"

// ErrNotFound is returned when no daemon is registered under a name.
var ErrNotFound = errors.New("daemon not found")

// Record is a registered daemon. Name is unique across the registry.
// PID is the last spawned process id; 0 means no instance is tracked.
// Output is DevNull or a log file path that receives stdout and stderr.
type Record struct {
	Name      string
	PID       int
	Exe       string
	Args      []string
	Output    string
	UpdatedAt time.Time
}

// Running reports whether the record tracks a process id.
func (r Record) Running() bool { return r.PID != 0 }

// Normalize applies the defaults used when a daemon is added.
func (r Record) Normalize() Record {
	r.Name = strings.TrimSpace(r.Name)
	if r.Output == "" {
		r.Output = DevNull
	}
	if r.Args == nil {
		r.Args = []string{}
	}
	return r
}

// Validate checks the fields every backend relies on.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("daemon name is required")
	}
	if strings.TrimSpace(r.Exe) == "" {
		return fmt.Errorf("daemon %q requires a program", r.Name)
	}
	if r.PID < 0 {
		return fmt.Errorf("daemon %q has negative pid %d", r.Name, r.PID)
	}
	return nil
}

// Store persists the daemon registry. Implementations must be safe to use
// from several processes at once (two CLI invocations racing).
type Store interface {
	EnsureSchema(ctx context.Context) error
	// Put inserts or replaces the record with the same name.
	Put(ctx context.Context, rec Record) error
	// Get returns ErrNotFound when name is not registered.
	Get(ctx context.Context, name string) (Record, error)
	// List returns all records ordered by name.
	List(ctx context.Context) ([]Record, error)
	// SetPID updates only the tracked pid; ErrNotFound when name is unknown.
	SetPID(ctx context.Context, name string, pid int) error
	// Delete removes name; deleting an unknown name is not an error.
	Delete(ctx context.Context, name string) error
	Close() error
}

// EncodeArgs serializes an argument list for SQL backends.
func EncodeArgs(args []string) (string, error) {
	if args == nil {
		args = []string{}
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeArgs is the inverse of EncodeArgs. An empty column decodes to no args.
func DecodeArgs(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return []string{}, nil
	}
	var args []string
	if err := json.Unmarshal([]byte(s), &args); err != nil {
		return nil, fmt.Errorf("decode args: %w", err)
	}
	if args == nil {
		args = []string{}
	}
	return args, nil
}
