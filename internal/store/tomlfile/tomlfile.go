package tomlfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"github.com/loykin/easyd/internal/store"
)

// DefaultPath is the registry file used when nothing else is configured.
const DefaultPath = "easy_daemon_config.toml"

const lockRetryDelay = 25 * time.Millisecond

// File implements store.Store on a single TOML document:
//
//	[daemons.web]
//	pid = 0
//	exe = "/usr/bin/web"
//	args = ["--port", "8080"]
//	output = "/dev/null"
//
// Every call takes an advisory lock on "<path>.lock" so concurrent CLI runs
// never interleave their read-modify-write cycles. mu serializes goroutines
// sharing one File; the flock handle does not count nested locks.
type File struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

type document struct {
	Daemons map[string]entry `toml:"daemons"`
}

type entry struct {
	PID       int       `toml:"pid"`
	Exe       string    `toml:"exe"`
	Args      []string  `toml:"args"`
	Output    string    `toml:"output"`
	UpdatedAt time.Time `toml:"updated_at"`
}

// New returns a registry stored at path. The file is created on first write.
func New(path string) (*File, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty registry path")
	}
	return &File{path: p, lock: flock.New(p + ".lock")}, nil
}

// Path returns the registry file location.
func (f *File) Path() string { return f.path }

// EnsureSchema makes sure the parent directory exists and that an existing
// file parses.
func (f *File) EnsureSchema(ctx context.Context) error {
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create registry dir: %w", err)
		}
	}
	return f.read(ctx, func(document) error { return nil })
}

func (f *File) Close() error { return nil }

func (f *File) Put(ctx context.Context, rec store.Record) error {
	return f.update(ctx, func(doc *document) error {
		args := rec.Args
		if args == nil {
			args = []string{}
		}
		doc.Daemons[rec.Name] = entry{
			PID:       rec.PID,
			Exe:       rec.Exe,
			Args:      args,
			Output:    rec.Output,
			UpdatedAt: time.Now().UTC(),
		}
		return nil
	})
}

func (f *File) Get(ctx context.Context, name string) (store.Record, error) {
	var out store.Record
	err := f.read(ctx, func(doc document) error {
		e, ok := doc.Daemons[name]
		if !ok {
			return fmt.Errorf("%s: %w", name, store.ErrNotFound)
		}
		out = toRecord(name, e)
		return nil
	})
	return out, err
}

func (f *File) List(ctx context.Context) ([]store.Record, error) {
	var out []store.Record
	err := f.read(ctx, func(doc document) error {
		out = make([]store.Record, 0, len(doc.Daemons))
		for name, e := range doc.Daemons {
			out = append(out, toRecord(name, e))
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return out, err
}

func (f *File) SetPID(ctx context.Context, name string, pid int) error {
	return f.update(ctx, func(doc *document) error {
		e, ok := doc.Daemons[name]
		if !ok {
			return fmt.Errorf("%s: %w", name, store.ErrNotFound)
		}
		e.PID = pid
		e.UpdatedAt = time.Now().UTC()
		doc.Daemons[name] = e
		return nil
	})
}

func (f *File) Delete(ctx context.Context, name string) error {
	return f.update(ctx, func(doc *document) error {
		delete(doc.Daemons, name)
		return nil
	})
}

func toRecord(name string, e entry) store.Record {
	args := e.Args
	if args == nil {
		args = []string{}
	}
	output := e.Output
	if output == "" {
		output = store.DevNull
	}
	return store.Record{
		Name:      name,
		PID:       e.PID,
		Exe:       e.Exe,
		Args:      args,
		Output:    output,
		UpdatedAt: e.UpdatedAt,
	}
}

func (f *File) read(ctx context.Context, fn func(document) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ok, err := f.lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock registry: %w", err)
	}
	if !ok {
		return fmt.Errorf("lock registry %s: not acquired", f.path)
	}
	defer func() { _ = f.lock.Unlock() }()
	doc, err := f.load()
	if err != nil {
		return err
	}
	return fn(doc)
}

func (f *File) update(ctx context.Context, fn func(*document) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ok, err := f.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock registry: %w", err)
	}
	if !ok {
		return fmt.Errorf("lock registry %s: not acquired", f.path)
	}
	defer func() { _ = f.lock.Unlock() }()
	doc, err := f.load()
	if err != nil {
		return err
	}
	if err := fn(&doc); err != nil {
		return err
	}
	return f.save(doc)
}

// load treats a missing file as an empty registry. A file that does not
// parse is an error rather than silently starting over.
func (f *File) load() (document, error) {
	doc := document{Daemons: map[string]entry{}}
	// #nosec G304 -- registry path comes from configuration
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return doc, fmt.Errorf("read registry: %w", err)
	}
	if err := toml.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("parse registry %s: %w", f.path, err)
	}
	if doc.Daemons == nil {
		doc.Daemons = map[string]entry{}
	}
	return doc, nil
}

// save writes a sibling temp file and renames it over the registry.
func (f *File) save(doc document) error {
	b, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write registry: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write registry: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace registry: %w", err)
	}
	return nil
}
