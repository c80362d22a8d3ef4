// Package storetest holds the behaviour every store.Store backend must share.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/loykin/easyd/internal/store"
)

// Run exercises s against the registry contract. s must start empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	// idempotent
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema twice: %v", err)
	}

	if _, err := s.Get(ctx, "web"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}
	if recs, err := s.List(ctx); err != nil || len(recs) != 0 {
		t.Fatalf("expected empty list, got %v %v", recs, err)
	}

	web := store.Record{Name: "web", Exe: "/bin/sleep", Args: []string{"30", "with space"}, Output: "/tmp/web.log"}
	if err := s.Put(ctx, web); err != nil {
		t.Fatalf("put web: %v", err)
	}
	api := store.Record{Name: "api", Exe: "/usr/bin/api", Output: store.DevNull}
	if err := s.Put(ctx, api); err != nil {
		t.Fatalf("put api: %v", err)
	}

	got, err := s.Get(ctx, "web")
	if err != nil {
		t.Fatalf("get web: %v", err)
	}
	if got.Exe != web.Exe || got.Output != web.Output || got.PID != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if len(got.Args) != 2 || got.Args[0] != "30" || got.Args[1] != "with space" {
		t.Fatalf("args not preserved: %#v", got.Args)
	}
	if got.UpdatedAt.IsZero() {
		t.Fatalf("UpdatedAt should be set")
	}

	if err := s.SetPID(ctx, "web", 4242); err != nil {
		t.Fatalf("set pid: %v", err)
	}
	got, err = s.Get(ctx, "web")
	if err != nil || got.PID != 4242 {
		t.Fatalf("pid not stored: %+v %v", got, err)
	}
	if got.Exe != web.Exe || len(got.Args) != 2 {
		t.Fatalf("SetPID must not touch other fields: %+v", got)
	}
	if err := s.SetPID(ctx, "missing", 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown name, got %v", err)
	}

	recs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 || recs[0].Name != "api" || recs[1].Name != "web" {
		t.Fatalf("expected [api web], got %+v", recs)
	}
	if recs[0].Args == nil || len(recs[0].Args) != 0 {
		t.Fatalf("empty args should round trip as empty slice, got %#v", recs[0].Args)
	}

	// Put replaces the whole record.
	web2 := store.Record{Name: "web", Exe: "/bin/sleep", Args: []string{"60"}, Output: store.DevNull}
	if err := s.Put(ctx, web2); err != nil {
		t.Fatalf("replace web: %v", err)
	}
	got, _ = s.Get(ctx, "web")
	if got.PID != 0 || len(got.Args) != 1 || got.Args[0] != "60" || got.Output != store.DevNull {
		t.Fatalf("record not replaced: %+v", got)
	}

	if err := s.Delete(ctx, "web"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "web"); err != nil {
		t.Fatalf("delete must be idempotent: %v", err)
	}
	if _, err := s.Get(ctx, "web"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
