package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestFileWriter_Defaults(t *testing.T) {
	if w := (FileConfig{}).Writer(); w != nil {
		t.Fatalf("expected nil writer without path")
	}
	w := FileConfig{Path: "x.log"}.Writer()
	l, ok := w.(*lj.Logger)
	if !ok {
		t.Fatalf("writer is not lumberjack.Logger: %T", w)
	}
	if l.MaxSize != 10 || l.MaxBackups != 3 || l.MaxAge != 7 {
		t.Fatalf("unexpected defaults: size=%d backups=%d age=%d", l.MaxSize, l.MaxBackups, l.MaxAge)
	}
	w = FileConfig{Path: "y.log", MaxSizeMB: 1, MaxBackups: 9, MaxAgeDays: 11, Compress: true}.Writer()
	l = w.(*lj.Logger)
	if l.MaxSize != 1 || l.MaxBackups != 9 || l.MaxAge != 11 || !l.Compress {
		t.Fatalf("unexpected overrides: %+v", l)
	}
}

func TestNew_PlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	l, closer := New(&buf, Config{Level: slog.LevelInfo})
	defer func() { _ = closer.Close() }()
	l.Debug("hidden")
	l.With("pid", 42).Info("sent SIGTERM, waiting")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked at info level: %q", out)
	}
	if !strings.Contains(out, "pid=42") || !strings.Contains(out, "sent SIGTERM") {
		t.Fatalf("unexpected output: %q", out)
	}
	if strings.Contains(out, "\033[") {
		t.Fatalf("unexpected color codes for a buffer: %q", out)
	}
}

func TestNew_ColorAlwaysKeepsColorOnDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(&buf, Config{Level: slog.LevelDebug, Color: ColorAlways})
	l.With("pid", 7).Warn("pid does not match target")
	out := buf.String()
	if !strings.Contains(out, "\033[33mWARN\033[0m") {
		t.Fatalf("expected yellow WARN prefix, got %q", out)
	}
	if !strings.Contains(out, "pid=7") {
		t.Fatalf("missing attr: %q", out)
	}
}

func TestNew_FanOutToFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "easyd.log")
	l, closer := New(&buf, Config{Level: slog.LevelInfo, Color: ColorNever, File: FileConfig{Path: path}})
	l.Info("spawned", "name", "web")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, out := range []string{buf.String(), string(b)} {
		if !strings.Contains(out, "spawned") || !strings.Contains(out, "name=web") {
			t.Fatalf("record missing from sink: %q", out)
		}
	}
}
