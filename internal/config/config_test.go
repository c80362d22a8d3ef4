package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/loykin/easyd/internal/logger"
	"github.com/loykin/easyd/internal/process"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "easyd.toml")
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatalf("write toml: %v", err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Registry != "easy_daemon_config.toml" {
		t.Fatalf("registry = %q", c.Registry)
	}
	if c.Stop.GracePeriod != process.DefaultGracePeriod {
		t.Fatalf("grace = %s", c.Stop.GracePeriod)
	}
	if c.Log.Level != "info" || c.Log.File != "" || c.Log.Color != logger.ColorAuto {
		t.Fatalf("unexpected log defaults: %+v", c.Log)
	}
	if c.Log.MaxSizeMB != logger.DefaultMaxSizeMB {
		t.Fatalf("max size = %d", c.Log.MaxSizeMB)
	}
	if c.Metrics.Textfile != "" {
		t.Fatalf("textfile = %q", c.Metrics.Textfile)
	}
}

func TestLoadFile(t *testing.T) {
	p := writeConfig(t, `
registry = "sqlite:///var/lib/easyd/registry.db"

[stop]
grace_period = "500ms"

[log]
level = "debug"
file = "/tmp/easyd.log"
color = "never"
max_backups = 9

[metrics]
textfile = "/tmp/easyd.prom"
`)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Registry != "sqlite:///var/lib/easyd/registry.db" {
		t.Fatalf("registry = %q", c.Registry)
	}
	if c.Stop.GracePeriod != 500*time.Millisecond {
		t.Fatalf("grace = %s", c.Stop.GracePeriod)
	}
	if c.Log.Level != "debug" || c.Log.File != "/tmp/easyd.log" || c.Log.Color != "never" || c.Log.MaxBackups != 9 {
		t.Fatalf("unexpected log config: %+v", c.Log)
	}
	if c.Metrics.Textfile != "/tmp/easyd.prom" {
		t.Fatalf("textfile = %q", c.Metrics.Textfile)
	}
	if got := c.Terminator().GracePeriod; got != 500*time.Millisecond {
		t.Fatalf("terminator grace = %s", got)
	}
	lc := c.LoggerConfig()
	if lc.Level != slog.LevelDebug || lc.File.Path != "/tmp/easyd.log" || lc.File.MaxBackups != 9 {
		t.Fatalf("unexpected logger config: %+v", lc)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	p := writeConfig(t, `
registry = "from-file.toml"
[stop]
grace_period = "5s"
`)
	t.Setenv("EASYD_REGISTRY", "postgres://u@h/db")
	t.Setenv("EASYD_STOP_GRACE_PERIOD", "3s")
	t.Setenv("EASYD_LOG_LEVEL", "warn")
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Registry != "postgres://u@h/db" {
		t.Fatalf("registry = %q", c.Registry)
	}
	if c.Stop.GracePeriod != 3*time.Second {
		t.Fatalf("grace = %s", c.Stop.GracePeriod)
	}
	if c.Log.Level != "warn" {
		t.Fatalf("level = %q", c.Log.Level)
	}
}

func TestLoadPicksUpDefaultFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, DefaultFile), []byte(`registry = "local.toml"`), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Registry != "local.toml" {
		t.Fatalf("registry = %q", c.Registry)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
	if _, err := Load(writeConfig(t, "registry = [")); err == nil {
		t.Fatalf("expected parse error")
	}

	cases := map[string]string{
		"negative grace": "[stop]\ngrace_period = \"-1s\"\n",
		"bad level":      "[log]\nlevel = \"loud\"\n",
		"bad color":      "[log]\ncolor = \"sometimes\"\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, data))
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), "log.") && !strings.Contains(err.Error(), "stop.") {
				t.Fatalf("error does not name the key: %v", err)
			}
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+): it changes the working directory
// and restores the previous one when the test finishes.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Errorf("restore working directory: %v", err)
		}
	})
}
