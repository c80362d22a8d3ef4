package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/loykin/easyd"
	"github.com/loykin/easyd/internal/config"
	"github.com/loykin/easyd/internal/logger"
	"github.com/loykin/easyd/internal/metrics"
	"github.com/loykin/easyd/internal/store/factory"
)

// app holds the persistent flags. Each subcommand opens its own session.
type app struct {
	flags *GlobalFlags
}

// run opens a session, hands it to fn and releases everything afterwards,
// also when fn fails.
func (a *app) run(cmd *cobra.Command, fn func(c *command) error) (err error) {
	cfg, err := config.Load(a.flags.ConfigPath)
	if err != nil {
		return err
	}
	if a.flags.Registry != "" {
		cfg.Registry = a.flags.Registry
	}
	if a.flags.LogLevel != "" {
		cfg.Log.Level = a.flags.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logCloser := logger.Setup(cfg.LoggerConfig())
	defer func() { _ = logCloser.Close() }()

	var reg *prometheus.Registry
	if cfg.Metrics.Textfile != "" {
		if reg, err = metrics.NewRegistry(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		defer func() {
			if werr := metrics.WriteTextfile(cfg.Metrics.Textfile, reg); werr != nil {
				slog.Warn("write metrics textfile", "path", cfg.Metrics.Textfile, "error", werr)
			}
		}()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := factory.NewFromDSN(cfg.Registry)
	if err != nil {
		return fmt.Errorf("open registry %s: %w", redact(cfg.Registry), err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	if err := st.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("prepare registry %s: %w", redact(cfg.Registry), err)
	}

	term := cfg.Terminator()
	return fn(&command{
		ctx:       ctx,
		store:     st,
		out:       cmd.OutOrStdout(),
		spawn:     easyd.Spawn,
		terminate: term.Terminate,
		detect:    identityDetector,
	})
}

// redact hides the password of a postgres URL in messages.
func redact(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	creds, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	if user, _, hasPass := strings.Cut(creds, ":"); hasPass {
		return scheme + "://" + user + ":***@" + host
	}
	return dsn
}
