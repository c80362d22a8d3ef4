package factory

import (
	"errors"
	"strings"

	"github.com/loykin/easyd/internal/store"
	pg "github.com/loykin/easyd/internal/store/postgres"
	sq "github.com/loykin/easyd/internal/store/sqlite"
	"github.com/loykin/easyd/internal/store/tomlfile"
)

// NewFromDSN selects a registry backend from dsn.
// Supported:
//   - toml:     "toml://<path>", any path ending in ".toml", or empty (DefaultPath)
//   - sqlite:   "sqlite://<path>" or any other bare path
//   - postgres: DSN starting with "postgres://" or "postgresql://"
func NewFromDSN(dsn string) (store.Store, error) {
	d := strings.TrimSpace(dsn)
	ld := strings.ToLower(d)
	switch {
	case d == "":
		return tomlfile.New(tomlfile.DefaultPath)
	case strings.HasPrefix(ld, "postgres://") || strings.HasPrefix(ld, "postgresql://"):
		return pg.New(d)
	case strings.HasPrefix(ld, "sqlite://"):
		return sq.New(d[len("sqlite://"):])
	case strings.HasPrefix(ld, "toml://"):
		path := d[len("toml://"):]
		if strings.TrimSpace(path) == "" {
			return nil, errors.New("empty toml registry path")
		}
		return tomlfile.New(path)
	case strings.HasSuffix(ld, ".toml"):
		return tomlfile.New(d)
	}
	// default to sqlite path
	return sq.New(d)
}
