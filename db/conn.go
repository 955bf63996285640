// Package db opens the configured persistence backend
package db

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jovaandres/rest-api-ev/internal/store"
	"github.com/jovaandres/rest-api-ev/internal/store/gormstore"
	"github.com/jovaandres/rest-api-ev/internal/store/memstore"
	"github.com/jovaandres/rest-api-ev/internal/store/mongostore"
	"github.com/jovaandres/rest-api-ev/internal/store/pgstore"
	"github.com/jovaandres/rest-api-ev/pkg/util"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
)

var ErrUnknownBackend = errors.New("unknown store backend")

// Open returns the store selected by store.backend. Schemas and indexes are
// brought up to date before it returns.
func Open(ctx context.Context) (store.Store, error) {
	backend := viper.GetString("store.backend")
	dsn := viper.GetString("store.dsn")

	switch backend {
	case "memory":
		return memstore.New(), nil
	case "sqlite":
		if err := checkSQLiteMounted(dsn); err != nil {
			return nil, err
		}

		s, err := gormstore.Open(sqlite.Open(dsn))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite database, %w", err)
		}
		return s, nil
	case "gorm-postgres":
		s, err := gormstore.Open(postgres.Open(dsn))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL database, %w", err)
		}
		return s, nil
	case "postgres":
		s, err := pgstore.Open(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL database, %w", err)
		}
		return s, nil
	case "mongo":
		s, err := mongostore.Open(ctx, viper.GetString("mongo.uri"), viper.GetString("mongo.database"))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MongoDB database, %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// If running in a docker container don't allow the sqlite file to be created.
// The host should instead mount it using volumes
func checkSQLiteMounted(path string) error {
	if path == ":memory:" || !util.InContainer() {
		return nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("SQLite database file not mounted, please use docker volumes to mount it to /app/%s", path)
	}

	return nil
}
