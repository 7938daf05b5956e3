package cacheinfra

import (
	"context"
	"database/sql"
	"net"
	"net/url"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"go.uber.org/zap"
)

// maintenanceDatabase is the database every PostgreSQL server ships with; it is
// used to create the cache database when it is missing.
const maintenanceDatabase = "postgres"

// NewPostgresStorage ensures the configured database and table exist and
// returns the backend.
func NewPostgresStorage(ctx context.Context, cfg PostgresConfig, opts Options) (*SQLStorage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, invalidConfig(err)
	}
	opts = opts.withDefaults()

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := ensureDatabase(ctx, cfg, opts.Logger); err != nil {
		return nil, err
	}

	sqldb, err := sql.Open("postgres", cfg.dsn(cfg.Database))
	if err != nil {
		return nil, NewStorageUnavailableError(BackendPostgres, err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())
	return newSQLStorage(ctx, BackendPostgres, db, cfg.Table, opts)
}

// ensureDatabase creates cfg.Database through an autocommit connection to the
// maintenance database. CREATE DATABASE cannot run inside a transaction.
func ensureDatabase(ctx context.Context, cfg PostgresConfig, logger *zap.Logger) error {
	sqldb, err := sql.Open("postgres", cfg.dsn(maintenanceDatabase))
	if err != nil {
		return NewStorageUnavailableError(BackendPostgres, err)
	}
	admin := bun.NewDB(sqldb, pgdialect.New())
	defer admin.Close()

	exists, err := admin.NewSelect().
		TableExpr("pg_database").
		ColumnExpr("1").
		Where("datname = ?", cfg.Database).
		Exists(ctx)
	if err != nil {
		return NewStorageUnavailableError(BackendPostgres, err)
	}
	if exists {
		return nil
	}

	if _, err := admin.ExecContext(ctx, "CREATE DATABASE ?", bun.Ident(cfg.Database)); err != nil {
		return NewStorageUnavailableError(BackendPostgres, err)
	}
	logger.Info("created cache database", zap.String("database", cfg.Database))
	return nil
}

// dsn builds a lib/pq URL for the given database name.
func (c PostgresConfig) dsn(database string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + database,
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
