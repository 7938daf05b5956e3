package cacheinfra

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// NewSQLiteStorage opens (or creates) the database file and makes sure the
// cache table exists.
func NewSQLiteStorage(ctx context.Context, cfg SQLiteConfig, opts Options) (*SQLStorage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, invalidConfig(err)
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, fileDirPerm); err != nil {
			return nil, NewStorageUnavailableError(BackendSQLite, err)
		}
	}

	sqldb, err := sql.Open("sqlite3", "file:"+cfg.Path+"?_busy_timeout=5000")
	if err != nil {
		return nil, NewStorageUnavailableError(BackendSQLite, err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	return newSQLStorage(ctx, BackendSQLite, db, cfg.Table, opts)
}
