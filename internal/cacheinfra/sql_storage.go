package cacheinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// cacheRow is the single table layout shared by every memoized function.
// The table name is chosen at runtime through ModelTableExpr.
type cacheRow struct {
	bun.BaseModel `bun:"table:botasaurus_cache"`

	Key       string    `bun:"key,pk,type:char(64)"`
	Data      string    `bun:"data,type:text"`
	CreatedAt time.Time `bun:"created_at,type:timestamp,notnull,default:current_timestamp"`
}

// SQLStorage implements the storage contract on top of bun. The SQLite and
// PostgreSQL backends only differ in how the *bun.DB is opened.
type SQLStorage struct {
	backend string
	db      *bun.DB
	table   bun.Ident
	policy  TTLPolicy
	now     func() time.Time
	logger  *zap.Logger
}

func newSQLStorage(ctx context.Context, backend string, db *bun.DB, table string, opts Options) (*SQLStorage, error) {
	opts = opts.withDefaults()

	s := &SQLStorage{
		backend: backend,
		db:      db,
		table:   bun.Ident(table),
		policy:  opts.policy(),
		now:     opts.Now,
		logger:  opts.Logger.With(zap.String("backend", backend), zap.String("table", table)),
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, NewStorageUnavailableError(backend, err)
	}

	if err := s.ensureTable(ctx); err != nil {
		_ = db.Close()
		return nil, NewStorageUnavailableError(backend, err)
	}

	return s, nil
}

func (s *SQLStorage) ensureTable(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*cacheRow)(nil)).
		ModelTableExpr("?", s.table).
		IfNotExists().
		Exec(ctx)
	return err
}

// DB exposes the underlying handle, mainly for tests and maintenance tooling.
func (s *SQLStorage) DB() *bun.DB {
	return s.db
}

// Get reads the row for the derived key. With a ttl the read only accepts rows
// created inside the window and deletes the row otherwise, both inside one
// transaction.
func (s *SQLStorage) Get(ctx context.Context, funcName string, keyData any, ttl time.Duration) (*Entry, error) {
	key, err := DeriveKey(funcName, keyData)
	if err != nil {
		return nil, err
	}

	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var row cacheRow
	var found bool

	if ttl <= 0 {
		found, err = s.selectRow(ctx, conn, key, nil, &row)
		if err != nil {
			return nil, NewStorageOperationError(s.backend, "get", err)
		}
	} else {
		cutoff := s.timestamp(s.policy.Cutoff(ttl))
		err = conn.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			var err error
			found, err = s.selectRow(ctx, tx, key, &cutoff, &row)
			if err != nil || found {
				return err
			}
			return s.deleteRow(ctx, tx, key)
		})
		if err != nil {
			return nil, NewStorageOperationError(s.backend, "get", err)
		}
	}

	if !found {
		return nil, nil
	}

	return &Entry{Key: key, Data: []byte(row.Data), CreatedAt: row.CreatedAt}, nil
}

// Put upserts the canonical payload and refreshes created_at.
func (s *SQLStorage) Put(ctx context.Context, funcName string, keyData any, value any) error {
	key, err := DeriveKey(funcName, keyData)
	if err != nil {
		return err
	}
	data, err := Canonicalize(value)
	if err != nil {
		return err
	}

	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	row := &cacheRow{
		Key:       key,
		Data:      string(data),
		CreatedAt: s.timestamp(s.now()),
	}

	_, err = conn.NewInsert().
		Model(row).
		ModelTableExpr("?", s.table).
		On("CONFLICT (?) DO UPDATE", bun.Ident("key")).
		Set("? = EXCLUDED.?", bun.Ident("data"), bun.Ident("data")).
		Set("? = EXCLUDED.?", bun.Ident("created_at"), bun.Ident("created_at")).
		Exec(ctx)
	if err != nil {
		return NewStorageOperationError(s.backend, "put", err)
	}
	return nil
}

// Delete removes the row for the derived key. Missing rows are ignored.
func (s *SQLStorage) Delete(ctx context.Context, funcName string, keyData any) error {
	key, err := DeriveKey(funcName, keyData)
	if err != nil {
		return err
	}

	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := s.deleteRow(ctx, conn, key); err != nil {
		return NewStorageOperationError(s.backend, "delete", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

// conn checks a dedicated connection out of the pool for a single operation.
func (s *SQLStorage) conn(ctx context.Context) (bun.Conn, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return bun.Conn{}, NewStorageUnavailableError(s.backend, err)
	}
	return conn, nil
}

func (s *SQLStorage) selectRow(ctx context.Context, db bun.IDB, key string, cutoff *time.Time, row *cacheRow) (bool, error) {
	q := db.NewSelect().
		TableExpr("?", s.table).
		Column("key", "data", "created_at").
		Where("? = ?", bun.Ident("key"), key).
		Limit(1)
	if cutoff != nil {
		q = q.Where("? >= ?", bun.Ident("created_at"), *cutoff)
	}

	err := q.Scan(ctx, &row.Key, &row.Data, &row.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLStorage) deleteRow(ctx context.Context, db bun.IDB, key string) error {
	res, err := db.NewDelete().
		TableExpr("?", s.table).
		Where("? = ?", bun.Ident("key"), key).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Debug("deleted cache row", zap.String("key", key))
	}
	return nil
}

// timestamp normalises to UTC at microsecond precision, the resolution both
// SQL dialects store.
func (s *SQLStorage) timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
