package cacheinfra

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	fileDirPerm  = 0o755
	fileDataPerm = 0o600
	fileExt      = ".json"
)

// FileStorage keeps one file per key under <dir>/<function namespace>/<key>.json.
// The file modification time is the entry creation time.
type FileStorage struct {
	dir    string
	policy TTLPolicy
	now    func() time.Time
	logger *zap.Logger
}

// NewFileStorage creates the root directory when needed and returns the backend.
func NewFileStorage(cfg FileConfig, opts Options) (*FileStorage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, invalidConfig(err)
	}
	opts = opts.withDefaults()

	if err := os.MkdirAll(cfg.Dir, fileDirPerm); err != nil {
		return nil, NewStorageUnavailableError(BackendFile, err)
	}

	return &FileStorage{
		dir:    cfg.Dir,
		policy: opts.policy(),
		now:    opts.Now,
		logger: opts.Logger.With(zap.String("backend", BackendFile)),
	}, nil
}

// Get returns the stored entry or nil when it is missing or older than ttl.
func (s *FileStorage) Get(ctx context.Context, funcName string, keyData any, ttl time.Duration) (*Entry, error) {
	key, err := DeriveKey(funcName, keyData)
	if err != nil {
		return nil, err
	}
	path := s.path(funcName, key)

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, NewStorageOperationError(BackendFile, "get", err)
	}

	if s.policy.IsExpired(info.ModTime(), ttl) {
		s.logger.Debug("evicting expired entry", zap.String("function", funcName), zap.String("key", key))
		if err := removeIfExists(path); err != nil {
			return nil, NewStorageOperationError(BackendFile, "delete", err)
		}
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, NewStorageOperationError(BackendFile, "get", err)
	}

	return &Entry{Key: key, Data: data, CreatedAt: info.ModTime()}, nil
}

// Put writes the canonical payload atomically and stamps it with the current time.
func (s *FileStorage) Put(ctx context.Context, funcName string, keyData any, value any) error {
	key, err := DeriveKey(funcName, keyData)
	if err != nil {
		return err
	}
	data, err := Canonicalize(value)
	if err != nil {
		return err
	}

	path := s.path(funcName, key)
	if err := os.MkdirAll(filepath.Dir(path), fileDirPerm); err != nil {
		return NewStorageUnavailableError(BackendFile, err)
	}

	// A rename within the same directory replaces the entry in one step, so a
	// concurrent Get sees either the old payload or the new one.
	tmp := filepath.Join(filepath.Dir(path), "."+key+"-"+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, fileDataPerm); err != nil {
		return NewStorageOperationError(BackendFile, "put", err)
	}
	now := s.now()
	if err := os.Chtimes(tmp, now, now); err != nil {
		_ = os.Remove(tmp)
		return NewStorageOperationError(BackendFile, "put", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return NewStorageOperationError(BackendFile, "put", err)
	}
	return nil
}

// Delete removes the entry. Missing entries are ignored.
func (s *FileStorage) Delete(ctx context.Context, funcName string, keyData any) error {
	key, err := DeriveKey(funcName, keyData)
	if err != nil {
		return err
	}
	if err := removeIfExists(s.path(funcName, key)); err != nil {
		return NewStorageOperationError(BackendFile, "delete", err)
	}
	return nil
}

// Close is a no-op; file handles never outlive a call.
func (s *FileStorage) Close() error {
	return nil
}

func (s *FileStorage) path(funcName, key string) string {
	return filepath.Join(s.dir, namespace(funcName), key+fileExt)
}

func namespace(funcName string) string {
	if ns := toSnake(funcName); ns != "" {
		return ns
	}
	return "_"
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
