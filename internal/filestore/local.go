package filestore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/docvault/docnode/internal/errors"
	"go.uber.org/zap"
)

// LocalStore persists section blobs as plain files under a base directory.
type LocalStore struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalStore creates a disk-backed store rooted at basePath. The directory
// is created lazily on the first write, so a missing directory surfaces as a
// systemic error at operation time rather than at startup.
func NewLocalStore(basePath string, logger *zap.Logger) *LocalStore {
	return &LocalStore{
		basePath: basePath,
		logger:   logger,
	}
}

// Store writes the blob, creating the base directory first.
func (s *LocalStore) Store(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return errors.FileStoreFailed("store cancelled", err)
	}
	if err := os.MkdirAll(s.basePath, 0755); err != nil {
		s.logger.Error("Unable to create base storage directory",
			zap.String("path", s.basePath),
			zap.Error(err))
		return errors.StorageDirFailed(s.basePath, err)
	}

	fullPath := s.fullPath(key)
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		s.logger.Error("Unable to store file",
			zap.String("path", fullPath),
			zap.Error(err))
		return errors.FileStoreFailed("unable to store file", err)
	}

	s.logger.Debug("Stored file", zap.String("path", fullPath))
	return nil
}

// Get reads the blob back.
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.FileStoreFailed("get cancelled", err)
	}
	fullPath := s.fullPath(key)
	data, err := os.ReadFile(fullPath)
	if err != nil {
		s.logger.Error("Unable to read stored file",
			zap.String("path", fullPath),
			zap.Error(err))
		return nil, errors.FileStoreFailed("unable to read stored file", err)
	}
	return data, nil
}

// Delete removes the blob. A file that is already gone is treated as success,
// so a crashed sweep can safely re-run the same compensation.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return errors.FileStoreFailed("delete cancelled", err)
	}
	fullPath := s.fullPath(key)
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("File already absent on delete", zap.String("path", fullPath))
			return nil
		}
		s.logger.Error("Unable to remove stored file",
			zap.String("path", fullPath),
			zap.Error(err))
		return errors.FileStoreFailed("unable to remove stored file", err)
	}

	s.logger.Info("Deleted file", zap.String("path", fullPath))
	return nil
}

// DeleteIfPresent removes the blob if it exists and reports whether anything
// was removed.
func (s *LocalStore) DeleteIfPresent(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.FileStoreFailed("delete cancelled", err)
	}
	fullPath := s.fullPath(key)
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("File not found, nothing to delete", zap.String("path", fullPath))
			return false, nil
		}
		s.logger.Error("Unable to remove stored file",
			zap.String("path", fullPath),
			zap.Error(err))
		return false, errors.FileStoreFailed("unable to remove stored file", err)
	}

	s.logger.Info("Deleted file", zap.String("path", fullPath))
	return true, nil
}

func (s *LocalStore) fullPath(key string) string {
	// Keys come from GenerateStorageKey, but Base guards against traversal
	// for keys read back from the database.
	return filepath.Join(s.basePath, filepath.Base(key))
}
