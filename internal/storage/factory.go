package storage

import (
	"context"
	"fmt"

	"notes-go/internal/config"
	"notes-go/internal/database"
	"notes-go/internal/notes"
)

// NewStorageFromConfig creates a Storage implementation based on the storage config type.
func NewStorageFromConfig(ctx context.Context, cfg config.StorageConfig) (notes.Storage, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStorage("memory"), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem storage requires fs_root to be set")
		}
		s, err := NewFileSystemStorage("filesystem", cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite storage requires sqlite_path to be set")
		}
		s, err := database.NewSQLiteStorage(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "s3":
		s, err := NewS3Storage(ctx, "s3", S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
