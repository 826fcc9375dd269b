package storage

import (
	"context"

	"golang.org/x/xerrors"
)

type Storage interface {
	// Put stores data with the given key and returns the storage URL
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get retrieves data from the given storage URL
	Get(ctx context.Context, url string) ([]byte, error)
}

type Config struct {
	Backend   string
	Directory string
	Bucket    string
}

// New builds the backend named by c.Backend ("file" or "s3").
func New(ctx context.Context, c Config) (Storage, error) {
	switch c.Backend {
	case "", "file":
		return NewFileStorage(ctx, FileConfig{
			Directory: c.Directory,
		})
	case "s3":
		if c.Bucket == "" {
			return nil, xerrors.New("S3 bucket not specified")
		}
		return NewS3Storage(ctx, S3Config{
			Bucket: c.Bucket,
		})
	default:
		return nil, xerrors.Errorf("unknown storage backend: %s", c.Backend)
	}
}
