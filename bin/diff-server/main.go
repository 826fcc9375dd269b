package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"visual-regression/internal/config"
	"visual-regression/internal/runnable"
	"visual-regression/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to load .env: %v", err)
	}

	ctx := context.Background()

	c := config.Default().FromEnv()
	if path := config.EnvOrDefault("CONFIG", ""); path != "" {
		var err error
		if c, err = c.LoadOverridesFile(path); err != nil {
			log.Fatalf("failed to load configuration: %v", err)
		}
	}

	s, err := storage.New(ctx, storage.Config{
		Backend:   config.EnvOrDefault("STORAGE_BACKEND", "file"),
		Directory: config.EnvOrDefault("DIRECTORY", "/tmp"),
		Bucket:    config.EnvOrDefault("S3_BUCKET", ""),
	})
	if err != nil {
		log.Fatalf("failed to create storage: %v", err)
	}

	if err := runnable.NewServer(c, s).Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
