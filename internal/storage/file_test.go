package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"visual-regression/internal/storage"
)

func TestFileStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("RelativeKey", func(t *testing.T) {
		dir := t.TempDir()
		s, err := storage.NewFileStorage(ctx, storage.FileConfig{Directory: dir})
		if err != nil {
			t.Fatal(err)
		}

		path, err := s.Put(ctx, "diff/abc/1.png", []byte("data"))
		if err != nil {
			t.Fatal(err)
		}
		if want := filepath.Join(dir, "diff", "abc", "1.png"); path != want {
			t.Errorf("Expected %s, got %s", want, path)
		}

		data, err := s.Get(ctx, path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "data" {
			t.Errorf("Expected data, got %q", data)
		}
	})

	t.Run("AbsoluteKey", func(t *testing.T) {
		dir := t.TempDir()
		s, err := storage.NewFileStorage(ctx, storage.FileConfig{Directory: "/somewhere/else"})
		if err != nil {
			t.Fatal(err)
		}

		want := filepath.Join(dir, "nested", "out.png")
		path, err := s.Put(ctx, want, []byte("data"))
		if err != nil {
			t.Fatal(err)
		}
		if path != want {
			t.Errorf("Expected %s, got %s", want, path)
		}
		if _, err := os.Stat(want); err != nil {
			t.Errorf("Expected file to exist: %v", err)
		}
	})

	t.Run("ConcurrentDirectoryCreation", func(t *testing.T) {
		dir := t.TempDir()
		s, err := storage.NewFileStorage(ctx, storage.FileConfig{Directory: dir})
		if err != nil {
			t.Fatal(err)
		}

		var wg sync.WaitGroup
		errs := make([]error, 16)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = s.Put(ctx, filepath.Join("shared", "deep", string(rune('a'+i))+".png"), []byte{byte(i)})
			}(i)
		}
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				t.Errorf("writer %d failed: %v", i, err)
			}
		}
	})
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	if _, err := storage.New(ctx, storage.Config{Backend: "file", Directory: t.TempDir()}); err != nil {
		t.Errorf("Expected file backend: %v", err)
	}
	if _, err := storage.New(ctx, storage.Config{Backend: "s3"}); err == nil {
		t.Errorf("Expected missing bucket to fail")
	}
	if _, err := storage.New(ctx, storage.Config{Backend: "ftp"}); err == nil {
		t.Errorf("Expected unknown backend to fail")
	}
}
