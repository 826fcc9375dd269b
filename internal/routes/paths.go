package routes

import (
	"path/filepath"

	"golang.org/x/xerrors"
)

// resolve maps a client supplied path onto root. Absolute paths and paths
// escaping root with ".." are rejected; the empty path is root itself.
func resolve(root string, p string) (string, error) {
	if p == "" {
		return root, nil
	}
	if !filepath.IsLocal(p) {
		return "", xerrors.Errorf("path must be relative to the working directory: %s", p)
	}
	return filepath.Join(root, p), nil
}
