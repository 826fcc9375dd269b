package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"visual-regression/internal/compare"
	"visual-regression/internal/myhttp"
)

type BatchComparator interface {
	CompareBatch(ctx context.Context, screenshots []string, outputDir string, baseline string) *compare.BatchResult
}

// BatchRequest paths are relative to the server's working directory.
type BatchRequest struct {
	Screenshots []string `json:"screenshots"`
	OutputDir   string   `json:"outputDir"`
	Baseline    string   `json:"baseline"`
}

func (b BatchRequest) resolve(root string) (BatchRequest, error) {
	var (
		resolved = BatchRequest{Screenshots: make([]string, 0, len(b.Screenshots))}
		err      error
	)
	for _, screenshot := range b.Screenshots {
		p, err := resolve(root, screenshot)
		if err != nil {
			return BatchRequest{}, err
		}
		resolved.Screenshots = append(resolved.Screenshots, p)
	}
	if resolved.OutputDir, err = resolve(root, b.OutputDir); err != nil {
		return BatchRequest{}, err
	}
	if b.Baseline != "" {
		if resolved.Baseline, err = resolve(root, b.Baseline); err != nil {
			return BatchRequest{}, err
		}
	}
	return resolved, nil
}

func CompareBatch(c BatchComparator, root string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request BatchRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes)).Decode(&request); err != nil {
			myhttp.Logger(r.Context()).Error("failed to unmarshal request", "error", err)
			http.Error(w, "Invalid JSON format", http.StatusBadRequest)
			return
		}

		request, err := request.resolve(root)
		if err != nil {
			myhttp.Logger(r.Context()).Warn("rejected batch request", "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, r, c.CompareBatch(r.Context(), request.Screenshots, request.OutputDir, request.Baseline))
	}
}
