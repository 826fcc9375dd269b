package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"visual-regression/internal/compare"
	"visual-regression/internal/myhttp"
)

type ContextComparator interface {
	CompareAcrossContexts(ctx context.Context, contexts compare.Contexts, outputDir string, reference string) *compare.ContextResult
}

// ContextsRequest paths are relative to the server's working directory.
type ContextsRequest struct {
	Contexts  compare.Contexts `json:"contexts"`
	OutputDir string           `json:"outputDir"`
	Reference string           `json:"reference"`
}

func (c ContextsRequest) resolve(root string) (ContextsRequest, error) {
	resolved := ContextsRequest{
		Contexts:  make(compare.Contexts, 0, len(c.Contexts)),
		Reference: c.Reference,
	}
	for _, sc := range c.Contexts {
		dir, err := resolve(root, sc.Dir)
		if err != nil {
			return ContextsRequest{}, err
		}
		resolved.Contexts = append(resolved.Contexts, compare.Context{Name: sc.Name, Dir: dir})
	}
	outputDir, err := resolve(root, c.OutputDir)
	if err != nil {
		return ContextsRequest{}, err
	}
	resolved.OutputDir = outputDir
	return resolved, nil
}

func CompareContexts(c ContextComparator, root string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request ContextsRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes)).Decode(&request); err != nil {
			myhttp.Logger(r.Context()).Error("failed to unmarshal request", "error", err)
			http.Error(w, "Invalid JSON format", http.StatusBadRequest)
			return
		}

		request, err := request.resolve(root)
		if err != nil {
			myhttp.Logger(r.Context()).Warn("rejected contexts request", "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, r, c.CompareAcrossContexts(r.Context(), request.Contexts, request.OutputDir, request.Reference))
	}
}
