package routes

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"path"
	"time"
	"visual-regression/internal/compare"
	"visual-regression/internal/myhttp"
)

const maxUploadBytes = 32 << 20

type BytesComparator interface {
	CompareBytes(ctx context.Context, baseline []byte, target []byte, outputPath string) *compare.DiffResult
}

// ComparePair compares the multipart "baseline" and "target" uploads and
// stores the composite under diff/<hash>/<timestamp>.png.
func ComparePair(c BytesComparator, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := myhttp.Logger(r.Context())

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			logger.Error("failed to parse multipart form", "error", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		baselineData, baselineName, err := formFile(r, "baseline")
		if err != nil {
			logger.Error("failed to read baseline upload", "error", err)
			http.Error(w, "baseline is required", http.StatusBadRequest)
			return
		}

		targetData, targetName, err := formFile(r, "target")
		if err != nil {
			logger.Error("failed to read target upload", "error", err)
			http.Error(w, "target is required", http.StatusBadRequest)
			return
		}

		sum := sha256.Sum256([]byte(baselineName + targetName))
		key := path.Join("diff", hex.EncodeToString(sum[:])[:16], now().UTC().Format("20060102_150405.000000000")+".png")

		writeJSON(w, r, c.CompareBytes(r.Context(), baselineData, targetData, key))
	}
}

func formFile(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, header.Filename, nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		myhttp.Logger(r.Context()).Error("failed to encode response", "error", err)
	}
}
