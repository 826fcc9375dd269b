package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
	"visual-regression/internal/retry"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/xerrors"
)

// Sender delivers comparison results to a webhook as a JSON PATCH.
type Sender struct {
	url    string
	client *http.Client
}

// New returns a Sender whose client retries gateway errors, conflicts and
// connection failures with exponential backoff.
func New(url string) *Sender {
	return &Sender{
		url: url,
		client: &http.Client{
			Transport: &retry.Transport{
				Base:    otelhttp.NewTransport(http.DefaultTransport),
				Backoff: retry.Exponential(10*time.Millisecond, time.Second, 3, nil),
				On:      retry.DefaultOn(),
			},
			Timeout: 30 * time.Second,
		},
	}
}

func NewWithClient(url string, client *http.Client) *Sender {
	return &Sender{
		url:    url,
		client: client,
	}
}

func (s *Sender) Send(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return xerrors.Errorf("failed to marshal result: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPatch, s.url, bytes.NewReader(body))
	if err != nil {
		return xerrors.Errorf("failed to create callback request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := s.client.Do(request)
	if err != nil {
		return xerrors.Errorf("failed to send callback: %w", err)
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, response.Body)

	if response.StatusCode >= 300 {
		return xerrors.Errorf("callback returned status %d", response.StatusCode)
	}

	return nil
}
