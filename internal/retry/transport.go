package retry

import (
	"net/http"
	"time"

	"golang.org/x/xerrors"
)

// Transport retries requests through Base according to Backoff and On.
// Requests with a body are only retried when GetBody is set, as it is for
// bodies built by http.NewRequest from bytes or strings readers.
type Transport struct {
	Base    http.RoundTripper
	Backoff Backoff
	On      *On
}

func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	ctx := request.Context()

	for attempt := uint(0); ; attempt++ {
		response, err := t.base().RoundTrip(request)

		retriable := t.On != nil && ((err != nil && t.On.Error(err)) || (err == nil && t.On.Response(response)))
		if !retriable || (request.Body != nil && request.GetBody == nil) {
			return response, err
		}

		wait, done := t.backoff().Next(attempt)
		if done {
			return response, err
		}
		if response != nil {
			response.Body.Close()
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		request, err = rewind(request)
		if err != nil {
			return nil, err
		}
	}
}

func rewind(request *http.Request) (*http.Request, error) {
	if request.GetBody == nil {
		return request, nil
	}

	body, err := request.GetBody()
	if err != nil {
		return nil, xerrors.Errorf("failed to rewind request body: %w", err)
	}

	clone := request.Clone(request.Context())
	clone.Body = body
	return clone, nil
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) backoff() Backoff {
	if t.Backoff != nil {
		return t.Backoff
	}
	return Never()
}
