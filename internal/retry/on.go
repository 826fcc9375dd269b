package retry

import (
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/xerrors"
)

// On selects which responses and transport errors are retried. The
// condition names follow envoy's retry_on header.
type On struct {
	serverError    bool
	gatewayError   bool
	connectFailure bool
	retriable4xx   bool
	statusCodes    []int
}

// DefaultOn retries gateway errors, conflicts and connection failures.
func DefaultOn() *On {
	return &On{
		gatewayError:   true,
		connectFailure: true,
		retriable4xx:   true,
	}
}

// ParseOn reads a comma separated list such as "5xx,connect-failure,429".
func ParseOn(s string) (*On, error) {
	o := &On{}
	for _, field := range strings.Split(s, ",") {
		switch field = strings.TrimSpace(field); field {
		case "":
		case "5xx":
			o.serverError = true
		case "gateway-error":
			o.gatewayError = true
		case "connect-failure":
			o.connectFailure = true
		case "retriable-4xx":
			o.retriable4xx = true
		default:
			code, err := strconv.Atoi(field)
			if err != nil || code < 100 || code > 599 {
				return nil, xerrors.Errorf("invalid retry condition: %s", field)
			}
			o.statusCodes = append(o.statusCodes, code)
		}
	}
	return o, nil
}

func (o *On) Response(response *http.Response) bool {
	code := response.StatusCode
	switch {
	case o.serverError && code >= 500 && code < 600:
		return true
	case o.gatewayError && code >= http.StatusBadGateway && code <= http.StatusGatewayTimeout:
		return true
	case o.retriable4xx && code == http.StatusConflict:
		return true
	}
	return slices.Contains(o.statusCodes, code)
}

func (o *On) Error(err error) bool {
	if !o.connectFailure && !o.serverError {
		return false
	}

	type temporary interface{ Temporary() bool }
	var terr temporary
	switch {
	case errors.As(err, &terr) && terr.Temporary():
		return true
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return true
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return true
	}
	return false
}
