package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/tunemeld/internal/shared"
)

// ErrorKind classifies gateway failures.
type ErrorKind int

const (
	KindConnection ErrorKind = iota // transport unreachable
	KindTimeout                     // request deadline exceeded
	KindHTTP                        // non-2xx status
	KindQuery                       // well-formed response carrying an error list
	KindDecode                      // malformed response body
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindHTTP:
		return "http"
	case KindQuery:
		return "query"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// sentinel maps a kind onto the shared sentinel error so callers can use [errors.Is].
func (k ErrorKind) sentinel() error {
	switch k {
	case KindConnection:
		return shared.ErrConnection
	case KindTimeout:
		return shared.ErrTimeout
	case KindHTTP:
		return shared.ErrHTTPStatus
	case KindQuery:
		return shared.ErrQuery
	default:
		return shared.ErrDecode
	}
}

// GatewayError describes a failed API call.
type GatewayError struct {
	Kind      ErrorKind
	Query     string
	RequestID string
	Status    int      // set for KindHTTP
	Messages  []string // set for KindQuery
	Body      string   // truncated response body for KindHTTP / KindDecode
	Duration  time.Duration
	Err       error
}

func (e *GatewayError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Query, e.Kind.sentinel())
	switch e.Kind {
	case KindHTTP:
		fmt.Fprintf(&b, " %d", e.Status)
	case KindQuery:
		fmt.Fprintf(&b, " (%s)", strings.Join(e.Messages, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the kind's sentinel and the underlying cause.
func (e *GatewayError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// Retryable reports whether the failure is transient at the transport level.
func (e *GatewayError) Retryable() bool {
	return e.Kind == KindConnection
}

// KindOf returns the [ErrorKind] of err and whether err is a [*GatewayError].
func KindOf(err error) (ErrorKind, bool) {
	var gerr *GatewayError
	if errors.As(err, &gerr) {
		return gerr.Kind, true
	}
	return 0, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
