package ensemble

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Error kinds recorded in the attempt trace.
const (
	KindUnconfigured = "unconfigured"  // provider has no credential, skipped
	KindNotAttempted = "not_attempted" // an earlier provider already answered
	KindTimeout      = "timeout"
	KindTransport    = "transport"
	KindProvider     = "provider"       // the backend reported an error
	KindMalformed    = "empty_response" // empty or unusable response body
)

// ExhaustedError reports that every configured provider was skipped or
// failed. The trace allows callers to see which providers were tried and
// why each one failed.
type ExhaustedError struct {
	RequestID string
	Trace     []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Trace))
	for _, a := range e.Trace {
		parts = append(parts, fmt.Sprintf("%s=%s", a.Provider, a.ErrKind))
	}
	return fmt.Sprintf("ensemble: all %d providers skipped or failed (%s)",
		len(e.Trace), strings.Join(parts, ", "))
}

// transportMarkers are substrings of errors that indicate the request
// never reached or never returned from the backend.
var transportMarkers = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"dns lookup failed",
	"network unreachable",
	"broken pipe",
	"tls",
	"eof",
	"service unavailable",
	"502",
	"503",
	"504",
}

// Classify maps a provider error to a trace error kind.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout") {
		return KindTimeout
	}
	if strings.Contains(msg, "empty response") {
		return KindMalformed
	}
	for _, marker := range transportMarkers {
		if strings.Contains(msg, marker) {
			return KindTransport
		}
	}
	return KindProvider
}
