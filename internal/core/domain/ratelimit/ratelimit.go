package ratelimit

import (
	"errors"
	"strings"
)

var (
	// ErrConfiguration reports a non-positive limit or window. It is fatal at startup.
	ErrConfiguration = errors.New("invalid rate limit configuration")
	// ErrStoreUnavailable wraps any failure talking to the shared counter store.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
	// ErrScriptUnsupported is returned by stores that cannot run the atomic
	// increment script; the limiter then falls back to separate commands.
	ErrScriptUnsupported = errors.New("counter store does not support scripts")
	// ErrIncrementApplied accompanies ErrStoreUnavailable when the failure
	// came after the counter was already incremented. Hitting again would
	// charge the same attempt twice.
	ErrIncrementApplied = errors.New("counter already incremented")
)

// Decision is the outcome of a single fixed-window hit.
type Decision struct {
	Allowed    bool  `json:"allowed"`
	Remaining  int   `json:"remaining"`
	ResetEpoch int64 `json:"reset_epoch"`
	Count      int64 `json:"-"`
	Limit      int   `json:"-"`
}

// DimensionDecision pairs a decision with the dimension that produced it,
// e.g. "IP" or "Email".
type DimensionDecision struct {
	Name     string
	Decision Decision
}

// Key joins prefix, scope and identifier into a rate limit key. The identifier
// is trimmed and lowercased so case variants share a bucket.
func Key(prefix, scope, identifier string) string {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if prefix == "" {
		return scope + ":" + identifier
	}
	return prefix + ":" + scope + ":" + identifier
}
