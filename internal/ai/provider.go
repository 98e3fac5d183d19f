// Package ai adapts the remote text-generation API behind a one-method
// interface. The adapter's job is to collapse the provider's error surface
// into the three classes the worker's retry policy distinguishes:
// quota-exceeded (never retry), malformed-request (never retry), and
// everything else (transient, retryable). Responses are never cached; every
// prompt is presumed distinct.
package ai

import (
	"context"
	"errors"
)

// Sentinel errors for the non-retryable failure classes. Any other error from
// Generate (network failures, 5xx responses, context deadlines) is transient
// and eligible for retry.
var (
	// ErrQuotaExceeded reports that the provider rejected the call for
	// quota or rate-limit reasons.
	ErrQuotaExceeded = errors.New("ai: quota exceeded")
	// ErrMalformedRequest reports that the provider rejected the request
	// itself; retrying the same payload cannot succeed.
	ErrMalformedRequest = errors.New("ai: malformed request")
	// ErrEmptyCompletion reports a well-formed response with no usable
	// text. Treated as transient.
	ErrEmptyCompletion = errors.New("ai: empty completion")
)

// Provider generates a reply for a prompt. Calls are synchronous from the
// worker's viewpoint and must honor ctx for cancellation and deadlines.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
