package domain

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinels for errors.Is checks across the taxonomy.
var (
	ErrTransport = errors.New("transport failure")
	ErrBlocked   = errors.New("blocked by upstream")
	ErrUpstream  = errors.New("upstream api failure")
	ErrParse     = errors.New("parse failure")
)

// TransportError covers network and navigation failures, non-2xx statuses and
// timeouts.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: http %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

type BlockReason string

const (
	BlockChallenge BlockReason = "challenge"
	BlockLogin     BlockReason = "login"
	BlockTooShort  BlockReason = "too-short"
)

// BlockedError means the upstream answered with an anti-automation page, a
// login wall or a body too short to be the real page.
type BlockedError struct {
	URL    string
	Reason BlockReason
	Marker string
	Length int
}

func (e *BlockedError) Error() string {
	switch e.Reason {
	case BlockTooShort:
		return fmt.Sprintf("blocked at %s: page content too short (%d bytes)", e.URL, e.Length)
	case BlockLogin:
		return fmt.Sprintf("blocked at %s: login wall detected (%q)", e.URL, e.Marker)
	default:
		return fmt.Sprintf("blocked at %s: anti-bot challenge detected (%q)", e.URL, e.Marker)
	}
}

func (e *BlockedError) Is(target error) bool { return target == ErrBlocked }

// UpstreamAPIError is a non-success answer from the platform JSON API.
type UpstreamAPIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *UpstreamAPIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("platform api %s: %s", e.Endpoint, e.Message)
	}
	return fmt.Sprintf("platform api %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

func (e *UpstreamAPIError) Is(target error) bool { return target == ErrUpstream }

// Retryable reports whether the status is worth another bounded attempt.
func (e *UpstreamAPIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// ParseError is soft: extractors record it as a skipped row, never return it.
type ParseError struct {
	Field string
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Degraded reports whether err belongs to the classes that the endpoint
// boundary converts into fallback payloads.
func Degraded(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrBlocked) || errors.Is(err, ErrUpstream)
}

// Cause renders an error as the human-readable text carried by fallback payloads.
func Cause(err error) string {
	if err == nil {
		return "live data unavailable"
	}
	var blocked *BlockedError
	if errors.As(err, &blocked) {
		return blocked.Error()
	}
	return err.Error()
}
