package policy

import (
	"fmt"

	ferrors "github.com/vango-dev/filestage/internal/errors"
)

// ErrInvalidPolicy is matched (via errors.Is) by every error New returns.
var ErrInvalidPolicy = ferrors.New("S010")

// Wildcard accepts every MIME type.
const Wildcard = "*"

// Policy is the acceptance configuration of one stager.
type Policy struct {
	// MaxSizeBytes is the largest accepted file size. Must be positive.
	MaxSizeBytes int64

	// AcceptPatterns lists accepted MIME types. Each entry is either an exact
	// type ("application/pdf") or a category wildcard ("image/*").
	// "*" (or an empty list) accepts everything.
	AcceptPatterns []string

	// AllowMultiple selects multi mode (append) over single mode (replace).
	AllowMultiple bool
}

// New validates p and returns an independent copy of it.
// The returned Policy shares no memory with the argument, so later changes
// to the caller's slice do not leak into a running stager.
func New(p Policy) (*Policy, error) {
	if p.MaxSizeBytes <= 0 {
		return nil, ferrors.New("S010").
			WithDetail(fmt.Sprintf("MaxSizeBytes must be positive, got %d", p.MaxSizeBytes))
	}
	patterns := make([]string, 0, len(p.AcceptPatterns))
	for _, pat := range p.AcceptPatterns {
		pat = normalizeMIME(pat)
		if pat == "" {
			return nil, ferrors.New("S010").WithDetail("accept patterns must not be blank")
		}
		patterns = append(patterns, pat)
	}
	return &Policy{
		MaxSizeBytes:   p.MaxSizeBytes,
		AcceptPatterns: patterns,
		AllowMultiple:  p.AllowMultiple,
	}, nil
}

// AcceptsAll reports whether the policy skips the type check.
func (p *Policy) AcceptsAll() bool {
	return isUniversal(p.AcceptPatterns)
}

// Mode returns a short name for the staging mode, for logs.
func (p *Policy) Mode() string {
	if p.AllowMultiple {
		return "multi"
	}
	return "single"
}
