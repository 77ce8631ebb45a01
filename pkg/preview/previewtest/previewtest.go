// Package previewtest provides a recording preview allocator for tests.
package previewtest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vango-dev/filestage/pkg/policy"
)

// ErrInjected is returned by Allocate when the allocator is told to fail.
var ErrInjected = errors.New("previewtest: injected failure")

// Allocator records every Allocate and Revoke call.
type Allocator struct {
	// FailOn, when set, makes Allocate fail for files it returns true for.
	FailOn func(f policy.File) bool

	// RevokeErr, when set, is returned by every Revoke call.
	RevokeErr error

	mu        sync.Mutex
	allocated map[string]string // key -> file name
	revokes   map[string]int
	order     []string
}

// New returns an empty recording allocator.
func New() *Allocator {
	return &Allocator{
		allocated: make(map[string]string),
		revokes:   make(map[string]int),
	}
}

func (a *Allocator) Allocate(_ context.Context, key string, f policy.File) (string, error) {
	if a.FailOn != nil && a.FailOn(f) {
		return "", ErrInjected
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.allocated[key] = f.Name
	a.order = append(a.order, key)
	return fmt.Sprintf("test://preview/%s", key), nil
}

func (a *Allocator) Revoke(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.revokes[key]++
	return a.RevokeErr
}

// Allocated returns the number of successful allocations.
func (a *Allocator) Allocated() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.allocated)
}

// Revokes returns how many times key was revoked.
func (a *Allocator) Revokes(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.revokes[key]
}

// Outstanding returns the keys allocated but never revoked.
func (a *Allocator) Outstanding() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, key := range a.order {
		if a.revokes[key] == 0 {
			out = append(out, key)
		}
	}
	return out
}

// DoubleRevoked returns the keys revoked more than once.
func (a *Allocator) DoubleRevoked() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, key := range a.order {
		if a.revokes[key] > 1 {
			out = append(out, key)
		}
	}
	return out
}

// FileName returns the name of the file key was allocated for.
func (a *Allocator) FileName(key string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocated[key]
}
