package stage

import (
	"context"
	"sync"

	"github.com/vango-dev/filestage/pkg/policy"
	"github.com/vango-dev/filestage/pkg/preview"
)

// Previewer allocates and releases preview handles.
// *preview.Manager implements it.
type Previewer interface {
	Acquire(ctx context.Context, f policy.File) (*preview.Handle, error)
	Release(ctx context.Context, h *preview.Handle)
}

// Store is an ordered collection of staged entries.
type Store struct {
	mode     Mode
	previews Previewer
	observer Observer

	mu      sync.Mutex
	entries []Entry
}

// NewStore creates an empty Store. previews must not be nil; observer may be.
func NewStore(mode Mode, previews Previewer, observer Observer) *Store {
	return &Store{
		mode:     mode,
		previews: previews,
		observer: observer,
	}
}

// Mode returns the store's mode.
func (s *Store) Mode() Mode {
	return s.mode
}

// Seed installs files as the initial entries without notifying the
// observer. In Single mode only the first file is kept. Seed fails, leaving
// the store unchanged, if a preview cannot be allocated.
func (s *Store) Seed(ctx context.Context, files []policy.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.build(ctx, files)
	if err != nil {
		return err
	}
	s.install(ctx, entries)
	return nil
}

// Apply stages files and returns the new entries.
//
// In Multi mode the entries are appended. In Single mode only the first
// file is kept and it replaces the current entry, whose preview is released
// before the new entry is installed.
//
// Previews for the batch are allocated up front. If any allocation fails,
// the ones already allocated are released, the store is left unchanged, no
// notification is sent and the error is returned.
//
// An empty batch is a no-op.
func (s *Store) Apply(ctx context.Context, files []policy.File) ([]Entry, error) {
	if len(files) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.build(ctx, files)
	if err != nil {
		return nil, err
	}
	s.install(ctx, entries)
	s.notify()

	out := make([]Entry, len(entries))
	copy(out, entries)
	return out, nil
}

// Remove releases and removes the entry with id. It reports whether an
// entry was removed; an unknown id is a no-op.
func (s *Store) Remove(ctx context.Context, id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID != id {
			continue
		}
		s.previews.Release(ctx, e.Preview)
		s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
		s.notify()
		return true
	}
	return false
}

// Clear releases every preview and empties the store.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.releaseAll(ctx)
	s.entries = nil
	s.notify()
}

// Entries returns a snapshot of the staged entries in display order.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of staged entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Value returns the current projection.
func (s *Store) Value() Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Project(s.entries, s.mode)
}

// build creates entries for files, allocating previews for images.
// Must be called with s.mu held.
func (s *Store) build(ctx context.Context, files []policy.File) ([]Entry, error) {
	if s.mode == Single && len(files) > 1 {
		files = files[:1]
	}

	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		e := Entry{ID: nextID(), File: f}
		if f.IsImage() {
			h, err := s.previews.Acquire(ctx, f)
			if err != nil {
				for _, built := range entries {
					s.previews.Release(ctx, built.Preview)
				}
				return nil, err
			}
			e.Preview = h
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// install places built entries in the store according to its mode.
// Must be called with s.mu held.
func (s *Store) install(ctx context.Context, entries []Entry) {
	if s.mode == Single {
		s.releaseAll(ctx)
		s.entries = append([]Entry(nil), entries...)
		return
	}
	s.entries = append(s.entries, entries...)
}

func (s *Store) releaseAll(ctx context.Context) {
	for _, e := range s.entries {
		s.previews.Release(ctx, e.Preview)
	}
}

func (s *Store) notify() {
	if s.observer == nil {
		return
	}
	s.observer(Project(s.entries, s.mode))
}
