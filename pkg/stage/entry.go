package stage

import (
	"strconv"
	"sync/atomic"

	"github.com/vango-dev/filestage/pkg/policy"
	"github.com/vango-dev/filestage/pkg/preview"
)

// ID identifies a staged entry. IDs are unique for the life of the process.
type ID uint64

// idCounter is the source of entry IDs.
var idCounter uint64

// nextID returns the next entry ID. IDs are monotonically increasing and
// never reused.
func nextID() ID {
	return ID(atomic.AddUint64(&idCounter, 1))
}

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID parses the decimal form produced by ID.String.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ID(n), nil
}

// Entry is an accepted file held by a Store.
type Entry struct {
	ID ID

	// File is the accepted file. The entry owns it exclusively.
	File policy.File

	// Preview is non-nil iff File is an image.
	Preview *preview.Handle
}

// Mode selects single or multi staging.
type Mode int

const (
	// Single holds at most one entry; each batch replaces it.
	Single Mode = iota

	// Multi appends every accepted file.
	Multi
)

// ModeOf maps a policy's AllowMultiple flag to a Mode.
func ModeOf(allowMultiple bool) Mode {
	if allowMultiple {
		return Multi
	}
	return Single
}

func (m Mode) String() string {
	if m == Multi {
		return "multi"
	}
	return "single"
}
