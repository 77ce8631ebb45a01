package stage

import (
	"encoding/json"

	"github.com/vango-dev/filestage/pkg/policy"
)

// Value is the externally visible projection of a Store.
//
// In Multi mode it is a list (possibly empty). In Single mode it is one
// file or an explicit absence; it is never a list.
type Value struct {
	mode    Mode
	files   []policy.File
	present bool
}

// Project builds the Value for entries in mode.
func Project(entries []Entry, mode Mode) Value {
	if mode == Single {
		if len(entries) == 0 {
			return Value{mode: Single}
		}
		return Value{mode: Single, files: []policy.File{entries[0].File}, present: true}
	}
	files := make([]policy.File, len(entries))
	for i, e := range entries {
		files[i] = e.File
	}
	return Value{mode: Multi, files: files, present: true}
}

// Mode returns the mode the value was projected for.
func (v Value) Mode() Mode {
	return v.mode
}

// IsList reports whether the value is a list (Multi mode).
func (v Value) IsList() bool {
	return v.mode == Multi
}

// Present reports whether the value holds something. A Multi value is
// always present, even when empty; a Single value is present when a file
// is staged.
func (v Value) Present() bool {
	return v.present
}

// File returns the staged file of a Single value.
func (v Value) File() (policy.File, bool) {
	if v.mode != Single || !v.present {
		return policy.File{}, false
	}
	return v.files[0], true
}

// Files returns the staged files of a Multi value, or nil for Single.
func (v Value) Files() []policy.File {
	if v.mode != Multi {
		return nil
	}
	out := make([]policy.File, len(v.files))
	copy(out, v.files)
	return out
}

// FileInfo is the JSON form of a staged file.
type FileInfo struct {
	Name     string `json:"name"`
	MIMEType string `json:"type"`
	Size     int64  `json:"size"`
}

// InfoOf returns the JSON form of f.
func InfoOf(f policy.File) FileInfo {
	return FileInfo{Name: f.Name, MIMEType: f.MIMEType, Size: f.Size}
}

// MarshalJSON encodes a Multi value as an array and a Single value as an
// object or null.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.mode == Multi {
		infos := make([]FileInfo, len(v.files))
		for i, f := range v.files {
			infos[i] = InfoOf(f)
		}
		return json.Marshal(infos)
	}
	if !v.present {
		return []byte("null"), nil
	}
	return json.Marshal(InfoOf(v.files[0]))
}

// Observer receives the projected value after every completed mutation.
type Observer func(Value)
