package server

import (
	"github.com/dustin/go-humanize"

	"github.com/vango-dev/filestage"
	"github.com/vango-dev/filestage/pkg/policy"
	"github.com/vango-dev/filestage/pkg/stage"
)

// EntryView is the JSON form of a staged entry.
type EntryView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Size       int64  `json:"size"`
	SizeText   string `json:"sizeText"`
	PreviewURL string `json:"previewUrl,omitempty"`
}

// PolicyView is the JSON form of a session's policy.
type PolicyView struct {
	MaxSizeBytes  int64    `json:"maxSizeBytes"`
	MaxSize       string   `json:"maxSize"`
	Accept        []string `json:"accept"`
	AllowMultiple bool     `json:"allowMultiple"`
}

// StateView is the JSON form of a session.
type StateView struct {
	Session  string      `json:"session"`
	Mode     string      `json:"mode"`
	Policy   PolicyView  `json:"policy"`
	Entries  []EntryView `json:"entries"`
	Value    stage.Value `json:"value"`
	Error    string      `json:"error,omitempty"`
	Dragging bool        `json:"dragging"`
}

// RemoveView is returned by the entry removal endpoint.
type RemoveView struct {
	Removed bool      `json:"removed"`
	State   StateView `json:"state"`
}

// DragView is returned by the drag endpoints.
type DragView struct {
	Dragging         bool      `json:"dragging"`
	DefaultPrevented bool      `json:"defaultPrevented"`
	Ignored          bool      `json:"ignored,omitempty"`
	State            StateView `json:"state"`
}

func entryView(e stage.Entry) EntryView {
	v := EntryView{
		ID:       e.ID.String(),
		Name:     e.File.Name,
		Type:     e.File.MIMEType,
		Size:     e.File.Size,
		SizeText: humanize.Bytes(uint64(max(e.File.Size, 0))),
	}
	if e.Preview != nil {
		v.PreviewURL = e.Preview.URL
	}
	return v
}

func policyView(p policy.Policy) PolicyView {
	return PolicyView{
		MaxSizeBytes:  p.MaxSizeBytes,
		MaxSize:       policy.FormatLimit(p.MaxSizeBytes),
		Accept:        p.AcceptPatterns,
		AllowMultiple: p.AllowMultiple,
	}
}

func stateView(id string, s *filestage.Stager) StateView {
	entries := s.Entries()
	views := make([]EntryView, len(entries))
	for i, e := range entries {
		views[i] = entryView(e)
	}
	p := s.Policy()
	return StateView{
		Session:  id,
		Mode:     stage.ModeOf(p.AllowMultiple).String(),
		Policy:   policyView(p),
		Entries:  views,
		Value:    s.Value(),
		Error:    s.Err(),
		Dragging: s.Dragging(),
	}
}
