package input

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vango-dev/filestage/pkg/policy"
)

// Sink receives a raw candidate list from either channel.
type Sink func(ctx context.Context, files []policy.File) error

// DragType is the kind of a drag event.
type DragType int

const (
	DragEnter DragType = iota + 1
	DragOver
	DragLeave
	Drop
)

var dragTypeNames = map[DragType]string{
	DragEnter: "dragenter",
	DragOver:  "dragover",
	DragLeave: "dragleave",
	Drop:      "drop",
}

func (t DragType) String() string {
	if name, ok := dragTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseDragType parses a DOM event name such as "dragenter".
func ParseDragType(s string) (DragType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range dragTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("input: unknown drag event %q", s)
}

// DragEvent is a drag-and-drop event delivered by the host.
type DragEvent struct {
	Type DragType

	// Files is the dropped file list. Only meaningful for Drop.
	Files []policy.File

	// Position relative to viewport
	ClientX int
	ClientY int

	defaultPrevented bool
}

// PreventDefault suppresses the host's default action for the event.
func (e *DragEvent) PreventDefault() {
	e.defaultPrevented = true
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *DragEvent) DefaultPrevented() bool {
	return e.defaultPrevented
}

// State is the drag machine state.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// DragMachine tracks drag state for one drop zone.
type DragMachine struct {
	sink Sink

	mu    sync.Mutex
	state State
}

// NewDragMachine creates an idle machine emitting drops to sink.
func NewDragMachine(sink Sink) *DragMachine {
	return &DragMachine{sink: sink}
}

// State returns the current state.
func (m *DragMachine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Handle applies ev to the machine. It reports whether ev emitted files,
// and returns the sink's error if it did.
// The sink is called after the machine has returned to idle and without
// the machine's lock held.
func (m *DragMachine) Handle(ctx context.Context, ev *DragEvent) (bool, error) {
	ev.PreventDefault()

	m.mu.Lock()
	var emit []policy.File
	dropped := false
	switch ev.Type {
	case DragEnter, DragOver:
		m.state = Dragging
	case DragLeave:
		m.state = Idle
	case Drop:
		if m.state == Dragging {
			emit = ev.Files
			dropped = true
		}
		m.state = Idle
	}
	m.mu.Unlock()

	if !dropped || m.sink == nil {
		return dropped, nil
	}
	return true, m.sink(ctx, emit)
}

// Reset returns the machine to idle without emitting.
func (m *DragMachine) Reset() {
	m.mu.Lock()
	m.state = Idle
	m.mu.Unlock()
}
