package input

import (
	"context"

	"github.com/vango-dev/filestage/pkg/policy"
)

// Picker is the native file-picker channel.
type Picker struct {
	sink Sink
}

// NewPicker creates a Picker emitting to sink.
func NewPicker(sink Sink) *Picker {
	return &Picker{sink: sink}
}

// Change handles a file-selection event.
func (p *Picker) Change(ctx context.Context, files []policy.File) error {
	if p.sink == nil {
		return nil
	}
	return p.sink(ctx, files)
}
