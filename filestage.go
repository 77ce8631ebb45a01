// Package filestage stages user-selected files for a form.
//
// A Stager accepts files from a drop zone and a file picker, validates them
// against an immutable size/type policy, keeps the accepted ones in order
// (one in single mode, any number in multi mode), owns a preview for every
// staged image, and reports the accepted set to its owner after every
// change.
//
// Usage:
//
//	s, err := filestage.New(ctx, filestage.Options{
//	    AllowMultiple:  true,
//	    MaxSizeBytes:   5 << 20,
//	    AcceptPatterns: []string{"image/*"},
//	    OnChange: func(v stage.Value) {
//	        form.SetAttachments(v.Files())
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	defer s.Close(ctx)
//
//	s.Pick(ctx, files)      // picker change event
//	s.Drag(ctx, dragEvent)  // dragenter/dragover/dragleave/drop
//	if msg := s.Err(); msg != "" {
//	    toast.Error(msg)
//	}
//
// Close tears the stager down and releases every preview exactly once.
package filestage

import (
	ferrors "github.com/vango-dev/filestage/internal/errors"
)

// ErrClosed is returned by operations on a Stager after Close.
var ErrClosed = ferrors.New("S002")
