package policy

import "fmt"

// Kind classifies a rejection.
type Kind int

const (
	// SizeExceeded means the file is larger than the policy limit.
	SizeExceeded Kind = iota + 1

	// TypeRejected means no accept pattern matched the file's MIME type.
	TypeRejected
)

func (k Kind) String() string {
	switch k {
	case SizeExceeded:
		return "size_exceeded"
	case TypeRejected:
		return "type_rejected"
	default:
		return "unknown"
	}
}

// Rejection records why one file was left out of a batch.
type Rejection struct {
	Kind    Kind
	File    File
	Message string
}

// Verdict is the result of evaluating one capture batch.
type Verdict struct {
	// Accepted holds every file that passed, in input order.
	Accepted []File

	// Reason is the message of the last rejection, or "" if none.
	Reason string

	// Rejections holds every rejection in input order.
	Rejections []Rejection
}

// Rejected reports whether any file in the batch was rejected.
func (v Verdict) Rejected() bool {
	return len(v.Rejections) > 0
}

// Evaluate checks files against p in order.
//
// The size check runs first; a file that passes it is then matched against
// the accept patterns. A failing file is excluded without aborting the batch.
// Only the last rejection is surfaced in Reason. An empty batch yields an
// empty Verdict.
func Evaluate(files []File, p *Policy) Verdict {
	var v Verdict
	if len(files) == 0 {
		return v
	}
	acceptAll := p.AcceptsAll()

	for _, f := range files {
		if f.Size > p.MaxSizeBytes {
			v.reject(SizeExceeded, f, fmt.Sprintf("file %q exceeds the %s size limit", f.Name, FormatLimit(p.MaxSizeBytes)))
			continue
		}
		if !acceptAll && !Matches(f.MIMEType, p.AcceptPatterns) {
			v.reject(TypeRejected, f, fmt.Sprintf("file type %q is not accepted (%s)", displayType(f.MIMEType), f.Name))
			continue
		}
		v.Accepted = append(v.Accepted, f)
	}
	return v
}

func (v *Verdict) reject(kind Kind, f File, msg string) {
	v.Rejections = append(v.Rejections, Rejection{Kind: kind, File: f, Message: msg})
	v.Reason = msg
}

func displayType(mimeType string) string {
	if mimeType == "" {
		return "unknown"
	}
	return mimeType
}
