package policy

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	ferrors "github.com/vango-dev/filestage/internal/errors"
)

const megabyte = 1 << 20

// FormatLimit renders a size limit for user-facing messages.
// Limits of half a megabyte or more are rounded to whole megabytes
// ("1MB" for 1_000_000); smaller ones fall back to humanized bytes.
func FormatLimit(n int64) string {
	mb := float64(n) / megabyte
	if mb >= 0.5 {
		return fmt.Sprintf("%dMB", int64(math.Round(mb)))
	}
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// ParseSize parses a human size such as "10MB", "512KiB" or "1048576".
func ParseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, ferrors.New("S011").Wrap(err)
	}
	if n > math.MaxInt64 {
		return 0, ferrors.New("S011").WithDetail(fmt.Sprintf("%q is too large", s))
	}
	return int64(n), nil
}
