// Package tier applies the free/premium limits to uploads and extracted text.
package tier

import (
	"errors"
	"fmt"
)

// ErrFileTooLarge is returned when a free upload exceeds the size limit.
var ErrFileTooLarge = errors.New("file exceeds free tier size limit")

// TruncationNotice is appended to free-tier text cut at the limit.
const TruncationNotice = "\n\n[Upgrade to premium to view the full text]"

const bytesPerMB = 1024 * 1024

// Limits are the free-tier caps.
type Limits struct {
	FreeFileSizeMB float64
	FreeTextLimit  int
}

// Policy enforces Limits. Premium users bypass both caps.
type Policy struct {
	limits Limits
}

// NewPolicy returns a Policy for limits.
func NewPolicy(limits Limits) Policy {
	return Policy{limits: limits}
}

// Limits returns the configured caps.
func (p Policy) Limits() Limits {
	return p.limits
}

// SizeMB converts a byte count to megabytes (1 MB = 1024*1024 bytes).
func SizeMB(size int64) float64 {
	return float64(size) / bytesPerMB
}

// CheckSize rejects free uploads strictly larger than the size limit.
func (p Policy) CheckSize(isPremium bool, sizeBytes int64) error {
	if isPremium {
		return nil
	}
	if mb := SizeMB(sizeBytes); mb > p.limits.FreeFileSizeMB {
		return fmt.Errorf("%w: %.2fMB > %gMB", ErrFileTooLarge, mb, p.limits.FreeFileSizeMB)
	}
	return nil
}

// Apply truncates free-tier text longer than the text limit to exactly
// FreeTextLimit characters followed by TruncationNotice. Length is counted
// in Unicode code points. The second result reports whether text was cut.
func (p Policy) Apply(isPremium bool, text string) (string, bool) {
	if isPremium || p.limits.FreeTextLimit <= 0 {
		return text, false
	}
	limit := p.limits.FreeTextLimit
	count := 0
	for i := range text {
		if count == limit {
			return text[:i] + TruncationNotice, true
		}
		count++
	}
	return text, false
}
