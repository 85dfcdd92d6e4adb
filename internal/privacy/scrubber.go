// Package privacy holds the PII scrubbing extension point. The current
// implementation is a passthrough; a production deployment would plug in a
// real redaction engine behind the same interface.
package privacy

// Scrubber removes personally identifiable information from extracted text.
type Scrubber interface {
	Scrub(text string) string
}

type passthrough struct{}

// NewScrubber returns the default passthrough scrubber.
func NewScrubber() Scrubber {
	return passthrough{}
}

func (passthrough) Scrub(text string) string {
	return text
}
