// Package grounding verifies that every number in a generated summary is
// present in the source transcript, and redacts the summary's numbers when
// any one of them is not.
package grounding

import (
	"strings"

	"github.com/sells-group/recap-cli/internal/model"
	"github.com/sells-group/recap-cli/internal/numeric"
)

const (
	// DefaultMarker replaces every numeric substring in a scrubbed summary.
	DefaultMarker = "[redacted]"
	// ScrubNote is recorded on a summary whose numbers were redacted.
	ScrubNote = "Figures redacted: one or more numbers could not be matched to the transcript."
)

// Filter is the grounding check. The zero value is not usable; use New.
type Filter struct {
	matcher numeric.Matcher
	marker  string
}

// Option configures a Filter.
type Option func(*Filter)

// WithTolerance sets the relative tolerance used when matching numbers. Zero
// accepts only equal values.
func WithTolerance(tol float64) Option {
	return func(f *Filter) { f.matcher = numeric.NewMatcher(tol) }
}

// WithMarker sets the redaction placeholder.
func WithMarker(marker string) Option {
	return func(f *Filter) {
		if marker != "" {
			f.marker = marker
		}
	}
}

// New creates a grounding Filter.
func New(opts ...Option) *Filter {
	f := &Filter{
		matcher: numeric.NewMatcher(numeric.DefaultTolerance),
		marker:  DefaultMarker,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Unverified returns the numeric substrings of s that have no match in the
// transcript, in order of appearance.
func (f *Filter) Unverified(s *model.Summary, transcript string) []string {
	source := numeric.Parse(transcript)
	var missing []string
	for _, raw := range numeric.Pattern().FindAllString(serialize(s), -1) {
		if !f.matcher.AppearsInTokens(raw, source) {
			missing = append(missing, raw)
		}
	}
	return missing
}

// Ground returns s unchanged when every number in it is found in the
// transcript. Otherwise it returns a copy with every numeric substring in
// every text field replaced by the marker and the scrub note set. Terminal
// summaries are returned as-is.
func (f *Filter) Ground(s model.Summary, transcript string) model.Summary {
	if s.IsTerminal() {
		return s
	}
	if len(f.Unverified(&s, transcript)) == 0 {
		return s
	}
	return f.scrub(s)
}

func (f *Filter) scrub(s model.Summary) model.Summary {
	out := s.Clone()
	re := numeric.Pattern()
	for _, field := range out.TextFields() {
		*field = re.ReplaceAllLiteralString(*field, f.marker)
	}
	out.Note = ScrubNote
	return out
}

// serialize joins the summary's full text surface. Fields are newline
// separated so digits in adjacent fields never fuse into one number.
func serialize(s *model.Summary) string {
	fields := s.TextFields()
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if *f != "" {
			parts = append(parts, *f)
		}
	}
	return strings.Join(parts, "\n")
}
