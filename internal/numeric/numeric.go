// Package numeric extracts numeric mentions from free text and compares them
// with a relative tolerance.
package numeric

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultTolerance is the relative difference under which two values match.
const DefaultTolerance = 0.01

// Currency marker, integer with optional thousands separators, optional
// decimal part, then an optional percent sign or k/m magnitude suffix.
var tokenRe = regexp.MustCompile(`(?:[$\x{20AC}\x{00A3}]\s?)?(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?(?:\s?%|[kKmM]\b)?`)

// Token is a single numeric mention.
type Token struct {
	Raw      string
	Value    float64
	Percent  bool
	Currency bool
}

// Pattern returns the regexp used to find numeric substrings.
func Pattern() *regexp.Regexp {
	return tokenRe
}

// Parse returns every numeric mention in text, in order.
func Parse(text string) []Token {
	matches := tokenRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]Token, 0, len(matches))
	for _, m := range matches {
		if tok, ok := parseRaw(m); ok {
			out = append(out, tok)
		}
	}
	return out
}

// ParseOne parses a single numeric expression such as "$4,200" or "1.5k".
// Surrounding text is ignored; the first mention wins.
func ParseOne(s string) (Token, bool) {
	m := tokenRe.FindString(s)
	if m == "" {
		return Token{}, false
	}
	return parseRaw(m)
}

func parseRaw(raw string) (Token, bool) {
	tok := Token{Raw: raw}
	s := raw
	if strings.IndexAny(s, "$\u20ac\u00a3") == 0 {
		tok.Currency = true
		s = strings.TrimSpace(strings.TrimLeft(s, "$\u20ac\u00a3"))
	}

	mult := 1.0
	switch {
	case strings.HasSuffix(s, "%"):
		tok.Percent = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	case strings.HasSuffix(s, "k"), strings.HasSuffix(s, "K"):
		mult = 1e3
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "m"), strings.HasSuffix(s, "M"):
		mult = 1e6
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return Token{}, false
	}
	tok.Value = v * mult
	return tok, true
}

// Key is the raw text with punctuation, whitespace, and case removed. The
// decimal point is kept so "4.2" and "42" stay distinct.
func (t Token) Key() string {
	var b strings.Builder
	for _, r := range strings.ToLower(t.Raw) {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r == '.', r == '%':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Matcher compares numeric tokens.
type Matcher struct {
	// Tolerance is the maximum relative difference, measured against the
	// larger magnitude.
	Tolerance float64
}

// NewMatcher returns a Matcher. Zero tolerance requires equal values; a
// negative tolerance selects DefaultTolerance.
func NewMatcher(tolerance float64) Matcher {
	if tolerance < 0 {
		tolerance = DefaultTolerance
	}
	return Matcher{Tolerance: tolerance}
}

// Matches reports whether a and b refer to the same number. Percent flags
// must agree; then either the normalized raw text is identical or the values
// are within tolerance.
func (m Matcher) Matches(a, b Token) bool {
	if a.Percent != b.Percent {
		return false
	}
	if a.Key() == b.Key() {
		return true
	}
	larger := math.Max(math.Abs(a.Value), math.Abs(b.Value))
	if larger == 0 {
		return true
	}
	return math.Abs(a.Value-b.Value) <= m.Tolerance*larger
}

// AppearsIn reports whether every numeric mention in candidate has a match
// in source. A candidate with no numbers trivially appears.
func (m Matcher) AppearsIn(candidate, source string) bool {
	return m.AppearsInTokens(candidate, Parse(source))
}

// AppearsInTokens is AppearsIn against pre-parsed source tokens.
func (m Matcher) AppearsInTokens(candidate string, source []Token) bool {
	for _, c := range Parse(candidate) {
		if !m.anyMatch(c, source) {
			return false
		}
	}
	return true
}

func (m Matcher) anyMatch(c Token, source []Token) bool {
	for _, s := range source {
		if m.Matches(c, s) {
			return true
		}
	}
	return false
}
