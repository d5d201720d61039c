// Package textnorm canonicalizes transcript and summary text.
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/recap-cli/internal/vocab"
)

const (
	minSpelledRun = 2
	maxSpelledRun = 5
)

var (
	whitespaceRe = regexp.MustCompile(`[\s\p{Z}\x{85}]+`)
	shortWordRe  = regexp.MustCompile(`\b[A-Za-z]{2,5}\b`)

	zeroWidth = strings.NewReplacer(
		"\u200b", "",
		"\u200c", "",
		"\u200d", "",
		"\u2060", "",
		"\ufeff", "",
	)
	quoteFold = strings.NewReplacer(
		"\u2018", "'",
		"\u2019", "'",
		"\u201a", "'",
		"\u201b", "'",
		"\u201c", `"`,
		"\u201d", `"`,
		"\u201e", `"`,
		"\u201f", `"`,
	)
)

// Normalizer applies the canonicalization steps in a fixed order. It holds
// only read-only state and is safe for concurrent use.
type Normalizer struct {
	vocab *vocab.Vocabulary
}

// New creates a Normalizer over v.
func New(v *vocab.Vocabulary) *Normalizer {
	return &Normalizer{vocab: v}
}

// Normalize returns the canonical form of s. It never fails and
// Normalize(Normalize(s)) == Normalize(s).
func (n *Normalizer) Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = canonicalize(s)
	s = collapseSpelled(s)
	for _, fx := range n.vocab.ASRFixes() {
		s = fx.Pattern.ReplaceAllLiteralString(s, fx.Replacement)
	}
	s = shortWordRe.ReplaceAllStringFunc(s, n.upperTicker)
	return collapseSpace(s)
}

// NormalizeAll normalizes every element of in place.
func (n *Normalizer) NormalizeAll(in []string) {
	for i := range in {
		in[i] = n.Normalize(in[i])
	}
}

func (n *Normalizer) upperTicker(tok string) string {
	if !n.vocab.IsTicker(tok) || n.vocab.IsWordTicker(tok) {
		return tok
	}
	return strings.ToUpper(tok)
}

func canonicalize(s string) string {
	s = zeroWidth.Replace(s)
	s = norm.NFKC.String(s)
	s = quoteFold.Replace(s)
	return collapseSpace(s)
}

func collapseSpace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// collapseSpelled joins maximal runs of 2-5 single-letter tokens ("S O L")
// into one uppercase token. Longer runs are left alone. Only the last letter
// of a run may carry trailing punctuation.
func collapseSpelled(s string) string {
	toks := strings.Split(s, " ")
	out := make([]string, 0, len(toks))
	for i := 0; i < len(toks); {
		if _, ok := singleLetter(toks[i]); !ok {
			out = append(out, toks[i])
			i++
			continue
		}
		j := i
		for j < len(toks) {
			_, ok := singleLetter(toks[j])
			if !ok {
				break
			}
			j++
			if hasTrailingPunct(toks[j-1]) {
				break
			}
		}
		run := toks[i:j]
		if len(run) < minSpelledRun || len(run) > maxSpelledRun {
			out = append(out, run...)
		} else {
			var b strings.Builder
			for _, t := range run {
				letter, _ := singleLetter(t)
				b.WriteByte(letter)
			}
			joined := strings.ToUpper(b.String())
			last := run[len(run)-1]
			out = append(out, joined+last[1:])
		}
		i = j
	}
	return strings.Join(out, " ")
}

// singleLetter reports whether tok is one ASCII letter, optionally followed
// by sentence punctuation.
func singleLetter(tok string) (byte, bool) {
	if tok == "" || !isASCIILetter(tok[0]) {
		return 0, false
	}
	rest := tok[1:]
	if rest != "" && strings.Trim(rest, ".,!?;:") != "" {
		return 0, false
	}
	return tok[0], true
}

func hasTrailingPunct(tok string) bool {
	return len(tok) > 1
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
