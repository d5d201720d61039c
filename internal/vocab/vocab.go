// Package vocab holds the read-only domain vocabulary: the ticker whitelist,
// the speech-recognition fix table, and price lookup ids.
package vocab

import (
	_ "embed"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed vocab.yaml
var defaultYAML []byte

// ASRFix is one compiled speech-recognition correction.
type ASRFix struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// Vocabulary is built once at startup and never mutated. All methods are safe
// for concurrent use.
type Vocabulary struct {
	tickers     map[string]bool
	wordTickers map[string]bool
	fixes       []ASRFix
	priceIDs    map[string]string
	tickerRe    *regexp.Regexp
}

type fileFormat struct {
	Tickers     []string          `yaml:"tickers"`
	WordTickers []string          `yaml:"word_tickers"`
	ASRFixes    []fixEntry        `yaml:"asr_fixes"`
	PriceIDs    map[string]string `yaml:"price_ids"`
}

type fixEntry struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// Default returns the embedded vocabulary.
func Default() (*Vocabulary, error) {
	return Parse(defaultYAML)
}

// Load reads a vocabulary file, or the embedded default when path is empty.
func Load(path string) (*Vocabulary, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "vocab: read %s", path)
	}
	return Parse(data)
}

// Parse builds a vocabulary from YAML.
func Parse(data []byte) (*Vocabulary, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "vocab: parse yaml")
	}
	if len(f.Tickers) == 0 {
		return nil, eris.New("vocab: ticker list is empty")
	}

	v := &Vocabulary{
		tickers:     make(map[string]bool, len(f.Tickers)),
		wordTickers: make(map[string]bool, len(f.WordTickers)),
		priceIDs:    make(map[string]string, len(f.PriceIDs)),
	}
	for _, t := range f.Tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		v.tickers[t] = true
	}
	for _, t := range f.WordTickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if !v.tickers[t] {
			return nil, eris.Errorf("vocab: word ticker %q is not in the ticker list", t)
		}
		v.wordTickers[t] = true
	}
	for i, fx := range f.ASRFixes {
		re, err := regexp.Compile("(?i)" + fx.Pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "vocab: asr fix %d", i)
		}
		if re.MatchString(fx.Replacement) {
			// A replacement its own pattern matches would break idempotence.
			return nil, eris.Errorf("vocab: asr fix %d replacement %q matches its pattern", i, fx.Replacement)
		}
		v.fixes = append(v.fixes, ASRFix{Pattern: re, Replacement: fx.Replacement})
	}
	for sym, id := range f.PriceIDs {
		v.priceIDs[strings.ToUpper(sym)] = id
	}

	syms := v.Tickers()
	quoted := make([]string, len(syms))
	for i, s := range syms {
		quoted[i] = regexp.QuoteMeta(s)
	}
	v.tickerRe = regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)

	return v, nil
}

// IsTicker reports whether sym (any case) is whitelisted.
func (v *Vocabulary) IsTicker(sym string) bool {
	return v.tickers[strings.ToUpper(sym)]
}

// IsWordTicker reports whether sym is a whitelisted symbol that is also an English word.
func (v *Vocabulary) IsWordTicker(sym string) bool {
	return v.wordTickers[strings.ToUpper(sym)]
}

// Tickers returns the whitelist sorted alphabetically.
func (v *Vocabulary) Tickers() []string {
	out := make([]string, 0, len(v.tickers))
	for t := range v.tickers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ASRFixes returns the fix table in application order.
func (v *Vocabulary) ASRFixes() []ASRFix {
	return append([]ASRFix(nil), v.fixes...)
}

// ContainsTicker reports whether text mentions a whitelisted symbol in uppercase.
func (v *Vocabulary) ContainsTicker(text string) bool {
	return v.tickerRe.MatchString(text)
}

// PriceID returns the price API id for sym.
func (v *Vocabulary) PriceID(sym string) (string, bool) {
	id, ok := v.priceIDs[strings.ToUpper(sym)]
	return id, ok
}
