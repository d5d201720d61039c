package summarize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// Pieces longer than this with no sentence boundary (raw ASR output) are
	// cut into fixed word windows.
	maxSentenceRunes = 400
	windowWords      = 30
)

var wordRe = regexp.MustCompile(`[a-z][a-z']+|\d+(?:[.,]\d+)*`)

var stopwords = toSet(strings.Fields(`
a about above after again against all also am an and any are as at be because been before being
below between both but by can could did do does doing down during each few for from further get
gets going gonna got had has have having he her here hers him his how i if in into is it its
itself just know like me more most my no nor not now of off on once only or other our ours out
over own really right same she should so some such than that the their theirs them then there
these they this those through to too under until up very was we were what when where which while
who whom why will with would yeah you your yours okay ok um uh guys let lets thing things see
want go say said one two well actually basically kind sort
`))

func toSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// splitSentences breaks text at sentence-ending punctuation followed by
// whitespace and a capital, digit, or quote, and at line breaks.
func splitSentences(text string) []string {
	var out []string
	start := 0
	emit := func(end int) {
		out = append(out, splitLong(strings.TrimSpace(text[start:end]))...)
		start = end
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\n' || c == '\r' {
			emit(i)
			start = i + 1
			continue
		}
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		j := i + 1
		for j < len(text) && (text[j] == '.' || text[j] == '!' || text[j] == '?') {
			j++
		}
		if j >= len(text) || (text[j] != ' ' && text[j] != '\t') {
			i = j - 1
			continue
		}
		k := j
		for k < len(text) && (text[k] == ' ' || text[k] == '\t') {
			k++
		}
		if k < len(text) && startsSentence(text[k:]) {
			emit(j)
		}
		i = j - 1
	}
	emit(len(text))
	return out
}

func startsSentence(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r) || unicode.IsDigit(r) || r == '"' || r == '\''
}

// splitLong returns s as one sentence, or as word windows when it is an
// unpunctuated run.
func splitLong(s string) []string {
	if s == "" {
		return nil
	}
	if utf8.RuneCountInString(s) <= maxSentenceRunes {
		return []string{s}
	}
	words := strings.Fields(s)
	out := make([]string, 0, len(words)/windowWords+1)
	for i := 0; i < len(words); i += windowWords {
		end := min(i+windowWords, len(words))
		out = append(out, strings.Join(words[i:end], " "))
	}
	return out
}

// contentWords returns the lowercased non-stopword tokens of s.
func contentWords(s string) []string {
	words := wordRe.FindAllString(strings.ToLower(s), -1)
	out := words[:0]
	for _, w := range words {
		if _, stop := stopwords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// ellipsize shortens s to at most limit runes, cutting at a word boundary
// where one exists.
func ellipsize(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:limit-1])
	if sp := strings.LastIndexByte(cut, ' '); sp > len(cut)/2 {
		cut = cut[:sp]
	}
	return strings.TrimRight(cut, " ,;:-") + "\u2026"
}
