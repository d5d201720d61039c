package transcript

import "strings"

// SRTToText converts SubRip captions to plain text by dropping sequence
// numbers and timestamp lines and joining the cue text.
func SRTToText(srt string) string {
	srt = strings.TrimPrefix(srt, "\ufeff")
	lines := strings.Split(strings.ReplaceAll(srt, "\r\n", "\n"), "\n")

	var parts []string
	var prev string
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "-->") {
			continue
		}
		if isDigits(line) && i+1 < len(lines) && strings.Contains(lines[i+1], "-->") {
			continue
		}
		line = stripMarkup(line)
		// auto captions repeat the previous cue's last line
		if line == "" || line == prev {
			continue
		}
		parts = append(parts, line)
		prev = line
	}
	return strings.Join(parts, " ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
