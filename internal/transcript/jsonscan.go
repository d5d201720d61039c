package transcript

import (
	"bytes"
	"encoding/json"
)

// extractObject returns the JSON object starting at the first '{' at or
// after from, using brace counting that skips over string literals. It
// returns nil when the object is unterminated.
func extractObject(data []byte, from int) []byte {
	start := bytes.IndexByte(data[from:], '{')
	if start < 0 {
		return nil
	}
	start += from

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(data); i++ {
		c := data[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return data[start : i+1]
			}
		}
	}
	return nil
}

// extractQuoted decodes the JSON string literal starting at the first '"'
// at or after from. Some embed pages carry the player response as an
// escaped string instead of an object.
func extractQuoted(data []byte, from int) (string, bool) {
	start := bytes.IndexByte(data[from:], '"')
	if start < 0 {
		return "", false
	}
	start += from

	escaped := false
	for i := start + 1; i < len(data); i++ {
		switch {
		case escaped:
			escaped = false
		case data[i] == '\\':
			escaped = true
		case data[i] == '"':
			var s string
			if err := json.Unmarshal(data[start:i+1], &s); err != nil {
				return "", false
			}
			return s, true
		}
	}
	return "", false
}
