package summarize

import (
	"bytes"
	"encoding/json"
	"strings"
)

// llmSummary is the response shape. Every leaf is tolerant of the wrong
// scalar type, and the long-form fields are also accepted at the top level.
type llmSummary struct {
	Bullets flexStrings `json:"bullets"`
	Long    *llmLong    `json:"long"`
	llmLong
}

type llmLong struct {
	Context        flexString  `json:"context"`
	KeyLevels      []llmLevel  `json:"key_levels"`
	Setups         []llmSetup  `json:"setups"`
	Takeaways      flexStrings `json:"takeaways"`
	Catalysts      flexStrings `json:"catalysts"`
	NotableDetails flexStrings `json:"notable_details"`
}

type llmLevel struct {
	Asset flexString `json:"asset"`
	Level flexString `json:"level"`
	Role  flexString `json:"role"`
	Notes flexString `json:"notes"`
}

type llmSetup struct {
	Name         flexString  `json:"name"`
	Thesis       flexString  `json:"thesis"`
	Trigger      flexString  `json:"trigger"`
	Invalidation flexString  `json:"invalidation"`
	Targets      flexStrings `json:"targets"`
}

// long returns the nested long-form object, or the top-level fields when the
// model flattened the structure.
func (s llmSummary) long() llmLong {
	if s.Long != nil {
		return *s.Long
	}
	return s.llmLong
}

// flexString accepts a string, number, boolean, or array of those.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case '[':
		var parts flexStrings
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		*f = flexString(strings.Join(parts, ", "))
	case '{':
		*f = ""
	default:
		*f = flexString(data)
	}
	return nil
}

// flexStrings accepts an array or a single scalar.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}
	if data[0] != '[' {
		var one flexString
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		if one != "" {
			*f = flexStrings{string(one)}
		}
		return nil
	}
	var items []flexString
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(flexStrings, 0, len(items))
	for _, it := range items {
		out = append(out, string(it))
	}
	*f = out
	return nil
}

// cleanJSON strips markdown fences and any prose around the outermost object.
func cleanJSON(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}

// parseResponse decodes a model response. A malformed payload yields the
// empty value and false.
func parseResponse(content string) (llmSummary, bool) {
	var out llmSummary
	if err := json.Unmarshal([]byte(cleanJSON(content)), &out); err != nil {
		return llmSummary{}, false
	}
	return out, true
}
