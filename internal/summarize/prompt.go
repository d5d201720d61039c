package summarize

import (
	"fmt"
	"strings"

	"github.com/sells-group/recap-cli/internal/model"
)

const descriptionRunes = 600

const systemPromptTemplate = `You summarize trading videos from their transcripts. Respond with a single JSON object and nothing else.

Rules:
1. Only use asset tickers from this list, spelled exactly as shown: %s. If an asset is not on the list, leave "asset" empty.
2. Keep ticker casing exactly as listed.
3. Only include numbers that appear in the transcript. Never round, convert, or estimate figures.
4. If a level, role, trigger, or target is uncertain, write "unspecified" instead of inventing a value.
5. At most 3 bullets, 60 words in total.

Schema:
{
  "bullets": ["..."],
  "long": {
    "context": "one short paragraph",
    "key_levels": [{"asset": "BTC", "level": "64000", "role": "support|resistance|pivot|unspecified", "notes": "..."}],
    "setups": [{"name": "...", "thesis": "...", "trigger": "...", "invalidation": "...", "targets": ["..."]}],
    "takeaways": ["..."],
    "catalysts": ["..."],
    "notable_details": ["..."]
  }
}`

func systemPrompt(tickers []string) string {
	return fmt.Sprintf(systemPromptTemplate, strings.Join(tickers, ", "))
}

func userPrompt(video model.VideoRef, transcript string) string {
	var b strings.Builder
	if video.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", video.Title)
	}
	if d := strings.TrimSpace(video.Description); d != "" {
		fmt.Fprintf(&b, "Description: %s\n", ellipsize(d, descriptionRunes))
	}
	b.WriteString("\nTranscript:\n")
	b.WriteString(transcript)
	return b.String()
}
