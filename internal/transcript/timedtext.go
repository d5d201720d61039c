package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

type json3Doc struct {
	Events []struct {
		Segs []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// parseJSON3 flattens a json3 timed-text payload into plain text.
func parseJSON3(data []byte) (string, error) {
	var doc json3Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", eris.Wrap(err, "transcript: decode json3")
	}
	parts := make([]string, 0, len(doc.Events))
	for _, ev := range doc.Events {
		var line strings.Builder
		for _, seg := range ev.Segs {
			line.WriteString(seg.UTF8)
		}
		if t := strings.TrimSpace(line.String()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}

// parseXMLTimedText extracts cue text from the legacy <transcript><text>
// format and the srv3 <timedtext><body><p> format. Cue bodies are
// entity-encoded twice by YouTube, so one extra unescape pass is applied.
func parseXMLTimedText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", eris.Wrap(err, "transcript: parse timedtext xml")
	}
	var parts []string
	doc.Find("text, p").Each(func(_ int, s *goquery.Selection) {
		if t := stripMarkup(html.UnescapeString(s.Text())); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, " "), nil
}

// stripMarkup removes inline tags such as <font> or <i> from cue text.
func stripMarkup(s string) string {
	if strings.ContainsRune(s, '<') {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

func withFormat(baseURL, format string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", eris.Wrap(err, "transcript: parse track url")
	}
	q := u.Query()
	if format == "" {
		q.Del("fmt")
	} else {
		q.Set("fmt", format)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// fetchTrackText downloads a caption track as json3, falling back to the
// XML timed-text format.
func fetchTrackText(ctx context.Context, hc HTTPClient, baseURL string) (string, error) {
	jsonURL, err := withFormat(baseURL, "json3")
	if err != nil {
		return "", err
	}
	var firstErr error
	if body, err := hc.Get(ctx, jsonURL, nil); err != nil {
		firstErr = err
	} else if text, err := parseJSON3(body); err != nil {
		firstErr = err
	} else if text != "" {
		return text, nil
	}

	xmlURL, err := withFormat(baseURL, "")
	if err != nil {
		return "", err
	}
	body, err := hc.Get(ctx, xmlURL, nil)
	if err != nil {
		if firstErr != nil {
			return "", eris.Wrapf(err, "transcript: json3 failed (%v), xml failed", firstErr)
		}
		return "", err
	}
	return parseXMLTimedText(body)
}
