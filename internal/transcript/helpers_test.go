package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
)

var errNotFound = errors.New("404")

// fakeHTTP routes requests to canned bodies by URL substring.
type fakeHTTP struct {
	mu     sync.Mutex
	routes []route
	calls  []string
	posts  []map[string]any
}

type route struct {
	contains string
	body     string
	err      error
}

func (f *fakeHTTP) on(contains, body string) *fakeHTTP {
	f.routes = append(f.routes, route{contains: contains, body: body})
	return f
}

func (f *fakeHTTP) fail(contains string, err error) *fakeHTTP {
	f.routes = append(f.routes, route{contains: contains, err: err})
	return f
}

func (f *fakeHTTP) Get(_ context.Context, rawURL string, _ http.Header) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rawURL)
	for _, r := range f.routes {
		if strings.Contains(rawURL, r.contains) {
			if r.err != nil {
				return nil, r.err
			}
			return []byte(r.body), nil
		}
	}
	return nil, errNotFound
}

func (f *fakeHTTP) PostJSON(ctx context.Context, rawURL string, h http.Header, payload any) ([]byte, error) {
	raw, _ := json.Marshal(payload)
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	f.mu.Lock()
	f.posts = append(f.posts, m)
	f.mu.Unlock()
	return f.Get(ctx, rawURL, h)
}

func (f *fakeHTTP) called(contains string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.Contains(c, contains) {
			n++
		}
	}
	return n
}

// identity normalizer for tests that check raw stage output.
type identity struct{}

func (identity) Normalize(s string) string { return strings.TrimSpace(s) }

func json3Body(lines ...string) string {
	type seg struct {
		UTF8 string `json:"utf8"`
	}
	type event struct {
		Segs []seg `json:"segs"`
	}
	doc := struct {
		Events []event `json:"events"`
	}{}
	for _, l := range lines {
		doc.Events = append(doc.Events, event{Segs: []seg{{UTF8: l}}})
	}
	b, _ := json.Marshal(doc)
	return string(b)
}

func playerJSON(tracks ...Track) string {
	type name struct {
		SimpleText string `json:"simpleText"`
	}
	type ct struct {
		BaseURL      string `json:"baseUrl"`
		LanguageCode string `json:"languageCode"`
		Kind         string `json:"kind,omitempty"`
		Name         name   `json:"name"`
	}
	var cts []ct
	for _, t := range tracks {
		cts = append(cts, ct{BaseURL: t.BaseURL, LanguageCode: t.Language, Kind: t.Kind, Name: name{t.Name}})
	}
	doc := map[string]any{
		"playabilityStatus": map[string]any{"status": "OK"},
		"captions": map[string]any{
			"playerCaptionsTracklistRenderer": map[string]any{"captionTracks": cts},
		},
	}
	b, _ := json.Marshal(doc)
	return string(b)
}
