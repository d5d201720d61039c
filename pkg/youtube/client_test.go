package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestUploadsPlaylist(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/channels", r.URL.Path)
		assert.Equal(t, "UC123", r.URL.Query().Get("id"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"items":[{"contentDetails":{"relatedPlaylists":{"uploads":"UU123"}}}]}`))
	})

	id, err := c.UploadsPlaylist(context.Background(), "UC123")
	require.NoError(t, err)
	assert.Equal(t, "UU123", id)
}

func TestUploadsPlaylist_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	})
	_, err := c.UploadsPlaylist(context.Background(), "UC123")
	assert.ErrorContains(t, err, "not found")
}

func TestListPlaylists_Paginates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = w.Write([]byte(`{"nextPageToken":"p2","items":[{"id":"PL1","snippet":{"title":"Daily Recap"}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"id":"PL2","snippet":{"title":"Shorts"}}]}`))
	})

	got, err := c.ListPlaylists(context.Background(), "UC123")
	require.NoError(t, err)
	assert.Equal(t, []Playlist{{ID: "PL1", Title: "Daily Recap"}, {ID: "PL2", Title: "Shorts"}}, got)
}

func TestListPlaylistItems(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "UU123", r.URL.Query().Get("playlistId"))
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = w.Write([]byte(`{"nextPageToken":"p2","items":[
				{"snippet":{"title":"A","description":"d","publishedAt":"2026-10-01T12:00:00Z","resourceId":{"videoId":"a1"}},
				 "contentDetails":{"videoId":"a1","videoPublishedAt":"2026-10-01T11:00:00Z"}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[
			{"snippet":{"title":"B","publishedAt":"2026-09-30T12:00:00Z","resourceId":{"videoId":"b2"}},"contentDetails":{}},
			{"snippet":{"title":"C","publishedAt":"2026-09-29T12:00:00Z","resourceId":{"videoId":"c3"}},"contentDetails":{}}]}`))
	})

	got, err := c.ListPlaylistItems(context.Background(), "UU123", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].VideoID)
	assert.Equal(t, time.Date(2026, 10, 1, 11, 0, 0, 0, time.UTC), got[0].PublishedAt.UTC())
	assert.Equal(t, "b2", got[1].VideoID)
	assert.Equal(t, time.Date(2026, 9, 30, 12, 0, 0, 0, time.UTC), got[1].PublishedAt.UTC())
	assert.Equal(t, 2, calls)
}

func TestListCaptions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/captions", r.URL.Path)
		assert.Equal(t, "vid", r.URL.Query().Get("videoId"))
		_, _ = w.Write([]byte(`{"items":[{"id":"cap1","snippet":{"videoId":"vid","language":"en","trackKind":"asr","name":""}}]}`))
	})

	got, err := c.ListCaptions(context.Background(), "vid")
	require.NoError(t, err)
	assert.Equal(t, []Caption{{ID: "cap1", VideoID: "vid", Language: "en", TrackKind: "asr"}}, got)
}

func TestDownloadCaption(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/captions/cap1", r.URL.Path)
		assert.Equal(t, "srt", r.URL.Query().Get("tfmt"))
		_, _ = w.Write([]byte("1\n00:00:00,000 --> 00:00:01,000\nhello\n"))
	})

	got, err := c.DownloadCaption(context.Background(), "cap1", "srt")
	require.NoError(t, err)
	assert.Contains(t, string(got), "hello")
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"forbidden", http.StatusForbidden, `{"error":{"message":"quotaExceeded"}}`, "unexpected status 403"},
		{"malformed", http.StatusOK, `{bad`, "unmarshal response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.ListCaptions(context.Background(), "vid")
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNoKeyWithOAuthClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("key"))
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	got, err := c.ListCaptions(context.Background(), "vid")
	require.NoError(t, err)
	assert.Empty(t, got)
}
