package discovery

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns:media="http://search.yahoo.com/mrss/" xmlns="http://www.w3.org/2005/Atom">
 <title>Trading Channel</title>
 <entry>
  <id>yt:video:abc123def45</id>
  <yt:videoId>abc123def45</yt:videoId>
  <yt:channelId>UC123</yt:channelId>
  <title>BTC weekly outlook</title>
  <link rel="alternate" href="https://www.youtube.com/watch?v=abc123def45"/>
  <published>2026-03-09T14:00:00+00:00</published>
  <media:group>
   <media:title>BTC weekly outlook</media:title>
   <media:description>Levels for the week ahead</media:description>
  </media:group>
 </entry>
 <entry>
  <id>yt:video:zzz999yyy88</id>
  <title>No extension id</title>
  <link rel="alternate" href="https://www.youtube.com/watch?v=zzz999yyy88"/>
  <published>2026-03-08T14:00:00+00:00</published>
 </entry>
</feed>`

type fakeGetter struct {
	body []byte
	err  error
	urls []string
}

func (f *fakeGetter) Get(_ context.Context, rawURL string, _ http.Header) ([]byte, error) {
	f.urls = append(f.urls, rawURL)
	return f.body, f.err
}

func TestFeedSource_Channel(t *testing.T) {
	g := &fakeGetter{body: []byte(sampleFeed)}
	src := NewFeedSource(g, WithFeedURL("http://feed.test/videos.xml"))

	got, err := src.List(context.Background(), "UC123", "")
	require.NoError(t, err)
	require.Equal(t, []string{"http://feed.test/videos.xml?channel_id=UC123"}, g.urls)

	require.Len(t, got, 2)
	assert.Equal(t, "abc123def45", got[0].ID)
	assert.Equal(t, "BTC weekly outlook", got[0].Title)
	assert.Equal(t, "Levels for the week ahead", got[0].Description)
	assert.Equal(t, time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC), got[0].PublishedAt)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123def45", got[0].URL)

	assert.Equal(t, "zzz999yyy88", got[1].ID)
}

func TestFeedSource_Playlist(t *testing.T) {
	g := &fakeGetter{body: []byte(sampleFeed)}
	src := NewFeedSource(g, WithFeedURL("http://feed.test/videos.xml"))

	_, err := src.List(context.Background(), "UC123", "PLabcdefghijklmnop")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://feed.test/videos.xml?playlist_id=PLabcdefghijklmnop"}, g.urls)

	_, err = src.List(context.Background(), "UC123", "Daily Recap")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "playlist id")
	assert.Len(t, g.urls, 1, "title lookups never hit the feed")
}

func TestFeedSource_Errors(t *testing.T) {
	_, err := NewFeedSource(&fakeGetter{err: errors.New("503")}).List(context.Background(), "UC123", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch feed")

	_, err = NewFeedSource(&fakeGetter{body: []byte("<html>nope")}).List(context.Background(), "UC123", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse feed")
}

func TestLooksLikePlaylistID(t *testing.T) {
	assert.True(t, looksLikePlaylistID("PLx7Yw2bJd0Qw1abc"))
	assert.True(t, looksLikePlaylistID("UU1234567890abcdef"))
	assert.False(t, looksLikePlaylistID("PL short"))
	assert.False(t, looksLikePlaylistID("Playlist of the week"))
	assert.False(t, looksLikePlaylistID("Daily"))
}
