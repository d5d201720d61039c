// Package mocks provides test doubles for the youtube client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	youtube "github.com/sells-group/recap-cli/pkg/youtube"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// UploadsPlaylist provides a mock function with given fields: ctx, channelID
func (_m *MockClient) UploadsPlaylist(ctx context.Context, channelID string) (string, error) {
	ret := _m.Called(ctx, channelID)

	if len(ret) == 0 {
		panic("no return value specified for UploadsPlaylist")
	}

	return ret.String(0), ret.Error(1)
}

// ListPlaylists provides a mock function with given fields: ctx, channelID
func (_m *MockClient) ListPlaylists(ctx context.Context, channelID string) ([]youtube.Playlist, error) {
	ret := _m.Called(ctx, channelID)

	if len(ret) == 0 {
		panic("no return value specified for ListPlaylists")
	}

	var r0 []youtube.Playlist
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]youtube.Playlist)
	}
	return r0, ret.Error(1)
}

// ListPlaylistItems provides a mock function with given fields: ctx, playlistID, limit
func (_m *MockClient) ListPlaylistItems(ctx context.Context, playlistID string, limit int) ([]youtube.PlaylistItem, error) {
	ret := _m.Called(ctx, playlistID, limit)

	if len(ret) == 0 {
		panic("no return value specified for ListPlaylistItems")
	}

	var r0 []youtube.PlaylistItem
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]youtube.PlaylistItem)
	}
	return r0, ret.Error(1)
}

// ListCaptions provides a mock function with given fields: ctx, videoID
func (_m *MockClient) ListCaptions(ctx context.Context, videoID string) ([]youtube.Caption, error) {
	ret := _m.Called(ctx, videoID)

	if len(ret) == 0 {
		panic("no return value specified for ListCaptions")
	}

	var r0 []youtube.Caption
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]youtube.Caption)
	}
	return r0, ret.Error(1)
}

// DownloadCaption provides a mock function with given fields: ctx, captionID, format
func (_m *MockClient) DownloadCaption(ctx context.Context, captionID string, format string) ([]byte, error) {
	ret := _m.Called(ctx, captionID, format)

	if len(ret) == 0 {
		panic("no return value specified for DownloadCaption")
	}

	var r0 []byte
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]byte)
	}
	return r0, ret.Error(1)
}

// NewMockClient creates a new instance of MockClient. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
