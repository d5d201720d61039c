package ytauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestParseClientSecrets_Installed(t *testing.T) {
	data := []byte(`{"installed":{"client_id":"cid","client_secret":"sec","auth_uri":"https://auth.example/a","token_uri":"https://auth.example/t"}}`)

	cfg, err := ParseClientSecrets(data)
	require.NoError(t, err)
	assert.Equal(t, "cid", cfg.ClientID)
	assert.Equal(t, "sec", cfg.ClientSecret)
	assert.Equal(t, "https://auth.example/a", cfg.Endpoint.AuthURL)
	assert.Equal(t, "https://auth.example/t", cfg.Endpoint.TokenURL)
	assert.Equal(t, []string{ScopeCaptions}, cfg.Scopes)
}

func TestParseClientSecrets_WebWithDefaults(t *testing.T) {
	data := []byte(`{"web":{"client_id":"cid","client_secret":"sec"}}`)

	cfg, err := ParseClientSecrets(data, "scope-a")
	require.NoError(t, err)
	assert.Equal(t, defaultAuthURL, cfg.Endpoint.AuthURL)
	assert.Equal(t, defaultTokenURL, cfg.Endpoint.TokenURL)
	assert.Equal(t, []string{"scope-a"}, cfg.Scopes)
}

func TestParseClientSecrets_Invalid(t *testing.T) {
	_, err := ParseClientSecrets([]byte(`{}`))
	assert.Error(t, err)

	_, err = ParseClientSecrets([]byte(`not json`))
	assert.Error(t, err)
}

func TestSaveLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	tok := &oauth2.Token{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer"}

	require.NoError(t, SaveToken(path, tok))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "at", got.AccessToken)
	assert.Equal(t, "rt", got.RefreshToken)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestLoadToken_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadToken(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{}`), 0o600))
	_, err = LoadToken(empty)
	assert.Error(t, err)
}

// tokenServer answers authorization-code and refresh grants.
func tokenServer(t *testing.T, grants *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		grants.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			assert.Equal(t, "the-code", r.Form.Get("code"))
			assert.NotEmpty(t, r.Form.Get("code_verifier"))
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
				"access_token": "fresh-access", "refresh_token": "fresh-refresh",
				"token_type": "Bearer", "expires_in": 3600,
			})
		case "refresh_token":
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
				"access_token": "refreshed-access", "token_type": "Bearer", "expires_in": 3600,
			})
		default:
			http.Error(w, "bad grant", http.StatusBadRequest)
		}
	}))
}

func TestFlowAuthorize(t *testing.T) {
	var grants atomic.Int32
	srv := tokenServer(t, &grants)
	defer srv.Close()

	cfg := &oauth2.Config{
		ClientID: "cid",
		Endpoint: oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
		Scopes:   []string{ScopeCaptions},
	}

	flow := Flow{
		Config:  cfg,
		Timeout: 10 * time.Second,
		Open: func(authURL string) error {
			u, err := url.Parse(authURL)
			if err != nil {
				return err
			}
			q := u.Query()
			assert.Equal(t, "offline", q.Get("access_type"))
			assert.Equal(t, "S256", q.Get("code_challenge_method"))
			redirect := q.Get("redirect_uri") + "?code=the-code&state=" + url.QueryEscape(q.Get("state"))
			go func() {
				resp, err := http.Get(redirect)
				if err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		},
	}

	tok, err := flow.Authorize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", tok.AccessToken)
	assert.Equal(t, "fresh-refresh", tok.RefreshToken)
	assert.Empty(t, cfg.RedirectURL, "caller config must not be modified")
}

func TestFlowAuthorize_StateMismatch(t *testing.T) {
	var grants atomic.Int32
	srv := tokenServer(t, &grants)
	defer srv.Close()

	flow := Flow{
		Config:  &oauth2.Config{ClientID: "cid", Endpoint: oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}},
		Timeout: 10 * time.Second,
		Open: func(authURL string) error {
			u, _ := url.Parse(authURL)
			redirect := u.Query().Get("redirect_uri") + "?code=the-code&state=forged"
			go func() {
				resp, err := http.Get(redirect)
				if err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		},
	}

	_, err := flow.Authorize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state mismatch")
	assert.Equal(t, int32(0), grants.Load())
}

func TestFlowAuthorize_Timeout(t *testing.T) {
	flow := Flow{
		Config:  &oauth2.Config{ClientID: "cid", Endpoint: oauth2.Endpoint{AuthURL: "http://127.0.0.1/auth", TokenURL: "http://127.0.0.1/token"}},
		Timeout: 50 * time.Millisecond,
	}
	_, err := flow.Authorize(context.Background())
	assert.Error(t, err)
}

func TestHTTPClient_RefreshesAndPersists(t *testing.T) {
	var grants atomic.Int32
	srv := tokenServer(t, &grants)
	defer srv.Close()

	var seenAuth string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer api.Close()

	path := filepath.Join(t.TempDir(), "token.json")
	expired := &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "keep-me",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-time.Hour),
	}
	require.NoError(t, SaveToken(path, expired))

	cfg := &oauth2.Config{ClientID: "cid", Endpoint: oauth2.Endpoint{TokenURL: srv.URL + "/token"}}
	hc, err := HTTPClient(context.Background(), cfg, path)
	require.NoError(t, err)

	resp, err := hc.Get(api.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer refreshed-access", seenAuth)
	assert.Equal(t, int32(1), grants.Load())

	saved, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "refreshed-access", saved.AccessToken)
	assert.Equal(t, "keep-me", saved.RefreshToken)
}
