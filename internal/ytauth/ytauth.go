// Package ytauth bootstraps and persists the OAuth credential used by the
// official captions stage.
package ytauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ScopeCaptions allows listing and downloading caption tracks.
const ScopeCaptions = "https://www.googleapis.com/auth/youtube.force-ssl"

// Google endpoints used when the client secrets file omits them.
const (
	defaultAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	defaultTokenURL = "https://oauth2.googleapis.com/token"
)

type secretsFile struct {
	Installed *clientSecrets `json:"installed"`
	Web       *clientSecrets `json:"web"`
}

type clientSecrets struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AuthURI      string `json:"auth_uri"`
	TokenURI     string `json:"token_uri"`
}

// ParseClientSecrets builds an oauth2.Config from a downloaded client
// secrets document. Both "installed" and "web" application types are
// accepted.
func ParseClientSecrets(data []byte, scopes ...string) (*oauth2.Config, error) {
	var f secretsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "ytauth: parse client secrets")
	}
	cs := f.Installed
	if cs == nil {
		cs = f.Web
	}
	if cs == nil || cs.ClientID == "" {
		return nil, eris.New("ytauth: client secrets missing client_id")
	}
	if len(scopes) == 0 {
		scopes = []string{ScopeCaptions}
	}
	ep := oauth2.Endpoint{AuthURL: defaultAuthURL, TokenURL: defaultTokenURL}
	if cs.AuthURI != "" {
		ep.AuthURL = cs.AuthURI
	}
	if cs.TokenURI != "" {
		ep.TokenURL = cs.TokenURI
	}
	return &oauth2.Config{
		ClientID:     cs.ClientID,
		ClientSecret: cs.ClientSecret,
		Endpoint:     ep,
		Scopes:       scopes,
	}, nil
}

// LoadClientSecrets reads and parses a client secrets file.
func LoadClientSecrets(path string, scopes ...string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ytauth: read client secrets %s", path)
	}
	return ParseClientSecrets(data, scopes...)
}

// LoadToken reads a token previously written by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ytauth: read token %s", path)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, eris.Wrap(err, "ytauth: parse token")
	}
	if tok.RefreshToken == "" && tok.AccessToken == "" {
		return nil, eris.Errorf("ytauth: token file %s holds no credential", path)
	}
	return &tok, nil
}

// SaveToken writes tok to path with owner-only permissions. The file is
// replaced atomically.
func SaveToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return eris.Wrap(err, "ytauth: marshal token")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return eris.Wrapf(err, "ytauth: create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return eris.Wrap(err, "ytauth: create temp token")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "ytauth: chmod token")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "ytauth: write token")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "ytauth: close token")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrap(err, "ytauth: replace token")
	}
	return nil
}

// Flow runs the installed-app authorization with a loopback redirect.
type Flow struct {
	Config *oauth2.Config
	// Open presents the consent URL to the user, usually by printing it.
	Open func(authURL string) error
	// ListenAddr defaults to 127.0.0.1:0.
	ListenAddr string
	Timeout    time.Duration
}

type callbackResult struct {
	code string
	err  error
}

// Authorize waits for the browser redirect and exchanges the code for a
// token. The caller's Config is not modified.
func (f Flow) Authorize(ctx context.Context) (*oauth2.Token, error) {
	if f.Config == nil {
		return nil, eris.New("ytauth: flow has no oauth config")
	}
	addr := f.ListenAddr
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, eris.Wrap(err, "ytauth: listen for redirect")
	}

	cfg := *f.Config
	cfg.RedirectURL = fmt.Sprintf("http://%s/callback", ln.Addr().String())
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	results := make(chan callbackResult, 1)
	var once sync.Once
	deliver := func(r callbackResult) { once.Do(func() { results <- r }) }

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			deliver(callbackResult{err: eris.New("ytauth: redirect state mismatch")})
		case q.Get("error") != "":
			http.Error(w, "authorization denied", http.StatusForbidden)
			deliver(callbackResult{err: eris.Errorf("ytauth: authorization denied: %s", q.Get("error"))})
		case q.Get("code") == "":
			http.Error(w, "missing code", http.StatusBadRequest)
			deliver(callbackResult{err: eris.New("ytauth: redirect carried no code")})
		default:
			fmt.Fprintln(w, "Authorization complete. You can close this window.")
			deliver(callbackResult{code: q.Get("code")})
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go srv.Serve(ln) //nolint:errcheck
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce, oauth2.S256ChallengeOption(verifier))
	if f.Open != nil {
		if err := f.Open(authURL); err != nil {
			return nil, eris.Wrap(err, "ytauth: open consent url")
		}
	}
	zap.L().Info("ytauth: waiting for authorization redirect", zap.String("redirect_url", cfg.RedirectURL))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var res callbackResult
	select {
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "ytauth: waiting for redirect")
	case res = <-results:
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := cfg.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, eris.Wrap(err, "ytauth: exchange code")
	}
	return tok, nil
}

// persistingSource writes refreshed tokens back to disk so the refresh
// token survives rotation.
type persistingSource struct {
	base oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		if err := SaveToken(p.path, tok); err != nil {
			zap.L().Warn("ytauth: persist refreshed token", zap.Error(err))
		}
	}
	return tok, nil
}

// HTTPClient returns a client that authorizes requests with the stored
// token, refreshing and re-saving it as needed.
func HTTPClient(ctx context.Context, cfg *oauth2.Config, tokenFile string) (*http.Client, error) {
	tok, err := LoadToken(tokenFile)
	if err != nil {
		return nil, err
	}
	src := &persistingSource{
		base: cfg.TokenSource(ctx, tok),
		path: tokenFile,
		last: tok.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}
