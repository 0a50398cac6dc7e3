package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kingrea/newsroom/internal/domain"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeProvider is a minimal GoTrue + PostgREST stand-in.
type fakeProvider struct {
	t *testing.T

	mu         sync.Mutex
	challenges map[string]string // auth code -> challenge
	refreshes  atomic.Int32
	logouts    atomic.Int32
	refreshErr int
	gate       chan struct{}
	role       string
	profileErr int
}

func newFakeProvider(t *testing.T) (*fakeProvider, *httptest.Server) {
	fp := &fakeProvider{t: t, challenges: map[string]string{}, role: "editor"}
	srv := httptest.NewServer(http.HandlerFunc(fp.serve))
	t.Cleanup(srv.Close)
	return fp, srv
}

func (fp *fakeProvider) expectCode(code, challenge string) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.challenges[code] = challenge
}

func (fp *fakeProvider) serve(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("apikey") != "anon" {
		http.Error(w, `{"msg":"missing apikey"}`, http.StatusUnauthorized)
		return
	}
	switch r.URL.Path {
	case "/auth/v1/token":
		fp.serveToken(w, r)
	case "/auth/v1/logout":
		fp.logouts.Add(1)
		w.WriteHeader(http.StatusNoContent)
	case "/rest/v1/profiles":
		if fp.profileErr != 0 {
			w.WriteHeader(fp.profileErr)
			_, _ = w.Write([]byte(`{"message":"JSON object requested, multiple (or no) rows returned"}`))
			return
		}
		assert.Equal(fp.t, "application/vnd.pgrst.object+json", r.Header.Get("Accept"))
		assert.Equal(fp.t, "role", r.URL.Query().Get("select"))
		assert.Equal(fp.t, "eq.user-1", r.URL.Query().Get("id"))
		_ = json.NewEncoder(w).Encode(map[string]string{"role": fp.role})
	default:
		http.NotFound(w, r)
	}
}

func (fp *fakeProvider) serveToken(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"bad json"}`, http.StatusBadRequest)
		return
	}
	switch r.URL.Query().Get("grant_type") {
	case "pkce":
		fp.mu.Lock()
		challenge, ok := fp.challenges[body["auth_code"]]
		fp.mu.Unlock()
		if !ok || challengeFor(body["code_verifier"]) != challenge {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"code verifier mismatch"}`))
			return
		}
		writeToken(w, "access-1", "refresh-1")
	case "refresh_token":
		fp.refreshes.Add(1)
		if fp.gate != nil {
			<-fp.gate
		}
		if fp.refreshErr != 0 {
			w.WriteHeader(fp.refreshErr)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid Refresh Token"}`))
			return
		}
		assert.Equal(fp.t, "refresh-0", body["refresh_token"])
		writeToken(w, "access-2", "refresh-2")
	default:
		http.Error(w, "unsupported grant", http.StatusBadRequest)
	}
}

func writeToken(w http.ResponseWriter, access, refresh string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
		"expires_in":    3600,
		"expires_at":    testNow.Add(time.Hour).Unix(),
		"user":          map[string]string{"id": "user-1", "email": "ada@example.com"},
	})
}

func noKeepAlive() *http.Client {
	return &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 5 * time.Second}
}

func testSettings(t *testing.T, providerURL string) Settings {
	return Settings{
		URL:           providerURL,
		AnonKey:       "anon",
		SessionPath:   filepath.Join(t.TempDir(), "session.json"),
		Callback:      CallbackSettings{Host: "127.0.0.1", Port: 0, Path: "/"},
		SignInTimeout: 5 * time.Second,
	}
}

func newTestClient(settings Settings, opts ...Option) *Client {
	base := []Option{
		WithHTTPClient(noKeepAlive()),
		WithClock(func() time.Time { return testNow }),
	}
	return NewClient(settings, append(base, opts...)...)
}

func recordEvents(c *Client) (func() []Event, func()) {
	var mu sync.Mutex
	var events []Event
	unsubscribe := c.Subscribe(func(evt Event) {
		mu.Lock()
		events = append(events, evt)
		mu.Unlock()
	})
	return func() []Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]Event(nil), events...)
	}, unsubscribe
}

func TestAuthorizeURL(t *testing.T) {
	c := NewClient(Settings{URL: "https://id.example/", AnonKey: "anon"})
	raw := c.AuthorizeURL(domain.ProviderGitHub, "http://localhost:3000/?nonce=n1", "chal")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/auth/v1/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "github", q.Get("provider"))
	assert.Equal(t, "http://localhost:3000/?nonce=n1", q.Get("redirect_to"))
	assert.Equal(t, "chal", q.Get("code_challenge"))
	assert.Equal(t, "s256", q.Get("code_challenge_method"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
}

func TestSignInCompletesPKCEFlow(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fp, srv := newFakeProvider(t)
	defer srv.Close()
	settings := testSettings(t, srv.URL)
	browserDone := make(chan struct{})
	browser := func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		q := u.Query()
		fp.expectCode("code-xyz", q.Get("code_challenge"))
		redirect, err := url.Parse(q.Get("redirect_to"))
		if err != nil {
			return err
		}
		rq := redirect.Query()
		rq.Set("code", "code-xyz")
		redirect.RawQuery = rq.Encode()
		go func() {
			defer close(browserDone)
			resp, err := noKeepAlive().Get(redirect.String())
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}
	c := newTestClient(settings, WithBrowser(browser))
	events, unsubscribe := recordEvents(c)
	defer unsubscribe()

	session, err := c.SignIn(context.Background(), domain.ProviderGoogle)
	require.NoError(t, err)
	<-browserDone

	assert.Equal(t, "access-1", session.AccessToken)
	assert.Equal(t, "user-1", session.UserID())
	assert.Equal(t, testNow.Add(time.Hour), session.ExpiresAt)

	info, err := os.Stat(settings.SessionPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	stored, err := NewFileStore(settings.SessionPath).Load()
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", stored.RefreshToken)

	got := events()
	require.Len(t, got, 1)
	assert.Equal(t, SignedIn, got[0].Kind)

	current, err := c.Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", current.AccessToken)
}

func TestSignInSurfacesProviderError(t *testing.T) {
	_, srv := newFakeProvider(t)
	browser := func(authURL string) error {
		u, _ := url.Parse(authURL)
		redirect, _ := url.Parse(u.Query().Get("redirect_to"))
		rq := redirect.Query()
		rq.Set("error", "access_denied")
		rq.Set("error_description", "User denied access")
		redirect.RawQuery = rq.Encode()
		go func() {
			if resp, err := noKeepAlive().Get(redirect.String()); err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}
	c := newTestClient(testSettings(t, srv.URL), WithBrowser(browser))

	_, err := c.SignIn(context.Background(), domain.ProviderGitHub)
	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "access_denied", providerErr.Code)
	assert.Equal(t, "User denied access", providerErr.Description)
}

func TestSignInCancelled(t *testing.T) {
	_, srv := newFakeProvider(t)
	c := newTestClient(testSettings(t, srv.URL), WithBrowser(func(string) error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.SignIn(ctx, domain.ProviderGitHub)
	assert.ErrorIs(t, err, ErrSignInCancelled)

	_, err = c.Session(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSignInRejectsUnknownProviderAndMissingConfig(t *testing.T) {
	c := NewClient(Settings{})
	_, err := c.SignIn(context.Background(), "myspace")
	assert.ErrorIs(t, err, ErrUnknownProvider)
	_, err = c.SignIn(context.Background(), domain.ProviderGitHub)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func storeSession(t *testing.T, path string, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, NewFileStore(path).Save(&domain.Session{
		AccessToken:  "access-0",
		RefreshToken: "refresh-0",
		ExpiresAt:    expiresAt,
		User:         domain.User{ID: "user-1"},
	}))
}

func TestSessionRefreshesExpiredTokenOnce(t *testing.T) {
	fp, srv := newFakeProvider(t)
	fp.gate = make(chan struct{})
	settings := testSettings(t, srv.URL)
	storeSession(t, settings.SessionPath, testNow.Add(10*time.Second))
	c := newTestClient(settings)
	events, unsubscribe := recordEvents(c)
	defer unsubscribe()

	var wg sync.WaitGroup
	tokens := make([]string, 5)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session, err := c.Session(context.Background())
			if assert.NoError(t, err) {
				tokens[i] = session.AccessToken
			}
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(fp.gate)
	wg.Wait()

	assert.Equal(t, int32(1), fp.refreshes.Load())
	for _, tok := range tokens {
		assert.Equal(t, "access-2", tok)
	}
	got := events()
	require.Len(t, got, 1)
	assert.Equal(t, TokenRefreshed, got[0].Kind)
}

func TestSessionDropsRejectedRefresh(t *testing.T) {
	fp, srv := newFakeProvider(t)
	fp.refreshErr = http.StatusBadRequest
	settings := testSettings(t, srv.URL)
	storeSession(t, settings.SessionPath, testNow.Add(-time.Minute))
	c := newTestClient(settings)
	events, unsubscribe := recordEvents(c)
	defer unsubscribe()

	_, err := c.Session(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
	_, statErr := os.Stat(settings.SessionPath)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
	got := events()
	require.Len(t, got, 1)
	assert.Equal(t, SignedOut, got[0].Kind)
}

func TestSessionKeepsUnexpiredToken(t *testing.T) {
	fp, srv := newFakeProvider(t)
	settings := testSettings(t, srv.URL)
	storeSession(t, settings.SessionPath, testNow.Add(time.Hour))
	c := newTestClient(settings)

	session, err := c.Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-0", session.AccessToken)
	assert.Zero(t, fp.refreshes.Load())
}

func TestRole(t *testing.T) {
	fp, srv := newFakeProvider(t)
	settings := testSettings(t, srv.URL)
	c := newTestClient(settings)

	role, err := c.Role(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEditor, role)

	fp.role = ""
	role, err = c.Role(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleWriter, role)

	fp.profileErr = http.StatusNotAcceptable
	role, err = c.Role(context.Background(), "user-1")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusNotAcceptable, authErr.StatusCode)
	assert.Contains(t, authErr.Message, "multiple (or no) rows")
	assert.Equal(t, domain.RoleWriter, role)
}

func TestSignOutClearsSession(t *testing.T) {
	fp, srv := newFakeProvider(t)
	settings := testSettings(t, srv.URL)
	storeSession(t, settings.SessionPath, testNow.Add(time.Hour))
	c := newTestClient(settings)
	events, unsubscribe := recordEvents(c)

	require.NoError(t, c.SignOut(context.Background()))
	assert.Equal(t, int32(1), fp.logouts.Load())
	_, err := c.Session(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
	got := events()
	require.Len(t, got, 1)
	assert.Equal(t, SignedOut, got[0].Kind)

	unsubscribe()
	unsubscribe()
	require.NoError(t, c.SignOut(context.Background()))
	assert.Len(t, events(), 1, "unsubscribed listener must not fire")
}

func TestWatchRepublishesExternalChanges(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	settings := testSettings(t, "https://id.example")
	c := newTestClient(settings)
	received := make(chan Event, 8)
	unsubscribe := c.Subscribe(func(evt Event) { received <- evt })
	defer unsubscribe()
	require.NoError(t, c.Watch())

	other := NewFileStore(settings.SessionPath)
	storeSession(t, settings.SessionPath, testNow.Add(time.Hour))
	evt := waitEvent(t, received)
	assert.Equal(t, SignedIn, evt.Kind)
	assert.Equal(t, "user-1", evt.Session.UserID())

	require.NoError(t, other.Clear())
	for {
		evt = waitEvent(t, received)
		if evt.Kind == SignedOut {
			break
		}
	}
	require.NoError(t, c.Close())
}

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for session event")
		return Event{}
	}
}
