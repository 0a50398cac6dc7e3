// Package identity signs users in through a Supabase-style OAuth provider,
// keeps their session fresh, and looks up their editorial role.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kingrea/newsroom/internal/domain"
)

const maxErrorBody = 4 << 10

// Client is the single identity handle shared by the CLI and the TUI. Build
// one with NewClient and Close it when done.
type Client struct {
	settings Settings
	http     *http.Client
	store    Store
	browser  Browser
	logger   *zap.Logger
	clock    func() time.Time

	refresh   singleflight.Group
	listeners listeners

	mu      sync.Mutex
	session *domain.Session
	loaded  bool

	watchMu   sync.Mutex
	stopWatch func()
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithBrowser overrides how the authorization URL is opened.
func WithBrowser(b Browser) Option {
	return func(c *Client) {
		if b != nil {
			c.browser = b
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock allows tests to control expiry checks.
func WithClock(clock func() time.Time) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewClient prepares an identity client. Nothing touches the network or the
// session file until a method is called.
func NewClient(settings Settings, opts ...Option) *Client {
	settings.normalize()
	c := &Client{
		settings: settings,
		http:     &http.Client{Timeout: 30 * time.Second},
		browser:  OpenBrowser,
		logger:   zap.NewNop(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.store == nil {
		c.store = NewFileStore(settings.SessionPath)
	}
	return c
}

// Subscribe registers fn for session change events and returns the
// unsubscribe func. Calling it more than once is harmless.
func (c *Client) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	return c.listeners.add(fn)
}

// Session returns the active session, refreshing it first when the access
// token is about to expire. It returns ErrNoSession when nobody is signed in.
func (c *Client) Session(ctx context.Context) (*domain.Session, error) {
	session, err := c.current()
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoSession
	}
	if !session.Expired(c.clock(), RefreshMargin) {
		return session, nil
	}
	if session.RefreshToken == "" {
		c.logger.Info("session expired without refresh token")
		c.forget()
		return nil, ErrNoSession
	}
	v, err, _ := c.refresh.Do("refresh", func() (any, error) {
		return c.refreshSession(ctx, session.RefreshToken)
	})
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) && authErr.rejected() {
			c.logger.Info("refresh token rejected", zap.Int("status", authErr.StatusCode))
			c.forget()
			return nil, ErrNoSession
		}
		return nil, err
	}
	return v.(*domain.Session), nil
}

// Role fetches the caller's role from the profiles table. Any failure yields
// domain.DefaultRole alongside the error.
func (c *Client) Role(ctx context.Context, userID string) (domain.Role, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.DefaultRole, fmt.Errorf("identity: role: empty user id")
	}
	if !c.settings.Configured() {
		return domain.DefaultRole, ErrNotConfigured
	}
	token := ""
	if session, err := c.current(); err == nil && session != nil {
		token = session.AccessToken
	}
	query := url.Values{}
	query.Set("select", "role")
	query.Set("id", "eq."+userID)
	req, err := c.newRequest(ctx, http.MethodGet, "/rest/v1/profiles", query, nil, token)
	if err != nil {
		return domain.DefaultRole, err
	}
	req.Header.Set("Accept", "application/vnd.pgrst.object+json")

	var profile struct {
		Role domain.Role `json:"role"`
	}
	if err := c.do(req, "profile", &profile); err != nil {
		return domain.DefaultRole, err
	}
	return profile.Role.OrDefault(), nil
}

// SignIn runs the PKCE redirect flow for provider: it opens the browser on
// the authorization URL, waits for the loopback callback, exchanges the code
// and persists the session. Subscribers receive SignedIn on success.
func (c *Client) SignIn(ctx context.Context, provider domain.Provider) (*domain.Session, error) {
	if !provider.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	if !c.settings.Configured() {
		return nil, ErrNotConfigured
	}
	proof, err := newPKCE()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.settings.SignInTimeout)
	defer cancel()

	callback := NewCallbackServer(c.settings.Callback, proof.Nonce, c.logger)
	if err := callback.Start(ctx); err != nil {
		return nil, err
	}
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		defer stop()
		_ = callback.Shutdown(shutdownCtx)
	}()

	authURL := c.AuthorizeURL(provider, callback.RedirectURL(), proof.Challenge)
	c.logger.Info("sign-in started", zap.String("provider", string(provider)))
	if err := c.browser(authURL); err != nil {
		return nil, fmt.Errorf("identity: open browser: %w", err)
	}

	code, err := callback.Wait(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrSignInCancelled, err)
		}
		return nil, err
	}

	session, err := c.tokenGrant(ctx, "pkce", map[string]string{
		"auth_code":     code,
		"code_verifier": proof.Verifier,
	})
	if err != nil {
		return nil, err
	}
	if err := c.remember(session); err != nil {
		return nil, err
	}
	c.logger.Info("signed in", zap.String("provider", string(provider)), zap.String("user_id", session.UserID()))
	c.listeners.publish(Event{Kind: SignedIn, Session: session})
	return session, nil
}

// AuthorizeURL builds the provider authorization URL for a PKCE attempt.
func (c *Client) AuthorizeURL(provider domain.Provider, redirectTo, challenge string) string {
	query := url.Values{}
	query.Set("provider", string(provider))
	query.Set("redirect_to", redirectTo)
	query.Set("code_challenge", challenge)
	query.Set("code_challenge_method", "s256")
	query.Set("access_type", "offline")
	query.Set("prompt", "consent")
	return c.settings.URL + "/auth/v1/authorize?" + query.Encode()
}

// SignOut revokes the session remotely when possible and always forgets it
// locally. Subscribers receive SignedOut.
func (c *Client) SignOut(ctx context.Context) error {
	session, err := c.current()
	if err != nil {
		c.logger.Warn("read session before sign-out", zap.Error(err))
	}
	if session != nil && c.settings.Configured() {
		req, reqErr := c.newRequest(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, session.AccessToken)
		if reqErr == nil {
			if err := c.do(req, "logout", nil); err != nil {
				c.logger.Warn("remote sign-out failed", zap.Error(err))
			}
		}
	}
	c.mu.Lock()
	c.session = nil
	c.loaded = true
	c.mu.Unlock()
	if err := c.store.Clear(); err != nil {
		return err
	}
	c.logger.Info("signed out", zap.String("user_id", session.UserID()))
	c.listeners.publish(Event{Kind: SignedOut})
	return nil
}

// Watch starts observing the session file so sign-ins and sign-outs made by
// another newsroom process are republished as events. Close stops it.
func (c *Client) Watch() error {
	fileStore, ok := c.store.(*FileStore)
	if !ok {
		return nil
	}
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if c.stopWatch != nil {
		return nil
	}
	stop, err := watchFile(fileStore.Path(), c.logger, c.reloadFromStore)
	if err != nil {
		return err
	}
	c.stopWatch = stop
	return nil
}

// Close stops the session watch, if any.
func (c *Client) Close() error {
	c.watchMu.Lock()
	stop := c.stopWatch
	c.stopWatch = nil
	c.watchMu.Unlock()
	if stop != nil {
		stop()
	}
	return nil
}

func (c *Client) reloadFromStore() {
	stored, err := c.store.Load()
	if err != nil {
		c.logger.Warn("reload session", zap.Error(err))
		return
	}
	c.mu.Lock()
	previous := c.session
	c.session = stored
	c.loaded = true
	c.mu.Unlock()

	switch {
	case previous == nil && stored == nil:
	case stored == nil:
		c.listeners.publish(Event{Kind: SignedOut})
	case previous == nil || previous.UserID() != stored.UserID():
		c.listeners.publish(Event{Kind: SignedIn, Session: stored})
	case previous.AccessToken != stored.AccessToken:
		c.listeners.publish(Event{Kind: TokenRefreshed, Session: stored})
	}
}

func (c *Client) current() (*domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.session, nil
	}
	stored, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	c.session = stored
	c.loaded = true
	return c.session, nil
}

func (c *Client) remember(session *domain.Session) error {
	c.mu.Lock()
	c.session = session
	c.loaded = true
	c.mu.Unlock()
	return c.store.Save(session)
}

func (c *Client) forget() {
	c.mu.Lock()
	hadSession := c.session != nil
	c.session = nil
	c.loaded = true
	c.mu.Unlock()
	if err := c.store.Clear(); err != nil {
		c.logger.Warn("clear session", zap.Error(err))
	}
	if hadSession {
		c.listeners.publish(Event{Kind: SignedOut})
	}
}

func (c *Client) refreshSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	session, err := c.tokenGrant(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, err
	}
	if err := c.remember(session); err != nil {
		return nil, err
	}
	c.logger.Debug("session refreshed", zap.String("user_id", session.UserID()))
	c.listeners.publish(Event{Kind: TokenRefreshed, Session: session})
	return session, nil
}

type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	User         domain.User `json:"user"`
}

func (c *Client) tokenGrant(ctx context.Context, grantType string, body map[string]string) (*domain.Session, error) {
	if !c.settings.Configured() {
		return nil, ErrNotConfigured
	}
	query := url.Values{}
	query.Set("grant_type", grantType)
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/v1/token", query, body, "")
	if err != nil {
		return nil, err
	}
	var token tokenResponse
	if err := c.do(req, "token "+grantType, &token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, &AuthError{Op: "token " + grantType, Message: "response carried no access token"}
	}
	session := &domain.Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		User:         token.User,
	}
	switch {
	case token.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(token.ExpiresAt, 0).UTC()
	case token.ExpiresIn > 0:
		session.ExpiresAt = c.clock().Add(time.Duration(token.ExpiresIn) * time.Second).UTC()
	}
	return session, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, payload any, bearer string) (*http.Request, error) {
	target := c.settings.URL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("identity: marshal payload: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("identity: new request: %w", err)
	}
	req.Header.Set("apikey", c.settings.AnonKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer == "" {
		bearer = c.settings.AnonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	return req, nil
}

func (c *Client) do(req *http.Request, op string, v any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &AuthError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &AuthError{Op: op, StatusCode: resp.StatusCode, Message: readMessage(resp.Body)}
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &AuthError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// readMessage pulls the human part out of GoTrue and PostgREST error bodies.
func readMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body struct {
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, candidate := range []string{body.ErrorDescription, body.Msg, body.Message, body.Error} {
			if strings.TrimSpace(candidate) != "" {
				return strings.TrimSpace(candidate)
			}
		}
	}
	return strings.TrimSpace(string(raw))
}
