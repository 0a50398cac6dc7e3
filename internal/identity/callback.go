package identity

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// NonceParam is the query parameter carrying the per-attempt nonce on the
// redirect URL.
const NonceParam = "nonce"

const callbackPage = `<!doctype html>
<html><head><title>newsroom</title></head>
<body style="font-family: sans-serif; text-align: center; padding: 50px;">
<h1>%s</h1><p>%s</p><script>window.close();</script>
</body></html>`

// callbackResult is what the provider handed back through the browser.
type callbackResult struct {
	code string
	err  error
}

// CallbackServer is the short-lived loopback listener that receives the
// provider redirect for one sign-in attempt.
type CallbackServer struct {
	settings CallbackSettings
	nonce    string
	logger   *zap.Logger

	mu       sync.RWMutex
	server   *http.Server
	listener net.Listener
	result   chan callbackResult
}

// NewCallbackServer prepares a listener that accepts a redirect only when it
// carries nonce.
func NewCallbackServer(settings CallbackSettings, nonce string, logger *zap.Logger) *CallbackServer {
	settings.normalize()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallbackServer{
		settings: settings,
		nonce:    nonce,
		logger:   logger,
		result:   make(chan callbackResult, 1),
	}
}

// Start binds the TCP listener and begins serving the callback path.
func (s *CallbackServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("identity: callback server already started")
	}
	addr := s.settings.Address()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("identity: listen %s: %w", addr, err)
	}
	s.listener = listener
	mux := http.NewServeMux()
	mux.HandleFunc(s.settings.Path, s.handleCallback)
	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  s.settings.ReadTimeout,
		WriteTimeout: s.settings.WriteTimeout,
	}
	if ctx != nil {
		server.BaseContext = func(net.Listener) context.Context { return ctx }
	}
	s.server = server
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("callback serve error", zap.Error(err))
		}
	}()
	s.logger.Debug("callback listening", zap.String("addr", listener.Addr().String()))
	return nil
}

// Shutdown stops the listener and waits for in-flight requests to exit.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil || s.server == nil {
		return nil
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	err := s.server.Shutdown(ctx)
	s.listener = nil
	s.server = nil
	return err
}

// Addr returns the bound TCP address once the server has started.
func (s *CallbackServer) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// RedirectURL is the URL the provider must send the browser back to. It keeps
// the configured host name (providers allow-list it) with the bound port.
func (s *CallbackServer) RedirectURL() string {
	host := s.settings.Host
	port := fmt.Sprint(s.settings.Port)
	if addr := s.Addr(); addr != "" {
		if _, bound, err := net.SplitHostPort(addr); err == nil {
			port = bound
		}
	}
	return "http://" + net.JoinHostPort(host, port) + s.settings.Path + "?" + NonceParam + "=" + s.nonce
}

// Wait blocks until the redirect arrives or ctx is done.
func (s *CallbackServer) Wait(ctx context.Context) (string, error) {
	select {
	case res := <-s.result:
		return res.code, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	if subtle.ConstantTimeCompare([]byte(q.Get(NonceParam)), []byte(s.nonce)) != 1 {
		// Stray requests (favicon, stale tabs) must not end the attempt.
		http.Error(w, "unknown sign-in attempt", http.StatusBadRequest)
		return
	}
	if errCode := q.Get("error"); errCode != "" {
		desc := strings.TrimSpace(q.Get("error_description"))
		if desc == "" {
			desc = errCode
		}
		writePage(w, http.StatusBadRequest, "Sign-in failed", desc)
		s.deliver(callbackResult{err: &ProviderError{Code: errCode, Description: desc}})
		return
	}
	code := strings.TrimSpace(q.Get("code"))
	if code == "" {
		writePage(w, http.StatusBadRequest, "Sign-in failed", "No authorization code was returned.")
		s.deliver(callbackResult{err: errors.New("identity: callback carried no code")})
		return
	}
	writePage(w, http.StatusOK, "Signed in", "You can close this tab and return to the terminal.")
	s.deliver(callbackResult{code: code})
}

func (s *CallbackServer) deliver(res callbackResult) {
	select {
	case s.result <- res:
	default:
	}
}

func writePage(w http.ResponseWriter, status int, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, callbackPage, html.EscapeString(title), html.EscapeString(body))
}
