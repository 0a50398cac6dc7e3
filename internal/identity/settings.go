package identity

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/kingrea/newsroom/internal/config"
)

const (
	// DefaultReadTimeout guards hung browsers on the callback listener.
	DefaultReadTimeout = 15 * time.Second
	// DefaultWriteTimeout bounds callback page writes.
	DefaultWriteTimeout = 15 * time.Second
	// RefreshMargin is how close to expiry a token is refreshed.
	RefreshMargin = time.Minute
)

// Settings captures what the identity client needs to reach the provider and
// receive its redirect.
type Settings struct {
	URL           string
	AnonKey       string
	SessionPath   string
	Callback      CallbackSettings
	SignInTimeout time.Duration
}

// CallbackSettings configures the loopback listener that receives the OAuth redirect.
type CallbackSettings struct {
	Host         string
	Port         int
	Path         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SettingsFromConfig builds Settings from the loaded newsroom configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	settings := Settings{
		Callback: CallbackSettings{
			Host: config.DefaultCallbackHost,
			Port: config.DefaultCallbackPort,
			Path: config.DefaultCallbackPath,
		},
		SignInTimeout: config.DefaultSignInTimeout,
	}
	if cfg != nil {
		raw := cfg.Settings.Identity
		settings.URL = raw.URL
		settings.AnonKey = raw.AnonKey
		settings.SessionPath = cfg.SessionPath()
		settings.Callback.Host = raw.Callback.Host
		settings.Callback.Port = raw.Callback.Port
		settings.Callback.Path = raw.Callback.Path
		settings.SignInTimeout = cfg.SignInTimeout()
	}
	settings.normalize()
	return settings
}

func (s *Settings) normalize() {
	s.URL = strings.TrimRight(strings.TrimSpace(s.URL), "/")
	s.AnonKey = strings.TrimSpace(s.AnonKey)
	if s.SignInTimeout <= 0 {
		s.SignInTimeout = config.DefaultSignInTimeout
	}
	s.Callback.normalize()
}

func (c *CallbackSettings) normalize() {
	c.Host = strings.TrimSpace(c.Host)
	if c.Host == "" {
		c.Host = config.DefaultCallbackHost
	}
	if c.Port < 0 || c.Port > 65535 {
		c.Port = config.DefaultCallbackPort
	}
	if !strings.HasPrefix(c.Path, "/") {
		c.Path = "/" + c.Path
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
}

// Address returns the bind address in host:port form. Port 0 picks a free port.
func (c CallbackSettings) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Configured reports whether the provider can be contacted at all.
func (s Settings) Configured() bool {
	return s.URL != "" && s.AnonKey != ""
}
