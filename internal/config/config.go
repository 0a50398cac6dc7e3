// internal/config/config.go
//
// This package handles configuration and the newsroom home directory.
// Every user gets a ~/.newsroom/ folder (or $NEWSROOM_HOME) holding the
// config file, the identity session and the logs.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// HomeDirName is the directory created under the user's home.
	HomeDirName = ".newsroom"
	// HomeEnv overrides the home directory location.
	HomeEnv = "NEWSROOM_HOME"

	configFileName  = "config.yaml"
	sessionFileName = "session.json"

	DefaultBackendURL    = "http://127.0.0.1:8000"
	DefaultCallbackHost  = "localhost"
	DefaultCallbackPort  = 3000
	DefaultCallbackPath  = "/"
	DefaultSignInTimeout = 5 * time.Minute
	DefaultLogLevel      = "info"
	DefaultTheme         = "dark"
	DefaultWordWrap      = 60
)

const defaultConfigYAML = `# newsroom configuration
version: 1

# Article and generation API.
backend:
  url: http://127.0.0.1:8000
  # Request timeout, e.g. 90s. Empty or 0 waits indefinitely.
  timeout: ""

# OAuth identity provider and profile store.
# Set url and anon_key here or via NEWSROOM_IDENTITY_URL / NEWSROOM_IDENTITY_ANON_KEY.
identity:
  url: ""
  anon_key: ""
  callback:
    host: localhost
    port: 3000
    path: /
  sign_in_timeout: 5m

logging:
  level: info

ui:
  # glamour style for rendered markdown: dark, light, notty
  theme: dark
  word_wrap: 60
`

// BackendConfig points at the article/generation API.
type BackendConfig struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout,omitempty"`
}

// CallbackConfig is the loopback address the OAuth redirect lands on.
type CallbackConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// IdentityConfig describes the identity provider and profile store.
type IdentityConfig struct {
	URL           string         `yaml:"url"`
	AnonKey       string         `yaml:"anon_key"`
	Callback      CallbackConfig `yaml:"callback"`
	SignInTimeout string         `yaml:"sign_in_timeout,omitempty"`
}

// LoggingConfig controls the structured log file.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// UIConfig holds presentation preferences.
type UIConfig struct {
	Theme    string `yaml:"theme"`
	WordWrap int    `yaml:"word_wrap"`
}

// Settings models config.yaml.
type Settings struct {
	Version  int            `yaml:"version"`
	Backend  BackendConfig  `yaml:"backend"`
	Identity IdentityConfig `yaml:"identity"`
	Logging  LoggingConfig  `yaml:"logging"`
	UI       UIConfig       `yaml:"ui"`
}

// Config holds the runtime configuration for newsroom.
type Config struct {
	// HomeDir is where config, session and logs live.
	HomeDir string

	Settings Settings
}

// ResolveHome picks the home directory: explicit flag, then $NEWSROOM_HOME,
// then ~/.newsroom.
func ResolveHome(flagValue string) (string, error) {
	if dir := strings.TrimSpace(flagValue); dir != "" {
		return filepath.Abs(dir)
	}
	if dir := strings.TrimSpace(os.Getenv(HomeEnv)); dir != "" {
		return filepath.Abs(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve user home: %w", err)
	}
	return filepath.Join(home, HomeDirName), nil
}

// InitHomeDir creates the home directory structure and a commented default
// config file if none exists yet.
//
// Structure created:
// ~/.newsroom/
// ├── config.yaml
// ├── session.json  <- written by the identity client after sign-in
// └── logs/
func InitHomeDir(homeDir string) error {
	if err := os.MkdirAll(filepath.Join(homeDir, "logs"), 0o755); err != nil {
		return fmt.Errorf("config: ensure home: %w", err)
	}
	return ensureConfigFile(filepath.Join(homeDir, configFileName))
}

// Load reads config.yaml from homeDir, applies environment overrides and
// validates the result. A missing file yields the defaults.
func Load(homeDir string) (*Config, error) {
	cfg := &Config{
		HomeDir:  homeDir,
		Settings: defaultSettings(),
	}
	if err := cfg.loadSettings(); err != nil {
		return nil, err
	}
	cfg.Settings.applyEnvOverrides()
	cfg.Settings.normalize()
	if err := cfg.Settings.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// ConfigPath returns the on-disk location of config.yaml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.HomeDir, configFileName)
}

// SessionPath returns where the identity session is persisted.
func (c *Config) SessionPath() string {
	return filepath.Join(c.HomeDir, sessionFileName)
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.HomeDir, "logs")
}

// BackendTimeout is the per-request timeout for the article API; zero means none.
func (c *Config) BackendTimeout() time.Duration {
	d, _ := parseDuration(c.Settings.Backend.Timeout)
	return d
}

// SignInTimeout bounds how long a sign-in waits for the OAuth callback.
func (c *Config) SignInTimeout() time.Duration {
	d, _ := parseDuration(c.Settings.Identity.SignInTimeout)
	if d <= 0 {
		return DefaultSignInTimeout
	}
	return d
}

// IdentityConfigured reports whether sign-in can be attempted at all.
func (c *Config) IdentityConfigured() bool {
	return c.Settings.Identity.URL != "" && c.Settings.Identity.AnonKey != ""
}

func (c *Config) loadSettings() error {
	path := c.ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	parsed := defaultSettings()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.Settings = parsed
	return nil
}

func defaultSettings() Settings {
	return Settings{
		Version: 1,
		Backend: BackendConfig{URL: DefaultBackendURL},
		Identity: IdentityConfig{
			Callback: CallbackConfig{
				Host: DefaultCallbackHost,
				Port: DefaultCallbackPort,
				Path: DefaultCallbackPath,
			},
			SignInTimeout: DefaultSignInTimeout.String(),
		},
		Logging: LoggingConfig{Level: DefaultLogLevel},
		UI:      UIConfig{Theme: DefaultTheme, WordWrap: DefaultWordWrap},
	}
}

func (s *Settings) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("NEWSROOM_BACKEND_URL")); v != "" {
		s.Backend.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("NEWSROOM_BACKEND_TIMEOUT")); v != "" {
		s.Backend.Timeout = v
	}
	if v := strings.TrimSpace(os.Getenv("NEWSROOM_IDENTITY_URL")); v != "" {
		s.Identity.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("NEWSROOM_IDENTITY_ANON_KEY")); v != "" {
		s.Identity.AnonKey = v
	}
	if v := strings.TrimSpace(os.Getenv("NEWSROOM_CALLBACK_HOST")); v != "" {
		s.Identity.Callback.Host = v
	}
	if v := strings.TrimSpace(os.Getenv("NEWSROOM_CALLBACK_PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil && isValidPort(port) {
			s.Identity.Callback.Port = port
		}
	}
	if v := strings.TrimSpace(os.Getenv("NEWSROOM_LOG_LEVEL")); v != "" {
		s.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("NEWSROOM_THEME")); v != "" {
		s.UI.Theme = v
	}
}

func (s *Settings) normalize() {
	if s.Version == 0 {
		s.Version = 1
	}
	s.Backend.URL = strings.TrimRight(strings.TrimSpace(s.Backend.URL), "/")
	if s.Backend.URL == "" {
		s.Backend.URL = DefaultBackendURL
	}
	s.Backend.Timeout = strings.TrimSpace(s.Backend.Timeout)
	s.Identity.URL = strings.TrimRight(strings.TrimSpace(s.Identity.URL), "/")
	s.Identity.AnonKey = strings.TrimSpace(s.Identity.AnonKey)
	s.Identity.Callback.Host = strings.TrimSpace(s.Identity.Callback.Host)
	if s.Identity.Callback.Host == "" {
		s.Identity.Callback.Host = DefaultCallbackHost
	}
	if !isValidPort(s.Identity.Callback.Port) {
		s.Identity.Callback.Port = DefaultCallbackPort
	}
	s.Identity.Callback.Path = strings.TrimSpace(s.Identity.Callback.Path)
	if !strings.HasPrefix(s.Identity.Callback.Path, "/") {
		s.Identity.Callback.Path = "/" + s.Identity.Callback.Path
	}
	s.Logging.Level = strings.ToLower(strings.TrimSpace(s.Logging.Level))
	switch s.Logging.Level {
	case "":
		s.Logging.Level = DefaultLogLevel
	case "warning":
		s.Logging.Level = "warn"
	}
	s.UI.Theme = strings.ToLower(strings.TrimSpace(s.UI.Theme))
	if s.UI.Theme == "" {
		s.UI.Theme = DefaultTheme
	}
	if s.UI.WordWrap <= 0 {
		s.UI.WordWrap = DefaultWordWrap
	}
}

func (s *Settings) validate() error {
	if s.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if err := validateHTTPURL(s.Backend.URL); err != nil {
		return fmt.Errorf("backend.url: %w", err)
	}
	if _, err := parseDuration(s.Backend.Timeout); err != nil {
		return fmt.Errorf("backend.timeout: %w", err)
	}
	if s.Identity.URL != "" {
		if err := validateHTTPURL(s.Identity.URL); err != nil {
			return fmt.Errorf("identity.url: %w", err)
		}
	}
	if _, err := parseDuration(s.Identity.SignInTimeout); err != nil {
		return fmt.Errorf("identity.sign_in_timeout: %w", err)
	}
	switch s.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch s.UI.Theme {
	case "dark", "light", "notty":
	default:
		return fmt.Errorf("ui.theme must be one of dark, light, notty")
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

func parseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative")
	}
	return d, nil
}

func isValidPort(port int) bool {
	return port > 0 && port <= 65535
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
