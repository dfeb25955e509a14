package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Remote sync modes.
const (
	RemoteModeDisabled = "disabled"
	RemoteModeHTTP     = "http"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Store  StoreConfig       `yaml:"store"`
	Legacy LegacyConfig      `yaml:"legacy"`
	Remote RemoteConfig      `yaml:"remote"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Remote.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StoreConfig holds SQLite store configuration.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// LegacyConfig points at the directory holding flat-file dumps from the old
// storage format. An empty path disables migration; Watch additionally keeps
// watching the directory for dumps dropped while the server runs.
type LegacyConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// RemoteConfig holds remote mirror configuration.
//
// Mode controls mirroring:
//   - "disabled" (default): local-only operation.
//   - "http": every write is mirrored to the remote document API; Endpoint,
//     Project, Key, and Database must all be set.
type RemoteConfig struct {
	Mode     string `yaml:"mode"`
	Endpoint string `yaml:"endpoint"`
	Project  string `yaml:"project"`
	Key      string `yaml:"key"`
	Database string `yaml:"database"`
}

// Validate validates the remote configuration.
func (c *RemoteConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = RemoteModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(RemoteModeDisabled, RemoteModeHTTP)),
	); err != nil {
		return err
	}
	if c.Mode == RemoteModeHTTP {
		return validation.ValidateStruct(c,
			validation.Field(&c.Endpoint, validation.Required),
			validation.Field(&c.Project, validation.Required),
			validation.Field(&c.Key, validation.Required),
			validation.Field(&c.Database, validation.Required),
		)
	}
	return nil
}

// Enabled returns true when remote mirroring is active.
func (c *RemoteConfig) Enabled() bool {
	return c.Mode == RemoteModeHTTP
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Store: StoreConfig{
			Path: "./flashcards.db",
		},
		Legacy: LegacyConfig{
			Path: "",
		},
		Remote: RemoteConfig{
			Mode: RemoteModeDisabled,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
