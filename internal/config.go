package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/memodesk/internal/access"
	"github.com/starford/memodesk/internal/kv"
	"github.com/starford/memodesk/internal/remote"
	"github.com/starford/memodesk/internal/workspace"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Local    LocalConfig       `yaml:"local"`
	Remote   RemoteConfig      `yaml:"remote"`
	Access   AccessConfig      `yaml:"access"`
	Autosave AutosaveConfig    `yaml:"autosave"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Local.Validate(); err != nil {
		return err
	}
	if err := c.Remote.Validate(); err != nil {
		return err
	}
	if err := c.Access.Validate(); err != nil {
		return err
	}
	if err := c.Autosave.Validate(); err != nil {
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

// LocalConfig selects the local key-value backend. Path is a directory for
// the file driver and a database file for the sqlite driver.
type LocalConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// Validate validates the local store configuration.
func (c *LocalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(kv.DriverFile, kv.DriverSQLite)),
		validation.Field(&c.Path, validation.Required),
	)
}

// RemoteConfig holds the hosted-repository endpoints. Account, repository
// and token live in the settings record, not here.
type RemoteConfig struct {
	APIBase     string        `yaml:"api_base"`
	RawBase     string        `yaml:"raw_base"`
	Branch      string        `yaml:"branch"`
	Path        string        `yaml:"path"`
	Timeout     time.Duration `yaml:"timeout"`
	ReadRetries int           `yaml:"read_retries"`
}

// Validate validates the remote configuration.
func (c *RemoteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.APIBase, validation.Required, is.URL),
		validation.Field(&c.RawBase, validation.Required, is.URL),
		validation.Field(&c.Branch, validation.Required),
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.ReadRetries, validation.Min(0), validation.Max(10)),
	)
}

// Options converts the section into remote client options.
func (c *RemoteConfig) Options() remote.Options {
	return remote.Options{
		APIBase:     c.APIBase,
		RawBase:     c.RawBase,
		Branch:      c.Branch,
		Path:        c.Path,
		Timeout:     c.Timeout,
		ReadRetries: c.ReadRetries,
	}
}

// AccessConfig selects how new folder passwords are stored.
type AccessConfig struct {
	PasswordScheme string `yaml:"password_scheme"`
}

// Validate validates the access configuration.
func (c *AccessConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PasswordScheme, validation.Required,
			validation.In(string(access.SchemeArgon2id), string(access.SchemeLegacy))),
	)
}

// Scheme returns the configured password scheme.
func (c *AccessConfig) Scheme() access.Scheme {
	return access.Scheme(c.PasswordScheme)
}

// AutosaveConfig holds the autosave period for an open memo.
type AutosaveConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Validate validates the autosave configuration.
func (c *AutosaveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Interval, validation.Required, validation.Min(time.Second)),
	)
}

// AuthConfig holds authentication configuration for the HTTP surface.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
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
		Local: LocalConfig{
			Driver: kv.DriverFile,
			Path:   "./data",
		},
		Remote: RemoteConfig{
			APIBase: "https://api.github.com",
			RawBase: "https://raw.githubusercontent.com",
			Branch:  "main",
			Path:    "data.json",
		},
		Access: AccessConfig{
			PasswordScheme: string(access.SchemeArgon2id),
		},
		Autosave: AutosaveConfig{
			Interval: workspace.DefaultAutosaveInterval,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
