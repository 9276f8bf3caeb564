package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Backend modes.
const (
	BackendSQLite  = "sqlite"
	BackendGraphQL = "graphql"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Backend BackendConfig     `yaml:"backend"`
	Storage StorageConfig     `yaml:"storage"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Backend.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
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

// BackendConfig selects where notes are persisted.
//
//   - "sqlite" (default): a local SQLite database at SQLite.Path.
//   - "graphql": a remote GraphQL endpoint serving listNotes/createNote/deleteNote.
type BackendConfig struct {
	Mode    string        `yaml:"mode"`
	SQLite  SQLiteConfig  `yaml:"sqlite"`
	GraphQL GraphQLConfig `yaml:"graphql"`
}

// Validate validates the backend configuration.
func (c *BackendConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = BackendSQLite
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(BackendSQLite, BackendGraphQL)),
	); err != nil {
		return err
	}
	if c.Mode == BackendGraphQL {
		return c.GraphQL.Validate()
	}
	return c.SQLite.Validate()
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// GraphQLConfig holds the remote GraphQL endpoint.
type GraphQLConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Validate validates the GraphQL configuration.
func (c *GraphQLConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Endpoint, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// StorageConfig holds the object storage directory and the URL prefix
// objects are served under.
type StorageConfig struct {
	Path      string `yaml:"path"`
	URLPrefix string `yaml:"url_prefix"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.URLPrefix, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no sign-in required, suitable for local dev.
//   - "token": web sign-in and Bearer API access with Token; Token must be non-empty.
type AuthConfig struct {
	Mode       string        `yaml:"mode"`
	Token      string        `yaml:"token"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
		validation.Field(&c.SessionTTL, validation.Required, validation.Min(time.Minute)),
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
		Backend: BackendConfig{
			Mode: BackendSQLite,
			SQLite: SQLiteConfig{
				Path: "./mynotes.db",
			},
			GraphQL: GraphQLConfig{
				Timeout: 30 * time.Second,
			},
		},
		Storage: StorageConfig{
			Path:      "./objects",
			URLPrefix: "/objects/",
		},
		Auth: AuthConfig{
			Mode:       AuthModeDisabled,
			SessionTTL: 24 * time.Hour,
		},
	}
}
