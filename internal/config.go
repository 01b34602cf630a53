package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/lifematrix/internal/models"
	"github.com/starford/lifematrix/internal/profile"
	"github.com/starford/lifematrix/internal/remotesync"
	"github.com/starford/lifematrix/internal/storage"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Store   StoreConfig       `yaml:"store"`
	Auth    AuthConfig        `yaml:"auth"`
	Sync    SyncConfig        `yaml:"sync"`
	Profile ProfileConfig     `yaml:"profile"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	return c.Profile.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
	// RadarSize is the default radar target size in scene units.
	RadarSize float64 `yaml:"radar_size"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.RadarSize, validation.Min(0.0)),
	); err != nil {
		return err
	}
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

// StoreConfig selects where the profile snapshot is persisted.
//
// Driver "file" keeps one JSON file per key under Path (a directory) and
// watches it for external edits; "sqlite" keeps a kv table in the database
// file at Path.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	Key    string `yaml:"key"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = storage.DriverFile
	}
	if c.Key == "" {
		c.Key = profile.DefaultKey
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(storage.DriverFile, storage.DriverSQLite)),
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how the API is protected:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
//
// User is the account that the sign-in flow returns. Leave ID empty to run
// guest-only.
type AuthConfig struct {
	Mode  string     `yaml:"mode"`
	Token string     `yaml:"token"`
	User  UserConfig `yaml:"user"`
}

// UserConfig describes the local account.
type UserConfig struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`
	Email       string `yaml:"email"`
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

// SyncConfig configures the remote backup mirror.
type SyncConfig struct {
	Mode     string        `yaml:"mode"`
	Endpoint string        `yaml:"endpoint"`
	Token    string        `yaml:"token"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = remotesync.ModeNone
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(remotesync.ModeNone, remotesync.ModeHTTP)),
		validation.Field(&c.Endpoint, validation.When(c.Mode == remotesync.ModeHTTP, validation.Required)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// ProfileConfig holds profile defaults.
type ProfileConfig struct {
	// Dimensions replaces the built-in starter set when non-empty.
	Dimensions []models.Dimension `yaml:"dimensions"`
	// Timezone is the IANA zone used for entry display dates.
	Timezone string `yaml:"timezone"`
}

// Validate validates the profile configuration.
func (c *ProfileConfig) Validate() error {
	seen := make(map[string]struct{}, len(c.Dimensions))
	for i := range c.Dimensions {
		d := &c.Dimensions[i]
		if err := validation.ValidateStruct(d,
			validation.Field(&d.ID, validation.Required),
			validation.Field(&d.Name, validation.Required),
		); err != nil {
			return fmt.Errorf("profile: dimension %d: %w", i, err)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("profile: duplicate dimension id %q", d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("profile: timezone: %w", err)
	}
	return nil
}

// Location resolves Timezone, defaulting to the local zone.
func (c *ProfileConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
			RadarSize: 400,
		},
		Store: StoreConfig{
			Driver: storage.DriverFile,
			Path:   "./data",
			Key:    profile.DefaultKey,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Sync: SyncConfig{
			Mode:    remotesync.ModeNone,
			Timeout: 10 * time.Second,
		},
	}
}
