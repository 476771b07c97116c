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

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Library LibraryConfig     `yaml:"library"`
	Notes   NotesConfig       `yaml:"notes"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	OCR     OCRConfig         `yaml:"ocr"`
	Scan    ScanConfig        `yaml:"scan"`
	Auth    AuthConfig        `yaml:"auth"`
	CORS    CORSConfig        `yaml:"cors"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []interface{ Validate() error }{
		&c.App, &c.Library, &c.Notes, &c.SQLite, &c.OCR, &c.Scan, &c.Auth,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" env:"NOOR_LOG_LEVEL"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" env:"NOOR_HTTP_PORT"`
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

// LibraryConfig lists the directories whose images are indexed. Inbox is
// where imports land; a relative inbox is placed under the first root.
type LibraryConfig struct {
	Roots []string `yaml:"roots" env:"NOOR_LIBRARY_ROOTS" envSeparator:","`
	Inbox string   `yaml:"inbox" env:"NOOR_LIBRARY_INBOX"`
}

// Validate validates the library configuration.
func (c *LibraryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Roots, validation.Required, validation.Each(validation.Required)),
	)
}

// NotesConfig holds the directory the MarkdownNotes folder is created in.
type NotesConfig struct {
	BaseDir string `yaml:"base_dir" env:"NOOR_NOTES_BASE_DIR"`
}

// Validate validates the notes configuration.
func (c *NotesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseDir, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration. The media index and
// the prefs store share the file.
type SQLiteConfig struct {
	Path string `yaml:"path" env:"NOOR_SQLITE_PATH"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// OCRConfig selects the tesseract binary and language.
type OCRConfig struct {
	Binary   string `yaml:"binary" env:"NOOR_OCR_BINARY"`
	Language string `yaml:"language" env:"NOOR_OCR_LANGUAGE"`
}

// Validate validates the OCR configuration.
func (c *OCRConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Binary, validation.Required),
		validation.Field(&c.Language, validation.Required),
	)
}

// ScanConfig schedules the background screenshot scan.
type ScanConfig struct {
	Enabled      bool          `yaml:"enabled" env:"NOOR_SCAN_ENABLED"`
	Interval     time.Duration `yaml:"interval" env:"NOOR_SCAN_INTERVAL"`
	FirstRunHour int           `yaml:"first_run_hour" env:"NOOR_SCAN_FIRST_RUN_HOUR"`
	MaxRetries   uint          `yaml:"max_retries" env:"NOOR_SCAN_MAX_RETRIES"`
}

// Validate validates the scan configuration.
func (c *ScanConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Interval, validation.When(c.Enabled, validation.Required, validation.Min(time.Minute))),
		validation.Field(&c.FirstRunHour, validation.Min(0), validation.Max(23)),
		validation.Field(&c.MaxRetries, validation.Max(uint(10))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" env:"NOOR_AUTH_MODE"`
	Token string `yaml:"token" env:"NOOR_AUTH_TOKEN"`
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

// CORSConfig lists origins allowed to call the API from a browser. Empty
// means same-origin only.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"NOOR_CORS_ALLOWED_ORIGINS" envSeparator:","`
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
		Library: LibraryConfig{
			Roots: []string{"./pictures"},
			Inbox: "Inbox",
		},
		Notes: NotesConfig{
			BaseDir: "./data",
		},
		SQLite: SQLiteConfig{
			Path: "./noor.db",
		},
		OCR: OCRConfig{
			Binary:   "tesseract",
			Language: "eng",
		},
		Scan: ScanConfig{
			Enabled:      true,
			Interval:     12 * time.Hour,
			FirstRunHour: 8,
			MaxRetries:   3,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
