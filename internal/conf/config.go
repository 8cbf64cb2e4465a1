// Package conf holds the application settings and the viper plumbing that
// loads them from defaults, an optional config file and the environment.
package conf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Host string
	Port int
}

// ContentSettings points at the static school content.
type ContentSettings struct {
	Dir string // directory of <id>.json school records
}

// SQLiteSettings configures the SQLite output store.
type SQLiteSettings struct {
	Enabled bool
	Path    string
}

// MySQLSettings configures the MySQL output store.
type MySQLSettings struct {
	Enabled bool
	DSN     string
}

// DatabaseSettings selects and configures the relational store holding
// overrides, reviews and tracking rows.
type DatabaseSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// Configured reports whether any database backend is enabled. The merge
// path treats an unconfigured database as "no overrides exist"; the
// submission endpoints treat it as a configuration error.
func (d *DatabaseSettings) Configured() bool {
	return d.SQLite.Enabled || d.MySQL.Enabled
}

// WebhookSettings configures the best-effort review notification and the
// inbound campaign-approval webhook.
type WebhookSettings struct {
	ReviewURL string // outbound notification target; empty disables
	TestKey   string // optional key guarding the reachability probe
	Secret    string // shared secret for inbound campaign approvals
}

// TrackingSettings configures conversion tracking.
type TrackingSettings struct {
	AllowedOrigins []string // browser origins allowed to post conversions
}

// MetricsSettings toggles the prometheus endpoint.
type MetricsSettings struct {
	Enabled bool
}

// SentrySettings configures optional error telemetry. Disabled unless a DSN
// is provided.
type SentrySettings struct {
	Enabled bool
	DSN     string
}

// Settings is the root configuration object, constructed once at startup and
// passed down explicitly.
type Settings struct {
	Debug bool

	Server   ServerSettings
	Content  ContentSettings
	Database DatabaseSettings
	Webhook  WebhookSettings
	Tracking TrackingSettings
	Metrics  MetricsSettings
	Sentry   SentrySettings
}

// Load builds Settings from defaults, an optional eigoonline.yaml in the
// working directory, and EIGOONLINE_* environment variables.
func Load() (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("eigoonline")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/eigoonline")

	v.SetEnvPrefix("EIGOONLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine, defaults plus environment apply.
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("unmarshaling settings: %w", err)
	}

	if err := validate(&settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("content.dir", "data/schools")
	v.SetDefault("database.sqlite.enabled", true)
	v.SetDefault("database.sqlite.path", "eigoonline.db")
	v.SetDefault("database.mysql.enabled", false)
	v.SetDefault("database.mysql.dsn", "")
	v.SetDefault("webhook.reviewurl", "")
	v.SetDefault("webhook.testkey", "")
	v.SetDefault("webhook.secret", "")
	v.SetDefault("tracking.allowedorigins", []string{
		"https://eigoonline.com",
		"https://www.eigoonline.com",
	})
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
}

func validate(s *Settings) error {
	if s.Content.Dir == "" {
		return fmt.Errorf("content.dir must be set")
	}
	if s.Server.Port <= 0 || s.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", s.Server.Port)
	}
	if s.Database.SQLite.Enabled && s.Database.MySQL.Enabled {
		return fmt.Errorf("enable only one of database.sqlite and database.mysql")
	}
	if s.Database.MySQL.Enabled && s.Database.MySQL.DSN == "" {
		return fmt.Errorf("database.mysql.dsn must be set when MySQL is enabled")
	}
	if s.Sentry.Enabled && s.Sentry.DSN == "" {
		return fmt.Errorf("sentry.dsn must be set when sentry is enabled")
	}
	return nil
}
