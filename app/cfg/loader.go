package cfg

import (
	"cmp"
	"fmt"
	"sort"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"classmind" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"classmind" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"classmind" description:"Database name"`

	// Google Classroom credentials
	GoogleClientID     string `long:"google-client-id" env:"GOOGLE_CLIENT_ID" description:"Google OAuth client ID"`
	GoogleClientSecret string `long:"google-client-secret" env:"GOOGLE_CLIENT_SECRET" description:"Google OAuth client secret"`
	GoogleRefreshToken string `long:"google-refresh-token" env:"GOOGLE_REFRESH_TOKEN" description:"Google OAuth refresh token"`

	// CalDAV reminder sink credentials
	CalDAVURL      string `long:"caldav-url" env:"CALDAV_URL" default:"https://caldav.icloud.com" description:"CalDAV server URL"`
	CalDAVUsername string `long:"caldav-username" env:"CALDAV_USERNAME" description:"CalDAV account username"`
	CalDAVPassword string `long:"caldav-password" env:"CALDAV_PASSWORD" description:"CalDAV app-specific password"`

	// Alerting
	ResendAPIKey string `long:"resend-api-key" env:"RESEND_API_KEY" description:"Resend API key for alert email (optional)"`
	AlertEmail   string `long:"alert-email" env:"ALERT_EMAIL" description:"Recipient for failure alerts"`
	RunURL       string `long:"run-url" env:"RUN_URL" description:"Link to the invoking job run, included in failure alerts (optional)"`

	// Application configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port (serve mode)"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for dashboard endpoints (optional)"`
	Serve             bool   `long:"serve" env:"SERVE" description:"Run the HTTP API server with an internal sync ticker instead of a one-shot pass"`
	Verify            bool   `long:"verify" env:"VERIFY" description:"Verify configuration and connectivity, then exit"`
	SyncInterval      int    `long:"sync-interval" env:"SYNC_INTERVAL" default:"1800" description:"Seconds between passes in serve mode"`
	NotificationStart int    `long:"notification-start-hour" env:"NOTIFICATION_START_HOUR" default:"7" description:"Earliest local hour an alarm may fire"`
	Timezone          string `long:"timezone" env:"TIMEZONE" default:"Asia/Kolkata" description:"Timezone for due dates and alarms (e.g. Asia/Kolkata)"`
	Debug             bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	// .env file is optional; environment wins when both are set
	_ = godotenv.Load()

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	loc, err := time.LoadLocation(raw.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", raw.Timezone, err)
	}

	cfg := &Cfg{
		DBHost:             raw.DBHost,
		DBPort:             raw.DBPort,
		DBUser:             raw.DBUser,
		DBPassword:         raw.DBPassword,
		DBName:             raw.DBName,
		GoogleClientID:     raw.GoogleClientID,
		GoogleClientSecret: raw.GoogleClientSecret,
		GoogleRefreshToken: raw.GoogleRefreshToken,
		CalDAVURL:          raw.CalDAVURL,
		CalDAVUsername:     raw.CalDAVUsername,
		CalDAVPassword:     raw.CalDAVPassword,
		ResendAPIKey:       raw.ResendAPIKey,
		AlertEmail:         raw.AlertEmail,
		RunURL:             raw.RunURL,
		Port:               raw.Port,
		APIAccessKey:       raw.APIAccessKey,
		Serve:              raw.Serve,
		Verify:             raw.Verify,
		SyncInterval:       raw.SyncInterval,
		NotificationStart:  raw.NotificationStart,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
		Location:           loc,
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration. Intended for tests.
func Set(c *Cfg) {
	globalCfg = c
}

// Validate checks that the credentials required for a sync pass are present.
func (c *Cfg) Validate() error {
	required := map[string]string{
		"GOOGLE_CLIENT_ID":     c.GoogleClientID,
		"GOOGLE_CLIENT_SECRET": c.GoogleClientSecret,
		"GOOGLE_REFRESH_TOKEN": c.GoogleRefreshToken,
		"CALDAV_USERNAME":      c.CalDAVUsername,
		"CALDAV_PASSWORD":      c.CalDAVPassword,
	}

	var missing []string
	for name, value := range required {
		if value == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v", missing)
	}

	return nil
}
