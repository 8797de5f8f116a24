package cfg

import "time"

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Google Classroom credentials
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRefreshToken string

	// CalDAV reminder sink credentials
	CalDAVURL      string
	CalDAVUsername string
	CalDAVPassword string

	// Alerting
	ResendAPIKey string
	AlertEmail   string
	RunURL       string

	// Application configuration
	Port              string
	APIAccessKey      string
	Serve             bool
	Verify            bool
	SyncInterval      int
	NotificationStart int
	Timezone          string
	Debug             bool
	Version           string

	// Location resolved from Timezone at load time
	Location *time.Location
}
