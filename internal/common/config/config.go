package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig         `mapstructure:"app"`
	HTTP         HTTPConfig        `mapstructure:"http"`
	Database     DatabaseConfig    `mapstructure:"database"`
	Integrations IntegrationConfig `mapstructure:"integrations"`
	Voice        VoiceConfig       `mapstructure:"voice"`
	Matching     MatchingConfig    `mapstructure:"matching"`
	Logging      LoggingConfig     `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // seconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // seconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // seconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// IntegrationConfig holds settings for notification providers.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled            bool   `mapstructure:"enabled"`
			DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// VoiceConfig holds the inbound call-routing settings.
type VoiceConfig struct {
	// SLFNumber is the outbound number of the SLF tenant; calls dialed to
	// any other number resolve to the BF tenant.
	SLFNumber string `mapstructure:"slf_number"`

	MenuTimeout      int `mapstructure:"menu_timeout"`      // seconds, 1-digit gather
	DirectoryTimeout int `mapstructure:"directory_timeout"` // seconds, 3-digit gather
	MaxRecordingSec  int `mapstructure:"max_recording_sec"`

	// Menu maps a main-menu digit to a mailbox id.
	Menu map[string]string `mapstructure:"menu"`

	// Staff members provisioned at startup.
	Staff []StaffConfig `mapstructure:"staff"`

	EventChannel string `mapstructure:"event_channel"`
}

type StaffConfig struct {
	ID    string `mapstructure:"id"`
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
	Phone string `mapstructure:"phone"`
	Role  string `mapstructure:"role"`
}

// MatchingConfig holds the lender-matching defaults.
type MatchingConfig struct {
	MinScore     float64 `mapstructure:"min_score"`
	Limit        int     `mapstructure:"limit"`
	CacheTTL     int     `mapstructure:"cache_ttl"` // seconds
	CacheEnabled bool    `mapstructure:"cache_enabled"`

	// CatalogFile points at a JSON product catalog used when no
	// Postgres database is configured.
	CatalogFile string `mapstructure:"catalog_file"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
