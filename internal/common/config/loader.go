package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DATABASE_POSTGRES_HOST
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Per-environment overrides, ignored if the file does not exist.
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries the usual .env locations relative to wherever the
// process was started (binary, tests, tooling).
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up directories looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "lending-core"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10
	}

	if cfg.Database.Postgres.Host == "" {
		cfg.Database.Postgres.Host = "localhost"
	}
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 20
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.Address == "" {
		cfg.Database.Redis.Address = "localhost:6379"
	}

	if cfg.Integrations.AWS.Region == "" {
		cfg.Integrations.AWS.Region = "us-east-1"
	}

	if cfg.Voice.MenuTimeout == 0 {
		cfg.Voice.MenuTimeout = 6
	}
	if cfg.Voice.DirectoryTimeout == 0 {
		cfg.Voice.DirectoryTimeout = 8
	}
	if cfg.Voice.MaxRecordingSec == 0 {
		cfg.Voice.MaxRecordingSec = 120
	}
	if cfg.Voice.EventChannel == "" {
		cfg.Voice.EventChannel = "voice:events"
	}
	if len(cfg.Voice.Menu) == 0 {
		cfg.Voice.Menu = map[string]string{
			"1": "intake",
			"2": "mb_andrew",
			"3": "mb_todd",
		}
	}
	if len(cfg.Voice.Staff) == 0 {
		cfg.Voice.Staff = []StaffConfig{
			{ID: "andrew", Name: "Andrew", Role: "underwriter"},
			{ID: "todd", Name: "Todd", Role: "account-manager"},
		}
	}

	if cfg.Matching.MinScore == 0 {
		cfg.Matching.MinScore = 0.3
	}
	if cfg.Matching.Limit == 0 {
		cfg.Matching.Limit = 50
	}
	if cfg.Matching.CacheTTL == 0 {
		cfg.Matching.CacheTTL = 300
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", cfg.HTTP.Port)
	}
	if cfg.Matching.MinScore < 0 || cfg.Matching.MinScore > 1 {
		return fmt.Errorf("matching.min_score must be in [0,1]: %f", cfg.Matching.MinScore)
	}
	if cfg.Matching.Limit < 1 {
		return fmt.Errorf("matching.limit must be positive: %d", cfg.Matching.Limit)
	}
	if cfg.Voice.MaxRecordingSec < 1 {
		return fmt.Errorf("voice.max_recording_sec must be positive: %d", cfg.Voice.MaxRecordingSec)
	}
	for digit, mb := range cfg.Voice.Menu {
		if len(digit) != 1 || digit[0] < '0' || digit[0] > '9' {
			return fmt.Errorf("voice.menu key must be a single digit: %q", digit)
		}
		if mb == "" {
			return fmt.Errorf("voice.menu[%s] has empty mailbox id", digit)
		}
	}
	return nil
}
