package config

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	Addr               string
	Environment        string
	DatabaseURL        string
	JWTSecret          string
	DataEncryptionKey  string
	RunMigrations      bool
	SeedAdminEmail     string
	SeedAdminPassword  string
	EmailEnabled       bool
	EmailFrom          string
	SMTPHost           string
	SMTPPort           int
	SMTPUser           string
	SMTPPassword       string
	SMTPUseTLS         bool
	AccountsEmail      string
	MailRatePerSecond  float64
	MaxBodyBytes       int64
	RateLimitPerMinute int
	MetricsEnabled     bool
	LogLevel           string
	LogFormat          string
}

var defaults = map[string]any{
	"APP_ADDR":              ":8080",
	"APP_ENV":               "development",
	"DATABASE_URL":          "",
	"JWT_SECRET":            "",
	"DATA_ENCRYPTION_KEY":   "",
	"MIGRATIONS_AUTO":       true,
	"SEED_ADMIN_EMAIL":      "",
	"SEED_ADMIN_PASSWORD":   "",
	"EMAIL_ENABLED":         false,
	"EMAIL_FROM":            "no-reply@example.com",
	"SMTP_HOST":             "",
	"SMTP_PORT":             587,
	"SMTP_USER":             "",
	"SMTP_PASSWORD":         "",
	"SMTP_USE_TLS":          true,
	"ACCOUNTS_EMAIL":        "",
	"MAIL_RATE_PER_SECOND":  2.0,
	"MAX_BODY_BYTES":        1048576,
	"RATE_LIMIT_PER_MINUTE": 60,
	"METRICS_ENABLED":       true,
	"LOG_LEVEL":             "info",
	"LOG_FORMAT":            "json",
}

// Load reads configuration from the environment, layered over an optional
// config file (any format viper understands). Keys in the file use the same
// names as the environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config file %s", path)
		}
	}
	return fromViper(v), nil
}

func fromViper(v *viper.Viper) Config {
	return Config{
		Addr:               v.GetString("APP_ADDR"),
		Environment:        v.GetString("APP_ENV"),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		DataEncryptionKey:  v.GetString("DATA_ENCRYPTION_KEY"),
		RunMigrations:      v.GetBool("MIGRATIONS_AUTO"),
		SeedAdminEmail:     v.GetString("SEED_ADMIN_EMAIL"),
		SeedAdminPassword:  v.GetString("SEED_ADMIN_PASSWORD"),
		EmailEnabled:       v.GetBool("EMAIL_ENABLED"),
		EmailFrom:          v.GetString("EMAIL_FROM"),
		SMTPHost:           v.GetString("SMTP_HOST"),
		SMTPPort:           v.GetInt("SMTP_PORT"),
		SMTPUser:           v.GetString("SMTP_USER"),
		SMTPPassword:       v.GetString("SMTP_PASSWORD"),
		SMTPUseTLS:         v.GetBool("SMTP_USE_TLS"),
		AccountsEmail:      v.GetString("ACCOUNTS_EMAIL"),
		MailRatePerSecond:  v.GetFloat64("MAIL_RATE_PER_SECOND"),
		MaxBodyBytes:       v.GetInt64("MAX_BODY_BYTES"),
		RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
		MetricsEnabled:     v.GetBool("METRICS_ENABLED"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFormat:          v.GetString("LOG_FORMAT"),
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() && strings.TrimSpace(c.DataEncryptionKey) == "" {
		return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.MailRatePerSecond <= 0 {
		return fmt.Errorf("MAIL_RATE_PER_SECOND must be positive")
	}
	if c.EmailEnabled {
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
		}
		if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
			return fmt.Errorf("SMTP_PORT must be between 1 and 65535")
		}
		if _, err := mail.ParseAddress(c.EmailFrom); err != nil {
			return fmt.Errorf("EMAIL_FROM must be a valid address")
		}
	}
	if c.AccountsEmail != "" {
		if _, err := mail.ParseAddress(c.AccountsEmail); err != nil {
			return fmt.Errorf("ACCOUNTS_EMAIL must be a valid address")
		}
	}
	return nil
}
