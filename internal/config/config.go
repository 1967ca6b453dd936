// Package config reads the service settings from an optional file and the environment.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gitlab.com/dirk.krummacker/contacts-service/internal/mail"
)

// Config holds the settings of the service binaries.
type Config struct {
	Port           string
	DBHost         string
	DBUser         string
	DBPassword     string
	DBName         string
	GinLogging     bool
	LogMode        string
	MailProvider   string
	SendGrid       mail.Config
	MaxUploadBytes int64
}

// Load reads file, when given, and then the environment. Environment variables win over the
// file. Key names are the environment variable names.
func Load(file string) (*Config, error) {
	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("DBHOST", "localhost:3306")
	v.SetDefault("DBUSER", "")
	v.SetDefault("DBPWD", "")
	v.SetDefault("DBNAME", "contacts")
	v.SetDefault("GIN_LOGGING", "on")
	v.SetDefault("LOG_MODE", "development")
	v.SetDefault("MAIL_PROVIDER", "log")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("SENDGRID_BASE_URL", "")
	v.SetDefault("SENDGRID_FROM_EMAIL", "")
	v.SetDefault("SENDGRID_FROM_NAME", "")
	v.SetDefault("SENDGRID_TIMEOUT_SECONDS", 30)
	v.SetDefault("MAX_UPLOAD_BYTES", 5<<20)
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "error reading config file %s", file)
		}
	}

	cfg := &Config{
		Port:         v.GetString("PORT"),
		DBHost:       v.GetString("DBHOST"),
		DBUser:       v.GetString("DBUSER"),
		DBPassword:   v.GetString("DBPWD"),
		DBName:       v.GetString("DBNAME"),
		GinLogging:   v.GetString("GIN_LOGGING") != "off",
		LogMode:      v.GetString("LOG_MODE"),
		MailProvider: strings.ToLower(strings.TrimSpace(v.GetString("MAIL_PROVIDER"))),
		SendGrid: mail.Config{
			APIKey:    v.GetString("SENDGRID_API_KEY"),
			BaseURL:   v.GetString("SENDGRID_BASE_URL"),
			FromEmail: v.GetString("SENDGRID_FROM_EMAIL"),
			FromName:  v.GetString("SENDGRID_FROM_NAME"),
			Timeout:   time.Duration(v.GetInt("SENDGRID_TIMEOUT_SECONDS")) * time.Second,
		},
		MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),
	}

	switch cfg.MailProvider {
	case "log", "sendgrid":
	default:
		return nil, errors.Errorf("unknown MAIL_PROVIDER %q", cfg.MailProvider)
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, errors.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", cfg.MaxUploadBytes)
	}
	return cfg, nil
}
