package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigPath = "config.toml"
	DefaultHTTPAddr   = ":8080"
	DefaultPGHost     = "127.0.0.1"
	DefaultPGPort     = 5432
	DefaultPGUser     = "postgres"
	DefaultPGDatabase = "leadloop"
	DefaultPGSSLMode  = "disable"
	DefaultS3Region   = "eu-west-2"
	DefaultS3Bucket   = "leadloop-resumes"
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Postgres PostgresConfig `toml:"postgres"`
	Storage  StorageConfig  `toml:"storage"`
	OpenAI   OpenAIConfig   `toml:"openai"`
	Twilio   TwilioConfig   `toml:"twilio"`
	SendGrid SendGridConfig `toml:"sendgrid"`
	SMTP     SMTPConfig     `toml:"smtp"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

type StorageConfig struct {
	Region string `toml:"region"`
	Bucket string `toml:"bucket"`
}

type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

type TwilioConfig struct {
	AccountSID   string `toml:"account_sid"`
	AuthToken    string `toml:"auth_token"`
	SMSFrom      string `toml:"sms_from"`
	WhatsAppFrom string `toml:"whatsapp_from"`
}

type SendGridConfig struct {
	APIKey      string `toml:"api_key"`
	FromAddress string `toml:"from_address"`
}

type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from"`
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Storage: StorageConfig{
			Region: DefaultS3Region,
			Bucket: DefaultS3Bucket,
		},
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv layers deployment environment values over file configuration.
// Environment wins: it is also the first source consulted by the
// credential resolver chain and the two must agree.
func applyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "LEADLOOP_ADDR")
	setString(&cfg.Postgres.Host, "LEADLOOP_PG_HOST")
	setInt(&cfg.Postgres.Port, "LEADLOOP_PG_PORT")
	setString(&cfg.Postgres.User, "LEADLOOP_PG_USER")
	setString(&cfg.Postgres.Password, "LEADLOOP_PG_PASSWORD")
	setString(&cfg.Postgres.Database, "LEADLOOP_PG_DATABASE")
	setString(&cfg.Storage.Region, "LEADLOOP_S3_REGION")
	setString(&cfg.Storage.Bucket, "LEADLOOP_S3_BUCKET")
	setString(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.Twilio.AccountSID, "TWILIO_ACCOUNT_SID")
	setString(&cfg.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")
	setString(&cfg.Twilio.SMSFrom, "TWILIO_PHONE_NUMBER")
	setString(&cfg.Twilio.WhatsAppFrom, "TWILIO_WHATSAPP_NUMBER")
	setString(&cfg.SendGrid.APIKey, "SENDGRID_API_KEY")
	setString(&cfg.SendGrid.FromAddress, "SENDGRID_FROM_EMAIL")
	setString(&cfg.SMTP.Host, "SMTP_HOST")
	setInt(&cfg.SMTP.Port, "SMTP_PORT")
	setString(&cfg.SMTP.Username, "SMTP_USER")
	setString(&cfg.SMTP.Password, "SMTP_PASSWORD")
	setString(&cfg.SMTP.From, "SMTP_FROM")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
