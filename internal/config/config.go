package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the service configuration.
type Config struct {
	Server struct {
		Port      string `yaml:"port"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`

	Database struct {
		Type           string `yaml:"type"` // "sqlite", "postgres" or "none"
		URL            string `yaml:"url"`  // PostgreSQL URL
		Path           string `yaml:"path"` // SQLite path
		MigrationsPath string `yaml:"migrations_path"`
	} `yaml:"database"`

	Detector struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
	} `yaml:"detector"`

	Notifier struct {
		TelegramBotToken string `yaml:"telegram_bot_token"`
		ChatID           int64  `yaml:"chat_id"`
	} `yaml:"notifier"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Channel  string `yaml:"channel"`
	} `yaml:"redis"`

	Ingest struct {
		Enabled bool     `yaml:"enabled"`
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
		GroupID string   `yaml:"group_id"`
	} `yaml:"ingest"`

	Logging struct {
		Production bool `yaml:"production"`
	} `yaml:"logging"`

	Engine Engine `yaml:"engine"`
}

// LoadEnv loads .env files from the working directory, later files overriding earlier ones.
// It returns the files that were loaded.
func LoadEnv() []string {
	var loaded []string
	for _, file := range []string{".env", ".env.dev"} {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			continue
		}
		loaded = append(loaded, file)
	}
	return loaded
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	config := &Config{Engine: DefaultEngine()}
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()

	if err := config.Engine.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	return config, nil
}

// Default returns a configuration with every default filled in and no external services.
func Default() *Config {
	config := &Config{Engine: DefaultEngine()}
	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	c.Server.JWTSecret = os.ExpandEnv(c.Server.JWTSecret)

	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	c.Database.Type = strings.ToLower(c.Database.Type)
	if c.Database.Path == "" {
		c.Database.Path = "./data/engine.db"
	}
	if c.Database.MigrationsPath == "" {
		c.Database.MigrationsPath = "migrations"
	}
	c.Database.URL = os.ExpandEnv(c.Database.URL)

	c.Notifier.TelegramBotToken = os.ExpandEnv(c.Notifier.TelegramBotToken)

	c.Redis.Password = os.ExpandEnv(c.Redis.Password)
	if c.Redis.Channel == "" {
		c.Redis.Channel = "strategy-updates"
	}

	if c.Ingest.Topic == "" {
		c.Ingest.Topic = "interaction-records"
	}
	if c.Ingest.GroupID == "" {
		c.Ingest.GroupID = "engagement-engine"
	}
}
