package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all the configuration for the application. Values come from
// an optional YAML file; environment variables override it.
type Config struct {
	Bot struct {
		Token string `yaml:"token"`
		Debug bool   `yaml:"debug"`
	} `yaml:"bot"`
	LLM struct {
		Provider string `yaml:"provider"`
		APIKey   string `yaml:"api_key"`
		BaseURL  string `yaml:"base_url"`
		Model    string `yaml:"model"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"llm"`
	Database struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
		URL    string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		Addr       string `yaml:"addr"`
		Password   string `yaml:"password"`
		DB         int    `yaml:"db"`
		SessionTTL string `yaml:"session_ttl"`
	} `yaml:"redis"`
	Quiz struct {
		Retention          string `yaml:"retention"`
		MessageDeleteDelay string `yaml:"message_delete_delay"`
		QuestionMessageTTL string `yaml:"question_message_ttl"`
		CleanupInterval    string `yaml:"cleanup_interval"`
		FanoutDelay        string `yaml:"fanout_delay"`
		Timezone           string `yaml:"timezone"`
	} `yaml:"quiz"`
	Health struct {
		Addr string `yaml:"addr"`
	} `yaml:"health"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderNone   = "none"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Load reads the YAML file at path, if any, then applies environment
// variables and defaults. A missing file is not an error when path is empty.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Validate checks what the bot needs to start.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return errors.New("BOT_TOKEN environment variable is required")
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("LLM_API_KEY environment variable is required for provider %q", c.LLM.Provider)
		}
	case ProviderNone:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider)
	}
	switch c.Database.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL environment variable is required for postgres")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"BOT_TOKEN":            &c.Bot.Token,
		"LLM_PROVIDER":         &c.LLM.Provider,
		"LLM_BASE_URL":         &c.LLM.BaseURL,
		"LLM_MODEL":            &c.LLM.Model,
		"LLM_TIMEOUT":          &c.LLM.Timeout,
		"DB_DRIVER":            &c.Database.Driver,
		"DB_PATH":              &c.Database.Path,
		"DATABASE_URL":         &c.Database.URL,
		"REDIS_ADDR":           &c.Redis.Addr,
		"REDIS_PASSWORD":       &c.Redis.Password,
		"SESSION_TTL":          &c.Redis.SessionTTL,
		"QUESTION_RETENTION":   &c.Quiz.Retention,
		"MESSAGE_DELETE_DELAY": &c.Quiz.MessageDeleteDelay,
		"QUESTION_MESSAGE_TTL": &c.Quiz.QuestionMessageTTL,
		"CLEANUP_INTERVAL":     &c.Quiz.CleanupInterval,
		"FANOUT_DELAY":         &c.Quiz.FanoutDelay,
		"TIMEZONE":             &c.Quiz.Timezone,
		"HEALTH_ADDR":          &c.Health.Addr,
		"LOG_LEVEL":            &c.Log.Level,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	// provider specific keys first, the generic one wins
	for _, key := range []string{"DEEPSEEK_API_KEY", "GEMINI_API_KEY", "LLM_API_KEY"} {
		if v := os.Getenv(key); v != "" {
			if key == "GEMINI_API_KEY" && c.LLM.Provider == "" {
				c.LLM.Provider = ProviderGemini
			}
			c.LLM.APIKey = v
		}
	}

	if v, ok := os.LookupEnv("REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.Redis.DB = n
	}
	if v, ok := os.LookupEnv("DEBUG"); ok {
		c.Bot.Debug = v == "true"
	}
	if v, ok := os.LookupEnv("LOG_PRETTY"); ok {
		c.Log.Pretty = v == "true"
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOpenAI
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/quiz.db"
	}
	if c.Health.Addr == "" {
		c.Health.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}

func (c *Config) LLMTimeout() time.Duration {
	return Duration(c.LLM.Timeout, 60*time.Second)
}

func (c *Config) SessionTTL() time.Duration {
	return Duration(c.Redis.SessionTTL, 24*time.Hour)
}

// Retention is how long questions are kept.
func (c *Config) Retention() time.Duration {
	return Duration(c.Quiz.Retention, 30*24*time.Hour)
}

// DeleteDelay is how long verdicts stay in the chat.
func (c *Config) DeleteDelay() time.Duration {
	return Duration(c.Quiz.MessageDeleteDelay, 20*time.Second)
}

// PromptTTL is how long question prompts stay in the chat.
func (c *Config) PromptTTL() time.Duration {
	return Duration(c.Quiz.QuestionMessageTTL, 24*time.Hour)
}

func (c *Config) CleanupInterval() time.Duration {
	return Duration(c.Quiz.CleanupInterval, time.Minute)
}

func (c *Config) FanoutDelay() time.Duration {
	return Duration(c.Quiz.FanoutDelay, time.Second)
}

// Location resolves the scheduler timezone; empty means the process local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Quiz.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Quiz.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", c.Quiz.Timezone, err)
	}
	return loc, nil
}
