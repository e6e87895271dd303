package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort             = "8080"
	DefaultAPIBaseURL       = "http://localhost:8080"
	DefaultQuestionDuration = 5 * time.Minute
	DefaultPoints           = 50

	SourceAPI      = "api"
	SourcePostgres = "postgres"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	API struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"api"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		QuestionDuration string `yaml:"question_duration"`
		Points           int    `yaml:"points"`
		CacheTTL         string `yaml:"cache_ttl"`
		Source           string `yaml:"source"`
	} `yaml:"quiz"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads YAML config from path. A missing file is not an error: the client runs on defaults.
// Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	case !os.IsNotExist(err):
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		key string
		dst *string
	}{
		{"QUIZ_API_URL", &c.API.BaseURL},
		{"PORT", &c.Server.Port},
		{"REDIS_ADDR", &c.Redis.Addr},
		{"POSTGRES_URL", &c.Postgres.URL},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.dst = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = DefaultPort
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultAPIBaseURL
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "elearning:"
	}
	if c.Quiz.Points <= 0 {
		c.Quiz.Points = DefaultPoints
	}
	if c.Quiz.Source == "" {
		c.Quiz.Source = SourceAPI
	}
	if c.Storage.Path == "" {
		c.Storage.Path = DefaultStoragePath()
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// DefaultStoragePath is ~/.elearning-quiz/storage.db, or a relative path when no home is known.
func DefaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".elearning-quiz", "storage.db")
	}
	return filepath.Join(home, ".elearning-quiz", "storage.db")
}

func (c Config) QuestionDuration() time.Duration {
	return TTLDuration(c.Quiz.QuestionDuration, DefaultQuestionDuration)
}

func (c Config) CacheTTL() time.Duration {
	return TTLDuration(c.Quiz.CacheTTL, 10*time.Minute)
}

func (c Config) RedisTTL() time.Duration {
	return TTLDuration(c.Redis.TTL, 30*time.Minute)
}

func (c Config) APITimeout() time.Duration {
	return TTLDuration(c.API.Timeout, 10*time.Second)
}

// TTLDuration parses a duration string or returns the fallback if empty or invalid.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}
