// Package config loads prepstage configuration from a flat-key JSON file
// with environment-variable overrides.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	GenAI    GenAIConfig
	Detector DetectorConfig
	Storage  StorageConfig
	Session  SessionConfig
	User     UserConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

type GenAIConfig struct {
	BaseURL string
	Model   string
	APIKey  string
}

type DetectorConfig struct {
	BaseURL        string
	SampleInterval string
}

// Interval parses the configured sampling interval, falling back to 1s.
func (c DetectorConfig) Interval() time.Duration {
	d, err := time.ParseDuration(c.SampleInterval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

type StorageConfig struct {
	DataDir string
}

type SessionConfig struct {
	QuestionsPerSection int
}

type UserConfig struct {
	ID string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4200,
		},
		GenAI: GenAIConfig{
			BaseURL: "https://generativelanguage.googleapis.com",
			Model:   "gemini-1.5-flash",
		},
		Detector: DetectorConfig{
			SampleInterval: "1s",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Session: SessionConfig{
			QuestionsPerSection: 5,
		},
		User: UserConfig{
			ID: "local",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/prepstage/config.json, then applies PREPSTAGE_*
// environment overrides. A .env file in the working directory is loaded
// first, so secrets can live next to the project.
func Load() (Config, error) {
	_ = godotenv.Load()
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	if cfg.GenAI.APIKey == "" {
		return Config{}, fmt.Errorf(
			"missing required config: generative API key. Set it via environment variable PREPSTAGE_GENAI_API_KEY")
	}
	return cfg, nil
}
