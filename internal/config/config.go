package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Live struct {
		// QuestionTime is the per-question countdown when the quiz does
		// not carry its own limit.
		QuestionTime string `yaml:"question_time"`
		// SessionTTL bounds how long an idle session stays registered.
		SessionTTL string `yaml:"session_ttl"`
		// AllowEmptyStart lets admins start sessions with an empty roster
		// without the explicit force flag.
		AllowEmptyStart bool `yaml:"allow_empty_start"`
		// RemoveOnDisconnect drops participants whose connection closes
		// instead of keeping them for reconnection.
		RemoveOnDisconnect bool `yaml:"remove_on_disconnect"`
		BasePoints         int  `yaml:"base_points"`
		MaxTimeBonus       int  `yaml:"max_time_bonus"`
	} `yaml:"live"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or
// malformed.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
