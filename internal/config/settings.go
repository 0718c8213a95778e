package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the optional <scope>/kingdom.yaml tool configuration.
// Every field has a working default; the file only overrides.
type Settings struct {
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	PollIntervalMS int      `yaml:"poll_interval_ms"`
	Members        []string `yaml:"members"` // empty = all configured agents
	Pattern        string   `yaml:"pattern"`
}

const settingsFile = "kingdom.yaml"

func defaultSettings() *Settings {
	return &Settings{
		TimeoutSeconds: 300,
		PollIntervalMS: 100,
		Pattern:        "council",
	}
}

// LoadSettings reads the scope's settings file, returning defaults when
// it is absent.
func LoadSettings(scope string) (*Settings, error) {
	s := defaultSettings()
	data, err := os.ReadFile(filepath.Join(scope, settingsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if s.TimeoutSeconds <= 0 {
		s.TimeoutSeconds = 300
	}
	if s.PollIntervalMS <= 0 {
		s.PollIntervalMS = 100
	}
	return s, nil
}

func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func (s *Settings) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMS) * time.Millisecond
}
