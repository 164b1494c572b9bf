package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Load merges LoadBaseline() + RCD_* env overrides + the optional config
// file, then validates the result. An empty path skips the file layer.
func Load(path string) (*Config, error) {
	cfg := LoadBaseline()

	applyEnvOverrides(cfg)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := mergeFile(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies RCD_* environment variables to the config.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("RCD_ADDR"); val != "" {
		cfg.ListenAddr = val
	}
	if val := os.Getenv("RCD_METRICS_ADDR"); val != "" {
		cfg.MetricsAddr = val
	}
	if val := os.Getenv("RCD_LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}
	if val := os.Getenv("RCD_AUDIT_DIR"); val != "" {
		cfg.AuditDir = val
	}
	if val := os.Getenv("RCD_MQTT_BROKER"); val != "" {
		cfg.MQTTBroker = val
	}
	if val := os.Getenv("RCD_MQTT_TOPIC_ROOT"); val != "" {
		cfg.MQTTTopicRoot = val
	}
	if val := os.Getenv("RCD_SIMULATION"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.SimulationMode = b
		}
	}
	if val := os.Getenv("RCD_DEFAULT_SPEED"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.DefaultSpeed = n
		}
	}
	if val := os.Getenv("RCD_LEGACY_FORWARD_SPEED"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.LegacyForwardSpeed = n
		}
	}
	if val := os.Getenv("RCD_LEGACY_FORWARD_DURATION"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.LegacyForwardDuration = d
		}
	}
	if val := os.Getenv("RCD_LEGACY_TURN_SPEED"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.LegacyTurnSpeed = n
		}
	}
	if val := os.Getenv("RCD_LEGACY_TURN_DURATION"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.LegacyTurnDuration = d
		}
	}
	if val := os.Getenv("RCD_SHUTDOWN_GRACE"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.ShutdownGrace = d
		}
	}
}

// fileConfig mirrors Config for the JSON file layer. Durations are strings
// in Go duration syntax ("1s", "500ms"); pointer fields distinguish absent
// from zero so the file only overrides what it names.
type fileConfig struct {
	ListenAddr    *string `json:"listenAddr"`
	WelcomeBanner *string `json:"welcomeBanner"`
	MetricsAddr   *string `json:"metricsAddr"`
	LogLevel      *string `json:"logLevel"`
	AuditDir      *string `json:"auditDir"`
	MQTTBroker    *string `json:"mqttBroker"`
	MQTTTopicRoot *string `json:"mqttTopicRoot"`

	SimulationMode *bool `json:"simulationMode"`

	DefaultSpeed          *int    `json:"defaultSpeed"`
	LegacyForwardSpeed    *int    `json:"legacyForwardSpeed"`
	LegacyForwardDuration *string `json:"legacyForwardDuration"`
	LegacyTurnSpeed       *int    `json:"legacyTurnSpeed"`
	LegacyTurnDuration    *string `json:"legacyTurnDuration"`

	ShutdownGrace *string `json:"shutdownGrace"`
}

// mergeFile overlays the JSON file's settings onto cfg.
func mergeFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := json.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	if fc.ListenAddr != nil {
		cfg.ListenAddr = *fc.ListenAddr
	}
	if fc.WelcomeBanner != nil {
		cfg.WelcomeBanner = *fc.WelcomeBanner
	}
	if fc.MetricsAddr != nil {
		cfg.MetricsAddr = *fc.MetricsAddr
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.AuditDir != nil {
		cfg.AuditDir = *fc.AuditDir
	}
	if fc.MQTTBroker != nil {
		cfg.MQTTBroker = *fc.MQTTBroker
	}
	if fc.MQTTTopicRoot != nil {
		cfg.MQTTTopicRoot = *fc.MQTTTopicRoot
	}
	if fc.SimulationMode != nil {
		cfg.SimulationMode = *fc.SimulationMode
	}
	if fc.DefaultSpeed != nil {
		cfg.DefaultSpeed = *fc.DefaultSpeed
	}
	if fc.LegacyForwardSpeed != nil {
		cfg.LegacyForwardSpeed = *fc.LegacyForwardSpeed
	}
	if fc.LegacyTurnSpeed != nil {
		cfg.LegacyTurnSpeed = *fc.LegacyTurnSpeed
	}

	for _, d := range []struct {
		raw  *string
		dest *time.Duration
		name string
	}{
		{fc.LegacyForwardDuration, &cfg.LegacyForwardDuration, "legacyForwardDuration"},
		{fc.LegacyTurnDuration, &cfg.LegacyTurnDuration, "legacyTurnDuration"},
		{fc.ShutdownGrace, &cfg.ShutdownGrace, "shutdownGrace"},
	} {
		if d.raw == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dest = parsed
	}

	return nil
}
