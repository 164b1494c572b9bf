package config

import (
	"fmt"
	"net"

	"github.com/robot-control/rcd/internal/actuator"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the assembled configuration as a whole.
func Validate(cfg *Config) error {
	if _, _, err := net.SplitHostPort(cfg.ListenAddr); err != nil {
		return fmt.Errorf("listenAddr %q: %w", cfg.ListenAddr, err)
	}
	if cfg.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddr); err != nil {
			return fmt.Errorf("metricsAddr %q: %w", cfg.MetricsAddr, err)
		}
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("logLevel %q: must be one of debug, info, warn, error", cfg.LogLevel)
	}
	if cfg.AuditDir == "" {
		return fmt.Errorf("auditDir must not be empty")
	}
	if cfg.MQTTBroker != "" && cfg.MQTTTopicRoot == "" {
		return fmt.Errorf("mqttTopicRoot must not be empty when mqttBroker is set")
	}

	for _, s := range []struct {
		name  string
		value int
	}{
		{"defaultSpeed", cfg.DefaultSpeed},
		{"legacyForwardSpeed", cfg.LegacyForwardSpeed},
		{"legacyTurnSpeed", cfg.LegacyTurnSpeed},
	} {
		if s.value <= 0 || s.value > actuator.MaxSpeed {
			return fmt.Errorf("%s %d: must be in (0, %d]", s.name, s.value, actuator.MaxSpeed)
		}
	}

	for _, d := range []struct {
		name  string
		value interface{ Seconds() float64 }
	}{
		{"legacyForwardDuration", cfg.LegacyForwardDuration},
		{"legacyTurnDuration", cfg.LegacyTurnDuration},
		{"shutdownGrace", cfg.ShutdownGrace},
	} {
		if d.value.Seconds() <= 0 {
			return fmt.Errorf("%s: must be positive", d.name)
		}
	}

	return nil
}
