package config

import (
	"time"
)

// Config holds every daemon setting.
type Config struct {
	// Wire surface
	ListenAddr    string `json:"listenAddr"`
	WelcomeBanner string `json:"welcomeBanner"`

	// Observability
	MetricsAddr string `json:"metricsAddr"` // empty disables the metrics endpoint
	LogLevel    string `json:"logLevel"`
	AuditDir    string `json:"auditDir"`

	// Telemetry egress
	MQTTBroker    string `json:"mqttBroker"` // empty disables the MQTT bridge
	MQTTTopicRoot string `json:"mqttTopicRoot"`

	// Actuator selection
	SimulationMode bool `json:"simulationMode"`

	// Command tunables
	DefaultSpeed          int           `json:"defaultSpeed"`
	LegacyForwardSpeed    int           `json:"legacyForwardSpeed"`
	LegacyForwardDuration time.Duration `json:"-"`
	LegacyTurnSpeed       int           `json:"legacyTurnSpeed"`
	LegacyTurnDuration    time.Duration `json:"-"`

	// Lifecycle
	ShutdownGrace time.Duration `json:"-"`
}

// Default wire settings.
const (
	DefaultListenAddr = "0.0.0.0:27700"
	DefaultBanner     = "Welcome to Mindstorms EV3 Remote Controller!\nSend JSON commands to control the robot.\n"
)

// LoadBaseline returns the baseline configuration. The command tunables
// reproduce the legacy remote controller defaults: forward/backward at speed
// 500 for 1s, turns at speed 300 for 0.5s.
func LoadBaseline() *Config {
	return &Config{
		ListenAddr:    DefaultListenAddr,
		WelcomeBanner: DefaultBanner,

		MetricsAddr: "",
		LogLevel:    "info",
		AuditDir:    "logs",

		MQTTBroker:    "",
		MQTTTopicRoot: "robot/v1",

		SimulationMode: false,

		DefaultSpeed:          500,
		LegacyForwardSpeed:    500,
		LegacyForwardDuration: 1 * time.Second,
		LegacyTurnSpeed:       300,
		LegacyTurnDuration:    500 * time.Millisecond,

		ShutdownGrace: 5 * time.Second,
	}
}

// Tunables is the hot-reloadable subset of Config consumed by the command
// interpreter.
type Tunables struct {
	DefaultSpeed          int
	LegacyForwardSpeed    int
	LegacyForwardDuration time.Duration
	LegacyTurnSpeed       int
	LegacyTurnDuration    time.Duration
}

// Tunables extracts the interpreter tunables from the config.
func (c *Config) Tunables() *Tunables {
	return &Tunables{
		DefaultSpeed:          c.DefaultSpeed,
		LegacyForwardSpeed:    c.LegacyForwardSpeed,
		LegacyForwardDuration: c.LegacyForwardDuration,
		LegacyTurnSpeed:       c.LegacyTurnSpeed,
		LegacyTurnDuration:    c.LegacyTurnDuration,
	}
}
