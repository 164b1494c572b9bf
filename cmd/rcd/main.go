// Command rcd is the robot control daemon: a TCP command server driving the
// differential drive and turret of a Mindstorms EV3 robot.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/robot-control/rcd/internal/actuator"
	"github.com/robot-control/rcd/internal/actuator/ev3"
	"github.com/robot-control/rcd/internal/actuator/sim"
	"github.com/robot-control/rcd/internal/audit"
	"github.com/robot-control/rcd/internal/command"
	"github.com/robot-control/rcd/internal/config"
	"github.com/robot-control/rcd/internal/metrics"
	"github.com/robot-control/rcd/internal/server"
	"github.com/robot-control/rcd/internal/telemetry"
	"github.com/robot-control/rcd/internal/telemetry/mqttbridge"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "rcd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr        = pflag.String("addr", "", "listen address (overrides config)")
		metricsAddr = pflag.String("metrics-addr", "", "Prometheus endpoint address (overrides config)")
		configPath  = pflag.String("config", "", "path to JSON config file")
		simulate    = pflag.Bool("sim", false, "use the simulated actuator instead of ev3dev")
		logLevel    = pflag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
		mqttBroker  = pflag.String("mqtt-broker", "", "MQTT broker URL for telemetry (overrides config)")
		showVersion = pflag.Bool("version", false, "print version and exit")
	)
	pflag.Parse()

	if *showVersion {
		fmt.Println("rcd " + version)
		return nil
	}

	// Step 1: configuration. Baseline, then env, then file, then flags.
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *mqttBroker != "" {
		cfg.MQTTBroker = *mqttBroker
	}
	if *simulate {
		cfg.SimulationMode = true
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Step 2: logging. The level is atomic so config reloads can change it.
	level := zap.NewAtomicLevel()
	if err := setLevel(&level, cfg.LogLevel); err != nil {
		return err
	}
	logger, err := newLogger(level)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting rcd", zap.String("version", version))

	// Step 3: actuator.
	act, err := newActuator(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize actuator: %w", err)
	}
	logger.Info("actuator ready", zap.String("mode", act.Mode()))

	// Step 4: audit logger.
	auditLogger, err := audit.NewLogger(cfg.AuditDir)
	if err != nil {
		return fmt.Errorf("failed to initialize audit logger: %w", err)
	}
	defer func() { _ = auditLogger.Close() }()

	// Step 5: telemetry hub and optional MQTT bridge.
	hub := telemetry.NewHub()
	defer hub.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var bridge *mqttbridge.Bridge
	if cfg.MQTTBroker != "" {
		bridge = mqttbridge.New(cfg.MQTTBroker, cfg.MQTTTopicRoot, "rcd-"+hostname(), hub, logger)
		if err := bridge.Start(ctx); err != nil {
			return fmt.Errorf("failed to start mqtt bridge: %w", err)
		}
		logger.Info("telemetry bridge started", zap.String("broker", cfg.MQTTBroker))
	}

	// Step 6: command interpreter.
	interp := command.New(act, hub, auditLogger, cfg.Tunables(), logger)

	// Step 7: TCP command server.
	srv := server.New(cfg.ListenAddr, cfg.WelcomeBanner, interp, hub, logger)
	if err := srv.Start(); err != nil {
		return err
	}

	// Step 8: optional Prometheus endpoint.
	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			logger.Info("metrics endpoint listening", zap.String("addr", cfg.MetricsAddr))
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	// Step 9: config hot reload.
	if *configPath != "" {
		go func() {
			err := config.Watch(ctx, *configPath, logger, func(updated *config.Config) {
				interp.UpdateTunables(updated.Tunables())
				if err := setLevel(&level, updated.LogLevel); err != nil {
					logger.Warn("config reload carried a bad log level", zap.Error(err))
				}
				logger.Info("configuration reloaded")
			})
			if err != nil && ctx.Err() == nil {
				logger.Warn("config watch stopped", zap.Error(err))
			}
		}()
	}

	// Step 10: wait for shutdown.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdown
	logger.Info("shutting down", zap.String("signal", sig.String()))
	cancel()

	graceCtx, graceCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer graceCancel()

	if err := srv.Stop(graceCtx); err != nil {
		logger.Warn("server shutdown was forced", zap.Error(err))
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(graceCtx)
	}
	if bridge != nil {
		if err := bridge.Stop(graceCtx); err != nil {
			logger.Warn("mqtt bridge shutdown failed", zap.Error(err))
		}
	}

	// Motors never outlive the daemon.
	if err := act.StopAll(); err != nil {
		logger.Warn("failed to stop motors on shutdown", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

// newActuator selects the ev3dev driver or the simulator per configuration.
func newActuator(cfg *config.Config, logger *zap.Logger) (actuator.Actuator, error) {
	if cfg.SimulationMode {
		return sim.New(), nil
	}
	return ev3.New(logger)
}

func newLogger(level zap.AtomicLevel) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zcfg.Build()
}

func setLevel(level *zap.AtomicLevel, name string) error {
	parsed, err := zapcore.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	level.SetLevel(parsed)
	return nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
