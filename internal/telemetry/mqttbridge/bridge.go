package mqttbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"go.uber.org/zap"

	"github.com/robot-control/rcd/internal/telemetry"
)

const (
	keepAlive      = 30
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Bridge republishes hub events to an MQTT broker.
type Bridge struct {
	broker    string
	topicRoot string
	clientID  string
	hub       *telemetry.Hub
	logger    *zap.Logger

	cm     *autopaho.ConnectionManager
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a bridge. broker is a URL such as mqtt://host:1883.
func New(broker, topicRoot, clientID string, hub *telemetry.Hub, logger *zap.Logger) *Bridge {
	return &Bridge{
		broker:    broker,
		topicRoot: topicRoot,
		clientID:  clientID,
		hub:       hub,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start connects to the broker and begins forwarding events. The connection
// is managed in the background; Start does not wait for it to come up.
func (b *Bridge) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(b.broker)
	if err != nil {
		return fmt.Errorf("invalid broker url %q: %w", b.broker, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	cfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{brokerURL},
		KeepAlive:                     keepAlive,
		CleanStartOnInitialConnection: true,
		ReconnectBackoff:              autopaho.NewConstantBackoff(3 * time.Second),
		ConnectTimeout:                connectTimeout,
		OnConnectionUp: func(_ *autopaho.ConnectionManager, _ *paho.Connack) {
			b.logger.Info("mqtt connection established", zap.String("broker", b.broker))
		},
		OnConnectError: func(err error) {
			b.logger.Warn("mqtt connect failed, retrying", zap.Error(err))
		},
		ClientConfig: paho.ClientConfig{
			ClientID: b.clientID,
			OnClientError: func(err error) {
				b.logger.Warn("mqtt client error", zap.Error(err))
			},
		},
	}

	cm, err := autopaho.NewConnection(runCtx, cfg)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start mqtt connection: %w", err)
	}
	b.cm = cm

	events, unsubscribe := b.hub.Subscribe()
	go b.pump(runCtx, events, unsubscribe)
	return nil
}

// Stop detaches from the hub and disconnects from the broker.
func (b *Bridge) Stop(ctx context.Context) error {
	if b.cancel == nil {
		return nil
	}
	b.cancel()

	select {
	case <-b.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if b.cm != nil {
		_ = b.cm.Disconnect(ctx)
	}
	return nil
}

func (b *Bridge) pump(ctx context.Context, events <-chan telemetry.Event, unsubscribe func()) {
	defer close(b.done)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			b.publish(ctx, event)
		}
	}
}

func (b *Bridge) publish(ctx context.Context, event telemetry.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Warn("event marshal failed", zap.Error(err))
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	topic := b.topicRoot + "/events/" + event.Type
	if _, err := b.cm.Publish(pubCtx, &paho.Publish{
		Topic:   topic,
		QoS:     0,
		Payload: payload,
	}); err != nil {
		// QoS 0 fire and forget: a dead broker just loses the event.
		b.logger.Debug("event publish failed", zap.String("topic", topic), zap.Error(err))
	}
}
