// Package telemetry publishes controller events to an MQTT broker from a Linux
// host using the Eclipse Paho client.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/harveysanders/relaybox/relayhost/config"
	"github.com/harveysanders/relaybox/relaybox/controller"
)

const publishTimeout = 5 * time.Second

// client is the subset of paho.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

type Publisher struct {
	client client
	topic  string
	logger *slog.Logger
}

// Connect dials the broker. Paho keeps reconnecting in the background after the
// first connection succeeds.
func Connect(cfg config.MQTTConfig, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = discard()
	}
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Error("mqtt:connection-lost", slog.String("err", err.Error()))
		}).
		SetOnConnectHandler(func(paho.Client) {
			logger.Info("mqtt:connected", slog.String("broker", cfg.Broker))
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	c := paho.NewClient(opts)
	tok := c.Connect()
	if !tok.WaitTimeout(15 * time.Second) {
		return nil, fmt.Errorf("mqtt connect %s: timed out", cfg.Broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	return newPublisher(c, cfg.Topic, logger), nil
}

func newPublisher(c client, topic string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = discard()
	}
	return &Publisher{client: c, topic: topic, logger: logger}
}

// Run publishes each event as JSON until ctx is done or events is closed, then
// disconnects.
func (p *Publisher) Run(ctx context.Context, events <-chan controller.Event) {
	defer p.client.Disconnect(250)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := p.publish(ev); err != nil {
				p.logger.Error("mqtt:publish-failed", slog.String("err", err.Error()))
			}
		}
	}
}

func (p *Publisher) publish(ev controller.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	tok := p.client.Publish(p.topic, 0, false, payload)
	if !tok.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timed out", p.topic)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", p.topic, err)
	}
	p.logger.Debug("mqtt:published", slog.String("command", ev.Command))
	return nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }
