// Package nats publishes pipeline outcome events so downstream consumers can
// react to finished captures without polling the API.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dreschagin/screenshot-mailer/pkg/logger"
)

// Subjects for pipeline outcome events.
const (
	SubjectCaptureSucceeded = "screenshots.capture.succeeded"
	SubjectCaptureFailed    = "screenshots.capture.failed"
)

type Publisher struct {
	nc  *nats.Conn
	js  nats.JetStreamContext
	log *logger.Logger
}

func NewPublisher(natsURL string, log *logger.Logger) (*Publisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	log.Info("Connected to NATS", "url", natsURL)

	return &Publisher{nc: nc, js: js, log: log}, nil
}

// PublishEvent publishes asynchronously; delivery is fire-and-forget.
func (p *Publisher) PublishEvent(_ context.Context, subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.js.PublishAsync(subject, data); err != nil {
		p.log.Error("Failed to publish event", err, "subject", subject)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.log.Debug("Event published", "subject", subject, "size", len(data))
	return nil
}

func (p *Publisher) Close() error {
	if p.nc != nil {
		p.log.Info("Closing NATS connection")
		p.nc.Close()
	}
	return nil
}
