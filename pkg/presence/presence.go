// Package presence publishes live companion status and haptic cues over NATS.
//
// Subjects:
//
//	companion.<session>.status   engine.Status, at most every status interval
//	companion.<session>.haptic   haptics.Event
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/teslashibe/go-companion/pkg/engine"
	"github.com/teslashibe/go-companion/pkg/haptics"
)

// SubjectPrefix is the root of every presence subject.
const SubjectPrefix = "companion"

// StatusSubject returns the status subject for a session.
func StatusSubject(session string) string {
	return fmt.Sprintf("%s.%s.status", SubjectPrefix, session)
}

// HapticSubject returns the haptic subject for a session.
func HapticSubject(session string) string {
	return fmt.Sprintf("%s.%s.haptic", SubjectPrefix, session)
}

// Publisher sends status and haptic events on a NATS connection.
type Publisher struct {
	nc      *nats.Conn
	session string
	log     *slog.Logger
}

// NewPublisher wraps an existing connection.
func NewPublisher(nc *nats.Conn, session string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		nc:      nc,
		session: session,
		log:     logger.With("component", "presence", "session", session),
	}
}

// Connect dials url with reconnects enabled. The returned close function
// drains the connection.
func Connect(url, name string, logger *slog.Logger) (*nats.Conn, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	logger.Info("connected to NATS", "url", url)
	return nc, func() {
		if err := nc.Drain(); err != nil {
			nc.Close()
		}
	}, nil
}

// PublishStatus implements engine.StatusPublisher.
func (p *Publisher) PublishStatus(ctx context.Context, st engine.Status) error {
	return p.publish(ctx, StatusSubject(p.session), st)
}

// Emit implements haptics.Sink.
func (p *Publisher) Emit(ctx context.Context, ev haptics.Event) error {
	return p.publish(ctx, HapticSubject(p.session), ev)
}

func (p *Publisher) publish(ctx context.Context, subject string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.log.Debug("published", "subject", subject, "bytes", len(data))
	return nil
}

// Nop discards status updates.
type Nop struct{}

// PublishStatus implements engine.StatusPublisher.
func (Nop) PublishStatus(context.Context, engine.Status) error { return nil }
