// Package events publishes game snapshots on NATS and accepts remote
// button presses.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/park285/Cheese-Board/internal/game"
	"go.uber.org/zap"
)

const DefaultSubject = "chessboard"

// Conn is the subset of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
	Close()
}

// Presser receives remote presses.
type Presser interface {
	Notify()
}

type Publisher struct {
	nc     Conn
	prefix string
	logger *zap.Logger
}

// Connect dials url and returns a publisher rooted at prefix.
func Connect(url, prefix string, logger *zap.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url, nats.Name("cheese-board"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return New(nc, prefix, logger), nil
}

func New(nc Conn, prefix string, logger *zap.Logger) *Publisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubject
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{nc: nc, prefix: prefix, logger: logger}
}

// Subject returns the per-session subject for an event.
func (p *Publisher) Subject(sessionID string, event game.EventKind) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, sessionID, event)
}

// Publish sends snap on its event subject and on the catch-all subject.
func (p *Publisher) Publish(_ context.Context, snap game.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(p.Subject(snap.SessionID, snap.Event), data); err != nil {
		return fmt.Errorf("publish %s: %w", snap.Event, err)
	}
	if err := p.nc.Publish(p.prefix+".all", data); err != nil {
		return fmt.Errorf("publish all: %w", err)
	}
	return nil
}

// ForwardPresses turns messages on <prefix>.press into button presses.
func (p *Publisher) ForwardPresses(dst Presser) (*nats.Subscription, error) {
	subject := p.prefix + ".press"
	sub, err := p.nc.Subscribe(subject, func(msg *nats.Msg) {
		p.logger.Info("remote_press", zap.String("subject", msg.Subject))
		dst.Notify()
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub, nil
}

func (p *Publisher) Close() { p.nc.Close() }
