// Package device speaks the request/response protocol of the board
// controller: sensor polls, LED frames and tuning parameters.
package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-Board/internal/boardstate"
	"github.com/park285/Cheese-Board/internal/led"
	"github.com/park285/Cheese-Board/internal/link"
)

const (
	cmdStates    = "?states?"
	cmdCalibrate = "calibrate"
	cmdLEDs      = "led values coming"

	replyReady    = "ready"
	replyAwaiting = "awaiting"

	defaultPollInterval = 50 * time.Millisecond
)

var ErrWaitTimeout = errors.New("timed out waiting for board condition")

// Transport is the framed byte stream the client drives.
type Transport interface {
	ReadPacket(ctx context.Context) (string, error)
	SendPacket(text string) error
	WriteRaw(b []byte) error
}

type Config struct {
	Mapping       boardstate.Mapping
	MaxBrightness uint8
	PollInterval  time.Duration
	// WaitTimeout bounds the WaitFor family; zero blocks until satisfied.
	WaitTimeout time.Duration
	// MaxBadPolls bounds re-polls after replies without 64 codes; zero is unbounded.
	MaxBadPolls int
}

// Client issues one request at a time; the controller has no request ids.
type Client struct {
	t      Transport
	cfg    Config
	logger *zap.Logger

	mu sync.Mutex
}

func New(t Transport, cfg Config, logger *zap.Logger) (*Client, error) {
	if t == nil {
		return nil, fmt.Errorf("device transport is required")
	}
	if err := cfg.Mapping.Validate(); err != nil {
		return nil, fmt.Errorf("square mapping: %w", err)
	}
	if cfg.MaxBrightness == 0 || cfg.MaxBrightness > led.DefaultMaxBrightness {
		cfg.MaxBrightness = led.DefaultMaxBrightness
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{t: t, cfg: cfg, logger: logger}, nil
}

func (c *Client) Mapping() boardstate.Mapping { return c.cfg.Mapping }

// Handshake waits for the controller's boot banner.
func (c *Client) Handshake(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readUntil(ctx, replyReady); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	c.logger.Info("device_ready")
	return nil
}

// ReadUntil discards packets until one equals expected.
func (c *Client) ReadUntil(ctx context.Context, expected string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readUntil(ctx, expected)
}

func (c *Client) readUntil(ctx context.Context, expected string) error {
	for {
		pkt, err := c.t.ReadPacket(ctx)
		if err != nil {
			return err
		}
		if pkt == expected {
			return nil
		}
		c.logger.Debug("device_skip_packet", zap.String("want", expected), zap.String("got", pkt))
	}
}

// Calibrate asks the controller to re-zero its sensors and waits for it to
// report ready again.
func (c *Client) Calibrate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.t.SendPacket(cmdCalibrate); err != nil {
		return fmt.Errorf("calibrate: %w", err)
	}
	if err := c.readUntil(ctx, replyReady); err != nil {
		return fmt.Errorf("calibrate: %w", err)
	}
	return nil
}

// GetParam queries a controller parameter and returns the raw reply.
func (c *Client) GetParam(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getParam(ctx, name)
}

func (c *Client) getParam(ctx context.Context, name string) (string, error) {
	if err := c.t.SendPacket("?" + name + "?"); err != nil {
		return "", fmt.Errorf("get %s: %w", name, err)
	}
	v, err := c.t.ReadPacket(ctx)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", name, err)
	}
	return v, nil
}

// SetParam assigns a controller parameter. The controller does not reply.
func (c *Client) SetParam(_ context.Context, name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.t.SendPacket(name + ":" + value); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}

// PollSensors reads the 64 occupancy codes and returns them in logical order.
// Replies that do not decode to exactly 64 codes are re-polled.
func (c *Client) PollSensors(ctx context.Context) (boardstate.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bad := 0
	for {
		if err := c.t.SendPacket(cmdStates); err != nil {
			return boardstate.State{}, fmt.Errorf("poll sensors: %w", err)
		}
		reply, err := c.t.ReadPacket(ctx)
		if err != nil {
			return boardstate.State{}, fmt.Errorf("poll sensors: %w", err)
		}
		raw, err := boardstate.ParseState(reply)
		if err == nil {
			return c.cfg.Mapping.FromPhysical(raw), nil
		}
		bad++
		c.logger.Debug("device_bad_poll", zap.String("reply", reply), zap.Error(err))
		if c.cfg.MaxBadPolls > 0 && bad > c.cfg.MaxBadPolls {
			return boardstate.State{}, fmt.Errorf("poll sensors: %w: %d bad replies", link.ErrDeviceUnresponsive, bad)
		}
	}
}

// PushLEDs announces a frame, waits for the controller to be ready for it
// and writes the binary frame in one call.
func (c *Client) PushLEDs(ctx context.Context, frame led.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.t.SendPacket(cmdLEDs); err != nil {
		return fmt.Errorf("push leds: %w", err)
	}
	if err := c.readUntil(ctx, replyAwaiting); err != nil {
		return fmt.Errorf("push leds: %w", err)
	}
	if err := c.t.WriteRaw(EncodeFrame(frame, c.cfg.Mapping, c.cfg.MaxBrightness)); err != nil {
		return fmt.Errorf("push leds: %w", err)
	}
	return nil
}

// WaitFor calls check every poll interval until it reports true. With a
// zero WaitTimeout it blocks until the condition holds or ctx ends.
func (c *Client) WaitFor(ctx context.Context, check func(ctx context.Context) (bool, error)) error {
	var deadline time.Time
	if c.cfg.WaitTimeout > 0 {
		deadline = time.Now().Add(c.cfg.WaitTimeout)
	}
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		ok, err := check(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return ErrWaitTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitForParam polls a parameter until pred accepts its value.
func (c *Client) WaitForParam(ctx context.Context, name string, pred func(string) bool) (string, error) {
	var last string
	err := c.WaitFor(ctx, func(ctx context.Context) (bool, error) {
		v, err := c.GetParam(ctx, name)
		if err != nil {
			return false, err
		}
		last = v
		return pred(v), nil
	})
	return last, err
}

// WaitForBoard polls the sensors until they read exactly target.
func (c *Client) WaitForBoard(ctx context.Context, target boardstate.State) (boardstate.State, error) {
	var last boardstate.State
	err := c.WaitFor(ctx, func(ctx context.Context) (bool, error) {
		st, err := c.PollSensors(ctx)
		if err != nil {
			return false, err
		}
		last = st
		return st == target, nil
	})
	return last, err
}
