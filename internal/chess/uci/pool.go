package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
)

// Factory starts a new session for the pool.
type Factory func(ctx context.Context, opt Options) (*Session, error)

type PoolConfig struct {
	BinaryPath string
	Capacity   int
	Options    Options
	// Factory overrides process spawning; BinaryPath is ignored when set.
	Factory Factory
}

// Pool keeps warm engine sessions for one option set. Sessions are created
// lazily up to Capacity and handed out one caller at a time.
type Pool struct {
	opt     Options
	factory Factory
	logger  *zap.Logger

	slots chan struct{}
	idle  chan *Session

	mu     sync.Mutex
	closed bool
}

func NewPool(cfg PoolConfig, logger *zap.Logger) (*Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := validateOptions(cfg.Options); err != nil {
		return nil, err
	}
	factory := cfg.Factory
	if factory == nil {
		if cfg.BinaryPath == "" {
			return nil, fmt.Errorf("binary path required")
		}
		if _, err := os.Stat(cfg.BinaryPath); err != nil {
			return nil, fmt.Errorf("stockfish binary check: %w", err)
		}
		path := cfg.BinaryPath
		factory = func(ctx context.Context, opt Options) (*Session, error) {
			return NewSession(ctx, path, opt, logger)
		}
	}
	capacity := max(cfg.Capacity, 1)
	return &Pool{
		opt:     cfg.Options,
		factory: factory,
		logger:  logger,
		slots:   make(chan struct{}, capacity),
		idle:    make(chan *Session, capacity),
	}, nil
}

var errPoolClosed = errors.New("engine pool closed")

// Acquire returns an idle session or starts a new one when below capacity.
// It blocks while every session is in use.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	for {
		if p.isClosed() {
			return nil, errPoolClosed
		}
		select {
		case s := <-p.idle:
			if err := s.EnsureReady(ctx); err != nil {
				p.logger.Warn("uci_session_stale", zap.Error(err))
				p.drop(s)
				continue
			}
			return s, nil
		default:
		}

		select {
		case s := <-p.idle:
			if err := s.EnsureReady(ctx); err != nil {
				p.drop(s)
				continue
			}
			return s, nil
		case p.slots <- struct{}{}:
			s, err := p.factory(ctx, p.opt)
			if err != nil {
				<-p.slots
				return nil, err
			}
			return s, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Release returns s to the pool. A non-nil err discards the session.
func (p *Pool) Release(s *Session, err error) {
	if s == nil {
		return
	}
	if err != nil || p.isClosed() {
		p.drop(s)
		return
	}
	select {
	case p.idle <- s:
	default:
		p.drop(s)
	}
}

func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for {
		select {
		case s := <-p.idle:
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
			<-p.slots
		default:
			return errors.Join(errs...)
		}
	}
}

func (p *Pool) drop(s *Session) {
	_ = s.Close()
	<-p.slots
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
