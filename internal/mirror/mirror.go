// Package mirror keeps the live game state in Redis for external readers.
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/park285/Cheese-Board/internal/game"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "chessboard:"
	defaultTTL = 24 * time.Hour
)

type Mirror struct {
	rdb *redis.Client
	ttl time.Duration
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, rawURL string, ttl time.Duration) (*Mirror, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, errors.New("REDIS_URL required for state mirror")
	}
	opts, err := parseRedisURL(rawURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, ttl), nil
}

func New(rdb *redis.Client, ttl time.Duration) *Mirror {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Mirror{rdb: rdb, ttl: ttl}
}

func (m *Mirror) keySession(id string) string { return keyPrefix + "session:" + strings.TrimSpace(id) }
func (m *Mirror) keyCurrent() string          { return keyPrefix + "current" }

// Publish stores snap under its session key and marks the session current.
func (m *Mirror) Publish(ctx context.Context, snap game.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = m.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, m.keySession(snap.SessionID), raw, m.ttl)
		p.Set(ctx, m.keyCurrent(), snap.SessionID, m.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("mirror snapshot: %w", err)
	}
	return nil
}

// Load returns the stored snapshot of a session, or nil if none exists.
func (m *Mirror) Load(ctx context.Context, id string) (*game.Snapshot, error) {
	raw, err := m.rdb.Get(ctx, m.keySession(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s game.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Current returns the snapshot of the most recently published session.
func (m *Mirror) Current(ctx context.Context) (*game.Snapshot, error) {
	id, err := m.rdb.Get(ctx, m.keyCurrent()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.Load(ctx, id)
}

func (m *Mirror) Close() error { return m.rdb.Close() }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
