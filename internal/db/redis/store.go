// Package redis provides a Redis-backed key-value store for soilsense.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/soilsense/internal/kv"
)

// Config holds Redis connection settings.
type Config struct {
	Addr        string        // host:port
	Password    string        // optional AUTH password
	DB          int           // logical database index
	Prefix      string        // prepended to every key
	MaxIdle     int           // idle connections kept in the pool (default: 4)
	IdleTimeout time.Duration // idle connection lifetime (default: 5m)
}

// Store implements kv.Store on a redigo connection pool.
type Store struct {
	pool   *redis.Pool
	prefix string
}

var _ kv.Store = (*Store)(nil)

// NewStore creates a pool for cfg and verifies it with PING.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	opts := []redis.DialOption{
		redis.DialDatabase(cfg.DB),
		redis.DialConnectTimeout(5 * time.Second),
	}
	if cfg.Password != "" {
		opts = append(opts, redis.DialPassword(cfg.Password))
	}

	pool := newPool(cfg, func() (redis.Conn, error) {
		return redis.Dial("tcp", cfg.Addr, opts...)
	})
	store := &Store{pool: pool, prefix: cfg.Prefix}

	if err := store.Ping(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Debug().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("Redis store connected")
	return store, nil
}

func newPool(cfg Config, dial func() (redis.Conn, error)) *redis.Pool {
	maxIdle := cfg.MaxIdle
	if maxIdle <= 0 {
		maxIdle = 4
	}
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = 5 * time.Minute
	}
	return &redis.Pool{
		MaxIdle:     maxIdle,
		IdleTimeout: idle,
		Dial:        dial,
	}
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

// Ping checks that a pooled connection answers.
func (s *Store) Ping(ctx context.Context) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Do("PING")
	return err
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return "", false, err
	}
	defer conn.Close()

	value, err := redis.String(conn.Do("GET", s.key(key)))
	if errors.Is(err, redis.ErrNil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Do("SET", s.key(key), value)
	return err
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Do("DEL", s.key(key))
	return err
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.pool.Close()
}
