// Package redis stores tracking outcomes and signature claims in Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix         = "txconfirm"
	defaultOutcomeTTL = 24 * time.Hour
)

type client struct {
	conn       *redis.Client
	holder     string        // identifies this process as a claim owner
	outcomeTTL time.Duration // lifetime of stored outcomes
}

func (c *client) Close() error {
	return c.conn.Close()
}

type config struct {
	username   string
	password   string
	db         int
	outcomeTTL time.Duration
}

// Option configures the Redis client.
type Option func(*config)

// WithCredentials sets the ACL username and password.
func WithCredentials(username, password string) Option {
	return func(c *config) {
		c.username = username
		c.password = password
	}
}

// WithDB selects the logical database. Default: 0.
func WithDB(db int) Option {
	return func(c *config) {
		c.db = db
	}
}

// WithOutcomeTTL sets how long outcomes are kept. Default: 24 hours.
func WithOutcomeTTL(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.outcomeTTL = d
		}
	}
}

// NewClient connects to addr and verifies the connection with PING.
func NewClient(ctx context.Context, addr string, opts ...Option) (*client, error) {
	cfg := config{outcomeTTL: defaultOutcomeTTL}
	for _, opt := range opts {
		opt(&cfg)
	}

	holder, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate claim holder id: %w", err)
	}

	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: cfg.username,
		Password: cfg.password,
		DB:       cfg.db,
	})

	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &client{
		conn:       conn,
		holder:     holder.String(),
		outcomeTTL: cfg.outcomeTTL,
	}, nil
}
