// Package publisher shares committed strategy profiles with the content-generation side
// through Redis: the latest profile is kept under strategy:<creator_id> and every commit
// is announced on a pub/sub channel.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"engagement-engine/internal/models"
)

const (
	keyPrefix          = "strategy:"
	defaultDialTimeout = 5 * time.Second
)

// Config configures the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// Publisher writes profiles to Redis.
type Publisher struct {
	client  goredis.UniversalClient
	channel string
	logger  *zap.Logger
}

// Connect dials Redis and verifies the connection. It returns nil, nil when no address
// is configured.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*Publisher, error) {
	if cfg.Addr == "" {
		logger.Info("Strategy publisher is disabled (redis.addr is empty)")
		return nil, nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultDialTimeout,
		WriteTimeout: defaultDialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("Connected to Redis", zap.String("addr", cfg.Addr))
	return New(client, cfg.Channel, logger), nil
}

// New wraps an existing client.
func New(client goredis.UniversalClient, channel string, logger *zap.Logger) *Publisher {
	if channel == "" {
		channel = "strategy-updates"
	}
	return &Publisher{client: client, channel: channel, logger: logger}
}

// Key returns the Redis key holding a creator's profile.
func Key(creatorID string) string {
	return keyPrefix + creatorID
}

// PublishStrategy stores the profile and announces it in one pipeline.
func (p *Publisher) PublishStrategy(ctx context.Context, profile models.StrategyProfile) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal strategy: %w", err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, Key(profile.CreatorID), payload, 0)
		pipe.Publish(ctx, p.channel, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish strategy for %s: %w", profile.CreatorID, err)
	}

	p.logger.Debug("Strategy profile published",
		zap.String("creator_id", profile.CreatorID),
		zap.Int64("version", profile.Version))
	return nil
}

// Strategy reads the last published profile. It returns nil, nil when none exists.
func (p *Publisher) Strategy(ctx context.Context, creatorID string) (*models.StrategyProfile, error) {
	raw, err := p.client.Get(ctx, Key(creatorID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read strategy for %s: %w", creatorID, err)
	}

	var profile models.StrategyProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode strategy for %s: %w", creatorID, err)
	}
	return &profile, nil
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.client.Close()
}
