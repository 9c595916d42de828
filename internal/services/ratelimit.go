package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/tablerank/tablerank/internal/config"
)

// RateLimitInfo describes the caller's remaining budget in the current
// window.
type RateLimitInfo struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
}

// RateLimitService enforces a per-session sliding window over Redis.
// When Redis is unconfigured or down the service is permissive; rate
// limiting is protection, not a correctness requirement.
type RateLimitService struct {
	config      *config.Config
	logger      *logrus.Logger
	redisClient *redis.Client
}

func NewRateLimitService(cfg *config.Config, logger *logrus.Logger, redisClient *redis.Client) *RateLimitService {
	return &RateLimitService{
		config:      cfg,
		logger:      logger,
		redisClient: redisClient,
	}
}

// Enabled reports whether limiting is configured and backed by Redis.
func (s *RateLimitService) Enabled() bool {
	return s.config.Auth.RateLimit.Enabled && s.redisClient != nil
}

// IsAllowed records the request and reports whether the session is
// within its window budget.
func (s *RateLimitService) IsAllowed(sessionID string) (bool, *RateLimitInfo, error) {
	info, err := s.checkLimit(sessionID)
	if err != nil {
		return false, nil, err
	}
	return info.Remaining > 0, info, nil
}

func (s *RateLimitService) checkLimit(sessionID string) (*RateLimitInfo, error) {
	limit := s.config.Auth.RateLimit.Default
	window := s.config.Auth.RateLimit.Window

	key := fmt.Sprintf("rate_limit:session:%s", sessionID)

	// Sliding window over a sorted set of request timestamps.
	now := time.Now()
	windowStart := now.Add(-window)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pipe := s.redisClient.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.Unix(), 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.Unix()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	pipe.Expire(ctx, key, window)

	_, err := pipe.Exec(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to execute rate limit pipeline")
		// Permissive when Redis is down.
		return &RateLimitInfo{
			Limit:     limit,
			Remaining: limit - 1,
			ResetTime: now.Add(window).Unix(),
		}, nil
	}

	remaining := limit - int(countCmd.Val())
	if remaining < 0 {
		remaining = 0
	}

	return &RateLimitInfo{
		Limit:     limit,
		Remaining: remaining,
		ResetTime: now.Add(window).Unix(),
	}, nil
}
