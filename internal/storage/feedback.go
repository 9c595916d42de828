// Package storage persists user feedback to PostgreSQL. The store is
// optional; without a database the in-memory analytics log is the only
// record of feedback.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/tablerank/tablerank/internal/services"
)

// DatabaseQuerier interface for database operations
type DatabaseQuerier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// FeedbackStore appends feedback rows and aggregates them for the
// admin stats endpoint.
type FeedbackStore struct {
	db     DatabaseQuerier
	logger *logrus.Logger
}

func NewFeedbackStore(db DatabaseQuerier, logger *logrus.Logger) *FeedbackStore {
	return &FeedbackStore{db: db, logger: logger}
}

// EnsureSchema creates the feedback table if it does not exist.
func (s *FeedbackStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS feedback (
			id BIGSERIAL PRIMARY KEY,
			restaurant_id TEXT NOT NULL,
			query_location TEXT NOT NULL,
			is_positive BOOLEAN NOT NULL,
			variant TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`

	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create feedback table: %w", err)
	}
	return nil
}

// Append writes one feedback row.
func (s *FeedbackStore) Append(ctx context.Context, record services.FeedbackRecord) error {
	ts := record.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	query := `
		INSERT INTO feedback (restaurant_id, query_location, is_positive, variant, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.Exec(ctx, query,
		record.RestaurantID,
		record.QueryLocation,
		record.IsPositive,
		record.Variant,
		ts,
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"restaurant_id": record.RestaurantID,
		"is_positive":   record.IsPositive,
	}).Debug("Feedback persisted")

	return nil
}

// Stats aggregates the persisted feedback.
func (s *FeedbackStore) Stats(ctx context.Context) (services.FeedbackStats, error) {
	var stats services.FeedbackStats

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_positive),
			COUNT(*) FILTER (WHERE NOT is_positive)
		FROM feedback`

	err := s.db.QueryRow(ctx, query).Scan(&stats.Total, &stats.Positive, &stats.Negative)
	if err != nil {
		return services.FeedbackStats{}, fmt.Errorf("failed to aggregate feedback: %w", err)
	}

	if stats.Total > 0 {
		stats.SatisfactionRate = float64(stats.Positive) / float64(stats.Total) * 100
	}
	return stats, nil
}

// RecentByVariant returns the latest feedback rows for one variant,
// newest first.
func (s *FeedbackStore) RecentByVariant(ctx context.Context, variant string, limit int) ([]services.FeedbackRecord, error) {
	query := `
		SELECT restaurant_id, query_location, is_positive, variant, created_at
		FROM feedback
		WHERE variant = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.Query(ctx, query, variant, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var records []services.FeedbackRecord
	for rows.Next() {
		var r services.FeedbackRecord
		if err := rows.Scan(&r.RestaurantID, &r.QueryLocation, &r.IsPositive, &r.Variant, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan feedback row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
