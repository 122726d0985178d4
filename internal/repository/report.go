// Package repository persists learning reports and strategy profiles in PostgreSQL or
// SQLite. Both backends share one sqlx implementation; queries are written with '?'
// placeholders and rebound for the driver.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"engagement-engine/internal/models"
)

// ReportRepository stores finished learning sessions.
type ReportRepository interface {
	SaveReport(ctx context.Context, report *models.LearningReport) error
	GetReport(ctx context.Context, sessionID string) (*models.LearningReport, error)
	ListReports(ctx context.Context, creatorID string, from, to time.Time) ([]*models.LearningReport, error)
}

type reportRow struct {
	SessionID string `db:"session_id"`
	CreatorID string `db:"creator_id"`
	PostID    string `db:"post_id"`
	Status    string `db:"status"`
	Error     string `db:"error"`
	Payload   string `db:"payload"`
}

type reportRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewReportRepository creates a report repository over db.
func NewReportRepository(db *sqlx.DB, logger *zap.Logger) ReportRepository {
	return &reportRepository{db: db, logger: logger}
}

func (r *reportRepository) SaveReport(ctx context.Context, report *models.LearningReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := r.db.Rebind(`INSERT INTO learning_reports (session_id, creator_id, post_id, status, error, payload, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)
	          ON CONFLICT (session_id) DO UPDATE SET status = excluded.status, error = excluded.error, payload = excluded.payload`)
	_, err = r.db.ExecContext(ctx, query,
		report.SessionID,
		report.CreatorID,
		report.PostID,
		report.Status,
		report.Error,
		string(payload),
		report.Timestamp.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to save learning report",
			zap.String("session_id", report.SessionID),
			zap.Error(err))
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetReport returns nil, nil when the session is unknown.
func (r *reportRepository) GetReport(ctx context.Context, sessionID string) (*models.LearningReport, error) {
	var row reportRow
	query := r.db.Rebind(`SELECT session_id, creator_id, post_id, status, error, payload
	          FROM learning_reports WHERE session_id = ?`)
	if err := r.db.GetContext(ctx, &row, query, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return decodeReport(row)
}

// ListReports returns the creator's reports created in [from, to), oldest first. A zero
// bound is open.
func (r *reportRepository) ListReports(ctx context.Context, creatorID string, from, to time.Time) ([]*models.LearningReport, error) {
	query := `SELECT session_id, creator_id, post_id, status, error, payload
	          FROM learning_reports WHERE creator_id = ?`
	args := []any{creatorID}
	if !from.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		query += ` AND created_at < ?`
		args = append(args, to.UTC())
	}
	query += ` ORDER BY created_at ASC`

	var rows []reportRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	reports := make([]*models.LearningReport, 0, len(rows))
	for _, row := range rows {
		report, err := decodeReport(row)
		if err != nil {
			r.logger.Warn("Skipping undecodable report", zap.String("session_id", row.SessionID), zap.Error(err))
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func decodeReport(row reportRow) (*models.LearningReport, error) {
	var report models.LearningReport
	if err := json.Unmarshal([]byte(row.Payload), &report); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", row.SessionID, err)
	}
	return &report, nil
}
