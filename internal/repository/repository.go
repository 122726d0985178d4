package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"engagement-engine/internal/config"
	"engagement-engine/internal/models"
)

// Repositories bundles the report and strategy repositories over one connection. It
// satisfies the learning pipeline's sink.
type Repositories struct {
	Reports    ReportRepository
	Strategies StrategyRepository
	db         *sqlx.DB
}

// New wraps an open connection.
func New(db *sqlx.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Reports:    NewReportRepository(db, logger),
		Strategies: NewStrategyRepository(db, logger),
		db:         db,
	}
}

// Open connects to the configured database and prepares its schema. It returns nil,
// nil when persistence is disabled.
func Open(cfg *config.Config, logger *zap.Logger) (*Repositories, error) {
	switch cfg.Database.Type {
	case "none":
		return nil, nil
	case "postgres":
		db, err := NewPostgresDB(cfg.Database.URL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := MigrateDB(db, cfg.Database.MigrationsPath, logger); err != nil {
			db.Close()
			return nil, err
		}
		return New(db, logger), nil
	case "sqlite":
		db, err := NewSQLiteDB(cfg.Database.Path, logger)
		if err != nil {
			return nil, err
		}
		return New(db, logger), nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Database.Type)
	}
}

// SaveReport stores a finished session.
func (r *Repositories) SaveReport(ctx context.Context, report *models.LearningReport) error {
	return r.Reports.SaveReport(ctx, report)
}

// SaveStrategy stores a committed profile.
func (r *Repositories) SaveStrategy(ctx context.Context, profile models.StrategyProfile) error {
	return r.Strategies.SaveStrategy(ctx, profile)
}

// Close closes the underlying connection.
func (r *Repositories) Close() error {
	return r.db.Close()
}
