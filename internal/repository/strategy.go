package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"engagement-engine/internal/models"
)

// StrategyRepository stores the latest profile per creator.
type StrategyRepository interface {
	SaveStrategy(ctx context.Context, profile models.StrategyProfile) error
	GetStrategy(ctx context.Context, creatorID string) (*models.StrategyProfile, error)
	ListStrategies(ctx context.Context) ([]models.StrategyProfile, error)
}

type strategyRow struct {
	CreatorID string `db:"creator_id"`
	Version   int64  `db:"version"`
	Payload   string `db:"payload"`
}

type strategyRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewStrategyRepository creates a strategy repository over db.
func NewStrategyRepository(db *sqlx.DB, logger *zap.Logger) StrategyRepository {
	return &strategyRepository{db: db, logger: logger}
}

// SaveStrategy upserts the profile. Older versions never overwrite newer ones.
func (r *strategyRepository) SaveStrategy(ctx context.Context, profile models.StrategyProfile) error {
	payload, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal strategy: %w", err)
	}

	query := r.db.Rebind(`INSERT INTO strategy_profiles (creator_id, version, payload, updated_at)
	          VALUES (?, ?, ?, ?)
	          ON CONFLICT (creator_id) DO UPDATE SET version = excluded.version, payload = excluded.payload, updated_at = excluded.updated_at
	          WHERE strategy_profiles.version < excluded.version`)
	_, err = r.db.ExecContext(ctx, query, profile.CreatorID, profile.Version, string(payload), profile.LastUpdated.UTC())
	if err != nil {
		r.logger.Error("Failed to save strategy profile",
			zap.String("creator_id", profile.CreatorID),
			zap.Error(err))
		return fmt.Errorf("failed to save strategy: %w", err)
	}
	return nil
}

// GetStrategy returns nil, nil when no profile was stored for the creator.
func (r *strategyRepository) GetStrategy(ctx context.Context, creatorID string) (*models.StrategyProfile, error) {
	var row strategyRow
	query := r.db.Rebind(`SELECT creator_id, version, payload FROM strategy_profiles WHERE creator_id = ?`)
	if err := r.db.GetContext(ctx, &row, query, creatorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get strategy: %w", err)
	}
	return decodeStrategy(row)
}

// ListStrategies returns every stored profile ordered by creator id.
func (r *strategyRepository) ListStrategies(ctx context.Context) ([]models.StrategyProfile, error) {
	var rows []strategyRow
	query := `SELECT creator_id, version, payload FROM strategy_profiles ORDER BY creator_id`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list strategies: %w", err)
	}

	profiles := make([]models.StrategyProfile, 0, len(rows))
	for _, row := range rows {
		p, err := decodeStrategy(row)
		if err != nil {
			r.logger.Warn("Skipping undecodable strategy", zap.String("creator_id", row.CreatorID), zap.Error(err))
			continue
		}
		profiles = append(profiles, *p)
	}
	return profiles, nil
}

func decodeStrategy(row strategyRow) (*models.StrategyProfile, error) {
	var p models.StrategyProfile
	if err := json.Unmarshal([]byte(row.Payload), &p); err != nil {
		return nil, fmt.Errorf("failed to decode strategy %s: %w", row.CreatorID, err)
	}
	p.CreatorID = row.CreatorID
	p.Version = row.Version
	return &p, nil
}
