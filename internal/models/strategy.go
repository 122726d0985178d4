package models

import (
	"maps"
	"slices"
	"time"
)

// StrategyProfile holds the per-creator weights that bias future content generation.
type StrategyProfile struct {
	CreatorID          string             `json:"creator_id" db:"creator_id"`
	ContentTypeWeights map[string]float64 `json:"content_type_weights"`
	PersonaAdjustments map[string]float64 `json:"persona_adjustments"`
	TimingPreferences  TimingPreferences  `json:"timing_preferences"`
	InteractionStyle   map[string]float64 `json:"interaction_style"`
	Version            int64              `json:"version" db:"version"`
	LastUpdated        time.Time          `json:"last_updated" db:"last_updated"`
}

// TimingPreferences lists the hours the creator should aim for.
type TimingPreferences struct {
	OptimalHours []int `json:"optimal_hours"`
}

// DefaultStrategyProfile returns the profile a creator starts with.
func DefaultStrategyProfile(creatorID string) StrategyProfile {
	return StrategyProfile{
		CreatorID: creatorID,
		ContentTypeWeights: map[string]float64{
			"investment": 0.5,
			"personal":   0.3,
			"news":       0.2,
		},
		PersonaAdjustments: map[string]float64{
			"personalization": 0.5,
			"emotion":         0.5,
			"authenticity":    0.5,
		},
		TimingPreferences: TimingPreferences{
			OptimalHours: []int{9, 10, 11, 19, 20, 21},
		},
		InteractionStyle: map[string]float64{
			"casual":       0.5,
			"professional": 0.5,
		},
	}
}

// Clone returns a deep copy so callers never share maps with the store.
func (p StrategyProfile) Clone() StrategyProfile {
	out := p
	out.ContentTypeWeights = maps.Clone(p.ContentTypeWeights)
	out.PersonaAdjustments = maps.Clone(p.PersonaAdjustments)
	out.InteractionStyle = maps.Clone(p.InteractionStyle)
	out.TimingPreferences.OptimalHours = slices.Clone(p.TimingPreferences.OptimalHours)
	return out
}

// StrategyDelta summarises what one batch of insights changed.
type StrategyDelta struct {
	PersonalizationIncreased bool      `json:"personalization_increased"`
	TimingAdjusted           bool      `json:"timing_adjusted"`
	AuthenticityIncreased    bool      `json:"authenticity_increased"`
	AppliedInsights          int       `json:"applied_insights"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// Changed reports whether the delta touched the profile at all.
func (d StrategyDelta) Changed() bool {
	return d.PersonalizationIncreased || d.TimingAdjusted || d.AuthenticityIncreased
}
