package strategy

import (
	"time"

	"engagement-engine/internal/models"
)

const (
	personalizationStep = 0.1
	authenticityStep    = 0.2
)

// Updater applies insight-driven deltas to a profile.
type Updater struct {
	Now func() time.Time
}

// NewUpdater creates an updater using the wall clock.
func NewUpdater() *Updater {
	return &Updater{Now: time.Now}
}

// Apply returns an updated copy of profile and a summary of what changed. The input is
// not modified. Every adjusted value stays within [0,1].
func (u *Updater) Apply(profile models.StrategyProfile, insights []models.Insight) (models.StrategyProfile, models.StrategyDelta) {
	out := profile.Clone()
	if out.PersonaAdjustments == nil {
		out.PersonaAdjustments = map[string]float64{}
	}
	if out.InteractionStyle == nil {
		out.InteractionStyle = map[string]float64{}
	}

	var delta models.StrategyDelta
	for _, in := range insights {
		switch in.InsightType {
		case models.InsightContentOptimization:
			if in.Priority == models.PriorityHigh || in.Priority == models.PriorityCritical {
				bump(out.PersonaAdjustments, "personalization", personalizationStep)
				bump(out.PersonaAdjustments, "emotion", personalizationStep)
				delta.PersonalizationIncreased = true
				delta.AppliedInsights++
			}
		case models.InsightTimingOptimization:
			if in.Priority == models.PriorityMedium || in.Priority == models.PriorityHigh {
				delta.TimingAdjusted = true
				delta.AppliedInsights++
			}
		case models.InsightAIDetectionRisk:
			if in.Priority == models.PriorityCritical {
				bump(out.PersonaAdjustments, "authenticity", authenticityStep)
				bump(out.InteractionStyle, "casual", authenticityStep)
				delta.AuthenticityIncreased = true
				delta.AppliedInsights++
			}
		}
	}

	clampAll(out.PersonaAdjustments)
	clampAll(out.InteractionStyle)
	clampAll(out.ContentTypeWeights)

	now := u.Now()
	out.LastUpdated = now
	delta.UpdatedAt = now
	return out, delta
}

func bump(m map[string]float64, key string, step float64) {
	m[key] = clamp01(m[key] + step)
}

func clampAll(m map[string]float64) {
	for k, v := range m {
		m[k] = clamp01(v)
	}
}

func clamp01(v float64) float64 {
	switch {
	case v != v, v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
