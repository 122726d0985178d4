// Package insight derives prioritized recommendations from risk, patterns and trend.
package insight

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"engagement-engine/internal/config"
	"engagement-engine/internal/models"
)

// engagementRiskThreshold triggers the content optimization insight.
const engagementRiskThreshold = 0.6

var (
	aiDetectionActions = []string{
		"Add colloquial, conversational phrasing",
		"Leave some sentences deliberately incomplete",
		"Use more expressive punctuation such as '!!' or '...'",
		"Include a personal detail or first-hand experience",
		"Avoid formal connectives such as 'furthermore' or '綜上所述'",
	}
	engagementActions = []string{
		"Open with a personal anecdote",
		"Use more emotive vocabulary",
		"Ask the audience a direct question",
		"Use expressive punctuation",
		"Frame the post as a short story",
	}
	timingActions = []string{
		"Post during the morning (09-11) or evening (19-21) peak windows",
		"Avoid posting during off-hours",
		"Study when your audience is most active",
		"A/B test posting times",
	}
	reinforcementActions = []string{
		"Keep the tone and structure of this post",
		"Reuse its format for upcoming topics",
	}
	correctiveActions = []string{
		"Rework the opening to hook readers earlier",
		"Invite comments with an open question",
		"Compare this post against your best performers",
	}
	trendActions = []string{
		"Review the recent content strategy",
		"Compare topics of recent posts with earlier, stronger ones",
		"Revisit the posting schedule",
	}
)

// Generator builds insights. Now is the clock used for CreatedAt.
type Generator struct {
	cfg config.Engine
	Now func() time.Time
}

// NewGenerator creates a generator using the wall clock.
func NewGenerator(cfg config.Engine) *Generator {
	return &Generator{cfg: cfg, Now: time.Now}
}

// Generate returns risk, pattern and trend insights sorted by impact, highest first.
func (g *Generator) Generate(analysis models.PerformanceAnalysis, patterns models.PatternSet, risk models.RiskAssessment) []models.Insight {
	now := g.Now()
	insights := make([]models.Insight, 0, 4)
	insights = append(insights, g.fromRisk(risk, now)...)
	insights = append(insights, g.fromPatterns(patterns, now)...)
	insights = append(insights, g.fromTrend(analysis.PerformanceTrend, now)...)

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].ImpactScore > insights[j].ImpactScore
	})
	return insights
}

func (g *Generator) fromRisk(risk models.RiskAssessment, now time.Time) []models.Insight {
	var out []models.Insight
	if risk.AIDetection > g.cfg.AlertThresholds.Critical {
		out = append(out, models.Insight{
			InsightType:              models.InsightAIDetectionRisk,
			Priority:                 models.PriorityCritical,
			Description:              fmt.Sprintf("Content reads as machine-generated (risk %.2f)", risk.AIDetection),
			SuggestedActions:         slices.Clone(aiDetectionActions),
			Confidence:               0.9,
			ImpactScore:              0.8,
			ImplementationDifficulty: models.DifficultyMedium,
			CreatedAt:                now,
		})
	}
	if risk.Engagement > engagementRiskThreshold {
		out = append(out, models.Insight{
			InsightType:              models.InsightContentOptimization,
			Priority:                 models.PriorityHigh,
			Description:              fmt.Sprintf("Engagement is weak (risk %.2f); make the content more personal", risk.Engagement),
			SuggestedActions:         slices.Clone(engagementActions),
			Confidence:               0.8,
			ImpactScore:              0.7,
			ImplementationDifficulty: models.DifficultyMedium,
			CreatedAt:                now,
		})
	}
	if risk.Timing > g.cfg.AlertThresholds.Warning {
		out = append(out, models.Insight{
			InsightType:              models.InsightTimingOptimization,
			Priority:                 models.PriorityMedium,
			Description:              "Post went out outside the audience peak windows",
			SuggestedActions:         slices.Clone(timingActions),
			Confidence:               0.7,
			ImpactScore:              0.6,
			ImplementationDifficulty: models.DifficultyEasy,
			CreatedAt:                now,
		})
	}
	return out
}

func (g *Generator) fromPatterns(patterns models.PatternSet, now time.Time) []models.Insight {
	var out []models.Insight
	for _, p := range patterns.Success {
		if p.Type != models.PatternHighEngagement {
			continue
		}
		out = append(out, models.Insight{
			InsightType:              models.InsightSuccessPattern,
			Priority:                 models.PriorityLow,
			Description:              "High engagement: " + p.Description,
			SuggestedActions:         slices.Clone(reinforcementActions),
			Confidence:               p.Confidence,
			ImpactScore:              0.6,
			ImplementationDifficulty: models.DifficultyEasy,
			CreatedAt:                now,
		})
	}
	for _, p := range patterns.Failure {
		if p.Type != models.PatternLowEngagement {
			continue
		}
		out = append(out, models.Insight{
			InsightType:              models.InsightFailurePattern,
			Priority:                 models.PriorityHigh,
			Description:              "Low engagement: " + p.Description,
			SuggestedActions:         slices.Clone(correctiveActions),
			Confidence:               p.Confidence,
			ImpactScore:              0.7,
			ImplementationDifficulty: models.DifficultyMedium,
			CreatedAt:                now,
		})
	}
	return out
}

func (g *Generator) fromTrend(trend models.PerformanceTrend, now time.Time) []models.Insight {
	if trend.Trend != models.TrendDeclining {
		return nil
	}
	return []models.Insight{{
		InsightType:              models.InsightPerformanceTrend,
		Priority:                 models.PriorityHigh,
		Description:              fmt.Sprintf("Interactions are declining (%.0f%% vs earlier posts); review the strategy", trend.ChangeRate*100),
		SuggestedActions:         slices.Clone(trendActions),
		Confidence:               0.7,
		ImpactScore:              0.7,
		ImplementationDifficulty: models.DifficultyHard,
		CreatedAt:                now,
	}}
}
