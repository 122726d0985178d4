// Package risk turns an analysis and its patterns into categorized risk scores and alerts.
package risk

import (
	"fmt"
	"math"

	"engagement-engine/internal/config"
	"engagement-engine/internal/models"
)

// Assessor scores the four risk categories.
type Assessor struct {
	cfg config.Engine
}

// NewAssessor creates an assessor for the given engine constants.
func NewAssessor(cfg config.Engine) *Assessor {
	return &Assessor{cfg: cfg}
}

// Assess computes category scores, their mean and the resulting alerts.
func (a *Assessor) Assess(analysis models.PerformanceAnalysis, patterns models.PatternSet) models.RiskAssessment {
	content := analysis.ContentAnalysis

	aiRisk := content.AIDetectionRisk
	if patterns.Has(models.PatternAIDetectionRisk) {
		aiRisk += 0.2
	}

	engagementRisk := 1 - analysis.OverallScore/100
	if patterns.Has(models.PatternLowEngagement) {
		engagementRisk += 0.3
	}

	timingRisk := 0.6
	if analysis.TimingAnalysis.IsPeakHour {
		timingRisk = 0.2
	}

	assessment := models.RiskAssessment{
		AIDetection:    clamp01(aiRisk),
		Engagement:     clamp01(engagementRisk),
		Timing:         timingRisk,
		ContentQuality: contentQualityRisk(content),
	}
	assessment.OverallRisk = (assessment.AIDetection + assessment.Engagement +
		assessment.Timing + assessment.ContentQuality) / 4
	assessment.Alerts = a.alerts(assessment)
	return assessment
}

// contentQualityRisk averages only the terms that triggered; none triggered means 0.
func contentQualityRisk(c models.ContentAnalysis) float64 {
	var terms []float64
	if c.Readability < 50 {
		terms = append(terms, 0.5)
	}
	if c.Personalization < 0.3 {
		terms = append(terms, 0.4)
	}
	if c.EngagementPotential < 0.3 {
		terms = append(terms, 0.3)
	}
	if len(terms) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range terms {
		sum += t
	}
	return sum / float64(len(terms))
}

func (a *Assessor) alerts(r models.RiskAssessment) []models.Alert {
	th := a.cfg.AlertThresholds
	alerts := []models.Alert{}
	for _, category := range models.RiskCategories {
		score, _ := r.Score(category)
		switch {
		case score > th.Critical:
			alerts = append(alerts, models.Alert{
				Category:                category,
				Level:                   models.AlertCritical,
				Score:                   score,
				Description:             fmt.Sprintf("%s risk %.2f exceeds critical threshold %.2f", category, score, th.Critical),
				ImmediateActionRequired: true,
			})
		case score > th.Warning:
			alerts = append(alerts, models.Alert{
				Category:    category,
				Level:       models.AlertWarning,
				Score:       score,
				Description: fmt.Sprintf("%s risk %.2f exceeds warning threshold %.2f", category, score, th.Warning),
			})
		}
	}
	return alerts
}

// Level maps an overall risk score to a coarse label.
func (a *Assessor) Level(overall float64) string {
	th := a.cfg.AlertThresholds
	switch {
	case overall > th.Critical:
		return "high"
	case overall > th.Warning:
		return "medium"
	default:
		return "low"
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
