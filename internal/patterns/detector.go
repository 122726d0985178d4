// Package patterns detects recurring success, failure and audience behaviour from a
// single analysis plus the creator's recent history.
package patterns

import (
	"engagement-engine/internal/config"
	"engagement-engine/internal/models"
)

// Detector applies fixed thresholds; it keeps no state of its own.
type Detector struct {
	cfg config.Engine
}

// NewDetector creates a detector for the given engine constants.
func NewDetector(cfg config.Engine) *Detector {
	return &Detector{cfg: cfg}
}

// Detect emits the patterns triggered by analysis. window is the creator's recent
// history (at most the configured history window). Records that needed default
// substitution get their confidences scaled down.
func (d *Detector) Detect(analysis models.PerformanceAnalysis, record models.InteractionRecord, window []float64) models.PatternSet {
	th := d.cfg.PatternThresholds
	factor := 1.0
	if analysis.Degraded() {
		factor = d.cfg.DegradedConfidenceFactor
	}
	pattern := func(t models.PatternType, desc string, confidence float64, features map[string]float64) models.Pattern {
		features["history_size"] = float64(len(window))
		return models.Pattern{Type: t, Description: desc, Confidence: confidence * factor, Features: features}
	}

	set := models.PatternSet{
		Success:  []models.Pattern{},
		Failure:  []models.Pattern{},
		Audience: []models.Pattern{},
	}
	timing := analysis.TimingAnalysis

	if analysis.OverallScore > th.HighEngagement {
		set.Success = append(set.Success, pattern(models.PatternHighEngagement,
			"Overall performance well above the high-engagement threshold", 0.8,
			map[string]float64{"overall_score": analysis.OverallScore}))
	}
	if analysis.ViralPotential > th.Viral {
		set.Success = append(set.Success, pattern(models.PatternViralContent,
			"Shares and comments carry a large share of interactions", 0.8,
			map[string]float64{"viral_potential": analysis.ViralPotential}))
	}
	if timing.IsPeakHour {
		set.Success = append(set.Success, pattern(models.PatternOptimalTiming,
			"Posted during an audience peak window", 0.6,
			map[string]float64{"post_hour": float64(timing.PostHour), "timing_score": timing.TimingScore}))
	}

	if analysis.OverallScore < th.LowEngagement {
		set.Failure = append(set.Failure, pattern(models.PatternLowEngagement,
			"Overall performance below the low-engagement threshold", 0.8,
			map[string]float64{"overall_score": analysis.OverallScore}))
	}
	if analysis.ContentAnalysis.AIDetectionRisk > th.AIDetection {
		set.Failure = append(set.Failure, pattern(models.PatternAIDetectionRisk,
			"Content reads as mechanically generated", 0.9,
			map[string]float64{"ai_detection_risk": analysis.ContentAnalysis.AIDetectionRisk}))
	}
	if !timing.IsPeakHour {
		set.Failure = append(set.Failure, pattern(models.PatternSuboptimalTiming,
			"Posted outside audience peak windows", 0.5,
			map[string]float64{"post_hour": float64(timing.PostHour), "timing_score": timing.TimingScore}))
	}

	rec, _ := record.Normalize()
	if rec.Comments > 0 {
		set.Audience = append(set.Audience, pattern(models.PatternActiveAudience,
			"Audience responds with comments", 0.7,
			map[string]float64{"comments": float64(rec.Comments)}))
	}
	if rec.EmojiTotal > th.EmojiResponse {
		set.Audience = append(set.Audience, pattern(models.PatternEmojiResponse,
			"Audience reacts strongly with emoji", 0.6,
			map[string]float64{"emoji_total": float64(rec.EmojiTotal)}))
	}

	return set
}
