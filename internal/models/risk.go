package models

// Risk categories, in the order used for tie-breaking.
const (
	RiskAIDetection    = "ai_detection"
	RiskEngagement     = "engagement"
	RiskTiming         = "timing"
	RiskContentQuality = "content_quality"
)

// RiskCategories lists every category in a fixed order.
var RiskCategories = []string{RiskAIDetection, RiskEngagement, RiskTiming, RiskContentQuality}

// Alert levels.
const (
	AlertWarning  = "warning"
	AlertCritical = "critical"
)

// Alert is raised when a category score crosses a threshold.
type Alert struct {
	Category                string  `json:"category"`
	Level                   string  `json:"level"`
	Score                   float64 `json:"score"`
	Description             string  `json:"description"`
	ImmediateActionRequired bool    `json:"immediate_action_required"`
}

// RiskAssessment carries the four category scores, their mean and any alerts.
type RiskAssessment struct {
	AIDetection    float64 `json:"ai_detection"`
	Engagement     float64 `json:"engagement"`
	Timing         float64 `json:"timing"`
	ContentQuality float64 `json:"content_quality"`
	OverallRisk    float64 `json:"overall_risk"`
	Alerts         []Alert `json:"alerts"`
}

// Score returns the score for a category name.
func (r RiskAssessment) Score(category string) (float64, bool) {
	switch category {
	case RiskAIDetection:
		return r.AIDetection, true
	case RiskEngagement:
		return r.Engagement, true
	case RiskTiming:
		return r.Timing, true
	case RiskContentQuality:
		return r.ContentQuality, true
	}
	return 0, false
}

// HighestCategory returns the category with the largest score; the first one wins ties.
func (r RiskAssessment) HighestCategory() string {
	best := "none"
	bestScore := -1.0
	for _, c := range RiskCategories {
		s, _ := r.Score(c)
		if s > bestScore {
			best, bestScore = c, s
		}
	}
	return best
}

// CriticalAlerts returns the alerts at critical level.
func (r RiskAssessment) CriticalAlerts() []Alert {
	var out []Alert
	for _, a := range r.Alerts {
		if a.Level == AlertCritical {
			out = append(out, a)
		}
	}
	return out
}
