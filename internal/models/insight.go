package models

import "time"

// Priority of an insight.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Difficulty of acting on an insight.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Insight types produced by the generator.
const (
	InsightAIDetectionRisk     = "ai_detection_risk"
	InsightContentOptimization = "content_optimization"
	InsightTimingOptimization  = "timing_optimization"
	InsightSuccessPattern      = "success_pattern"
	InsightFailurePattern      = "failure_pattern"
	InsightPerformanceTrend    = "performance_trend"
)

// Insight is an actionable recommendation. It is never edited after creation.
type Insight struct {
	InsightType              string     `json:"insight_type"`
	Priority                 Priority   `json:"priority"`
	Description              string     `json:"description"`
	SuggestedActions         []string   `json:"suggested_actions"`
	Confidence               float64    `json:"confidence"`
	ImpactScore              float64    `json:"impact_score"`
	ImplementationDifficulty Difficulty `json:"implementation_difficulty"`
	CreatedAt                time.Time  `json:"created_at"`
}
