package models

import "time"

// Session statuses. A session ends either completed or failed.
const (
	SessionCompleted = "completed"
	SessionFailed    = "failed"
)

// Learning progress labels.
const (
	ProgressImproving = "improving"
	ProgressStable    = "stable"
)

// LearningSummary condenses a session for dashboards.
type LearningSummary struct {
	TotalInsights        int    `json:"total_insights"`
	CriticalInsights     int    `json:"critical_insights"`
	HighPriorityInsights int    `json:"high_priority_insights"`
	HighestRisk          string `json:"highest_risk"`
	OverallRiskLevel     string `json:"overall_risk_level"`
	RecommendedActions   int    `json:"recommended_actions"`
	LearningProgress     string `json:"learning_progress"`
}

// LearningReport is the output of one session: the input record and every derived artifact.
type LearningReport struct {
	SessionID           string               `json:"session_id"`
	CreatorID           string               `json:"creator_id"`
	PostID              string               `json:"post_id"`
	Status              string               `json:"status"`
	Error               string               `json:"error,omitempty"`
	Record              InteractionRecord    `json:"record"`
	PerformanceAnalysis *PerformanceAnalysis `json:"performance_analysis,omitempty"`
	Patterns            *PatternSet          `json:"patterns,omitempty"`
	RiskAssessment      *RiskAssessment      `json:"risk_assessment,omitempty"`
	Insights            []Insight            `json:"insights"`
	StrategyDelta       *StrategyDelta       `json:"strategy_delta,omitempty"`
	LearningSummary     *LearningSummary     `json:"learning_summary,omitempty"`
	Timestamp           time.Time            `json:"timestamp"`
	CompletedAt         time.Time            `json:"completed_at"`
}

// Completed reports whether the session finished successfully.
func (r *LearningReport) Completed() bool {
	return r.Status == SessionCompleted
}

// PeriodReport aggregates a creator's completed sessions over a time window.
type PeriodReport struct {
	CreatorID          string    `json:"creator_id"`
	From               time.Time `json:"from"`
	To                 time.Time `json:"to"`
	SessionCount       int       `json:"session_count"`
	AvgEngagementRate  float64   `json:"avg_engagement_rate"`
	AvgEngagementScore float64   `json:"avg_engagement_score"`
	AvgOverallScore    float64   `json:"avg_overall_score"`
	AvgOverallRisk     float64   `json:"avg_overall_risk"`
	AvgAIDetectionRisk float64   `json:"avg_ai_detection_risk"`
	Insights           []Insight `json:"insights"`
	Recommendations    []string  `json:"recommendations"`
	GeneratedAt        time.Time `json:"generated_at"`
}

// BatchResult reports a batch run in submission order.
type BatchResult struct {
	Reports        []*LearningReport `json:"reports"`
	Processed      int               `json:"processed"`
	Failed         int               `json:"failed"`
	UnprocessedIDs []string          `json:"unprocessed_ids,omitempty"`
}

// DashboardStats summarises the retained session history.
type DashboardStats struct {
	TotalSessions    int            `json:"total_sessions"`
	SessionsByStatus map[string]int `json:"sessions_by_status"`
	AlertsByLevel    map[string]int `json:"alerts_by_level"`
	InsightsByType   map[string]int `json:"insights_by_type"`
	CreatorsTracked  int            `json:"creators_tracked"`
	AvgOverallScore  float64        `json:"avg_overall_score"`
	AvgOverallRisk   float64        `json:"avg_overall_risk"`
}
