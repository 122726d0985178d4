package models

// Trend labels for PerformanceTrend.
const (
	TrendInsufficientData = "insufficient_data"
	TrendImproving        = "improving"
	TrendDeclining        = "declining"
	TrendStable           = "stable"
)

// Timing labels for TimingAnalysis.OptimalTiming.
const (
	TimingMorningPeak = "morning_peak"
	TimingLunchTime   = "lunch_time"
	TimingEveningPeak = "evening_peak"
	TimingOffPeak     = "off_peak"
	TimingUnknown     = "unknown"
)

// Sources of ContentAnalysis.AIDetectionRisk.
const (
	DetectionHeuristic = "heuristic"
	DetectionModel     = "model"
)

// EmojiSentiment is the fixed-constant emoji read of a post.
type EmojiSentiment struct {
	PositiveRatio   float64 `json:"positive_ratio"`
	EngagementLevel string  `json:"engagement_level"` // "high" or "medium"
	SentimentScore  float64 `json:"sentiment_score"`
}

// TimingAnalysis describes when the post went out relative to audience peaks.
type TimingAnalysis struct {
	PostHour      int     `json:"post_hour"`
	IsPeakHour    bool    `json:"is_peak_hour"`
	OptimalTiming string  `json:"optimal_timing"`
	TimingScore   float64 `json:"timing_score"`
}

// ContentAnalysis holds the text heuristics.
type ContentAnalysis struct {
	Length              int     `json:"length"`
	Readability         float64 `json:"readability"`
	Personalization     float64 `json:"personalization"`
	AIDetectionRisk     float64 `json:"ai_detection_risk"`
	AIDetectionSource   string  `json:"ai_detection_source"`
	EngagementPotential float64 `json:"engagement_potential"`
	QualityScore        float64 `json:"quality_score"`
}

// PerformanceTrend compares recent interaction volume against the creator's earlier posts.
type PerformanceTrend struct {
	Trend       string  `json:"trend"`
	ChangeRate  float64 `json:"change_rate"`
	HistorySize int     `json:"history_size"`
}

// PerformanceAnalysis is derived once per record and never mutated afterwards.
type PerformanceAnalysis struct {
	PostID           string           `json:"post_id"`
	CreatorID        string           `json:"creator_id"`
	EngagementScore  float64          `json:"engagement_score"`
	EmojiSentiment   EmojiSentiment   `json:"emoji_sentiment"`
	TimingAnalysis   TimingAnalysis   `json:"timing_analysis"`
	ContentAnalysis  ContentAnalysis  `json:"content_analysis"`
	ViralPotential   float64          `json:"viral_potential"`
	BrandImpact      float64          `json:"brand_impact"`
	PerformanceTrend PerformanceTrend `json:"performance_trend"`
	OverallScore     float64          `json:"overall_score"`
	DataQuality      []string         `json:"data_quality,omitempty"`
}

// Degraded reports whether any input or sub-step had to fall back to defaults.
func (a PerformanceAnalysis) Degraded() bool {
	return len(a.DataQuality) > 0
}
