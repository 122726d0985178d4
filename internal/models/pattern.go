package models

// PatternType enumerates the behavioral observations the detector can emit.
type PatternType string

const (
	// Success
	PatternHighEngagement PatternType = "high_engagement"
	PatternViralContent   PatternType = "viral_content"
	PatternOptimalTiming  PatternType = "optimal_timing"

	// Failure
	PatternLowEngagement    PatternType = "low_engagement"
	PatternAIDetectionRisk  PatternType = "ai_detection_risk"
	PatternSuboptimalTiming PatternType = "suboptimal_timing"

	// Audience
	PatternActiveAudience PatternType = "active_audience"
	PatternEmojiResponse  PatternType = "emoji_response"
)

// Pattern is a tagged, confidence-scored observation. Features snapshot the values that
// triggered it.
type Pattern struct {
	Type        PatternType        `json:"type"`
	Description string             `json:"description"`
	Confidence  float64            `json:"confidence"`
	Features    map[string]float64 `json:"features"`
}

// PatternSet groups the patterns found for one record.
type PatternSet struct {
	Success  []Pattern `json:"success"`
	Failure  []Pattern `json:"failure"`
	Audience []Pattern `json:"audience"`
}

// Has reports whether a pattern of the given type is present in any group.
func (s PatternSet) Has(t PatternType) bool {
	for _, group := range [][]Pattern{s.Success, s.Failure, s.Audience} {
		for _, p := range group {
			if p.Type == t {
				return true
			}
		}
	}
	return false
}

// Count returns the total number of patterns across groups.
func (s PatternSet) Count() int {
	return len(s.Success) + len(s.Failure) + len(s.Audience)
}
