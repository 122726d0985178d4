package config

import (
	"errors"
	"fmt"
	"time"
)

// EngagementWeights weight each counter in the engagement score.
type EngagementWeights struct {
	Likes    float64 `yaml:"likes"`
	Comments float64 `yaml:"comments"`
	Shares   float64 `yaml:"shares"`
	Emoji    float64 `yaml:"emoji"`
}

// AlertThresholds are the category scores above which alerts are raised.
type AlertThresholds struct {
	Critical float64 `yaml:"critical"`
	Warning  float64 `yaml:"warning"`
}

// PatternThresholds are the fixed cut-offs used by the pattern detector.
type PatternThresholds struct {
	HighEngagement float64 `yaml:"high_engagement"`
	Viral          float64 `yaml:"viral"`
	LowEngagement  float64 `yaml:"low_engagement"`
	EmojiResponse  int     `yaml:"emoji_response"`
	AIDetection    float64 `yaml:"ai_detection"`
}

// Indicators are the phrase lists the content heuristics count. Matching is done on
// lower-cased text.
type Indicators struct {
	Personal   []string `yaml:"personal"`
	Formal     []string `yaml:"formal"`
	Engagement []string `yaml:"engagement"`
}

// Engine holds every tunable constant of the scoring pipeline.
type Engine struct {
	EngagementWeights        EngagementWeights `yaml:"engagement_weights"`
	PeakHours                []int             `yaml:"peak_hours"`
	LunchHours               []int             `yaml:"lunch_hours"`
	AlertThresholds          AlertThresholds   `yaml:"alert_thresholds"`
	PatternThresholds        PatternThresholds `yaml:"pattern_thresholds"`
	HistoryWindow            int               `yaml:"history_window"`
	HistoryLimit             int               `yaml:"history_limit"`
	TrendThreshold           float64           `yaml:"trend_threshold"`
	ViewsFloor               int               `yaml:"views_floor"`
	VarianceThreshold        float64           `yaml:"variance_threshold"`
	DegradedConfidenceFactor float64           `yaml:"degraded_confidence_factor"`
	Indicators               Indicators        `yaml:"indicators"`
	Workers                  int               `yaml:"workers"`
	DetectorTimeout          time.Duration     `yaml:"detector_timeout"`
	ReportHistoryLimit       int               `yaml:"report_history_limit"`
}

// DefaultEngine returns the engine constants with their stock values. LoadConfig decodes
// YAML on top of it, so a file only needs to name the constants it overrides.
func DefaultEngine() Engine {
	return Engine{
		EngagementWeights: EngagementWeights{Likes: 0.3, Comments: 0.4, Shares: 0.2, Emoji: 0.1},
		PeakHours:         []int{9, 10, 11, 19, 20, 21},
		LunchHours:        []int{12, 13, 14},
		AlertThresholds:   AlertThresholds{Critical: 0.7, Warning: 0.5},
		PatternThresholds: PatternThresholds{
			HighEngagement: 70,
			Viral:          60,
			LowEngagement:  30,
			EmojiResponse:  5,
			AIDetection:    0.7,
		},
		HistoryWindow:            5,
		HistoryLimit:             50,
		TrendThreshold:           0.1,
		ViewsFloor:               1000,
		VarianceThreshold:        50,
		DegradedConfidenceFactor: 0.8,
		Indicators: Indicators{
			Personal: []string{
				"我", "自己", "老實說", "說真的", "個人覺得", "欸", "啦", "吧", "喔", "耶",
				"i think", "i feel", "honestly", "my ", "...", "…", "!!!", "！！！",
			},
			Formal: []string{
				"綜上所述", "此外", "然而", "因此", "總而言之", "首先", "其次", "總的來說", "值得注意的是",
				"furthermore", "moreover", "in conclusion", "additionally", "therefore", "consequently",
			},
			Engagement: []string{
				"大家", "你們", "各位", "你覺得", "??", "？？", "!!", "！！", "哈哈", "xd",
				"what do you think", "you guys", "lol", "haha",
			},
		},
		Workers:            8,
		DetectorTimeout:    2 * time.Second,
		ReportHistoryLimit: 1000,
	}
}

// Validate rejects constants that would break the scoring invariants.
func (e Engine) Validate() error {
	var errs []error
	w := e.EngagementWeights
	if w.Likes < 0 || w.Comments < 0 || w.Shares < 0 || w.Emoji < 0 {
		errs = append(errs, errors.New("engagement weights must be non-negative"))
	}
	for _, h := range append(append([]int{}, e.PeakHours...), e.LunchHours...) {
		if h < 0 || h > 23 {
			errs = append(errs, fmt.Errorf("hour %d outside 0..23", h))
		}
	}
	a := e.AlertThresholds
	if a.Critical < 0 || a.Critical > 1 || a.Warning < 0 || a.Warning > 1 {
		errs = append(errs, errors.New("alert thresholds must lie in [0,1]"))
	}
	if a.Warning >= a.Critical {
		errs = append(errs, errors.New("warning threshold must be below critical threshold"))
	}
	if e.PatternThresholds.AIDetection < 0 || e.PatternThresholds.AIDetection > 1 {
		errs = append(errs, errors.New("ai detection pattern threshold must lie in [0,1]"))
	}
	p := e.PatternThresholds
	if p.HighEngagement < 0 || p.Viral < 0 || p.LowEngagement < 0 || p.EmojiResponse < 0 {
		errs = append(errs, errors.New("pattern thresholds must be non-negative"))
	}
	if e.TrendThreshold <= 0 {
		errs = append(errs, errors.New("trend threshold must be positive"))
	}
	if e.ViewsFloor < 1 || e.VarianceThreshold <= 0 {
		errs = append(errs, errors.New("views floor and variance threshold must be positive"))
	}
	if e.HistoryWindow < 1 {
		errs = append(errs, errors.New("history window must be at least 1"))
	}
	if e.HistoryLimit < e.HistoryWindow {
		errs = append(errs, errors.New("history limit must not be smaller than the history window"))
	}
	if e.DegradedConfidenceFactor < 0 || e.DegradedConfidenceFactor > 1 {
		errs = append(errs, errors.New("degraded confidence factor must lie in [0,1]"))
	}
	if e.Workers < 1 {
		errs = append(errs, errors.New("workers must be at least 1"))
	}
	if e.DetectorTimeout <= 0 {
		errs = append(errs, errors.New("detector timeout must be positive"))
	}
	if e.ReportHistoryLimit < 1 {
		errs = append(errs, errors.New("report history limit must be at least 1"))
	}
	return errors.Join(errs...)
}

// IsPeakHour reports whether hour is in the peak set.
func (e Engine) IsPeakHour(hour int) bool {
	return containsHour(e.PeakHours, hour)
}

// IsLunchHour reports whether hour is in the lunch window.
func (e Engine) IsLunchHour(hour int) bool {
	return containsHour(e.LunchHours, hour)
}

func containsHour(hours []int, hour int) bool {
	for _, h := range hours {
		if h == hour {
			return true
		}
	}
	return false
}
