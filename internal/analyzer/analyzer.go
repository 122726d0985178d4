// Package analyzer turns an interaction record into a PerformanceAnalysis.
//
// Analyze has no side effects beyond logging: the caller supplies the creator's rolling
// history and gets back a fresh value. Sub-steps that panic are recovered and replaced
// with their neutral output so one bad heuristic never aborts the record.
package analyzer

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"engagement-engine/internal/config"
	"engagement-engine/internal/models"
)

// Analyzer computes engagement, timing, content and trend scores.
type Analyzer struct {
	cfg    config.Engine
	logger *zap.Logger
}

// New creates an analyzer for the given engine constants.
func New(cfg config.Engine, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{cfg: cfg, logger: logger}
}

// Analyze scores a record. history holds the creator's earlier total-interaction counts,
// oldest first, not including this record.
func (a *Analyzer) Analyze(record models.InteractionRecord, history []float64) models.PerformanceAnalysis {
	rec, issues := record.Normalize()

	analysis := models.PerformanceAnalysis{
		PostID:    rec.PostID,
		CreatorID: rec.CreatorID,
	}

	degraded := func(step string) {
		issues = append(issues, step+"_degraded")
	}

	analysis.EngagementScore = guard(a, "engagement_score", degraded, 0, func() float64 {
		return a.engagementScore(rec)
	})
	analysis.EmojiSentiment = guard(a, "emoji_sentiment", degraded, models.EmojiSentiment{
		PositiveRatio: 0.8, EngagementLevel: "medium", SentimentScore: 0.7,
	}, func() models.EmojiSentiment {
		return a.emojiSentiment(rec)
	})
	analysis.TimingAnalysis = guard(a, "timing_analysis", degraded, neutralTiming(), func() models.TimingAnalysis {
		return a.timingAnalysis(rec)
	})
	analysis.ContentAnalysis = guard(a, "content_analysis", degraded, neutralContent(rec.Content), func() models.ContentAnalysis {
		return a.contentAnalysis(rec.Content)
	})
	analysis.ViralPotential = guard(a, "viral_potential", degraded, 0, func() float64 {
		return a.viralPotential(rec)
	})
	analysis.BrandImpact = guard(a, "brand_impact", degraded, 0, func() float64 {
		return a.brandImpact(rec)
	})
	analysis.PerformanceTrend = guard(a, "performance_trend", degraded, models.PerformanceTrend{
		Trend: models.TrendInsufficientData, HistorySize: len(history),
	}, func() models.PerformanceTrend {
		return a.performanceTrend(history, float64(rec.TotalInteractions))
	})

	analysis.OverallScore = clamp(
		0.5*analysis.EngagementScore+0.3*analysis.ViralPotential+0.2*analysis.BrandImpact,
		0, 100,
	)
	analysis.DataQuality = issues

	return analysis
}

// HistoryPoint is the value a record contributes to its creator's rolling history.
func HistoryPoint(record models.InteractionRecord) float64 {
	rec, _ := record.Normalize()
	return float64(rec.TotalInteractions)
}

func (a *Analyzer) engagementScore(rec models.InteractionRecord) float64 {
	w := a.cfg.EngagementWeights
	raw := w.Likes*float64(rec.Likes) +
		w.Comments*float64(rec.Comments) +
		w.Shares*float64(rec.Shares) +
		w.Emoji*float64(rec.EmojiTotal)
	return clamp(math.Min(5*raw, 100), 0, 100)
}

func (a *Analyzer) emojiSentiment(rec models.InteractionRecord) models.EmojiSentiment {
	level := "medium"
	if rec.EmojiTotal > 5 {
		level = "high"
	}
	return models.EmojiSentiment{
		PositiveRatio:   0.8,
		EngagementLevel: level,
		SentimentScore:  0.7,
	}
}

func (a *Analyzer) viralPotential(rec models.InteractionRecord) float64 {
	total := float64(max(rec.TotalInteractions, 1))
	shareRatio := float64(rec.Shares) / total
	commentRatio := float64(rec.Comments) / total
	emojiRatio := float64(rec.EmojiTotal) / total
	return clamp(100*(0.5*shareRatio+0.3*commentRatio+0.2*emojiRatio), 0, 100)
}

func (a *Analyzer) brandImpact(rec models.InteractionRecord) float64 {
	views := a.cfg.ViewsFloor
	if rec.Views != nil && *rec.Views > views {
		views = *rec.Views
	}
	sentiment := 0.5
	if rec.SentimentScore != nil {
		sentiment = *rec.SentimentScore
	}
	density := float64(rec.TotalInteractions) / float64(max(views, 1))
	return clamp(100*(0.6*density+0.4*sentiment), 0, 100)
}

// performanceTrend compares the mean of the most recent points against the earlier ones.
// The current record is appended to history before comparing.
func (a *Analyzer) performanceTrend(history []float64, current float64) models.PerformanceTrend {
	points := make([]float64, 0, len(history)+1)
	points = append(points, history...)
	points = append(points, current)

	n := len(points)
	if n < 2 {
		return models.PerformanceTrend{Trend: models.TrendInsufficientData, HistorySize: n}
	}

	recentN := min(a.cfg.HistoryWindow, n-1)
	recent := mean(points[n-recentN:])
	previous := mean(points[:n-recentN])
	change := (recent - previous) / math.Max(previous, 1)

	trend := models.TrendStable
	switch {
	case change > a.cfg.TrendThreshold:
		trend = models.TrendImproving
	case change < -a.cfg.TrendThreshold:
		trend = models.TrendDeclining
	}
	return models.PerformanceTrend{Trend: trend, ChangeRate: change, HistorySize: n}
}

// guard runs fn and returns fallback if it panics.
func guard[T any](a *Analyzer, step string, onDegraded func(string), fallback T, fn func() T) (out T) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("Analysis step degraded, using neutral output",
				zap.String("step", step),
				zap.String("panic", fmt.Sprint(r)))
			onDegraded(step)
			out = fallback
		}
	}()
	return fn()
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
