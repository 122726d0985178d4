package learning

import (
	"time"

	"engagement-engine/internal/models"
)

const (
	maxRecommendations       = 5
	lowEngagementRateCutoff  = 0.03
	aiDetectionAverageCutoff = 0.4

	lowEngagementRecommendation = "Engagement rate is below 3%: rework the content strategy toward interactive formats and direct questions"
	authenticityRecommendation  = "Content often reads as machine-generated: raise authenticity with personal stories and a casual tone"
)

// PeriodReport aggregates the creator's retained completed sessions with a timestamp in
// [from, to). A zero from or to leaves that side of the window open.
func (o *Orchestrator) PeriodReport(creatorID string, from, to time.Time) models.PeriodReport {
	return BuildPeriodReport(creatorID, from, to, o.Reports(), o.now())
}

// BuildPeriodReport aggregates reports, which may come from any source, the same way
// PeriodReport does. Failed sessions and other creators are skipped.
func BuildPeriodReport(creatorID string, from, to time.Time, reports []*models.LearningReport, now time.Time) models.PeriodReport {
	report := models.PeriodReport{
		CreatorID:       creatorID,
		From:            from,
		To:              to,
		Insights:        []models.Insight{},
		Recommendations: []string{},
		GeneratedAt:     now,
	}

	var sumRate, sumEngagement, sumOverall, sumRisk, sumAI float64
	for _, r := range reports {
		if r.CreatorID != creatorID || !r.Completed() || r.PerformanceAnalysis == nil || r.RiskAssessment == nil {
			continue
		}
		if !from.IsZero() && r.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && !r.Timestamp.Before(to) {
			continue
		}

		rec, _ := r.Record.Normalize()
		report.SessionCount++
		sumRate += rec.EngagementRate
		sumEngagement += r.PerformanceAnalysis.EngagementScore
		sumOverall += r.PerformanceAnalysis.OverallScore
		sumRisk += r.RiskAssessment.OverallRisk
		sumAI += r.RiskAssessment.AIDetection
		report.Insights = append(report.Insights, r.Insights...)
	}

	if report.SessionCount == 0 {
		return report
	}

	n := float64(report.SessionCount)
	report.AvgEngagementRate = sumRate / n
	report.AvgEngagementScore = sumEngagement / n
	report.AvgOverallScore = sumOverall / n
	report.AvgOverallRisk = sumRisk / n
	report.AvgAIDetectionRisk = sumAI / n
	report.Recommendations = recommendations(report)
	return report
}

// recommendations puts the threshold-driven advice first, then the insights' suggested
// actions in order, without duplicates.
func recommendations(report models.PeriodReport) []string {
	var candidates []string
	if report.AvgEngagementRate < lowEngagementRateCutoff {
		candidates = append(candidates, lowEngagementRecommendation)
	}
	if report.AvgAIDetectionRisk > aiDetectionAverageCutoff {
		candidates = append(candidates, authenticityRecommendation)
	}
	for _, in := range report.Insights {
		candidates = append(candidates, in.SuggestedActions...)
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, maxRecommendations)
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
		if len(out) == maxRecommendations {
			break
		}
	}
	return out
}

// Dashboard summarises the retained session history.
func (o *Orchestrator) Dashboard() models.DashboardStats {
	stats := models.DashboardStats{
		SessionsByStatus: map[string]int{},
		AlertsByLevel:    map[string]int{},
		InsightsByType:   map[string]int{},
		CreatorsTracked:  len(o.store.Creators()),
	}

	completed := 0
	for _, r := range o.Reports() {
		stats.TotalSessions++
		stats.SessionsByStatus[r.Status]++
		if !r.Completed() {
			continue
		}
		completed++
		stats.AvgOverallScore += r.PerformanceAnalysis.OverallScore
		stats.AvgOverallRisk += r.RiskAssessment.OverallRisk
		for _, a := range r.RiskAssessment.Alerts {
			stats.AlertsByLevel[a.Level]++
		}
		for _, in := range r.Insights {
			stats.InsightsByType[in.InsightType]++
		}
	}
	if completed > 0 {
		stats.AvgOverallScore /= float64(completed)
		stats.AvgOverallRisk /= float64(completed)
	}
	return stats
}
