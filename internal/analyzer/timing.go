package analyzer

import "engagement-engine/internal/models"

func neutralTiming() models.TimingAnalysis {
	return models.TimingAnalysis{
		PostHour:      0,
		IsPeakHour:    false,
		OptimalTiming: models.TimingUnknown,
		TimingScore:   0.5,
	}
}

func (a *Analyzer) timingAnalysis(rec models.InteractionRecord) models.TimingAnalysis {
	t, ok := rec.PostTime()
	if !ok {
		return neutralTiming()
	}

	hour := t.Hour()
	out := models.TimingAnalysis{PostHour: hour}

	switch {
	case a.cfg.IsPeakHour(hour):
		out.IsPeakHour = true
		out.TimingScore = 0.9
		out.OptimalTiming = models.TimingEveningPeak
		if hour < 12 {
			out.OptimalTiming = models.TimingMorningPeak
		}
	case a.cfg.IsLunchHour(hour):
		out.OptimalTiming = models.TimingLunchTime
		out.TimingScore = 0.7
	default:
		out.OptimalTiming = models.TimingOffPeak
		out.TimingScore = 0.3
	}
	return out
}
