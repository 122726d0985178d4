package analyzer

import (
	"math"
	"strings"
	"unicode/utf8"

	"engagement-engine/internal/models"
)

// sentenceTerminators split text into sentences for readability and variance.
const sentenceTerminators = "。！？.!?\n"

func neutralContent(text string) models.ContentAnalysis {
	return models.ContentAnalysis{
		Length:              utf8.RuneCountInString(text),
		Readability:         50,
		Personalization:     0.5,
		AIDetectionRisk:     0.5,
		AIDetectionSource:   models.DetectionHeuristic,
		EngagementPotential: 0.5,
		QualityScore:        50,
	}
}

func (a *Analyzer) contentAnalysis(text string) models.ContentAnalysis {
	lower := strings.ToLower(text)
	sentences := splitSentences(text)

	personalization := math.Min(float64(countHits(lower, a.cfg.Indicators.Personal))/5, 1.0)
	engagement := math.Min(float64(countHits(lower, a.cfg.Indicators.Engagement))/3, 1.0)
	readability := readabilityScore(sentences)

	out := models.ContentAnalysis{
		Length:              utf8.RuneCountInString(text),
		Readability:         readability,
		Personalization:     personalization,
		AIDetectionRisk:     a.aiDetectionRisk(lower, sentences, personalization),
		AIDetectionSource:   models.DetectionHeuristic,
		EngagementPotential: engagement,
	}
	out.QualityScore = (readability + personalization*100 + engagement*100) / 3
	return out
}

// aiDetectionRisk accumulates risk units: one per formal connective, up to three for
// missing personal voice, and two for uniform sentence lengths.
func (a *Analyzer) aiDetectionRisk(lower string, sentences []string, personalization float64) float64 {
	units := float64(countHits(lower, a.cfg.Indicators.Formal))
	units += (1 - personalization) * 3
	if len(sentences) >= 2 && sentenceLengthVariance(sentences) < a.cfg.VarianceThreshold {
		units += 2
	}
	return math.Min(units/10, 1.0)
}

func readabilityScore(sentences []string) float64 {
	if len(sentences) == 0 {
		return 50
	}
	total := 0
	for _, s := range sentences {
		total += utf8.RuneCountInString(s)
	}
	avg := float64(total) / float64(len(sentences))
	switch {
	case avg < 20:
		return 90
	case avg < 30:
		return 70
	default:
		return 50
	}
}

func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return strings.ContainsRune(sentenceTerminators, r)
	})
	sentences := parts[:0]
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func sentenceLengthVariance(sentences []string) float64 {
	lengths := make([]float64, len(sentences))
	for i, s := range sentences {
		lengths[i] = float64(utf8.RuneCountInString(s))
	}
	m := mean(lengths)
	sum := 0.0
	for _, l := range lengths {
		sum += (l - m) * (l - m)
	}
	return sum / float64(len(lengths))
}

// countHits counts non-overlapping occurrences of every indicator in text.
func countHits(text string, indicators []string) int {
	hits := 0
	for _, ind := range indicators {
		if ind == "" {
			continue
		}
		hits += strings.Count(text, ind)
	}
	return hits
}
