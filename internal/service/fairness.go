package service

import "math"

const (
	defaultMillRate       = 65.0
	statutoryRatio        = 0.20
	fairScoreThreshold    = 70
	overAssessedThreshold = 40
)

// FairnessScorer computes where a subject value sits among comparable values.
// It holds no mutable state and is safe for concurrent use.
type FairnessScorer struct {
	millRate       float64
	statutoryRatio float64
}

type FairnessOption func(*FairnessScorer)

// WithFairnessMillRate sets the mill rate used for potential savings.
func WithFairnessMillRate(rate float64) FairnessOption {
	return func(s *FairnessScorer) {
		if rate > 0 {
			s.millRate = rate
		}
	}
}

// WithStatutoryRatio sets the assessment ratio applied to over-assessment.
func WithStatutoryRatio(ratio float64) FairnessOption {
	return func(s *FairnessScorer) {
		if ratio > 0 && ratio <= 1 {
			s.statutoryRatio = ratio
		}
	}
}

func NewFairnessScorer(opts ...FairnessOption) *FairnessScorer {
	s := &FairnessScorer{
		millRate:       defaultMillRate,
		statutoryRatio: statutoryRatio,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calculate returns nil when there is nothing to compare against: a
// non-positive subject or no positive comparable values.
func (s *FairnessScorer) Calculate(subjectValue int64, comparableValues []int64) *FairnessResult {
	if subjectValue <= 0 {
		return nil
	}

	values := make([]float64, 0, len(comparableValues))
	for _, v := range comparableValues {
		if v > 0 {
			values = append(values, float64(v))
		}
	}
	if len(values) == 0 {
		return nil
	}

	subject := float64(subjectValue)
	med := median(values)
	avg := mean(values)

	std := med * 0.10
	if len(values) >= 2 {
		std = sampleStdDev(values)
	}
	std = math.Max(std, math.Max(1, med*0.05))

	z := (subject - med) / std
	score := fairnessScore(subject, med, z)

	overAssessment := roundCents(math.Max(0, subject-med))
	savings := int64(float64(overAssessment) * s.statutoryRatio * s.millRate / 1000)

	return &FairnessResult{
		SubjectValueCents:           subjectValue,
		MedianValueCents:            roundCents(med),
		MeanValueCents:              roundCents(avg),
		StdDeviationCents:           roundCents(std),
		ZScore:                      z,
		Percentile:                  midpointPercentile(subject, values),
		FairnessScore:               score,
		Interpretation:              interpret(score),
		Confidence:                  confidence(len(values), std, med),
		ComparableCount:             len(values),
		OverAssessmentCents:         overAssessment,
		PotentialAnnualSavingsCents: savings,
	}
}

func fairnessScore(subject, med, z float64) float64 {
	if subject <= med {
		return math.Min(100, 90+math.Trunc((med-subject)/med*50))
	}
	return math.Max(0, math.Trunc(90-z*25))
}

func interpret(score float64) Interpretation {
	switch {
	case score >= fairScoreThreshold:
		return InterpretationFair
	case score >= overAssessedThreshold:
		return InterpretationPotentiallyOverAssessed
	default:
		return InterpretationOverAssessed
	}
}

// confidence blends sample size and dispersion, capped by sample size.
func confidence(n int, std, med float64) float64 {
	var limit float64
	switch {
	case n < 3:
		limit = 40
	case n < 5:
		limit = 60
	case n < 10:
		limit = 80
	default:
		limit = 100
	}

	countScore := math.Min(50, float64(n)/20*50)
	consistency := math.Max(0, (1-math.Min(std/med, 1))*50)
	return round2(math.Min(limit, countScore+consistency))
}
