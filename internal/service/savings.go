package service

import (
	"fmt"
	"math"
)

const worthwhileThresholdCents = 10_000

// SavingsEstimator converts assessed-value reductions into tax savings.
type SavingsEstimator struct {
	millRate float64
}

type SavingsOption func(*SavingsEstimator)

// WithSavingsMillRate overrides the default mill rate.
func WithSavingsMillRate(rate float64) SavingsOption {
	return func(e *SavingsEstimator) {
		if rate > 0 {
			e.millRate = rate
		}
	}
}

func NewSavingsEstimator(opts ...SavingsOption) *SavingsEstimator {
	e := &SavingsEstimator{millRate: defaultMillRate}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MillRate returns the rate used when a call passes 0.
func (e *SavingsEstimator) MillRate() float64 {
	return e.millRate
}

// Estimate computes savings from lowering current to target. A millRate of 0
// selects the estimator default. A target at or above current yields zero
// savings.
func (e *SavingsEstimator) Estimate(currentAssessedCents, targetAssessedCents int64, millRate float64) (SavingsEstimate, error) {
	if currentAssessedCents < 0 || targetAssessedCents < 0 {
		return SavingsEstimate{}, fmt.Errorf("%w: assessed values must be non-negative", ErrValidation)
	}
	if millRate == 0 {
		millRate = e.millRate
	}
	if !(millRate > 0) || math.IsInf(millRate, 0) {
		return SavingsEstimate{}, fmt.Errorf("%w: mill rate must be positive, got %v", ErrValidation, millRate)
	}

	est := SavingsEstimate{
		CurrentAssessedCents:  currentAssessedCents,
		TargetAssessedCents:   targetAssessedCents,
		CurrentAnnualTaxCents: annualTax(currentAssessedCents, millRate),
		TargetAnnualTaxCents:  annualTax(targetAssessedCents, millRate),
		MillRateUsed:          millRate,
	}
	if targetAssessedCents >= currentAssessedCents {
		return est, nil
	}

	est.ReductionCents = currentAssessedCents - targetAssessedCents
	if currentAssessedCents > 0 {
		est.ReductionPercent = round2(float64(est.ReductionCents) / float64(currentAssessedCents) * 100)
	}
	est.AnnualSavingsCents = max(0, est.CurrentAnnualTaxCents-est.TargetAnnualTaxCents)
	est.FiveYearSavingsCents = est.AnnualSavingsCents * 5
	est.Worthwhile = est.IsWorthwhile()
	return est, nil
}

// EstimateFromFairness targets currentTotalCents * targetRatio.
func (e *SavingsEstimator) EstimateFromFairness(currentAssessedCents, currentTotalCents int64, targetRatio, millRate float64) (SavingsEstimate, error) {
	if currentTotalCents <= 0 {
		return SavingsEstimate{}, fmt.Errorf("%w: total value must be positive", ErrValidation)
	}
	if !(targetRatio >= 0 && targetRatio <= 1) {
		return SavingsEstimate{}, fmt.Errorf("%w: target ratio must be within [0, 1], got %v", ErrValidation, targetRatio)
	}
	target := int64(float64(currentTotalCents) * targetRatio)
	return e.Estimate(currentAssessedCents, target, millRate)
}

func annualTax(assessedCents int64, millRate float64) int64 {
	return int64(math.RoundToEven(float64(assessedCents) * millRate / 1000))
}
