package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSavingsEstimator_Scenarios(t *testing.T) {
	est := NewSavingsEstimator()

	t.Run("ten percent reduction at 65 mills", func(t *testing.T) {
		got, err := est.Estimate(5_000_000, 4_500_000, 65.0)
		require.NoError(t, err)

		assert.Equal(t, int64(500_000), got.ReductionCents)
		assert.Equal(t, 10.0, got.ReductionPercent)
		assert.Equal(t, int64(325_000), got.CurrentAnnualTaxCents)
		assert.Equal(t, int64(292_500), got.TargetAnnualTaxCents)
		assert.Equal(t, int64(32_500), got.AnnualSavingsCents)
		assert.Equal(t, int64(162_500), got.FiveYearSavingsCents)
		assert.True(t, got.Worthwhile)
		assert.True(t, got.IsWorthwhile())
	})

	t.Run("small reduction is not worthwhile", func(t *testing.T) {
		got, err := est.Estimate(5_100_000, 5_000_000, 65.0)
		require.NoError(t, err)

		assert.Equal(t, int64(6_500), got.AnnualSavingsCents)
		assert.False(t, got.Worthwhile)
		assert.False(t, got.IsWorthwhile())
	})

	t.Run("from fairness at statutory ratio", func(t *testing.T) {
		got, err := est.EstimateFromFairness(8_750_000, 35_000_000, 0.20, 0)
		require.NoError(t, err)

		assert.Equal(t, int64(7_000_000), got.TargetAssessedCents)
		assert.Equal(t, int64(1_750_000), got.ReductionCents)
		assert.Equal(t, int64(113_750), got.AnnualSavingsCents)
		assert.Equal(t, 65.0, got.MillRateUsed)
	})
}

func TestSavingsEstimator_NoNegativeSavings(t *testing.T) {
	est := NewSavingsEstimator()

	for _, tc := range []struct{ current, target int64 }{
		{5_000_000, 5_000_000},
		{5_000_000, 6_000_000},
		{0, 0},
		{0, 100},
	} {
		got, err := est.Estimate(tc.current, tc.target, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(0), got.ReductionCents)
		assert.Equal(t, int64(0), got.AnnualSavingsCents)
		assert.Equal(t, int64(0), got.FiveYearSavingsCents)
		assert.Equal(t, 0.0, got.ReductionPercent)
		assert.False(t, got.Worthwhile)
	}
}

func TestSavingsEstimator_ReductionMatchesDifference(t *testing.T) {
	est := NewSavingsEstimator()

	for current := int64(0); current <= 2_000_000; current += 250_000 {
		for target := int64(0); target <= 2_000_000; target += 400_000 {
			got, err := est.Estimate(current, target, 0)
			require.NoError(t, err)
			assert.Equal(t, max(0, current-target), got.ReductionCents)
			assert.Equal(t, got.AnnualSavingsCents*5, got.FiveYearSavingsCents)
			assert.Equal(t, got.AnnualSavingsCents >= 10_000, got.Worthwhile)
		}
	}
}

func TestSavingsEstimator_WorthwhileBoundary(t *testing.T) {
	est := NewSavingsEstimator()

	got, err := est.Estimate(200_000, 100_000, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), got.AnnualSavingsCents)
	assert.True(t, got.Worthwhile)

	got, err = est.Estimate(199_990, 100_000, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(9_999), got.AnnualSavingsCents)
	assert.False(t, got.Worthwhile)
}

func TestSavingsEstimator_Validation(t *testing.T) {
	est := NewSavingsEstimator()

	cases := []struct {
		name string
		call func() error
	}{
		{"negative current", func() error { _, err := est.Estimate(-1, 0, 65); return err }},
		{"negative target", func() error { _, err := est.Estimate(100, -1, 65); return err }},
		{"negative mill rate", func() error { _, err := est.Estimate(100, 50, -1); return err }},
		{"NaN mill rate", func() error { _, err := est.Estimate(100, 50, math.NaN()); return err }},
		{"zero total", func() error { _, err := est.EstimateFromFairness(100, 0, 0.2, 65); return err }},
		{"ratio above one", func() error { _, err := est.EstimateFromFairness(100, 1000, 1.5, 65); return err }},
		{"negative ratio", func() error { _, err := est.EstimateFromFairness(100, 1000, -0.1, 65); return err }},
		{"NaN ratio", func() error { _, err := est.EstimateFromFairness(100, 1000, math.NaN(), 65); return err }},
		{"negative assessed", func() error { _, err := est.EstimateFromFairness(-100, 1000, 0.2, 65); return err }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.call(), ErrValidation)
		})
	}
}

func TestSavingsEstimator_DefaultMillRate(t *testing.T) {
	est := NewSavingsEstimator(WithSavingsMillRate(80))
	assert.Equal(t, 80.0, est.MillRate())

	got, err := est.Estimate(1_000_000, 900_000, 0)
	require.NoError(t, err)
	assert.Equal(t, 80.0, got.MillRateUsed)
	assert.Equal(t, int64(8_000), got.AnnualSavingsCents)

	got, err = est.Estimate(1_000_000, 900_000, 50)
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.MillRateUsed)
}

func TestSavingsEstimator_Pure(t *testing.T) {
	est := NewSavingsEstimator()

	a, errA := est.Estimate(7_333_333, 6_111_111, 61.7)
	b, errB := est.Estimate(7_333_333, 6_111_111, 61.7)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)
}
