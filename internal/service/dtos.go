package service

import (
	"time"

	"github.com/godilite/assessment-server/internal/repository/models"
	"github.com/google/uuid"
)

type MatchType string

const (
	MatchSubdivision MatchType = "SUBDIVISION"
	MatchProximity   MatchType = "PROXIMITY"
)

type Interpretation string

const (
	InterpretationFair                    Interpretation = "FAIR"
	InterpretationPotentiallyOverAssessed Interpretation = "POTENTIALLY_OVER_ASSESSED"
	InterpretationOverAssessed            Interpretation = "OVER_ASSESSED"
)

type RecommendedAction string

const (
	ActionAppeal  RecommendedAction = "APPEAL"
	ActionMonitor RecommendedAction = "MONITOR"
	ActionNone    RecommendedAction = "NONE"
)

type AppealStrength string

const (
	StrengthStrong   AppealStrength = "STRONG"
	StrengthModerate AppealStrength = "MODERATE"
	StrengthWeak     AppealStrength = "WEAK"
)

// ComparableProperty is a candidate parcel scored against a subject.
type ComparableProperty struct {
	models.Parcel
	DistanceMiles     *float64  `json:"distance_miles,omitempty"`
	MatchType         MatchType `json:"match_type"`
	SimilarityScore   float64   `json:"similarity_score"`
	TypeMatchScore    float64   `json:"type_match_score"`
	ValueMatchScore   float64   `json:"value_match_score"`
	AcreageMatchScore float64   `json:"acreage_match_score"`
	LocationScore     float64   `json:"location_score"`
}

// FairnessResult places a subject value within the distribution of its
// comparables. Higher FairnessScore means more fairly assessed.
type FairnessResult struct {
	SubjectValueCents           int64          `json:"subject_value_cents"`
	MedianValueCents            int64          `json:"median_value_cents"`
	MeanValueCents              int64          `json:"mean_value_cents"`
	StdDeviationCents           int64          `json:"std_deviation_cents"`
	ZScore                      float64        `json:"z_score"`
	Percentile                  float64        `json:"percentile"`
	FairnessScore               float64        `json:"fairness_score"`
	Interpretation              Interpretation `json:"interpretation"`
	Confidence                  float64        `json:"confidence"`
	ComparableCount             int            `json:"comparable_count"`
	OverAssessmentCents         int64          `json:"over_assessment_cents"`
	PotentialAnnualSavingsCents int64          `json:"potential_annual_savings_cents"`
}

// SavingsEstimate is the tax effect of lowering an assessed value.
type SavingsEstimate struct {
	CurrentAssessedCents  int64   `json:"current_assessed_cents"`
	TargetAssessedCents   int64   `json:"target_assessed_cents"`
	ReductionCents        int64   `json:"reduction_cents"`
	ReductionPercent      float64 `json:"reduction_percent"`
	CurrentAnnualTaxCents int64   `json:"current_annual_tax_cents"`
	TargetAnnualTaxCents  int64   `json:"target_annual_tax_cents"`
	AnnualSavingsCents    int64   `json:"annual_savings_cents"`
	FiveYearSavingsCents  int64   `json:"five_year_savings_cents"`
	MillRateUsed          float64 `json:"mill_rate_used"`
	Worthwhile            bool    `json:"is_worthwhile"`
}

// IsWorthwhile reports whether the annual savings justify an appeal.
func (e SavingsEstimate) IsWorthwhile() bool {
	return e.AnnualSavingsCents >= worthwhileThresholdCents
}

// ComparableSummary is the slice of a comparable embedded in an analysis.
type ComparableSummary struct {
	PropertyID         uuid.UUID `json:"property_id"`
	ParcelID           string    `json:"parcel_id"`
	Address            string    `json:"address,omitempty"`
	TotalValueCents    int64     `json:"total_value_cents"`
	AssessedValueCents int64     `json:"assessed_value_cents"`
	Acreage            float64   `json:"acreage"`
	DistanceMiles      *float64  `json:"distance_miles,omitempty"`
	MatchType          MatchType `json:"match_type"`
	SimilarityScore    float64   `json:"similarity_score"`
}

// AssessmentAnalysis is the full result of analysing one parcel.
type AssessmentAnalysis struct {
	ID                    uuid.UUID `json:"id"`
	PropertyID            uuid.UUID `json:"property_id"`
	ParcelID              string    `json:"parcel_id"`
	Address               string    `json:"address,omitempty"`
	OwnerName             string    `json:"owner_name,omitempty"`
	PropertyType          string    `json:"property_type,omitempty"`
	Subdivision           string    `json:"subdivision,omitempty"`
	TotalValueCents       int64     `json:"total_value_cents"`
	AssessedValueCents    int64     `json:"assessed_value_cents"`
	Acreage               float64   `json:"acreage"`
	MedianComparableRatio float64   `json:"median_comparable_ratio"`

	FairnessResult
	SavingsEstimate

	Comparables       []ComparableSummary `json:"comparables"`
	RecommendedAction RecommendedAction   `json:"recommended_action"`
	AppealStrength    *AppealStrength     `json:"appeal_strength"`
	AnalysisDate      time.Time           `json:"analysis_date"`
}

// Criteria describes a virtual subject for comparable search. A location
// (both coordinates) or a subdivision is required.
type Criteria struct {
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	RadiusMiles     float64  `json:"radius_miles,omitempty"`
	Subdivision     string   `json:"subdivision,omitempty"`
	PropertyType    string   `json:"property_type,omitempty"`
	TotalValueCents int64    `json:"total_value_cents,omitempty"`
	Acreage         float64  `json:"acreage,omitempty"`
	MinValueCents   int64    `json:"min_value_cents,omitempty"`
	MaxValueCents   int64    `json:"max_value_cents,omitempty"`
	MinAcreage      float64  `json:"min_acreage,omitempty"`
	MaxAcreage      float64  `json:"max_acreage,omitempty"`
}

type PropertySummary struct {
	Subject                models.Parcel   `json:"subject"`
	ComparableCount        int             `json:"comparable_count"`
	AverageSimilarity      float64         `json:"average_similarity"`
	AverageAssessmentRatio float64         `json:"average_assessment_ratio"`
	SubjectAssessmentRatio float64         `json:"subject_assessment_ratio"`
	MatchType              MatchType       `json:"match_type,omitempty"`
	Fairness               *FairnessResult `json:"fairness,omitempty"`
	Explanation            string          `json:"explanation"`
}

// BatchResult collects the outcome of AnalyzeBatch. Analyses keeps input order.
type BatchResult struct {
	Analyses []*AssessmentAnalysis `json:"analyses"`
	Analyzed int                   `json:"analyzed"`
	Skipped  int                   `json:"skipped"`
	Errored  int                   `json:"errored"`
	Errors   map[string]string     `json:"errors,omitempty"`
}
