package grpc

import "github.com/godilite/assessment-server/internal/service"

type AnalyzePropertyRequest struct {
	Identifier string `json:"identifier"`
	Save       bool   `json:"save,omitempty"`
}

// AnalyzePropertyResponse carries InsufficientData instead of an error when
// the parcel could not be scored.
type AnalyzePropertyResponse struct {
	InsufficientData bool                        `json:"insufficient_data"`
	Analysis         *service.AssessmentAnalysis `json:"analysis,omitempty"`
}

type AnalyzeBatchRequest struct {
	Identifiers []string `json:"identifiers"`
	BatchSize   int      `json:"batch_size,omitempty"`
	Save        bool     `json:"save,omitempty"`
}

type AnalyzeBatchResponse struct {
	service.BatchResult
}

type FindComparablesRequest struct {
	Identifier string `json:"identifier"`
	Limit      int    `json:"limit,omitempty"`
}

type FindComparablesByCriteriaRequest struct {
	Criteria service.Criteria `json:"criteria"`
	Limit    int              `json:"limit,omitempty"`
}

type ComparablesResponse struct {
	Comparables []service.ComparableProperty `json:"comparables"`
}

type GetPropertySummaryRequest struct {
	Identifier string `json:"identifier"`
}

type PropertySummaryResponse struct {
	Summary service.PropertySummary `json:"summary"`
}

// FindAppealCandidatesRequest defaults ScoreThreshold to 60 when absent.
type FindAppealCandidatesRequest struct {
	ScoreThreshold *float64 `json:"score_threshold,omitempty"`
	Limit          int      `json:"limit,omitempty"`
}

type AnalysesResponse struct {
	Analyses []*service.AssessmentAnalysis `json:"analyses"`
}

// EstimateSavingsRequest estimates from an explicit target, or from
// CurrentTotalCents and TargetRatio when TargetRatio is set. A nil MillRate
// uses the configured rate; an explicit rate must be positive.
type EstimateSavingsRequest struct {
	CurrentAssessedCents int64    `json:"current_assessed_cents"`
	TargetAssessedCents  int64    `json:"target_assessed_cents,omitempty"`
	CurrentTotalCents    int64    `json:"current_total_cents,omitempty"`
	TargetRatio          *float64 `json:"target_ratio,omitempty"`
	MillRate             *float64 `json:"mill_rate,omitempty"`
}

type EstimateSavingsResponse struct {
	Estimate service.SavingsEstimate `json:"estimate"`
}

type GetAnalysisHistoryRequest struct {
	Identifier string `json:"identifier"`
	Limit      int    `json:"limit,omitempty"`
}
