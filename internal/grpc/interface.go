package grpc

import (
	"context"
	"time"

	"github.com/godilite/assessment-server/internal/service"
)

// Cacher defines the interface for cache operations.
type Cacher interface {
	Close() error
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

type AnalysisService interface {
	AnalyzeProperty(ctx context.Context, identifier string) (*service.AssessmentAnalysis, error)
	AnalyzeBatch(ctx context.Context, identifiers []string, batchSize int, opts ...service.BatchOption) service.BatchResult
	FindAppealCandidates(ctx context.Context, scoreThreshold float64, limit int) ([]*service.AssessmentAnalysis, error)
	SaveAnalysis(ctx context.Context, analysis *service.AssessmentAnalysis) error
	AnalysisHistory(ctx context.Context, identifier string, limit int) ([]*service.AssessmentAnalysis, error)
}

type ComparableFinder interface {
	FindComparables(ctx context.Context, subjectID string, limit int) ([]service.ComparableProperty, error)
	FindComparablesByCriteria(ctx context.Context, c service.Criteria, limit int) ([]service.ComparableProperty, error)
	GetPropertySummary(ctx context.Context, subjectID string) (service.PropertySummary, error)
}

type SavingsCalculator interface {
	Estimate(currentAssessedCents, targetAssessedCents int64, millRate float64) (service.SavingsEstimate, error)
	EstimateFromFairness(currentAssessedCents, currentTotalCents int64, targetRatio, millRate float64) (service.SavingsEstimate, error)
}
