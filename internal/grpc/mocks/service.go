package mocks

import (
	"context"
	"errors"

	"github.com/godilite/assessment-server/internal/service"
)

// MockAnalysisService is a function-based mock of the handler's AnalysisService.
type MockAnalysisService struct {
	AnalyzePropertyFunc      func(ctx context.Context, identifier string) (*service.AssessmentAnalysis, error)
	AnalyzeBatchFunc         func(ctx context.Context, identifiers []string, batchSize int, opts ...service.BatchOption) service.BatchResult
	FindAppealCandidatesFunc func(ctx context.Context, scoreThreshold float64, limit int) ([]*service.AssessmentAnalysis, error)
	SaveAnalysisFunc         func(ctx context.Context, analysis *service.AssessmentAnalysis) error
	AnalysisHistoryFunc      func(ctx context.Context, identifier string, limit int) ([]*service.AssessmentAnalysis, error)
}

func (m *MockAnalysisService) AnalyzeProperty(ctx context.Context, identifier string) (*service.AssessmentAnalysis, error) {
	if m.AnalyzePropertyFunc != nil {
		return m.AnalyzePropertyFunc(ctx, identifier)
	}
	return nil, errors.New("AnalyzePropertyFunc not implemented")
}

func (m *MockAnalysisService) AnalyzeBatch(ctx context.Context, identifiers []string, batchSize int, opts ...service.BatchOption) service.BatchResult {
	if m.AnalyzeBatchFunc != nil {
		return m.AnalyzeBatchFunc(ctx, identifiers, batchSize, opts...)
	}
	return service.BatchResult{Errored: len(identifiers)}
}

func (m *MockAnalysisService) FindAppealCandidates(ctx context.Context, scoreThreshold float64, limit int) ([]*service.AssessmentAnalysis, error) {
	if m.FindAppealCandidatesFunc != nil {
		return m.FindAppealCandidatesFunc(ctx, scoreThreshold, limit)
	}
	return nil, errors.New("FindAppealCandidatesFunc not implemented")
}

func (m *MockAnalysisService) SaveAnalysis(ctx context.Context, analysis *service.AssessmentAnalysis) error {
	if m.SaveAnalysisFunc != nil {
		return m.SaveAnalysisFunc(ctx, analysis)
	}
	return errors.New("SaveAnalysisFunc not implemented")
}

func (m *MockAnalysisService) AnalysisHistory(ctx context.Context, identifier string, limit int) ([]*service.AssessmentAnalysis, error) {
	if m.AnalysisHistoryFunc != nil {
		return m.AnalysisHistoryFunc(ctx, identifier, limit)
	}
	return nil, errors.New("AnalysisHistoryFunc not implemented")
}

// MockComparableFinder is a function-based mock of the handler's ComparableFinder.
type MockComparableFinder struct {
	FindComparablesFunc           func(ctx context.Context, subjectID string, limit int) ([]service.ComparableProperty, error)
	FindComparablesByCriteriaFunc func(ctx context.Context, c service.Criteria, limit int) ([]service.ComparableProperty, error)
	GetPropertySummaryFunc        func(ctx context.Context, subjectID string) (service.PropertySummary, error)
}

func (m *MockComparableFinder) FindComparables(ctx context.Context, subjectID string, limit int) ([]service.ComparableProperty, error) {
	if m.FindComparablesFunc != nil {
		return m.FindComparablesFunc(ctx, subjectID, limit)
	}
	return nil, errors.New("FindComparablesFunc not implemented")
}

func (m *MockComparableFinder) FindComparablesByCriteria(ctx context.Context, c service.Criteria, limit int) ([]service.ComparableProperty, error) {
	if m.FindComparablesByCriteriaFunc != nil {
		return m.FindComparablesByCriteriaFunc(ctx, c, limit)
	}
	return nil, errors.New("FindComparablesByCriteriaFunc not implemented")
}

func (m *MockComparableFinder) GetPropertySummary(ctx context.Context, subjectID string) (service.PropertySummary, error) {
	if m.GetPropertySummaryFunc != nil {
		return m.GetPropertySummaryFunc(ctx, subjectID)
	}
	return service.PropertySummary{}, errors.New("GetPropertySummaryFunc not implemented")
}

// MockSavingsCalculator is a function-based mock of the handler's SavingsCalculator.
type MockSavingsCalculator struct {
	EstimateFunc             func(currentAssessedCents, targetAssessedCents int64, millRate float64) (service.SavingsEstimate, error)
	EstimateFromFairnessFunc func(currentAssessedCents, currentTotalCents int64, targetRatio, millRate float64) (service.SavingsEstimate, error)
}

func (m *MockSavingsCalculator) Estimate(currentAssessedCents, targetAssessedCents int64, millRate float64) (service.SavingsEstimate, error) {
	if m.EstimateFunc != nil {
		return m.EstimateFunc(currentAssessedCents, targetAssessedCents, millRate)
	}
	return service.SavingsEstimate{}, errors.New("EstimateFunc not implemented")
}

func (m *MockSavingsCalculator) EstimateFromFairness(currentAssessedCents, currentTotalCents int64, targetRatio, millRate float64) (service.SavingsEstimate, error) {
	if m.EstimateFromFairnessFunc != nil {
		return m.EstimateFromFairnessFunc(currentAssessedCents, currentTotalCents, targetRatio, millRate)
	}
	return service.SavingsEstimate{}, errors.New("EstimateFromFairnessFunc not implemented")
}
