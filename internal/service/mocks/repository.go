package mocks

import (
	"context"
	"errors"

	"github.com/godilite/assessment-server/internal/repository/models"
	"github.com/google/uuid"
)

// MockParcelRepository is a mock implementation of the ParcelRepository interface
// for testing the service layer.
type MockParcelRepository struct {
	GetByIDFunc           func(ctx context.Context, id uuid.UUID) (models.Parcel, error)
	GetByParcelIDFunc     func(ctx context.Context, parcelID string) (models.Parcel, error)
	FindCandidatesFunc    func(ctx context.Context, q models.CandidateQuery) ([]models.Candidate, error)
	ListScoreableKeysFunc func(ctx context.Context, limit int) ([]string, error)
}

// GetByID implements the ParcelRepository interface
func (m *MockParcelRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Parcel, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return models.Parcel{}, errors.New("GetByIDFunc not implemented")
}

// GetByParcelID implements the ParcelRepository interface
func (m *MockParcelRepository) GetByParcelID(ctx context.Context, parcelID string) (models.Parcel, error) {
	if m.GetByParcelIDFunc != nil {
		return m.GetByParcelIDFunc(ctx, parcelID)
	}
	return models.Parcel{}, errors.New("GetByParcelIDFunc not implemented")
}

// FindCandidates implements the ParcelRepository interface
func (m *MockParcelRepository) FindCandidates(ctx context.Context, q models.CandidateQuery) ([]models.Candidate, error) {
	if m.FindCandidatesFunc != nil {
		return m.FindCandidatesFunc(ctx, q)
	}
	return nil, errors.New("FindCandidatesFunc not implemented")
}

// ListScoreableKeys implements the ParcelRepository interface
func (m *MockParcelRepository) ListScoreableKeys(ctx context.Context, limit int) ([]string, error) {
	if m.ListScoreableKeysFunc != nil {
		return m.ListScoreableKeysFunc(ctx, limit)
	}
	return nil, errors.New("ListScoreableKeysFunc not implemented")
}

// MockAnalysisRepository is a mock implementation of the AnalysisRepository interface.
type MockAnalysisRepository struct {
	InsertFunc           func(ctx context.Context, rec models.AnalysisRecord) error
	LatestBelowScoreFunc func(ctx context.Context, threshold float64, limit int) ([]models.AnalysisRecord, error)
	HistoryFunc          func(ctx context.Context, propertyID uuid.UUID, limit int) ([]models.AnalysisRecord, error)
	AnyFunc              func(ctx context.Context) (bool, error)
}

// Insert implements the AnalysisRepository interface
func (m *MockAnalysisRepository) Insert(ctx context.Context, rec models.AnalysisRecord) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, rec)
	}
	return errors.New("InsertFunc not implemented")
}

// LatestBelowScore implements the AnalysisRepository interface
func (m *MockAnalysisRepository) LatestBelowScore(ctx context.Context, threshold float64, limit int) ([]models.AnalysisRecord, error) {
	if m.LatestBelowScoreFunc != nil {
		return m.LatestBelowScoreFunc(ctx, threshold, limit)
	}
	return nil, errors.New("LatestBelowScoreFunc not implemented")
}

// History implements the AnalysisRepository interface
func (m *MockAnalysisRepository) History(ctx context.Context, propertyID uuid.UUID, limit int) ([]models.AnalysisRecord, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, propertyID, limit)
	}
	return nil, errors.New("HistoryFunc not implemented")
}

// Any implements the AnalysisRepository interface
func (m *MockAnalysisRepository) Any(ctx context.Context) (bool, error) {
	if m.AnyFunc != nil {
		return m.AnyFunc(ctx)
	}
	return false, errors.New("AnyFunc not implemented")
}
