package service

import (
	"context"

	"github.com/godilite/assessment-server/internal/repository/models"
	"github.com/google/uuid"
)

// ParcelRepository reads parcels from the properties store.
type ParcelRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (models.Parcel, error)
	GetByParcelID(ctx context.Context, parcelID string) (models.Parcel, error)
	FindCandidates(ctx context.Context, q models.CandidateQuery) ([]models.Candidate, error)
	ListScoreableKeys(ctx context.Context, limit int) ([]string, error)
}

// AnalysisRepository persists analysis runs. It is append-only.
type AnalysisRepository interface {
	Insert(ctx context.Context, rec models.AnalysisRecord) error
	LatestBelowScore(ctx context.Context, threshold float64, limit int) ([]models.AnalysisRecord, error)
	History(ctx context.Context, propertyID uuid.UUID, limit int) ([]models.AnalysisRecord, error)
	Any(ctx context.Context) (bool, error)
}
