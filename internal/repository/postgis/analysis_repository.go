package postgis

import (
	"context"
	"fmt"

	"github.com/godilite/assessment-server/internal/repository/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const analysisColumns = `
	id, property_id, parcel_id, fairness_score, recommended_action, appeal_strength,
	confidence_level, comparable_count, estimated_savings_cents, analysis_date,
	payload, created_at`

type AnalysisRepository struct {
	pool *pgxpool.Pool
}

func NewAnalysisRepository(pool *pgxpool.Pool) *AnalysisRepository {
	return &AnalysisRepository{pool: pool}
}

// Insert appends one analysis run to the history.
func (r *AnalysisRepository) Insert(ctx context.Context, rec models.AnalysisRecord) error {
	const query = `
		INSERT INTO assessment_analyses (` + analysisColumns + `)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11::jsonb, $12)`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.PropertyID, rec.ParcelID, rec.FairnessScore, rec.RecommendedAction,
		rec.AppealStrength, rec.ConfidenceLevel, rec.ComparableCount, rec.EstimatedSavingsCents,
		rec.AnalysisDate.UTC(), string(rec.Payload), rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("exec Insert: %w", err)
	}
	return nil
}

// LatestBelowScore returns the latest actionable analysis per property below
// threshold, lowest score first.
func (r *AnalysisRepository) LatestBelowScore(ctx context.Context, threshold float64, limit int) ([]models.AnalysisRecord, error) {
	const query = `
		SELECT ` + analysisColumns + ` FROM (
			SELECT DISTINCT ON (property_id) *
			FROM assessment_analyses
			ORDER BY property_id, seq DESC
		) AS latest
		WHERE fairness_score < $1 AND recommended_action <> 'NONE'
		ORDER BY fairness_score ASC, estimated_savings_cents DESC, seq DESC
		LIMIT $2`

	return r.query(ctx, "LatestBelowScore", query, threshold, limit)
}

// History returns the analyses recorded for a property, newest first.
func (r *AnalysisRepository) History(ctx context.Context, propertyID uuid.UUID, limit int) ([]models.AnalysisRecord, error) {
	const query = `
		SELECT ` + analysisColumns + `
		FROM assessment_analyses
		WHERE property_id = $1
		ORDER BY seq DESC
		LIMIT $2`

	return r.query(ctx, "History", query, propertyID, limit)
}

// Any reports whether at least one analysis has been persisted.
func (r *AnalysisRepository) Any(ctx context.Context) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM assessment_analyses)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("query Any: %w", err)
	}
	return exists, nil
}

func (r *AnalysisRepository) query(ctx context.Context, op, query string, args ...any) ([]models.AnalysisRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", op, err)
	}
	defer rows.Close()

	var results []models.AnalysisRecord
	for rows.Next() {
		var rec models.AnalysisRecord
		var parcelID, strength *string
		if err := rows.Scan(&rec.ID, &rec.PropertyID, &parcelID, &rec.FairnessScore, &rec.RecommendedAction,
			&strength, &rec.ConfidenceLevel, &rec.ComparableCount, &rec.EstimatedSavingsCents,
			&rec.AnalysisDate, &rec.Payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", op, err)
		}
		rec.ParcelID = deref(parcelID)
		rec.AppealStrength = deref(strength)
		results = append(results, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", op, err)
	}
	return results, nil
}
