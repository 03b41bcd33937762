package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/godilite/assessment-server/internal/repository/models"
	"github.com/google/uuid"
)

const analysisColumns = `
	id, property_id, parcel_id, fairness_score, recommended_action, appeal_strength,
	confidence_level, comparable_count, estimated_savings_cents, analysis_date,
	payload, created_at`

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Insert appends one analysis run to the history. Rows are never updated.
func (r *AnalysisRepository) Insert(ctx context.Context, rec models.AnalysisRecord) error {
	const query = `
		INSERT INTO assessment_analyses (` + analysisColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID.String(),
		rec.PropertyID.String(),
		nullString(rec.ParcelID),
		rec.FairnessScore,
		rec.RecommendedAction,
		nullString(rec.AppealStrength),
		rec.ConfidenceLevel,
		rec.ComparableCount,
		rec.EstimatedSavingsCents,
		rec.AnalysisDate.UTC(),
		string(rec.Payload),
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("exec Insert: %w", err)
	}
	return nil
}

// LatestBelowScore returns the most recent analysis of every property whose
// fairness score is below threshold and whose recommendation is actionable,
// lowest score first.
func (r *AnalysisRepository) LatestBelowScore(ctx context.Context, threshold float64, limit int) ([]models.AnalysisRecord, error) {
	const query = `
		SELECT ` + analysisColumns + `
		FROM assessment_analyses AS a
		WHERE a.seq = (
			SELECT MAX(b.seq) FROM assessment_analyses AS b WHERE b.property_id = a.property_id
		)
		AND a.fairness_score < ?
		AND a.recommended_action <> 'NONE'
		ORDER BY a.fairness_score ASC, a.estimated_savings_cents DESC, a.seq DESC
		LIMIT ?`

	return r.query(ctx, "LatestBelowScore", query, threshold, limit)
}

// History returns the analyses recorded for a property, newest first.
func (r *AnalysisRepository) History(ctx context.Context, propertyID uuid.UUID, limit int) ([]models.AnalysisRecord, error) {
	const query = `
		SELECT ` + analysisColumns + `
		FROM assessment_analyses
		WHERE property_id = ?
		ORDER BY seq DESC
		LIMIT ?`

	return r.query(ctx, "History", query, propertyID.String(), limit)
}

// Any reports whether at least one analysis has been persisted.
func (r *AnalysisRepository) Any(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM assessment_analyses)`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query Any: %w", err)
	}
	return exists, nil
}

func (r *AnalysisRepository) query(ctx context.Context, op, query string, args ...any) ([]models.AnalysisRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", op, err)
	}
	defer rows.Close()

	var results []models.AnalysisRecord
	for rows.Next() {
		var rec models.AnalysisRecord
		var id, propertyID, payload string
		var parcelID, strength sql.NullString
		if err := rows.Scan(&id, &propertyID, &parcelID, &rec.FairnessScore, &rec.RecommendedAction,
			&strength, &rec.ConfidenceLevel, &rec.ComparableCount, &rec.EstimatedSavingsCents,
			&rec.AnalysisDate, &payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", op, err)
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse analysis id %q: %w", id, err)
		}
		if rec.PropertyID, err = uuid.Parse(propertyID); err != nil {
			return nil, fmt.Errorf("parse property id %q: %w", propertyID, err)
		}
		rec.ParcelID = parcelID.String
		rec.AppealStrength = strength.String
		rec.Payload = []byte(payload)
		results = append(results, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", op, err)
	}
	return results, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
