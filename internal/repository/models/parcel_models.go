package models

import (
	"time"

	"github.com/godilite/assessment-server/pkg/geo"
	"github.com/google/uuid"
)

// surrogatePrefix marks a synthetic key derived from the internal id when a
// parcel has no parcel_id.
const surrogatePrefix = "uuid:"

// Parcel is a row of the properties store.
type Parcel struct {
	ID                    uuid.UUID  `json:"id"`
	ParcelID              string     `json:"parcel_id,omitempty"`
	TotalValueCents       int64      `json:"total_value_cents"`
	AssessedValueCents    int64      `json:"assessed_value_cents"`
	LandValueCents        int64      `json:"land_value_cents"`
	ImprovementValueCents int64      `json:"improvement_value_cents"`
	Acreage               float64    `json:"acreage"`
	PropertyType          string     `json:"property_type,omitempty"`
	Subdivision           string     `json:"subdivision,omitempty"`
	Address               string     `json:"address,omitempty"`
	OwnerName             string     `json:"owner_name,omitempty"`
	Location              *geo.Point `json:"location,omitempty"`
}

// Key returns the business key, or a synthetic surrogate when parcel_id is absent.
func (p Parcel) Key() string {
	if p.ParcelID != "" {
		return p.ParcelID
	}
	return SurrogateKey(p.ID)
}

// Scoreable reports whether the parcel carries a market value to compare against.
func (p Parcel) Scoreable() bool {
	return p.TotalValueCents > 0
}

// AssessmentRatio is assessed value over total value, 0 when total is unknown.
func (p Parcel) AssessmentRatio() float64 {
	if p.TotalValueCents <= 0 {
		return 0
	}
	return float64(p.AssessedValueCents) / float64(p.TotalValueCents)
}

// SurrogateKey builds the synthetic key used for parcels without parcel_id.
func SurrogateKey(id uuid.UUID) string {
	return surrogatePrefix + id.String()
}

// ParseIdentifier splits a caller-supplied identifier into an internal id (for
// UUIDs and surrogate keys) or a parcel_id.
func ParseIdentifier(raw string) (id uuid.UUID, parcelID string, isID bool) {
	s := raw
	if len(s) > len(surrogatePrefix) && s[:len(surrogatePrefix)] == surrogatePrefix {
		s = s[len(surrogatePrefix):]
	}
	if parsed, err := uuid.Parse(s); err == nil {
		return parsed, "", true
	}
	return uuid.Nil, raw, false
}

// CandidateQuery selects comparable candidates from the properties store.
// RadiusMiles > 0 restricts results to parcels within that distance of Origin;
// Origin alone only drives the reported distance.
type CandidateQuery struct {
	Subdivision   string
	Origin        *geo.Point
	RadiusMiles   float64
	ExcludeID     uuid.UUID
	PropertyType  string
	MinValueCents int64
	MaxValueCents int64
	MinAcreage    float64
	MaxAcreage    float64
}

// Candidate is a parcel returned by a candidate query, with its distance to the
// query point when both locations are known.
type Candidate struct {
	Parcel        Parcel
	DistanceMiles *float64
}

// AnalysisRecord is one row of the append-only assessment_analyses history.
type AnalysisRecord struct {
	ID                    uuid.UUID
	PropertyID            uuid.UUID
	ParcelID              string
	FairnessScore         float64
	RecommendedAction     string
	AppealStrength        string
	ConfidenceLevel       float64
	ComparableCount       int
	EstimatedSavingsCents int64
	AnalysisDate          time.Time
	Payload               []byte
	CreatedAt             time.Time
}
