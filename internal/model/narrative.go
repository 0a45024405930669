package model

import "time"

const (
	TrendUp   = "up"
	TrendDown = "down"
	TrendFlat = "flat"

	RelationshipReinforces = "reinforces"
	RelationshipConflicts  = "conflicts"
	RelationshipDependsOn  = "depends_on"

	DefaultHalfLifeDays   = 30
	DefaultEdgeStrength   = 0.5
	DefaultFragility      = 50
	DefaultEvidenceWeight = 0.5
	DefaultHistoryScore   = 50
)

type Narrative struct {
	ID                    string
	Name                  string
	Summary               string
	Confidence            Confidence
	Assumptions           []Assumption
	SupportingEvidence    []Evidence
	ContradictingEvidence []Evidence
	Decay                 Decay
	Related               RelatedNarratives
	AffectedAssets        []AffectedAsset
	History               []HistoryPoint
	Tags                  []string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Confidence struct {
	Score       int
	Trend       string
	LastUpdated time.Time
}

type Assumption struct {
	ID             string `json:"id"`
	Text           string `json:"text"`
	FragilityScore int    `json:"fragilityScore"`
}

type Evidence struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Weight      float64   `json:"weight"`
}

type Decay struct {
	HalfLifeDays   int
	LastReinforced time.Time
}

type RelatedNarratives struct {
	Reinforces []string
	Conflicts  []string
	Overlaps   []string
}

type AffectedAsset struct {
	Ticker         string  `json:"ticker"`
	Name           string  `json:"name"`
	ExposureWeight float64 `json:"exposureWeight"`
}

type HistoryPoint struct {
	Timestamp       time.Time `json:"timestamp"`
	ConfidenceScore int       `json:"confidenceScore"`
	Summary         string    `json:"summary"`
}

type BeliefEdge struct {
	ID              string
	FromNarrativeID string
	ToNarrativeID   string
	Relationship    string
	Strength        float64
}

func ValidRelationship(r string) bool {
	switch r {
	case RelationshipReinforces, RelationshipConflicts, RelationshipDependsOn:
		return true
	}
	return false
}

func ValidTrend(t string) bool {
	switch t {
	case TrendUp, TrendDown, TrendFlat:
		return true
	}
	return false
}
