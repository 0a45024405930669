package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"narrativelens/internal/model"
	"narrativelens/internal/narrative"
)

type NarrativeRepository struct {
	db *sql.DB
}

func NewNarrativeRepository(db *sql.DB) *NarrativeRepository {
	return &NarrativeRepository{db: db}
}

const narrativeColumns = `
	id, name, summary, confidence_score, confidence_trend, confidence_updated_at,
	assumptions, supporting_evidence, contradicting_evidence,
	decay_half_life_days, last_reinforced,
	related_reinforces, related_conflicts, related_overlaps,
	affected_assets, history, tags, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNarrative(row rowScanner, now time.Time) (model.Narrative, error) {
	var (
		n                                        model.Narrative
		assumptions, supporting, contradicting   []byte
		assets, history                          []byte
		reinforces, conflicts, overlaps, tagList pq.StringArray
	)

	err := row.Scan(
		&n.ID, &n.Name, &n.Summary, &n.Confidence.Score, &n.Confidence.Trend, &n.Confidence.LastUpdated,
		&assumptions, &supporting, &contradicting,
		&n.Decay.HalfLifeDays, &n.Decay.LastReinforced,
		&reinforces, &conflicts, &overlaps,
		&assets, &history, &tagList, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return n, err
	}

	n.Assumptions = narrative.DecodeAssumptions(assumptions)
	n.SupportingEvidence = narrative.DecodeEvidence(supporting, now)
	n.ContradictingEvidence = narrative.DecodeEvidence(contradicting, now)
	n.AffectedAssets = narrative.DecodeAssets(assets)
	n.History = narrative.DecodeHistory(history, now)
	n.Related = model.RelatedNarratives{
		Reinforces: nonNil(reinforces),
		Conflicts:  nonNil(conflicts),
		Overlaps:   nonNil(overlaps),
	}
	n.Tags = nonNil(tagList)
	return n, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// List returns every narrative, highest confidence first.
func (r *NarrativeRepository) List(ctx context.Context) ([]model.Narrative, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+narrativeColumns+`
		FROM narratives
		ORDER BY confidence_score DESC, name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	now := time.Now()
	narratives := []model.Narrative{}
	for rows.Next() {
		n, err := scanNarrative(rows, now)
		if err != nil {
			return nil, err
		}
		narratives = append(narratives, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return narratives, nil
}

func (r *NarrativeRepository) Get(ctx context.Context, id string) (*model.Narrative, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+narrativeColumns+`
		FROM narratives
		WHERE id = $1
	`, id)

	n, err := scanNarrative(row, time.Now())
	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &n, nil
}

func (r *NarrativeRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM narratives`).Scan(&count)
	return count, err
}

// Upsert inserts the narrative or replaces the stored one. Confidence,
// reinforcement and update timestamps are set to now; on update the previous
// confidence is appended to history first.
func (r *NarrativeRepository) Upsert(ctx context.Context, n model.Narrative) error {
	assumptions, err := json.Marshal(nonNilSlice(n.Assumptions))
	if err != nil {
		return err
	}
	supporting, err := json.Marshal(nonNilSlice(n.SupportingEvidence))
	if err != nil {
		return err
	}
	contradicting, err := json.Marshal(nonNilSlice(n.ContradictingEvidence))
	if err != nil {
		return err
	}
	assets, err := json.Marshal(nonNilSlice(n.AffectedAssets))
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO narratives(
			id, name, summary, confidence_score, confidence_trend, confidence_updated_at,
			assumptions, supporting_evidence, contradicting_evidence,
			decay_half_life_days, last_reinforced,
			related_reinforces, related_conflicts, related_overlaps,
			affected_assets, history, tags, created_at, updated_at)
		VALUES($1, $2, $3, $4, $5, now(), $6, $7, $8, $9, now(), $10, $11, $12, $13, '[]', $14, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			summary = EXCLUDED.summary,
			confidence_score = EXCLUDED.confidence_score,
			confidence_trend = EXCLUDED.confidence_trend,
			confidence_updated_at = now(),
			assumptions = EXCLUDED.assumptions,
			supporting_evidence = EXCLUDED.supporting_evidence,
			contradicting_evidence = EXCLUDED.contradicting_evidence,
			decay_half_life_days = EXCLUDED.decay_half_life_days,
			last_reinforced = now(),
			related_reinforces = EXCLUDED.related_reinforces,
			related_conflicts = EXCLUDED.related_conflicts,
			related_overlaps = EXCLUDED.related_overlaps,
			affected_assets = EXCLUDED.affected_assets,
			history = narratives.history || jsonb_build_array(jsonb_build_object(
				'timestamp', narratives.confidence_updated_at,
				'confidenceScore', narratives.confidence_score,
				'summary', narratives.summary)),
			tags = EXCLUDED.tags,
			updated_at = now()
	`, n.ID, n.Name, n.Summary, n.Confidence.Score, n.Confidence.Trend,
		assumptions, supporting, contradicting,
		n.Decay.HalfLifeDays,
		pq.Array(nonNil(n.Related.Reinforces)), pq.Array(nonNil(n.Related.Conflicts)), pq.Array(nonNil(n.Related.Overlaps)),
		assets, pq.Array(nonNil(n.Tags)))
	return err
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ReplaceEdges deletes every stored edge and inserts the given ones in one
// transaction. An edge that fails to insert is rolled back to its savepoint,
// logged and skipped; the number stored is returned.
func (r *NarrativeRepository) ReplaceEdges(ctx context.Context, edges []model.BeliefEdge) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM belief_edges`); err != nil {
		return 0, err
	}

	saved := 0
	for _, e := range edges {
		if _, err := tx.ExecContext(ctx, `SAVEPOINT edge`); err != nil {
			return 0, err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO belief_edges(id, from_narrative_id, to_narrative_id, relationship, strength)
			VALUES($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				from_narrative_id = EXCLUDED.from_narrative_id,
				to_narrative_id = EXCLUDED.to_narrative_id,
				relationship = EXCLUDED.relationship,
				strength = EXCLUDED.strength
		`, e.ID, e.FromNarrativeID, e.ToNarrativeID, e.Relationship, e.Strength)
		if err != nil {
			slog.Error("error saving belief edge", "edge_id", e.ID, "error", describe(err))
			if _, err := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT edge`); err != nil {
				return 0, err
			}
			continue
		}

		if _, err := tx.ExecContext(ctx, `RELEASE SAVEPOINT edge`); err != nil {
			return 0, err
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return saved, nil
}

func (r *NarrativeRepository) ListEdges(ctx context.Context) ([]model.BeliefEdge, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, from_narrative_id, to_narrative_id, relationship, strength
		FROM belief_edges
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edges := []model.BeliefEdge{}
	for rows.Next() {
		var e model.BeliefEdge
		if err := rows.Scan(&e.ID, &e.FromNarrativeID, &e.ToNarrativeID, &e.Relationship, &e.Strength); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return edges, nil
}

func (r *NarrativeRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// describe adds the Postgres error code to driver errors so constraint
// failures are recognisable in logs.
func describe(err error) string {
	if pqErr, ok := err.(*pq.Error); ok {
		return string(pqErr.Code) + " " + pqErr.Code.Name() + ": " + pqErr.Message
	}
	return err.Error()
}
