// Package refresh regenerates the narrative dataset from the language model
// and stores it.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"narrativelens/internal/model"
	"narrativelens/internal/narrative"
	"narrativelens/pkg/llm"
)

const headlineContextLimit = 20

type Store interface {
	Count(ctx context.Context) (int, error)
	Upsert(ctx context.Context, n model.Narrative) error
	ReplaceEdges(ctx context.Context, edges []model.BeliefEdge) (int, error)
}

type HeadlineSource interface {
	Recent(ctx context.Context, limit int) ([]model.Headline, error)
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

type Result struct {
	Narratives int    `json:"narratives"`
	Edges      int    `json:"edges"`
	Model      string `json:"model"`
}

type Service struct {
	mu        sync.Mutex
	store     Store
	generator llm.Generator
	taxonomy  *llm.Taxonomy
	headlines HeadlineSource
	cache     CacheInvalidator
	now       func() time.Time
}

// NewService wires a refresh run. headlines and cache may be nil.
func NewService(store Store, generator llm.Generator, taxonomy *llm.Taxonomy, headlines HeadlineSource, cache CacheInvalidator) *Service {
	return &Service{
		store:     store,
		generator: generator,
		taxonomy:  taxonomy,
		headlines: headlines,
		cache:     cache,
		now:       time.Now,
	}
}

// Run asks the model for a full dataset (create or update depending on
// whether narratives exist), stores every narrative and replaces all edges.
// Runs are serialised; a scheduled tick and a queued job never overlap.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count narratives: %w", err)
	}

	prompt := llm.BuildNarrativePrompt(s.taxonomy, count > 0, s.recentHeadlines(ctx))

	set, err := s.generator.GenerateNarratives(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate narratives: %w", err)
	}

	now := s.now()
	narratives := make([]model.Narrative, 0, len(set.Narratives))
	for _, rec := range set.Narratives {
		n, ok := toNarrative(rec, now)
		if !ok {
			slog.Warn("skipping narrative without id or name", "id", rec.ID, "name", rec.Name)
			continue
		}
		narratives = append(narratives, n)
	}

	known := make(map[string]bool, len(narratives))
	upserted := 0
	for _, n := range narratives {
		known[n.ID] = true
		if err := s.store.Upsert(ctx, n); err != nil {
			slog.Error("error upserting narrative", "narrative_id", n.ID, "error", err)
			continue
		}
		upserted++
	}

	edges := toEdges(set.Edges, known)
	saved, err := s.store.ReplaceEdges(ctx, edges)
	if err != nil {
		return nil, fmt.Errorf("replace edges: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			slog.Warn("error invalidating narrative cache", "error", err)
		}
	}

	slog.Info("narratives refreshed", "narratives", upserted, "edges", saved, "model", set.ModelUsed, "update", count > 0)

	return &Result{Narratives: upserted, Edges: saved, Model: set.ModelUsed}, nil
}

func (s *Service) recentHeadlines(ctx context.Context) []string {
	if s.headlines == nil {
		return nil
	}

	recent, err := s.headlines.Recent(ctx, headlineContextLimit)
	if err != nil {
		slog.Warn("error loading headlines for refresh context", "error", err)
		return nil
	}

	lines := make([]string, 0, len(recent))
	for _, h := range recent {
		line := h.Headline
		if len(h.Symbols) > 0 {
			line += " [" + strings.Join(h.Symbols, ", ") + "]"
		}
		lines = append(lines, line)
	}
	return lines
}

func toNarrative(rec llm.NarrativeRecord, now time.Time) (model.Narrative, bool) {
	id := strings.TrimSpace(rec.ID)
	name := strings.TrimSpace(rec.Name)
	if id == "" || name == "" {
		return model.Narrative{}, false
	}

	trend := strings.ToLower(rec.ConfidenceTrend)
	if !model.ValidTrend(trend) {
		trend = model.TrendFlat
	}

	halfLife := int(narrative.Round(rec.DecayHalfLifeDays))
	if halfLife <= 0 {
		halfLife = model.DefaultHalfLifeDays
	}

	assets := narrative.DecodeAssets(rec.AffectedAssets)
	for i := range assets {
		assets[i].Ticker = strings.ToUpper(strings.TrimSpace(assets[i].Ticker))
		assets[i].ExposureWeight = clamp(assets[i].ExposureWeight, -1, 1)
	}

	assumptions := narrative.DecodeAssumptions(rec.Assumptions)
	for i := range assumptions {
		assumptions[i].FragilityScore = int(clamp(float64(assumptions[i].FragilityScore), 0, 100))
	}

	return model.Narrative{
		ID:      id,
		Name:    name,
		Summary: rec.Summary,
		Confidence: model.Confidence{
			Score:       int(clamp(narrative.Round(rec.ConfidenceScore), 0, 100)),
			Trend:       trend,
			LastUpdated: now,
		},
		Assumptions:           assumptions,
		SupportingEvidence:    clampWeights(narrative.DecodeEvidence(rec.SupportingEvidence, now)),
		ContradictingEvidence: clampWeights(narrative.DecodeEvidence(rec.ContradictingEvidence, now)),
		Decay: model.Decay{
			HalfLifeDays:   halfLife,
			LastReinforced: now,
		},
		Related: model.RelatedNarratives{
			Reinforces: nonNil(rec.RelatedReinforces),
			Conflicts:  nonNil(rec.RelatedConflicts),
			Overlaps:   nonNil(rec.RelatedOverlaps),
		},
		AffectedAssets: assets,
		Tags:           nonNil(rec.Tags),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, true
}

// toEdges drops edges with an unknown endpoint, a self loop or an invalid
// relationship, and keeps the first edge for each id.
func toEdges(records []llm.EdgeRecord, known map[string]bool) []model.BeliefEdge {
	seen := make(map[string]bool, len(records))
	edges := make([]model.BeliefEdge, 0, len(records))

	for _, rec := range records {
		rel := strings.ToLower(rec.Relationship)
		if !model.ValidRelationship(rel) {
			slog.Warn("skipping edge with invalid relationship", "edge_id", rec.ID, "relationship", rec.Relationship)
			continue
		}
		if !known[rec.FromNarrativeID] || !known[rec.ToNarrativeID] || rec.FromNarrativeID == rec.ToNarrativeID {
			slog.Warn("skipping edge with unknown endpoint", "edge_id", rec.ID, "from", rec.FromNarrativeID, "to", rec.ToNarrativeID)
			continue
		}

		id := strings.TrimSpace(rec.ID)
		if id == "" {
			id = rec.FromNarrativeID + "-" + rel + "-" + rec.ToNarrativeID
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		strength := rec.Strength
		if strength == 0 {
			strength = model.DefaultEdgeStrength
		}

		edges = append(edges, model.BeliefEdge{
			ID:              id,
			FromNarrativeID: rec.FromNarrativeID,
			ToNarrativeID:   rec.ToNarrativeID,
			Relationship:    rel,
			Strength:        clamp(strength, 0, 1),
		})
	}
	return edges
}

func clampWeights(evidence []model.Evidence) []model.Evidence {
	for i := range evidence {
		evidence[i].Weight = clamp(evidence[i].Weight, 0, 1)
	}
	return evidence
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
