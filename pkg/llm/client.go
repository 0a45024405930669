package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// NarrativeRecord is one narrative as the model returns it. The nested
// collections stay raw so the storage layer can normalise key spellings and
// fill defaults.
type NarrativeRecord struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	Summary               string          `json:"summary"`
	ConfidenceScore       float64         `json:"confidence_score"`
	ConfidenceTrend       string          `json:"confidence_trend"`
	Assumptions           json.RawMessage `json:"assumptions"`
	SupportingEvidence    json.RawMessage `json:"supporting_evidence"`
	ContradictingEvidence json.RawMessage `json:"contradicting_evidence"`
	DecayHalfLifeDays     float64         `json:"decay_half_life_days"`
	RelatedReinforces     []string        `json:"related_reinforces"`
	RelatedConflicts      []string        `json:"related_conflicts"`
	RelatedOverlaps       []string        `json:"related_overlaps"`
	AffectedAssets        json.RawMessage `json:"affected_assets"`
	Tags                  []string        `json:"tags"`
}

type EdgeRecord struct {
	ID              string  `json:"id"`
	FromNarrativeID string  `json:"from_narrative_id"`
	ToNarrativeID   string  `json:"to_narrative_id"`
	Relationship    string  `json:"relationship"`
	Strength        float64 `json:"strength"`
}

type NarrativeSet struct {
	Narratives []NarrativeRecord `json:"narratives"`
	Edges      []EdgeRecord      `json:"edges"`
	ModelUsed  string            `json:"-"`
}

type Generator interface {
	GenerateNarratives(ctx context.Context, prompt string) (*NarrativeSet, error)
}

// Streamer produces an explanation incrementally. onDelta is called for
// every text fragment; returning an error from it aborts the stream.
type Streamer interface {
	StreamExplanation(ctx context.Context, req ExplainRequest, onDelta func(string) error) error
	ModelName() string
}

// Client is implemented by every provider.
type Client interface {
	Generator
	Streamer
}

type Options struct {
	OpenAIKey      string
	OpenAIBaseURL  string
	OpenAIModel    string
	AnthropicKey   string
	AnthropicModel string
}

// New returns the client for provider ("openai" or "anthropic").
func New(provider string, opts Options) (Client, error) {
	switch provider {
	case "", "openai":
		if opts.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return NewOpenAIClient(opts.OpenAIKey, opts.OpenAIBaseURL, opts.OpenAIModel), nil
	case "anthropic":
		if opts.AnthropicKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}
		return NewAnthropicClient(opts.AnthropicKey, opts.AnthropicModel), nil
	}
	return nil, fmt.Errorf("unknown LLM provider %q", provider)
}
