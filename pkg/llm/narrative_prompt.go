package llm

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var defaultTaxonomy []byte

// Taxonomy fixes which themes the model must cover on every refresh.
type Taxonomy struct {
	NarrativeCount      int      `yaml:"narrative_count"`
	MinEdges            int      `yaml:"min_edges"`
	TickersPerNarrative Range    `yaml:"tickers_per_narrative"`
	Themes              []string `yaml:"themes"`
}

type Range struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// LoadTaxonomy reads the taxonomy at path, or the built-in one when path is
// empty.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	data := defaultTaxonomy
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read taxonomy: %w", err)
		}
	}

	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	if len(t.Themes) == 0 {
		return nil, fmt.Errorf("taxonomy has no themes")
	}
	if t.NarrativeCount <= 0 {
		t.NarrativeCount = len(t.Themes)
	}
	if t.TickersPerNarrative.Min <= 0 {
		t.TickersPerNarrative.Min = 3
	}
	if t.TickersPerNarrative.Max < t.TickersPerNarrative.Min {
		t.TickersPerNarrative.Max = t.TickersPerNarrative.Min
	}
	return &t, nil
}

const narrativeFormat = `Return a JSON object with two keys:
- "narratives": array of narrative objects
- "edges": array of belief edge objects

Each narrative must have: id (kebab-case slug), name, summary (2-3 sentences), confidence_score (0-100), confidence_trend ("up"/"down"/"flat"), assumptions (array of {id, text, fragilityScore 0-100}), supporting_evidence (array of {id, source, description, weight 0-1}), contradicting_evidence (same format), decay_half_life_days, related_reinforces (array of narrative ids), related_conflicts, related_overlaps, affected_assets (array of {ticker, name, exposureWeight from -1 to 1}), tags (array of strings).

Each edge must have: id, from_narrative_id, to_narrative_id, relationship ("reinforces"/"conflicts"/"depends_on"), strength (0-1).`

// BuildNarrativePrompt asks for a fresh dataset when the store is empty and
// for an update of the existing one otherwise. Recent headlines, if any, are
// appended as evidence context.
func BuildNarrativePrompt(t *Taxonomy, existing bool, headlines []string) string {
	var sb strings.Builder

	if existing {
		sb.WriteString("You are a market narrative analyst. Update the following existing narratives with the latest market conditions as of today. For each narrative, provide updated confidence scores, trends, and any new evidence.\n\n")
	} else {
		sb.WriteString("You are a market narrative analyst. Create an initial set of market narratives reflecting current conditions.\n\n")
	}

	sb.WriteString(narrativeFormat)
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Generate exactly %d narratives covering these themes: %s.\n\n",
		t.NarrativeCount, strings.Join(t.Themes, ", "))
	fmt.Fprintf(&sb, "Make confidence scores and evidence reflect current real-world conditions. Include at least %d edges connecting related narratives. Each narrative should have %d-%d affected real tickers with sensible exposure weights.\n\n",
		t.MinEdges, t.TickersPerNarrative.Min, t.TickersPerNarrative.Max)

	if len(headlines) > 0 {
		sb.WriteString("Recent market headlines (use them as evidence where relevant):\n")
		for _, h := range headlines {
			sb.WriteString("- ")
			sb.WriteString(h)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Return ONLY valid JSON, no markdown.")
	return sb.String()
}
