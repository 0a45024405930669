package llm

import (
	"errors"
	"fmt"
	"strings"
)

const (
	ExplainAssetExposure     = "asset_exposure"
	ExplainEvidence          = "evidence"
	ExplainPortfolioAnalysis = "portfolio_analysis"
	ExplainGraphNode         = "belief_graph_node"
	ExplainGraphEdge         = "belief_graph_edge"
)

var ErrInvalidExplainRequest = errors.New("invalid explain request")

const explainSystemPrompt = `You are a market narrative analyst explaining belief-driven market themes to an investor.

Rules:
- Be concise: 120-220 words
- Use short markdown paragraphs or bullets
- Ground every claim in the narrative, asset or evidence you are given
- Describe mechanisms (why prices would move), not recommendations
- Hedge forecasts (may, could, might); never promise outcomes`

// ExplainRequest is the body clients post to the explain endpoint. Field
// names match what the dashboard sends. NarrativeID, EdgeID and the ticker
// let the server fill names and context from storage.
type ExplainRequest struct {
	Type                string   `json:"type"`
	NarrativeID         string   `json:"narrativeId,omitempty"`
	EdgeID              string   `json:"edgeId,omitempty"`
	NarrativeName       string   `json:"narrativeName,omitempty"`
	NarrativeSummary    string   `json:"narrativeSummary,omitempty"`
	AssetTicker         string   `json:"assetTicker,omitempty"`
	AssetName           string   `json:"assetName,omitempty"`
	ExposureWeight      *float64 `json:"exposureWeight,omitempty"`
	EvidenceDescription string   `json:"evidenceDescription,omitempty"`
	EvidenceSource      string   `json:"evidenceSource,omitempty"`
	Context             string   `json:"context,omitempty"`
}

func (r ExplainRequest) Validate() error {
	missing := func(field string) error {
		return fmt.Errorf("%w: %s requires %s", ErrInvalidExplainRequest, r.Type, field)
	}

	switch r.Type {
	case ExplainAssetExposure:
		if r.NarrativeName == "" {
			return missing("narrativeName")
		}
		if r.AssetTicker == "" {
			return missing("assetTicker")
		}
	case ExplainEvidence:
		if r.NarrativeName == "" {
			return missing("narrativeName")
		}
		if r.EvidenceDescription == "" {
			return missing("evidenceDescription")
		}
	case ExplainPortfolioAnalysis:
		if r.AssetTicker == "" {
			return missing("assetTicker")
		}
	case ExplainGraphNode:
		if r.NarrativeName == "" {
			return missing("narrativeName")
		}
	case ExplainGraphEdge:
		if r.Context == "" {
			return missing("context")
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidExplainRequest, r.Type)
	}
	return nil
}

// BuildExplainPrompt renders the user turn for an explanation.
func BuildExplainPrompt(r ExplainRequest) string {
	var sb strings.Builder

	switch r.Type {
	case ExplainAssetExposure:
		fmt.Fprintf(&sb, "Explain why %s (%s) is exposed to the %q narrative", r.AssetTicker, r.AssetName, r.NarrativeName)
		if r.ExposureWeight != nil {
			fmt.Fprintf(&sb, " with an exposure weight of %+.2f (-1 fully negative, +1 fully positive)", *r.ExposureWeight)
		}
		sb.WriteString(". Cover the transmission channel and what would break the link.\n")
	case ExplainEvidence:
		fmt.Fprintf(&sb, "Explain how this evidence bears on the %q narrative and how much weight it deserves.\n", r.NarrativeName)
		fmt.Fprintf(&sb, "Evidence: %s\n", r.EvidenceDescription)
		if r.EvidenceSource != "" {
			fmt.Fprintf(&sb, "Source: %s\n", r.EvidenceSource)
		}
	case ExplainPortfolioAnalysis:
		fmt.Fprintf(&sb, "Analyse the position %s", r.AssetTicker)
		if r.AssetName != "" {
			fmt.Fprintf(&sb, " (%s)", r.AssetName)
		}
		sb.WriteString(" through the lens of the market narratives it depends on. Say which beliefs the position is implicitly betting on and where they conflict.\n")
	case ExplainGraphNode:
		fmt.Fprintf(&sb, "Explain the %q narrative and its role in the wider belief graph: what it reinforces, what it conflicts with and what it depends on.\n", r.NarrativeName)
	case ExplainGraphEdge:
		sb.WriteString("Explain the relationship between these two market narratives and why one affects the other.\n")
	}

	if r.NarrativeSummary != "" {
		fmt.Fprintf(&sb, "Narrative summary: %s\n", r.NarrativeSummary)
	}
	if r.Context != "" {
		fmt.Fprintf(&sb, "Context: %s\n", r.Context)
	}
	return sb.String()
}
