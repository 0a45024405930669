package narrative

import (
	"fmt"
	"strings"

	"narrativelens/internal/model"
)

// NodeContext describes a narrative and its belief-graph connections for an
// explanation request.
func NodeContext(n model.Narrative, all []model.Narrative, edges []model.BeliefEdge) string {
	var connections []string
	for _, e := range edges {
		if e.FromNarrativeID != n.ID && e.ToNarrativeID != n.ID {
			continue
		}
		otherID := e.ToNarrativeID
		if e.FromNarrativeID != n.ID {
			otherID = e.FromNarrativeID
		}
		otherName := otherID
		if other := FindByID(all, otherID); other != nil {
			otherName = other.Name
		}
		connections = append(connections, fmt.Sprintf("%s \"%s\"", e.Relationship, otherName))
	}

	joined := strings.Join(connections, ", ")
	if joined == "" {
		joined = "None"
	}

	return fmt.Sprintf("Connections: %s. Confidence: %d%%, trend: %s. Tags: %s.",
		joined, n.Confidence.Score, n.Confidence.Trend, strings.Join(n.Tags, ", "))
}

func EdgeContext(from, to model.Narrative, e model.BeliefEdge) string {
	return fmt.Sprintf("\"%s\" (%s) %s \"%s\" (%s). Strength: %d%%.",
		from.Name, from.Summary, e.Relationship, to.Name, to.Summary, Percent(e.Strength))
}

// TickerContext lists every tracked narrative that names ticker as an
// affected asset.
func TickerContext(ticker string, all []model.Narrative) string {
	var connections []string
	for _, n := range all {
		for _, a := range n.AffectedAssets {
			if a.Ticker == ticker {
				connections = append(connections, fmt.Sprintf("%s (%d%% exposure, %d%% confidence)",
					n.Name, Percent(a.ExposureWeight), n.Confidence.Score))
				break
			}
		}
	}

	joined := strings.Join(connections, ", ")
	if joined == "" {
		joined = "None found in tracked narratives"
	}
	return "Known narrative connections: " + joined
}
