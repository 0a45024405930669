package narrative

import (
	"math"
	"strings"
	"time"

	"narrativelens/internal/model"
)

const highFragilityThreshold = 50

type Stats struct {
	Count             int
	AverageConfidence int
	Rising            int
	Fading            int
	HighFragility     int
}

// Filter keeps narratives whose name or summary contains search
// (case-insensitive) and, unless tag is empty or "all", carry tag.
func Filter(narratives []model.Narrative, search, tag string) []model.Narrative {
	q := strings.ToLower(search)
	filtered := make([]model.Narrative, 0, len(narratives))
	for _, n := range narratives {
		matchesSearch := strings.Contains(strings.ToLower(n.Name), q) ||
			strings.Contains(strings.ToLower(n.Summary), q)
		if matchesSearch && hasTag(n, tag) {
			filtered = append(filtered, n)
		}
	}
	return filtered
}

func hasTag(n model.Narrative, tag string) bool {
	if tag == "" || tag == "all" {
		return true
	}
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Tags returns the distinct tags across narratives in first-seen order.
func Tags(narratives []model.Narrative) []string {
	seen := make(map[string]bool)
	tags := []string{}
	for _, n := range narratives {
		for _, t := range n.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	return tags
}

func ComputeStats(narratives []model.Narrative) Stats {
	s := Stats{Count: len(narratives)}
	if len(narratives) == 0 {
		return s
	}

	total := 0
	for _, n := range narratives {
		total += n.Confidence.Score
		switch n.Confidence.Trend {
		case model.TrendUp:
			s.Rising++
		case model.TrendDown:
			s.Fading++
		}
		for _, a := range n.Assumptions {
			if a.FragilityScore > highFragilityThreshold {
				s.HighFragility++
				break
			}
		}
	}
	s.AverageConfidence = int(Round(float64(total) / float64(len(narratives))))
	return s
}

// DecayFactor halves a narrative's weight every half-life since it was last
// reinforced.
func DecayFactor(n model.Narrative, now time.Time) float64 {
	if n.Decay.HalfLifeDays <= 0 || n.Decay.LastReinforced.IsZero() {
		return 1
	}
	days := now.Sub(n.Decay.LastReinforced).Hours() / 24
	if days <= 0 {
		return 1
	}
	return math.Pow(0.5, days/float64(n.Decay.HalfLifeDays))
}

func DecayedConfidence(n model.Narrative, now time.Time) float64 {
	return float64(n.Confidence.Score) * DecayFactor(n, now)
}

func FindByID(narratives []model.Narrative, id string) *model.Narrative {
	for i := range narratives {
		if narratives[i].ID == id {
			return &narratives[i]
		}
	}
	return nil
}

// Round rounds half up, which is how the dashboard has always displayed
// percentages (-12.5 shows as -12).
func Round(x float64) float64 {
	return math.Floor(x + 0.5)
}

// Percent renders a fraction as a whole percentage.
func Percent(fraction float64) int {
	return int(Round(fraction * 100))
}
