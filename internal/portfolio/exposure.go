package portfolio

import (
	"math"
	"sort"

	"narrativelens/internal/model"
)

const (
	minExposure        = 0.01
	concentrationDepth = 3

	DirectionBullish = "bullish"
	DirectionBearish = "bearish"
)

type Exposure struct {
	Narrative model.Narrative
	Exposure  float64 // magnitude, used for ranking
	Raw       float64 // signed sum
}

type Report struct {
	Exposures     []Exposure
	Concentration float64
	Top           *Exposure
}

type NarrativeLink struct {
	ID         string
	Name       string
	Confidence int
	Exposure   float64
	Direction  string
}

type HoldingExposure struct {
	model.Holding
	Narratives []NarrativeLink
}

// ComputeExposure sums weight × exposure weight over every holding a
// narrative names, drops anything at or under 1% and ranks the rest by
// magnitude.
func ComputeExposure(narratives []model.Narrative, holdings []model.Holding) Report {
	exposures := make([]Exposure, 0, len(narratives))
	for _, n := range narratives {
		raw := 0.0
		for _, h := range holdings {
			if asset := findAsset(n, h.Ticker); asset != nil {
				raw += h.Weight * asset.ExposureWeight
			}
		}
		e := Exposure{Narrative: n, Exposure: math.Abs(raw), Raw: raw}
		if e.Exposure > minExposure {
			exposures = append(exposures, e)
		}
	}

	sort.SliceStable(exposures, func(i, j int) bool {
		return exposures[i].Exposure > exposures[j].Exposure
	})

	report := Report{Exposures: exposures}
	for i := 0; i < len(exposures) && i < concentrationDepth; i++ {
		report.Concentration += exposures[i].Exposure
	}
	if len(exposures) > 0 {
		report.Top = &exposures[0]
	}
	return report
}

// HoldingNarratives lists, for every holding, the narratives that name its
// ticker as an affected asset.
func HoldingNarratives(narratives []model.Narrative, holdings []model.Holding) []HoldingExposure {
	out := make([]HoldingExposure, 0, len(holdings))
	for _, h := range holdings {
		he := HoldingExposure{Holding: h, Narratives: []NarrativeLink{}}
		for _, n := range narratives {
			asset := findAsset(n, h.Ticker)
			if asset == nil {
				continue
			}
			direction := DirectionBearish
			if asset.ExposureWeight > 0 {
				direction = DirectionBullish
			}
			he.Narratives = append(he.Narratives, NarrativeLink{
				ID:         n.ID,
				Name:       n.Name,
				Confidence: n.Confidence.Score,
				Exposure:   asset.ExposureWeight,
				Direction:  direction,
			})
		}
		out = append(out, he)
	}
	return out
}

func findAsset(n model.Narrative, ticker string) *model.AffectedAsset {
	for i := range n.AffectedAssets {
		if n.AffectedAssets[i].Ticker == ticker {
			return &n.AffectedAssets[i]
		}
	}
	return nil
}
