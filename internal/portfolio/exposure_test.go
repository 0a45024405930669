package portfolio

import (
	"testing"

	"narrativelens/internal/model"

	"github.com/go-playground/assert/v2"
)

func exposureFixtures() ([]model.Narrative, []model.Holding) {
	narratives := []model.Narrative{
		{
			ID: "ai-capex", Name: "AI Capex Supercycle",
			Confidence: model.Confidence{Score: 78},
			AffectedAssets: []model.AffectedAsset{
				{Ticker: "NVDA", ExposureWeight: 1},
				{Ticker: "MSFT", ExposureWeight: 0.5},
			},
		},
		{
			ID: "tech-bubble", Name: "Tech Valuation Bubble",
			Confidence: model.Confidence{Score: 45},
			AffectedAssets: []model.AffectedAsset{
				{Ticker: "NVDA", ExposureWeight: -1},
			},
		},
		{
			ID: "soft-landing", Name: "US Soft Landing",
			Confidence: model.Confidence{Score: 60},
			AffectedAssets: []model.AffectedAsset{
				{Ticker: "TLT", ExposureWeight: 0.5},
			},
		},
		{
			ID: "india", Name: "India Growth Story",
			Confidence: model.Confidence{Score: 70},
			AffectedAssets: []model.AffectedAsset{
				{Ticker: "INDA", ExposureWeight: 1},
			},
		},
		{
			ID: "tiny", Name: "Barely Related",
			Confidence: model.Confidence{Score: 30},
			AffectedAssets: []model.AffectedAsset{
				{Ticker: "MSFT", ExposureWeight: 0.03125},
			},
		},
	}
	holdings := []model.Holding{
		{Ticker: "NVDA", Name: "NVIDIA", Weight: 0.5},
		{Ticker: "MSFT", Name: "Microsoft", Weight: 0.25},
		{Ticker: "TLT", Name: "Treasuries", Weight: 0.125},
	}
	return narratives, holdings
}

func TestComputeExposure(t *testing.T) {
	narratives, holdings := exposureFixtures()

	report := ComputeExposure(narratives, holdings)

	ids := []string{}
	for _, e := range report.Exposures {
		ids = append(ids, e.Narrative.ID)
	}
	// india has no matching holdings, tiny sums to under 1%
	assert.Equal(t, []string{"ai-capex", "tech-bubble", "soft-landing"}, ids)

	assert.Equal(t, 0.625, report.Exposures[0].Raw)
	assert.Equal(t, 0.625, report.Exposures[0].Exposure)
	assert.Equal(t, -0.5, report.Exposures[1].Raw)
	assert.Equal(t, 0.5, report.Exposures[1].Exposure)
	assert.Equal(t, 0.0625, report.Exposures[2].Exposure)

	assert.Equal(t, 1.1875, report.Concentration)
	assert.Equal(t, "ai-capex", report.Top.Narrative.ID)
}

func TestComputeExposureEmpty(t *testing.T) {
	narratives, _ := exposureFixtures()

	report := ComputeExposure(narratives, nil)

	assert.Equal(t, 0, len(report.Exposures))
	assert.Equal(t, 0.0, report.Concentration)
	assert.Equal(t, true, report.Top == nil)
}

func TestHoldingNarratives(t *testing.T) {
	narratives, holdings := exposureFixtures()

	got := HoldingNarratives(narratives, holdings)

	assert.Equal(t, 3, len(got))

	nvda := got[0]
	assert.Equal(t, "NVDA", nvda.Ticker)
	assert.Equal(t, 2, len(nvda.Narratives))
	assert.Equal(t, NarrativeLink{ID: "ai-capex", Name: "AI Capex Supercycle", Confidence: 78, Exposure: 1, Direction: DirectionBullish}, nvda.Narratives[0])
	assert.Equal(t, DirectionBearish, nvda.Narratives[1].Direction)

	msft := got[1]
	assert.Equal(t, 2, len(msft.Narratives))
	assert.Equal(t, "tiny", msft.Narratives[1].ID)

	tlt := got[2]
	assert.Equal(t, 1, len(tlt.Narratives))
}
