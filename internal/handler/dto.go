package handler

import (
	"time"

	"narrativelens/internal/model"
	"narrativelens/internal/narrative"
	"narrativelens/internal/portfolio"
)

type ConfidenceResponse struct {
	Score       int    `json:"score"`
	Trend       string `json:"trend"`
	LastUpdated string `json:"lastUpdated"`
}

type DecayResponse struct {
	HalfLifeDays   int    `json:"halfLifeDays"`
	LastReinforced string `json:"lastReinforced"`
}

type RelatedResponse struct {
	Reinforces []string `json:"reinforces"`
	Conflicts  []string `json:"conflicts"`
	Overlaps   []string `json:"overlaps"`
}

type NarrativeResponse struct {
	ID                    string                `json:"id"`
	Name                  string                `json:"name"`
	Summary               string                `json:"summary"`
	Confidence            ConfidenceResponse    `json:"confidence"`
	DecayedConfidence     float64               `json:"decayedConfidence"`
	Assumptions           []model.Assumption    `json:"assumptions"`
	SupportingEvidence    []model.Evidence      `json:"supportingEvidence"`
	ContradictingEvidence []model.Evidence      `json:"contradictingEvidence"`
	Decay                 DecayResponse         `json:"decay"`
	RelatedNarratives     RelatedResponse       `json:"relatedNarratives"`
	AffectedAssets        []model.AffectedAsset `json:"affectedAssets"`
	History               []model.HistoryPoint  `json:"history"`
	Tags                  []string              `json:"tags"`
	CreatedAt             string                `json:"createdAt"`
	UpdatedAt             string                `json:"updatedAt"`
}

type NarrativeListResponse struct {
	Narratives []NarrativeResponse `json:"narratives"`
	Total      int                 `json:"total"`
}

type EdgeResponse struct {
	ID           string  `json:"id"`
	From         string  `json:"from"`
	To           string  `json:"to"`
	Relationship string  `json:"relationship"`
	Strength     float64 `json:"strength"`
}

type StatsResponse struct {
	Count             int      `json:"count"`
	AverageConfidence int      `json:"averageConfidence"`
	Rising            int      `json:"rising"`
	Fading            int      `json:"fading"`
	HighFragility     int      `json:"highFragility"`
	Tags              []string `json:"tags"`
}

type RefreshResponse struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	RequestedAt string `json:"requested_at"`
}

type HealthResponse struct {
	Status     string `json:"status"`
	Database   string `json:"database"`
	Queue      string `json:"queue"`
	QueueDepth int64  `json:"queue_depth"`
}

type HoldingRequest struct {
	Ticker string  `json:"ticker" binding:"required"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight" binding:"required,gt=0"`
}

type ExposureRequest struct {
	Holdings []HoldingRequest `json:"holdings" binding:"required,min=1,dive"`
}

type HoldingResponse struct {
	Ticker string  `json:"ticker"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

type ExposureResponse struct {
	NarrativeID   string  `json:"narrativeId"`
	NarrativeName string  `json:"narrativeName"`
	Confidence    int     `json:"confidence"`
	Exposure      float64 `json:"exposure"`
	Raw           float64 `json:"raw"`
}

type ExposureReportResponse struct {
	Exposures     []ExposureResponse `json:"exposures"`
	Concentration float64            `json:"concentration"`
	Top           *ExposureResponse  `json:"top"`
}

type NarrativeLinkResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Confidence int     `json:"confidence"`
	Exposure   float64 `json:"exposureWeight"`
	Direction  string  `json:"direction"`
}

type HoldingNarrativesResponse struct {
	HoldingResponse
	Narratives []NarrativeLinkResponse `json:"narratives"`
}

type ImportResponse struct {
	Name              string                      `json:"name"`
	Holdings          []HoldingResponse           `json:"holdings"`
	Exposure          ExposureReportResponse      `json:"exposure"`
	HoldingNarratives []HoldingNarrativesResponse `json:"holdingNarratives"`
}

type HeadlineResponse struct {
	ID          int64    `json:"id"`
	Headline    string   `json:"headline"`
	Detail      string   `json:"detail"`
	URL         string   `json:"url"`
	Source      string   `json:"source"`
	Publisher   string   `json:"publisher"`
	PublishedAt string   `json:"published_at"`
	Symbols     []string `json:"symbols"`
}

type HeadlineFeedResponse struct {
	Headlines []HeadlineResponse `json:"headlines"`
	Total     int                `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

func toNarrativeResponse(n model.Narrative, now time.Time) NarrativeResponse {
	return NarrativeResponse{
		ID:      n.ID,
		Name:    n.Name,
		Summary: n.Summary,
		Confidence: ConfidenceResponse{
			Score:       n.Confidence.Score,
			Trend:       n.Confidence.Trend,
			LastUpdated: n.Confidence.LastUpdated.Format(time.RFC3339),
		},
		DecayedConfidence:     narrative.Round(narrative.DecayedConfidence(n, now)*10) / 10,
		Assumptions:           nonNilSlice(n.Assumptions),
		SupportingEvidence:    nonNilSlice(n.SupportingEvidence),
		ContradictingEvidence: nonNilSlice(n.ContradictingEvidence),
		Decay: DecayResponse{
			HalfLifeDays:   n.Decay.HalfLifeDays,
			LastReinforced: n.Decay.LastReinforced.Format(time.RFC3339),
		},
		RelatedNarratives: RelatedResponse{
			Reinforces: nonNilSlice(n.Related.Reinforces),
			Conflicts:  nonNilSlice(n.Related.Conflicts),
			Overlaps:   nonNilSlice(n.Related.Overlaps),
		},
		AffectedAssets: nonNilSlice(n.AffectedAssets),
		History:        nonNilSlice(n.History),
		Tags:           nonNilSlice(n.Tags),
		CreatedAt:      n.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      n.UpdatedAt.Format(time.RFC3339),
	}
}

func toEdgeResponse(e model.BeliefEdge) EdgeResponse {
	return EdgeResponse{
		ID:           e.ID,
		From:         e.FromNarrativeID,
		To:           e.ToNarrativeID,
		Relationship: e.Relationship,
		Strength:     e.Strength,
	}
}

func toHoldingResponses(holdings []model.Holding) []HoldingResponse {
	res := make([]HoldingResponse, 0, len(holdings))
	for _, h := range holdings {
		res = append(res, HoldingResponse{Ticker: h.Ticker, Name: h.Name, Weight: h.Weight})
	}
	return res
}

func toExposureResponse(e portfolio.Exposure) ExposureResponse {
	return ExposureResponse{
		NarrativeID:   e.Narrative.ID,
		NarrativeName: e.Narrative.Name,
		Confidence:    e.Narrative.Confidence.Score,
		Exposure:      e.Exposure,
		Raw:           e.Raw,
	}
}

func toReportResponse(r portfolio.Report) ExposureReportResponse {
	res := ExposureReportResponse{
		Exposures:     make([]ExposureResponse, 0, len(r.Exposures)),
		Concentration: r.Concentration,
	}
	for _, e := range r.Exposures {
		res.Exposures = append(res.Exposures, toExposureResponse(e))
	}
	if r.Top != nil {
		top := toExposureResponse(*r.Top)
		res.Top = &top
	}
	return res
}

func toHoldingNarrativesResponse(items []portfolio.HoldingExposure) []HoldingNarrativesResponse {
	res := make([]HoldingNarrativesResponse, 0, len(items))
	for _, item := range items {
		links := make([]NarrativeLinkResponse, 0, len(item.Narratives))
		for _, l := range item.Narratives {
			links = append(links, NarrativeLinkResponse{
				ID:         l.ID,
				Name:       l.Name,
				Confidence: l.Confidence,
				Exposure:   l.Exposure,
				Direction:  l.Direction,
			})
		}
		res = append(res, HoldingNarrativesResponse{
			HoldingResponse: HoldingResponse{Ticker: item.Ticker, Name: item.Name, Weight: item.Weight},
			Narratives:      links,
		})
	}
	return res
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
