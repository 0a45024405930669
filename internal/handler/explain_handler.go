package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"narrativelens/internal/model"
	"narrativelens/internal/narrative"
	"narrativelens/pkg/llm"
	"narrativelens/pkg/sse"
)

var (
	errNarrativeNotFound = errors.New("Narrative not found")
	errEdgeNotFound      = errors.New("Edge not found")
)

type ExplainHandler struct {
	streamer llm.Streamer
	catalog  *Catalog
}

func NewExplainHandler(streamer llm.Streamer, catalog *Catalog) *ExplainHandler {
	return &ExplainHandler{streamer: streamer, catalog: catalog}
}

// Explain streams an AI explanation as chat-completion chunks. A failure
// before the first chunk is reported as a JSON 502; after that the stream
// is closed normally and the error is only logged.
func (h *ExplainHandler) Explain(c *gin.Context) {
	var req llm.ExplainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()

	if err := h.enrich(ctx, &req); err != nil {
		if errors.Is(err, errNarrativeNotFound) || errors.Is(err, errEdgeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		slog.Error("error loading explain context", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w, err := sse.NewWriter(c.Writer, h.streamer.ModelName())
	if err != nil {
		slog.Error("error starting stream", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming unsupported"})
		return
	}

	err = h.streamer.StreamExplanation(ctx, req, w.Delta)
	if err != nil && !w.Started() {
		slog.Error("error from AI gateway", "type", req.Type, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "AI service error"})
		return
	}
	if err != nil {
		slog.Error("explain stream interrupted", "type", req.Type, "stream_id", w.ID(), "error", err)
	}

	if err := w.Done(); err != nil {
		slog.Warn("error closing explain stream", "stream_id", w.ID(), "error", err)
	}
}

// enrich fills names and context from storage when the request references a
// narrative, an edge or a ticker instead of carrying them inline.
func (h *ExplainHandler) enrich(ctx context.Context, req *llm.ExplainRequest) error {
	req.AssetTicker = strings.ToUpper(strings.TrimSpace(req.AssetTicker))

	needsCatalog := req.NarrativeID != "" || req.EdgeID != "" ||
		(req.Type == llm.ExplainPortfolioAnalysis && req.Context == "" && req.AssetTicker != "")
	if !needsCatalog {
		return nil
	}

	narratives, err := h.catalog.Narratives(ctx)
	if err != nil {
		return err
	}

	if req.NarrativeID != "" {
		n := narrative.FindByID(narratives, req.NarrativeID)
		if n == nil {
			return errNarrativeNotFound
		}
		if err := h.enrichNarrative(ctx, req, *n, narratives); err != nil {
			return err
		}
	}

	if req.EdgeID != "" && req.Context == "" {
		edges, err := h.catalog.Edges(ctx)
		if err != nil {
			return err
		}
		var edge *model.BeliefEdge
		for i := range edges {
			if edges[i].ID == req.EdgeID {
				edge = &edges[i]
				break
			}
		}
		if edge == nil {
			return errEdgeNotFound
		}
		from := narrative.FindByID(narratives, edge.FromNarrativeID)
		to := narrative.FindByID(narratives, edge.ToNarrativeID)
		if from == nil || to == nil {
			return errNarrativeNotFound
		}
		req.Context = narrative.EdgeContext(*from, *to, *edge)
	}

	if req.Type == llm.ExplainPortfolioAnalysis && req.Context == "" && req.AssetTicker != "" {
		req.Context = narrative.TickerContext(req.AssetTicker, narratives)
	}

	return nil
}

func (h *ExplainHandler) enrichNarrative(ctx context.Context, req *llm.ExplainRequest, n model.Narrative, all []model.Narrative) error {
	if req.NarrativeName == "" {
		req.NarrativeName = n.Name
	}
	if req.NarrativeSummary == "" {
		req.NarrativeSummary = n.Summary
	}

	switch req.Type {
	case llm.ExplainAssetExposure:
		for _, a := range n.AffectedAssets {
			if a.Ticker != req.AssetTicker {
				continue
			}
			if req.AssetName == "" {
				req.AssetName = a.Name
			}
			if req.ExposureWeight == nil {
				w := a.ExposureWeight
				req.ExposureWeight = &w
			}
			break
		}
	case llm.ExplainGraphNode:
		if req.Context == "" {
			edges, err := h.catalog.Edges(ctx)
			if err != nil {
				return err
			}
			req.Context = narrative.NodeContext(n, all, edges)
		}
	}
	return nil
}
