package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"narrativelens/internal/narrative"
	"narrativelens/internal/refresh"
)

type RefreshQueue interface {
	refresh.Pusher
	Len(ctx context.Context) (int64, error)
}

type NarrativeHandler struct {
	catalog *Catalog
	queue   RefreshQueue
	now     func() time.Time
}

func NewNarrativeHandler(catalog *Catalog, queue RefreshQueue) *NarrativeHandler {
	return &NarrativeHandler{catalog: catalog, queue: queue, now: time.Now}
}

func (h *NarrativeHandler) GetNarratives(c *gin.Context) {
	narratives, err := h.catalog.Narratives(c.Request.Context())
	if err != nil {
		slog.Error("error fetching narratives", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	filtered := narrative.Filter(narratives, c.Query("search"), c.Query("tag"))

	now := h.now()
	res := NarrativeListResponse{
		Narratives: make([]NarrativeResponse, 0, len(filtered)),
		Total:      len(filtered),
	}
	for _, n := range filtered {
		res.Narratives = append(res.Narratives, toNarrativeResponse(n, now))
	}

	c.JSON(http.StatusOK, res)
}

func (h *NarrativeHandler) GetNarrative(c *gin.Context) {
	id := c.Param("id")

	n, err := h.catalog.Narrative(c.Request.Context(), id)
	if err != nil {
		slog.Error("error fetching narrative", "error", err, "narrative_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if n == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Narrative not found"})
		return
	}

	c.JSON(http.StatusOK, toNarrativeResponse(*n, h.now()))
}

func (h *NarrativeHandler) GetStats(c *gin.Context) {
	narratives, err := h.catalog.Narratives(c.Request.Context())
	if err != nil {
		slog.Error("error fetching narratives", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	stats := narrative.ComputeStats(narratives)
	c.JSON(http.StatusOK, StatsResponse{
		Count:             stats.Count,
		AverageConfidence: stats.AverageConfidence,
		Rising:            stats.Rising,
		Fading:            stats.Fading,
		HighFragility:     stats.HighFragility,
		Tags:              narrative.Tags(narratives),
	})
}

func (h *NarrativeHandler) GetEdges(c *gin.Context) {
	edges, err := h.catalog.Edges(c.Request.Context())
	if err != nil {
		slog.Error("error fetching edges", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	res := make([]EdgeResponse, 0, len(edges))
	for _, e := range edges {
		res = append(res, toEdgeResponse(e))
	}

	c.JSON(http.StatusOK, res)
}

// Refresh queues a regeneration of the dataset; the refresher picks it up.
func (h *NarrativeHandler) Refresh(c *gin.Context) {
	job, err := refresh.Enqueue(c.Request.Context(), h.queue)
	if err != nil {
		slog.Error("error enqueueing refresh", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Queue unavailable"})
		return
	}

	slog.Info("refresh queued", "job_id", job.ID)
	c.JSON(http.StatusAccepted, RefreshResponse{
		JobID:       job.ID,
		Status:      "queued",
		RequestedAt: job.RequestedAt.Format(time.RFC3339),
	})
}

// GetHealth reports database connectivity and the refresh queue depth.
func (h *NarrativeHandler) GetHealth(c *gin.Context) {
	res := HealthResponse{Status: "healthy", Database: "connected", Queue: "connected"}

	if err := h.catalog.Ping(c.Request.Context()); err != nil {
		slog.Error("health check: database", "error", err)
		res.Status = "unhealthy"
		res.Database = "disconnected"
	}

	depth, err := h.queue.Len(c.Request.Context())
	if err != nil {
		slog.Error("health check: refresh queue", "error", err)
		res.Status = "unhealthy"
		res.Queue = "disconnected"
	}
	res.QueueDepth = depth

	if res.Status != "healthy" {
		c.JSON(http.StatusServiceUnavailable, res)
		return
	}
	c.JSON(http.StatusOK, res)
}
