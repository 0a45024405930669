package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"narrativelens/internal/model"
)

type HeadlineStore interface {
	Feed(ctx context.Context, limit, offset int) ([]model.Headline, error)
	Total(ctx context.Context) (int, error)
}

type HeadlineHandler struct {
	repository HeadlineStore
}

func NewHeadlineHandler(repository HeadlineStore) *HeadlineHandler {
	return &HeadlineHandler{repository: repository}
}

// GetHeadlines pages through the headlines the fetcher stored as refresh
// context.
func (h *HeadlineHandler) GetHeadlines(c *gin.Context) {
	limit := getQueryLimit(c)
	offset := getQueryOffset(c)
	ctx := c.Request.Context()

	total, err := h.repository.Total(ctx)
	if err != nil {
		slog.Error("error fetching headline total", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	headlines, err := h.repository.Feed(ctx, limit, offset)
	if err != nil {
		slog.Error("error fetching headlines", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	res := make([]HeadlineResponse, 0, len(headlines))
	for _, hl := range headlines {
		res = append(res, HeadlineResponse{
			ID:          hl.ID,
			Headline:    hl.Headline,
			Detail:      hl.Detail,
			URL:         hl.URL,
			Source:      hl.Source,
			Publisher:   hl.Publisher,
			PublishedAt: hl.PublishedAt.Format(time.RFC3339),
			Symbols:     nonNilSlice(hl.Symbols),
		})
	}

	c.JSON(http.StatusOK, HeadlineFeedResponse{
		Headlines: res,
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	})
}

func getQueryInt(name string, defaultValue int, c *gin.Context) int {
	raw := c.Query(name)

	if raw == "" {
		return defaultValue
	}

	parsedValue, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("invalid query parameter, using default", "param", name, "value", raw, "error", err)
		return defaultValue
	}

	return parsedValue
}

func getQueryLimit(c *gin.Context) int {
	const (
		defaultLimit = 20
		maxLimit     = 100
	)

	limit := getQueryInt("limit", defaultLimit, c)
	if limit < 1 {
		slog.Warn("invalid query parameter, using default", "param", "limit", "value", limit, "default", defaultLimit)
		return defaultLimit
	}

	if limit > maxLimit {
		slog.Warn("query parameter exceeds max, clamping", "param", "limit", "value", limit, "max", maxLimit)
		return maxLimit
	}

	return limit
}

func getQueryOffset(c *gin.Context) int {
	offset := getQueryInt("offset", 0, c)
	if offset < 0 {
		slog.Warn("invalid query parameter, using default", "param", "offset", "value", offset, "default", 0)
		return 0
	}
	return offset
}
