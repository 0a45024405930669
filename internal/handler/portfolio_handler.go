package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"narrativelens/internal/model"
	"narrativelens/internal/portfolio"
)

const maxUploadBytes = 5 << 20

type PortfolioHandler struct {
	catalog *Catalog
}

func NewPortfolioHandler(catalog *Catalog) *PortfolioHandler {
	return &PortfolioHandler{catalog: catalog}
}

// Import parses an uploaded holdings file and cross-references it against
// the tracked narratives.
func (h *PortfolioHandler) Import(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	if file.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}

	f, err := file.Open()
	if err != nil {
		slog.Error("error opening upload", "filename", file.Filename, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": portfolio.ErrUnreadable.Error()})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		slog.Error("error reading upload", "filename", file.Filename, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": portfolio.ErrUnreadable.Error()})
		return
	}

	p, err := portfolio.Parse(file.Filename, data)
	if err != nil {
		if !isParseError(err) {
			slog.Error("unexpected portfolio parse error", "filename", file.Filename, "error", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": userMessage(err)})
		return
	}

	narratives, err := h.catalog.Narratives(c.Request.Context())
	if err != nil {
		slog.Error("error fetching narratives", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("portfolio imported", "name", p.Name, "holdings", len(p.Holdings))

	c.JSON(http.StatusOK, ImportResponse{
		Name:              p.Name,
		Holdings:          toHoldingResponses(p.Holdings),
		Exposure:          toReportResponse(portfolio.ComputeExposure(narratives, p.Holdings)),
		HoldingNarratives: toHoldingNarrativesResponse(portfolio.HoldingNarratives(narratives, p.Holdings)),
	})
}

// Exposure ranks narrative exposure for holdings posted as JSON.
func (h *PortfolioHandler) Exposure(c *gin.Context) {
	var req ExposureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	holdings := make([]model.Holding, 0, len(req.Holdings))
	for _, r := range req.Holdings {
		ticker := strings.ToUpper(strings.TrimSpace(r.Ticker))
		name := strings.TrimSpace(r.Name)
		if name == "" {
			name = ticker
		}
		weight := r.Weight
		if weight > 1 {
			weight /= 100
		}
		holdings = append(holdings, model.Holding{Ticker: ticker, Name: name, Weight: weight})
	}

	narratives, err := h.catalog.Narratives(c.Request.Context())
	if err != nil {
		slog.Error("error fetching narratives", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"exposure":          toReportResponse(portfolio.ComputeExposure(narratives, holdings)),
		"holdingNarratives": toHoldingNarrativesResponse(portfolio.HoldingNarratives(narratives, holdings)),
	})
}

func isParseError(err error) bool {
	return errors.Is(err, portfolio.ErrNoHoldings) ||
		errors.Is(err, portfolio.ErrUnrecognized) ||
		errors.Is(err, portfolio.ErrUnreadable) ||
		errors.Is(err, portfolio.ErrUnsupported)
}

func userMessage(err error) string {
	for _, known := range []error{portfolio.ErrNoHoldings, portfolio.ErrUnrecognized, portfolio.ErrUnsupported} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return portfolio.ErrUnreadable.Error()
}
