package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/precioscl/backend/internal/domain"
	"github.com/precioscl/backend/internal/infrastructure/ingest"
	"github.com/precioscl/backend/internal/usecase"
)

// maxPayloadBytes bounds request bodies on the catalog endpoints
const maxPayloadBytes = 32 << 20

// Handler holds dependencies for HTTP handlers
type Handler struct {
	catalog *usecase.CatalogService
}

// NewHandler creates a new HTTP handler. A nil service makes the catalog
// endpoints answer 503.
func NewHandler(catalog *usecase.CatalogService) *Handler {
	return &Handler{catalog: catalog}
}

// MatchRequest is the body of POST /catalog/match
type MatchRequest struct {
	Products           []domain.NormalizedProduct `json:"products" binding:"required"`
	MinTokenSimilarity *int                       `json:"min_token_similarity"`
	MinAttrScore       *float64                   `json:"min_attr_score"`
}

// MatchResponse is the body returned by POST /catalog/match
type MatchResponse struct {
	Pairs         []domain.MatchPair `json:"pairs"`
	Buckets       int                `json:"buckets"`
	PairsCompared int                `json:"pairs_compared"`
	Excluded      int                `json:"excluded"`
}

// RunRequest is the optional body of POST /catalog/runs
type RunRequest struct {
	Patterns []string `json:"patterns"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "precioscl-backend",
		"version": "1.0.0",
	})
}

// Normalize accepts any supported payload shape and returns normalized products
func (h *Handler) Normalize(c *gin.Context) {
	if !h.available(c) {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return
	}

	records, err := ingest.ExtractRecords(body, "request")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.catalog.NormalizeRecords(c.Request.Context(), records)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Match links normalized products across retailers
func (h *Handler) Match(c *gin.Context) {
	if !h.available(c) {
		return
	}

	var request MatchRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	result, err := h.catalog.MatchProducts(c.Request.Context(), request.Products, request.MinTokenSimilarity, request.MinAttrScore)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, MatchResponse{
		Pairs:         result.Pairs,
		Buckets:       result.Buckets,
		PairsCompared: result.PairsCompared,
		Excluded:      result.Excluded,
	})
}

// StartRun runs a batch over the configured ingest directory
func (h *Handler) StartRun(c *gin.Context) {
	if !h.available(c) {
		return
	}

	var request RunRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
			return
		}
	}

	report, err := h.catalog.Run(c.Request.Context(), usecase.RunRequest{Patterns: request.Patterns})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// GetRun returns a cached run report
func (h *Handler) GetRun(c *gin.Context) {
	if !h.available(c) {
		return
	}

	report, err := h.catalog.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) available(c *gin.Context) bool {
	if h.catalog == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "catalog service not configured"})
		return false
	}
	return true
}

// writeError maps domain errors to status codes
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrUnsupportedShape):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		status = 499 // client closed request
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
