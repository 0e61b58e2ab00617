package http

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	scrapeService *usecase.ScrapeService
	records       domain.RecordReader
}

// NewHandler creates a new HTTP handler
func NewHandler(scrapeService *usecase.ScrapeService, records domain.RecordReader) *Handler {
	return &Handler{
		scrapeService: scrapeService,
		records:       records,
	}
}

// scrapeResponse is a scrape result plus the persistence error, if recording failed
type scrapeResponse struct {
	*domain.ScrapeResult
	StoreError string `json:"storeError,omitempty"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricelens-backend",
		"version": "1.0.0",
	})
}

// ScrapePrices handles price scrape requests
func (h *Handler) ScrapePrices(c *gin.Context) {
	if h.scrapeService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Price scraping not configured",
		})
		return
	}

	var req domain.ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	result, err := h.scrapeService.Scrape(c.Request.Context(), &req)
	if err != nil {
		// Recording failed but the match is still worth returning
		if result != nil && errors.Is(err, domain.ErrStoreFailure) {
			c.JSON(http.StatusOK, scrapeResponse{ScrapeResult: result, StoreError: err.Error()})
			return
		}

		status := statusForError(err)
		if status == http.StatusInternalServerError {
			log.Printf("[HTTP] Scrape %q failed: %v", req.Ingredient, err)
		}
		c.JSON(status, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, scrapeResponse{ScrapeResult: result})
}

// GetPrices returns the stored record for an ingredient
func (h *Handler) GetPrices(c *gin.Context) {
	if h.records == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Price store not configured",
		})
		return
	}

	key := domain.IngredientKey(c.Param("ingredient"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": domain.ErrInvalidRequest.Error(),
		})
		return
	}

	record, err := h.records.GetRecord(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
			return
		}
		log.Printf("[HTTP] GetRecord %q failed: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to read price record",
		})
		return
	}

	c.JSON(http.StatusOK, record)
}

// statusForError maps scrape errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrRateLimited), errors.Is(err, domain.ErrCatalogAPIFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
