package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chronicle-kb/chronicle"
	"github.com/chronicle-kb/chronicle/pkg/batch"
	"github.com/chronicle-kb/chronicle/pkg/server/dto"
	"github.com/chronicle-kb/chronicle/pkg/temporal"
	"github.com/chronicle-kb/chronicle/pkg/types"
)

// QueryHandler handles ingestion, search and temporal query requests.
type QueryHandler struct {
	kb *chronicle.Client
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(kb *chronicle.Client) *QueryHandler {
	return &QueryHandler{kb: kb}
}

// IngestText handles POST /ingest/text.
func (h *QueryHandler) IngestText(c *gin.Context) {
	var req dto.IngestTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	validAt := time.Now().UTC()
	if req.ValidAt != nil {
		validAt = *req.ValidAt
	}

	result, err := h.kb.IngestText(c.Request.Context(), req.Text, validAt, req.SourceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// IngestBatch handles POST /ingest/batch.
func (h *QueryHandler) IngestBatch(c *gin.Context) {
	var req dto.IngestBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	items := make([]batch.Item, 0, len(req.Items))
	for _, in := range req.Items {
		item := batch.Item{ID: in.ID, Text: in.Text, SourceID: in.SourceID}
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if in.ValidAt != nil {
			item.ValidAt = *in.ValidAt
		}
		items = append(items, item)
	}

	results := h.kb.IngestBatch(c.Request.Context(), items)
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// Search handles POST /search.
func (h *QueryHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.kb.Retrieve(c.Request.Context(), req.Query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// FactsAt handles POST /query/at.
func (h *QueryHandler) FactsAt(c *gin.Context) {
	var req dto.FactsAtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	filter := temporal.Filter{EntityID: req.EntityID, Topic: req.Topic}
	for _, s := range req.Statuses {
		filter.Statuses = append(filter.Statuses, types.FactStatus(s))
	}

	facts, err := h.kb.FactsAt(c.Request.Context(), req.At, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"at": req.At, "facts": facts})
}

// Current handles GET /query/current.
func (h *QueryHandler) Current(c *gin.Context) {
	filter := temporal.Filter{
		EntityID: c.Query("entity_id"),
		Topic:    c.Query("topic"),
	}

	facts, err := h.kb.CurrentFacts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"facts": facts})
}

// Diff handles POST /query/diff.
func (h *QueryHandler) Diff(c *gin.Context) {
	var req dto.DiffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	diff, err := h.kb.DiffBetween(c.Request.Context(), req.EntityID, req.From, req.To)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, diff)
}
