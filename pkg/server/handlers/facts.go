package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chronicle-kb/chronicle"
	"github.com/chronicle-kb/chronicle/pkg/conflict"
	"github.com/chronicle-kb/chronicle/pkg/server/dto"
	"github.com/chronicle-kb/chronicle/pkg/types"
)

// FactHandler handles fact lifecycle requests.
type FactHandler struct {
	kb *chronicle.Client
}

// NewFactHandler creates a new fact handler.
func NewFactHandler(kb *chronicle.Client) *FactHandler {
	return &FactHandler{kb: kb}
}

// Create handles POST /facts.
func (h *FactHandler) Create(c *gin.Context) {
	var req dto.CreateFactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	fact := &types.Fact{
		Text:       req.Text,
		InvalidAt:  req.InvalidAt,
		Confidence: req.Confidence,
		Mentions:   mentionsFromDTO(req.Mentions),
		Metadata:   req.Metadata,
	}
	if req.ValidAt != nil {
		fact.ValidAt = *req.ValidAt
	}
	if req.SourceID != "" {
		fact.Sources = []types.FactSource{{
			SourceID:   req.SourceID,
			Kind:       types.SourcePrimary,
			Confidence: 1.0,
		}}
	}

	created, err := h.kb.CreateFact(c.Request.Context(), fact)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Get handles GET /facts/:id.
func (h *FactHandler) Get(c *gin.Context) {
	fact, err := h.kb.GetFact(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fact)
}

// Supersede handles POST /facts/:id/supersede.
func (h *FactHandler) Supersede(c *gin.Context) {
	var req dto.SupersedeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	successor, err := h.kb.SupersedeFact(c.Request.Context(), c.Param("id"), req.Text, req.ValidAt, mentionsFromDTO(req.Mentions))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successor)
}

// Synthesize handles POST /facts/synthesize.
func (h *FactHandler) Synthesize(c *gin.Context) {
	var req dto.SynthesizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	fact, err := h.kb.SynthesizeFact(c.Request.Context(), req.SourceIDs, req.Text, req.ValidAt, req.InvalidAt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fact)
}

// Corroborate handles POST /facts/:id/corroborate.
func (h *FactHandler) Corroborate(c *gin.Context) {
	var req dto.CorroborateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	fact, err := h.kb.CorroborateFact(c.Request.Context(), c.Param("id"), req.WitnessID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fact)
}

// Invalidate handles POST /facts/:id/invalidate.
func (h *FactHandler) Invalidate(c *gin.Context) {
	var req dto.InvalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.At.IsZero() {
		req.At = time.Now().UTC()
	}

	fact, err := h.kb.InvalidateFact(c.Request.Context(), c.Param("id"), req.At)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fact)
}

// Conflicts handles GET /conflicts.
func (h *FactHandler) Conflicts(c *gin.Context) {
	conflicts, err := h.kb.FindConflicts(c.Request.Context(), c.Query("entity_id"), c.Query("topic"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conflicts": conflictsToDTO(conflicts)})
}

// ResolveConflict handles POST /conflicts/resolve.
func (h *FactHandler) ResolveConflict(c *gin.Context) {
	var req dto.ResolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.kb.ResolveConflict(c.Request.Context(), req.KeepID, req.SupersedeIDs, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kept": req.KeepID, "superseded": req.SupersedeIDs})
}

func conflictsToDTO(conflicts []conflict.Conflict) []dto.ConflictResponse {
	out := make([]dto.ConflictResponse, 0, len(conflicts))
	for _, cf := range conflicts {
		out = append(out, dto.ConflictResponse{
			Fact1ID:    cf.Fact1.ID,
			Fact1Text:  cf.Fact1.Text,
			Fact2ID:    cf.Fact2.ID,
			Fact2Text:  cf.Fact2.Text,
			Similarity: cf.Similarity,
		})
	}
	return out
}
