package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chronicle-kb/chronicle"
	"github.com/chronicle-kb/chronicle/pkg/resolver"
	"github.com/chronicle-kb/chronicle/pkg/server/dto"
)

// EntityHandler handles entity resolution and identity requests.
type EntityHandler struct {
	kb *chronicle.Client
}

// NewEntityHandler creates a new entity handler.
func NewEntityHandler(kb *chronicle.Client) *EntityHandler {
	return &EntityHandler{kb: kb}
}

// Resolve handles POST /entities/resolve.
func (h *EntityHandler) Resolve(c *gin.Context) {
	var req dto.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()

	if req.Create {
		entity, err := h.kb.ResolveOrCreate(ctx, req.Name, req.Kind, aliasesFromDTO(req.Aliases), req.Attributes)
		if err != nil {
			respondError(c, err)
			return
		}
		resolved, err := h.kb.Resolve(ctx, req.Name, req.Kind)
		if err != nil {
			respondError(c, err)
			return
		}
		resp := dto.ResolveResponse{Found: true, Entity: entity}
		if resolved != nil && resolved.Entity.ID == entity.ID {
			resp.Confidence = resolved.Confidence
			resp.MatchType = string(resolved.MatchType)
		} else {
			resp.Created = true
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	resolved, err := h.kb.Resolve(ctx, req.Name, req.Kind)
	if err != nil {
		respondError(c, err)
		return
	}
	if resolved == nil {
		c.JSON(http.StatusOK, dto.ResolveResponse{Found: false})
		return
	}
	c.JSON(http.StatusOK, dto.ResolveResponse{
		Found:      true,
		Entity:     resolved.Entity,
		Confidence: resolved.Confidence,
		MatchType:  string(resolved.MatchType),
	})
}

// Get handles GET /entities/:id.
func (h *EntityHandler) Get(c *gin.Context) {
	entity, err := h.kb.GetEntity(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

// Merge handles POST /entities/merge.
func (h *EntityHandler) Merge(c *gin.Context) {
	var req dto.MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	merged, err := h.kb.MergeEntities(c.Request.Context(), req.KeepID, req.AbsorbedID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, merged)
}

// Split handles POST /entities/:id/split.
func (h *EntityHandler) Split(c *gin.Context) {
	var req dto.SplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	configs := make([]resolver.SplitConfig, 0, len(req.Entities))
	for _, e := range req.Entities {
		configs = append(configs, resolver.SplitConfig{
			Name:       e.Name,
			Kind:       e.Kind,
			Aliases:    aliasesFromDTO(e.Aliases),
			Attributes: e.Attributes,
		})
	}

	entities, err := h.kb.SplitEntity(c.Request.Context(), c.Param("id"), configs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entities": entities})
}

// Duplicates handles GET /entities/duplicates.
func (h *EntityHandler) Duplicates(c *gin.Context) {
	threshold := 0.0
	if raw := c.Query("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			badRequest(c, err)
			return
		}
		threshold = parsed
	}

	pairs, err := h.kb.FindDuplicateEntities(c.Request.Context(), threshold)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"duplicates": duplicatesToDTO(pairs)})
}

// AutoMerge handles POST /entities/auto-merge.
func (h *EntityHandler) AutoMerge(c *gin.Context) {
	merged, err := h.kb.AutoMergeDuplicates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"merged": duplicatesToDTO(merged)})
}

// Timeline handles GET /entities/:id/timeline.
func (h *EntityHandler) Timeline(c *gin.Context) {
	from, err := timeQuery(c, "from")
	if err != nil {
		badRequest(c, err)
		return
	}
	to, err := timeQuery(c, "to")
	if err != nil {
		badRequest(c, err)
		return
	}

	timeline, err := h.kb.EntityTimeline(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TimelineResponse{
		EntityID: timeline.EntityID,
		From:     from,
		To:       to,
		Facts:    timeline.Facts,
	})
}

func timeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func duplicatesToDTO(pairs []resolver.DuplicatePair) []dto.DuplicateResponse {
	out := make([]dto.DuplicateResponse, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, dto.DuplicateResponse{
			Entity1ID:   p.Entity1.ID,
			Entity1Name: p.Entity1.CanonicalName,
			Entity2ID:   p.Entity2.ID,
			Entity2Name: p.Entity2.CanonicalName,
			Similarity:  p.Similarity,
		})
	}
	return out
}
