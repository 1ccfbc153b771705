// Package handlers contains the gin handlers behind the HTTP API. Each
// handler group wraps the chronicle client and translates between the DTO
// layer and the core types.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chronicle-kb/chronicle/pkg/server/dto"
	"github.com/chronicle-kb/chronicle/pkg/types"
)

// statusFor maps core sentinel errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrEntityNotFound),
		errors.Is(err, types.ErrFactNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrAlreadyMerged),
		errors.Is(err, types.ErrAlreadySuperseded):
		return http.StatusConflict
	case errors.Is(err, types.ErrSelfMerge),
		errors.Is(err, types.ErrSelfCorroboration),
		errors.Is(err, types.ErrEmptySynthesisSource),
		errors.Is(err, types.ErrEmptyName),
		errors.Is(err, types.ErrEmptyText),
		errors.Is(err, types.ErrEmptyID),
		errors.Is(err, types.ErrInvalidInterval),
		errors.Is(err, types.ErrInvalidLimit):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	code := "internal_error"
	switch status {
	case http.StatusNotFound:
		code = "not_found"
	case http.StatusConflict:
		code = "conflict"
	case http.StatusBadRequest:
		code = "invalid_request"
	}
	c.JSON(status, dto.ErrorResponse{Error: code, Message: err.Error(), Code: status})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "invalid_request",
		Message: err.Error(),
		Code:    http.StatusBadRequest,
	})
}

func mentionsFromDTO(inputs []dto.MentionInput) []types.EntityMention {
	if len(inputs) == 0 {
		return nil
	}
	mentions := make([]types.EntityMention, 0, len(inputs))
	for _, in := range inputs {
		confidence := in.Confidence
		if confidence == 0 {
			confidence = 1.0
		}
		mentions = append(mentions, types.EntityMention{
			EntityID:    in.EntityID,
			MentionText: in.MentionText,
			Role:        types.ParseMentionRole(in.Role),
			Confidence:  confidence,
		})
	}
	return mentions
}

func aliasesFromDTO(inputs []dto.AliasInput) []types.Alias {
	if len(inputs) == 0 {
		return nil
	}
	aliases := make([]types.Alias, 0, len(inputs))
	for _, in := range inputs {
		confidence := in.Confidence
		if confidence == 0 {
			confidence = 1.0
		}
		kind := types.AliasKind(in.Kind)
		if in.Kind == "" {
			kind = types.AliasOther
		}
		aliases = append(aliases, types.Alias{Text: in.Text, Kind: kind, Confidence: confidence})
	}
	return aliases
}
