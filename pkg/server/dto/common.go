package dto

import (
	"errors"
	"strings"
)

// MaxTextLength bounds the text accepted on fact and ingest endpoints.
const MaxTextLength = 65536

// ErrTextTooLong is returned when submitted text exceeds MaxTextLength.
var ErrTextTooLong = errors.New("text exceeds maximum length")

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// MentionInput names an entity mentioned by a fact being written.
type MentionInput struct {
	EntityID    string  `json:"entity_id" binding:"required"`
	MentionText string  `json:"mention_text,omitempty"`
	Role        string  `json:"role,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
}

// AliasInput is an alternate name supplied alongside an entity.
type AliasInput struct {
	Text       string  `json:"text" binding:"required"`
	Kind       string  `json:"kind,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("text cannot be empty")
	}
	if len(text) > MaxTextLength {
		return ErrTextTooLong
	}
	return nil
}
