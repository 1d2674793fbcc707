package domain

import (
	"errors"
	"strings"
)

// AssessmentInput is the free-text payload an adviser or client submits.
// Subject identifies what is being assessed (a business name, a document
// title); Content carries the text itself.
type AssessmentInput struct {
	Subject string            `json:"subject"`
	Content string            `json:"content"`
	Context map[string]string `json:"context,omitempty"`
}

func (in AssessmentInput) Validate() error {
	if strings.TrimSpace(in.Subject) == "" {
		return WrapError(ErrInvalidInput, "validate input", errors.New("subject is required"))
	}
	if strings.TrimSpace(in.Content) == "" {
		return WrapError(ErrInvalidInput, "validate input", errors.New("content is required"))
	}
	return nil
}

// AssessmentResult is always schema-complete: every field is populated
// after validation regardless of what the model returned. Degraded marks
// results substituted by the deterministic fallback.
type AssessmentResult struct {
	Score           int      `json:"score"`
	Eligible        bool     `json:"eligible"`
	RiskLevel       string   `json:"risk_level"`
	Recommendations []string `json:"recommendations"`
	Rationale       string   `json:"rationale"`
	Degraded        bool     `json:"degraded,omitempty"`
}
