// Package out defines outbound ports (driven ports) for the application.
package out

import (
	"context"

	"inbox_server/core/domain"
)

// =============================================================================
// AI Extraction Port
// =============================================================================

// ExtractionService turns raw email/attachment content into a structured
// document. A nil result with nil error means "nothing financial here".
type ExtractionService interface {
	ExtractFromText(ctx context.Context, text, subjectHint string) (*domain.ExtractedDocument, error)
	ExtractFromPDF(ctx context.Context, data []byte, filename string) (*domain.ExtractedDocument, error)
}

// =============================================================================
// AI Classification Port
// =============================================================================

// RuleEvaluation is the raw outcome of one AI evaluation pass: matched
// rules carrying literal action tokens, plus the evaluator's own aggregate
// confidence. Flag aggregation happens in the rule engine, not here.
type RuleEvaluation struct {
	MatchedRules        []domain.MatchedRule `json:"matched_rules"`
	SuggestedCategories []string             `json:"suggested_categories"`
	OverallConfidence   int                  `json:"overall_confidence"`
}

// RuleClassifier evaluates user rules against a document summary.
type RuleClassifier interface {
	Evaluate(ctx context.Context, documentSummary string, rules []*domain.ClassificationRule) (*RuleEvaluation, error)
}
