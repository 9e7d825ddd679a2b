package domain

import (
	"time"
)

// =============================================================================
// ClassificationRule - user-authored natural-language rule
// =============================================================================

type ClassificationRule struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Prompt    string    `json:"prompt"`
	Priority  int       `json:"priority"` // ascending = evaluated first
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// =============================================================================
// ClassificationResult - transient outcome of one rule-engine pass
// =============================================================================

// MatchedRule is one rule the AI evaluator considered a match, with the
// literal action tokens it emitted.
type MatchedRule struct {
	RuleID     string   `json:"rule_id"`
	RuleName   string   `json:"rule_name"`
	Confidence int      `json:"confidence"`
	Actions    []string `json:"actions"`
}

type ClassificationResult struct {
	MatchedRules          []MatchedRule `json:"matched_rules"`
	SuggestedCategories   []string      `json:"suggested_categories"`
	ShouldAutoApprove     bool          `json:"should_auto_approve"`
	ShouldMarkPaid        bool          `json:"should_mark_paid"`
	ShouldSchedulePayment bool          `json:"should_schedule_payment"`
	PaymentDelayDays      *int          `json:"payment_delay_days,omitempty"`
	ExpenseCategory       string        `json:"expense_category,omitempty"`
	OverallConfidence     int           `json:"overall_confidence"`
}

// EmptyClassificationResult is what the pipeline falls back to when the
// engine fails or the owner has no rules: no automatic action.
func EmptyClassificationResult() *ClassificationResult {
	return &ClassificationResult{
		MatchedRules:        []MatchedRule{},
		SuggestedCategories: []string{},
	}
}

// HasMatches - at least one rule matched
func (r *ClassificationResult) HasMatches() bool {
	return len(r.MatchedRules) > 0
}
