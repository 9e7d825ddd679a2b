// Package classify evaluates user-authored rules against a document and
// applies the resulting dispositions.
package classify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"inbox_server/core/domain"
	"inbox_server/core/port/out"
	"inbox_server/pkg/logger"
)

// defaultPaymentDelayDays is used when a schedule_payment token carries no
// explicit delay.
const defaultPaymentDelayDays = 2

// sourceExcerptLimit caps how much raw source text is shown to the rule
// evaluator.
const sourceExcerptLimit = 1000

// RuleEngine classifies one document against the owner's rules.
type RuleEngine struct {
	classifier out.RuleClassifier
	log        *logger.Logger
}

func NewRuleEngine(classifier out.RuleClassifier, log *logger.Logger) *RuleEngine {
	return &RuleEngine{classifier: classifier, log: log}
}

// Classify evaluates rules in priority order against the document. Engine
// failures never reach the caller: the pipeline degrades to "no automatic
// action" via the empty result.
func (e *RuleEngine) Classify(ctx context.Context, doc *domain.ExtractedDocument, sourceText string, rules []*domain.ClassificationRule) *domain.ClassificationResult {
	if len(rules) == 0 {
		return domain.EmptyClassificationResult()
	}

	ordered := make([]*domain.ClassificationRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	summary := BuildDocumentSummary(doc, sourceText)
	eval, err := e.classifier.Evaluate(ctx, summary, ordered)
	if err != nil {
		e.log.WithError(err).Warn("[RuleEngine.Classify] evaluation failed, degrading to empty result")
		return domain.EmptyClassificationResult()
	}
	if eval == nil {
		return domain.EmptyClassificationResult()
	}

	return aggregate(eval, ordered)
}

// aggregate folds per-rule matches into result flags. Any-match OR
// semantics for booleans; the first rule in priority order wins for the
// payment delay and the expense category.
func aggregate(eval *out.RuleEvaluation, ordered []*domain.ClassificationRule) *domain.ClassificationResult {
	result := domain.EmptyClassificationResult()
	result.OverallConfidence = eval.OverallConfidence

	matchedByRule := make(map[string]*domain.MatchedRule, len(eval.MatchedRules))
	for i := range eval.MatchedRules {
		m := &eval.MatchedRules[i]
		if _, dup := matchedByRule[m.RuleID]; !dup {
			matchedByRule[m.RuleID] = m
		}
	}

	seenCategories := map[string]bool{}
	for _, rule := range ordered {
		m, ok := matchedByRule[rule.ID]
		if !ok {
			continue
		}
		result.MatchedRules = append(result.MatchedRules, *m)

		for _, action := range domain.ParseActionTokens(m.Actions) {
			switch action.Kind {
			case domain.ActionApprove:
				result.ShouldAutoApprove = true
			case domain.ActionMarkPaid:
				result.ShouldMarkPaid = true
			case domain.ActionCategorize:
				if !seenCategories[action.Value] {
					seenCategories[action.Value] = true
					result.SuggestedCategories = append(result.SuggestedCategories, action.Value)
				}
			case domain.ActionSetExpenseCategory:
				if result.ExpenseCategory == "" {
					result.ExpenseCategory = action.Value
				}
			case domain.ActionSchedulePayment:
				result.ShouldSchedulePayment = true
				if result.PaymentDelayDays == nil && action.DelayDays != nil {
					days := *action.DelayDays
					result.PaymentDelayDays = &days
				}
			}
		}
	}

	if result.ShouldSchedulePayment && result.PaymentDelayDays == nil {
		days := defaultPaymentDelayDays
		result.PaymentDelayDays = &days
	}

	for _, c := range eval.SuggestedCategories {
		if c != "" && !seenCategories[c] {
			seenCategories[c] = true
			result.SuggestedCategories = append(result.SuggestedCategories, c)
		}
	}
	return result
}

// BuildDocumentSummary renders the normalized textual summary shown to the
// rule evaluator.
func BuildDocumentSummary(doc *domain.ExtractedDocument, sourceText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Type: %s\n", doc.DocumentType)
	if doc.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", doc.Title)
	}
	if doc.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", doc.Summary)
	}
	if doc.Amount != nil {
		fmt.Fprintf(&b, "Amount: %.2f %s\n", *doc.Amount, doc.Currency)
	}
	if doc.SellerName != "" {
		fmt.Fprintf(&b, "Vendor: %s\n", doc.SellerName)
	}
	if doc.InvoiceNumber != "" {
		fmt.Fprintf(&b, "Invoice number: %s\n", doc.InvoiceNumber)
	}
	if doc.IssueDate != nil {
		fmt.Fprintf(&b, "Issue date: %s\n", doc.IssueDate.Format("2006-01-02"))
	}
	if doc.DueDate != nil {
		fmt.Fprintf(&b, "Due date: %s\n", doc.DueDate.Format("2006-01-02"))
	}
	if doc.Rationale != "" {
		fmt.Fprintf(&b, "Extraction rationale: %s\n", doc.Rationale)
	}
	if sourceText != "" {
		excerpt := sourceText
		if len(excerpt) > sourceExcerptLimit {
			excerpt = excerpt[:sourceExcerptLimit]
		}
		fmt.Fprintf(&b, "Source excerpt:\n%s\n", excerpt)
	}
	return b.String()
}
