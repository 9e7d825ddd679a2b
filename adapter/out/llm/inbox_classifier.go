package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"inbox_server/core/domain"
	"inbox_server/core/port/out"
	"inbox_server/pkg/logger"
)

const classifierSystemPrompt = `You are a rule evaluator for an automated financial inbox. The user wrote
natural-language rules; you decide which rules match the given document.

Allowed action tokens (emit only these, exactly as written; parameterized
forms take a value after the colon):
  approve, dismiss, ignore, mark_seen, mark_paid, add_to_expenses,
  categorize:<name>, set_expense_category:<name>,
  schedule_payment, schedule_payment:<N>_days

Respond with a JSON object:
{
  "matched_rules": [
    {"rule_id": string, "confidence": 0-100, "actions": [action tokens]}
  ],
  "suggested_categories": [string],
  "overall_confidence": 0-100
}
Only include rules that genuinely match. Derive each rule's actions from the
rule's own wording.`

// Classifier implements the AI rule-evaluation port.
type Classifier struct {
	client *Client
	log    *logger.Logger
}

func NewClassifier(client *Client, log *logger.Logger) *Classifier {
	return &Classifier{client: client, log: log}
}

type classifierPayload struct {
	MatchedRules []struct {
		RuleID     string   `json:"rule_id"`
		Confidence int      `json:"confidence"`
		Actions    []string `json:"actions"`
	} `json:"matched_rules"`
	SuggestedCategories []string `json:"suggested_categories"`
	OverallConfidence   int      `json:"overall_confidence"`
}

// Evaluate presents the rules (already in priority order) and the document
// summary to the model and returns the raw evaluation.
func (c *Classifier) Evaluate(ctx context.Context, documentSummary string, rules []*domain.ClassificationRule) (*out.RuleEvaluation, error) {
	var b strings.Builder
	b.WriteString("Rules, in priority order:\n")
	for i, r := range rules {
		fmt.Fprintf(&b, "%d. id=%s name=%q rule: %s\n", i+1, r.ID, r.Name, r.Prompt)
	}
	b.WriteString("\nDocument:\n")
	b.WriteString(documentSummary)

	raw, err := c.client.CompleteJSON(ctx, classifierSystemPrompt, b.String())
	if err != nil {
		return nil, err
	}

	var payload classifierPayload
	if err := json.Unmarshal([]byte(trimJSONFence(raw)), &payload); err != nil {
		return nil, fmt.Errorf("unparseable evaluation: %w", err)
	}

	names := make(map[string]string, len(rules))
	for _, r := range rules {
		names[r.ID] = r.Name
	}

	eval := &out.RuleEvaluation{
		SuggestedCategories: payload.SuggestedCategories,
		OverallConfidence:   clampConfidence(payload.OverallConfidence),
	}
	for _, m := range payload.MatchedRules {
		name, known := names[m.RuleID]
		if !known {
			c.log.Warn("[Classifier.Evaluate] model matched unknown rule id %q, dropping", m.RuleID)
			continue
		}
		eval.MatchedRules = append(eval.MatchedRules, domain.MatchedRule{
			RuleID:     m.RuleID,
			RuleName:   name,
			Confidence: clampConfidence(m.Confidence),
			Actions:    m.Actions,
		})
	}
	return eval, nil
}
