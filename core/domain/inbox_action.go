package domain

import (
	"strconv"
	"strings"
)

// =============================================================================
// RuleAction - action tokens parsed into a tagged variant
// =============================================================================

// Raw action tokens are short strings emitted by rule evaluation
// ("mark_paid", "categorize:personal", "schedule_payment:5_days").
// They are parsed exactly once at the engine boundary; everything past
// that point works with RuleAction values.

type ActionKind string

const (
	ActionApprove            ActionKind = "approve"
	ActionDismiss            ActionKind = "dismiss"
	ActionMarkSeen           ActionKind = "mark_seen"
	ActionMarkPaid           ActionKind = "mark_paid"
	ActionCategorize         ActionKind = "categorize"
	ActionAddToExpenses      ActionKind = "add_to_expenses"
	ActionSetExpenseCategory ActionKind = "set_expense_category"
	ActionSchedulePayment    ActionKind = "schedule_payment"
)

type RuleAction struct {
	Kind ActionKind
	// Value carries the category name for Categorize/SetExpenseCategory.
	Value string
	// DelayDays carries the parsed delay for SchedulePayment, if given.
	DelayDays *int
}

// ParseActionToken parses one raw action token. Returns false for tokens
// outside the grammar; unknown tokens are skipped, never fatal.
func ParseActionToken(token string) (RuleAction, bool) {
	token = strings.TrimSpace(token)
	switch token {
	case "approve", "auto-approve":
		return RuleAction{Kind: ActionApprove}, true
	case "dismiss", "ignore":
		return RuleAction{Kind: ActionDismiss}, true
	case "mark_seen", "seen":
		return RuleAction{Kind: ActionMarkSeen}, true
	case "mark_paid":
		return RuleAction{Kind: ActionMarkPaid}, true
	case "add_to_expenses":
		return RuleAction{Kind: ActionAddToExpenses}, true
	case "schedule_payment":
		return RuleAction{Kind: ActionSchedulePayment}, true
	}

	if name, ok := cutPrefix(token, "categorize:", "category:", "add_category:"); ok {
		if name == "" {
			return RuleAction{}, false
		}
		return RuleAction{Kind: ActionCategorize, Value: name}, true
	}
	if name, ok := cutPrefix(token, "set_expense_category:"); ok {
		if name == "" {
			return RuleAction{}, false
		}
		return RuleAction{Kind: ActionSetExpenseCategory, Value: name}, true
	}
	if rest, ok := cutPrefix(token, "schedule_payment:"); ok {
		days, ok := parseDelayDays(rest)
		if !ok {
			return RuleAction{Kind: ActionSchedulePayment}, true
		}
		return RuleAction{Kind: ActionSchedulePayment, DelayDays: &days}, true
	}
	return RuleAction{}, false
}

// ParseActionTokens parses a token list, dropping anything unrecognized.
func ParseActionTokens(tokens []string) []RuleAction {
	actions := make([]RuleAction, 0, len(tokens))
	for _, t := range tokens {
		if a, ok := ParseActionToken(t); ok {
			actions = append(actions, a)
		}
	}
	return actions
}

func cutPrefix(s string, prefixes ...string) (string, bool) {
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(s, p); ok {
			return rest, true
		}
	}
	return "", false
}

// parseDelayDays parses "<N>_days" (also accepts a bare number).
func parseDelayDays(s string) (int, bool) {
	s = strings.TrimSuffix(s, "_days")
	s = strings.TrimSuffix(s, "_day")
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
