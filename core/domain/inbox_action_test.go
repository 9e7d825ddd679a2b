package domain

import (
	"testing"
)

func TestParseActionToken(t *testing.T) {
	five := 5
	tests := []struct {
		token  string
		want   RuleAction
		wantOK bool
	}{
		{"approve", RuleAction{Kind: ActionApprove}, true},
		{"auto-approve", RuleAction{Kind: ActionApprove}, true},
		{"dismiss", RuleAction{Kind: ActionDismiss}, true},
		{"ignore", RuleAction{Kind: ActionDismiss}, true},
		{"mark_seen", RuleAction{Kind: ActionMarkSeen}, true},
		{"seen", RuleAction{Kind: ActionMarkSeen}, true},
		{"mark_paid", RuleAction{Kind: ActionMarkPaid}, true},
		{"add_to_expenses", RuleAction{Kind: ActionAddToExpenses}, true},
		{"categorize:personal", RuleAction{Kind: ActionCategorize, Value: "personal"}, true},
		{"category:work", RuleAction{Kind: ActionCategorize, Value: "work"}, true},
		{"add_category:travel", RuleAction{Kind: ActionCategorize, Value: "travel"}, true},
		{"set_expense_category:office", RuleAction{Kind: ActionSetExpenseCategory, Value: "office"}, true},
		{"schedule_payment", RuleAction{Kind: ActionSchedulePayment}, true},
		{"schedule_payment:5_days", RuleAction{Kind: ActionSchedulePayment, DelayDays: &five}, true},
		{"  approve  ", RuleAction{Kind: ActionApprove}, true},
		{"categorize:", RuleAction{}, false},
		{"unknown_token", RuleAction{}, false},
		{"", RuleAction{}, false},
		// unparseable delay degrades to the no-delay form
		{"schedule_payment:soon", RuleAction{Kind: ActionSchedulePayment}, true},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := ParseActionToken(tt.token)
			if ok != tt.wantOK {
				t.Fatalf("ParseActionToken(%q) ok = %v, want %v", tt.token, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Kind != tt.want.Kind || got.Value != tt.want.Value {
				t.Errorf("ParseActionToken(%q) = %+v, want %+v", tt.token, got, tt.want)
			}
			switch {
			case tt.want.DelayDays == nil && got.DelayDays != nil:
				t.Errorf("unexpected delay %d", *got.DelayDays)
			case tt.want.DelayDays != nil && (got.DelayDays == nil || *got.DelayDays != *tt.want.DelayDays):
				t.Errorf("delay = %v, want %d", got.DelayDays, *tt.want.DelayDays)
			}
		})
	}
}

func TestParseActionTokens_DropsUnknown(t *testing.T) {
	actions := ParseActionTokens([]string{"approve", "bogus", "mark_paid"})
	if len(actions) != 2 {
		t.Fatalf("parsed %d actions, want 2 (unknown dropped)", len(actions))
	}
	if actions[0].Kind != ActionApprove || actions[1].Kind != ActionMarkPaid {
		t.Errorf("unexpected actions: %+v", actions)
	}
}
