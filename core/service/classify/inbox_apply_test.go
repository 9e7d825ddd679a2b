package classify

import (
	"context"
	"errors"
	"testing"
	"time"

	"inbox_server/core/domain"
	"inbox_server/core/port/out"
	"inbox_server/pkg/snowflake"
)

func newDoc() *domain.Document {
	amount := 1250.0
	return &domain.Document{
		ID:            "doc-1",
		OwnerID:       "owner-1",
		DocumentType:  domain.DocTypeInvoice,
		Title:         "Invoice #INV-2024-001",
		Amount:        &amount,
		Currency:      "USD",
		SellerName:    "Vendor Inc",
		Status:        domain.DocStatusPending,
		PaymentStatus: domain.PaymentStatusUnpaid,
	}
}

func matched(id string, actions ...string) domain.MatchedRule {
	return domain.MatchedRule{RuleID: id, RuleName: "rule " + id, Confidence: 80, Actions: actions}
}

func TestApplyResult_DismissBeatsApprove(t *testing.T) {
	doc := newDoc()
	result := &domain.ClassificationResult{
		MatchedRules:      []domain.MatchedRule{matched("r1", "approve"), matched("r2", "dismiss")},
		ShouldAutoApprove: true,
	}
	ApplyResult(doc, result, time.Now())

	if doc.Status != domain.DocStatusDismissed {
		t.Errorf("status = %s, want dismissed (dismiss outranks approve)", doc.Status)
	}
}

func TestApplyResult_SeenBeatsApprove(t *testing.T) {
	doc := newDoc()
	result := &domain.ClassificationResult{
		MatchedRules:      []domain.MatchedRule{matched("r1", "mark_seen"), matched("r2", "approve")},
		ShouldAutoApprove: true,
	}
	ApplyResult(doc, result, time.Now())

	if doc.Status != domain.DocStatusSeen {
		t.Errorf("status = %s, want seen", doc.Status)
	}
}

func TestApplyResult_AutoApprove(t *testing.T) {
	doc := newDoc()
	result := &domain.ClassificationResult{
		MatchedRules:      []domain.MatchedRule{matched("r1", "approve")},
		ShouldAutoApprove: true,
	}
	ApplyResult(doc, result, time.Now())

	if doc.Status != domain.DocStatusAuto {
		t.Errorf("status = %s, want auto", doc.Status)
	}
}

func TestApplyResult_NoMatchesLeavesPending(t *testing.T) {
	doc := newDoc()
	applied := ApplyResult(doc, domain.EmptyClassificationResult(), time.Now())

	if doc.Status != domain.DocStatusPending {
		t.Errorf("status = %s, want pending untouched", doc.Status)
	}
	if len(applied) != 0 || len(doc.AppliedClassifications) != 0 {
		t.Error("no matches must record nothing")
	}
}

func TestApplyResult_IndependentFlags(t *testing.T) {
	doc := newDoc()
	now := time.Now()
	result := &domain.ClassificationResult{
		MatchedRules:        []domain.MatchedRule{matched("r1", "dismiss", "mark_paid")},
		ShouldMarkPaid:      true,
		SuggestedCategories: []string{"bills", "recurring"},
		ExpenseCategory:     "utilities",
	}
	ApplyResult(doc, result, now)

	if doc.Status != domain.DocStatusDismissed {
		t.Errorf("status = %s, want dismissed", doc.Status)
	}
	if doc.PaymentStatus != domain.PaymentStatusPaid || doc.PaidAt == nil {
		t.Error("mark_paid applies independently of status")
	}
	if len(doc.Categories) != 2 {
		t.Errorf("categories = %v, want both applied", doc.Categories)
	}
	if doc.ExpenseCategory != "utilities" || !doc.AddedToExpenses {
		t.Error("expense category should be recorded with the expenses marker")
	}
}

func TestApplyResult_ProvenanceRecorded(t *testing.T) {
	doc := newDoc()
	result := &domain.ClassificationResult{
		MatchedRules:      []domain.MatchedRule{matched("r1", "approve", "categorize:bills")},
		ShouldAutoApprove: true,
	}
	ApplyResult(doc, result, time.Now())

	if len(doc.AppliedClassifications) != 1 {
		t.Fatalf("applied classifications = %d, want 1", len(doc.AppliedClassifications))
	}
	ac := doc.AppliedClassifications[0]
	if ac.RuleID != "r1" || ac.Confidence != 80 || len(ac.Actions) != 2 {
		t.Errorf("provenance record incomplete: %+v", ac)
	}
}

// =============================================================================
// Applier side effects
// =============================================================================

type fakeScheduler struct {
	reqs []*out.SchedulePaymentRequest
	err  error
}

func (f *fakeScheduler) Schedule(ctx context.Context, req *out.SchedulePaymentRequest) error {
	f.reqs = append(f.reqs, req)
	return f.err
}

type fakeLedger struct {
	entries []*domain.ActionEntry
	err     error
}

func (f *fakeLedger) Append(ctx context.Context, e *domain.ActionEntry) error {
	f.entries = append(f.entries, e)
	return f.err
}

func (f *fakeLedger) ListByDocument(ctx context.Context, documentID string) ([]*domain.ActionEntry, error) {
	return f.entries, nil
}

func (f *fakeLedger) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.ActionEntry, error) {
	return f.entries, nil
}

func newApplier(sched *fakeScheduler, ledger *fakeLedger) *Applier {
	ids, _ := snowflake.NewGenerator(0)
	return NewApplier(sched, ledger, ids, testLogger())
}

func TestApplier_SchedulesPayment(t *testing.T) {
	sched := &fakeScheduler{}
	ledger := &fakeLedger{}
	a := newApplier(sched, ledger)

	doc := newDoc()
	delay := 5
	result := &domain.ClassificationResult{
		MatchedRules:          []domain.MatchedRule{matched("r1", "schedule_payment:5_days")},
		ShouldSchedulePayment: true,
		PaymentDelayDays:      &delay,
	}
	a.Apply(context.Background(), doc, result)

	if len(sched.reqs) != 1 {
		t.Fatalf("scheduled %d payments, want 1", len(sched.reqs))
	}
	req := sched.reqs[0]
	if req.Amount != 1250 || req.Currency != "USD" || req.DelayDays != 5 || req.Recipient != "Vendor Inc" {
		t.Errorf("unexpected schedule request: %+v", req)
	}
	// ledger got the payment_scheduled entry
	found := false
	for _, e := range ledger.entries {
		if e.Type == domain.ActionEntryPaymentScheduled {
			found = true
			if e.ID == 0 {
				t.Error("ledger entry missing generated id")
			}
		}
	}
	if !found {
		t.Error("payment_scheduled ledger entry missing")
	}
}

func TestApplier_SchedulerFailureDoesNotAbort(t *testing.T) {
	sched := &fakeScheduler{err: errors.New("payment service down")}
	a := newApplier(sched, &fakeLedger{})

	doc := newDoc()
	result := &domain.ClassificationResult{
		MatchedRules:          []domain.MatchedRule{matched("r1", "approve", "schedule_payment")},
		ShouldAutoApprove:     true,
		ShouldSchedulePayment: true,
	}
	a.Apply(context.Background(), doc, result) // must not panic

	if doc.Status != domain.DocStatusAuto {
		t.Errorf("status = %s, document must still finalize when scheduling fails", doc.Status)
	}
}

func TestApplier_NoScheduleWhenDismissed(t *testing.T) {
	sched := &fakeScheduler{}
	a := newApplier(sched, &fakeLedger{})

	doc := newDoc()
	result := &domain.ClassificationResult{
		MatchedRules:          []domain.MatchedRule{matched("r1", "dismiss", "schedule_payment")},
		ShouldSchedulePayment: true,
	}
	a.Apply(context.Background(), doc, result)

	if len(sched.reqs) != 0 {
		t.Error("dismissed documents must not schedule payments")
	}
}
