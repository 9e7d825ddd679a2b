package classify

import (
	"context"
	"fmt"
	"time"

	"inbox_server/core/domain"
	"inbox_server/core/port/out"
	"inbox_server/pkg/logger"
	"inbox_server/pkg/snowflake"
)

// AppliedAction is one disposition the apply pass took, destined for the
// action ledger.
type AppliedAction struct {
	Type   domain.ActionEntryType
	RuleID string
	Detail string
}

// ApplyResult mutates doc from a classification result. Pure: no I/O, the
// caller persists the document and records the returned actions.
//
// Status precedence, first applicable wins: dismiss > mark_seen >
// auto-approve > leave pending. Paid flag, categories, expense category and
// the schedule intent are applied independently of status.
func ApplyResult(doc *domain.Document, result *domain.ClassificationResult, now time.Time) []AppliedAction {
	if result == nil || !result.HasMatches() {
		return nil
	}

	var applied []AppliedAction

	var dismissRule, seenRule *domain.MatchedRule
	addToExpenses := false
	for i := range result.MatchedRules {
		m := &result.MatchedRules[i]
		for _, action := range domain.ParseActionTokens(m.Actions) {
			switch action.Kind {
			case domain.ActionDismiss:
				if dismissRule == nil {
					dismissRule = m
				}
			case domain.ActionMarkSeen:
				if seenRule == nil {
					seenRule = m
				}
			case domain.ActionAddToExpenses:
				addToExpenses = true
			}
		}
	}

	switch {
	case dismissRule != nil:
		doc.Status = domain.DocStatusDismissed
		applied = append(applied, AppliedAction{Type: domain.ActionEntryDismissed, RuleID: dismissRule.RuleID})
	case seenRule != nil:
		doc.Status = domain.DocStatusSeen
		applied = append(applied, AppliedAction{Type: domain.ActionEntrySeen, RuleID: seenRule.RuleID})
	case result.ShouldAutoApprove:
		doc.Status = domain.DocStatusAuto
		applied = append(applied, AppliedAction{Type: domain.ActionEntryApproved})
	}

	if result.ShouldMarkPaid {
		doc.PaymentStatus = domain.PaymentStatusPaid
		paidAt := now
		doc.PaidAt = &paidAt
		applied = append(applied, AppliedAction{Type: domain.ActionEntryMarkedPaid})
	}

	for _, c := range result.SuggestedCategories {
		if !doc.HasCategory(c) {
			doc.AddCategory(c)
			applied = append(applied, AppliedAction{Type: domain.ActionEntryCategorized, Detail: c})
		}
	}

	if result.ExpenseCategory != "" {
		doc.ExpenseCategory = result.ExpenseCategory
		doc.AddedToExpenses = true
		applied = append(applied, AppliedAction{Type: domain.ActionEntryExpensed, Detail: result.ExpenseCategory})
	} else if addToExpenses {
		doc.AddedToExpenses = true
		applied = append(applied, AppliedAction{Type: domain.ActionEntryExpensed})
	}

	for _, m := range result.MatchedRules {
		doc.AppliedClassifications = append(doc.AppliedClassifications, domain.AppliedClassification{
			RuleID:     m.RuleID,
			RuleName:   m.RuleName,
			Confidence: m.Confidence,
			Actions:    m.Actions,
			AppliedAt:  now,
		})
	}
	doc.UpdatedAt = now
	return applied
}

// =============================================================================
// Applier - apply + side effects (ledger, payment scheduling)
// =============================================================================

type Applier struct {
	scheduler out.PaymentScheduler
	ledger    out.ActionLedgerRepository
	ids       *snowflake.Generator
	log       *logger.Logger
}

func NewApplier(scheduler out.PaymentScheduler, ledger out.ActionLedgerRepository, ids *snowflake.Generator, log *logger.Logger) *Applier {
	return &Applier{scheduler: scheduler, ledger: ledger, ids: ids, log: log}
}

// Apply finalizes doc from a classification result: runs the pure transform,
// queues any scheduled payment, and appends ledger entries. Scheduling and
// ledger failures are logged, never propagated: the document is always
// finalized.
func (a *Applier) Apply(ctx context.Context, doc *domain.Document, result *domain.ClassificationResult) {
	now := time.Now()
	applied := ApplyResult(doc, result, now)

	if result != nil && result.ShouldSchedulePayment && doc.Status != domain.DocStatusDismissed {
		applied = append(applied, a.schedulePayment(ctx, doc, result)...)
	}

	for _, act := range applied {
		entry := &domain.ActionEntry{
			ID:         a.ids.Next(),
			OwnerID:    doc.OwnerID,
			DocumentID: doc.ID,
			Type:       act.Type,
			RuleID:     act.RuleID,
			Detail:     act.Detail,
			CreatedAt:  now,
		}
		if err := a.ledger.Append(ctx, entry); err != nil {
			a.log.WithError(err).Warn("[Applier.Apply] ledger append failed: document=%s type=%s", doc.ID, act.Type)
		}
	}
}

func (a *Applier) schedulePayment(ctx context.Context, doc *domain.Document, result *domain.ClassificationResult) []AppliedAction {
	if doc.Amount == nil {
		a.log.Warn("[Applier.schedulePayment] no amount on document %s, skipping", doc.ID)
		return nil
	}
	delay := defaultPaymentDelayDays
	if result.PaymentDelayDays != nil {
		delay = *result.PaymentDelayDays
	}
	req := &out.SchedulePaymentRequest{
		OwnerID:    doc.OwnerID,
		DocumentID: doc.ID,
		Amount:     *doc.Amount,
		Currency:   doc.Currency,
		Recipient:  doc.SellerName,
		DelayDays:  delay,
		Reason:     fmt.Sprintf("auto-scheduled from %s %s", doc.DocumentType, doc.Title),
	}
	if err := a.scheduler.Schedule(ctx, req); err != nil {
		a.log.WithError(err).Error("[Applier.schedulePayment] scheduling failed: document=%s", doc.ID)
		return nil
	}
	return []AppliedAction{{
		Type:   domain.ActionEntryPaymentScheduled,
		Detail: fmt.Sprintf("delay_days=%d", delay),
	}}
}
