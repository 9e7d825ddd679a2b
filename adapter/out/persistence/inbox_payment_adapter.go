package persistence

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"inbox_server/core/domain"

	"github.com/jmoiron/sqlx"
)

// =============================================================================
// ScheduledPaymentAdapter - payments queued by rule actions
// =============================================================================

type ScheduledPaymentAdapter struct {
	db *sqlx.DB
}

func NewScheduledPaymentAdapter(db *sqlx.DB) *ScheduledPaymentAdapter {
	return &ScheduledPaymentAdapter{db: db}
}

type scheduledPaymentEntity struct {
	ID         string         `db:"id"`
	OwnerID    string         `db:"owner_id"`
	DocumentID string         `db:"document_id"`
	Amount     float64        `db:"amount"`
	Currency   string         `db:"currency"`
	Recipient  sql.NullString `db:"recipient"`
	DueAt      time.Time      `db:"due_at"`
	Reason     sql.NullString `db:"reason"`
	Status     string         `db:"status"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (e *scheduledPaymentEntity) toDomain() *domain.ScheduledPayment {
	p := &domain.ScheduledPayment{
		ID:         e.ID,
		OwnerID:    e.OwnerID,
		DocumentID: e.DocumentID,
		Amount:     e.Amount,
		Currency:   e.Currency,
		DueAt:      e.DueAt,
		Status:     domain.PaymentScheduleStatus(e.Status),
		CreatedAt:  e.CreatedAt,
	}
	if e.Recipient.Valid {
		p.Recipient = e.Recipient.String
	}
	if e.Reason.Valid {
		p.Reason = e.Reason.String
	}
	return p
}

func (a *ScheduledPaymentAdapter) Create(ctx context.Context, p *domain.ScheduledPayment) error {
	query := `
		INSERT INTO scheduled_payments (id, owner_id, document_id, amount, currency,
			recipient, due_at, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := a.db.ExecContext(ctx, query,
		p.ID, p.OwnerID, p.DocumentID, p.Amount, p.Currency,
		nullStr(p.Recipient), p.DueAt, nullStr(p.Reason), string(p.Status), p.CreatedAt)
	return err
}

func (a *ScheduledPaymentAdapter) GetByID(ctx context.Context, id string) (*domain.ScheduledPayment, error) {
	var entity scheduledPaymentEntity
	query := `SELECT * FROM scheduled_payments WHERE id = $1`
	if err := a.db.GetContext(ctx, &entity, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return entity.toDomain(), nil
}

func (a *ScheduledPaymentAdapter) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.ScheduledPayment, error) {
	if limit <= 0 {
		limit = 50
	}
	var entities []scheduledPaymentEntity
	query := `SELECT * FROM scheduled_payments WHERE owner_id = $1 ORDER BY due_at ASC LIMIT ` +
		strconv.Itoa(limit) + ` OFFSET ` + strconv.Itoa(offset)
	if err := a.db.SelectContext(ctx, &entities, query, ownerID); err != nil {
		return nil, err
	}
	payments := make([]*domain.ScheduledPayment, 0, len(entities))
	for i := range entities {
		payments = append(payments, entities[i].toDomain())
	}
	return payments, nil
}

func (a *ScheduledPaymentAdapter) UpdateStatus(ctx context.Context, id string, status domain.PaymentScheduleStatus) error {
	query := `UPDATE scheduled_payments SET status = $2 WHERE id = $1`
	_, err := a.db.ExecContext(ctx, query, id, string(status))
	return err
}
