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
// LedgerAdapter - append-only action ledger
// =============================================================================

type LedgerAdapter struct {
	db *sqlx.DB
}

func NewLedgerAdapter(db *sqlx.DB) *LedgerAdapter {
	return &LedgerAdapter{db: db}
}

type ledgerEntity struct {
	ID         int64          `db:"id"`
	OwnerID    string         `db:"owner_id"`
	DocumentID string         `db:"document_id"`
	Type       string         `db:"type"`
	RuleID     sql.NullString `db:"rule_id"`
	Detail     sql.NullString `db:"detail"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (e *ledgerEntity) toDomain() *domain.ActionEntry {
	entry := &domain.ActionEntry{
		ID:         e.ID,
		OwnerID:    e.OwnerID,
		DocumentID: e.DocumentID,
		Type:       domain.ActionEntryType(e.Type),
		CreatedAt:  e.CreatedAt,
	}
	if e.RuleID.Valid {
		entry.RuleID = e.RuleID.String
	}
	if e.Detail.Valid {
		entry.Detail = e.Detail.String
	}
	return entry
}

func (a *LedgerAdapter) Append(ctx context.Context, entry *domain.ActionEntry) error {
	query := `
		INSERT INTO action_ledger (id, owner_id, document_id, type, rule_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := a.db.ExecContext(ctx, query,
		entry.ID, entry.OwnerID, entry.DocumentID, string(entry.Type),
		nullStr(entry.RuleID), nullStr(entry.Detail), entry.CreatedAt)
	return err
}

func (a *LedgerAdapter) ListByDocument(ctx context.Context, documentID string) ([]*domain.ActionEntry, error) {
	var entities []ledgerEntity
	query := `SELECT * FROM action_ledger WHERE document_id = $1 ORDER BY id ASC`
	if err := a.db.SelectContext(ctx, &entities, query, documentID); err != nil {
		return nil, err
	}
	entries := make([]*domain.ActionEntry, 0, len(entities))
	for i := range entities {
		entries = append(entries, entities[i].toDomain())
	}
	return entries, nil
}

func (a *LedgerAdapter) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.ActionEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entities []ledgerEntity
	query := `SELECT * FROM action_ledger WHERE owner_id = $1 ORDER BY id DESC LIMIT ` +
		strconv.Itoa(limit) + ` OFFSET ` + strconv.Itoa(offset)
	if err := a.db.SelectContext(ctx, &entities, query, ownerID); err != nil {
		return nil, err
	}
	entries := make([]*domain.ActionEntry, 0, len(entities))
	for i := range entities {
		entries = append(entries, entities[i].toDomain())
	}
	return entries, nil
}
