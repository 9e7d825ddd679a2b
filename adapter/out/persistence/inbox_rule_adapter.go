package persistence

import (
	"context"
	"database/sql"
	"time"

	"inbox_server/core/domain"

	"github.com/jmoiron/sqlx"
)

// =============================================================================
// RuleAdapter - classification rule persistence
// =============================================================================

type RuleAdapter struct {
	db *sqlx.DB
}

func NewRuleAdapter(db *sqlx.DB) *RuleAdapter {
	return &RuleAdapter{db: db}
}

// =============================================================================
// Entity
// =============================================================================

type ruleEntity struct {
	ID        string    `db:"id"`
	OwnerID   string    `db:"owner_id"`
	Name      string    `db:"name"`
	Prompt    string    `db:"prompt"`
	Priority  int       `db:"priority"`
	Enabled   bool      `db:"enabled"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (e *ruleEntity) toDomain() *domain.ClassificationRule {
	return &domain.ClassificationRule{
		ID:        e.ID,
		OwnerID:   e.OwnerID,
		Name:      e.Name,
		Prompt:    e.Prompt,
		Priority:  e.Priority,
		Enabled:   e.Enabled,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// =============================================================================
// CRUD
// =============================================================================

// ListEnabled orders by priority ascending, created_at as the stable tiebreak.
func (a *RuleAdapter) ListEnabled(ctx context.Context, ownerID string) ([]*domain.ClassificationRule, error) {
	var entities []ruleEntity
	query := `
		SELECT * FROM classification_rules
		WHERE owner_id = $1 AND enabled = TRUE
		ORDER BY priority ASC, created_at ASC`
	if err := a.db.SelectContext(ctx, &entities, query, ownerID); err != nil {
		return nil, err
	}
	rules := make([]*domain.ClassificationRule, 0, len(entities))
	for i := range entities {
		rules = append(rules, entities[i].toDomain())
	}
	return rules, nil
}

func (a *RuleAdapter) List(ctx context.Context, ownerID string) ([]*domain.ClassificationRule, error) {
	var entities []ruleEntity
	query := `
		SELECT * FROM classification_rules
		WHERE owner_id = $1
		ORDER BY priority ASC, created_at ASC`
	if err := a.db.SelectContext(ctx, &entities, query, ownerID); err != nil {
		return nil, err
	}
	rules := make([]*domain.ClassificationRule, 0, len(entities))
	for i := range entities {
		rules = append(rules, entities[i].toDomain())
	}
	return rules, nil
}

func (a *RuleAdapter) GetByID(ctx context.Context, ownerID, id string) (*domain.ClassificationRule, error) {
	var entity ruleEntity
	query := `SELECT * FROM classification_rules WHERE owner_id = $1 AND id = $2`
	if err := a.db.GetContext(ctx, &entity, query, ownerID, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return entity.toDomain(), nil
}

func (a *RuleAdapter) Create(ctx context.Context, rule *domain.ClassificationRule) error {
	query := `
		INSERT INTO classification_rules (id, owner_id, name, prompt, priority, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`
	_, err := a.db.ExecContext(ctx, query,
		rule.ID, rule.OwnerID, rule.Name, rule.Prompt, rule.Priority, rule.Enabled)
	return err
}

func (a *RuleAdapter) Update(ctx context.Context, rule *domain.ClassificationRule) error {
	query := `
		UPDATE classification_rules
		SET name = $3, prompt = $4, priority = $5, enabled = $6, updated_at = NOW()
		WHERE owner_id = $1 AND id = $2`
	_, err := a.db.ExecContext(ctx, query,
		rule.OwnerID, rule.ID, rule.Name, rule.Prompt, rule.Priority, rule.Enabled)
	return err
}

func (a *RuleAdapter) Delete(ctx context.Context, ownerID, id string) error {
	query := `DELETE FROM classification_rules WHERE owner_id = $1 AND id = $2`
	_, err := a.db.ExecContext(ctx, query, ownerID, id)
	return err
}
