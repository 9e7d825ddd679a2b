package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"inbox_server/core/domain"
	"inbox_server/core/port/out"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

// =============================================================================
// JobAdapter - sync job persistence
// =============================================================================

type JobAdapter struct {
	db *sqlx.DB
}

func NewJobAdapter(db *sqlx.DB) *JobAdapter {
	return &JobAdapter{db: db}
}

// =============================================================================
// Entity
// =============================================================================

type jobEntity struct {
	ID                string         `db:"id"`
	OwnerID           string         `db:"owner_id"`
	Status            string         `db:"status"`
	CardsAdded        int            `db:"cards_added"`
	ProcessedCount    int            `db:"processed_count"`
	ContinuationToken sql.NullString `db:"continuation_token"`
	CurrentAction     sql.NullString `db:"current_action"`
	Error             sql.NullString `db:"error"`
	CreatedAt         time.Time      `db:"created_at"`
	StartedAt         sql.NullTime   `db:"started_at"`
	FinishedAt        sql.NullTime   `db:"finished_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func (e *jobEntity) toDomain() *domain.SyncJob {
	job := &domain.SyncJob{
		ID:             e.ID,
		OwnerID:        e.OwnerID,
		Status:         domain.JobStatus(e.Status),
		CardsAdded:     e.CardsAdded,
		ProcessedCount: e.ProcessedCount,
		CreatedAt:      e.CreatedAt,
	}

	// Nullable fields
	if e.ContinuationToken.Valid {
		job.ContinuationToken = e.ContinuationToken.String
	}
	if e.CurrentAction.Valid {
		job.CurrentAction = e.CurrentAction.String
	}
	if e.Error.Valid {
		job.Error = e.Error.String
	}
	if e.StartedAt.Valid {
		t := e.StartedAt.Time
		job.StartedAt = &t
	}
	if e.FinishedAt.Valid {
		t := e.FinishedAt.Time
		job.FinishedAt = &t
	}

	return job
}

// =============================================================================
// CRUD
// =============================================================================

func (a *JobAdapter) Create(ctx context.Context, job *domain.SyncJob) error {
	query := `
		INSERT INTO sync_jobs (id, owner_id, status, cards_added, processed_count,
			continuation_token, current_action, error, created_at, started_at, finished_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())`
	_, err := a.db.ExecContext(ctx, query,
		job.ID, job.OwnerID, string(job.Status), job.CardsAdded, job.ProcessedCount,
		nullStr(job.ContinuationToken), nullStr(job.CurrentAction), nullStr(job.Error),
		job.CreatedAt, nullTime(job.StartedAt), nullTime(job.FinishedAt))
	// The partial unique index sync_jobs_one_active_per_owner rejects a second
	// pending/running job for the same owner.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return out.ErrDuplicateActiveJob
	}
	return err
}

func (a *JobAdapter) Update(ctx context.Context, job *domain.SyncJob) error {
	query := `
		UPDATE sync_jobs
		SET status = $2, cards_added = $3, processed_count = $4,
			continuation_token = $5, current_action = $6, error = $7,
			started_at = $8, finished_at = $9, updated_at = NOW()
		WHERE id = $1`
	_, err := a.db.ExecContext(ctx, query,
		job.ID, string(job.Status), job.CardsAdded, job.ProcessedCount,
		nullStr(job.ContinuationToken), nullStr(job.CurrentAction), nullStr(job.Error),
		nullTime(job.StartedAt), nullTime(job.FinishedAt))
	return err
}

func (a *JobAdapter) GetByID(ctx context.Context, id string) (*domain.SyncJob, error) {
	var entity jobEntity
	query := `SELECT * FROM sync_jobs WHERE id = $1`
	if err := a.db.GetContext(ctx, &entity, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return entity.toDomain(), nil
}

func (a *JobAdapter) GetLatestByOwner(ctx context.Context, ownerID string) (*domain.SyncJob, error) {
	var entity jobEntity
	query := `SELECT * FROM sync_jobs WHERE owner_id = $1 ORDER BY created_at DESC LIMIT 1`
	if err := a.db.GetContext(ctx, &entity, query, ownerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return entity.toDomain(), nil
}

func (a *JobAdapter) GetActiveByOwner(ctx context.Context, ownerID string) (*domain.SyncJob, error) {
	var entity jobEntity
	query := `
		SELECT * FROM sync_jobs
		WHERE owner_id = $1 AND status IN ('pending', 'running')
		ORDER BY created_at DESC
		LIMIT 1`
	if err := a.db.GetContext(ctx, &entity, query, ownerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return entity.toDomain(), nil
}

func (a *JobAdapter) ListStalled(ctx context.Context, cutoff time.Time) ([]*domain.SyncJob, error) {
	var entities []jobEntity
	query := `SELECT * FROM sync_jobs WHERE status = 'running' AND updated_at < $1`
	if err := a.db.SelectContext(ctx, &entities, query, cutoff); err != nil {
		return nil, err
	}
	jobs := make([]*domain.SyncJob, 0, len(entities))
	for i := range entities {
		jobs = append(jobs, entities[i].toDomain())
	}
	return jobs, nil
}

// =============================================================================
// Helpers
// =============================================================================

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
