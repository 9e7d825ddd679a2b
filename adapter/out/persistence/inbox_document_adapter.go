package persistence

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"inbox_server/core/domain"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
)

// =============================================================================
// DocumentAdapter - inbox card persistence
// =============================================================================

type DocumentAdapter struct {
	db *sqlx.DB
}

func NewDocumentAdapter(db *sqlx.DB) *DocumentAdapter {
	return &DocumentAdapter{db: db}
}

// =============================================================================
// Entity
// =============================================================================

type documentEntity struct {
	ID              string `db:"id"`
	OwnerID         string `db:"owner_id"`
	SourceMessageID string `db:"source_message_id"`
	SourceType      string `db:"source_type"`
	SubjectHash     sql.NullString `db:"subject_hash"`
	DocumentType    string         `db:"document_type"`

	Title   string         `db:"title"`
	Summary sql.NullString `db:"summary"`

	Amount   sql.NullFloat64 `db:"amount"`
	Currency sql.NullString  `db:"currency"`

	InvoiceNumber sql.NullString `db:"invoice_number"`
	DueDate       sql.NullTime   `db:"due_date"`
	IssueDate     sql.NullTime   `db:"issue_date"`
	BuyerName     sql.NullString `db:"buyer_name"`
	SellerName    sql.NullString `db:"seller_name"`

	Confidence    int            `db:"confidence"`
	Status        string         `db:"status"`
	PaymentStatus string         `db:"payment_status"`
	PaidAt        sql.NullTime   `db:"paid_at"`

	Categories             []byte `db:"categories"`              // jsonb
	ExpenseCategory        sql.NullString `db:"expense_category"`
	AddedToExpenses        bool           `db:"added_to_expenses"`
	AppliedClassifications []byte         `db:"applied_classifications"` // jsonb

	SenderAddress      sql.NullString `db:"sender_address"`
	NormalizedSubject  sql.NullString `db:"normalized_subject"`
	ContentFingerprint sql.NullString `db:"content_fingerprint"`

	HasAttachments  bool   `db:"has_attachments"`
	AttachmentCount int    `db:"attachment_count"`
	AttachmentRefs  []byte `db:"attachment_refs"` // jsonb

	Rationale sql.NullString `db:"rationale"`
	Timestamp time.Time      `db:"timestamp"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (e *documentEntity) toDomain() *domain.Document {
	doc := &domain.Document{
		ID:              e.ID,
		OwnerID:         e.OwnerID,
		SourceMessageID: e.SourceMessageID,
		SourceType:      domain.SourceType(e.SourceType),
		DocumentType:    domain.DocumentType(e.DocumentType),
		Title:           e.Title,
		Confidence:      e.Confidence,
		Status:          domain.DocumentStatus(e.Status),
		PaymentStatus:   domain.PaymentStatus(e.PaymentStatus),
		AddedToExpenses: e.AddedToExpenses,
		HasAttachments:  e.HasAttachments,
		AttachmentCount: e.AttachmentCount,
		Timestamp:       e.Timestamp,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}

	// Nullable fields
	if e.SubjectHash.Valid {
		doc.SubjectHash = e.SubjectHash.String
	}
	if e.Summary.Valid {
		doc.Summary = e.Summary.String
	}
	if e.Amount.Valid {
		v := e.Amount.Float64
		doc.Amount = &v
	}
	if e.Currency.Valid {
		doc.Currency = e.Currency.String
	}
	if e.InvoiceNumber.Valid {
		doc.InvoiceNumber = e.InvoiceNumber.String
	}
	if e.DueDate.Valid {
		t := e.DueDate.Time
		doc.DueDate = &t
	}
	if e.IssueDate.Valid {
		t := e.IssueDate.Time
		doc.IssueDate = &t
	}
	if e.BuyerName.Valid {
		doc.BuyerName = e.BuyerName.String
	}
	if e.SellerName.Valid {
		doc.SellerName = e.SellerName.String
	}
	if e.PaidAt.Valid {
		t := e.PaidAt.Time
		doc.PaidAt = &t
	}
	if e.ExpenseCategory.Valid {
		doc.ExpenseCategory = e.ExpenseCategory.String
	}
	if e.SenderAddress.Valid {
		doc.SenderAddress = e.SenderAddress.String
	}
	if e.NormalizedSubject.Valid {
		doc.NormalizedSubject = e.NormalizedSubject.String
	}
	if e.ContentFingerprint.Valid {
		doc.ContentFingerprint = e.ContentFingerprint.String
	}
	if e.Rationale.Valid {
		doc.Rationale = e.Rationale.String
	}

	// JSON columns
	if len(e.Categories) > 0 {
		_ = json.Unmarshal(e.Categories, &doc.Categories)
	}
	if len(e.AppliedClassifications) > 0 {
		_ = json.Unmarshal(e.AppliedClassifications, &doc.AppliedClassifications)
	}
	if len(e.AttachmentRefs) > 0 {
		_ = json.Unmarshal(e.AttachmentRefs, &doc.AttachmentRefs)
	}

	return doc
}

func marshalJSON(v any) []byte {
	if v == nil {
		return []byte("[]")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("[]")
	}
	return data
}

// =============================================================================
// CRUD
// =============================================================================

// Insert writes a document; the unique index on (owner_id, source_message_id)
// makes a re-insert of an already-seen message a no-op.
func (a *DocumentAdapter) Insert(ctx context.Context, doc *domain.Document) (bool, error) {
	query := `
		INSERT INTO documents (id, owner_id, source_message_id, source_type, subject_hash,
			document_type, title, summary, amount, currency, invoice_number,
			due_date, issue_date, buyer_name, seller_name, confidence, status,
			payment_status, paid_at, categories, expense_category, added_to_expenses,
			applied_classifications, sender_address, normalized_subject,
			content_fingerprint, has_attachments, attachment_count, attachment_refs,
			rationale, timestamp, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29,
			$30, $31, $32, $33)
		ON CONFLICT (owner_id, source_message_id) DO NOTHING`
	res, err := a.db.ExecContext(ctx, query,
		doc.ID, doc.OwnerID, doc.SourceMessageID, string(doc.SourceType), nullStr(doc.SubjectHash),
		string(doc.DocumentType), doc.Title, nullStr(doc.Summary), nullFloat(doc.Amount), nullStr(doc.Currency),
		nullStr(doc.InvoiceNumber), nullTime(doc.DueDate), nullTime(doc.IssueDate),
		nullStr(doc.BuyerName), nullStr(doc.SellerName), doc.Confidence, string(doc.Status),
		string(doc.PaymentStatus), nullTime(doc.PaidAt), marshalJSON(doc.Categories),
		nullStr(doc.ExpenseCategory), doc.AddedToExpenses, marshalJSON(doc.AppliedClassifications),
		nullStr(doc.SenderAddress), nullStr(doc.NormalizedSubject), nullStr(doc.ContentFingerprint),
		doc.HasAttachments, doc.AttachmentCount, marshalJSON(doc.AttachmentRefs), nullStr(doc.Rationale),
		doc.Timestamp, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (a *DocumentAdapter) Update(ctx context.Context, doc *domain.Document) error {
	query := `
		UPDATE documents
		SET document_type = $2, title = $3, summary = $4, amount = $5, currency = $6,
			invoice_number = $7, due_date = $8, issue_date = $9, buyer_name = $10,
			seller_name = $11, confidence = $12, status = $13, payment_status = $14,
			paid_at = $15, categories = $16, expense_category = $17,
			added_to_expenses = $18, applied_classifications = $19, rationale = $20,
			updated_at = NOW()
		WHERE id = $1`
	_, err := a.db.ExecContext(ctx, query,
		doc.ID, string(doc.DocumentType), doc.Title, nullStr(doc.Summary),
		nullFloat(doc.Amount), nullStr(doc.Currency), nullStr(doc.InvoiceNumber),
		nullTime(doc.DueDate), nullTime(doc.IssueDate), nullStr(doc.BuyerName),
		nullStr(doc.SellerName), doc.Confidence, string(doc.Status), string(doc.PaymentStatus),
		nullTime(doc.PaidAt), marshalJSON(doc.Categories), nullStr(doc.ExpenseCategory),
		doc.AddedToExpenses, marshalJSON(doc.AppliedClassifications), nullStr(doc.Rationale))
	return err
}

func (a *DocumentAdapter) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var entity documentEntity
	query := `SELECT * FROM documents WHERE id = $1`
	if err := a.db.GetContext(ctx, &entity, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return entity.toDomain(), nil
}

func (a *DocumentAdapter) GetBySourceMessageID(ctx context.Context, ownerID, sourceMessageID string) (*domain.Document, error) {
	var entity documentEntity
	query := `SELECT * FROM documents WHERE owner_id = $1 AND source_message_id = $2`
	if err := a.db.GetContext(ctx, &entity, query, ownerID, sourceMessageID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return entity.toDomain(), nil
}

func (a *DocumentAdapter) GetBySubjectHash(ctx context.Context, ownerID, subjectHash string) (*domain.Document, error) {
	var entity documentEntity
	query := `SELECT * FROM documents WHERE owner_id = $1 AND subject_hash = $2 LIMIT 1`
	if err := a.db.GetContext(ctx, &entity, query, ownerID, subjectHash); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return entity.toDomain(), nil
}

func (a *DocumentAdapter) ListRecent(ctx context.Context, ownerID string, since time.Time) ([]*domain.Document, error) {
	var entities []documentEntity
	query := `
		SELECT * FROM documents
		WHERE owner_id = $1 AND source_type = 'email' AND created_at > $2
		ORDER BY created_at DESC`
	if err := a.db.SelectContext(ctx, &entities, query, ownerID, since); err != nil {
		return nil, err
	}
	docs := make([]*domain.Document, 0, len(entities))
	for i := range entities {
		docs = append(docs, entities[i].toDomain())
	}
	return docs, nil
}

func (a *DocumentAdapter) List(ctx context.Context, ownerID string, status domain.DocumentStatus, limit, offset int) ([]*domain.Document, int, error) {
	if limit <= 0 {
		limit = 50
	}

	where := `WHERE owner_id = $1`
	args := []any{ownerID}
	if status != "" {
		where += ` AND status = $2`
		args = append(args, string(status))
	}

	var total int
	if err := a.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM documents `+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT * FROM documents ` + where +
		` ORDER BY timestamp DESC LIMIT ` + strconv.Itoa(limit) + ` OFFSET ` + strconv.Itoa(offset)
	var entities []documentEntity
	if err := a.db.SelectContext(ctx, &entities, query, args...); err != nil {
		return nil, 0, err
	}
	docs := make([]*domain.Document, 0, len(entities))
	for i := range entities {
		docs = append(docs, entities[i].toDomain())
	}
	return docs, total, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
