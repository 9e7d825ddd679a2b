package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/ledongthuc/pdf"

	"inbox_server/core/domain"
	"inbox_server/pkg/logger"
)

// maxExtractionChars caps how much source text is sent per extraction call.
const maxExtractionChars = 8000

const extractionSystemPrompt = `You are a financial document extractor. Given raw email or document text,
decide whether it represents a financial artifact (invoice, receipt, payment
reminder, bank notification) and extract its structured fields.

Respond with a JSON object:
{
  "is_financial": bool,
  "document_type": "invoice" | "receipt" | "payment_reminder" | "other",
  "confidence": 0-100,
  "title": string,
  "summary": string,
  "invoice_number": string or null,
  "amount": number or null,
  "currency": ISO code or null,
  "due_date": "YYYY-MM-DD" or null,
  "issue_date": "YYYY-MM-DD" or null,
  "buyer_name": string or null,
  "seller_name": string or null,
  "items": [{"description": string, "quantity": number, "unit_price": number, "total": number}],
  "rationale": short explanation of the decision
}
Set is_financial to false when the text is not a financial document.`

// Extractor implements the AI extraction port.
type Extractor struct {
	client *Client
	log    *logger.Logger
}

func NewExtractor(client *Client, log *logger.Logger) *Extractor {
	return &Extractor{client: client, log: log}
}

type extractionPayload struct {
	IsFinancial   bool     `json:"is_financial"`
	DocumentType  string   `json:"document_type"`
	Confidence    int      `json:"confidence"`
	Title         string   `json:"title"`
	Summary       string   `json:"summary"`
	InvoiceNumber *string  `json:"invoice_number"`
	Amount        *float64 `json:"amount"`
	Currency      *string  `json:"currency"`
	DueDate       *string  `json:"due_date"`
	IssueDate     *string  `json:"issue_date"`
	BuyerName     *string  `json:"buyer_name"`
	SellerName    *string  `json:"seller_name"`
	Items         []struct {
		Description string   `json:"description"`
		Quantity    *float64 `json:"quantity"`
		UnitPrice   *float64 `json:"unit_price"`
		Total       *float64 `json:"total"`
	} `json:"items"`
	Rationale string `json:"rationale"`
}

// ExtractFromText extracts a structured document from raw text. Returns
// nil when the text is not financial.
func (e *Extractor) ExtractFromText(ctx context.Context, text, subjectHint string) (*domain.ExtractedDocument, error) {
	if strings.TrimSpace(text) == "" && strings.TrimSpace(subjectHint) == "" {
		return nil, nil
	}

	userPrompt := fmt.Sprintf("Subject: %s\n\nContent:\n%s", subjectHint, truncate(text, maxExtractionChars))
	raw, err := e.client.CompleteJSON(ctx, extractionSystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	var payload extractionPayload
	if err := json.Unmarshal([]byte(trimJSONFence(raw)), &payload); err != nil {
		e.log.WithError(err).Warn("[Extractor.ExtractFromText] unparseable response")
		return nil, nil
	}
	if !payload.IsFinancial {
		return nil, nil
	}
	return payload.toDomain(), nil
}

// ExtractFromPDF pulls plain text out of a PDF and runs text extraction on
// it. Unreadable PDFs yield nil, not an error.
func (e *Extractor) ExtractFromPDF(ctx context.Context, data []byte, filename string) (*domain.ExtractedDocument, error) {
	text, err := pdfText(data)
	if err != nil {
		e.log.WithError(err).Warn("[Extractor.ExtractFromPDF] unreadable pdf: %s", filename)
		return nil, nil
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return e.ExtractFromText(ctx, text, filename)
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	r, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if _, err := io.Copy(&b, r); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (p *extractionPayload) toDomain() *domain.ExtractedDocument {
	doc := &domain.ExtractedDocument{
		DocumentType: parseDocType(p.DocumentType),
		Confidence:   clampConfidence(p.Confidence),
		Title:        p.Title,
		Summary:      p.Summary,
		Amount:       p.Amount,
		Rationale:    p.Rationale,
	}
	if p.InvoiceNumber != nil {
		doc.InvoiceNumber = *p.InvoiceNumber
	}
	if p.Currency != nil {
		doc.Currency = strings.ToUpper(*p.Currency)
	}
	if p.BuyerName != nil {
		doc.BuyerName = *p.BuyerName
	}
	if p.SellerName != nil {
		doc.SellerName = *p.SellerName
	}
	doc.DueDate = parseDate(p.DueDate)
	doc.IssueDate = parseDate(p.IssueDate)
	for _, item := range p.Items {
		doc.Items = append(doc.Items, domain.LineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
		})
	}
	return doc
}

func parseDocType(s string) domain.DocumentType {
	switch domain.DocumentType(strings.ToLower(s)) {
	case domain.DocTypeInvoice:
		return domain.DocTypeInvoice
	case domain.DocTypeReceipt:
		return domain.DocTypeReceipt
	case domain.DocTypePaymentReminder:
		return domain.DocTypePaymentReminder
	default:
		return domain.DocTypeOther
	}
}

func parseDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil
	}
	return &t
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
