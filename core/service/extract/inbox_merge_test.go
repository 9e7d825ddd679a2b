package extract

import (
	"testing"

	"inbox_server/core/domain"
)

func floatPtr(f float64) *float64 { return &f }

func TestMerge_NoAttachments(t *testing.T) {
	email := &domain.ExtractedDocument{DocumentType: domain.DocTypeInvoice, Confidence: 80}
	if got := Merge(email, nil); got != email {
		t.Errorf("Merge with no attachments should return the email extraction unchanged")
	}
}

func TestMerge_LowConfidenceAttachmentsFiltered(t *testing.T) {
	email := &domain.ExtractedDocument{DocumentType: domain.DocTypeReceipt, Confidence: 70}
	atts := []*domain.ExtractedDocument{
		{DocumentType: domain.DocTypeInvoice, Confidence: 59},
		nil,
	}
	if got := Merge(email, atts); got != email {
		t.Errorf("attachments under the confidence floor must not influence the result")
	}
}

func TestMerge_AttachmentWinsOnConfidence(t *testing.T) {
	email := &domain.ExtractedDocument{DocumentType: domain.DocTypeOther, Confidence: 50}
	att := &domain.ExtractedDocument{
		DocumentType: domain.DocTypeInvoice,
		Confidence:   85,
		Amount:       floatPtr(1250),
	}
	got := Merge(email, []*domain.ExtractedDocument{att})
	if got != att {
		t.Fatalf("higher-confidence attachment should win outright")
	}
}

func TestMerge_NilEmail(t *testing.T) {
	att := &domain.ExtractedDocument{DocumentType: domain.DocTypeReceipt, Confidence: 70}
	if got := Merge(nil, []*domain.ExtractedDocument{att}); got != att {
		t.Errorf("nil email extraction should yield the best attachment")
	}
}

func TestMerge_AllNil(t *testing.T) {
	if got := Merge(nil, []*domain.ExtractedDocument{nil}); got != nil {
		t.Errorf("Merge(nil, [nil]) = %+v, want nil", got)
	}
}

func TestMerge_TypePriorityRanking(t *testing.T) {
	atts := []*domain.ExtractedDocument{
		{DocumentType: domain.DocTypeReceipt, Confidence: 95},
		{DocumentType: domain.DocTypeInvoice, Confidence: 65},
	}
	got := Merge(nil, atts)
	if got.DocumentType != domain.DocTypeInvoice {
		t.Errorf("invoice should outrank receipt regardless of confidence, got %s", got.DocumentType)
	}
}

func TestMerge_FieldMerging(t *testing.T) {
	// Email is more confident overall but the attachment has the financial
	// fields; the merged record takes type and fields from the attachment
	// while keeping the higher confidence.
	email := &domain.ExtractedDocument{
		DocumentType: domain.DocTypeOther,
		Confidence:   90,
		Title:        "Payment due",
		SellerName:   "Vendor Inc",
		Rationale:    "body mentions a payment",
		SourceName:   "email body",
	}
	att := &domain.ExtractedDocument{
		DocumentType:  domain.DocTypeInvoice,
		Confidence:    65,
		InvoiceNumber: "INV-2024-001",
		Amount:        floatPtr(1250),
		Currency:      "USD",
		Rationale:     "structured invoice table found",
		SourceName:    "inv.pdf",
	}

	got := Merge(email, []*domain.ExtractedDocument{att})
	if got.DocumentType != domain.DocTypeInvoice {
		t.Errorf("document type = %s, want invoice", got.DocumentType)
	}
	if got.InvoiceNumber != "INV-2024-001" {
		t.Errorf("invoice number = %q, want attachment's", got.InvoiceNumber)
	}
	if got.Amount == nil || *got.Amount != 1250 {
		t.Errorf("amount = %v, want 1250 from attachment", got.Amount)
	}
	if got.Currency != "USD" {
		t.Errorf("currency = %q, want USD", got.Currency)
	}
	if got.Confidence != 90 {
		t.Errorf("confidence = %d, want max(90, 65)", got.Confidence)
	}
	if got.SellerName != "Vendor Inc" {
		t.Errorf("seller = %q, want email fallback when attachment is empty", got.SellerName)
	}
	if got.Rationale == "" || got.Rationale == email.Rationale {
		t.Errorf("rationale should concatenate both sources, got %q", got.Rationale)
	}
}

func TestMerge_OtherTypeKeepsEmailType(t *testing.T) {
	email := &domain.ExtractedDocument{DocumentType: domain.DocTypeReceipt, Confidence: 90}
	att := &domain.ExtractedDocument{DocumentType: domain.DocTypeOther, Confidence: 70, Currency: "EUR"}

	got := Merge(email, []*domain.ExtractedDocument{att})
	if got.DocumentType != domain.DocTypeReceipt {
		t.Errorf("an 'other' attachment must not overwrite the email's type, got %s", got.DocumentType)
	}
	if got.Currency != "EUR" {
		t.Errorf("financial fields still merge from the attachment, currency = %q", got.Currency)
	}
}
