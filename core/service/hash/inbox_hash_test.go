package hash

import (
	"testing"

	"inbox_server/core/domain"
)

func TestNormalizeSubject(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		want    string
	}{
		{"plain", "Invoice #1234", "invoice #1234"},
		{"reply prefix", "Re: Invoice #1234", "invoice #1234"},
		{"forward prefix", "Fwd: Invoice #1234", "invoice #1234"},
		{"short forward prefix", "FW: Invoice #1234", "invoice #1234"},
		{"stacked prefixes", "Re: Fwd: Re: Invoice #1234", "invoice #1234"},
		{"surrounding whitespace", "  Invoice #1234  ", "invoice #1234"},
		{"empty", "", ""},
		{"prefix only", "Re:", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeSubject(tt.subject); got != tt.want {
				t.Errorf("NormalizeSubject(%q) = %q, want %q", tt.subject, got, tt.want)
			}
		})
	}
}

func TestSubjectHash(t *testing.T) {
	h1, ok := SubjectHash("Invoice #1234")
	if !ok {
		t.Fatal("expected hash for non-empty subject")
	}
	h2, ok := SubjectHash("Re: invoice #1234")
	if !ok {
		t.Fatal("expected hash for non-empty subject")
	}
	if h1 != h2 {
		t.Errorf("reply variant should hash identically: %q != %q", h1, h2)
	}

	if _, ok := SubjectHash("   "); ok {
		t.Error("blank subject should not produce a hash")
	}
	if _, ok := SubjectHash("Fwd: "); ok {
		t.Error("prefix-only subject should not produce a hash")
	}

	h3, _ := SubjectHash("Receipt #1234")
	if h1 == h3 {
		t.Error("different subjects must not collide")
	}
}

func TestContentFingerprint_Deterministic(t *testing.T) {
	msg := &domain.InboundMessage{
		Subject: "Invoice #1234",
		From:    "billing@vendor.com",
		Snippet: "Your invoice is attached",
		Attachments: []domain.Attachment{
			{Filename: "b.pdf"},
			{Filename: "A.pdf"},
		},
	}
	fp1 := ContentFingerprint(msg)
	if fp1 == "" {
		t.Fatal("fingerprint must always be defined")
	}

	// attachment order must not matter
	swapped := *msg
	swapped.Attachments = []domain.Attachment{
		{Filename: "a.pdf"},
		{Filename: "B.pdf"},
	}
	if fp2 := ContentFingerprint(&swapped); fp1 != fp2 {
		t.Errorf("fingerprint changed with attachment order/case: %q != %q", fp1, fp2)
	}
}

func TestContentFingerprint_Distinguishes(t *testing.T) {
	base := domain.InboundMessage{
		Subject: "Invoice #1234",
		From:    "billing@vendor.com",
		Snippet: "Your invoice is attached",
	}
	fp := ContentFingerprint(&base)

	otherSender := base
	otherSender.From = "noreply@vendor.com"
	if ContentFingerprint(&otherSender) == fp {
		t.Error("different sender should change the fingerprint")
	}

	otherAttachments := base
	otherAttachments.Attachments = []domain.Attachment{{Filename: "inv.pdf"}}
	if ContentFingerprint(&otherAttachments) == fp {
		t.Error("added attachment should change the fingerprint")
	}
}
