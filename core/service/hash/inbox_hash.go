// Package hash computes the normalized digests used for duplicate detection.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"inbox_server/core/domain"
)

// NormalizeSubject lower-cases a subject and strips any leading reply/forward
// prefixes ("re:", "fwd:", "fw:"), repeatedly.
func NormalizeSubject(subject string) string {
	s := strings.ToLower(strings.TrimSpace(subject))
	for {
		stripped := false
		for _, prefix := range []string{"re:", "fwd:", "fw:"} {
			if rest, ok := strings.CutPrefix(s, prefix); ok {
				s = strings.TrimSpace(rest)
				stripped = true
			}
		}
		if !stripped {
			return s
		}
	}
}

// SubjectHash returns a stable digest of the normalized subject.
// ok is false when the normalized subject is empty.
func SubjectHash(subject string) (string, bool) {
	normalized := NormalizeSubject(subject)
	if normalized == "" {
		return "", false
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:]), true
}

// ContentFingerprint digests normalized subject + sender + snippet + sorted
// attachment filenames. Always defined, used as a coarse secondary signal.
func ContentFingerprint(msg *domain.InboundMessage) string {
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, strings.ToLower(a.Filename))
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(NormalizeSubject(msg.Subject))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(strings.TrimSpace(msg.From)))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(msg.Snippet))
	b.WriteByte('|')
	b.WriteString(strings.Join(names, ","))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
