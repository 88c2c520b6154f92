package notifier

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

func trimmed(s string) string {
	return strings.TrimSpace(s)
}

// normalizeField trims and lower-cases a field so incidental formatting
// differences from scrapers do not produce spurious "new" records.
func normalizeField(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ComputeIdentity derives the deterministic dedup key for a record:
// normalized source, title and open_date joined with "_". Two records with
// equal identity are the same notice across runs even if other fields differ.
//
// The open date is part of the key on purpose: when a site reschedules an
// already-known notice, the new date is a new identity and is dispatched
// again. Re-notifying on a date change is the behavior subscribers want.
//
// Returns "" for records missing title or source; such records have no
// identity and must be dropped.
func ComputeIdentity(r NoticeRecord) string {
	title := normalizeField(r.Title)
	source := normalizeField(r.Source)
	if title == "" || source == "" {
		return ""
	}
	return source + "_" + title + "_" + normalizeField(r.OpenDate)
}

// LinkHash hashes the record's normalized link into a short secondary key.
// It is stored next to the identity for collision diagnostics and is not
// itself consulted when filtering.
func LinkHash(r NoticeRecord, hexLen int) string {
	link := normalizeField(r.Link)
	if link == "" || link == normalizeField(LinkPlaceholder) {
		return ""
	}
	sum := sha256.Sum256([]byte(link))
	full := hex.EncodeToString(sum[:])
	if hexLen <= 0 || hexLen >= len(full) {
		return full
	}
	return full[:hexLen]
}
