package notifier

import "time"

// LinkPlaceholder is stored when a collector could not extract a link.
const LinkPlaceholder = "링크 없음"

// NoticeRecord is one observed ticket-opening notice as produced by a
// collector adapter. CollectedAt is assigned at ingestion, never by the
// collector itself.
type NoticeRecord struct {
	Title       string    `json:"title"`
	OpenDate    string    `json:"open_date"`
	Link        string    `json:"link"`
	Source      string    `json:"source"`
	CollectedAt time.Time `json:"collected_at"`
}

// Valid reports whether the record can be assigned an identity.
// Records without title or source are dropped before ledger processing.
func (r NoticeRecord) Valid() bool {
	return trimmed(r.Title) != "" && trimmed(r.Source) != ""
}

// Notice is the persisted archive row for every validated record the
// aggregator has ever seen. It backs the read-side browse API and has no
// effect on dedup correctness.
type Notice struct {
	ID          uint   `gorm:"primaryKey"`
	Identity    string `gorm:"uniqueIndex;size:512"`
	Source      string `gorm:"index;size:64"`
	Title       string `gorm:"size:512"`
	OpenDate    string `gorm:"size:128"`
	Link        string `gorm:"size:1024"`
	CollectedAt time.Time
	// OpenAt is the parsed open date; nil when the free-form string did not
	// match any known pattern.
	OpenAt *time.Time `gorm:"index"`
}

// LedgerEntry records one successfully dispatched identity. The set of
// ledger entries is the sole owner of "has this been sent" state.
type LedgerEntry struct {
	ID       uint   `gorm:"primaryKey"`
	Identity string `gorm:"uniqueIndex;size:512"`
	// LinkHash is a secondary key over the record's link, kept for collision
	// diagnostics; it is not part of the identity.
	LinkHash string    `gorm:"index;size:64"`
	Source   string    `gorm:"index;size:64"`
	Title    string    `gorm:"size:512"`
	OpenDate string    `gorm:"size:128"`
	Link     string    `gorm:"size:1024"`
	SentAt   time.Time `gorm:"index"`
}

// Record reconstructs the notice snapshot stored on the entry.
func (e LedgerEntry) Record() NoticeRecord {
	return NoticeRecord{
		Title:    e.Title,
		OpenDate: e.OpenDate,
		Link:     e.Link,
		Source:   e.Source,
	}
}

// NotificationHistory aggregates sent counters for reporting.
type NotificationHistory struct {
	DailyCounts map[string]int `json:"daily_counts"`
	TotalSent   int            `json:"total_sent"`
}
