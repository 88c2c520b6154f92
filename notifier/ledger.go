package notifier

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger owns the persisted set of already-notified identities. It is the
// only component allowed to answer or change "has this been sent".
//
// Load and MarkSent are read-modify-write against a single SQLite file with
// no cross-process locking: only one run may execute at a time, and MarkSent
// must be called sequentially from the dispatch loop, never from the parallel
// collection phase.
type Ledger struct {
	db         *gorm.DB
	seen       map[string]string // identity -> link hash at send time
	hashHexLen int
	debug      bool
}

func NewLedger(db *gorm.DB, hashHexLen int, debug bool) *Ledger {
	if hashHexLen <= 0 {
		hashHexLen = 24
	}
	return &Ledger{
		db:         db,
		seen:       make(map[string]string),
		hashHexLen: hashHexLen,
		debug:      debug,
	}
}

func (l *Ledger) debugf(format string, args ...any) {
	if l == nil || !l.debug {
		return
	}
	log.Printf(format, args...)
}

// Load reads every persisted ledger entry into the in-memory set. A missing
// or corrupt store yields an empty set with a warning, never an error:
// favoring a burst of re-sent notifications over a crashed run.
func (l *Ledger) Load() map[string]struct{} {
	l.seen = make(map[string]string)
	if l.db == nil {
		log.Printf("warning: ledger store unavailable, starting with empty ledger")
		return l.identitySet()
	}
	var entries []LedgerEntry
	if err := l.db.Find(&entries).Error; err != nil {
		log.Printf("warning: ledger load failed, starting with empty ledger: %v", err)
		return l.identitySet()
	}
	for _, e := range entries {
		l.seen[e.Identity] = e.LinkHash
	}
	l.debugf("ledger loaded: %d identities", len(l.seen))
	return l.identitySet()
}

func (l *Ledger) identitySet() map[string]struct{} {
	out := make(map[string]struct{}, len(l.seen))
	for id := range l.seen {
		out[id] = struct{}{}
	}
	return out
}

// FilterNew returns the records whose identity is not yet in the ledger.
// Records missing title or source have no identity and are dropped
// unconditionally: neither new nor duplicate.
func (l *Ledger) FilterNew(records []NoticeRecord) []NoticeRecord {
	out := make([]NoticeRecord, 0, len(records))
	for _, r := range records {
		id := ComputeIdentity(r)
		if id == "" {
			l.debugf("drop record without identity: title=%q source=%q", r.Title, r.Source)
			continue
		}
		prevHash, dup := l.seen[id]
		if dup {
			if h := LinkHash(r, l.hashHexLen); h != "" && prevHash != "" && h != prevHash {
				log.Printf("warning: identity collision suspected: identity=%q link=%q", id, r.Link)
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// MarkSent records a successful dispatch: it inserts a ledger entry with the
// current timestamp and persists it before returning. The in-memory set is
// updated even when persistence fails, so the same run never double-sends.
func (l *Ledger) MarkSent(r NoticeRecord) error {
	id := ComputeIdentity(r)
	if id == "" {
		return fmt.Errorf("record has no identity: title=%q source=%q", r.Title, r.Source)
	}
	hash := LinkHash(r, l.hashHexLen)
	l.seen[id] = hash

	if l.db == nil {
		return fmt.Errorf("ledger store unavailable, sent state for %q not persisted", id)
	}
	entry := LedgerEntry{
		Identity: id,
		LinkHash: hash,
		Source:   trimmed(r.Source),
		Title:    trimmed(r.Title),
		OpenDate: trimmed(r.OpenDate),
		Link:     r.Link,
		SentAt:   time.Now().UTC(),
	}
	if err := l.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error; err != nil {
		return fmt.Errorf("persist ledger entry %q: %w", id, err)
	}
	return nil
}

// Prune deletes entries older than the retention window. Housekeeping only;
// dedup correctness does not depend on it.
func (l *Ledger) Prune(retention time.Duration) (int64, error) {
	if l.db == nil || retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-retention)
	res := l.db.Where("sent_at < ?", cutoff).Delete(&LedgerEntry{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		// keep the in-memory set consistent with the store
		l.Load()
	}
	return res.RowsAffected, nil
}

// Recent returns the notice snapshots of the n most recently dispatched
// entries, newest first.
func (l *Ledger) Recent(n int) ([]NoticeRecord, error) {
	if l.db == nil {
		return nil, fmt.Errorf("ledger store unavailable")
	}
	if n <= 0 {
		n = 20
	}
	var entries []LedgerEntry
	if err := l.db.Order("sent_at DESC, id DESC").Limit(n).Find(&entries).Error; err != nil {
		return nil, err
	}
	out := make([]NoticeRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Record())
	}
	return out, nil
}

// History derives aggregate sent counters from the ledger entries.
func (l *Ledger) History() (NotificationHistory, error) {
	h := NotificationHistory{DailyCounts: make(map[string]int)}
	if l.db == nil {
		return h, fmt.Errorf("ledger store unavailable")
	}
	var sentAts []time.Time
	if err := l.db.Model(&LedgerEntry{}).Pluck("sent_at", &sentAts).Error; err != nil {
		return h, err
	}
	for _, ts := range sentAts {
		h.DailyCounts[ts.UTC().Format("2006-01-02")]++
		h.TotalSent++
	}
	return h, nil
}
