package notifier

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *Ledger {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "tickets.db"))
	if err != nil {
		t.Fatal(err)
	}
	l := NewLedger(db, 24, false)
	l.Load()
	return l
}

func TestLedger_FilterNewIdempotence(t *testing.T) {
	l := openTestDB(t)

	batch := []NoticeRecord{
		{Title: "IU Concert", OpenDate: "2025.03.01 18:00", Source: "interpark", Link: "http://x"},
		{Title: "BTS Fanmeeting", OpenDate: "2025.04.01 20:00", Source: "yes24", Link: "http://y"},
	}

	first := l.FilterNew(batch)
	if len(first) != 2 {
		t.Fatalf("expected 2 new records, got %d", len(first))
	}
	for _, r := range first {
		if err := l.MarkSent(r); err != nil {
			t.Fatal(err)
		}
	}

	second := l.FilterNew(batch)
	if len(second) != 0 {
		t.Fatalf("expected 0 new records on second pass, got %d", len(second))
	}
}

func TestLedger_SurvivesRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tickets.db")
	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	l := NewLedger(db, 24, false)
	l.Load()

	rec := NoticeRecord{Title: "IU Concert", OpenDate: "2025.03.01 18:00", Source: "interpark", Link: "http://x"}
	if err := l.MarkSent(rec); err != nil {
		t.Fatal(err)
	}

	// new process, same file
	db2, err := OpenDB(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	l2 := NewLedger(db2, 24, false)
	l2.Load()
	if out := l2.FilterNew([]NoticeRecord{rec}); len(out) != 0 {
		t.Fatalf("identity should survive restart, got %d new", len(out))
	}
}

func TestLedger_DropsRecordsWithoutIdentity(t *testing.T) {
	l := openTestDB(t)
	out := l.FilterNew([]NoticeRecord{{Title: "", Source: "yes24", OpenDate: "x"}})
	if len(out) != 0 {
		t.Fatalf("expected empty result, got %d", len(out))
	}

	var count int64
	if err := l.db.Model(&LedgerEntry{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("invalid record must not be persisted, found %d entries", count)
	}
}

func TestLedger_CorruptStoreYieldsEmptySet(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tickets.db")
	if err := os.WriteFile(dbPath, []byte("not a sqlite database at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	db, err := OpenDB(dbPath)
	if err != nil {
		// the open itself failed; the ledger must still operate
		db = nil
	}
	l := NewLedger(db, 24, false)
	seen := l.Load()
	if len(seen) != 0 {
		t.Fatalf("corrupt store should yield an empty set, got %d", len(seen))
	}

	rec := NoticeRecord{Title: "show", Source: "melon", OpenDate: "x"}
	if out := l.FilterNew([]NoticeRecord{rec}); len(out) != 1 {
		t.Fatalf("empty ledger should treat everything as new, got %d", len(out))
	}
}

func TestLedger_MarkSentWithoutStoreStillDedupesInProcess(t *testing.T) {
	l := NewLedger(nil, 24, false)
	l.Load()

	rec := NoticeRecord{Title: "show", Source: "melon", OpenDate: "x"}
	if err := l.MarkSent(rec); err == nil {
		t.Fatal("expected persistence error with nil store")
	}
	if out := l.FilterNew([]NoticeRecord{rec}); len(out) != 0 {
		t.Fatal("in-memory set must still suppress duplicates within the run")
	}
}

func TestLedger_Prune(t *testing.T) {
	l := openTestDB(t)

	old := LedgerEntry{
		Identity: "melon_old show_2024.01.01",
		Source:   "melon", Title: "old show", OpenDate: "2024.01.01",
		SentAt: time.Now().UTC().Add(-40 * 24 * time.Hour),
	}
	if err := l.db.Create(&old).Error; err != nil {
		t.Fatal(err)
	}
	if err := l.MarkSent(NoticeRecord{Title: "new show", Source: "melon", OpenDate: "2025.01.01"}); err != nil {
		t.Fatal(err)
	}

	pruned, err := l.Prune(30 * 24 * time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", pruned)
	}

	seen := l.Load()
	if _, ok := seen["melon_old show_2024.01.01"]; ok {
		t.Fatal("pruned identity still present after reload")
	}
	if len(seen) != 1 {
		t.Fatalf("expected 1 remaining identity, got %d", len(seen))
	}
}

func TestLedger_Recent(t *testing.T) {
	l := openTestDB(t)

	entries := []LedgerEntry{
		{Identity: "interpark_a_2025.03.01", Source: "interpark", Title: "a",
			OpenDate: "2025.03.01", Link: "http://a", SentAt: time.Now().UTC().Add(-2 * time.Hour)},
		{Identity: "yes24_b_2025.03.02", Source: "yes24", Title: "b",
			OpenDate: "2025.03.02", Link: "http://b", SentAt: time.Now().UTC().Add(-time.Hour)},
		{Identity: "melon_c_2025.03.03", Source: "melon", Title: "c",
			OpenDate: "2025.03.03", Link: "http://c", SentAt: time.Now().UTC()},
	}
	for i := range entries {
		if err := l.db.Create(&entries[i]).Error; err != nil {
			t.Fatal(err)
		}
	}

	recent, err := l.Recent(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recent))
	}
	if recent[0].Title != "c" || recent[1].Title != "b" {
		t.Fatalf("expected newest first, got %+v", recent)
	}
	if recent[0].Source != "melon" || recent[0].Link != "http://c" || recent[0].OpenDate != "2025.03.03" {
		t.Fatalf("snapshot fields not reconstructed: %+v", recent[0])
	}
}

func TestLedger_History(t *testing.T) {
	l := openTestDB(t)
	for _, r := range []NoticeRecord{
		{Title: "a", Source: "interpark", OpenDate: "2025.03.01"},
		{Title: "b", Source: "interpark", OpenDate: "2025.03.02"},
	} {
		if err := l.MarkSent(r); err != nil {
			t.Fatal(err)
		}
	}

	h, err := l.History()
	if err != nil {
		t.Fatal(err)
	}
	if h.TotalSent != 2 {
		t.Fatalf("expected total 2, got %d", h.TotalSent)
	}
	today := time.Now().UTC().Format("2006-01-02")
	if h.DailyCounts[today] != 2 {
		t.Fatalf("expected 2 sends for %s, got %d", today, h.DailyCounts[today])
	}
}
