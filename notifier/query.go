package notifier

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// NoticeFilter narrows the read-side browse query. Zero values mean "no
// constraint".
type NoticeFilter struct {
	Source  string
	Keyword string
	From    *time.Time
	To      *time.Time
	Limit   int
}

// GetAll serves the read-only browse API from the archived notices. It never
// touches ledger state. Results are ordered by parsed open date ascending
// with unparseable dates last.
func GetAll(db *gorm.DB, f NoticeFilter) ([]Notice, error) {
	q := db.Model(&Notice{})
	if s := strings.TrimSpace(f.Source); s != "" {
		q = q.Where("source = ?", s)
	}
	if k := strings.ToLower(strings.TrimSpace(f.Keyword)); k != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+k+"%")
	}
	// Date-range filtering only applies to notices with a parsed open date,
	// matching how the ledger-side sort pushes unknowns out of any range.
	if f.From != nil {
		q = q.Where("open_at IS NOT NULL AND open_at >= ?", f.From)
	}
	if f.To != nil {
		q = q.Where("open_at IS NOT NULL AND open_at <= ?", f.To)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var notices []Notice
	if err := q.Order("open_at IS NULL, open_at ASC, id ASC").Find(&notices).Error; err != nil {
		return nil, err
	}
	return notices, nil
}
