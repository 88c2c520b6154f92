package notifier

import (
	"regexp"
	"sort"
	"strconv"
	"time"
)

// UnparseableDate is returned when no pattern matches. It sorts after every
// real date, so callers ordering ascending put unknown entries last.
var UnparseableDate = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// IsUnparseable reports whether t is the unparseable sentinel.
func IsUnparseable(t time.Time) bool {
	return t.Equal(UnparseableDate)
}

type dateExtractor func(groups []string, now time.Time) (time.Time, bool)

type datePattern struct {
	re      *regexp.Regexp
	extract dateExtractor
}

// bracketPrefix strips markers like "[단독판매]" or "[오픈]" off the front of
// human-entered date strings before pattern matching.
var bracketPrefix = regexp.MustCompile(`^\s*(?:\[[^\]]*\]\s*)+`)

// datePatterns is evaluated in order; the first match wins. Patterns with an
// explicit year come first so a month/day pattern can never swallow a 4-digit
// year as the day.
var datePatterns = []datePattern{
	// YYYY.MM.DD HH:MM (also - and / separators)
	{
		re: regexp.MustCompile(`(\d{4})[.\-/](\d{1,2})[.\-/](\d{1,2})\s+(\d{1,2}):(\d{1,2})`),
		extract: func(g []string, _ time.Time) (time.Time, bool) {
			return makeDate(atoi(g[1]), atoi(g[2]), atoi(g[3]), atoi(g[4]), atoi(g[5]))
		},
	},
	// YYYY.MM.DD
	{
		re: regexp.MustCompile(`(\d{4})[.\-/](\d{1,2})[.\-/](\d{1,2})`),
		extract: func(g []string, _ time.Time) (time.Time, bool) {
			return makeDate(atoi(g[1]), atoi(g[2]), atoi(g[3]), 0, 0)
		},
	},
	// MM.DD(요일) HH:MM with implied year; the leading boundary keeps a
	// 4-digit year from being split into month/day.
	{
		re: regexp.MustCompile(`(?:^|[^0-9.])(\d{1,2})[.\-/](\d{1,2})\s*(?:\([가-힣]\))?\s*(\d{1,2}):(\d{1,2})`),
		extract: func(g []string, now time.Time) (time.Time, bool) {
			return makeImpliedYearDate(now, atoi(g[1]), atoi(g[2]), atoi(g[3]), atoi(g[4]))
		},
	},
	// N월 N일 [오전/오후] N시 N분 with implied year
	{
		re: regexp.MustCompile(`(\d{1,2})월\s*(\d{1,2})일\s*(?:\([가-힣]\))?\s*(오전|오후)?\s*(\d{1,2})시\s*(\d{1,2})분`),
		extract: func(g []string, now time.Time) (time.Time, bool) {
			return makeImpliedYearDate(now, atoi(g[1]), atoi(g[2]), meridiemHour(g[3], atoi(g[4])), atoi(g[5]))
		},
	},
	// N월 N일 ... [오전/오후] N시 (오픈 notices that omit the minute)
	{
		re: regexp.MustCompile(`(\d{1,2})월\s*(\d{1,2})일\s*(?:\([가-힣]\))?[^0-9]*?(오전|오후)?\s*(\d{1,2})시`),
		extract: func(g []string, now time.Time) (time.Time, bool) {
			return makeImpliedYearDate(now, atoi(g[1]), atoi(g[2]), meridiemHour(g[3], atoi(g[4])), 0)
		},
	},
}

// meridiemHour converts a 12-hour clock hour to 24-hour when the notice
// carries an 오전/오후 marker.
func meridiemHour(marker string, hour int) int {
	switch marker {
	case "오후":
		if hour < 12 {
			hour += 12
		}
	case "오전":
		if hour == 12 {
			hour = 0
		}
	}
	return hour
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func makeDate(year, month, day, hour, min int) (time.Time, bool) {
	if !fieldsInRange(month, day, hour, min) {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, hour, min, 0, 0, time.Local), true
}

// makeImpliedYearDate fills in the current year. A result strictly in the
// past rolls forward to next year, so end-of-year notices keep their
// "upcoming" semantics.
func makeImpliedYearDate(now time.Time, month, day, hour, min int) (time.Time, bool) {
	if !fieldsInRange(month, day, hour, min) {
		return time.Time{}, false
	}
	t := time.Date(now.Year(), time.Month(month), day, hour, min, 0, 0, now.Location())
	if t.Before(now) {
		t = time.Date(now.Year()+1, time.Month(month), day, hour, min, 0, 0, now.Location())
	}
	return t, true
}

func fieldsInRange(month, day, hour, min int) bool {
	return month >= 1 && month <= 12 &&
		day >= 1 && day <= 31 &&
		hour >= 0 && hour <= 23 &&
		min >= 0 && min <= 59
}

// ParseOpenDate parses a heterogeneous human-entered open-date string
// relative to now. It is pure: same inputs give the same result, and it is
// safe to call concurrently. On total failure it returns UnparseableDate.
func ParseOpenDate(s string, now time.Time) time.Time {
	s = bracketPrefix.ReplaceAllString(s, "")
	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		if t, ok := p.extract(m, now); ok {
			return t
		}
	}
	return UnparseableDate
}

// SortByOpenDate stable-sorts records ascending by parsed open date;
// unparseable entries end up last.
func SortByOpenDate(records []NoticeRecord, now time.Time) {
	sort.SliceStable(records, func(i, j int) bool {
		return ParseOpenDate(records[i].OpenDate, now).Before(ParseOpenDate(records[j].OpenDate, now))
	})
}
