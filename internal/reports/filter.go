package reports

import (
	"fmt"
	"strings"
	"time"

	"github.com/tgienger/strack/internal/models"
)

// DateRange limits List to recently dated reports
type DateRange string

const (
	RangeAll   DateRange = "all"
	RangeToday DateRange = "today"
	RangeWeek  DateRange = "week"
	RangeMonth DateRange = "month"
)

// Ranges lists the date ranges in display order
var Ranges = []DateRange{RangeAll, RangeToday, RangeWeek, RangeMonth}

const day = 24 * time.Hour

// ParseDateRange parses a range name. The empty string means RangeAll.
func ParseDateRange(s string) (DateRange, error) {
	switch r := DateRange(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RangeAll, nil
	case RangeAll, RangeToday, RangeWeek, RangeMonth:
		return r, nil
	default:
		return RangeAll, fmt.Errorf("unknown date range %q (want all, today, week or month)", s)
	}
}

// Next returns the range that follows r, wrapping around
func (r DateRange) Next() DateRange {
	for i, candidate := range Ranges {
		if candidate == r {
			return Ranges[(i+1)%len(Ranges)]
		}
	}
	return RangeAll
}

// maxAge returns how old a report's date may be. ok is false when the range
// does not filter at all.
func (r DateRange) maxAge() (age time.Duration, ok bool) {
	switch r {
	case RangeToday:
		return day, true
	case RangeWeek:
		return 7 * day, true
	case RangeMonth:
		return 31 * day, true
	default:
		return 0, false
	}
}

// Filter selects reports for List. The zero value matches everything.
type Filter struct {
	Search string
	Range  DateRange
}

func (f Filter) matcher(now time.Time) func(models.Report) bool {
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	maxAge, byDate := f.Range.maxAge()

	return func(r models.Report) bool {
		if needle != "" {
			hay := strings.ToLower(r.Title + " " + r.Location + " " + r.Notes)
			if !strings.Contains(hay, needle) {
				return false
			}
		}
		if !byDate {
			return true
		}

		// Reports without a usable date are never hidden by a date range.
		d, ok := ParseDate(r.Date)
		if !ok {
			return true
		}
		return now.Sub(d) < maxAge
	}
}

// dateLayouts are tried in order by ParseDate. A bare calendar date is
// midnight UTC; date-times without a zone are local.
var dateLayouts = []struct {
	layout string
	utc    bool
}{
	{"2006-01-02", true},
	{time.RFC3339Nano, false},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02T15:04", false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02 15:04", false},
	{"2006/01/02", false},
}

// ParseDate parses a report date string
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		loc := time.Local
		if l.utc {
			loc = time.UTC
		}
		if t, err := time.ParseInLocation(l.layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DisplayWhen renders a report's date and time for people. A legacy
// Datetime wins over Date and Time. It falls back to the raw date, or "—"
// when there is none.
func DisplayWhen(r models.Report) string {
	if dt := strings.TrimSpace(r.Datetime); dt != "" {
		if t, ok := ParseDate(dt); ok {
			if len(dt) == len("2006-01-02") {
				return t.Format("Jan 2, 2006")
			}
			return t.Format("Jan 2, 2006 15:04")
		}
		return rawDate(r)
	}

	combined := strings.TrimSpace(r.Date + " " + r.Time)
	if t, ok := ParseDate(combined); ok {
		if strings.TrimSpace(r.Time) == "" {
			return t.Format("Jan 2, 2006")
		}
		return t.Format("Jan 2, 2006 15:04")
	}
	return rawDate(r)
}

func rawDate(r models.Report) string {
	if r.Date != "" {
		return r.Date
	}
	return "—"
}
