package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/notedex/notedex/internal/domain"
)

var relativeDateRe = regexp.MustCompile(`^(\d+)([dm])$`)

// ParseDateBound resolves a since/until query value. Accepted forms:
// RFC3339 timestamps, YYYY-MM-DD, partial YYYY or YYYY-MM, and relative
// windows like "7d" or "12m". Partial values resolve to the period start
// for a lower bound and the period end for an upper bound, keeping the
// range inclusive. Empty input yields a nil (open) bound; anything else
// unrecognized is an invalid filter, never silently corrected.
func ParseDateBound(value string, end bool, now time.Time) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	if m := relativeDateRe.FindStringSubmatch(value); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, domain.ErrInvalidDate
		}
		var ts time.Time
		if m[2] == "d" {
			ts = now.UTC().AddDate(0, 0, -n)
		} else {
			ts = now.UTC().AddDate(0, -n, 0)
		}
		return &ts, nil
	}

	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		ts = ts.UTC()
		return &ts, nil
	}

	parts := strings.Split(value, "-")
	switch len(parts) {
	case 1: // YYYY
		year, err := strconv.Atoi(parts[0])
		if err != nil || len(parts[0]) != 4 {
			return nil, domain.ErrInvalidDate
		}
		start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		return boundFor(start, start.AddDate(1, 0, 0), end), nil
	case 2: // YYYY-MM
		start, err := time.Parse("2006-01", value)
		if err != nil {
			return nil, domain.ErrInvalidDate
		}
		return boundFor(start, start.AddDate(0, 1, 0), end), nil
	case 3: // YYYY-MM-DD
		start, err := time.Parse("2006-01-02", value)
		if err != nil {
			return nil, domain.ErrInvalidDate
		}
		return boundFor(start, start.AddDate(0, 0, 1), end), nil
	default:
		return nil, domain.ErrInvalidDate
	}
}

// boundFor picks the inclusive bound: period start for since, the last
// instant before the next period for until.
func boundFor(start, next time.Time, end bool) *time.Time {
	if !end {
		return &start
	}
	ts := next.Add(-time.Second)
	return &ts
}
