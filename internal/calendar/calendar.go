package calendar

import (
	"fmt"
	"time"

	"github.com/alexanderramin/stageflow/internal/domain"
)

// Config parameterizes working-day resolution for one project.
// When both toggles are off the calendar degenerates to plain
// calendar-day arithmetic.
type Config struct {
	// IncludeWeekends disables weekend skipping when true.
	IncludeWeekends bool
	// SkipHolidays toggles holiday-set consultation. When set, Holidays
	// must be supplied (an empty slice is a valid, loaded set; nil means
	// the fetch never happened).
	SkipHolidays bool
	Holidays     []domain.Holiday
}

// Calendar resolves working days for date arithmetic. Immutable once
// built; safe for concurrent use.
type Calendar struct {
	includeWeekends bool
	skipHolidays    bool
	holidays        map[time.Time]bool
}

// New builds a Calendar from cfg. Fails with domain.ErrConfiguration
// when holiday skipping is requested but the holiday set was not loaded.
func New(cfg Config) (*Calendar, error) {
	c := &Calendar{
		includeWeekends: cfg.IncludeWeekends,
		skipHolidays:    cfg.SkipHolidays,
	}
	if cfg.SkipHolidays {
		if cfg.Holidays == nil {
			return nil, fmt.Errorf("holiday set required but not loaded: %w", domain.ErrConfiguration)
		}
		c.holidays = make(map[time.Time]bool, len(cfg.Holidays))
		for _, h := range cfg.Holidays {
			c.holidays[Normalize(h.Date)] = true
		}
	}
	return c, nil
}

// Normalize truncates a timestamp to UTC midnight. All calendar
// arithmetic operates on normalized dates.
func Normalize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsWorkingDay reports whether d counts as a working day under this
// calendar's policy.
func (c *Calendar) IsWorkingDay(d time.Time) bool {
	d = Normalize(d)
	if !c.includeWeekends {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return false
		}
	}
	if c.skipHolidays && c.holidays[d] {
		return false
	}
	return true
}

// NextWorkingDay returns d itself when d is a working day, otherwise the
// first working day after it.
func (c *Calendar) NextWorkingDay(d time.Time) time.Time {
	d = Normalize(d)
	for !c.IsWorkingDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// AddWorkingDays advances d by n working days (backward for negative n).
// The starting date itself is first normalized but not counted; the
// result is always a working day unless n is zero and d is not.
func (c *Calendar) AddWorkingDays(d time.Time, n int) time.Time {
	d = Normalize(d)
	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	for n > 0 {
		d = d.AddDate(0, 0, step)
		if c.IsWorkingDay(d) {
			n--
		}
	}
	return d
}
