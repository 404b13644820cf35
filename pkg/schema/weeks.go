package schema

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// dateFormat is the calendar-date layout used on both sides of a week column
// name. Week columns carry no time-of-day component.
const dateFormat = "2006-01-02"

// weekColumnPattern matches date-range encoded column names. Some exporters
// wrap numeric-looking names in a leading single quote; that quote is part of
// the physical column name and must be preserved in Raw.
var weekColumnPattern = regexp.MustCompile(`^'?\d{4}-\d{2}-\d{2} - \d{4}-\d{2}-\d{2}$`)

// WeekColumn is one reporting period: a physical column whose name encodes a
// date range.
type WeekColumn struct {
	// Raw is the physical column name, quote wrapping included.
	Raw string
	// Label is the cleaned human-readable range, e.g. "2024-01-01 - 2024-01-07".
	Label     string
	StartDate time.Time
	EndDate   time.Time
}

// ParseWeekColumn extracts a WeekColumn from a column name, or reports false
// when the name is not date-range encoded. A range whose start date is after
// its end date is still accepted; malformed exporter output should display
// rather than vanish.
func ParseWeekColumn(columnName string) (WeekColumn, bool) {
	cleaned := strings.Trim(strings.TrimSpace(columnName), "'")
	parts := strings.Split(cleaned, " - ")
	if len(parts) != 2 {
		return WeekColumn{}, false
	}

	start, err := time.Parse(dateFormat, parts[0])
	if err != nil {
		return WeekColumn{}, false
	}
	end, err := time.Parse(dateFormat, parts[1])
	if err != nil {
		return WeekColumn{}, false
	}

	return WeekColumn{
		Raw:       columnName,
		Label:     cleaned,
		StartDate: start,
		EndDate:   end,
	}, true
}

// ParseWeekColumns filters a table's column names down to the ordered week
// catalog: names matching the date-range pattern, parsed and sorted ascending
// by start date. This ordering is the canonical chronological sequence used
// for trend windows, "most recent N weeks", and timelines.
func ParseWeekColumns(columnNames []string) []WeekColumn {
	var weeks []WeekColumn
	for _, name := range columnNames {
		if !weekColumnPattern.MatchString(strings.TrimSpace(name)) {
			continue
		}
		parsed, ok := ParseWeekColumn(name)
		if !ok {
			continue
		}
		weeks = append(weeks, parsed)
	}

	sort.SliceStable(weeks, func(i, j int) bool {
		return weeks[i].StartDate.Before(weeks[j].StartDate)
	})
	return weeks
}
