package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekdays that carry timetable entries, in display order.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// IsWeekday reports whether day is one of Weekdays.
func IsWeekday(day string) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// TimetableDay returns the timetable day to show for t. Sunday shows Saturday.
func TimetableDay(t time.Time) string {
	if t.Weekday() == time.Sunday {
		return time.Saturday.String()
	}
	return t.Weekday().String()
}

// TimetableEntry is one recurring class slot.
type TimetableEntry struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// WeeklyTimetable maps weekday names to their entries.
type WeeklyTimetable map[string][]TimetableEntry

// Subjects returns every subject referenced by the timetable, possibly with duplicates.
func (w WeeklyTimetable) Subjects() []string {
	var out []string
	for _, day := range Weekdays {
		for _, e := range w[day] {
			out = append(out, e.Subject)
		}
	}
	return out
}

// HasSubject reports whether any day lists subject.
func (w WeeklyTimetable) HasSubject(subject string) bool {
	for _, entries := range w {
		for _, e := range entries {
			if e.Subject == subject {
				return true
			}
		}
	}
	return false
}

// ClockMinutes parses "H:MM" or "HH:MM" into minutes after midnight.
func ClockMinutes(value string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok || len(m) != 2 || h == "" || len(h) > 2 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}
	minutes, err := strconv.Atoi(m)
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hours*60 + minutes, nil
}

// TodayTimetable is the schedule for a single day.
type TodayTimetable struct {
	Date    string            `json:"date"`
	Day     string            `json:"day"`
	Holiday *Holiday          `json:"holiday,omitempty"`
	Entries []TodayClassEntry `json:"entries"`
}

// TodayClassEntry decorates an entry with its attendance state for the day.
type TodayClassEntry struct {
	TimetableEntry
	Marked bool              `json:"marked"`
	Record *AttendanceRecord `json:"record,omitempty"`
}
