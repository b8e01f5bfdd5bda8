package task

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/amirbrooks/taskline/internal/caldate"
)

// TimeFormat selects how reminder times are read and written.
type TimeFormat string

const (
	TwelveHour     TimeFormat = "12h"
	TwentyFourHour TimeFormat = "24h"
)

// ParseTimeFormat accepts "12h"/"24h" and a few spellings of each.
func ParseTimeFormat(s string) (TimeFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "12", "12h", "12-hour", "twelve":
		return TwelveHour, nil
	case "24", "24h", "24-hour", "twentyfour":
		return TwentyFourHour, nil
	default:
		return "", fmt.Errorf("unknown time format %q (want 12h or 24h)", s)
	}
}

// Layout is the Go layout used when writing a date-and-time reminder.
func (f TimeFormat) Layout() string {
	if f == TwentyFourHour {
		return "2006-01-02 15:04"
	}
	return "2006-01-02 3:04 pm"
}

type ReminderType int

const (
	ReminderDate ReminderType = iota
	ReminderDateTime
)

func (r ReminderType) String() string {
	if r == ReminderDateTime {
		return "datetime"
	}
	return "date"
}

// Reminder is one calendar value that is either date-only or date-and-time.
type Reminder struct {
	Time caldate.Date
	Type ReminderType
}

func (r Reminder) Format(f TimeFormat) string {
	if !r.Time.IsValid() {
		return r.Time.String()
	}
	if r.Type == ReminderDateTime {
		return r.Time.Format(f.Layout())
	}
	return r.Time.Format(caldate.DateLayout)
}

func (r Reminder) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Time caldate.Date `json:"time"`
		Type string       `json:"type"`
	}{r.Time, r.Type.String()})
}

var reminderValueRegexp = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})(?:\s+(\d{1,2}):(\d{2})(?:\s*([aApP])\.?(?:[mM]\.?)?)?)?$`)

// ParseReminder reads one reminder value. The date must be YYYY-MM-DD.
// In 12-hour mode a missing am/pm means am, a lone "p" means pm, and a
// 24-hour clock value is accepted. In 24-hour mode am/pm is ignored.
// Unreadable input yields an invalid date that keeps the original text.
func ParseReminder(s string, f TimeFormat) Reminder {
	s = strings.TrimSpace(s)
	m := reminderValueRegexp.FindStringSubmatch(s)
	if m == nil {
		return Reminder{Time: caldate.Invalid(s)}
	}
	day := caldate.Parse(m[1])
	if !day.IsValid() || m[2] == "" {
		if !day.IsValid() {
			day = caldate.Invalid(s)
		}
		return Reminder{Time: day, Type: ReminderDate}
	}
	hour, _ := strconv.Atoi(m[2])
	minute, _ := strconv.Atoi(m[3])
	if f != TwentyFourHour && hour <= 12 {
		switch strings.ToLower(m[4]) {
		case "p":
			if hour < 12 {
				hour += 12
			}
		case "a", "":
			if hour == 12 && m[4] != "" {
				hour = 0
			}
		}
	}
	if hour > 23 || minute > 59 {
		return Reminder{Time: caldate.Invalid(s), Type: ReminderDateTime}
	}
	t := day.Time()
	return Reminder{
		Time: caldate.NewDateTime(t.Year(), t.Month(), t.Day(), hour, minute),
		Type: ReminderDateTime,
	}
}

// ReminderList is the ordered reminders attached to one task.
type ReminderList struct {
	Reminders []Reminder
}

// ParseReminderList splits a comma separated list and parses each part.
func ParseReminderList(s string, f TimeFormat) ReminderList {
	var out []Reminder
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, ParseReminder(part, f))
	}
	return ReminderList{Reminders: out}
}

func (l ReminderList) IsEmpty() bool { return len(l.Reminders) == 0 }

func (l ReminderList) Format(f TimeFormat) string {
	parts := make([]string, 0, len(l.Reminders))
	for _, r := range l.Reminders {
		parts = append(parts, r.Format(f))
	}
	return strings.Join(parts, ", ")
}

// Equal compares the reminder times as a multiset; order does not matter.
func (l ReminderList) Equal(o ReminderList) bool {
	if len(l.Reminders) != len(o.Reminders) {
		return false
	}
	a, b := l.keys(), o.keys()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (l ReminderList) keys() []string {
	keys := make([]string, 0, len(l.Reminders))
	for _, r := range l.Reminders {
		if r.Time.IsValid() {
			keys = append(keys, r.Time.Time().Format(time.RFC3339))
		} else {
			keys = append(keys, "invalid:"+r.Time.Raw())
		}
	}
	sort.Strings(keys)
	return keys
}

func (l ReminderList) MarshalJSON() ([]byte, error) {
	if l.Reminders == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.Reminders)
}
