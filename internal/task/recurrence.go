package task

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/amirbrooks/taskline/internal/caldate"
)

var recurrenceRuleRegexp = regexp.MustCompile(`(?i)^every\s+(?:(\d+)\s+)?(day|week|month|year)s?(\s+when\s+done)?$`)

// Recurrence keeps the rule text exactly as written together with the
// schedule read from it. Unreadable rules keep their text but are not Valid.
type Recurrence struct {
	Rule     string `json:"rule"`
	Interval int    `json:"interval,omitempty"`
	Unit     string `json:"unit,omitempty"`
	WhenDone bool   `json:"when_done,omitempty"`
}

// NewRecurrence returns nil for an empty rule.
func NewRecurrence(rule string) *Recurrence {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return nil
	}
	r := &Recurrence{Rule: rule}
	m := recurrenceRuleRegexp.FindStringSubmatch(rule)
	if m == nil {
		return r
	}
	r.Interval = 1
	if m[1] != "" {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			r.Interval = n
		}
	}
	r.Unit = strings.ToLower(m[2])
	r.WhenDone = m[3] != ""
	return r
}

func (r *Recurrence) Valid() bool {
	return r != nil && r.Unit != ""
}

// Next moves d forward by one interval.
func (r *Recurrence) Next(d caldate.Date) caldate.Date {
	if !r.Valid() {
		return d
	}
	switch r.Unit {
	case "day":
		return d.AddDate(0, 0, r.Interval)
	case "week":
		return d.AddDate(0, 0, 7*r.Interval)
	case "month":
		return d.AddMonths(r.Interval)
	default:
		return d.AddMonths(12 * r.Interval)
	}
}

// NextOccurrence builds the task that follows t once t is completed on
// doneOn. Every date shifts by the distance between the reference date
// (due, else scheduled, else start) and its next occurrence. The second
// result is false when t does not recur or has no usable reference date.
func NextOccurrence(t Task, doneOn caldate.Date) (Task, bool) {
	if !t.IsRecurring() {
		return Task{}, false
	}
	var ref *caldate.Date
	for _, d := range []*caldate.Date{t.DueDate, t.ScheduledDate, t.StartDate} {
		if d != nil && d.IsValid() {
			ref = d
			break
		}
	}
	if ref == nil {
		return Task{}, false
	}
	base := *ref
	if t.Recurrence.WhenDone && doneOn.IsValid() {
		base = doneOn
	}
	next := t.Recurrence.Next(base)
	shift := int(next.Time().Sub(ref.Time()).Hours() / 24)

	out := t
	out.Status = StatusTodo
	out.DoneDate = nil
	out.BlockLink = ""
	out.DueDate = shiftDate(t.DueDate, shift)
	out.ScheduledDate = shiftDate(t.ScheduledDate, shift)
	out.StartDate = shiftDate(t.StartDate, shift)
	if t.CreatedDate != nil && doneOn.IsValid() {
		out.CreatedDate = caldate.Ptr(doneOn)
	}
	reminders := make([]Reminder, 0, len(t.Reminders.Reminders))
	for _, rem := range t.Reminders.Reminders {
		rem.Time = rem.Time.AddDate(0, 0, shift)
		reminders = append(reminders, rem)
	}
	out.Reminders = ReminderList{Reminders: reminders}
	return out, true
}

func shiftDate(d *caldate.Date, days int) *caldate.Date {
	if d == nil || !d.IsValid() {
		return d
	}
	return caldate.Ptr(d.AddDate(0, 0, days))
}
