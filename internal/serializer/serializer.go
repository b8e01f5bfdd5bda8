// Package serializer converts between annotated task lines and task.Task.
package serializer

import (
	"regexp"
	"strings"

	"github.com/amirbrooks/taskline/internal/caldate"
	"github.com/amirbrooks/taskline/internal/task"
)

// maxRuns bounds the field-stripping loop in Deserialize.
const maxRuns = 20

// Serializer reads and writes the text after a task's checkbox.
type Serializer struct {
	symbols    Symbols
	timeFormat task.TimeFormat
	re         fieldRegexps
}

// New builds a serializer for a symbol table and reminder time format.
func New(symbols Symbols, timeFormat task.TimeFormat) *Serializer {
	if timeFormat == "" {
		timeFormat = task.TwelveHour
	}
	return &Serializer{symbols: symbols, timeFormat: timeFormat, re: compileRegexps(symbols)}
}

// Default uses the emoji symbols.
func Default(timeFormat task.TimeFormat) *Serializer {
	return New(DefaultSymbols, timeFormat)
}

func (s *Serializer) TimeFormat() task.TimeFormat { return s.timeFormat }

// Deserialize strips recognised fields from the end of line until none is
// left; what remains is the description. Tags found at the end are put back
// on the description, and all tags are then read from it. A date that has
// the right shape but is not a real date becomes an invalid value.
func (s *Serializer) Deserialize(line string) task.Task {
	t := task.New()
	line = strings.TrimRight(line, " \t")

	if m := s.re.blockLink.FindStringSubmatch(line); m != nil {
		t.BlockLink = m[1]
		line = strings.TrimRight(line[:len(line)-len(m[0])], " \t")
	}

	var trailingTags string
	for runs := 0; runs < maxRuns; runs++ {
		matched := false

		if v, rest, ok := cut(s.re.priority, line); ok {
			if p, known := s.symbols.priorityFor(v); known {
				t.Priority = p
			}
			line, matched = rest, true
		}
		if v, rest, ok := cut(s.re.done, line); ok {
			t.DoneDate = caldate.Ptr(caldate.Parse(v))
			line, matched = rest, true
		}
		if v, rest, ok := cut(s.re.scheduled, line); ok {
			t.ScheduledDate = caldate.Ptr(caldate.Parse(v))
			line, matched = rest, true
		}
		if v, rest, ok := cut(s.re.start, line); ok {
			t.StartDate = caldate.Ptr(caldate.Parse(v))
			line, matched = rest, true
		}
		if v, rest, ok := cut(s.re.created, line); ok {
			t.CreatedDate = caldate.Ptr(caldate.Parse(v))
			line, matched = rest, true
		}
		if v, rest, ok := cut(s.re.reminder, line); ok {
			t.Reminders = task.ParseReminderList(v, s.timeFormat)
			line, matched = rest, true
		}
		if v, rest, ok := cut(s.re.recurrence, line); ok {
			t.Recurrence = task.NewRecurrence(v)
			line, matched = rest, true
		}
		if v, rest, ok := cut(s.re.due, line); ok {
			t.DueDate = caldate.Ptr(caldate.Parse(v))
			line, matched = rest, true
		}
		if loc := task.HashtagFromEndRegexp.FindStringIndex(line); loc != nil {
			tag := strings.TrimSpace(line[loc[0]:])
			if trailingTags == "" {
				trailingTags = tag
			} else {
				trailingTags = tag + " " + trailingTags
			}
			line, matched = strings.TrimSpace(line[:loc[0]]), true
		}

		if !matched {
			break
		}
	}

	if trailingTags != "" {
		line += " " + trailingTags
	}
	return t.WithDescription(line)
}

// cut removes an end-anchored match from line and returns its last
// capture group together with the trimmed remainder.
func cut(re *regexp.Regexp, line string) (string, string, bool) {
	m := re.FindStringSubmatchIndex(line)
	if m == nil {
		return "", line, false
	}
	n := len(m) / 2
	value := line[m[2*(n-1)]:m[2*(n-1)+1]]
	return strings.TrimSpace(value), strings.TrimSpace(line[:m[0]]), true
}

// Serialize writes the description followed by each present field in a
// fixed order: priority, created, start, scheduled, due, done, recurrence,
// reminders, block link. Absent fields are omitted, as is None priority.
func (s *Serializer) Serialize(t task.Task) string {
	var b strings.Builder
	b.WriteString(t.Description)

	if t.Priority != task.PriorityNone {
		if sym, ok := s.symbols.Priority[t.Priority]; ok {
			b.WriteString(" " + sym)
		}
	}
	writeDate(&b, first(s.symbols.Created), t.CreatedDate)
	writeDate(&b, first(s.symbols.Start), t.StartDate)
	writeDate(&b, first(s.symbols.Scheduled), t.ScheduledDate)
	writeDate(&b, first(s.symbols.Due), t.DueDate)
	writeDate(&b, first(s.symbols.Done), t.DoneDate)
	if t.Recurrence != nil && t.Recurrence.Rule != "" {
		b.WriteString(" " + first(s.symbols.Recurrence) + " " + t.Recurrence.Rule)
	}
	if !t.Reminders.IsEmpty() {
		b.WriteString(" " + first(s.symbols.Reminder) + " " + t.Reminders.Format(s.timeFormat))
	}
	if t.BlockLink != "" {
		b.WriteString(" ^" + t.BlockLink)
	}
	return b.String()
}

func writeDate(b *strings.Builder, symbol string, d *caldate.Date) {
	if d == nil {
		return
	}
	b.WriteString(" " + symbol + " " + d.String())
}
