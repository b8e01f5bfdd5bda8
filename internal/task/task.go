package task

import (
	"fmt"
	"strings"

	"github.com/amirbrooks/taskline/internal/caldate"
)

// Priority levels, ordered from most to least urgent.
type Priority int

const (
	PriorityHighest Priority = iota
	PriorityHigh
	PriorityMedium
	PriorityNone
	PriorityLow
	PriorityLowest
)

var priorityNames = [...]string{"Highest", "High", "Medium", "None", "Low", "Lowest"}

func (p Priority) String() string {
	if p < PriorityHighest || p > PriorityLowest {
		return fmt.Sprintf("Priority(%d)", int(p))
	}
	return priorityNames[p]
}

// ParsePriority accepts a level name in any case, plus a few short forms.
func ParsePriority(s string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "highest", "urgent":
		return PriorityHighest, true
	case "high", "h":
		return PriorityHigh, true
	case "medium", "med", "m":
		return PriorityMedium, true
	case "none", "normal", "":
		return PriorityNone, true
	case "low", "l":
		return PriorityLow, true
	case "lowest":
		return PriorityLowest, true
	default:
		return PriorityNone, false
	}
}

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(p.String())), nil
}

func (p *Priority) UnmarshalText(b []byte) error {
	v, ok := ParsePriority(string(b))
	if !ok {
		return fmt.Errorf("unknown priority %q", string(b))
	}
	*p = v
	return nil
}

// Status is the character between the checkbox brackets.
type Status rune

const (
	StatusTodo       Status = ' '
	StatusDone       Status = 'x'
	StatusInProgress Status = '/'
	StatusCancelled  Status = '-'
)

func (s Status) IsDone() bool {
	return s == StatusDone || s == 'X' || s == StatusCancelled
}

func (s Status) Name() string {
	switch s {
	case StatusTodo, 0:
		return "Todo"
	case StatusDone, 'X':
		return "Done"
	case StatusInProgress:
		return "In Progress"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	if s == 0 {
		s = StatusTodo
	}
	return []byte(string(rune(s))), nil
}

// Location is where a task line was read from.
type Location struct {
	Path       string `json:"path,omitempty"`
	LineNumber int    `json:"line,omitempty"`
	Indent     string `json:"-"`
	ListMarker string `json:"-"`
}

// Task is the structured form of one annotated task line. Values are
// treated as immutable once built; edits go through With* copies.
type Task struct {
	Status        Status        `json:"status"`
	Description   string        `json:"description"`
	Priority      Priority      `json:"priority"`
	CreatedDate   *caldate.Date `json:"created,omitempty"`
	StartDate     *caldate.Date `json:"start,omitempty"`
	ScheduledDate *caldate.Date `json:"scheduled,omitempty"`
	DueDate       *caldate.Date `json:"due,omitempty"`
	DoneDate      *caldate.Date `json:"done,omitempty"`
	Recurrence    *Recurrence   `json:"recurrence,omitempty"`
	Reminders     ReminderList  `json:"reminders,omitempty"`
	Tags          []string      `json:"tags,omitempty"`
	BlockLink     string        `json:"block_link,omitempty"`
	Location      Location      `json:"location"`
}

// New returns an empty todo task.
func New() Task {
	return Task{Status: StatusTodo, Priority: PriorityNone}
}

// WithDescription replaces the description and re-derives the tags.
func (t Task) WithDescription(desc string) Task {
	t.Description = desc
	t.Tags = ExtractHashtags(desc)
	return t
}

// IsRecurring reports whether the task carries a readable recurrence rule.
func (t *Task) IsRecurring() bool {
	return t.Recurrence != nil && t.Recurrence.Valid()
}

// Filename is the note name without directory or extension.
func (t *Task) Filename() string {
	p := t.Location.Path
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	return strings.TrimSuffix(p, ".md")
}

// Identical compares every serialized field. Reminder lists compare as
// multisets and location is ignored.
func (t *Task) Identical(o *Task) bool {
	if t.Status != o.Status || t.Description != o.Description || t.Priority != o.Priority {
		return false
	}
	for _, pair := range [][2]*caldate.Date{
		{t.CreatedDate, o.CreatedDate},
		{t.StartDate, o.StartDate},
		{t.ScheduledDate, o.ScheduledDate},
		{t.DueDate, o.DueDate},
		{t.DoneDate, o.DoneDate},
	} {
		if !caldate.Equal(pair[0], pair[1]) {
			return false
		}
	}
	if (t.Recurrence == nil) != (o.Recurrence == nil) {
		return false
	}
	if t.Recurrence != nil && t.Recurrence.Rule != o.Recurrence.Rule {
		return false
	}
	if !t.Reminders.Equal(o.Reminders) || t.BlockLink != o.BlockLink {
		return false
	}
	if len(t.Tags) != len(o.Tags) {
		return false
	}
	for i := range t.Tags {
		if t.Tags[i] != o.Tags[i] {
			return false
		}
	}
	return true
}
