package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/amirbrooks/taskline/internal/caldate"
	"github.com/amirbrooks/taskline/internal/task"
)

// DateField describes one date-typed task property. Every date field gets
// the same filter instructions, sort order and grouping from these values.
type DateField struct {
	// Name is used in instructions and explanations ("due").
	Name string
	// Keywords are extra words that introduce relational instructions
	// ("starts" for start).
	Keywords []string
	// Date returns the task's value, or nil when the task has none.
	Date func(*task.Task) *caldate.Date
	// MatchesMissing decides whether a task without the date passes a
	// before/after/on filter.
	MatchesMissing bool
}

var (
	DueField = DateField{
		Name: "due",
		Date: func(t *task.Task) *caldate.Date { return t.DueDate },
	}
	DoneField = DateField{
		Name: "done",
		Date: func(t *task.Task) *caldate.Date { return t.DoneDate },
	}
	ScheduledField = DateField{
		Name: "scheduled",
		Date: func(t *task.Task) *caldate.Date { return t.ScheduledDate },
	}
	StartField = DateField{
		Name:           "start",
		Keywords:       []string{"starts"},
		Date:           func(t *task.Task) *caldate.Date { return t.StartDate },
		MatchesMissing: true,
	}
	CreatedField = DateField{
		Name: "created",
		Date: func(t *task.Task) *caldate.Date { return t.CreatedDate },
	}
)

// DateFields lists every date field in serialization order.
func DateFields() []DateField {
	return []DateField{CreatedField, StartField, ScheduledField, DueField, DoneField}
}

func dateFieldByName(name string) (DateField, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, f := range DateFields() {
		if f.Name == name {
			return f, true
		}
		for _, k := range f.Keywords {
			if k == name {
				return f, true
			}
		}
	}
	return DateField{}, false
}

// Comparator orders tasks by this field with caldate.Compare.
func (f DateField) Comparator() Comparator {
	return func(a, b *task.Task) int {
		return caldate.Compare(f.Date(a), f.Date(b))
	}
}

// GroupKeys names the group a task falls in for this field.
func (f DateField) GroupKeys(t *task.Task) []string {
	d := f.Date(t)
	switch {
	case d == nil:
		return []string{fmt.Sprintf("No %s date", f.Name)}
	case !d.IsValid():
		return []string{fmt.Sprintf("Invalid %s date", f.Name)}
	default:
		return []string{d.Format("2006-01-02 Monday")}
	}
}

// DateFilterFactory turns instruction lines about one DateField into
// filters.
type DateFilterFactory struct {
	field        DateField
	parser       DateParser
	relational   *regexp.Regexp
	instructions filterInstructions
}

func NewDateFilterFactory(field DateField, parser DateParser) *DateFilterFactory {
	words := append([]string{regexp.QuoteMeta(field.Name)}, field.Keywords...)
	f := &DateFilterFactory{
		field:      field,
		parser:     parser,
		relational: regexp.MustCompile(`(?i)^(?:` + strings.Join(words, "|") + `)(?: date)? (before|after|on)? ?(.*)$`),
	}
	f.instructions.add(fmt.Sprintf("has %s date", field.Name), func(t *task.Task) bool {
		return field.Date(t) != nil
	})
	f.instructions.add(fmt.Sprintf("no %s date", field.Name), func(t *task.Task) bool {
		return field.Date(t) == nil
	})
	f.instructions.add(fmt.Sprintf("%s date is invalid", field.Name), func(t *task.Task) bool {
		d := field.Date(t)
		return d != nil && !d.IsValid()
	})
	return f
}

func (f *DateFilterFactory) Field() DateField { return f.field }

func (f *DateFilterFactory) CanCreateFilterForLine(line string) bool {
	if f.instructions.CanCreateFilterForLine(line) {
		return true
	}
	return f.relational.MatchString(normalizeLine(line))
}

// CreateFilter parses "has/no <field> date", "<field> date is invalid" and
// "<field> [date] [before|after|on] <expr>".
func (f *DateFilterFactory) CreateFilter(line string) (*Filter, error) {
	if f.instructions.CanCreateFilterForLine(line) {
		return f.instructions.CreateFilter(line)
	}

	m := f.relational.FindStringSubmatch(normalizeLine(line))
	if m == nil {
		return nil, unrecognized(line, fmt.Sprintf("do not understand query filter (%s date)", f.field.Name))
	}
	keyword := strings.ToLower(m[1])
	target := f.parser.ParseDate(m[2])
	if !target.IsValid() {
		return nil, &InstructionError{
			Instruction: line,
			Message:     fmt.Sprintf("do not understand %s date", f.field.Name),
			Kind:        ErrUnparseableDate,
		}
	}

	field := f.field
	var compare func(d caldate.Date) bool
	switch keyword {
	case "before":
		compare = func(d caldate.Date) bool { return d.Before(target) }
	case "after":
		compare = func(d caldate.Date) bool { return d.After(target) }
	default:
		compare = func(d caldate.Date) bool { return d.Same(target) }
	}
	match := func(t *task.Task) bool {
		d := field.Date(t)
		if d == nil {
			return field.MatchesMissing
		}
		return compare(*d)
	}
	return newFilter(line, match, ExplainDateFilter(field.Name, keyword, field.MatchesMissing, target)), nil
}

// ExplainDateFilter renders e.g.
// "due date is before 2024-01-02 (Tuesday 2nd January 2024)".
func ExplainDateFilter(fieldName, keyword string, matchesMissing bool, target caldate.Date) string {
	relationship := "on"
	if keyword == "before" || keyword == "after" {
		relationship = keyword
	}
	t := target.Time()
	actual := fmt.Sprintf("%s (%s %s %s %d)",
		t.Format(caldate.DateLayout), t.Weekday(), humanize.Ordinal(t.Day()), t.Month(), t.Year())
	out := fmt.Sprintf("%s date is %s %s", fieldName, relationship, actual)
	if matchesMissing {
		out += fmt.Sprintf(" OR no %s date", fieldName)
	}
	return out
}
