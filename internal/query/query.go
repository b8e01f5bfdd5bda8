// Package query parses multi-line task queries and applies them to tasks:
// filters, sorting, limits and grouping.
package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/amirbrooks/taskline/internal/task"
)

// Options configures Parse.
type Options struct {
	// Now anchors relative date expressions. Defaults to time.Now.
	Now func() time.Time
	// DateParser overrides the natural-language parser.
	DateParser DateParser
}

// Query is a parsed query.
type Query struct {
	Source   string
	Filters  []*Filter
	Sorters  []Sorter
	Groupers []Grouper
	Limit    int
	Explain  bool
}

var limitRegexp = regexp.MustCompile(`(?i)^limit(?: to)? (\d+)(?: tasks?)?$`)

// Factories returns the filter factories tried for each instruction line,
// in order.
func Factories(parser DateParser) []FilterFactory {
	out := []FilterFactory{statusFilters(), recurrenceFilters(), reminderFilters()}
	for _, f := range DateFields() {
		out = append(out, NewDateFilterFactory(f, parser))
	}
	return append(out, descriptionFilters(), tagFilters())
}

// Parse reads one instruction per line. Blank lines and lines starting with
// '#' are skipped. The first bad line stops parsing and is returned as an
// *InstructionError.
func Parse(source string, opts Options) (*Query, error) {
	parser := opts.DateParser
	if parser == nil {
		parser = NewNaturalDateParser(opts.Now)
	}
	factories := Factories(parser)

	q := &Query{Source: source}
	for _, raw := range strings.Split(source, "\n") {
		line := normalizeLine(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case lower == "explain":
			q.Explain = true
		case strings.HasPrefix(lower, "sort by "):
			s, err := ParseSorter(line)
			if err != nil {
				return nil, err
			}
			q.Sorters = append(q.Sorters, s)
		case strings.HasPrefix(lower, "group by "):
			g, err := ParseGrouper(line)
			if err != nil {
				return nil, err
			}
			q.Groupers = append(q.Groupers, g)
		case strings.HasPrefix(lower, "limit"):
			m := limitRegexp.FindStringSubmatch(line)
			if m == nil {
				return nil, unrecognized(line, "do not understand query limit")
			}
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, unrecognized(line, "do not understand query limit")
			}
			q.Limit = n
		default:
			f, err := createFilter(factories, line)
			if err != nil {
				return nil, err
			}
			q.Filters = append(q.Filters, f)
		}
	}
	return q, nil
}

func createFilter(factories []FilterFactory, line string) (*Filter, error) {
	for _, f := range factories {
		if f.CanCreateFilterForLine(line) {
			return f.CreateFilter(line)
		}
	}
	return nil, unrecognized(line, "do not understand query")
}

// Matches reports whether t passes every filter.
func (q *Query) Matches(t *task.Task) bool {
	for _, f := range q.Filters {
		if !f.Matches(t) {
			return false
		}
	}
	return true
}

// Apply filters, sorts, limits and groups tasks. The input slice is not
// modified.
func (q *Query) Apply(tasks []*task.Task) *TaskGroups {
	matched := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		if q.Matches(t) {
			matched = append(matched, t)
		}
	}
	SortTasks(matched, append(append([]Sorter{}, q.Sorters...), DefaultSorters()...))
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return GroupTasks(matched, q.Groupers)
}

// Explanation lists what the query does, one line per instruction.
func (q *Query) Explanation() string {
	var b strings.Builder
	if len(q.Filters) == 0 {
		b.WriteString("No filters supplied. All tasks will match the query.\n")
	}
	for _, f := range q.Filters {
		b.WriteString(f.Explanation + "\n")
	}
	for _, s := range q.Sorters {
		fmt.Fprintf(&b, "sort by %s%s\n", s.Property, reverseSuffix(s.Reverse))
	}
	for _, g := range q.Groupers {
		fmt.Fprintf(&b, "group by %s%s\n", g.Property, reverseSuffix(g.Reverse))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, "At most %d tasks.\n", q.Limit)
	}
	return b.String()
}

func reverseSuffix(reverse bool) string {
	if reverse {
		return " reverse"
	}
	return ""
}
