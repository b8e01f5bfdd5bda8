package query

import (
	"regexp"
	"sort"
	"strings"

	"github.com/amirbrooks/taskline/internal/task"
)

// Comparator is a three-way order over tasks.
type Comparator func(a, b *task.Task) int

// Sorter is one "sort by" instruction.
type Sorter struct {
	Property string
	Reverse  bool
	compare  Comparator
}

func (s Sorter) Compare(a, b *task.Task) int {
	c := s.compare(a, b)
	if s.Reverse {
		return -c
	}
	return c
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func statusRank(s task.Status) int {
	switch s {
	case task.StatusInProgress:
		return 0
	case task.StatusTodo, 0:
		return 1
	case task.StatusCancelled:
		return 3
	}
	if s.IsDone() {
		return 2
	}
	return 1
}

var sorterComparators = map[string]Comparator{
	"priority": func(a, b *task.Task) int { return compareInts(int(a.Priority), int(b.Priority)) },
	"description": func(a, b *task.Task) int {
		return strings.Compare(strings.ToLower(a.Description), strings.ToLower(b.Description))
	},
	"path":   func(a, b *task.Task) int { return strings.Compare(a.Location.Path, b.Location.Path) },
	"status": func(a, b *task.Task) int { return compareInts(statusRank(a.Status), statusRank(b.Status)) },
	"line":   func(a, b *task.Task) int { return compareInts(a.Location.LineNumber, b.Location.LineNumber) },
}

func comparatorFor(property string) (Comparator, bool) {
	if c, ok := sorterComparators[property]; ok {
		return c, true
	}
	if f, ok := dateFieldByName(property); ok {
		return f.Comparator(), true
	}
	return nil, false
}

var sortByRegexp = regexp.MustCompile(`(?i)^sort by (\w+)( reverse)?$`)

// ParseSorter reads "sort by <property> [reverse]".
func ParseSorter(line string) (Sorter, error) {
	m := sortByRegexp.FindStringSubmatch(normalizeLine(line))
	if m == nil {
		return Sorter{}, unrecognized(line, "do not understand query")
	}
	property := strings.ToLower(m[1])
	c, ok := comparatorFor(property)
	if !ok || property == "line" {
		return Sorter{}, unrecognized(line, "do not understand sorter")
	}
	if f, isDate := dateFieldByName(property); isDate {
		property = f.Name
	}
	return Sorter{Property: property, Reverse: m[2] != "", compare: c}, nil
}

// DefaultSorters are applied after every explicit sorter.
func DefaultSorters() []Sorter {
	out := make([]Sorter, 0, 5)
	for _, p := range []string{"status", "due", "priority", "path", "line"} {
		c, _ := comparatorFor(p)
		out = append(out, Sorter{Property: p, compare: c})
	}
	return out
}

// SortTasks orders tasks in place by sorters, first difference wins. The
// sort is stable so equal tasks keep their input order.
func SortTasks(tasks []*task.Task, sorters []Sorter) {
	sort.SliceStable(tasks, func(i, j int) bool {
		for _, s := range sorters {
			if c := s.Compare(tasks[i], tasks[j]); c != 0 {
				return c < 0
			}
		}
		return false
	})
}
