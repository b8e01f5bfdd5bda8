package query

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/amirbrooks/taskline/internal/task"
)

// keySeparator joins group names into a bucket key. It cannot appear in a
// task line.
const keySeparator = "\x1f"

// GroupDisplayHeading is a heading to print above a group.
type GroupDisplayHeading struct {
	Level int
	Name  string
}

// TaskGroup is one bucket: the group names for each grouper level plus the
// tasks that produced exactly that combination, in input order.
type TaskGroup struct {
	GroupNames []string
	Headings   []GroupDisplayHeading
	Tasks      []*task.Task
}

// TaskGroups is the result of grouping an already sorted task list.
type TaskGroups struct {
	Groupers []Grouper
	Groups   []*TaskGroup
	total    int
}

// TotalTasksCount is the number of distinct tasks. It can be smaller than
// the sum of group sizes when a task falls in several groups.
func (g *TaskGroups) TotalTasksCount() int { return g.total }

// GroupTasks buckets tasks by every combination of keys the groupers
// produce, sorts the buckets and marks which headings to display.
func GroupTasks(tasks []*task.Task, groupers []Grouper) *TaskGroups {
	out := &TaskGroups{Groupers: groupers, total: len(tasks)}

	index := map[string]int{}
	for _, t := range tasks {
		for _, names := range keyCombinations(t, groupers) {
			key := strings.Join(names, keySeparator)
			i, ok := index[key]
			if !ok {
				i = len(out.Groups)
				index[key] = i
				out.Groups = append(out.Groups, &TaskGroup{GroupNames: names})
			}
			out.Groups[i].Tasks = append(out.Groups[i].Tasks, t)
		}
	}
	if len(groupers) == 0 && len(out.Groups) == 0 {
		out.Groups = append(out.Groups, &TaskGroup{GroupNames: []string{}})
	}

	sortGroups(out.Groups, groupers)
	assignHeadings(out.Groups)
	return out
}

// keyCombinations is the cartesian product of each grouper's keys, in
// grouper order.
func keyCombinations(t *task.Task, groupers []Grouper) [][]string {
	combos := [][]string{{}}
	for _, g := range groupers {
		keys := g.Keys(t)
		next := make([][]string, 0, len(combos)*len(keys))
		for _, prefix := range combos {
			for _, k := range keys {
				names := make([]string, len(prefix), len(prefix)+1)
				copy(names, prefix)
				next = append(next, append(names, k))
			}
		}
		combos = next
	}
	return combos
}

func sortGroups(groups []*TaskGroup, groupers []Grouper) {
	c := collate.New(language.English, collate.Numeric)
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].GroupNames, groups[j].GroupNames
		for level := 0; level < len(a) && level < len(b); level++ {
			cmp := c.CompareString(a[level], b[level])
			if cmp == 0 {
				continue
			}
			if level < len(groupers) && groupers[level].Reverse {
				cmp = -cmp
			}
			return cmp < 0
		}
		return false
	})
}

// assignHeadings walks the sorted groups once. A level gets a heading when
// its name differs from the previous group's name at that level; every
// level below a change gets one too.
func assignHeadings(groups []*TaskGroup) {
	var previous []string
	for _, g := range groups {
		changed := previous == nil
		for level, name := range g.GroupNames {
			if !changed && (level >= len(previous) || previous[level] != name) {
				changed = true
			}
			if changed {
				g.Headings = append(g.Headings, GroupDisplayHeading{Level: level, Name: name})
			}
		}
		previous = g.GroupNames
	}
}

// String renders the groups as an indented outline, used by tests and the
// plain text output.
func (g *TaskGroups) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Groupers (if any):\n")
	for _, gr := range g.Groupers {
		name := gr.Property
		if gr.Reverse {
			name += " reverse"
		}
		fmt.Fprintf(&b, "- %s\n", name)
	}
	for _, group := range g.Groups {
		fmt.Fprintf(&b, "\nGroup names: [%s]\n", strings.Join(group.GroupNames, ","))
		for _, h := range group.Headings {
			fmt.Fprintf(&b, "%s %s\n", strings.Repeat("#", h.Level+4), h.Name)
		}
		for _, t := range group.Tasks {
			fmt.Fprintf(&b, "- %s\n", t.Description)
		}
	}
	fmt.Fprintf(&b, "\n---\n\n%d tasks\n", g.total)
	return b.String()
}
