package query

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/amirbrooks/taskline/internal/task"
)

// Grouper maps a task to one or more group names.
type Grouper struct {
	Property string
	Reverse  bool
	keys     func(*task.Task) []string
}

// NewGrouper builds a grouper from a key function, for callers that group
// by something other than the built-in properties.
func NewGrouper(property string, keys func(*task.Task) []string) Grouper {
	return Grouper{Property: property, keys: keys}
}

// Keys returns the distinct group names for t in first-seen order. A task
// always has at least one key.
func (g Grouper) Keys(t *task.Task) []string {
	raw := g.keys(t)
	if len(raw) == 0 {
		return []string{""}
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, k := range raw {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

var grouperKeys = map[string]func(*task.Task) []string{
	"tags": func(t *task.Task) []string {
		if len(t.Tags) == 0 {
			return []string{"(No tags)"}
		}
		return t.Tags
	},
	"priority": func(t *task.Task) []string {
		return []string{fmt.Sprintf("Priority %d: %s", int(t.Priority)+1, t.Priority)}
	},
	"status": func(t *task.Task) []string {
		return []string{t.Status.Name()}
	},
	"path": func(t *task.Task) []string {
		return []string{strings.TrimSuffix(t.Location.Path, ".md")}
	},
	"folder": func(t *task.Task) []string {
		dir := path.Dir(t.Location.Path)
		if dir == "." {
			return []string{"/"}
		}
		return []string{dir + "/"}
	},
	"filename": func(t *task.Task) []string {
		return []string{t.Filename()}
	},
	"recurring": func(t *task.Task) []string {
		if t.IsRecurring() {
			return []string{"Recurring"}
		}
		return []string{"Not Recurring"}
	},
}

var groupByRegexp = regexp.MustCompile(`(?i)^group by (\w+)( reverse)?$`)

// ParseGrouper reads "group by <property> [reverse]".
func ParseGrouper(line string) (Grouper, error) {
	m := groupByRegexp.FindStringSubmatch(normalizeLine(line))
	if m == nil {
		return Grouper{}, unrecognized(line, "do not understand query")
	}
	property := strings.ToLower(m[1])
	g := Grouper{Property: property, Reverse: m[2] != ""}
	if keys, ok := grouperKeys[property]; ok {
		g.keys = keys
		return g, nil
	}
	if f, ok := dateFieldByName(property); ok {
		g.Property = f.Name
		g.keys = f.GroupKeys
		return g, nil
	}
	return Grouper{}, unrecognized(line, "do not understand grouper")
}
