package query

import (
	"regexp"
	"strings"

	"github.com/amirbrooks/taskline/internal/task"
)

// statusFilters: "done" and "not done".
func statusFilters() FilterFactory {
	var fi filterInstructions
	fi.add("done", func(t *task.Task) bool { return t.Status.IsDone() })
	fi.add("not done", func(t *task.Task) bool { return !t.Status.IsDone() })
	return fi
}

func recurrenceFilters() FilterFactory {
	var fi filterInstructions
	fi.add("is recurring", func(t *task.Task) bool { return t.IsRecurring() })
	fi.add("is not recurring", func(t *task.Task) bool { return !t.IsRecurring() })
	return fi
}

func reminderFilters() FilterFactory {
	var fi filterInstructions
	fi.add("has reminders", func(t *task.Task) bool { return !t.Reminders.IsEmpty() })
	fi.add("no reminders", func(t *task.Task) bool { return t.Reminders.IsEmpty() })
	return fi
}

// textFilterFactory handles "<field> includes <text>" style instructions.
type textFilterFactory struct {
	name  string
	re    *regexp.Regexp
	match func(t *task.Task, value string) bool
}

func (f *textFilterFactory) CanCreateFilterForLine(line string) bool {
	return f.re.MatchString(normalizeLine(line))
}

func (f *textFilterFactory) CreateFilter(line string) (*Filter, error) {
	m := f.re.FindStringSubmatch(normalizeLine(line))
	if m == nil {
		return nil, unrecognized(line, "do not understand query filter ("+f.name+")")
	}
	value := strings.TrimSpace(m[2])
	if value == "" {
		return nil, unrecognized(line, "do not understand query filter ("+f.name+")")
	}
	negate := strings.Contains(strings.ToLower(m[1]), "not")
	match := func(t *task.Task) bool {
		return f.match(t, value) != negate
	}
	return newFilter(line, match, normalizeLine(line)), nil
}

// descriptionFilters matches substrings case-insensitively.
func descriptionFilters() FilterFactory {
	return &textFilterFactory{
		name: "description",
		re:   regexp.MustCompile(`(?i)^description (includes|does not include) (.*)$`),
		match: func(t *task.Task, value string) bool {
			return strings.Contains(strings.ToLower(t.Description), strings.ToLower(value))
		},
	}
}

// tagFilters matches a tag or any of its nested tags.
func tagFilters() FilterFactory {
	return &textFilterFactory{
		name: "tags",
		re:   regexp.MustCompile(`(?i)^tags? (include|do not include|includes|does not include) (.*)$`),
		match: func(t *task.Task, value string) bool {
			return t.HasTag(value)
		},
	}
}
