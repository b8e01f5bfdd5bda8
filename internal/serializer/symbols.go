package serializer

import (
	"regexp"
	"strings"

	"github.com/amirbrooks/taskline/internal/task"
)

const variationSelector = "\uFE0F"

// Symbols is the marker table of the task line format. The first entry of
// each list is written on output; every entry is accepted on input.
type Symbols struct {
	Priority   map[task.Priority]string
	Created    []string
	Start      []string
	Scheduled  []string
	Due        []string
	Done       []string
	Recurrence []string
	Reminder   []string
}

// DefaultSymbols is the emoji format.
var DefaultSymbols = Symbols{
	Priority: map[task.Priority]string{
		task.PriorityHighest: "🔺",
		task.PriorityHigh:    "⏫",
		task.PriorityMedium:  "🔼",
		task.PriorityLow:     "🔽",
		task.PriorityLowest:  "⏬",
	},
	Created:    []string{"➕"},
	Start:      []string{"🛫"},
	Scheduled:  []string{"⏳", "⌛"},
	Due:        []string{"📅", "📆", "🗓"},
	Done:       []string{"✅"},
	Recurrence: []string{"🔁"},
	Reminder:   []string{"⏲️"},
}

const (
	datePattern       = `(\d{4}-\d{2}-\d{2})`
	reminderDate      = `\d{1,4}[-/.]\d{1,2}[-/.]\d{1,4}`
	reminderTime      = `(?: \d{1,2}:\d{2}(?: ?[aApP]\.?(?:[mM]\.?)?)?)?`
	reminderValue     = reminderDate + reminderTime
	reminderListValue = `(` + reminderValue + `(?:, *` + reminderValue + `)*)`
)

type fieldRegexps struct {
	priority   *regexp.Regexp
	created    *regexp.Regexp
	start      *regexp.Regexp
	scheduled  *regexp.Regexp
	due        *regexp.Regexp
	done       *regexp.Regexp
	recurrence *regexp.Regexp
	reminder   *regexp.Regexp
	blockLink  *regexp.Regexp
}

func compileRegexps(s Symbols) fieldRegexps {
	prio := make([]string, 0, len(s.Priority))
	for _, sym := range s.Priority {
		prio = append(prio, sym)
	}
	return fieldRegexps{
		priority:   regexp.MustCompile(alternation(prio) + `$`),
		created:    regexp.MustCompile(alternation(s.Created) + ` *` + datePattern + `$`),
		start:      regexp.MustCompile(alternation(s.Start) + ` *` + datePattern + `$`),
		scheduled:  regexp.MustCompile(alternation(s.Scheduled) + ` *` + datePattern + `$`),
		due:        regexp.MustCompile(alternation(s.Due) + ` *` + datePattern + `$`),
		done:       regexp.MustCompile(alternation(s.Done) + ` *` + datePattern + `$`),
		recurrence: regexp.MustCompile(alternation(s.Recurrence) + ` ?([a-zA-Z0-9, !]+)$`),
		reminder:   regexp.MustCompile(alternation(s.Reminder) + ` *` + reminderListValue + `$`),
		blockLink:  regexp.MustCompile(`\s\^([a-zA-Z0-9-]+)$`),
	}
}

// alternation builds a capturing group of the symbols, each optionally
// followed by a variation selector.
func alternation(symbols []string) string {
	quoted := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.TrimSuffix(sym, variationSelector)
		quoted = append(quoted, regexp.QuoteMeta(sym))
	}
	return `(?:(` + strings.Join(quoted, "|") + `)\x{FE0F}?)`
}

func first(symbols []string) string {
	if len(symbols) == 0 {
		return ""
	}
	return symbols[0]
}

func (s Symbols) priorityFor(sym string) (task.Priority, bool) {
	sym = strings.TrimSuffix(sym, variationSelector)
	for p, candidate := range s.Priority {
		if strings.TrimSuffix(candidate, variationSelector) == sym {
			return p, true
		}
	}
	return task.PriorityNone, false
}
