package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amirbrooks/taskline/internal/caldate"
	"github.com/amirbrooks/taskline/internal/query"
	"github.com/amirbrooks/taskline/internal/serializer"
	"github.com/amirbrooks/taskline/internal/store"
	"github.com/amirbrooks/taskline/internal/task"
	"github.com/amirbrooks/taskline/internal/ui"
)

const telegramMaxChars = 3800

func (a *app) render(groups *query.TaskGroups, q *query.Query, format string) (string, error) {
	s := a.ws.Serializer()
	var b strings.Builder
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		if q.Explain {
			b.WriteString(q.Explanation())
			b.WriteString("\n")
		}
		a.writeText(&b, groups, s)
	case "markdown", "md":
		if q.Explain {
			b.WriteString("Explanation of this query:\n\n")
			for _, line := range strings.Split(strings.TrimRight(q.Explanation(), "\n"), "\n") {
				b.WriteString("    " + line + "\n")
			}
			b.WriteString("\n")
		}
		writeMarkdown(&b, groups, s)
	case "telegram":
		return renderTelegram(groups, a.now()), nil
	default:
		return "", usagef("--format: unknown format %q (use text|markdown|telegram)", format)
	}
	return b.String(), nil
}

func (a *app) style(level int, s string) string {
	if a.gf.Plain {
		return s
	}
	return ui.Heading(level, s)
}

// label prefixes an action word with its icon unless output is plain.
func (a *app) label(icon, word string) string {
	if a.gf.Plain {
		return word
	}
	return icon + " " + word
}

func (a *app) writeText(b *strings.Builder, groups *query.TaskGroups, s *serializer.Serializer) {
	depth := len(groups.Groupers)
	for _, g := range groups.Groups {
		for _, h := range g.Headings {
			name := h.Name
			if name == "" {
				name = "(none)"
			}
			b.WriteString(strings.Repeat("  ", h.Level) + a.style(h.Level, name) + "\n")
		}
		indent := strings.Repeat("  ", depth)
		for _, t := range g.Tasks {
			flat := *t
			flat.Location.Indent = ""
			flat.Location.ListMarker = "-"
			line := store.ToLine(&flat, s)
			if !a.gf.Plain {
				line = ui.StatusMark(t.Status.IsDone(), line)
			}
			fmt.Fprintf(b, "%s%s  %s\n", indent, line, a.locationText(t))
		}
	}
	b.WriteString(tasksCount(groups.TotalTasksCount()) + "\n")
}

func (a *app) locationText(t *task.Task) string {
	loc := fmt.Sprintf("%s:%d", t.Location.Path, t.Location.LineNumber)
	if a.gf.Plain {
		return loc
	}
	return ui.Muted.Render(loc)
}

func writeMarkdown(b *strings.Builder, groups *query.TaskGroups, s *serializer.Serializer) {
	for _, g := range groups.Groups {
		for _, h := range g.Headings {
			level := h.Level + 4
			if level > 6 {
				level = 6
			}
			b.WriteString(strings.Repeat("#", level) + " " + h.Name + "\n\n")
		}
		for _, t := range g.Tasks {
			line := "- [" + string(statusRune(t.Status)) + "]"
			if body := s.Serialize(*t); body != "" {
				line += " " + body
			}
			b.WriteString(line + "\n")
		}
		if len(g.Tasks) > 0 {
			b.WriteString("\n")
		}
	}
	b.WriteString(tasksCount(groups.TotalTasksCount()) + "\n")
}

func statusRune(s task.Status) rune {
	if s == 0 {
		return rune(task.StatusTodo)
	}
	return rune(s)
}

func tasksCount(n int) string {
	if n == 1 {
		return "1 task"
	}
	return fmt.Sprintf("%d tasks", n)
}

func trimTelegramOutput(s string) string {
	s = strings.TrimRight(s, "\n")
	runes := []rune(s)
	if len(runes) <= telegramMaxChars {
		return s
	}
	suffix := "\n… (truncated)"
	suffixRunes := []rune(suffix)
	limit := telegramMaxChars - len(suffixRunes)
	if limit < 1 {
		return string(runes[:telegramMaxChars])
	}
	return string(runes[:limit]) + suffix
}

func telegramPriorityEmoji(p task.Priority) string {
	switch p {
	case task.PriorityHighest, task.PriorityHigh:
		return "🔴"
	case task.PriorityLow, task.PriorityLowest:
		return "🟡"
	default:
		return ""
	}
}

func cleanTaskTitle(title string) string {
	title = strings.ReplaceAll(title, "\n", " ")
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.TrimSpace(title)
	if title == "" {
		return "(untitled)"
	}
	return title
}

func formatDueShort(t *task.Task, now time.Time) string {
	if t.DueDate == nil {
		return ""
	}
	if !t.DueDate.IsValid() {
		return t.DueDate.String()
	}
	due := t.DueDate.Time()
	if due.Year() == now.Year() {
		return due.Format("Jan 02")
	}
	return due.Format("Jan 02 2006")
}

func isOverdue(t *task.Task, now time.Time) bool {
	if t.Status.IsDone() || t.DueDate == nil || !t.DueDate.IsValid() {
		return false
	}
	return t.DueDate.Before(caldate.FromTime(now))
}

func telegramTaskLine(t *task.Task, now time.Time) string {
	var b strings.Builder
	if t.Status.IsDone() {
		b.WriteString("✔️ ")
	} else {
		b.WriteString("• ")
	}
	if pri := telegramPriorityEmoji(t.Priority); pri != "" {
		b.WriteString(pri)
		b.WriteString(" ")
	}
	b.WriteString(cleanTaskTitle(t.Description))
	if name := t.Filename(); name != "" {
		b.WriteString(" — ")
		b.WriteString(name)
	}
	if due := formatDueShort(t, now); due != "" {
		b.WriteString(" (due ")
		b.WriteString(due)
		b.WriteString(")")
	}
	if isOverdue(t, now) {
		b.WriteString(" ")
		b.WriteString(ui.IconOverdue)
	}
	b.WriteString("\n")
	return b.String()
}

// renderTelegram writes a compact chat message: one bullet per task, group
// headings with their task counts.
func renderTelegram(groups *query.TaskGroups, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Tasks (%d)\n\n", groups.TotalTasksCount())
	if groups.TotalTasksCount() == 0 {
		b.WriteString("No matching tasks.\n")
		return trimTelegramOutput(b.String())
	}
	for _, g := range groups.Groups {
		for _, h := range g.Headings {
			prefix := "📁 "
			if h.Level > 0 {
				prefix = strings.Repeat("  ", h.Level) + "▸ "
			}
			b.WriteString(prefix + h.Name)
			if h.Level == len(g.GroupNames)-1 {
				fmt.Fprintf(&b, " (%d)", len(g.Tasks))
			}
			b.WriteString("\n")
		}
		for _, t := range g.Tasks {
			b.WriteString(telegramTaskLine(t, now))
		}
		if len(g.GroupNames) > 0 {
			b.WriteString("\n")
		}
	}
	return trimTelegramOutput(b.String())
}

type groupPayload struct {
	Names    []string     `json:"names"`
	Headings []string     `json:"headings,omitempty"`
	Tasks    []*task.Task `json:"tasks"`
}

func queryPayload(q *query.Query, groups *query.TaskGroups) map[string]any {
	explanation := make([]string, 0, len(q.Filters))
	for _, f := range q.Filters {
		explanation = append(explanation, f.Explanation)
	}
	payload := map[string]any{
		"explanation": explanation,
		"explain":     q.Explanation(),
	}
	if groups == nil {
		return payload
	}
	out := make([]groupPayload, 0, len(groups.Groups))
	for _, g := range groups.Groups {
		gp := groupPayload{Names: g.GroupNames, Tasks: g.Tasks}
		for _, h := range g.Headings {
			gp.Headings = append(gp.Headings, h.Name)
		}
		if gp.Tasks == nil {
			gp.Tasks = []*task.Task{}
		}
		out = append(out, gp)
	}
	payload["groups"] = out
	payload["total"] = groups.TotalTasksCount()
	return payload
}

func (a *app) emitJSON(base string, payload any) error {
	if a.gf.StdoutJSON {
		return writeJSON(a.stdout, payload)
	}
	path, err := writeJSONExport(a.gf.ExportDir, base, payload)
	if err != nil {
		return err
	}
	a.info("Wrote JSON to: %s\n", path)
	return nil
}

func writeJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(payload)
}

func writeJSONExport(dir, base string, payload any) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return writeExportFile(dir, base, "json", data)
}

func writeExportFile(dir, base, ext string, data []byte) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("export directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	t := time.Now().UTC()
	ts := t.Format("20060102-150405")
	name := fmt.Sprintf("%s-%s.%s", base, ts, ext)
	path := filepath.Join(dir, name)
	for i := 1; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			break
		}
		name = fmt.Sprintf("%s-%s-%d.%s", base, ts, i, ext)
		path = filepath.Join(dir, name)
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".tmp-%d", time.Now().UTC().UnixNano()))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return path, nil
}
