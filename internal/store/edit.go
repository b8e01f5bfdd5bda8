package store

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/amirbrooks/taskline/internal/caldate"
	"github.com/amirbrooks/taskline/internal/task"
)

type AddTaskInput struct {
	// Text is the task line after the checkbox; it may already carry
	// field markers.
	Text string
	// Note overrides the inbox note.
	Note      string
	Priority  *task.Priority
	Start     *caldate.Date
	Scheduled *caldate.Date
	Due       *caldate.Date
	Recurs    string
	Reminders string
	// Created stamps today's date as the created date.
	Created bool
	// WithID appends a generated block link.
	WithID bool
}

// AddTask appends a new todo to a note and returns it with its location.
func (w *Workspace) AddTask(in AddTaskInput) (*task.Task, error) {
	s := w.Serializer()
	t := s.Deserialize(strings.TrimSpace(in.Text))
	if strings.TrimSpace(t.Description) == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalid)
	}
	if gf := w.cfg.GlobalFilter; gf != "" && !containsTag(t.Description, gf) {
		t = t.WithDescription(gf + " " + t.Description)
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	for _, d := range []*caldate.Date{in.Start, in.Scheduled, in.Due} {
		if d != nil && !d.IsValid() {
			return nil, fmt.Errorf("%w: date %q", ErrInvalid, d.Raw())
		}
	}
	if in.Start != nil {
		t.StartDate = in.Start
	}
	if in.Scheduled != nil {
		t.ScheduledDate = in.Scheduled
	}
	if in.Due != nil {
		t.DueDate = in.Due
	}
	if rule := strings.TrimSpace(in.Recurs); rule != "" {
		r := task.NewRecurrence(rule)
		if !r.Valid() {
			return nil, fmt.Errorf("%w: recurrence %q", ErrInvalid, rule)
		}
		t.Recurrence = r
	}
	if strings.TrimSpace(in.Reminders) != "" {
		t.Reminders = task.ParseReminderList(in.Reminders, w.cfg.TimeFormat)
	}
	if in.Created && t.CreatedDate == nil {
		t.CreatedDate = caldate.Ptr(caldate.FromTime(timeNow()))
	}
	if in.WithID && t.BlockLink == "" {
		t.BlockLink = newULID()
	}

	rel := strings.TrimSpace(in.Note)
	if rel == "" {
		rel = w.cfg.Inbox
	}
	if !strings.HasSuffix(strings.ToLower(rel), ".md") {
		rel += ".md"
	}
	rel = path.Clean(strings.TrimPrefix(rel, "/"))
	if strings.HasPrefix(rel, "../") {
		return nil, fmt.Errorf("%w: note %q is outside the workspace", ErrInvalid, in.Note)
	}

	note, err := w.loadNoteLines(rel)
	if os.IsNotExist(err) {
		note, err = splitNoteLines(""), nil
	}
	if err != nil {
		return nil, err
	}
	t.Location = task.Location{Path: rel, LineNumber: len(note.lines) + 1, ListMarker: "-"}
	note.appendLine(ToLine(&t, s))
	if err := w.saveNoteLines(rel, note); err != nil {
		return nil, err
	}
	return &t, nil
}

// ResolveTask finds one task by selector: "path:line", "^blockid", or
// text contained in the description of exactly one open task.
func (w *Workspace) ResolveTask(selector string) (*task.Task, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, fmt.Errorf("%w: selector is required", ErrInvalid)
	}
	tasks, err := w.LoadTasks()
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(selector, "^") {
		id := strings.ToLower(strings.TrimPrefix(selector, "^"))
		var hits []*task.Task
		for _, t := range tasks {
			if strings.ToLower(t.BlockLink) == id {
				hits = append(hits, t)
			}
		}
		return pickOne(selector, hits)
	}

	if i := strings.LastIndex(selector, ":"); i > 0 {
		if line, err := strconv.Atoi(selector[i+1:]); err == nil {
			p := strings.TrimPrefix(selector[:i], "/")
			for _, t := range tasks {
				if t.Location.LineNumber != line {
					continue
				}
				if t.Location.Path == p || strings.TrimSuffix(t.Location.Path, ".md") == p {
					return t, nil
				}
			}
			// "standup at 10:30" is text, not a location.
			if w.noteExists(p) {
				return nil, fmt.Errorf("%w: no task at %s", ErrNotFound, selector)
			}
		}
	}

	needle := strings.ToLower(selector)
	var hits []*task.Task
	for _, t := range tasks {
		if t.Status.IsDone() {
			continue
		}
		if strings.Contains(strings.ToLower(t.Description), needle) {
			hits = append(hits, t)
		}
	}
	return pickOne(selector, hits)
}

func pickOne(selector string, hits []*task.Task) (*task.Task, error) {
	switch len(hits) {
	case 0:
		return nil, fmt.Errorf("%w: no task matches %q", ErrNotFound, selector)
	case 1:
		return hits[0], nil
	default:
		return nil, &MatchConflictError{
			Reason:  fmt.Sprintf("%q matches %d tasks", selector, len(hits)),
			Matches: hits,
		}
	}
}

// CompleteResult is what CompleteTask changed.
type CompleteResult struct {
	Completed *task.Task
	// Next is the new occurrence of a recurring task, or nil.
	Next *task.Task
}

// CompleteTask marks the selected task done on doneOn and rewrites its line.
// A recurring task gets its next occurrence inserted above the completed
// line.
func (w *Workspace) CompleteTask(selector string, doneOn caldate.Date) (*CompleteResult, error) {
	if !doneOn.IsValid() {
		return nil, fmt.Errorf("%w: completion date", ErrInvalid)
	}
	t, err := w.ResolveTask(selector)
	if err != nil {
		return nil, err
	}
	if t.Status.IsDone() {
		return nil, fmt.Errorf("%w: task at %s:%d is already done", ErrConflict, t.Location.Path, t.Location.LineNumber)
	}

	note, err := w.loadNoteLines(t.Location.Path)
	if err != nil {
		return nil, err
	}
	idx := t.Location.LineNumber - 1
	if idx < 0 || idx >= len(note.lines) {
		return nil, fmt.Errorf("%w: line %d of %s", ErrNotFound, t.Location.LineNumber, t.Location.Path)
	}

	s := w.Serializer()
	done := *t
	done.Status = task.StatusDone
	done.DoneDate = caldate.Ptr(doneOn.StartOfDay())

	res := &CompleteResult{Completed: &done}
	replacement := []string{ToLine(&done, s)}
	if next, ok := task.NextOccurrence(*t, doneOn.StartOfDay()); ok {
		next.Location.LineNumber = t.Location.LineNumber
		done.Location.LineNumber++
		res.Next = &next
		replacement = []string{ToLine(&next, s), replacement[0]}
	}

	note.replace(idx, replacement...)
	if err := w.saveNoteLines(t.Location.Path, note); err != nil {
		return nil, err
	}
	return res, nil
}

func (w *Workspace) noteExists(rel string) bool {
	for _, p := range []string{rel, rel + ".md"} {
		if info, err := os.Stat(w.notePath(p)); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

// noteLines is a note split on "\n". A line read from a CRLF note keeps
// its "\r", so lines an edit does not touch are written back unchanged.
type noteLines struct {
	lines        []string
	crlf         bool
	finalNewline bool
}

func splitNoteLines(content string) *noteLines {
	if content == "" {
		return &noteLines{finalNewline: true}
	}
	n := &noteLines{finalNewline: strings.HasSuffix(content, "\n")}
	n.lines = strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	n.crlf = strings.HasSuffix(n.lines[0], "\r")
	return n
}

func (n *noteLines) String() string {
	out := strings.Join(n.lines, "\n")
	if n.finalNewline && len(n.lines) > 0 {
		out += "\n"
	}
	return out
}

// replace swaps line idx for repl, giving each new line the ending the
// old one had.
func (n *noteLines) replace(idx int, repl ...string) {
	cr := ""
	if strings.HasSuffix(n.lines[idx], "\r") {
		cr = "\r"
	}
	out := make([]string, 0, len(n.lines)+len(repl)-1)
	out = append(out, n.lines[:idx]...)
	for _, line := range repl {
		out = append(out, line+cr)
	}
	out = append(out, n.lines[idx+1:]...)
	n.lines = out
}

// appendLine adds a line at the end using the note's line ending. A note
// without a final newline stays without one.
func (n *noteLines) appendLine(line string) {
	if last := len(n.lines) - 1; last >= 0 && n.crlf && !strings.HasSuffix(n.lines[last], "\r") {
		n.lines[last] += "\r"
	}
	if n.crlf && n.finalNewline {
		line += "\r"
	}
	n.lines = append(n.lines, line)
}

func (w *Workspace) loadNoteLines(rel string) (*noteLines, error) {
	b, err := os.ReadFile(w.notePath(rel))
	if err != nil {
		return nil, err
	}
	return splitNoteLines(string(b)), nil
}

func (w *Workspace) saveNoteLines(rel string, n *noteLines) error {
	return atomicWriteFile(w.notePath(rel), []byte(n.String()), 0o644)
}
