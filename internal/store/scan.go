package store

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/amirbrooks/taskline/internal/serializer"
	"github.com/amirbrooks/taskline/internal/task"
)

// checklistRegexp splits a Markdown checklist item into indent, list
// marker, status character and body.
var checklistRegexp = regexp.MustCompile(`^([\s>]*)([-*+]|\d+[.)]) +\[(.)\] *(.*)$`)

// parsedLine is one checklist item found in a note.
type parsedLine struct {
	indent string
	marker string
	status task.Status
	body   string
}

func parseChecklistLine(line string) (parsedLine, bool) {
	m := checklistRegexp.FindStringSubmatch(line)
	if m == nil {
		return parsedLine{}, false
	}
	return parsedLine{indent: m[1], marker: m[2], status: task.Status([]rune(m[3])[0]), body: m[4]}, true
}

// isTaskLine applies the global filter.
func (w *Workspace) isTaskLine(p parsedLine) bool {
	if w.cfg.GlobalFilter == "" {
		return true
	}
	return containsTag(p.body, w.cfg.GlobalFilter)
}

func containsTag(body, tag string) bool {
	want := task.NormalizeTag(tag)
	for _, t := range task.ExtractHashtags(body) {
		if strings.ToLower(t) == want {
			return true
		}
	}
	return false
}

// ParseNote returns the tasks in one note's content. Lines inside fenced
// code blocks are skipped.
func ParseNote(relPath, content string, s *serializer.Serializer, globalFilter string) []*task.Task {
	w := &Workspace{cfg: Config{GlobalFilter: globalFilter}}
	return w.parseNote(relPath, content, s)
}

func (w *Workspace) parseNote(relPath, content string, s *serializer.Serializer) []*task.Task {
	var out []*task.Task
	inFence := false
	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		p, ok := parseChecklistLine(line)
		if !ok || !w.isTaskLine(p) {
			continue
		}
		t := s.Deserialize(p.body)
		t.Status = p.status
		t.Location = task.Location{
			Path:       relPath,
			LineNumber: i + 1,
			Indent:     p.indent,
			ListMarker: p.marker,
		}
		out = append(out, &t)
	}
	return out
}

// LoadTasks reads every task in every note under the workspace root, in
// path then line order. Hidden directories and configured excludes are
// skipped.
func (w *Workspace) LoadTasks() ([]*task.Task, error) {
	paths, err := w.notePaths()
	if err != nil {
		return nil, err
	}
	s := w.Serializer()
	var out []*task.Task
	for _, rel := range paths {
		b, err := os.ReadFile(w.notePath(rel))
		if err != nil {
			return nil, err
		}
		out = append(out, w.parseNote(rel, string(b), s)...)
	}
	return out, nil
}

// notePaths lists Markdown notes relative to the root, slash separated.
func (w *Workspace) notePaths() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(w.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(w.Root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && (strings.HasPrefix(d.Name(), ".") || w.excluded(rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		if w.excluded(rel) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func (w *Workspace) excluded(rel string) bool {
	for _, ex := range w.cfg.Exclude {
		ex = strings.Trim(filepath.ToSlash(ex), "/")
		if ex == "" {
			continue
		}
		if rel == ex || strings.HasPrefix(rel, ex+"/") {
			return true
		}
	}
	return false
}

// ToLine rebuilds the full Markdown line for t.
func ToLine(t *task.Task, s *serializer.Serializer) string {
	marker := t.Location.ListMarker
	if marker == "" {
		marker = "-"
	}
	status := t.Status
	if status == 0 {
		status = task.StatusTodo
	}
	line := t.Location.Indent + marker + " [" + string(rune(status)) + "]"
	if body := s.Serialize(*t); body != "" {
		line += " " + body
	}
	return line
}
