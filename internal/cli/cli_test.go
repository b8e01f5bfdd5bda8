package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC)
}

// syncBuffer is safe to read while a command is still writing to it.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func run(t *testing.T, root string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr syncBuffer
	a := &app{stdout: &stdout, stderr: &stderr, now: fixedNow}
	code := a.execute(context.Background(), append([]string{"--root", root, "--plain"}, args...))
	return code, stdout.String(), stderr.String()
}

func seededVault(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	code, _, stderr := run(t, root, "init")
	require.Equal(t, ExitOK, code, stderr)

	code, out, stderr := run(t, root, "add", "Buy", "milk", "--due", "tomorrow", "--priority", "high")
	require.Equal(t, ExitOK, code, stderr)
	require.Equal(t, "Added Inbox.md:3 - [ ] Buy milk ⏫ 📅 2024-01-03\n", out)

	code, _, stderr = run(t, root, "add", "Call mum #family", "--note", "Home")
	require.Equal(t, ExitOK, code, stderr)
	return root
}

func TestQueryGroupsTasks(t *testing.T) {
	root := seededVault(t)

	code, out, stderr := run(t, root, "query", "-q", "not done\ngroup by filename")
	require.Equal(t, ExitOK, code, stderr)
	assert.Equal(t, "Home\n"+
		"  - [ ] Call mum #family  Home.md:1\n"+
		"Inbox\n"+
		"  - [ ] Buy milk ⏫ 📅 2024-01-03  Inbox.md:3\n"+
		"2 tasks\n", out)
}

func TestQueryFromFileAndDefaultQuery(t *testing.T) {
	root := seededVault(t)
	queryFile := filepath.Join(t.TempDir(), "due.query")
	require.NoError(t, os.WriteFile(queryFile, []byte("# due soon\nhas due date\n"), 0o644))

	code, out, _ := run(t, root, "query", queryFile)
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "Buy milk")
	assert.NotContains(t, out, "Call mum")
	assert.True(t, strings.HasSuffix(out, "1 task\n"))

	code, _, _ = run(t, root, "config", "set", "default_query", "no due date")
	require.Equal(t, ExitOK, code)
	code, out, _ = run(t, root, "query")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "Call mum")
	assert.NotContains(t, out, "Buy milk")

	code, _, _ = run(t, root, "query", filepath.Join(root, "missing.query"))
	assert.Equal(t, ExitNotFound, code)
}

func TestQueryFormats(t *testing.T) {
	root := seededVault(t)

	code, out, _ := run(t, root, "query", "-q", "group by filename", "--format", "markdown")
	require.Equal(t, ExitOK, code)
	assert.Equal(t, "#### Home\n\n"+
		"- [ ] Call mum #family\n\n"+
		"#### Inbox\n\n"+
		"- [ ] Buy milk ⏫ 📅 2024-01-03\n\n"+
		"2 tasks\n", out)

	code, out, _ = run(t, root, "query", "--format", "telegram")
	require.Equal(t, ExitOK, code)
	assert.Equal(t, "📋 Tasks (2)\n\n"+
		"• 🔴 Buy milk — Inbox (due Jan 03)\n"+
		"• Call mum #family — Home", out)

	code, _, _ = run(t, root, "query", "--format", "xml")
	assert.Equal(t, ExitUsage, code)
}

func TestQueryJSON(t *testing.T) {
	root := seededVault(t)

	code, out, _ := run(t, root, "--stdout-json", "query", "-q", "has due date")
	require.Equal(t, ExitOK, code)
	var payload struct {
		Total  int `json:"total"`
		Groups []struct {
			Tasks []map[string]any `json:"tasks"`
		} `json:"groups"`
		Explanation []string `json:"explanation"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, 1, payload.Total)
	require.Len(t, payload.Groups, 1)
	require.Len(t, payload.Groups[0].Tasks, 1)
	assert.Equal(t, "2024-01-03", payload.Groups[0].Tasks[0]["due"])
	assert.Equal(t, "high", payload.Groups[0].Tasks[0]["priority"])
	assert.Equal(t, []string{"has due date"}, payload.Explanation)

	code, out, _ = run(t, root, "--json", "query")
	require.Equal(t, ExitOK, code)
	require.True(t, strings.HasPrefix(out, "Wrote JSON to: "))
	assert.FileExists(t, strings.TrimSpace(strings.TrimPrefix(out, "Wrote JSON to: ")))
}

func TestExplain(t *testing.T) {
	root := seededVault(t)
	code, out, _ := run(t, root, "explain", "-q", "due before tomorrow\nstarts after 2024-01-01")
	require.Equal(t, ExitOK, code)
	assert.Equal(t, "due date is before 2024-01-03 (Wednesday 3rd January 2024)\n"+
		"start date is after 2024-01-01 (Monday 1st January 2024) OR no start date\n", out)
}

func TestBadQueryIsUsageError(t *testing.T) {
	root := seededVault(t)

	code, _, stderr := run(t, root, "query", "-q", "due date invalidphrase")
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "do not understand due date")

	code, _, stderr = run(t, root, "query", "-q", "frobnicate")
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "do not understand query")
}

func TestDone(t *testing.T) {
	root := seededVault(t)

	code, out, stderr := run(t, root, "done", "milk")
	require.Equal(t, ExitOK, code, stderr)
	assert.Equal(t, "Done Inbox.md:3 - [x] Buy milk ⏫ 📅 2024-01-03 ✅ 2024-01-02\n", out)

	code, _, _ = run(t, root, "done", "milk")
	assert.Equal(t, ExitNotFound, code)

	code, _, _ = run(t, root, "done", "Inbox:3")
	assert.Equal(t, ExitConflict, code)
}

func TestDoneRecurring(t *testing.T) {
	root := seededVault(t)
	code, _, _ := run(t, root, "add", "Water plants", "--due", "2024-01-01", "--recurs", "every week", "--note", "Chores")
	require.Equal(t, ExitOK, code)

	code, out, stderr := run(t, root, "done", "Chores.md:1", "--on", "2024-01-02")
	require.Equal(t, ExitOK, code, stderr)
	assert.Equal(t, "Done Chores.md:2 - [x] Water plants 📅 2024-01-01 ✅ 2024-01-02 🔁 every week\n"+
		"Next Chores.md:1 - [ ] Water plants 📅 2024-01-08 🔁 every week\n", out)
}

func TestDoneAmbiguous(t *testing.T) {
	root := seededVault(t)
	code, _, _ := run(t, root, "add", "Call bank", "--note", "Home")
	require.Equal(t, ExitOK, code)

	code, _, stderr := run(t, root, "done", "call")
	assert.Equal(t, ExitConflict, code)
	assert.Contains(t, stderr, "Home.md:1 Call mum #family")
	assert.Contains(t, stderr, "Home.md:2 Call bank")
}

func TestParse(t *testing.T) {
	root := seededVault(t)
	code, out, _ := run(t, root, "parse", "- [ ] Pay rent 📅 2024-02-01 #home")
	require.Equal(t, ExitOK, code)

	var payload struct {
		Line string         `json:"line"`
		Task map[string]any `json:"task"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "Pay rent #home 📅 2024-02-01", payload.Line)
	assert.Equal(t, "Pay rent #home", payload.Task["description"])
	assert.Equal(t, "2024-02-01", payload.Task["due"])
	assert.Equal(t, []any{"#home"}, payload.Task["tags"])
}

func TestParseReadsGlobalFlagsAroundLine(t *testing.T) {
	root := seededVault(t)
	var stdout, stderr syncBuffer
	a := &app{stdout: &stdout, stderr: &stderr, now: fixedNow}
	code := a.execute(context.Background(), []string{"parse", "- [x] Filed taxes ✅ 2024-01-01", "--root", root, "--plain"})
	require.Equal(t, ExitOK, code, stderr.String())

	var payload struct {
		Task map[string]any `json:"task"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout.String()), &payload))
	assert.Equal(t, "x", payload.Task["status"])
	assert.Equal(t, "2024-01-01", payload.Task["done"])

	code, out, _ := run(t, root, "parse", "--", "--not a flag")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, `"description": "--not a flag"`)

	code, _, _ = run(t, root, "parse", "--bogus", "x")
	assert.Equal(t, ExitUsage, code)

	code, _, _ = run(t, root, "parse")
	assert.Equal(t, ExitUsage, code)
}

func TestStyledOutputUsesIcons(t *testing.T) {
	root := seededVault(t)
	styled := func(args ...string) string {
		var stdout, stderr syncBuffer
		a := &app{stdout: &stdout, stderr: &stderr, now: fixedNow}
		code := a.execute(context.Background(), append([]string{"--root", root}, args...))
		require.Equal(t, ExitOK, code, stderr.String())
		return stdout.String()
	}

	assert.Contains(t, styled("add", "Water plants", "--due", "2024-01-01", "--recurs", "every week"), "➕ Added Inbox.md:4")
	out := styled("done", "water")
	assert.Contains(t, out, "✅ Done Inbox.md:5")
	assert.Contains(t, out, "🔁 Next Inbox.md:4")
}

func TestTelegramMarksOverdue(t *testing.T) {
	root := seededVault(t)
	code, _, _ := run(t, root, "add", "Pay rent", "--due", "2024-01-01")
	require.Equal(t, ExitOK, code)

	code, out, _ := run(t, root, "query", "--format", "telegram")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "• Pay rent — Inbox (due Jan 01) ⏰\n")
	assert.Contains(t, out, "• 🔴 Buy milk — Inbox (due Jan 03)\n")
	assert.NotContains(t, out, "Jan 03) ⏰")
}

func TestAddRejectsBadInput(t *testing.T) {
	root := seededVault(t)

	code, _, _ := run(t, root, "add")
	assert.Equal(t, ExitUsage, code)

	code, _, _ = run(t, root, "add", "x", "--due", "someday maybe")
	assert.Equal(t, ExitUsage, code)

	code, _, _ = run(t, root, "add", "x", "--priority", "critical")
	assert.Equal(t, ExitUsage, code)

	code, _, _ = run(t, root, "add", "x", "--recurs", "sometimes")
	assert.Equal(t, ExitUsage, code)
}

func TestConfig(t *testing.T) {
	root := seededVault(t)

	code, _, _ := run(t, root, "config", "set", "time_format", "24h")
	require.Equal(t, ExitOK, code)
	code, out, _ := run(t, root, "config", "show")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "time_format: 24h")

	code, _, _ = run(t, root, "config", "set", "colour", "blue")
	assert.Equal(t, ExitUsage, code)
}

func TestUnknownCommand(t *testing.T) {
	code, _, _ := run(t, t.TempDir(), "frobnicate")
	assert.Equal(t, ExitUsage, code)

	code, _, _ = run(t, t.TempDir(), "query", "--nope")
	assert.Equal(t, ExitUsage, code)
}

func TestWatchRerunsQueryOnChange(t *testing.T) {
	root := seededVault(t)

	var stdout, stderr syncBuffer
	a := &app{stdout: &stdout, stderr: &stderr, now: fixedNow}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() {
		done <- a.execute(ctx, []string{"--root", root, "--plain", "watch", "-q", "not done"})
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "2 tasks")
	}, 5*time.Second, 20*time.Millisecond)

	f, err := os.OpenFile(filepath.Join(root, "Home.md"), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("- [ ] Fix bike\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "Fix bike")
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, stdout.String(), "3 tasks")

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, ExitOK, code)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.Contains(t, stderr.String(), "[watch]")
}
