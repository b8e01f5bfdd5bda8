package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amirbrooks/taskline/internal/caldate"
	"github.com/amirbrooks/taskline/internal/query"
	"github.com/amirbrooks/taskline/internal/store"
	"github.com/amirbrooks/taskline/internal/ui"
)

// Exit codes
const (
	ExitOK       = 0
	ExitUsage    = 2
	ExitNotFound = 3
	ExitConflict = 4
	ExitInternal = 10
)

const Version = "0.1.0"

type GlobalFlags struct {
	Root       string
	JSON       bool
	StdoutJSON bool
	ExportDir  string
	Plain      bool
	Quiet      bool
}

// usageError marks errors caused by how the command was invoked.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

type app struct {
	gf     GlobalFlags
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
	ws     *store.Workspace
}

// Run is the process entry point.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Execute(ctx, args, os.Stdout, os.Stderr)
}

// Execute runs one command line against the given writers and returns the
// exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, now: time.Now}
	return a.execute(ctx, args)
}

func (a *app) execute(ctx context.Context, args []string) int {
	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	msg := err.Error()
	if a.gf.Plain {
		fmt.Fprintln(a.stderr, "tasker:", msg)
	} else {
		fmt.Fprintln(a.stderr, ui.Error(msg))
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var ue usageError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &ue),
		errors.Is(err, store.ErrInvalid),
		errors.Is(err, query.ErrUnrecognizedInstruction),
		errors.Is(err, query.ErrUnparseableDate),
		strings.HasPrefix(err.Error(), "unknown command"),
		strings.HasPrefix(err.Error(), "unknown flag"),
		strings.HasPrefix(err.Error(), "unknown shorthand flag"):
		return ExitUsage
	case errors.Is(err, store.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, store.ErrConflict):
		return ExitConflict
	default:
		return ExitInternal
	}
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tasker",
		Short:         "Query and edit Markdown checklist tasks",
		Long:          "tasker reads tasks from checklist lines in a folder of Markdown notes,\nfilters, sorts and groups them with line-based queries, and edits them in place.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.openWorkspace()
		},
	}
	root.SetVersionTemplate("{{.Name}} v{{.Version}}\n")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.gf.Root, "root", "", "Vault root (default: TASKER_ROOT or ~/tasks)")
	pf.BoolVar(&a.gf.JSON, "json", false, "Write JSON output to <root>/exports")
	pf.BoolVar(&a.gf.StdoutJSON, "stdout-json", false, "Print JSON to stdout (with --json)")
	pf.StringVar(&a.gf.ExportDir, "export-dir", "", "Directory for JSON exports (default: <root>/exports)")
	pf.BoolVar(&a.gf.Plain, "plain", false, "No colours or styling")
	pf.BoolVar(&a.gf.Quiet, "quiet", false, "Only print results")

	root.AddCommand(
		a.newInitCmd(),
		a.newAddCmd(),
		a.newParseCmd(),
		a.newQueryCmd(),
		a.newExplainCmd(),
		a.newDoneCmd(),
		a.newWatchCmd(),
		a.newConfigCmd(),
	)
	return root
}

func (a *app) openWorkspace() error {
	root := resolveRoot(a.gf.Root)
	ws, err := store.Open(root)
	if err != nil {
		return err
	}
	a.ws = ws
	if a.gf.StdoutJSON {
		a.gf.JSON = true
	}
	if strings.TrimSpace(a.gf.ExportDir) == "" {
		a.gf.ExportDir = filepath.Join(ws.Root, "exports")
	}
	return nil
}

// resolveRoot picks --root, then TASKER_ROOT, then ~/tasks.
func resolveRoot(flagRoot string) string {
	if strings.TrimSpace(flagRoot) != "" {
		return flagRoot
	}
	if env := os.Getenv("TASKER_ROOT"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return "tasks"
	}
	return filepath.Join(home, "tasks")
}

func (a *app) today() caldate.Date {
	return caldate.FromTime(a.now())
}

func (a *app) dateParser() query.DateParser {
	return query.NewNaturalDateParser(a.now)
}

// parseDateFlag resolves a date expression from a flag, or nil when unset.
func (a *app) parseDateFlag(name, expr string) (*caldate.Date, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}
	d := a.dateParser().ParseDate(expr)
	if !d.IsValid() {
		return nil, usagef("--%s: do not understand date %q", name, expr)
	}
	return &d, nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

func (a *app) info(format string, args ...any) {
	if a.gf.Quiet {
		return
	}
	fmt.Fprintf(a.stdout, format, args...)
}
