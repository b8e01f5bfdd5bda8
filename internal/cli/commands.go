package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/amirbrooks/taskline/internal/query"
	"github.com/amirbrooks/taskline/internal/store"
	"github.com/amirbrooks/taskline/internal/task"
	"github.com/amirbrooks/taskline/internal/ui"
)

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the vault config and inbox note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ws.Init(); err != nil {
				return err
			}
			a.info("Initialized tasker vault at %s\n", a.ws.Root)
			return nil
		},
	}
}

func (a *app) newAddCmd() *cobra.Command {
	var (
		note, priority, due, scheduled, start, recurs, remind string
		created, withID                                       bool
	)
	cmd := &cobra.Command{
		Use:   "add <text...>",
		Short: "Append a task to the inbox (or --note)",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usagef("task text is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			in := store.AddTaskInput{
				Text:      strings.Join(args, " "),
				Note:      note,
				Recurs:    recurs,
				Reminders: remind,
				Created:   created,
				WithID:    withID,
			}
			if priority != "" {
				p, ok := task.ParsePriority(priority)
				if !ok {
					return usagef("--priority: unknown priority %q", priority)
				}
				in.Priority = &p
			}
			var err error
			if in.Due, err = a.parseDateFlag("due", due); err != nil {
				return err
			}
			if in.Scheduled, err = a.parseDateFlag("scheduled", scheduled); err != nil {
				return err
			}
			if in.Start, err = a.parseDateFlag("start", start); err != nil {
				return err
			}

			t, err := a.ws.AddTask(in)
			if err != nil {
				return err
			}
			if a.gf.JSON {
				return a.emitJSON("task", map[string]any{"task": t})
			}
			a.printf("%s %s:%d %s\n", a.label(ui.IconPlus, "Added"), t.Location.Path, t.Location.LineNumber, store.ToLine(t, a.ws.Serializer()))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&note, "note", "", "Note to append to (default: config inbox)")
	f.StringVar(&priority, "priority", "", "highest|high|medium|none|low|lowest")
	f.StringVar(&due, "due", "", "Due date (YYYY-MM-DD or phrase like \"next friday\")")
	f.StringVar(&scheduled, "scheduled", "", "Scheduled date")
	f.StringVar(&start, "start", "", "Start date")
	f.StringVar(&recurs, "recurs", "", "Recurrence rule, e.g. \"every 2 weeks\"")
	f.StringVar(&remind, "remind", "", "Reminders, comma separated")
	f.BoolVar(&created, "created", false, "Stamp today's date as the created date")
	f.BoolVar(&withID, "id", false, "Append a block link id")
	return cmd
}

func (a *app) newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <line>",
		Short: "Show the fields tasker reads from a task line",
		// A checklist line starts with "- [", which pflag would read as
		// shorthand flags. Global flags are picked out in RunE instead.
		DisableFlagParsing: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := applyInheritedFlags(cmd, args)
			if errors.Is(err, errHelpRequested) {
				return cmd.Help()
			}
			if err != nil {
				return err
			}
			if len(words) == 0 {
				return usagef("line is required")
			}
			if err := a.openWorkspace(); err != nil {
				return err
			}

			line := strings.Join(words, " ")
			s := a.ws.Serializer()
			var t task.Task
			if found := store.ParseNote("", line, s, ""); len(found) == 1 {
				t = *found[0]
			} else {
				t = s.Deserialize(line)
			}
			payload := map[string]any{"task": t, "line": s.Serialize(t)}
			if a.gf.JSON && !a.gf.StdoutJSON {
				return a.emitJSON("parse", payload)
			}
			return writeJSON(a.stdout, payload)
		},
	}
}

var errHelpRequested = errors.New("help requested")

// applyInheritedFlags sets the long-form global flags found in args and
// returns the other words in order. Everything after "--" is a word.
func applyInheritedFlags(cmd *cobra.Command, args []string) ([]string, error) {
	flags := cmd.InheritedFlags()
	var words []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return append(words, args[i+1:]...), nil
		}
		if arg == "-h" || arg == "--help" {
			return nil, errHelpRequested
		}
		if !strings.HasPrefix(arg, "--") {
			words = append(words, arg)
			continue
		}
		name, value, hasValue := strings.Cut(arg[2:], "=")
		f := flags.Lookup(name)
		if f == nil {
			return nil, usagef("unknown flag: --%s", name)
		}
		if !hasValue {
			if f.NoOptDefVal != "" {
				value = f.NoOptDefVal
			} else if i+1 < len(args) {
				i++
				value = args[i]
			} else {
				return nil, usagef("flag needs an argument: --%s", name)
			}
		}
		if err := flags.Set(name, value); err != nil {
			return nil, usageError{err}
		}
	}
	return words, nil
}

type querySource struct {
	inline string
}

func (qs *querySource) read(a *app, args []string) (string, error) {
	switch {
	case qs.inline != "":
		return strings.ReplaceAll(qs.inline, `\n`, "\n"), nil
	case len(args) == 1 && args[0] == "-":
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	case len(args) == 1:
		b, err := os.ReadFile(args[0])
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: query file %s", store.ErrNotFound, args[0])
		}
		return string(b), err
	default:
		return a.ws.Config().DefaultQuery, nil
	}
}

func (a *app) parseQuery(source string) (*query.Query, error) {
	return query.Parse(source, query.Options{Now: a.now})
}

func (a *app) newQueryCmd() *cobra.Command {
	var (
		qs     querySource
		format string
	)
	cmd := &cobra.Command{
		Use:   "query [file|-]",
		Short: "Run a query and print matching tasks",
		Long:  "Run a query read from a file, stdin (-), --query, or the config default_query.\nOne instruction per line: filters, sort by, group by, limit, explain.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := qs.read(a, args)
			if err != nil {
				return err
			}
			q, err := a.parseQuery(source)
			if err != nil {
				return err
			}
			tasks, err := a.ws.LoadTasks()
			if err != nil {
				return err
			}
			groups := q.Apply(tasks)
			if a.gf.JSON {
				return a.emitJSON("query", queryPayload(q, groups))
			}
			out, err := a.render(groups, q, format)
			if err != nil {
				return err
			}
			a.printf("%s", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&qs.inline, "query", "q", "", "Query text (use \\n between instructions)")
	cmd.Flags().StringVar(&format, "format", "text", "text|markdown|telegram")
	return cmd
}

func (a *app) newExplainCmd() *cobra.Command {
	var qs querySource
	cmd := &cobra.Command{
		Use:   "explain [file|-]",
		Short: "Explain what a query does",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := qs.read(a, args)
			if err != nil {
				return err
			}
			q, err := a.parseQuery(source)
			if err != nil {
				return err
			}
			if a.gf.JSON {
				return a.emitJSON("explain", queryPayload(q, nil))
			}
			a.printf("%s", q.Explanation())
			return nil
		},
	}
	cmd.Flags().StringVarP(&qs.inline, "query", "q", "", "Query text (use \\n between instructions)")
	return cmd
}

func (a *app) newDoneCmd() *cobra.Command {
	var on string
	cmd := &cobra.Command{
		Use:   "done <path:line|^id|text>",
		Short: "Complete a task; recurring tasks get their next occurrence",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usagef("selector is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			doneOn := a.today()
			if d, err := a.parseDateFlag("on", on); err != nil {
				return err
			} else if d != nil {
				doneOn = *d
			}
			res, err := a.ws.CompleteTask(strings.Join(args, " "), doneOn)
			if err != nil {
				var conflict *store.MatchConflictError
				if errors.As(err, &conflict) {
					if !a.gf.Plain {
						fmt.Fprintln(a.stderr, ui.Warn.Render(ui.IconWarn+" candidates:"))
					}
					for _, m := range conflict.Matches {
						fmt.Fprintf(a.stderr, "  %s:%d %s\n", m.Location.Path, m.Location.LineNumber, m.Description)
					}
				}
				return err
			}
			if a.gf.JSON {
				return a.emitJSON("done", res)
			}
			s := a.ws.Serializer()
			a.printf("%s %s:%d %s\n", a.label(ui.IconDone, "Done"), res.Completed.Location.Path, res.Completed.Location.LineNumber, store.ToLine(res.Completed, s))
			if res.Next != nil {
				a.printf("%s %s:%d %s\n", a.label(ui.IconLoop, "Next"), res.Next.Location.Path, res.Next.Location.LineNumber, store.ToLine(res.Next, s))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&on, "on", "", "Completion date (default: today)")
	return cmd
}

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change vault configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.ws.Config()
			if a.gf.JSON {
				return a.emitJSON("config", cfg)
			}
			b, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			a.printf("%s", b)
			return nil
		},
	}, &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set time_format, global_filter, inbox, default_query or exclude",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return usagef("usage: tasker config set <key> <value>")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ws.SetConfigValue(args[0], args[1]); err != nil {
				return err
			}
			a.info("Set %s\n", args[0])
			return nil
		},
	})
	return cmd
}
