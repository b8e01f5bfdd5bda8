package cli

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/amirbrooks/taskline/internal/ui"
)

const watchDebounce = 250 * time.Millisecond

func (a *app) newWatchCmd() *cobra.Command {
	var (
		qs     querySource
		format string
	)
	cmd := &cobra.Command{
		Use:   "watch [file]",
		Short: "Re-run a query whenever a note changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && args[0] == "-" {
				return usagef("watch reads its query from a file or --query, not stdin")
			}
			source := func() (string, error) { return qs.read(a, args) }
			// Fail fast on a bad query before watching.
			text, err := source()
			if err != nil {
				return err
			}
			if _, err := a.parseQuery(text); err != nil {
				return err
			}
			return a.watch(cmd.Context(), source, format, watchDebounce)
		},
	}
	cmd.Flags().StringVarP(&qs.inline, "query", "q", "", "Query text (use \\n between instructions)")
	cmd.Flags().StringVar(&format, "format", "text", "text|markdown|telegram")
	return cmd
}

// watch prints the query result, then again after every burst of note
// changes, until ctx is done.
func (a *app) watch(ctx context.Context, source func() (string, error), format string, debounce time.Duration) error {
	logger := log.New(a.stderr, "", log.LstdFlags)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	err = filepath.WalkDir(a.ws.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != a.ws.Root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		return err
	}

	refresh := func() {
		text, err := source()
		if err != nil {
			logger.Printf("[watch] read query: %v", err)
			return
		}
		q, err := a.parseQuery(text)
		if err != nil {
			logger.Printf("[watch] %v", err)
			return
		}
		tasks, err := a.ws.LoadTasks()
		if err != nil {
			logger.Printf("[watch] load tasks: %v", err)
			return
		}
		out, err := a.render(q.Apply(tasks), q, format)
		if err != nil {
			logger.Printf("[watch] render: %v", err)
			return
		}
		stamp := "── " + a.now().Format("15:04:05") + " ──"
		if !a.gf.Plain {
			stamp = ui.Muted.Render(stamp)
		}
		a.printf("%s\n%s", stamp, out)
	}

	if !a.gf.Quiet {
		logger.Printf("[watch] %s watching %s", ui.IconWatch, a.ws.Root)
	}
	refresh()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			if !a.gf.Quiet {
				logger.Printf("[watch] stopped")
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !strings.HasPrefix(info.Name(), ".") {
					if err := watcher.Add(event.Name); err != nil {
						logger.Printf("[watch] add %s: %v", event.Name, err)
					}
					continue
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if strings.ToLower(filepath.Ext(event.Name)) != ".md" {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			refresh()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Printf("[watch] watcher error: %v", err)
		}
	}
}
