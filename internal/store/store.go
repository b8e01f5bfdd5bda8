package store

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/amirbrooks/taskline/internal/serializer"
	"github.com/amirbrooks/taskline/internal/task"
)

type randReader struct{}

func (randReader) Read(p []byte) (int, error) { return rand.Read(p) }

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
	timeNow     = func() time.Time { return time.Now() }
)

// ConfigFile is the name of the per-vault configuration file.
const ConfigFile = ".tasker.yaml"

// MatchConflictError provides details when a selector matches multiple tasks.
// It still satisfies errors.Is(err, ErrConflict).
type MatchConflictError struct {
	Reason  string
	Matches []*task.Task
}

func (e *MatchConflictError) Error() string {
	if e == nil || strings.TrimSpace(e.Reason) == "" {
		return "conflict"
	}
	return "conflict: " + e.Reason
}

func (e *MatchConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Workspace is a directory of Markdown notes holding checklist tasks.
type Workspace struct {
	Root string
	cfg  Config
}

type Config struct {
	Schema int `yaml:"schema" json:"schema"`
	// TimeFormat is how reminder times are read and written (12h|24h).
	TimeFormat task.TimeFormat `yaml:"time_format" json:"time_format"`
	// GlobalFilter, when set, is a tag a checklist line must contain to
	// count as a task.
	GlobalFilter string `yaml:"global_filter,omitempty" json:"global_filter,omitempty"`
	// Inbox is the note new tasks are appended to.
	Inbox        string   `yaml:"inbox" json:"inbox"`
	DefaultQuery string   `yaml:"default_query,omitempty" json:"default_query,omitempty"`
	Exclude      []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// Open opens a workspace rooted at root. It does not create files until Init is called.
func Open(root string) (*Workspace, error) {
	ws := &Workspace{Root: expandHome(root)}
	if err := ws.loadOrDefaultConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, ConfigFile, err)
	}
	return ws, nil
}

func (w *Workspace) Init() error {
	if err := os.MkdirAll(w.Root, 0o755); err != nil {
		return err
	}
	if err := w.ensureConfig(); err != nil {
		return err
	}
	inbox := w.notePath(w.cfg.Inbox)
	if _, err := os.Stat(inbox); errors.Is(err, fs.ErrNotExist) {
		title := strings.TrimSuffix(filepath.Base(inbox), ".md")
		return atomicWriteFile(inbox, []byte("# "+title+"\n\n"), 0o644)
	}
	return nil
}

func (w *Workspace) ensureConfig() error {
	cfgPath := filepath.Join(w.Root, ConfigFile)
	if _, err := os.Stat(cfgPath); err == nil {
		return w.loadOrDefaultConfig()
	}
	return w.SaveConfig(defaultConfig())
}

func defaultConfig() Config {
	return Config{
		Schema:     1,
		TimeFormat: task.TwelveHour,
		Inbox:      "Inbox.md",
	}
}

func (w *Workspace) loadOrDefaultConfig() error {
	cfgPath := filepath.Join(w.Root, ConfigFile)
	b, err := os.ReadFile(cfgPath)
	if err != nil {
		w.cfg = defaultConfig()
		return err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		w.cfg = defaultConfig()
		return err
	}
	cfg, err = normalizeConfig(cfg)
	if err != nil {
		w.cfg = defaultConfig()
		return err
	}
	w.cfg = cfg
	return nil
}

func normalizeConfig(cfg Config) (Config, error) {
	def := defaultConfig()
	if cfg.Schema == 0 {
		cfg.Schema = def.Schema
	}
	tf, err := task.ParseTimeFormat(string(cfg.TimeFormat))
	if err != nil {
		return cfg, err
	}
	cfg.TimeFormat = tf
	if strings.TrimSpace(cfg.Inbox) == "" {
		cfg.Inbox = def.Inbox
	}
	if !strings.HasSuffix(strings.ToLower(cfg.Inbox), ".md") {
		cfg.Inbox += ".md"
	}
	cfg.GlobalFilter = strings.TrimSpace(cfg.GlobalFilter)
	return cfg, nil
}

func (w *Workspace) Config() Config {
	return w.cfg
}

func (w *Workspace) SaveConfig(cfg Config) error {
	cfg, err := normalizeConfig(cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := atomicWriteFile(filepath.Join(w.Root, ConfigFile), b, 0o644); err != nil {
		return err
	}
	w.cfg = cfg
	return nil
}

// SetConfigValue updates one configuration key by its YAML name.
func (w *Workspace) SetConfigValue(key, value string) error {
	cfg := w.cfg
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "time_format":
		cfg.TimeFormat = task.TimeFormat(value)
	case "global_filter":
		cfg.GlobalFilter = value
	case "inbox":
		cfg.Inbox = value
	case "default_query":
		cfg.DefaultQuery = value
	case "exclude":
		cfg.Exclude = splitList(value)
	default:
		return fmt.Errorf("%w: unknown config key %q", ErrInvalid, key)
	}
	return w.SaveConfig(cfg)
}

// Serializer reads and writes task lines in this workspace's time format.
func (w *Workspace) Serializer() *serializer.Serializer {
	return serializer.Default(w.cfg.TimeFormat)
}

func (w *Workspace) notePath(rel string) string {
	return filepath.Join(w.Root, filepath.FromSlash(rel))
}

func newULID() string {
	t := ulid.Timestamp(timeNow())
	entropy := ulid.Monotonic(randReader{}, 0)
	id, err := ulid.New(t, entropy)
	if err != nil {
		// fallback
		return fmt.Sprintf("%d", timeNow().UnixNano())
	}
	// Block links are conventionally lower case.
	return strings.ToLower(id.String())
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~"+string(os.PathSeparator)) || path == "~" {
		home, _ := os.UserHomeDir()
		if home != "" {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func atomicWriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".tmp-%d", timeNow().UnixNano()))
	if err := os.WriteFile(tmp, data, perm); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// Rename is atomic on same filesystem.
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
