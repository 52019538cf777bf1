package config

import (
	"os"
	"path/filepath"

	"github.com/palisade-irc/palisaded/internal/event"
)

// FileIncluder resolves $INCLUDE paths relative to a base directory,
// exactly as the original daemon resolves config includes relative to
// the including file's directory.
type FileIncluder struct {
	BaseDir string
}

func (f FileIncluder) ReadFile(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.BaseDir, path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Tree owns the live parsed configuration and supports SIGHUP-driven
// reload: a new tree is parsed from the same top-level path and then
// swapped in atomically, with a "read_conf" event fired so consumers can
// refresh cached lookups (spec §4.C, §6).
type Tree struct {
	path      string
	includer  Includer
	root      []*Entry
	ReadConf  *event.Event
}

func NewTree(path string) *Tree {
	return &Tree{
		path:     path,
		includer: FileIncluder{BaseDir: filepath.Dir(path)},
		ReadConf: event.New("read_conf", event.FlagNoReturn),
	}
}

func (t *Tree) Load() error {
	root, err := Parse(t.path, t.includer)
	if err != nil {
		return err
	}
	t.root = root
	return nil
}

// Reload re-parses t.path and only swaps the live root in on success, so
// a malformed config never tears down a running daemon (spec §7's
// "Config: fail startup or reject reload").
func (t *Tree) Reload() error {
	root, err := Parse(t.path, t.includer)
	if err != nil {
		return err
	}
	t.root = root
	t.ReadConf.Fire(t)
	return nil
}

func (t *Tree) Root() []*Entry { return t.root }
