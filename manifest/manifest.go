// Package manifest handles lox.toml project configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked for in a project directory.
const FileName = "lox.toml"

// Backend names accepted in [run] backend.
const (
	BackendTreeWalk = "treewalk"
	BackendBytecode = "bytecode"
)

// Manifest represents a lox.toml project configuration.
type Manifest struct {
	Project Project      `toml:"project"`
	Run     RunConfig    `toml:"run"`
	Log     LogConfig    `toml:"log"`
	Server  ServerConfig `toml:"server"`
	Cache   CacheConfig  `toml:"cache"`

	// Dir is the directory containing the lox.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"`
}

// RunConfig selects how scripts execute.
type RunConfig struct {
	Backend string `toml:"backend"`
	Trace   bool   `toml:"trace"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"`
}

// ServerConfig configures the RPC server.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// CacheConfig configures the compiled chunk cache. An empty path disables
// it.
type CacheConfig struct {
	Path string `toml:"path"`
}

// Default returns the configuration used when no lox.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Run.Backend == "" {
		m.Run.Backend = BackendTreeWalk
	}
	if m.Server.Addr == "" {
		m.Server.Addr = ":4567"
	}
	if m.Log.Verbosity == 0 {
		m.Log.Verbosity = 1
	}
}

// Validate checks values toml cannot check on its own.
func (m *Manifest) Validate() error {
	switch m.Run.Backend {
	case BackendTreeWalk, BackendBytecode:
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", m.Run.Backend, BackendTreeWalk, BackendBytecode)
	}
	if m.Log.Verbosity < 0 {
		return errors.New("log verbosity must not be negative")
	}
	return nil
}

// Load parses a lox.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a lox.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// EntryPath returns the absolute path of the entry script, or "" if none
// is configured.
func (m *Manifest) EntryPath() string {
	if m.Project.Entry == "" {
		return ""
	}
	return m.resolve(m.Project.Entry)
}

// CachePath returns the absolute path of the chunk cache, or "" when the
// cache is disabled.
func (m *Manifest) CachePath() string {
	if m.Cache.Path == "" {
		return ""
	}
	return m.resolve(m.Cache.Path)
}

// LogPath returns the absolute path of the log file, or nil for stderr.
func (m *Manifest) LogPath() *string {
	if m.Log.Path == "" {
		return nil
	}
	p := m.resolve(m.Log.Path)
	return &p
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}
