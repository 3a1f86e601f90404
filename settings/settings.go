// Package settings persists user preferences between runs as YAML.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"i4.energy/across/atkit/terminal"
)

// Font is the display font chosen for the terminal log.
type Font struct {
	Family string `yaml:"family"`
	Size   int    `yaml:"size,omitempty"`
}

// ParseFont reads "<family> [size]", for example "DejaVu Sans Mono 11".
func ParseFont(s string) (Font, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Font{}, errors.New("font family is required")
	}
	f := Font{Family: strings.Join(fields, " ")}
	if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil && len(fields) > 1 {
		if n <= 0 {
			return Font{}, fmt.Errorf("font size must be positive, got %d", n)
		}
		f.Family = strings.Join(fields[:len(fields)-1], " ")
		f.Size = n
	}
	return f, nil
}

func (f Font) String() string {
	if f.Size == 0 {
		return f.Family
	}
	return fmt.Sprintf("%s %d", f.Family, f.Size)
}

// Settings is everything remembered between runs.
type Settings struct {
	TerminalFont   *Font                      `yaml:"terminal_font,omitempty"`
	LastConnection *terminal.ConnectionParams `yaml:"last_connection,omitempty"`
}

// Store reads and writes Settings at a fixed path.
type Store struct {
	path string
}

// NewStore returns a store for the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath is settings.yaml in the user's configuration directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "atkit", "settings.yaml"), nil
}

// Path returns the file the store uses.
func (s *Store) Path() string {
	return s.path
}

// Load reads the settings. A missing file yields empty settings.
func (s *Store) Load() (Settings, error) {
	var st Settings
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &st); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", s.path, err)
	}
	return st, nil
}

// Save writes the settings through a temporary file in the same directory
// so a crash never leaves a half written file behind.
func (s *Store) Save(st Settings) error {
	data, err := yaml.Marshal(&st)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
