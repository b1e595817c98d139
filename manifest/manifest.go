// Package manifest handles turmite.toml run configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/chazu/turmite/pkg/decimal"
)

// Manifest represents a turmite.toml run configuration.
type Manifest struct {
	Program Program       `toml:"program"`
	Tape    TapeConfig    `toml:"tape"`
	Run     RunConfig     `toml:"run"`
	Decimal DecimalConfig `toml:"decimal"`

	// Dir is the directory containing the turmite.toml file (set at load time).
	Dir string `toml:"-"`
}

// Program locates the compiled bytecode file.
type Program struct {
	Path string `toml:"path"`
}

// TapeConfig supplies the initial tape, either inline or from a file of
// whitespace-separated symbol values.
type TapeConfig struct {
	Path    string   `toml:"path"`
	Symbols []uint16 `toml:"symbols"`
}

// RunConfig bounds the run. A zero MaxMoves means unlimited.
type RunConfig struct {
	MaxMoves int `toml:"max-moves"`
}

// DecimalConfig configures the fractional rendering of the final tape.
type DecimalConfig struct {
	Radix  uint16 `toml:"radix"`
	Start  int    `toml:"start"`
	Stride int    `toml:"stride"`
	Digits int    `toml:"digits"`
}

// Load parses a turmite.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "turmite.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults. Start 0 is a valid position, so only an absent key
	// takes the default.
	def := decimal.DefaultOptions()
	if m.Decimal.Radix == 0 {
		m.Decimal.Radix = def.Radix
	}
	if !md.IsDefined("decimal", "start") {
		m.Decimal.Start = def.Start
	}
	if m.Decimal.Stride == 0 {
		m.Decimal.Stride = def.Stride
	}

	if m.Program.Path == "" {
		return nil, fmt.Errorf("%s: program.path is required", path)
	}
	if m.Tape.Path != "" && len(m.Tape.Symbols) > 0 {
		return nil, fmt.Errorf("%s: tape.path and tape.symbols are mutually exclusive", path)
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a turmite.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "turmite.toml")
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

// ProgramPath returns the absolute path of the bytecode file.
func (m *Manifest) ProgramPath() string {
	return filepath.Join(m.Dir, m.Program.Path)
}

// InitialTape returns the configured initial tape. Inline symbols win over
// a tape file; with neither the tape starts blank.
func (m *Manifest) InitialTape() ([]uint16, error) {
	if len(m.Tape.Symbols) > 0 {
		return m.Tape.Symbols, nil
	}
	if m.Tape.Path == "" {
		return nil, nil
	}

	path := filepath.Join(m.Dir, m.Tape.Path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return ParseTape(string(data))
}

// ParseTape reads whitespace-separated symbol values.
func ParseTape(text string) ([]uint16, error) {
	fields := strings.Fields(text)
	symbols := make([]uint16, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseUint(f, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("bad tape symbol %q: %w", f, err)
		}
		symbols = append(symbols, uint16(v))
	}
	return symbols, nil
}

// DecimalOptions returns the manifest's rendering options.
func (m *Manifest) DecimalOptions() decimal.Options {
	return decimal.Options{
		Radix:  m.Decimal.Radix,
		Start:  m.Decimal.Start,
		Stride: m.Decimal.Stride,
		Digits: m.Decimal.Digits,
	}
}
