// Package manifest reads a package's `anchor` manifest file:
// line-oriented key/value pairs separated by whitespace, with exactly two
// recognized keys (name, entry) and unknown keys rejected outright.
package manifest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the manifest's fixed file name within a package directory.
const FileName = "anchor"

// Manifest is a package's parsed `anchor` file.
type Manifest struct {
	// Name is the first mangling prefix and the output binary name.
	Name string
	// Entry is the dotted module path whose main is the program entry.
	Entry string
}

// Load reads and parses the manifest at <dir>/anchor.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse reads a manifest's contents directly, without touching the
// filesystem (used by Load and directly by tests).
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{}
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		key := fields[0]
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: key %q has no value", line, key)
		}
		value := fields[1]
		switch key {
		case "name":
			m.Name = value
		case "entry":
			m.Entry = value
		default:
			return nil, fmt.Errorf("line %d: unknown manifest key %q", line, key)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if m.Name == "" {
		return nil, fmt.Errorf("missing required key %q", "name")
	}
	if m.Entry == "" {
		return nil, fmt.Errorf("missing required key %q", "entry")
	}
	return m, nil
}
