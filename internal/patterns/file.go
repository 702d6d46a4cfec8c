package patterns

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// File is the on-disk pattern document. TOML files use [[pattern]] tables,
// YAML files a top-level patterns list:
//
//	[[pattern]]
//	name = "chase"
//	frames = ["1000", "0100", "0010", "0001"]
type File struct {
	Patterns []FilePattern `toml:"pattern" yaml:"patterns"`
}

// FilePattern is one pattern as written in a file.
type FilePattern struct {
	Name   string   `toml:"name" yaml:"name"`
	Frames []string `toml:"frames" yaml:"frames"`
}

type format int

const (
	formatTOML format = iota
	formatYAML
)

func formatFor(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return formatTOML, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	default:
		return 0, fmt.Errorf("unsupported pattern file extension %q (want .toml, .yaml or .yml)", filepath.Ext(path))
	}
}

// LoadFile reads a pattern file and parses every frame. Width is not checked
// here; Store.Add does that.
func LoadFile(path string) ([]Pattern, error) {
	f, err := formatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern file: %w", err)
	}

	var doc File
	switch f {
	case formatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		err = toml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse pattern file %s: %w", path, err)
	}

	out := make([]Pattern, 0, len(doc.Patterns))
	for i, fp := range doc.Patterns {
		name := fp.Name
		if name == "" {
			name = fmt.Sprintf("pattern_%d", i)
		}
		p, err := Parse(name, fp.Frames...)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// SaveFile writes patterns to path in the format named by its extension.
func SaveFile(path string, ps []Pattern) error {
	f, err := formatFor(path)
	if err != nil {
		return err
	}

	doc := File{Patterns: make([]FilePattern, len(ps))}
	for i, p := range ps {
		doc.Patterns[i] = FilePattern{Name: p.Name, Frames: p.FrameStrings()}
	}

	var data []byte
	switch f {
	case formatYAML:
		data, err = yaml.Marshal(&doc)
	default:
		data, err = toml.Marshal(&doc)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal patterns: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create pattern directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write pattern file: %w", err)
	}
	return nil
}

// Populate adds ps to s, skipping (and counting) patterns the store rejects.
func Populate(s *Store, ps []Pattern) (added, rejected int) {
	for _, p := range ps {
		if err := s.Add(p); err != nil {
			rejected++
			continue
		}
		added++
	}
	return added, rejected
}
