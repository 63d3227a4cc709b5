// CLAUDE:SUMMARY Source spec YAML schema describing where names come from and how to read them.
package importer

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Spec describes one name source.
type Spec struct {
	Name string `yaml:"name" json:"name"`
	Kind string `yaml:"kind" json:"kind"`
	// Preset names a built-in dataset whose settings fill the unset fields.
	Preset string `yaml:"preset" json:"preset,omitempty"`
	// Path is a local file or an http(s) URL. A .zip path is extracted and
	// Member (or the single file inside) is read.
	Path   string `yaml:"path" json:"path"`
	Member string `yaml:"member" json:"member,omitempty"`

	// CSV layout.
	Delimiter   string   `yaml:"delimiter" json:"delimiter,omitempty"`
	Encoding    string   `yaml:"encoding" json:"encoding,omitempty"`
	HasHeader   bool     `yaml:"has_header" json:"has_header,omitempty"`
	NameColumns []string `yaml:"name_columns" json:"name_columns,omitempty"`
	IDColumn    string   `yaml:"id_column" json:"id_column,omitempty"`

	// SQLite query returning (name, id) rows.
	Query string `yaml:"query" json:"query,omitempty"`

	// BatchSize is the number of records handed to the index at once.
	BatchSize int `yaml:"batch_size" json:"batch_size,omitempty"`
}

// Validate checks required fields and fills defaults.
func (s *Spec) Validate() error {
	if s.Preset != "" {
		if err := s.applyPreset(); err != nil {
			return err
		}
	}
	if s.Kind == "" {
		return fmt.Errorf("source %q: missing kind", s.Name)
	}
	if s.Path == "" {
		return fmt.Errorf("source %q: missing path", s.Name)
	}
	if s.Name == "" {
		s.Name = s.Path
	}
	if s.Kind == "sqlite" && strings.TrimSpace(s.Query) == "" {
		return fmt.Errorf("source %q: sqlite source needs a query", s.Name)
	}
	if s.BatchSize <= 0 {
		s.BatchSize = 500
	}
	return nil
}

// LoadSpecs reads a YAML list of source specs.
func LoadSpecs(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources %s: %w", path, err)
	}
	var specs []Spec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse sources %s: %w", path, err)
	}
	for i := range specs {
		if err := specs[i].Validate(); err != nil {
			return nil, fmt.Errorf("sources %s: %w", path, err)
		}
	}
	return specs, nil
}
