package importer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSpecValidate(t *testing.T) {
	s := Spec{Kind: "csv", Path: "people.csv"}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if s.Name != "people.csv" {
		t.Errorf("Name = %q, want path as default", s.Name)
	}
	if s.BatchSize != 500 {
		t.Errorf("BatchSize = %d, want 500", s.BatchSize)
	}

	bad := []Spec{
		{Path: "people.csv"},
		{Kind: "csv"},
		{Kind: "sqlite", Path: "people.db"},
	}
	for _, b := range bad {
		if err := b.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", b)
		}
	}
}

func TestLoadSpecs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	os.WriteFile(path, []byte(`- name: people
  kind: csv
  path: people.csv
  delimiter: ";"
  encoding: iso-8859-1
  has_header: true
  name_columns: [first, last]
  id_column: id
- kind: sqlite
  path: records.db
  query: SELECT full_name, id FROM people
`), 0o644)

	specs, err := LoadSpecs(path)
	if err != nil {
		t.Fatalf("LoadSpecs: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("specs = %d, want 2", len(specs))
	}
	if got := specs[0].NameColumns; len(got) != 2 || got[1] != "last" {
		t.Errorf("NameColumns = %v, want [first last]", got)
	}
	if specs[1].Name != "records.db" {
		t.Errorf("Name = %q, want records.db", specs[1].Name)
	}

	os.WriteFile(path, []byte("- kind: csv\n"), 0o644)
	if _, err := LoadSpecs(path); err == nil {
		t.Error("expected validation error for spec without path")
	}
	if _, err := LoadSpecs(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSpecValidate_Preset(t *testing.T) {
	s := Spec{Preset: "insee-prenoms-fr", Path: "/data/nat2021.csv"}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if s.Name != "insee-prenoms-fr" || s.Kind != "csv" || s.Delimiter != ";" || !s.HasHeader {
		t.Errorf("preset not applied: %+v", s)
	}
	if s.Path != "/data/nat2021.csv" {
		t.Errorf("Path = %q, explicit path must win over the preset", s.Path)
	}
	if len(s.NameColumns) != 1 || s.NameColumns[0] != "preusuel" || s.IDColumn != "preusuel" {
		t.Errorf("columns = %v / %q", s.NameColumns, s.IDColumn)
	}

	bad := Spec{Preset: "phone-book"}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestPresetNames(t *testing.T) {
	got := PresetNames()
	want := []string{"census-surnames-us", "insee-patronymes-fr", "insee-prenoms-fr", "ssa-babynames-us"}
	if len(got) != len(want) {
		t.Fatalf("PresetNames = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PresetNames[%d] = %q, want %q", i, got[i], want[i])
		}
		p, ok := LookupPreset(want[i])
		if !ok || p.Description == "" || !isRemote(p.Spec.Path) {
			t.Errorf("preset %s = %+v", want[i], p)
		}
	}
}
