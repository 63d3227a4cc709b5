// CLAUDE:SUMMARY Built-in source specs for public name datasets (US census surnames, SSA and INSEE first names, INSEE surnames).
package importer

import (
	"fmt"
	"sort"
)

// Preset is a ready-made Spec for a public name dataset. Fields set in the
// user's spec win over the preset's.
type Preset struct {
	Spec        Spec
	Description string
	License     string
}

// Every preset indexes each distinct name under the name itself, so the
// yearly or regional duplicates these files carry collapse into one id.
var presets = map[string]Preset{
	"census-surnames-us": {
		Description: "US Census Bureau surnames (2010 census)",
		License:     "Public Domain",
		Spec: Spec{
			Kind:        "csv",
			Path:        "https://www2.census.gov/topics/genealogy/2010surnames/names.zip",
			Member:      "Names_2010Census.csv",
			HasHeader:   true,
			NameColumns: []string{"name"},
			IDColumn:    "name",
		},
	},
	"ssa-babynames-us": {
		Description: "SSA baby names US, most recent year (Social Security Administration)",
		License:     "Public Domain",
		Spec: Spec{
			Kind:        "csv",
			Path:        "https://www.ssa.gov/oact/babynames/names.zip",
			Member:      "yob2023.txt",
			NameColumns: []string{"0"},
			IDColumn:    "0",
		},
	},
	"insee-prenoms-fr": {
		Description: "INSEE fichier des prenoms, France",
		License:     "Licence Ouverte 2.0",
		Spec: Spec{
			Kind:        "csv",
			Path:        "https://www.insee.fr/fr/statistiques/fichier/2540004/nat2021_csv.zip",
			Delimiter:   ";",
			HasHeader:   true,
			NameColumns: []string{"preusuel"},
			IDColumn:    "preusuel",
		},
	},
	"insee-patronymes-fr": {
		Description: "INSEE noms de famille 1891-2000, France",
		License:     "Licence Ouverte 2.0",
		Spec: Spec{
			Kind:        "csv",
			Path:        "https://www.insee.fr/fr/statistiques/fichier/3536630/noms2008nat_txt.zip",
			Delimiter:   "\t",
			HasHeader:   true,
			NameColumns: []string{"NOM"},
			IDColumn:    "NOM",
		},
	},
}

// LookupPreset returns the named preset.
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// PresetNames returns the preset names in order.
func PresetNames() []string {
	out := make([]string, 0, len(presets))
	for name := range presets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// applyPreset fills the zero fields of s from its preset.
func (s *Spec) applyPreset() error {
	p, ok := presets[s.Preset]
	if !ok {
		return fmt.Errorf("source %q: unknown preset %q (have %v)", s.Name, s.Preset, PresetNames())
	}
	ps := p.Spec
	if s.Name == "" {
		s.Name = s.Preset
	}
	fill(&s.Kind, ps.Kind)
	fill(&s.Path, ps.Path)
	fill(&s.Member, ps.Member)
	fill(&s.Delimiter, ps.Delimiter)
	fill(&s.Encoding, ps.Encoding)
	fill(&s.IDColumn, ps.IDColumn)
	if len(s.NameColumns) == 0 {
		s.NameColumns = ps.NameColumns
	}
	s.HasHeader = s.HasHeader || ps.HasHeader
	return nil
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
