package names

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed data/titles.json data/abbreviations.json
var defaultTables embed.FS

// Tables holds the title words stripped from names and the abbreviation
// expansions applied to the remaining tokens.
type Tables struct {
	Titles        map[string]struct{}
	Abbreviations map[string]string
}

type abbreviationFile struct {
	Abbreviations map[string]string `yaml:"abbreviations"`
}

// LoadTables reads a title list and an abbreviation mapping from disk.
// Both files may be JSON or YAML. The title file is a sequence of strings;
// the abbreviation file is an object with an "abbreviations" mapping.
// An empty path selects the embedded table.
func LoadTables(titlesPath, abbreviationsPath string) (*Tables, error) {
	titles, err := readTable(titlesPath, "data/titles.json")
	if err != nil {
		return nil, fmt.Errorf("%w: read titles: %v", ErrConfigLoad, err)
	}
	abbrevs, err := readTable(abbreviationsPath, "data/abbreviations.json")
	if err != nil {
		return nil, fmt.Errorf("%w: read abbreviations: %v", ErrConfigLoad, err)
	}
	return ParseTables(titles, abbrevs)
}

// DefaultTables returns the tables embedded in the binary.
func DefaultTables() (*Tables, error) {
	return LoadTables("", "")
}

func readTable(path, embedded string) ([]byte, error) {
	if path == "" {
		return defaultTables.ReadFile(embedded)
	}
	return os.ReadFile(path)
}

// ParseTables decodes raw title and abbreviation documents.
func ParseTables(titlesData, abbreviationsData []byte) (*Tables, error) {
	var titles []string
	if err := yaml.Unmarshal(titlesData, &titles); err != nil {
		return nil, fmt.Errorf("%w: parse titles: %v", ErrConfigLoad, err)
	}
	if titles == nil {
		return nil, fmt.Errorf("%w: titles: expected a sequence of strings", ErrConfigLoad)
	}

	var af abbreviationFile
	if err := yaml.Unmarshal(abbreviationsData, &af); err != nil {
		return nil, fmt.Errorf("%w: parse abbreviations: %v", ErrConfigLoad, err)
	}
	if af.Abbreviations == nil {
		return nil, fmt.Errorf("%w: abbreviations: missing \"abbreviations\" mapping", ErrConfigLoad)
	}

	t := &Tables{
		Titles:        make(map[string]struct{}, len(titles)),
		Abbreviations: af.Abbreviations,
	}
	for _, title := range titles {
		t.Titles[title] = struct{}{}
	}
	return t, nil
}
