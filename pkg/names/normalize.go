// CLAUDE:SUMMARY Name canonicalization: ASCII folding, lowercasing, token split/sort, title removal, abbreviation expansion.
package names

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	tokenPattern = regexp.MustCompile(`[a-z]+`)
)

// Transliterate folds s to ASCII. Combining accents are stripped first
// (Trünst -> Trunst); whatever is still outside ASCII goes through unidecode
// (Øster -> Oster, Straße -> Strasse).
func Transliterate(s string) string {
	folded, _, err := transform.String(stripAccents, s)
	if err != nil {
		folded = s
	}
	for i := 0; i < len(folded); i++ {
		if folded[i] >= utf8.RuneSelf {
			return unidecode.Unidecode(folded)
		}
	}
	return folded
}

// Normalizer turns free-text names into their canonical form.
// A Normalizer is immutable and safe for concurrent use.
type Normalizer struct {
	titles        map[string]struct{}
	abbreviations map[string]string
}

// NewNormalizer builds a Normalizer over already loaded tables.
func NewNormalizer(t *Tables) *Normalizer {
	n := &Normalizer{
		titles:        make(map[string]struct{}),
		abbreviations: make(map[string]string),
	}
	if t == nil {
		return n
	}
	for k := range t.Titles {
		n.titles[k] = struct{}{}
	}
	for k, v := range t.Abbreviations {
		n.abbreviations[k] = v
	}
	return n
}

// LoadNormalizer reads both tables from disk, an empty path meaning the
// embedded table. Any load failure is returned here so a misconfigured
// Normalizer is never handed out.
func LoadNormalizer(titlesPath, abbreviationsPath string) (*Normalizer, error) {
	t, err := LoadTables(titlesPath, abbreviationsPath)
	if err != nil {
		return nil, err
	}
	return NewNormalizer(t), nil
}

// DefaultNormalizer builds a Normalizer from the embedded tables.
func DefaultNormalizer() (*Normalizer, error) {
	t, err := DefaultTables()
	if err != nil {
		return nil, fmt.Errorf("default normalizer: %w", err)
	}
	return NewNormalizer(t), nil
}

// Normalize returns the canonical form of name:
// ASCII, lowercase, alphabetic tokens sorted, titles dropped,
// abbreviations expanded, joined by single spaces.
// Sorting happens before title removal and expansion.
func (n *Normalizer) Normalize(name string) string {
	if name == "" {
		return ""
	}
	tokens := SplitTokens(strings.ToLower(Transliterate(name)))
	sort.Strings(tokens)

	out := tokens[:0]
	for _, tok := range tokens {
		if _, ok := n.titles[tok]; ok {
			continue
		}
		if full, ok := n.abbreviations[tok]; ok {
			tok = full
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}

// NormalizePtr is Normalize for optional input: nil yields "".
func (n *Normalizer) NormalizePtr(name *string) string {
	if name == nil {
		return ""
	}
	return n.Normalize(*name)
}

// SplitTokens returns the maximal runs of lowercase ASCII letters in s.
// Everything else, apostrophes and digits included, is a delimiter.
func SplitTokens(s string) []string {
	return tokenPattern.FindAllString(s, -1)
}
