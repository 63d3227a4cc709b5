// CLAUDE:SUMMARY Lookup directory indexing every token sub-combination of a name under its strong and weak phonetic keys.
package names

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// DefaultMaxTokens bounds the token count of an indexed name.
// A name of n tokens produces 2^n-1 probes.
const DefaultMaxTokens = 12

type options struct {
	maxTokens int
	logger    *slog.Logger
}

// Option configures a Directory.
type Option func(*options)

// WithMaxTokens sets the largest accepted token count. Zero or less disables the limit.
func WithMaxTokens(n int) Option {
	return func(o *options) { o.maxTokens = n }
}

// WithLogger sets the logger used for rejected names.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// bucket is an insertion-ordered set of ids.
type bucket[ID comparable] struct {
	ids  []ID
	seen map[ID]struct{}
}

func (b *bucket[ID]) add(id ID) {
	if _, ok := b.seen[id]; ok {
		return
	}
	b.seen[id] = struct{}{}
	b.ids = append(b.ids, id)
}

// Directory indexes names by the phonetic keys of every combination of their
// canonical tokens. The primary key of each combination goes to the strong
// map and the secondary key to the weak map. The directory only grows.
//
// A combination whose key encodes to "" is not filed under that key: an id
// sits under K iff one of its combinations produced a non-empty K. Since
// Compare never matches on "", such a bucket could never be looked up.
//
// Build one per process and share the handle; it is safe for concurrent use.
type Directory[ID comparable] struct {
	normalizer *Normalizer
	comparator *Comparator
	maxTokens  int
	logger     *slog.Logger

	mu     sync.RWMutex
	strong map[string]*bucket[ID]
	weak   map[string]*bucket[ID]
	ids    map[ID]struct{}
}

// NewDirectory returns an empty directory. A nil comparator means DoubleMetaphone.
func NewDirectory[ID comparable](n *Normalizer, c *Comparator, opts ...Option) *Directory[ID] {
	o := options{maxTokens: DefaultMaxTokens, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if n == nil {
		n = NewNormalizer(nil)
	}
	if c == nil {
		c = NewComparator(nil)
	}
	return &Directory[ID]{
		normalizer: n,
		comparator: c,
		maxTokens:  o.maxTokens,
		logger:     o.logger,
		strong:     make(map[string]*bucket[ID]),
		weak:       make(map[string]*bucket[ID]),
		ids:        make(map[ID]struct{}),
	}
}

// Add indexes name under id. Every key of the name is computed before the
// directory is touched, so the name is inserted entirely or not at all.
// Re-adding the same name and id changes nothing.
func (d *Directory[ID]) Add(name string, id ID) error {
	_, err := d.Insert(name, id)
	return err
}

// Insert is Add reporting whether the name was filed under at least one key.
// A name without tokens ("", "Dr.", "123") is accepted but filed nowhere.
func (d *Directory[ID]) Insert(name string, id ID) (bool, error) {
	keys, err := d.probeKeys(name)
	if err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.insert(keys, id), nil
}

// AddNames adds names[i] under ids[i]. Mismatched lengths are rejected before
// anything is added. A name that fails does not stop the batch; all failures
// are returned together.
func (d *Directory[ID]) AddNames(names []string, ids []ID) error {
	_, err := d.AddNamesCount(names, ids)
	return err
}

// AddNamesCount is AddNames also returning how many names were filed under
// at least one key.
func (d *Directory[ID]) AddNamesCount(names []string, ids []ID) (int, error) {
	if len(names) != len(ids) {
		return 0, fmt.Errorf("%w: %d names, %d ids", ErrLengthMismatch, len(names), len(ids))
	}

	var (
		filed int
		errs  []error
	)
	for i, name := range names {
		ok, err := d.Insert(name, ids[i])
		if err != nil {
			d.logger.Warn("name not indexed", "index", i, "id", ids[i], "error", err)
			errs = append(errs, fmt.Errorf("name %d: %w", i, err))
			continue
		}
		if ok {
			filed++
		}
	}
	return filed, errors.Join(errs...)
}

func (d *Directory[ID]) probeKeys(name string) ([]Keys, error) {
	tokens := strings.Fields(d.normalizer.Normalize(name))
	if d.maxTokens > 0 && len(tokens) > d.maxTokens {
		return nil, fmt.Errorf("%w: %d tokens, max %d", ErrTooManyTokens, len(tokens), d.maxTokens)
	}

	combs := Combinations(tokens)
	keys := make([]Keys, len(combs))
	for i, comb := range combs {
		keys[i] = d.comparator.Encode(strings.Join(comb, ""))
	}
	return keys, nil
}

// insert files id under every non-empty key and reports whether there was
// one. It must be called with d.mu held for writing.
func (d *Directory[ID]) insert(keys []Keys, id ID) bool {
	filed := false
	for _, k := range keys {
		if k.Primary != "" {
			bucketFor(d.strong, k.Primary).add(id)
			filed = true
		}
		if k.Secondary != "" {
			bucketFor(d.weak, k.Secondary).add(id)
			filed = true
		}
	}
	if filed {
		d.ids[id] = struct{}{}
	}
	return filed
}

func bucketFor[ID comparable](m map[string]*bucket[ID], key string) *bucket[ID] {
	b, ok := m[key]
	if !ok {
		b = &bucket[ID]{seen: make(map[ID]struct{})}
		m[key] = b
	}
	return b
}

// StrongMatches returns a copy of the primary-key index.
func (d *Directory[ID]) StrongMatches() map[string][]ID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return snapshot(d.strong)
}

// WeakMatches returns a copy of the secondary-key index.
func (d *Directory[ID]) WeakMatches() map[string][]ID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return snapshot(d.weak)
}

func snapshot[ID comparable](m map[string]*bucket[ID]) map[string][]ID {
	out := make(map[string][]ID, len(m))
	for k, b := range m {
		out[k] = append([]ID(nil), b.ids...)
	}
	return out
}

// Bucket returns the ids filed under key in the strong and weak maps.
func (d *Directory[ID]) Bucket(key string) (strong, weak []ID) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if b, ok := d.strong[key]; ok {
		strong = append([]ID(nil), b.ids...)
	}
	if b, ok := d.weak[key]; ok {
		weak = append([]ID(nil), b.ids...)
	}
	return strong, weak
}

// Candidates are the ids sharing a phonetic key with a looked-up name.
// They are not ranked.
type Candidates[ID comparable] struct {
	Name       string `json:"name"`
	Normalized string `json:"normalized"`
	Keys       Keys   `json:"keys"`
	Strong     []ID   `json:"strong"`
	Weak       []ID   `json:"weak"`
}

// Signature returns the canonical form of name and the keys of its full
// token concatenation, the same probe Add files the whole name under.
func (d *Directory[ID]) Signature(name string) (string, Keys) {
	canonical := d.normalizer.Normalize(name)
	return canonical, d.comparator.Encode(strings.ReplaceAll(canonical, " ", ""))
}

// Lookup returns the ids whose combinations share the full name's primary
// key (Strong) or secondary key (Weak).
func (d *Directory[ID]) Lookup(name string) *Candidates[ID] {
	canonical, keys := d.Signature(name)
	c := &Candidates[ID]{
		Name:       name,
		Normalized: canonical,
		Keys:       keys,
		Strong:     []ID{},
		Weak:       []ID{},
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if b, ok := d.strong[keys.Primary]; ok && keys.Primary != "" {
		c.Strong = append(c.Strong, b.ids...)
	}
	if b, ok := d.weak[keys.Secondary]; ok && keys.Secondary != "" {
		c.Weak = append(c.Weak, b.ids...)
	}
	return c
}

// Stats summarises the directory.
type Stats struct {
	Names      int `json:"names"`
	StrongKeys int `json:"strong_keys"`
	WeakKeys   int `json:"weak_keys"`
}

// Stats returns the number of indexed ids and of keys in each map.
func (d *Directory[ID]) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Stats{
		Names:      len(d.ids),
		StrongKeys: len(d.strong),
		WeakKeys:   len(d.weak),
	}
}

// Combinations returns the full token tuple followed by every combination of
// n-1, n-2, ... 1 tokens, 2^n-1 in total. Tokens keep their relative order and
// combinations of one size come in lexicographic index order.
func Combinations(tokens []string) [][]string {
	n := len(tokens)
	if n == 0 {
		return nil
	}
	var out [][]string
	if n < 31 {
		out = make([][]string, 0, (1<<n)-1)
	}
	out = append(out, append([]string(nil), tokens...))

	idx := make([]int, n)
	for k := n - 1; k > 0; k-- {
		for i := 0; i < k; i++ {
			idx[i] = i
		}
		for {
			comb := make([]string, k)
			for i := 0; i < k; i++ {
				comb[i] = tokens[idx[i]]
			}
			out = append(out, comb)

			i := k - 1
			for i >= 0 && idx[i] == i+n-k {
				i--
			}
			if i < 0 {
				break
			}
			idx[i]++
			for j := i + 1; j < k; j++ {
				idx[j] = idx[j-1] + 1
			}
		}
	}
	return out
}
