package importer

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Record is one (name, id) pair read from a source.
type Record struct {
	Name string
	ID   string
}

// Adapter reads name records out of one kind of source.
type Adapter interface {
	// Kind returns the source kind handled by this adapter (e.g. "csv").
	Kind() string
	// Description returns a human-readable description.
	Description() string
	// Read opens the local file at path, described by spec, and calls emit
	// for every record. Read stops at the first error returned by emit.
	Read(ctx context.Context, spec *Spec, path string, emit func(Record) error) error
}

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// Register adds an adapter to the global registry.
func Register(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	adapters[a.Kind()] = a
}

// Get returns a registered adapter by kind, or an error if not found.
func Get(kind string) (Adapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[kind]
	if !ok {
		return nil, fmt.Errorf("unknown source kind: %q", kind)
	}
	return a, nil
}

// All returns all registered adapters sorted by kind.
func All() []Adapter {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]Adapter, 0, len(adapters))
	for _, a := range adapters {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Kind() < result[j].Kind() })
	return result
}
