// Package registry maps source names to Text Sources.
package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/errors"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/source"
)

// Registry is a name->Source table. Names match case-insensitively.
// It holds no lookup results; caching belongs to the resolver's cache.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]source.Source
}

// New returns a Registry holding srcs. Later sources win on name clashes.
func New(srcs ...source.Source) (*Registry, error) {
	r := &Registry{sources: make(map[string]source.Source, len(srcs))}
	for _, s := range srcs {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Register adds s under its descriptor name, replacing any source already
// registered under that name.
func (r *Registry) Register(s source.Source) error {
	if s == nil {
		return errors.NewValidation("source", "must not be nil")
	}
	key := normalize(s.Descriptor().Name)
	if key == "" {
		return errors.NewValidation("source.name", "must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[key] = s
	return nil
}

// Get returns the source registered under name.
func (r *Registry) Get(name string) (source.Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[normalize(name)]
	return s, ok
}

// ByKind returns the sources of kind k ordered by name.
func (r *Registry) ByKind(k source.Kind) []source.Source {
	var out []source.Source
	for _, s := range r.All() {
		if s.Descriptor().Kind == k {
			out = append(out, s)
		}
	}
	return out
}

// All returns every source ordered by name.
func (r *Registry) All() []source.Source {
	r.mu.RLock()
	out := make([]source.Source, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Descriptor().Name < out[j].Descriptor().Name
	})
	return out
}

// Descriptors returns the descriptors of every source ordered by name.
func (r *Registry) Descriptors() []source.Descriptor {
	all := r.All()
	out := make([]source.Descriptor, len(all))
	for i, s := range all {
		out[i] = s.Descriptor()
	}
	return out
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}
