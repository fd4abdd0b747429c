// Package registry holds the most recent prototype seen for each function
// name, so calls can be lowered against functions declared by an earlier
// top-level form.
package registry

import (
	"sort"

	"github.com/ghaiklor/llvm-kaleidoscope/pkg/frontend"
)

// Registry is not safe for concurrent use. The parser and the backend
// take turns with it.
type Registry struct {
	protos map[string]*frontend.Prototype
}

func New() *Registry {
	return &Registry{protos: make(map[string]*frontend.Prototype)}
}

// Record stores proto under name, replacing any earlier entry.
func (r *Registry) Record(name string, proto *frontend.Prototype) {
	r.protos[name] = proto
}

// Lookup returns the prototype last recorded for name.
func (r *Registry) Lookup(name string) (*frontend.Prototype, bool) {
	p, ok := r.protos[name]
	return p, ok
}

func (r *Registry) Len() int {
	return len(r.protos)
}

// Names returns the recorded names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.protos))
	for name := range r.protos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
