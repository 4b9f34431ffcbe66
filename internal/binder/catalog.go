package binder

import (
	"sort"
	"sync"
)

var (
	catalogMu sync.RWMutex
	catalog   = make(map[string]EntryFunc)
)

// RegisterEmbedded makes a backend linked into the binary available to
// BindEmbedded under name. Backends call it from init.
func RegisterEmbedded(name string, entry EntryFunc) {
	if name == "" || entry == nil {
		return
	}
	catalogMu.Lock()
	catalog[name] = entry
	catalogMu.Unlock()
}

func embedded(name string) (EntryFunc, bool) {
	catalogMu.RLock()
	e, ok := catalog[name]
	catalogMu.RUnlock()
	return e, ok
}

// EmbeddedNames lists the linked-in backends, sorted.
func EmbeddedNames() []string {
	catalogMu.RLock()
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	catalogMu.RUnlock()
	sort.Strings(names)
	return names
}
