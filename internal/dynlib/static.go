package dynlib

import (
	"fmt"
	"sync"
)

// StaticLoader serves libraries from memory: each path maps to a fixed
// symbol table. It backs tests and builds without plugin support.
type StaticLoader struct {
	mu   sync.Mutex
	libs map[string]map[string]any
	open map[*staticHandle]struct{}
}

type staticHandle struct {
	path    string
	symbols map[string]any
}

func (h *staticHandle) Path() string { return h.path }

func NewStaticLoader() *StaticLoader {
	return &StaticLoader{
		libs: make(map[string]map[string]any),
		open: make(map[*staticHandle]struct{}),
	}
}

// Add makes a library with the given symbols available at path.
func (l *StaticLoader) Add(path string, symbols map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := make(map[string]any, len(symbols))
	for k, v := range symbols {
		cp[k] = v
	}
	l.libs[path] = cp
}

func (l *StaticLoader) Open(path string) (Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	symbols, ok := l.libs[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, ErrNotFound)
	}
	h := &staticHandle{path: path, symbols: symbols}
	l.open[h] = struct{}{}
	return h, nil
}

func (l *StaticLoader) Resolve(h Handle, symbol string) (any, bool) {
	sh, ok := h.(*staticHandle)
	if !ok {
		return nil, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, live := l.open[sh]; !live {
		return nil, false
	}
	sym, ok := sh.symbols[symbol]
	return sym, ok
}

func (l *StaticLoader) Close(h Handle) error {
	sh, ok := h.(*staticHandle)
	if !ok {
		return fmt.Errorf("close: foreign handle %T", h)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, live := l.open[sh]; !live {
		return fmt.Errorf("close %s: handle not open", sh.path)
	}
	delete(l.open, sh)
	return nil
}

// OpenHandles reports how many handles are currently open.
func (l *StaticLoader) OpenHandles() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.open)
}
