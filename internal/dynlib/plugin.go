package dynlib

import (
	"fmt"
	"plugin"
)

// PluginLoader opens Go plugins built with -buildmode=plugin. The runtime
// cannot unload a plugin, so Close only forgets the handle.
type PluginLoader struct{}

type pluginHandle struct {
	path string
	p    *plugin.Plugin
}

func (h *pluginHandle) Path() string { return h.path }

func (PluginLoader) Open(path string) (Handle, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &pluginHandle{path: path, p: p}, nil
}

func (PluginLoader) Resolve(h Handle, symbol string) (any, bool) {
	ph, ok := h.(*pluginHandle)
	if !ok || ph.p == nil {
		return nil, false
	}
	sym, err := ph.p.Lookup(symbol)
	if err != nil {
		return nil, false
	}
	return sym, true
}

func (PluginLoader) Close(h Handle) error {
	ph, ok := h.(*pluginHandle)
	if !ok {
		return fmt.Errorf("close: foreign handle %T", h)
	}
	ph.p = nil
	return nil
}
