// Package dynlib is the only place that touches shared libraries. Everything
// above it sees opaque handles and the symbols they resolve to.
package dynlib

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

var ErrNotFound = errors.New("library not found")

// Handle is an open library. Loaders return their own implementations.
type Handle interface {
	Path() string
}

type Loader interface {
	Open(path string) (Handle, error)
	// Resolve returns the exported symbol or false when it does not exist.
	Resolve(h Handle, symbol string) (any, bool)
	Close(h Handle) error
}

// DefaultDebugSuffix is appended to the base name of debug builds of a
// library, as in "displayd.so".
const DefaultDebugSuffix = "d"

// Ext is the shared library extension of the running platform.
func Ext() string {
	switch runtime.GOOS {
	case "darwin", "ios":
		return ".dylib"
	case "windows":
		return ".dll"
	default:
		return ".so"
	}
}

// Resolver turns a bare library name into the file names to try.
type Resolver struct {
	Dir         string
	Debug       bool
	DebugSuffix string
	// Ext overrides the platform extension when set.
	Ext string
}

// Candidates lists the paths tried for name, in order. A name that already
// carries an extension is used as is; otherwise the debug-suffixed file
// comes first when Debug is set.
func (r Resolver) Candidates(name string) []string {
	join := func(file string) string {
		if r.Dir == "" || filepath.IsAbs(file) {
			return file
		}
		return filepath.Join(r.Dir, file)
	}
	if filepath.Ext(name) != "" {
		return []string{join(name)}
	}
	ext := r.Ext
	if ext == "" {
		ext = Ext()
	}
	var out []string
	if r.Debug {
		suffix := r.DebugSuffix
		if suffix == "" {
			suffix = DefaultDebugSuffix
		}
		out = append(out, join(name+suffix+ext))
	}
	return append(out, join(name+ext))
}

// Open tries every candidate path for name and returns the first library
// that opens, with the path it came from.
func Open(l Loader, r Resolver, name string) (Handle, string, error) {
	if name == "" {
		return nil, "", fmt.Errorf("open library: empty name: %w", ErrNotFound)
	}
	var errs []error
	for _, path := range r.Candidates(name) {
		h, err := l.Open(path)
		if err == nil {
			return h, path, nil
		}
		errs = append(errs, err)
	}
	return nil, "", fmt.Errorf("open library %q: %w", name, errors.Join(errs...))
}
