package dynlib

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Library is a shared library found in a plugin directory.
type Library struct {
	Name     string `json:"name"`
	FileName string `json:"fileName"`
	Path     string `json:"path"`
	Debug    bool   `json:"debug"`
	Size     int64  `json:"size"`
}

// Scan lists the libraries in r.Dir that carry the resolver's extension.
// A file whose base name ends in the debug suffix and has a release
// sibling is reported as the debug build of that sibling. A missing
// directory is not an error.
func (r Resolver) Scan() ([]Library, error) {
	dir := r.Dir
	if dir == "" {
		dir = "."
	}
	ext := r.Ext
	if ext == "" {
		ext = Ext()
	}
	suffix := r.DebugSuffix
	if suffix == "" {
		suffix = DefaultDebugSuffix
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	names := make(map[string]bool)
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ext {
			names[strings.TrimSuffix(entry.Name(), ext)] = true
		}
	}

	var libs []Library
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ext {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			slog.Warn("Failed to stat library.", slog.String("file", entry.Name()), slog.Any("error", err))
			continue
		}
		base := strings.TrimSuffix(entry.Name(), ext)
		lib := Library{
			Name:     base,
			FileName: entry.Name(),
			Path:     filepath.Join(dir, entry.Name()),
			Size:     info.Size(),
		}
		if release := strings.TrimSuffix(base, suffix); release != base && names[release] {
			lib.Name = release
			lib.Debug = true
		}
		libs = append(libs, lib)
	}
	sort.Slice(libs, func(i, j int) bool {
		if libs[i].Name != libs[j].Name {
			return libs[i].Name < libs[j].Name
		}
		return !libs[i].Debug && libs[j].Debug
	})
	return libs, nil
}
