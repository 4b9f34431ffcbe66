// Package osfile backs the File service with the host filesystem, rooted at
// a directory. It is linked into every build under the name "os".
package osfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/enginecore/enginecore/internal/binder"
	"github.com/enginecore/enginecore/internal/service"
	"github.com/enginecore/enginecore/internal/services"
)

const Name = "os"

func init() {
	binder.RegisterEmbedded(Name, Entry)
}

// Entry binds the File service to the current working directory.
func Entry(r binder.Registrar) error {
	return EntryAt(".")(r)
}

// EntryAt returns an entry point serving files below root.
func EntryAt(root string) binder.EntryFunc {
	return func(r binder.Registrar) error {
		if r.Service() != services.FileID {
			return fmt.Errorf("os backend only serves %s, not %s", services.FileID, r.Service())
		}
		fsys := &rooted{root: root}
		return r.Register(services.FileID,
			service.Override{Slot: services.SlotInit, Fn: services.InitFunc(fsys.init)},
			service.Override{Slot: services.SlotExit, Fn: services.ExitFunc(func() {})},
			service.Override{Slot: services.FileRead, Fn: services.ReadFunc(fsys.read)},
			service.Override{Slot: services.FileWrite, Fn: services.WriteFunc(fsys.write)},
			service.Override{Slot: services.FileExists, Fn: services.ExistsFunc(fsys.exists)},
			service.Override{Slot: services.FileRemove, Fn: services.RemoveFunc(fsys.remove)},
		)
	}
}

type rooted struct {
	root string
}

func (f *rooted) init() service.Status {
	info, err := os.Stat(f.root)
	if err != nil || !info.IsDir() {
		return service.Failure
	}
	return service.Success
}

// path maps a slash separated name below root to a host path. Names that
// climb out of root are rejected.
func (f *rooted) path(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	return filepath.Join(f.root, clean), nil
}

func (f *rooted) read(name string) ([]byte, error) {
	p, err := f.path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

func (f *rooted) write(name string, data []byte) error {
	p, err := f.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func (f *rooted) exists(name string) bool {
	p, err := f.path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

func (f *rooted) remove(name string) error {
	p, err := f.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
