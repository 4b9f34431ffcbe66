// Package module is the module lifecycle registry of an engine instance.
//
// A module is registered once with setup, init and exit callbacks. Its
// dependencies are declared from inside its setup callback, the first time
// the module is acquired. Acquire and Release are reference counted: init
// runs on the first acquire (after every dependency has been acquired) and
// exit runs on the last release (before the dependencies are released).
//
// A Registry is not safe for concurrent use. It is driven from the one
// goroutine that owns engine startup, shutdown and reconfiguration.
package module

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/enginecore/enginecore/internal/diag"
	"github.com/enginecore/enginecore/internal/errdefs"
)

type ID string

type Status int

const (
	Uninitialized Status = iota
	InitSucceeded
	InitFailed
)

func (s Status) String() string {
	switch s {
	case InitSucceeded:
		return "succeeded"
	case InitFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// SetupFunc declares the module's dependencies through s. It runs at most
// once per registry unless it fails.
type SetupFunc func(s *Setup) error

// InitFunc returns nil on success.
type InitFunc func() error

type ExitFunc func()

type dependency struct {
	id       ID
	optional bool
}

type descriptor struct {
	id    ID
	name  string
	setup SetupFunc
	init  InitFunc
	exit  ExitFunc

	deps      []dependency
	setupDone bool

	refCount uint
	status   Status
	err      error
	// held lists the dependencies acquired on behalf of the current init,
	// in declaration order. They are released when refCount drops to zero.
	held    []ID
	initSeq uint64
}

type Registry struct {
	logger   *slog.Logger
	reporter diag.Reporter

	modules map[ID]*descriptor
	order   []ID
	graph   *graph
	setups  map[ID]*Setup
	seq     uint64
}

type Option func(*Registry)

func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithReporter(rep diag.Reporter) Option {
	return func(r *Registry) {
		if rep != nil {
			r.reporter = rep
		}
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger:   slog.Default(),
		reporter: diag.Nop{},
		modules:  make(map[ID]*descriptor),
		graph:    newGraph(),
		setups:   make(map[ID]*Setup),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterModule stores a module descriptor. Registering the same id again
// with the same name and the same func values is a no-op; with anything different it
// fails with errdefs.ErrConfig and leaves the registry untouched.
func (r *Registry) RegisterModule(id ID, name string, setup SetupFunc, init InitFunc, exit ExitFunc) error {
	if id == "" {
		return fmt.Errorf("register module: empty id: %w", errdefs.ErrConfig)
	}
	if existing, ok := r.modules[id]; ok {
		if existing.name == name &&
			sameFunc(existing.setup, setup) &&
			sameFunc(existing.init, init) &&
			sameFunc(existing.exit, exit) {
			return nil
		}
		return fmt.Errorf("register module %q: already registered with different callbacks: %w", id, errdefs.ErrConfig)
	}
	if name == "" {
		name = string(id)
	}
	r.modules[id] = &descriptor{id: id, name: name, setup: setup, init: init, exit: exit}
	r.order = append(r.order, id)
	return nil
}

// AddDependency declares that id depends on dependsOn. It is only valid
// while id's setup callback runs; Setup.DependsOn is the same operation.
func (r *Registry) AddDependency(id, dependsOn ID) error {
	s, ok := r.setups[id]
	if !ok {
		return fmt.Errorf("add dependency %q -> %q: module is not in setup: %w", id, dependsOn, errdefs.ErrConfig)
	}
	return s.DependsOn(dependsOn)
}

// AddOptionalDependency is AddDependency for a dependency whose init
// failure does not fail id.
func (r *Registry) AddOptionalDependency(id, dependsOn ID) error {
	s, ok := r.setups[id]
	if !ok {
		return fmt.Errorf("add optional dependency %q -> %q: module is not in setup: %w", id, dependsOn, errdefs.ErrConfig)
	}
	return s.OptionalDependsOn(dependsOn)
}

// Setup is handed to a module's setup callback. It is only usable while
// that callback runs.
type Setup struct {
	r      *Registry
	d      *descriptor
	active bool
	added  []dependency
}

func (s *Setup) Module() ID { return s.d.id }

func (s *Setup) DependsOn(id ID) error { return s.add(id, false) }

func (s *Setup) OptionalDependsOn(id ID) error { return s.add(id, true) }

func (s *Setup) add(id ID, optional bool) error {
	from := s.d.id
	if !s.active {
		return fmt.Errorf("add dependency %q -> %q: setup already returned: %w", from, id, errdefs.ErrConfig)
	}
	if id == from {
		return fmt.Errorf("add dependency %q -> %q: self dependency: %w", from, id, errdefs.ErrCyclicDependency)
	}
	if _, ok := s.r.modules[id]; !ok {
		return fmt.Errorf("add dependency %q -> %q: %w", from, id, errdefs.ErrUnknownModule)
	}
	for _, dep := range s.d.deps {
		if dep.id == id {
			return nil
		}
	}
	if cycle := s.r.graph.tryAdd(from, id); cycle != nil {
		return fmt.Errorf("add dependency %q -> %q: cycle %v: %w", from, id, cycle, errdefs.ErrCyclicDependency)
	}
	dep := dependency{id: id, optional: optional}
	s.d.deps = append(s.d.deps, dep)
	s.added = append(s.added, dep)
	return nil
}

// runSetup calls the setup callback once. On failure every dependency it
// declared is withdrawn so the next attempt starts from a clean slate.
func (r *Registry) runSetup(d *descriptor) error {
	if d.setupDone {
		return nil
	}
	s := &Setup{r: r, d: d, active: true}
	r.setups[d.id] = s
	var err error
	if d.setup != nil {
		err = d.setup(s)
	}
	s.active = false
	delete(r.setups, d.id)

	if err != nil {
		for _, dep := range s.added {
			r.graph.remove(d.id, dep.id)
		}
		d.deps = d.deps[:len(d.deps)-len(s.added)]
		r.logger.Warn("Module setup failed.", slog.String("module", string(d.id)), slog.Any("error", err))
		return fmt.Errorf("setup module %q: %w", d.id, err)
	}
	d.setupDone = true
	return nil
}

// sameFunc reports whether a and b are the same func value. A func value is
// a pointer to its closure record, so two closures from one literal with
// different captures, or two method values, never compare equal.
func sameFunc[F SetupFunc | InitFunc | ExitFunc](a, b F) bool {
	return *(*unsafe.Pointer)(unsafe.Pointer(&a)) == *(*unsafe.Pointer)(unsafe.Pointer(&b))
}
