// Package binder attaches backends to service tables, either linked into
// the binary (embedded) or loaded from a shared library (dynamic).
//
// A backend is reached through a single entry point of type EntryFunc. The
// binder calls it with a Registrar and the backend registers its slot
// overrides through it. If anything fails while a binding is loading every
// override it made is withdrawn and the library is closed again.
package binder

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/enginecore/enginecore/internal/diag"
	"github.com/enginecore/enginecore/internal/dynlib"
	"github.com/enginecore/enginecore/internal/errdefs"
	"github.com/enginecore/enginecore/internal/eventType"
	"github.com/enginecore/enginecore/internal/service"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// EntrySymbol is the symbol every dynamic backend exports.
const EntrySymbol = "BackendEntry"

// Registrar is what a backend entry point gets to work with.
type Registrar interface {
	// Service is the service the backend is being bound to.
	Service() service.ID
	Table(id service.ID) (*service.Table, bool)
	Register(id service.ID, overrides ...service.Override) error
}

type EntryFunc func(r Registrar) error

type Binder struct {
	services *service.Registry
	loader   dynlib.Loader
	resolver dynlib.Resolver
	reporter diag.Reporter
	logger   *slog.Logger

	mu      sync.RWMutex
	current map[service.ID]*Binding
	live    []*Binding
	// handles maps library names to live bindings, orphans included.
	handles *cache.Cache
}

type Option func(*Binder)

func WithLoader(l dynlib.Loader) Option {
	return func(b *Binder) {
		if l != nil {
			b.loader = l
		}
	}
}

func WithResolver(r dynlib.Resolver) Option {
	return func(b *Binder) { b.resolver = r }
}

func WithReporter(rep diag.Reporter) Option {
	return func(b *Binder) {
		if rep != nil {
			b.reporter = rep
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Binder) {
		if l != nil {
			b.logger = l
		}
	}
}

func New(services *service.Registry, opts ...Option) *Binder {
	b := &Binder{
		services: services,
		loader:   dynlib.PluginLoader{},
		reporter: diag.Nop{},
		logger:   slog.Default(),
		current:  make(map[service.ID]*Binding),
		handles:  cache.New(cache.NoExpiration, cache.NoExpiration),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BindEmbedded binds the linked-in backend registered as name.
func (b *Binder) BindEmbedded(svc service.ID, name string) (*Binding, error) {
	entry, ok := embedded(name)
	if !ok {
		bd := b.newBinding(svc, Embedded, name)
		b.reporter.Lifecycle(eventType.BackendLoading, b.fields(bd))
		return nil, b.fail(bd, fmt.Errorf("no embedded backend %q", name))
	}
	return b.BindEntry(svc, name, entry)
}

// BindEntry binds an embedded backend given its entry point directly.
func (b *Binder) BindEntry(svc service.ID, name string, entry EntryFunc) (*Binding, error) {
	bd := b.newBinding(svc, Embedded, name)
	b.reporter.Lifecycle(eventType.BackendLoading, b.fields(bd))
	if entry == nil {
		return nil, b.fail(bd, fmt.Errorf("nil entry point"))
	}
	if err := b.enter(bd, entry); err != nil {
		return nil, b.fail(bd, err)
	}
	b.commit(bd)
	return bd, nil
}

// BindDynamic loads library, a bare name or a path, and binds the backend
// it exports to svc.
func (b *Binder) BindDynamic(svc service.ID, library string) (*Binding, error) {
	return b.load(svc, library, false)
}

// ShadowLoad is BindDynamic for a library whose name has nothing to do
// with the service it backs, such as the application payload behind Main.
func (b *Binder) ShadowLoad(svc service.ID, library string) (*Binding, error) {
	return b.load(svc, library, true)
}

func (b *Binder) load(svc service.ID, library string, shadow bool) (*Binding, error) {
	bd := b.newBinding(svc, Dynamic, library)
	bd.Shadow = shadow
	b.reporter.Lifecycle(eventType.BackendLoading, b.fields(bd))

	if _, ok := b.services.Table(svc); !ok {
		return nil, b.fail(bd, fmt.Errorf("%w: %s", errdefs.ErrUnknownService, svc))
	}
	h, path, err := dynlib.Open(b.loader, b.resolver, library)
	if err != nil {
		return nil, b.fail(bd, err)
	}
	bd.handle, bd.Path = h, path

	sym, ok := b.loader.Resolve(h, EntrySymbol)
	if !ok {
		return nil, b.fail(bd, fmt.Errorf("symbol %s not found in %s", EntrySymbol, path))
	}
	entry, ok := asEntry(sym)
	if !ok {
		return nil, b.fail(bd, fmt.Errorf("symbol %s in %s has type %T", EntrySymbol, path, sym))
	}
	if err := b.enter(bd, entry); err != nil {
		return nil, b.fail(bd, err)
	}
	b.commit(bd)
	return bd, nil
}

// asEntry accepts the entry point as a func or, as Go plugins export
// variables, a pointer to one.
func asEntry(sym any) (EntryFunc, bool) {
	switch fn := sym.(type) {
	case EntryFunc:
		return fn, fn != nil
	case func(Registrar) error:
		return fn, fn != nil
	case *EntryFunc:
		if fn != nil && *fn != nil {
			return *fn, true
		}
	case *func(Registrar) error:
		if fn != nil && *fn != nil {
			return *fn, true
		}
	}
	return nil, false
}

func (b *Binder) newBinding(svc service.ID, mode Mode, library string) *Binding {
	return &Binding{
		ID:      uuid.New(),
		Service: svc,
		Mode:    mode,
		Library: library,
		Created: time.Now(),
		state:   Loading,
	}
}

func (b *Binder) enter(bd *Binding, entry EntryFunc) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("entry point panicked: %v", p)
		}
	}()
	if err := entry(&registrar{b: b, bd: bd}); err != nil {
		return fmt.Errorf("entry point: %w", err)
	}
	return nil
}

// fail rolls back a binding that did not make it out of Loading.
func (b *Binder) fail(bd *Binding, cause error) error {
	for i := len(bd.regs) - 1; i >= 0; i-- {
		if err := b.services.UnregisterBackend(bd.regs[i]); err != nil {
			b.logger.Error("Failed to roll back backend registration.", slog.String("service", string(bd.Service)), slog.Any("error", err))
		}
	}
	bd.regs = nil
	if bd.handle != nil {
		if err := b.loader.Close(bd.handle); err != nil {
			b.logger.Warn("Failed to close library.", slog.String("path", bd.Path), slog.Any("error", err))
		}
		bd.handle = nil
	}
	bd.state = Unbound
	fields := b.fields(bd)
	fields["error"] = cause.Error()
	b.reporter.Lifecycle(eventType.BackendBindFailed, fields)
	return fmt.Errorf("bind %s backend %q for %s: %w: %w", bd.Mode, bd.Library, bd.Service, errdefs.ErrBind, cause)
}

func (b *Binder) commit(bd *Binding) {
	bd.state = Bound
	b.mu.Lock()
	prev := b.current[bd.Service]
	b.current[bd.Service] = bd
	b.live = append(b.live, bd)
	b.mu.Unlock()
	if bd.Library != "" {
		b.handles.Set(bd.Library, bd, cache.NoExpiration)
	}

	if prev != nil && prev.state == Bound {
		b.reporter.Lifecycle(eventType.BackendOverridden, map[string]any{
			"service":  string(bd.Service),
			"binding":  bd.ID.String(),
			"previous": prev.ID.String(),
		})
	}
	fields := b.fields(bd)
	fields["binding"] = bd.ID.String()
	b.reporter.Lifecycle(eventType.BackendBound, fields)
}

func (b *Binder) fields(bd *Binding) map[string]any {
	return map[string]any{
		"service": string(bd.Service),
		"mode":    bd.Mode.String(),
		"library": bd.Library,
	}
}

// Unbind withdraws every override bd made and closes its library. It
// refuses embedded bindings, and fails with errdefs.ErrFatalBind while any
// call is in flight through a table bd registered into.
func (b *Binder) Unbind(bd *Binding) error {
	if bd == nil || bd.state != Bound {
		return fmt.Errorf("unbind: binding is not bound: %w", errdefs.ErrConfig)
	}
	if bd.Mode == Embedded {
		return fmt.Errorf("unbind %s: embedded backend %q cannot be unbound: %w", bd.Service, bd.Library, errdefs.ErrConfig)
	}
	for _, reg := range bd.regs {
		if t, ok := b.services.Table(reg.Service()); ok && t.InFlight() > 0 {
			return fmt.Errorf("unbind %s: %d calls in flight through %s: %w", bd.Service, t.InFlight(), reg.Service(), errdefs.ErrFatalBind)
		}
	}

	bd.state = Unbinding
	b.reporter.Lifecycle(eventType.BackendUnbinding, map[string]any{"service": string(bd.Service), "binding": bd.ID.String()})

	var closeErr error
	for i := len(bd.regs) - 1; i >= 0; i-- {
		if err := b.services.UnregisterBackend(bd.regs[i]); err != nil {
			b.logger.Error("Failed to unregister backend.", slog.String("service", string(bd.Service)), slog.Any("error", err))
		}
	}
	bd.regs = nil
	if bd.handle != nil {
		if err := b.loader.Close(bd.handle); err != nil {
			closeErr = fmt.Errorf("unbind %s: close %s: %w", bd.Service, bd.Path, err)
		}
		bd.handle = nil
	}
	bd.state = Unbound

	b.mu.Lock()
	for i, x := range b.live {
		if x == bd {
			b.live = append(b.live[:i], b.live[i+1:]...)
			break
		}
	}
	if b.current[bd.Service] == bd {
		if older := b.newestLive(func(x *Binding) bool { return x.Service == bd.Service }); older != nil {
			b.current[bd.Service] = older
		} else {
			delete(b.current, bd.Service)
		}
	}
	var sameLib *Binding
	if bd.Library != "" {
		sameLib = b.newestLive(func(x *Binding) bool { return x.Library == bd.Library })
	}
	b.mu.Unlock()
	if v, ok := b.handles.Get(bd.Library); ok && v.(*Binding) == bd {
		if sameLib != nil {
			b.handles.Set(bd.Library, sameLib, cache.NoExpiration)
		} else {
			b.handles.Delete(bd.Library)
		}
	}

	b.reporter.Lifecycle(eventType.BackendUnbound, map[string]any{"service": string(bd.Service), "binding": bd.ID.String()})
	return closeErr
}

// newestLive returns the most recently bound live binding matching keep.
// The caller holds b.mu.
func (b *Binder) newestLive(keep func(*Binding) bool) *Binding {
	for i := len(b.live) - 1; i >= 0; i-- {
		if keep(b.live[i]) {
			return b.live[i]
		}
	}
	return nil
}

// Binding returns the live binding that last bound svc.
func (b *Binder) Binding(svc service.ID) (*Binding, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bd, ok := b.current[svc]
	return bd, ok
}

// Lookup finds a live binding by library name.
func (b *Binder) Lookup(library string) (*Binding, bool) {
	v, ok := b.handles.Get(library)
	if !ok {
		return nil, false
	}
	return v.(*Binding), true
}

// GetFunction resolves any exported symbol of a live dynamic binding.
func (b *Binder) GetFunction(bd *Binding, symbol string) (any, bool) {
	if bd == nil || bd.state != Bound || bd.handle == nil {
		return nil, false
	}
	return b.loader.Resolve(bd.handle, symbol)
}

// Close unbinds every dynamic binding still live, newest first.
func (b *Binder) Close() error {
	b.mu.RLock()
	live := append([]*Binding(nil), b.live...)
	b.mu.RUnlock()

	var errs []error
	for i := len(live) - 1; i >= 0; i-- {
		if live[i].Mode != Dynamic {
			continue
		}
		if err := b.Unbind(live[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Available lists the libraries the binder could load from its plugin
// directory.
func (b *Binder) Available() ([]dynlib.Library, error) {
	return b.resolver.Scan()
}

// Bindings lists live bindings, oldest first.
func (b *Binder) Bindings() []Info {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Info, 0, len(b.live))
	for _, bd := range b.live {
		out = append(out, bd.info(b.current[bd.Service] == bd))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out
}

type registrar struct {
	b  *Binder
	bd *Binding
}

func (r *registrar) Service() service.ID { return r.bd.Service }

func (r *registrar) Table(id service.ID) (*service.Table, bool) { return r.b.services.Table(id) }

func (r *registrar) Register(id service.ID, overrides ...service.Override) error {
	if r.bd.state != Loading {
		return fmt.Errorf("register %s: binding is %s: %w", id, r.bd.state, errdefs.ErrConfig)
	}
	reg, err := r.b.services.RegisterBackendAs(r.bd.Library, id, overrides...)
	if err != nil {
		return err
	}
	r.bd.regs = append(r.bd.regs, reg)
	return nil
}
