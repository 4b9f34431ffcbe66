package service

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/enginecore/enginecore/internal/diag"
	"github.com/enginecore/enginecore/internal/errdefs"
)

// Registration records what one RegisterBackend call replaced.
type Registration struct {
	table  *Table
	owner  string
	slots  []SlotID
	prev   map[SlotID]*entry
	active bool
}

func (r *Registration) Service() ID { return r.table.Service() }

func (r *Registration) Owner() string { return r.owner }

func (r *Registration) Slots() []SlotID { return append([]SlotID(nil), r.slots...) }

func (r *Registration) Active() bool { return r.active }

// Previous returns the func slot held before this registration and whether
// that was a backend func rather than the stub.
func (r *Registration) Previous(slot SlotID) (fn any, bound bool) {
	e, ok := r.prev[slot]
	if !ok {
		return nil, false
	}
	return e.fn, e.owner != nil
}

// PreviousAs is Previous with the func typed as F, for backends that wrap
// whatever they replaced.
func PreviousAs[F any](r *Registration, slot SlotID) (F, bool) {
	fn, _ := r.Previous(slot)
	f, ok := fn.(F)
	return f, ok
}

// Registry owns the service tables of one engine.
type Registry struct {
	mu       sync.RWMutex
	tables   map[ID]*Table
	order    []ID
	logger   *slog.Logger
	reporter diag.Reporter
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
		tables:   make(map[ID]*Table),
		logger:   slog.Default(),
		reporter: diag.Nop{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Declare creates the table for s with every slot on its stub. Declaring
// the same schema again returns the existing table.
func (r *Registry) Declare(s Schema) (*Table, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tables[s.Service]; ok {
		if !t.schema.equal(s) {
			return nil, fmt.Errorf("declare service %q: already declared with a different schema: %w", s.Service, errdefs.ErrConfig)
		}
		return t, nil
	}
	s.Slots = append([]SlotSpec(nil), s.Slots...)
	t := newTable(s, r.reporter)
	r.tables[s.Service] = t
	r.order = append(r.order, s.Service)
	return t, nil
}

func (r *Registry) Table(id ID) (*Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[id]
	return t, ok
}

// Tables returns every table in declaration order.
func (r *Registry) Tables() []*Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Table, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tables[id])
	}
	return out
}

func (r *Registry) RegisterBackend(id ID, overrides ...Override) (*Registration, error) {
	return r.RegisterBackendAs("", id, overrides...)
}

// RegisterBackendAs swaps every override into its slot, labelling the
// registration with owner. Every override is checked before any slot is
// touched, so a rejected call changes nothing.
func (r *Registry) RegisterBackendAs(owner string, id ID, overrides ...Override) (*Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tables[id]
	if !ok {
		return nil, fmt.Errorf("register backend for %q: %w", id, errdefs.ErrUnknownService)
	}

	entries := make([]*entry, len(overrides))
	seen := make(map[SlotID]bool, len(overrides))
	reg := &Registration{table: t, owner: owner, prev: make(map[SlotID]*entry, len(overrides)), active: true}
	for i, o := range overrides {
		if !t.valid(o.Slot) {
			return nil, fmt.Errorf("register backend for %q: no slot %d: %w", id, o.Slot, errdefs.ErrConfig)
		}
		spec := t.slots[o.Slot].spec
		if seen[o.Slot] {
			return nil, fmt.Errorf("register backend for %q: slot %q overridden twice: %w", id, spec.Name, errdefs.ErrConfig)
		}
		seen[o.Slot] = true
		fn, err := conform(o.Fn, spec)
		if err != nil {
			return nil, fmt.Errorf("register backend for %q: %w", id, err)
		}
		entries[i] = &entry{fn: fn, owner: reg}
	}

	var replaced []string
	for i, o := range overrides {
		reg.slots = append(reg.slots, o.Slot)
		prev := t.slots[o.Slot].cur.Swap(entries[i])
		reg.prev[o.Slot] = prev
		if prev.owner != nil && (owner == "" || prev.owner.owner != owner) {
			replaced = append(replaced, t.slots[o.Slot].spec.Name)
		}
	}
	t.regs = append(t.regs, reg)
	if len(replaced) > 0 {
		r.logger.Warn("Backend overwrites slots bound by another backend.",
			slog.String("service", string(id)),
			slog.String("owner", owner),
			slog.Any("slots", replaced))
	}
	r.logger.Debug("Backend registered.", slog.String("service", string(id)), slog.String("owner", owner), slog.Int("slots", len(overrides)))
	return reg, nil
}

// UnregisterBackend puts back what reg replaced. When a later registration
// has since been layered on top of a slot, that one keeps the slot and
// inherits reg's previous func instead.
func (r *Registry) UnregisterBackend(reg *Registration) error {
	if reg == nil {
		return fmt.Errorf("unregister backend: nil registration: %w", errdefs.ErrConfig)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !reg.active {
		return fmt.Errorf("unregister backend for %q: registration already undone: %w", reg.Service(), errdefs.ErrConfig)
	}
	t := reg.table
	for i := len(reg.slots) - 1; i >= 0; i-- {
		id := reg.slots[i]
		prev := reg.prev[id]
		sl := t.slots[id]
		if cur := sl.cur.Load(); cur.owner == reg {
			sl.cur.Store(prev)
			continue
		}
		for _, above := range t.regs {
			if e, ok := above.prev[id]; ok && e.owner == reg {
				above.prev[id] = prev
				break
			}
		}
	}
	reg.active = false
	for i, x := range t.regs {
		if x == reg {
			t.regs = append(t.regs[:i], t.regs[i+1:]...)
			break
		}
	}
	r.logger.Debug("Backend unregistered.", slog.String("service", string(t.Service())), slog.String("owner", reg.owner))
	return nil
}

func conform(fn any, spec SlotSpec) (any, error) {
	if fn == nil {
		return nil, fmt.Errorf("slot %q: nil func: %w", spec.Name, errdefs.ErrConfig)
	}
	v := reflect.ValueOf(fn)
	if v.Type() == spec.Type {
		if v.IsNil() {
			return nil, fmt.Errorf("slot %q: nil func: %w", spec.Name, errdefs.ErrConfig)
		}
		return fn, nil
	}
	if v.Kind() != reflect.Func || !v.Type().ConvertibleTo(spec.Type) {
		return nil, fmt.Errorf("slot %q wants %s, got %s: %w", spec.Name, spec.Type, v.Type(), errdefs.ErrConfig)
	}
	if v.IsNil() {
		return nil, fmt.Errorf("slot %q: nil func: %w", spec.Name, errdefs.ErrConfig)
	}
	return v.Convert(spec.Type).Interface(), nil
}

type SlotInfo struct {
	ID    SlotID `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Bound bool   `json:"bound"`
	Owner string `json:"owner,omitempty"`
}

type TableInfo struct {
	Service  ID         `json:"service"`
	InFlight int64      `json:"in_flight"`
	Slots    []SlotInfo `json:"slots"`
}

func (r *Registry) Snapshot() []TableInfo {
	tables := r.Tables()
	out := make([]TableInfo, 0, len(tables))
	for _, t := range tables {
		info := TableInfo{Service: t.Service(), InFlight: t.InFlight(), Slots: make([]SlotInfo, 0, t.Len())}
		for i, sl := range t.slots {
			e := sl.cur.Load()
			si := SlotInfo{ID: SlotID(i), Name: sl.spec.Name, Type: sl.spec.Type.String(), Bound: e.owner != nil}
			if e.owner != nil {
				si.Owner = e.owner.owner
			}
			info.Slots = append(info.Slots, si)
		}
		out = append(out, info)
	}
	return out
}
