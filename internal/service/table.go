package service

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/enginecore/enginecore/internal/diag"
)

// entry is what a slot points at. owner is nil for the stub.
type entry struct {
	fn    any
	owner *Registration
}

type slot struct {
	spec SlotSpec
	stub *entry
	cur  atomic.Pointer[entry]
}

// Table is the dispatch table of one service. Reads are lock free and may
// run on any goroutine; writes go through the Registry.
type Table struct {
	schema   Schema
	slots    []*slot
	index    map[string]SlotID
	reporter diag.Reporter
	inFlight atomic.Int64

	// active registrations, oldest first. Guarded by the Registry.
	regs []*Registration
}

func newTable(s Schema, rep diag.Reporter) *Table {
	t := &Table{
		schema:   s,
		slots:    make([]*slot, len(s.Slots)),
		index:    make(map[string]SlotID, len(s.Slots)),
		reporter: rep,
	}
	for i, spec := range s.Slots {
		sl := &slot{spec: spec}
		sl.stub = &entry{fn: makeStub(s.Service, spec, rep).Interface()}
		sl.cur.Store(sl.stub)
		t.slots[i] = sl
		t.index[spec.Name] = SlotID(i)
	}
	return t
}

func (t *Table) Service() ID { return t.schema.Service }

func (t *Table) Schema() Schema { return t.schema }

func (t *Table) Len() int { return len(t.slots) }

// Slot returns the id of the slot called name.
func (t *Table) Slot(name string) (SlotID, bool) {
	id, ok := t.index[name]
	return id, ok
}

func (t *Table) valid(id SlotID) bool {
	return id >= 0 && int(id) < len(t.slots)
}

// Lookup returns the func currently in the slot and whether a backend put
// it there. An unbound slot yields its stub and false.
func (t *Table) Lookup(id SlotID) (fn any, bound bool) {
	if !t.valid(id) {
		return nil, false
	}
	e := t.slots[id].cur.Load()
	return e.fn, e.owner != nil
}

// Stub returns the default func of the slot.
func (t *Table) Stub(id SlotID) any {
	if !t.valid(id) {
		return nil
	}
	return t.slots[id].stub.fn
}

// Owner returns the label of the registration bound to the slot, or "".
func (t *Table) Owner(id SlotID) string {
	if !t.valid(id) {
		return ""
	}
	if e := t.slots[id].cur.Load(); e.owner != nil {
		return e.owner.owner
	}
	return ""
}

// Track marks one call in flight until done is called.
func (t *Table) Track() (done func()) {
	t.inFlight.Add(1)
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			t.inFlight.Add(-1)
		}
	}
}

func (t *Table) InFlight() int64 { return t.inFlight.Load() }

// Fn returns the func currently in slot id as an F. It panics when F is not
// the type the slot was declared with.
func Fn[F any](t *Table, id SlotID) F {
	fn, _ := t.Lookup(id)
	f, ok := fn.(F)
	if !ok {
		var zero F
		panic(fmt.Sprintf("service: slot %d of %q holds %T, not %T", id, t.schema.Service, fn, zero))
	}
	return f
}

var (
	errorType  = reflect.TypeOf((*error)(nil)).Elem()
	statusType = reflect.TypeOf(Failure)
	pkgPrefix  = reflect.TypeOf((*Table)(nil)).Elem().PkgPath()
)

func makeStub(svc ID, spec SlotSpec, rep diag.Reporter) reflect.Value {
	ft := spec.Type
	return reflect.MakeFunc(ft, func([]reflect.Value) []reflect.Value {
		file, line := caller()
		rep.StubInvoked(diag.StubCall{Service: string(svc), Slot: spec.Name, File: file, Line: line})
		out := make([]reflect.Value, ft.NumOut())
		for i := range out {
			out[i] = neutral(ft.Out(i), svc, spec.Name)
		}
		return out
	})
}

func neutral(t reflect.Type, svc ID, name string) reflect.Value {
	switch t {
	case statusType:
		return reflect.ValueOf(Failure)
	case errorType:
		v := reflect.New(errorType).Elem()
		v.Set(reflect.ValueOf(&StubError{Service: svc, Slot: name}))
		return v
	}
	return reflect.Zero(t)
}

// caller finds the first frame outside reflect, the runtime and the service
// packages (service and its typed facades).
func caller() (string, int) {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		skip := strings.HasPrefix(f.Function, "reflect.") ||
			strings.HasPrefix(f.Function, "runtime.") ||
			(strings.HasPrefix(f.Function, pkgPrefix) && !strings.HasSuffix(f.File, "_test.go"))
		if !skip {
			return f.File, f.Line
		}
		if !more {
			return "???", 0
		}
	}
}
