package module

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/enginecore/enginecore/internal/errdefs"
	"github.com/enginecore/enginecore/internal/eventType"
)

// InitError reports a failed acquisition. Module is the module whose
// acquisition failed; Cause is its init error, or the failure of one of its
// required dependencies. Acquired lists the dependencies of Module that were
// acquired before the failure and still hold a reference: the caller owns
// one Release for each of them.
type InitError struct {
	Module   ID
	Cause    error
	Acquired []ID
}

func (e *InitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "init module %q", e.Module)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *InitError) Unwrap() []error {
	if e.Cause == nil {
		return []error{errdefs.ErrInitFailure}
	}
	return []error{errdefs.ErrInitFailure, e.Cause}
}

type outcome struct {
	status  Status
	err     error
	counted bool // the module's refCount was incremented
}

type acquireFrame struct {
	d       *descriptor
	entered bool
	next    int
	waiting bool
}

// Acquire takes one reference on id. On the first reference the module's
// setup runs (once), every dependency is acquired in declaration order, and
// then its init runs. Later references only increment the count.
//
// The module's stored status is returned. When the module's own init fails
// the reference is still counted and must be released. When a required
// dependency fails, id's init is not called and id is not counted; the
// returned *InitError lists the dependencies that were counted.
func (r *Registry) Acquire(id ID) (Status, error) {
	root, ok := r.modules[id]
	if !ok {
		return Uninitialized, fmt.Errorf("acquire %q: %w", id, errdefs.ErrUnknownModule)
	}

	var last outcome
	stack := []*acquireFrame{{d: root}}
	pop := func() { stack = stack[:len(stack)-1] }

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		d := f.d

		if !f.entered {
			f.entered = true
			if d.refCount > 0 {
				d.refCount++
				last = outcome{status: d.status, err: d.err, counted: true}
				pop()
				continue
			}
			if err := r.runSetup(d); err != nil {
				last = outcome{status: InitFailed, err: &InitError{Module: d.id, Cause: err}}
				pop()
				continue
			}
			d.held = nil
		}

		if f.waiting {
			f.waiting = false
			dep := d.deps[f.next-1]
			if last.counted {
				d.held = append(d.held, dep.id)
			}
			if last.status != InitSucceeded {
				if !dep.optional {
					acquired := append([]ID(nil), d.held...)
					d.held = nil
					last = outcome{status: InitFailed, err: &InitError{Module: d.id, Cause: last.err, Acquired: acquired}}
					pop()
					continue
				}
				r.logger.Warn("Optional dependency failed to initialize.",
					slog.String("module", string(d.id)),
					slog.String("dependency", string(dep.id)),
					slog.Any("error", last.err))
			}
		}

		if f.next < len(d.deps) {
			dep := d.deps[f.next]
			f.next++
			f.waiting = true
			stack = append(stack, &acquireFrame{d: r.modules[dep.id]})
			continue
		}

		last = r.runInit(d)
		pop()
	}
	return last.status, last.err
}

func (r *Registry) runInit(d *descriptor) outcome {
	var err error
	if d.init != nil {
		err = d.init()
	}
	d.refCount++
	if err != nil {
		d.status = InitFailed
		d.err = &InitError{Module: d.id, Cause: err}
		r.reporter.Lifecycle(eventType.ModuleInitFailed, map[string]any{"module": string(d.id), "error": err.Error()})
		return outcome{status: d.status, err: d.err, counted: true}
	}
	r.seq++
	d.initSeq = r.seq
	d.status = InitSucceeded
	d.err = nil
	r.reporter.Lifecycle(eventType.ModuleInitSucceeded, map[string]any{"module": string(d.id)})
	return outcome{status: d.status, counted: true}
}

// Release drops one reference on id. When the count reaches zero the
// module's exit runs (only if its init succeeded), then its dependencies
// are released in reverse declaration order.
//
// Releasing a module that holds no reference is a programming error and
// panics.
func (r *Registry) Release(id ID) {
	stack := []ID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		d, ok := r.modules[cur]
		if !ok {
			panic(fmt.Sprintf("module: release of unknown module %q", cur))
		}
		if d.refCount == 0 {
			panic(fmt.Sprintf("module: release of %q without a matching acquire", cur))
		}
		d.refCount--
		if d.refCount > 0 {
			continue
		}
		r.teardown(d)
		// Pushed in declaration order so the last declared pops first.
		stack = append(stack, d.held...)
		d.held = nil
	}
}

func (r *Registry) teardown(d *descriptor) {
	if d.status == InitSucceeded {
		if d.exit != nil {
			d.exit()
		}
		r.reporter.Lifecycle(eventType.ModuleExited, map[string]any{"module": string(d.id)})
	}
	d.status = Uninitialized
	d.err = nil
}

// ExitAll tears down every module still initialized, most recently
// initialized first, and zeroes all reference counts. It is the last step of
// engine shutdown and covers references leaked by failed acquisitions.
func (r *Registry) ExitAll() {
	live := make([]*descriptor, 0, len(r.modules))
	for _, id := range r.order {
		d := r.modules[id]
		if d.status == InitSucceeded {
			live = append(live, d)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].initSeq > live[j].initSeq })
	for _, d := range live {
		if d.refCount > 0 {
			r.logger.Debug("Forcing module exit.", slog.String("module", string(d.id)), slog.Uint64("refs", uint64(d.refCount)))
		}
		r.teardown(d)
	}
	for _, d := range r.modules {
		d.refCount = 0
		d.held = nil
		d.status = Uninitialized
		d.err = nil
	}
}

// InitAll acquires every registered module on its own, in registration
// order, and returns the ones that ended up initialized. A failure only
// affects the module it belongs to; InitAll fails with
// errdefs.ErrInitFailure only when no module initialized. The references it
// takes are dropped by ExitAll.
func (r *Registry) InitAll() ([]ID, error) {
	var (
		inited []ID
		errs   []error
	)
	for _, id := range append([]ID(nil), r.order...) {
		status, err := r.Acquire(id)
		if status == InitSucceeded {
			inited = append(inited, id)
			continue
		}
		r.logger.Debug("Module failed to initialize.", slog.String("module", string(id)), slog.Any("error", err))
		errs = append(errs, err)
	}
	if len(inited) == 0 && len(r.order) > 0 {
		return nil, fmt.Errorf("init all: no module initialized: %w: %w", errdefs.ErrInitFailure, errors.Join(errs...))
	}
	return inited, nil
}
