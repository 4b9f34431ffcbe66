package module

import (
	"errors"
	"fmt"
	"sort"

	"github.com/enginecore/enginecore/internal/errdefs"
)

// Info is a read-only view of one module.
type Info struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	RefCount     uint   `json:"ref_count"`
	Status       string `json:"status"`
	Dependencies []ID   `json:"dependencies"`
	Optional     []ID   `json:"optional,omitempty"`
	SetupDone    bool   `json:"setup_done"`
}

func (r *Registry) Has(id ID) bool {
	_, ok := r.modules[id]
	return ok
}

func (r *Registry) Status(id ID) Status {
	if d, ok := r.modules[id]; ok {
		return d.status
	}
	return Uninitialized
}

func (r *Registry) RefCount(id ID) uint {
	if d, ok := r.modules[id]; ok {
		return d.refCount
	}
	return 0
}

func (r *Registry) IsInitialized(id ID) bool {
	return r.Status(id) == InitSucceeded
}

// Snapshot returns every module in registration order.
func (r *Registry) Snapshot() []Info {
	out := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		d := r.modules[id]
		info := Info{
			ID:           d.id,
			Name:         d.name,
			RefCount:     d.refCount,
			Status:       d.status.String(),
			Dependencies: []ID{},
			SetupDone:    d.setupDone,
		}
		for _, dep := range d.deps {
			if dep.optional {
				info.Optional = append(info.Optional, dep.id)
			} else {
				info.Dependencies = append(info.Dependencies, dep.id)
			}
		}
		out = append(out, info)
	}
	return out
}

// SetupAll runs the setup of every registered module that has not run it
// yet, without initializing anything, so the whole graph is declared.
func (r *Registry) SetupAll() error {
	var errs []error
	for _, id := range r.order {
		if err := r.runSetup(r.modules[id]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Order returns the modules whose setup has run, dependencies first. Ties
// are broken by id so the result is stable.
func (r *Registry) Order() ([]ID, error) {
	inDegree := make(map[ID]int)
	reverse := make(map[ID][]ID)
	for _, id := range r.order {
		d := r.modules[id]
		if !d.setupDone {
			continue
		}
		inDegree[id] += 0
		for _, dep := range d.deps {
			inDegree[id]++
			reverse[dep.id] = append(reverse[dep.id], id)
			if _, ok := inDegree[dep.id]; !ok && !r.modules[dep.id].setupDone {
				return nil, fmt.Errorf("module %q depends on %q whose setup has not run: %w", id, dep.id, errdefs.ErrConfig)
			}
		}
	}

	q := make([]ID, 0, len(inDegree))
	for id, n := range inDegree {
		if n == 0 {
			q = append(q, id)
		}
	}
	sortIDs(q)

	order := make([]ID, 0, len(inDegree))
	for len(q) > 0 {
		n := q[0]
		q = q[1:]
		order = append(order, n)
		for _, child := range reverse[n] {
			inDegree[child]--
			if inDegree[child] == 0 {
				q = append(q, child)
			}
		}
		sortIDs(q)
	}

	if len(order) != len(inDegree) {
		remaining := make([]ID, 0)
		for id, n := range inDegree {
			if n != 0 {
				remaining = append(remaining, id)
			}
		}
		sortIDs(remaining)
		return nil, fmt.Errorf("dependency cycle among %v: %w", remaining, errdefs.ErrCyclicDependency)
	}
	return order, nil
}

func sortIDs(ids []ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
