// Package service holds the per-service dispatch tables of an engine.
//
// A service declares its slots once, as a Schema of names and func types.
// Every slot starts out holding a generated stub that reports the call and
// returns neutral values; backends swap real funcs in with RegisterBackend
// and the previous funcs come back with UnregisterBackend.
package service

import (
	"fmt"
	"reflect"

	"github.com/enginecore/enginecore/internal/errdefs"
)

type ID string

// SlotID is the index of a slot in its service's schema.
type SlotID int

// Status is the result type of slots that only report success. The zero
// value is Failure, which is what a stub returns.
type Status int

const (
	Failure Status = iota
	Success
)

func (s Status) String() string {
	if s == Success {
		return "success"
	}
	return "failure"
}

type SlotSpec struct {
	Name string
	Type reflect.Type
}

// Slot describes a slot named name whose funcs have type F.
func Slot[F any](name string) SlotSpec {
	return SlotSpec{Name: name, Type: reflect.TypeOf((*F)(nil)).Elem()}
}

type Schema struct {
	Service ID
	Slots   []SlotSpec
}

func (s Schema) validate() error {
	if s.Service == "" {
		return fmt.Errorf("declare service: empty id: %w", errdefs.ErrConfig)
	}
	seen := make(map[string]bool, len(s.Slots))
	for i, spec := range s.Slots {
		if spec.Name == "" {
			return fmt.Errorf("declare service %q: slot %d has no name: %w", s.Service, i, errdefs.ErrConfig)
		}
		if seen[spec.Name] {
			return fmt.Errorf("declare service %q: duplicate slot %q: %w", s.Service, spec.Name, errdefs.ErrConfig)
		}
		seen[spec.Name] = true
		if spec.Type == nil || spec.Type.Kind() != reflect.Func {
			return fmt.Errorf("declare service %q: slot %q is not a func type: %w", s.Service, spec.Name, errdefs.ErrConfig)
		}
	}
	return nil
}

func (s Schema) equal(o Schema) bool {
	if s.Service != o.Service || len(s.Slots) != len(o.Slots) {
		return false
	}
	for i := range s.Slots {
		if s.Slots[i] != o.Slots[i] {
			return false
		}
	}
	return true
}

// Override replaces the func in one slot.
type Override struct {
	Slot SlotID
	Fn   any
}

// StubError is the error result of a slot that no backend bound. It
// matches errdefs.ErrStubInvoked.
type StubError struct {
	Service ID
	Slot    string
}

func (e *StubError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Service, e.Slot, errdefs.ErrStubInvoked)
}

func (e *StubError) Unwrap() error { return errdefs.ErrStubInvoked }
