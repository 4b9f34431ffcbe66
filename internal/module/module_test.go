package module

import (
	"errors"
	"fmt"
	"testing"

	"github.com/enginecore/enginecore/internal/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects init/exit calls in order.
type recorder struct {
	calls []string
	fail  map[ID]bool
}

func newRecorder() *recorder { return &recorder{fail: map[ID]bool{}} }

func (rec *recorder) init(id ID) InitFunc {
	return func() error {
		rec.calls = append(rec.calls, "init:"+string(id))
		if rec.fail[id] {
			return fmt.Errorf("%s refused", id)
		}
		return nil
	}
}

func (rec *recorder) exit(id ID) ExitFunc {
	return func() { rec.calls = append(rec.calls, "exit:"+string(id)) }
}

func (rec *recorder) count(call string) int {
	n := 0
	for _, c := range rec.calls {
		if c == call {
			n++
		}
	}
	return n
}

func deps(ids ...ID) SetupFunc {
	return func(s *Setup) error {
		for _, id := range ids {
			if err := s.DependsOn(id); err != nil {
				return err
			}
		}
		return nil
	}
}

func register(t *testing.T, r *Registry, rec *recorder, id ID, setup SetupFunc) {
	t.Helper()
	require.NoError(t, r.RegisterModule(id, string(id), setup, rec.init(id), rec.exit(id)))
}

func TestRepeatedAcquireInitsAndExitsOnce(t *testing.T) {
	r := NewRegistry()
	rec := newRecorder()
	register(t, r, rec, "A", nil)

	const extra = 5
	for i := 0; i < extra+1; i++ {
		st, err := r.Acquire("A")
		require.NoError(t, err)
		assert.Equal(t, InitSucceeded, st)
	}
	assert.Equal(t, uint(extra+1), r.RefCount("A"))

	for i := 0; i < extra; i++ {
		r.Release("A")
		assert.Equal(t, 0, rec.count("exit:A"))
	}
	r.Release("A")

	assert.Equal(t, 1, rec.count("init:A"))
	assert.Equal(t, 1, rec.count("exit:A"))
	assert.Equal(t, Uninitialized, r.Status("A"))
}

func TestDependencyInitBeforeDependent(t *testing.T) {
	r := NewRegistry()
	rec := newRecorder()
	register(t, r, rec, "B", nil)
	register(t, r, rec, "A", deps("B"))

	st, err := r.Acquire("A")
	require.NoError(t, err)
	assert.Equal(t, InitSucceeded, st)
	assert.Equal(t, []string{"init:B", "init:A"}, rec.calls)

	r.Release("A")
	assert.Equal(t, []string{"init:B", "init:A", "exit:A", "exit:B"}, rec.calls)
	assert.Zero(t, r.RefCount("B"))
}

func TestTransitiveOrderAndReverseRelease(t *testing.T) {
	r := NewRegistry()
	rec := newRecorder()
	register(t, r, rec, "C", nil)
	register(t, r, rec, "B", deps("C"))
	register(t, r, rec, "D", nil)
	register(t, r, rec, "A", deps("B", "D"))

	_, err := r.Acquire("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"init:C", "init:B", "init:D", "init:A"}, rec.calls)

	rec.calls = nil
	r.Release("A")
	assert.Equal(t, []string{"exit:A", "exit:D", "exit:B", "exit:C"}, rec.calls)
}

func TestDiamondSharedDependency(t *testing.T) {
	r := NewRegistry()
	rec := newRecorder()
	register(t, r, rec, "Z", nil)
	register(t, r, rec, "X", deps("Z"))
	register(t, r, rec, "Y", deps("Z"))

	_, err := r.Acquire("X")
	require.NoError(t, err)
	_, err = r.Acquire("Y")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.count("init:Z"))
	assert.Equal(t, uint(2), r.RefCount("Z"))

	r.Release("X")
	assert.Equal(t, 0, rec.count("exit:Z"))
	assert.True(t, r.IsInitialized("Z"))

	r.Release("Y")
	assert.Equal(t, 1, rec.count("exit:Z"))
	assert.False(t, r.IsInitialized("Z"))
}

func TestDiamondInsideOneAcquire(t *testing.T) {
	r := NewRegistry()
	rec := newRecorder()
	register(t, r, rec, "Z", nil)
	register(t, r, rec, "Y", deps("Z"))
	register(t, r, rec, "X", deps("Y", "Z"))

	_, err := r.Acquire("X")
	require.NoError(t, err)
	assert.Equal(t, []string{"init:Z", "init:Y", "init:X"}, rec.calls)
	assert.Equal(t, uint(2), r.RefCount("Z"))

	r.Release("X")
	assert.Equal(t, 1, rec.count("exit:Z"))
	assert.Zero(t, r.RefCount("Z"))
}

func TestCycleRejectedWithoutPartialRegistration(t *testing.T) {
	r := NewRegistry()
	rec := newRecorder()
	var cycleErr error
	register(t, r, rec, "A", deps("B"))
	register(t, r, rec, "B", func(s *Setup) error {
		cycleErr = s.DependsOn("A")
		return cycleErr
	})

	st, err := r.Acquire("A")
	assert.Equal(t, InitFailed, st)
	require.Error(t, err)
	assert.ErrorIs(t, cycleErr, errdefs.ErrCyclicDependency)
	assert.ErrorIs(t, err, errdefs.ErrCyclicDependency)
	assert.ErrorIs(t, err, errdefs.ErrInitFailure)
	assert.Empty(t, rec.calls)

	for _, info := range r.Snapshot() {
		if info.ID == "B" {
			assert.Empty(t, info.Dependencies)
			assert.False(t, info.SetupDone)
		}
		assert.Zero(t, info.RefCount)
	}
}

func TestSelfDependencyRejected(t *testing.T) {
	r := NewRegistry()
	rec := newRecorder()
	register(t, r, rec, "A", deps("A"))

	_, err := r.Acquire("A")
	assert.ErrorIs(t, err, errdefs.ErrCyclicDependency)
	assert.Zero(t, r.RefCount("A"))
}

func TestAddDependencyOutsideSetup(t *testing.T) {
	r := NewRegistry()
	rec := newRecorder()
	register(t, r, rec, "A", nil)
	register(t, r, rec, "B", nil)

	err := r.AddDependency("A", "B")
	assert.ErrorIs(t, err, errdefs.ErrConfig)

	var kept *Setup
	register(t, r, rec, "C", func(s *Setup) error {
		kept = s
		return r.AddDependency("C", "B")
	})
	_, err = r.Acquire("C")
	require.NoError(t, err)
	assert.Equal(t, []string{"init:B", "init:C"}, rec.calls)
	assert.ErrorIs(t, kept.DependsOn("A"), errdefs.ErrConfig)
}

func TestUnknownDependency(t *testing.T) {
	r := NewRegistry()
	rec := newRecorder()
	register(t, r, rec, "A", deps("ghost"))

	_, err := r.Acquire("A")
	assert.ErrorIs(t, err, errdefs.ErrUnknownModule)

	_, err = r.Acquire("ghost")
	assert.ErrorIs(t, err, errdefs.ErrUnknownModule)
}

func TestConflictingReRegistration(t *testing.T) {
	r := NewRegistry()
	rec := newRecorder()
	initA := rec.init("A")
	exitA := rec.exit("A")
	require.NoError(t, r.RegisterModule("A", "A", nil, initA, exitA))
	before := r.Snapshot()

	require.NoError(t, r.RegisterModule("A", "A", nil, initA, exitA), "identical registration is idempotent")

	other := func() error { return nil }
	err := r.RegisterModule("A", "A", nil, other, exitA)
	assert.ErrorIs(t, err, errdefs.ErrConfig)
	assert.Equal(t, before, r.Snapshot())

	_, err = r.Acquire("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"init:A"}, rec.calls)
}

func TestReRegistrationWithClosuresFromOneSite(t *testing.T) {
	r := NewRegistry()
	first, second := newRecorder(), newRecorder()

	var errs []error
	for _, rec := range []*recorder{first, second} {
		errs = append(errs, r.RegisterModule("A", "A", nil, rec.init("A"), rec.exit("A")))
	}
	require.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], errdefs.ErrConfig)

	_, err := r.Acquire("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"init:A"}, first.calls)
	assert.Empty(t, second.calls)
}

func TestDependencyFailureShortCircuits(t *testing.T) {
	r := NewRegistry()
	rec := newRecorder()
	rec.fail["B"] = true
	register(t, r, rec, "C", nil)
	register(t, r, rec, "B", nil)
	register(t, r, rec, "A", deps("C", "B"))

	st, err := r.Acquire("A")
	assert.Equal(t, InitFailed, st)
	assert.ErrorIs(t, err, errdefs.ErrInitFailure)
	assert.Equal(t, []string{"init:C", "init:B"}, rec.calls)
	assert.Zero(t, r.RefCount("A"), "a failed dependent is not counted")
	assert.Equal(t, uint(1), r.RefCount("C"))
	assert.Equal(t, uint(1), r.RefCount("B"), "a module whose own init failed is counted")

	var initErr *InitError
	require.True(t, errors.As(err, &initErr))
	assert.Equal(t, ID("A"), initErr.Module)
	assert.Equal(t, []ID{"C", "B"}, initErr.Acquired)

	for _, id := range initErr.Acquired {
		r.Release(id)
	}
	assert.Equal(t, 1, rec.count("exit:C"))
	assert.Equal(t, 0, rec.count("exit:B"))
	assert.Zero(t, r.RefCount("B"))
}

func TestOwnInitFailureIsCounted(t *testing.T) {
	r := NewRegistry()
	rec := newRecorder()
	rec.fail["A"] = true
	register(t, r, rec, "B", nil)
	register(t, r, rec, "A", deps("B"))

	st, err := r.Acquire("A")
	assert.Equal(t, InitFailed, st)
	assert.ErrorIs(t, err, errdefs.ErrInitFailure)
	assert.Equal(t, uint(1), r.RefCount("A"))

	st, err = r.Acquire("A")
	assert.Equal(t, InitFailed, st, "stored status is returned")
	assert.Error(t, err)
	assert.Equal(t, 1, rec.count("init:A"), "failures are not retried")

	r.Release("A")
	r.Release("A")
	assert.Equal(t, 0, rec.count("exit:A"))
	assert.Equal(t, 1, rec.count("exit:B"), "dependencies held for the failed init are released")

	rec.fail["A"] = false
	st, err = r.Acquire("A")
	require.NoError(t, err)
	assert.Equal(t, InitSucceeded, st)
}

func TestOptionalDependencyFailureTolerated(t *testing.T) {
	r := NewRegistry()
	rec := newRecorder()
	rec.fail["Opt"] = true
	register(t, r, rec, "Opt", nil)
	register(t, r, rec, "A", func(s *Setup) error {
		return s.OptionalDependsOn("Opt")
	})

	st, err := r.Acquire("A")
	require.NoError(t, err)
	assert.Equal(t, InitSucceeded, st)

	r.Release("A")
	assert.Zero(t, r.RefCount("Opt"))
	assert.Equal(t, []string{"init:Opt", "init:A", "exit:A"}, rec.calls)
}

func TestUnbalancedReleasePanics(t *testing.T) {
	r := NewRegistry()
	rec := newRecorder()
	register(t, r, rec, "A", nil)

	assert.Panics(t, func() { r.Release("A") })
	assert.Panics(t, func() { r.Release("nope") })
}

func TestSetupAllAndOrder(t *testing.T) {
	r := NewRegistry()
	rec := newRecorder()
	register(t, r, rec, "Main", deps("Display", "Sound"))
	register(t, r, rec, "Display", deps("Plugin"))
	register(t, r, rec, "Sound", deps("Plugin"))
	register(t, r, rec, "Plugin", nil)

	require.NoError(t, r.SetupAll())
	assert.Empty(t, rec.calls, "setup initializes nothing")

	order, err := r.Order()
	require.NoError(t, err)
	assert.Equal(t, []ID{"Plugin", "Display", "Sound", "Main"}, order)
}

func TestExitAllReverseInitOrder(t *testing.T) {
	r := NewRegistry()
	rec := newRecorder()
	register(t, r, rec, "C", nil)
	register(t, r, rec, "B", deps("C"))
	register(t, r, rec, "A", deps("B"))

	_, err := r.Acquire("A")
	require.NoError(t, err)
	_, err = r.Acquire("A")
	require.NoError(t, err)

	rec.calls = nil
	r.ExitAll()
	assert.Equal(t, []string{"exit:A", "exit:B", "exit:C"}, rec.calls)
	for _, info := range r.Snapshot() {
		assert.Zero(t, info.RefCount)
		assert.Equal(t, "uninitialized", info.Status)
	}
}

func TestDeepChainIsIterative(t *testing.T) {
	r := NewRegistry()
	const depth = 5000
	for i := 0; i < depth; i++ {
		id := ID(fmt.Sprintf("m%04d", i))
		var setup SetupFunc
		if i > 0 {
			setup = deps(ID(fmt.Sprintf("m%04d", i-1)))
		}
		require.NoError(t, r.RegisterModule(id, "", setup, nil, nil))
	}
	top := ID(fmt.Sprintf("m%04d", depth-1))

	_, err := r.Acquire(top)
	require.NoError(t, err)
	assert.True(t, r.IsInitialized("m0000"))

	r.Release(top)
	assert.False(t, r.IsInitialized("m0000"))
}

func TestInitAllSucceedsWhenAnyModuleDoes(t *testing.T) {
	r := NewRegistry()
	rec := newRecorder()
	rec.fail["B"] = true
	register(t, r, rec, "A", nil)
	register(t, r, rec, "B", nil)
	register(t, r, rec, "C", deps("B"))

	inited, err := r.InitAll()
	require.NoError(t, err)
	assert.Equal(t, []ID{"A"}, inited)
	assert.Equal(t, 0, rec.count("init:C"))
	assert.Equal(t, 1, rec.count("init:A"))

	r.ExitAll()
	assert.Equal(t, 1, rec.count("exit:A"))
	assert.Zero(t, r.RefCount("A"))
	assert.Zero(t, r.RefCount("B"))
}

func TestInitAllFailsWhenNothingInitializes(t *testing.T) {
	r := NewRegistry()
	rec := newRecorder()
	rec.fail["A"] = true
	rec.fail["B"] = true
	register(t, r, rec, "A", nil)
	register(t, r, rec, "B", nil)

	inited, err := r.InitAll()
	assert.Empty(t, inited)
	assert.ErrorIs(t, err, errdefs.ErrInitFailure)
}
