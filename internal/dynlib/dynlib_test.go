package dynlib

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidates(t *testing.T) {
	r := Resolver{Dir: "plugins", Ext: ".so"}
	assert.Equal(t, []string{filepath.Join("plugins", "display.so")}, r.Candidates("display"))

	r.Debug = true
	assert.Equal(t, []string{
		filepath.Join("plugins", "displayd.so"),
		filepath.Join("plugins", "display.so"),
	}, r.Candidates("display"))

	r.DebugSuffix = "_debug"
	assert.Equal(t, filepath.Join("plugins", "display_debug.so"), r.Candidates("display")[0])

	assert.Equal(t, []string{filepath.Join("plugins", "custom.bin")}, r.Candidates("custom.bin"))

	abs := filepath.Join(string(filepath.Separator), "opt", "game")
	assert.Equal(t, abs+"d.so", Resolver{Dir: "plugins", Debug: true, Ext: ".so"}.Candidates(abs)[0])
}

func TestOpenPrefersDebugBuild(t *testing.T) {
	l := NewStaticLoader()
	l.Add("displayd.so", map[string]any{"Sym": 1})
	l.Add("display.so", map[string]any{"Sym": 2})

	h, path, err := Open(l, Resolver{Debug: true, Ext: ".so"}, "display")
	require.NoError(t, err)
	assert.Equal(t, "displayd.so", path)
	sym, ok := l.Resolve(h, "Sym")
	require.True(t, ok)
	assert.Equal(t, 1, sym)

	h, path, err = Open(l, Resolver{Ext: ".so"}, "display")
	require.NoError(t, err)
	assert.Equal(t, "display.so", path)
	assert.Equal(t, "display.so", h.Path())
}

func TestOpenFallsBackToReleaseBuild(t *testing.T) {
	l := NewStaticLoader()
	l.Add("sound.so", nil)

	_, path, err := Open(l, Resolver{Debug: true, Ext: ".so"}, "sound")
	require.NoError(t, err)
	assert.Equal(t, "sound.so", path)
}

func TestOpenMissing(t *testing.T) {
	l := NewStaticLoader()
	_, _, err := Open(l, Resolver{Debug: true, Ext: ".so"}, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = Open(l, Resolver{}, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStaticLoaderClose(t *testing.T) {
	l := NewStaticLoader()
	l.Add("a.so", map[string]any{"X": "x"})

	h, err := l.Open("a.so")
	require.NoError(t, err)
	assert.Equal(t, 1, l.OpenHandles())

	_, ok := l.Resolve(h, "Y")
	assert.False(t, ok)

	require.NoError(t, l.Close(h))
	assert.Zero(t, l.OpenHandles())
	assert.Error(t, l.Close(h))

	_, ok = l.Resolve(h, "X")
	assert.False(t, ok, "closed handles resolve nothing")
}

func TestPluginLoaderMissingFile(t *testing.T) {
	_, err := PluginLoader{}.Open(filepath.Join(t.TempDir(), "missing.so"))
	assert.Error(t, err)
}
