package osfile

import (
	"io/fs"
	"testing"

	"github.com/enginecore/enginecore/internal/binder"
	"github.com/enginecore/enginecore/internal/service"
	"github.com/enginecore/enginecore/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindFile(t *testing.T, root string) services.File {
	t.Helper()
	reg := service.NewRegistry()
	tbl, err := reg.Declare(services.FileSchema)
	require.NoError(t, err)
	_, err = binder.New(reg).BindEntry(services.FileID, Name, EntryAt(root))
	require.NoError(t, err)
	return services.NewFile(tbl)
}

func TestReadWriteRemove(t *testing.T) {
	file := bindFile(t, t.TempDir())
	assert.Equal(t, service.Success, file.Init())

	assert.False(t, file.Exists("save/slot1.dat"))
	require.NoError(t, file.Write("save/slot1.dat", []byte("level=3")))
	assert.True(t, file.Exists("save/slot1.dat"))

	data, err := file.Read("save/slot1.dat")
	require.NoError(t, err)
	assert.Equal(t, "level=3", string(data))

	require.NoError(t, file.Remove("save/slot1.dat"))
	require.NoError(t, file.Remove("save/slot1.dat"))
	assert.False(t, file.Exists("save/slot1.dat"))
}

func TestRejectsEscapes(t *testing.T) {
	file := bindFile(t, t.TempDir())
	_, err := file.Read("../outside")
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.False(t, file.Exists("../../etc/passwd"))
}

func TestInitFailsOnMissingRoot(t *testing.T) {
	file := bindFile(t, t.TempDir()+"/missing")
	assert.Equal(t, service.Failure, file.Init())
}

func TestCatalogued(t *testing.T) {
	assert.Contains(t, binder.EmbeddedNames(), Name)
}
