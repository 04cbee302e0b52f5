package snapshot

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetforge/sheetforge/internal/infrastructure/logging"
	"github.com/sheetforge/sheetforge/internal/kernel"
	"github.com/sheetforge/sheetforge/internal/types"
)

func newKernel(t *testing.T) *kernel.Kernel {
	t.Helper()
	return kernel.New(logging.NewNop())
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newKernel(t)

	hero := types.NewEntity("hero-1", "character", "Valeria")
	hero.SetProp("level", types.Number(7))
	require.Equal(t, kernel.OK, src.Create("/entity/hero-1", hero))

	orc := types.NewEntity("orc-3", "monster", "Orc Raider")
	orc.SetProp("hp", types.Number(11))
	require.Equal(t, kernel.OK, src.Create("/entity/orc-3", orc))

	var buf bytes.Buffer
	n, err := Export(src, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dst := newKernel(t)
	restored, err := Import(dst, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, restored)

	fd, errno := dst.Open("/entity/hero-1", kernel.ModeRead)
	require.Equal(t, kernel.OK, errno)
	ent, errno := dst.Read(fd)
	require.Equal(t, kernel.OK, errno)
	dst.Close(fd)

	assert.Equal(t, "Valeria", ent.Name)
	level, ok := ent.Prop("level")
	require.True(t, ok)
	lvl, _ := level.Num()
	assert.Equal(t, float64(7), lvl)
}

func TestImportSkipsExisting(t *testing.T) {
	src := newKernel(t)
	require.Equal(t, kernel.OK, src.Create("/entity/hero-1", types.NewEntity("hero-1", "character", "Original")))

	var buf bytes.Buffer
	_, err := Export(src, &buf)
	require.NoError(t, err)

	dst := newKernel(t)
	require.Equal(t, kernel.OK, dst.Create("/entity/hero-1", types.NewEntity("hero-1", "character", "Local")))

	restored, err := Import(dst, &buf)
	require.NoError(t, err)
	assert.Equal(t, 0, restored)

	fd, errno := dst.Open("/entity/hero-1", kernel.ModeRead)
	require.Equal(t, kernel.OK, errno)
	ent, _ := dst.Read(fd)
	dst.Close(fd)
	assert.Equal(t, "Local", ent.Name, "import must not clobber live entities")
}

func TestImportRejectsGarbage(t *testing.T) {
	dst := newKernel(t)
	_, err := Import(dst, bytes.NewReader([]byte("not a gzip stream")))
	assert.Error(t, err)
}

func TestExportEmptyNamespace(t *testing.T) {
	src := newKernel(t)
	var buf bytes.Buffer
	n, err := Export(src, &buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	dst := newKernel(t)
	restored, err := Import(dst, &buf)
	require.NoError(t, err)
	assert.Equal(t, 0, restored)
}
