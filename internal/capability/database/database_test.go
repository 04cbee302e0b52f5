package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetforge/sheetforge/internal/kernel"
	"github.com/sheetforge/sheetforge/internal/store"
	"github.com/sheetforge/sheetforge/internal/types"
)

type failingStore struct{}

func (failingStore) FetchEntity(context.Context, string) (*types.Entity, error) {
	return nil, errors.New("connection reset")
}

func (failingStore) Persist(context.Context, string, *types.Entity) error {
	return errors.New("disk full")
}

func (failingStore) Close() error { return nil }

func newTestEngine(t *testing.T) (*Engine, *store.Memory, *kernel.Kernel) {
	t.Helper()
	k := kernel.New(nil)
	m := store.NewMemory()
	return NewEngine(k, m, nil), m, k
}

func TestLoadCreatesEntityFile(t *testing.T) {
	e, m, k := newTestEngine(t)
	ctx := context.Background()

	record := types.NewEntity("tordek", "character", "Tordek")
	require.NoError(t, m.Persist(ctx, "tordek", record))

	require.Equal(t, kernel.OK, e.Load(ctx, "tordek"))
	assert.True(t, k.Exists("/entity/tordek"))
}

func TestLoadOverwritesExistingFile(t *testing.T) {
	e, m, k := newTestEngine(t)
	ctx := context.Background()

	k.Create("/entity/tordek", types.NewEntity("tordek", "character", "Old Name"))

	fresh := types.NewEntity("tordek", "character", "Tordek")
	require.NoError(t, m.Persist(ctx, "tordek", fresh))
	require.Equal(t, kernel.OK, e.Load(ctx, "tordek"))

	fd, _ := k.Open("/entity/tordek", kernel.ModeRead)
	defer k.Close(fd)
	got, errno := k.Read(fd)
	require.Equal(t, kernel.OK, errno)
	assert.Equal(t, "Tordek", got.Name)
	assert.Equal(t, int64(2), got.Metadata.Version, "load through write bumps the version")
}

func TestLoadMissingIsENOENT(t *testing.T) {
	e, _, _ := newTestEngine(t)
	assert.Equal(t, kernel.ENOENT, e.Load(context.Background(), "nobody"))
}

func TestFlushRoundTrips(t *testing.T) {
	e, m, k := newTestEngine(t)
	ctx := context.Background()

	ent := types.NewEntity("lidda", "character", "Lidda")
	ent.SetProp("level", types.Number(2))
	k.Create("/entity/lidda", ent)

	require.Equal(t, kernel.OK, e.Flush(ctx, "lidda"))

	got, err := m.FetchEntity(ctx, "lidda")
	require.NoError(t, err)
	assert.Equal(t, "Lidda", got.Name)
}

func TestFlushAll(t *testing.T) {
	e, _, k := newTestEngine(t)
	k.Create("/entity/a", nil)
	k.Create("/entity/b", nil)

	count, errno := e.FlushAll(context.Background())
	require.Equal(t, kernel.OK, errno)
	assert.Equal(t, 2, count)
}

func TestStoreFailuresWrapAsEIO(t *testing.T) {
	k := kernel.New(nil)
	e := NewEngine(k, failingStore{}, nil)
	k.Create("/entity/x", nil)
	ctx := context.Background()

	assert.Equal(t, kernel.EIO, e.Load(ctx, "x"))
	assert.Equal(t, kernel.EIO, e.Flush(ctx, "x"))
}

type countingStore struct {
	failingStore
	calls int
}

func (s *countingStore) FetchEntity(ctx context.Context, id string) (*types.Entity, error) {
	s.calls++
	return s.failingStore.FetchEntity(ctx, id)
}

func TestBreakerTripsAfterRepeatedFailures(t *testing.T) {
	k := kernel.New(nil)
	cs := &countingStore{}
	e := NewEngine(k, cs, nil)
	ctx := context.Background()

	// drive the breaker past its failure threshold
	for i := 0; i < 10; i++ {
		assert.Equal(t, kernel.EIO, e.Load(ctx, "x"))
	}

	// once open, loads fail fast without reaching the store
	reached := cs.calls
	assert.Equal(t, kernel.EIO, e.Load(ctx, "x"))
	assert.Equal(t, reached, cs.calls, "open breaker must not call the store")
}
