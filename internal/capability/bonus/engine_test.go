package bonus

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetforge/sheetforge/internal/kernel"
	"github.com/sheetforge/sheetforge/internal/types"
)

const entityPath = "/entity/tordek"

func newTestEngine(t *testing.T) (*Engine, *kernel.Kernel) {
	t.Helper()
	k := kernel.New(nil)
	require.Equal(t, kernel.OK, k.Create(entityPath, types.NewEntity("tordek", "character", "Tordek")))
	return NewEngine(k, nil, nil), k
}

func TestNonStackingKeepsMax(t *testing.T) {
	e, _ := newTestEngine(t)

	require.Equal(t, kernel.OK, e.AddBonus(entityPath, "ac", 2, "armor", "leather"))
	require.Equal(t, kernel.OK, e.AddBonus(entityPath, "ac", 1, "armor", "buckler"))

	total, errno := e.Total(entityPath, "ac", 0)
	require.Equal(t, kernel.OK, errno)
	assert.Equal(t, 2.0, total)
}

func TestStackingTypeSums(t *testing.T) {
	e, _ := newTestEngine(t)

	require.Equal(t, kernel.OK, e.AddBonus(entityPath, "ac", 1, "dodge", "feat"))
	require.Equal(t, kernel.OK, e.AddBonus(entityPath, "ac", 1, "dodge", "spell"))

	total, errno := e.Total(entityPath, "ac", 0)
	require.Equal(t, kernel.OK, errno)
	assert.Equal(t, 2.0, total)
}

func TestMixedTypesCombine(t *testing.T) {
	e, _ := newTestEngine(t)

	e.AddBonus(entityPath, "ac", 4, "armor", "chain-shirt")
	e.AddBonus(entityPath, "ac", 2, "armor", "leather")
	e.AddBonus(entityPath, "ac", 1, "dodge", "feat")
	e.AddBonus(entityPath, "ac", 1, "dodge", "haste")
	e.AddBonus(entityPath, "ac", 1, "deflection", "ring")
	e.AddBonus(entityPath, "ac", -2, "", "prone")

	// 4 (armor max) + 2 (dodge sum) + 1 (deflection) - 2 (untyped)
	total, errno := e.Total(entityPath, "ac", 0)
	require.Equal(t, kernel.OK, errno)
	assert.Equal(t, 5.0, total)
}

func TestSameTripleReplaces(t *testing.T) {
	e, _ := newTestEngine(t)

	e.AddBonus(entityPath, "ac", 1, "enhancement", "magic-armor")
	e.AddBonus(entityPath, "ac", 3, "enhancement", "magic-armor")

	b, errno := e.Breakdown(entityPath, "ac", 0)
	require.Equal(t, kernel.OK, errno)
	assert.Equal(t, 3.0, b.Total)
	assert.Len(t, b.Components, 1, "same (target,type,source) must replace, not duplicate")
}

func TestRemoveBonusDropsAllTypesForSource(t *testing.T) {
	e, _ := newTestEngine(t)

	e.AddBonus(entityPath, "ac", 2, "armor", "leather")
	require.Equal(t, kernel.OK, e.RemoveBonus(entityPath, "ac", "leather"))

	total, errno := e.Total(entityPath, "ac", 0)
	require.Equal(t, kernel.OK, errno)
	assert.Equal(t, 0.0, total)

	// removing again is a no-op, not an error
	assert.Equal(t, kernel.OK, e.RemoveBonus(entityPath, "ac", "leather"))
}

func TestRemoveSourceClearsEveryTarget(t *testing.T) {
	e, _ := newTestEngine(t)

	e.AddBonus(entityPath, "attack", -2, "", "condition:shaken")
	e.AddBonus(entityPath, "save.will", -2, "", "condition:shaken")
	e.AddBonus(entityPath, "ac", 2, "armor", "leather")

	require.Equal(t, kernel.OK, e.RemoveSource(entityPath, "condition:shaken"))

	attack, _ := e.Total(entityPath, "attack", 0)
	assert.Equal(t, 0.0, attack)
	will, _ := e.Total(entityPath, "save.will", 0)
	assert.Equal(t, 0.0, will)
	ac, _ := e.Total(entityPath, "ac", 0)
	assert.Equal(t, 2.0, ac, "unrelated sources must survive")
}

func TestOrderIndependence(t *testing.T) {
	components := []Component{
		{Value: 4, Type: "armor", Source: "chain-shirt"},
		{Value: 2, Type: "armor", Source: "leather"},
		{Value: 1, Type: "dodge", Source: "feat"},
		{Value: 2, Type: "dodge", Source: "haste"},
		{Value: 3, Type: "enhancement", Source: "magic-weapon"},
		{Value: -1, Type: "", Source: "fatigue"},
	}

	rng := rand.New(rand.NewSource(7))
	reference := -1.0
	for trial := 0; trial < 10; trial++ {
		shuffled := make([]Component, len(components))
		copy(shuffled, components)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		e, _ := newTestEngine(t)
		for _, c := range shuffled {
			require.Equal(t, kernel.OK, e.AddBonus(entityPath, "ac", c.Value, c.Type, c.Source))
		}
		total, errno := e.Total(entityPath, "ac", 0)
		require.Equal(t, kernel.OK, errno)

		if reference < 0 {
			reference = total
		}
		assert.Equal(t, reference, total, "total must not depend on insertion order")
	}
}

func TestEqualValueTieBreakIsLexicographic(t *testing.T) {
	for _, order := range [][2]string{{"amulet", "ring"}, {"ring", "amulet"}} {
		e, _ := newTestEngine(t)
		e.AddBonus(entityPath, "ac", 2, "deflection", order[0])
		e.AddBonus(entityPath, "ac", 2, "deflection", order[1])

		b, errno := e.Breakdown(entityPath, "ac", 0)
		require.Equal(t, kernel.OK, errno)
		assert.Equal(t, 2.0, b.Total)

		for _, c := range b.Components {
			if c.Source == "amulet" {
				assert.True(t, c.Applied, "lexicographically smaller source wins ties")
			}
			if c.Source == "ring" {
				assert.False(t, c.Applied)
				assert.Equal(t, "amulet", c.SuppressedBy)
			}
		}
	}
}

func TestBreakdownAnnotations(t *testing.T) {
	e, _ := newTestEngine(t)

	e.AddBonus(entityPath, "ac", 4, "armor", "chain-shirt")
	e.AddBonus(entityPath, "ac", 2, "armor", "leather")
	e.AddBonus(entityPath, "ac", 1, "dodge", "feat")

	b, errno := e.Breakdown(entityPath, "ac", 10)
	require.Equal(t, kernel.OK, errno)

	assert.Equal(t, 15.0, b.Total)
	assert.Equal(t, 10.0, b.Base)
	require.Len(t, b.Components, 3)

	bySource := make(map[string]Annotated)
	for _, c := range b.Components {
		bySource[c.Source] = c
	}
	assert.True(t, bySource["chain-shirt"].Applied)
	assert.False(t, bySource["leather"].Applied)
	assert.Equal(t, "chain-shirt", bySource["leather"].SuppressedBy)
	assert.True(t, bySource["feat"].Applied)
}

func TestHasBonus(t *testing.T) {
	e, _ := newTestEngine(t)
	e.AddBonus(entityPath, "ac", 2, "armor", "leather")

	found, errno := e.HasBonus(entityPath, "ac", "leather")
	require.Equal(t, kernel.OK, errno)
	assert.True(t, found)

	found, errno = e.HasBonus(entityPath, "ac", "buckler")
	require.Equal(t, kernel.OK, errno)
	assert.False(t, found)
}

func TestMissingEntityPropagatesENOENT(t *testing.T) {
	e, _ := newTestEngine(t)

	errno := e.AddBonus("/entity/nobody", "ac", 1, "armor", "leather")
	assert.Equal(t, kernel.ENOENT, errno)

	_, errno = e.Total("/entity/nobody", "ac", 0)
	assert.Equal(t, kernel.ENOENT, errno)
}

func TestComponentsPersistOnEntity(t *testing.T) {
	e, k := newTestEngine(t)
	e.AddBonus(entityPath, "ac", 2, "armor", "leather")

	fd, errno := k.Open(entityPath, kernel.ModeRead)
	require.Equal(t, kernel.OK, errno)
	defer k.Close(fd)

	ent, errno := k.Read(fd)
	require.Equal(t, kernel.OK, errno)

	bonuses, ok := ent.Prop("bonuses")
	require.True(t, ok, "components must live in entity properties")
	acList, ok := bonuses.Get("ac")
	require.True(t, ok)
	items, _ := acList.AsList()
	assert.Len(t, items, 1)
}

func TestDeviceIoctl(t *testing.T) {
	e, k := newTestEngine(t)
	device := NewDevice(e)
	require.Equal(t, kernel.OK, k.Mount(device))

	fd, errno := k.Open("/dev/bonus", kernel.ModeReadWrite)
	require.Equal(t, kernel.OK, errno)
	defer k.Close(fd)

	ctx := context.Background()

	_, errno = k.Ioctl(ctx, fd, kernel.ReqInitialize, map[string]interface{}{"entity_path": entityPath})
	require.Equal(t, kernel.OK, errno)

	_, errno = k.Ioctl(ctx, fd, ReqAddBonus, map[string]interface{}{
		"entity_path": entityPath,
		"target":      "ac",
		"value":       2.0,
		"type":        "armor",
		"source":      "leather",
	})
	require.Equal(t, kernel.OK, errno)

	reply, errno := k.Ioctl(ctx, fd, ReqTotal, map[string]interface{}{
		"entity_path": entityPath,
		"target":      "ac",
	})
	require.Equal(t, kernel.OK, errno)
	assert.Equal(t, 2.0, reply["total"])

	_, errno = k.Ioctl(ctx, fd, ReqAddBonus, map[string]interface{}{"target": "ac"})
	assert.Equal(t, kernel.EINVAL, errno, "missing args are EINVAL")

	_, errno = k.Ioctl(ctx, fd, 99, nil)
	assert.Equal(t, kernel.EINVAL, errno, "unknown request code is EINVAL")
}
