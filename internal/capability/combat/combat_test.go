package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetforge/sheetforge/internal/capability/ability"
	"github.com/sheetforge/sheetforge/internal/capability/bonus"
	"github.com/sheetforge/sheetforge/internal/kernel"
	"github.com/sheetforge/sheetforge/internal/types"
)

const entityPath = "/entity/regdar"

func newTestEngine(t *testing.T) (*Engine, *bonus.Engine, *ability.Engine) {
	t.Helper()
	k := kernel.New(nil)
	require.Equal(t, kernel.OK, k.Create(entityPath, types.NewEntity("regdar", "character", "Regdar")))
	b := bonus.NewEngine(k, nil, nil)
	a := ability.NewEngine(k, b)
	e := NewEngine(k, a, b)
	require.Equal(t, kernel.OK, a.Initialize(entityPath))
	require.Equal(t, kernel.OK, e.Initialize(entityPath))
	return e, b, a
}

func TestArmorClassChain(t *testing.T) {
	e, b, a := newTestEngine(t)

	require.Equal(t, kernel.OK, a.SetScore(entityPath, "dex", 14))
	b.AddBonus(entityPath, "ac", 4, "armor", "chain-shirt")
	b.AddBonus(entityPath, "ac", 2, "shield", "heavy-shield")
	b.AddBonus(entityPath, "ac", 1, "dodge", "feat")

	// 10 + 2 dex + 4 armor + 2 shield + 1 dodge
	ac, errno := e.ArmorClass(entityPath)
	require.Equal(t, kernel.OK, errno)
	assert.Equal(t, 19.0, ac)
}

func TestArmorClassNonStacking(t *testing.T) {
	e, b, _ := newTestEngine(t)

	b.AddBonus(entityPath, "ac", 4, "armor", "chain-shirt")
	b.AddBonus(entityPath, "ac", 2, "armor", "leather")

	ac, errno := e.ArmorClass(entityPath)
	require.Equal(t, kernel.OK, errno)
	assert.Equal(t, 14.0, ac, "two suits of armor keep only the better one")
}

func TestInitiative(t *testing.T) {
	e, b, a := newTestEngine(t)

	require.Equal(t, kernel.OK, a.SetScore(entityPath, "dex", 16))
	b.AddBonus(entityPath, "initiative", 4, "", "improved-initiative")

	ini, errno := e.Initiative(entityPath)
	require.Equal(t, kernel.OK, errno)
	assert.Equal(t, 7.0, ini)
}

func TestAttack(t *testing.T) {
	e, b, a := newTestEngine(t)

	require.Equal(t, kernel.OK, a.SetScore(entityPath, "str", 16))
	require.Equal(t, kernel.OK, e.SetBaseAttack(entityPath, 4))
	b.AddBonus(entityPath, "attack", 1, "enhancement", "magic-sword")
	b.AddBonus(entityPath, "attack", -2, "", "power-attack")

	// 4 bab + 3 str + 1 enhancement - 2 untyped
	atk, errno := e.Attack(entityPath)
	require.Equal(t, kernel.OK, errno)
	assert.Equal(t, 6.0, atk)
}

func TestSaves(t *testing.T) {
	e, b, a := newTestEngine(t)

	require.Equal(t, kernel.OK, a.SetScore(entityPath, "con", 14))
	require.Equal(t, kernel.OK, e.SetBaseSave(entityPath, "fort", 4))
	b.AddBonus(entityPath, "save.fort", 1, "resistance", "cloak")

	fort, errno := e.Save(entityPath, "fort")
	require.Equal(t, kernel.OK, errno)
	assert.Equal(t, 7.0, fort)

	if _, errno := e.Save(entityPath, "luck"); errno != kernel.EINVAL {
		t.Errorf("unknown save = %v, want EINVAL", errno)
	}
}
