package skill

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetforge/sheetforge/internal/capability/ability"
	"github.com/sheetforge/sheetforge/internal/capability/bonus"
	"github.com/sheetforge/sheetforge/internal/kernel"
	"github.com/sheetforge/sheetforge/internal/types"
)

const entityPath = "/entity/lidda"

func newTestEngine(t *testing.T) (*Engine, *bonus.Engine, *ability.Engine, *kernel.Kernel) {
	t.Helper()
	k := kernel.New(nil)
	require.Equal(t, kernel.OK, k.Create(entityPath, types.NewEntity("lidda", "character", "Lidda")))
	b := bonus.NewEngine(k, nil, nil)
	a := ability.NewEngine(k, b)
	e := NewEngine(k, a, b, nil)
	require.Equal(t, kernel.OK, a.Initialize(entityPath))
	require.Equal(t, kernel.OK, e.Initialize(entityPath))
	return e, b, a, k
}

func TestCheckCombinesRanksAbilityAndBonuses(t *testing.T) {
	e, b, a, _ := newTestEngine(t)

	require.Equal(t, kernel.OK, a.SetScore(entityPath, "dex", 16))
	require.Equal(t, kernel.OK, e.SetRanks(entityPath, "stealth", 5, true))
	require.Equal(t, kernel.OK, b.AddBonus(entityPath, "skill.stealth", 2, "circumstance", "darkness"))

	// 5 ranks + 3 dex mod + 3 class skill + 2 circumstance
	total, errno := e.Check(entityPath, "stealth")
	require.Equal(t, kernel.OK, errno)
	assert.Equal(t, 13.0, total)
}

func TestUntrainedSkillUsesAbilityOnly(t *testing.T) {
	e, _, a, _ := newTestEngine(t)
	require.Equal(t, kernel.OK, a.SetScore(entityPath, "str", 14))

	total, errno := e.Check(entityPath, "climb")
	require.Equal(t, kernel.OK, errno)
	assert.Equal(t, 2.0, total, "no ranks means no class bonus")
}

func TestUnknownSkillIsEINVAL(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	if errno := e.SetRanks(entityPath, "basketweaving", 1, false); errno != kernel.EINVAL {
		t.Errorf("SetRanks unknown skill = %v, want EINVAL", errno)
	}
	if _, errno := e.Check(entityPath, "basketweaving"); errno != kernel.EINVAL {
		t.Errorf("Check unknown skill = %v, want EINVAL", errno)
	}
}

func TestDeviceIoctl(t *testing.T) {
	e, _, a, k := newTestEngine(t)
	require.Equal(t, kernel.OK, a.SetScore(entityPath, "dex", 14))
	require.Equal(t, kernel.OK, k.Mount(NewDevice(e)))

	fd, errno := k.Open("/dev/skill", kernel.ModeReadWrite)
	require.Equal(t, kernel.OK, errno)
	defer k.Close(fd)

	ctx := context.Background()
	_, errno = k.Ioctl(ctx, fd, ReqSetRanks, map[string]interface{}{
		"entity_path": entityPath,
		"skill":       "acrobatics",
		"ranks":       3.0,
		"class":       false,
	})
	require.Equal(t, kernel.OK, errno)

	reply, errno := k.Ioctl(ctx, fd, ReqCheck, map[string]interface{}{
		"entity_path": entityPath,
		"skill":       "acrobatics",
	})
	require.Equal(t, kernel.OK, errno)
	assert.Equal(t, 5.0, reply["total"])

	reply, errno = k.Ioctl(ctx, fd, ReqList, map[string]interface{}{"entity_path": entityPath})
	require.Equal(t, kernel.OK, errno)
	skills := reply["skills"].(map[string]interface{})
	assert.Len(t, skills, len(DefaultDefinitions()))
}
