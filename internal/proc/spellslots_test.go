package proc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetforge/sheetforge/internal/kernel"
	"github.com/sheetforge/sheetforge/internal/types"
)

func TestSpellSlotViewTracksLiveState(t *testing.T) {
	k := kernel.New(nil)

	caster := types.NewEntity("mialee", "character", "Mialee")
	caster.SetProp("spell_slots", types.Map(map[string]types.Value{
		"1": types.Map(map[string]types.Value{"max": types.Number(3), "used": types.Number(1)}),
		"2": types.Map(map[string]types.Value{"max": types.Number(2), "used": types.Number(0)}),
	}))
	require.Equal(t, kernel.OK, k.Create("/entity/mialee", caster))
	require.Equal(t, kernel.OK, RegisterSpellSlots(k, "mialee"))

	readRemaining := func(level string) float64 {
		fd, errno := k.Open("/proc/spellslots/mialee", kernel.ModeRead)
		require.Equal(t, kernel.OK, errno)
		defer k.Close(fd)

		report, errno := k.Read(fd)
		require.Equal(t, kernel.OK, errno)
		levels, _ := report.Prop("levels")
		entry, _ := levels.Get(level)
		remaining, _ := entry.Get("remaining")
		n, _ := remaining.Num()
		return n
	}

	assert.Equal(t, 2.0, readRemaining("1"))
	assert.Equal(t, 2.0, readRemaining("2"))

	// burn a slot through a normal entity write; the view must follow
	fd, _ := k.Open("/entity/mialee", kernel.ModeReadWrite)
	ent, _ := k.Read(fd)
	slots, _ := ent.Prop("spell_slots")
	slotMap, _ := slots.AsMap()
	slotMap["1"] = types.Map(map[string]types.Value{"max": types.Number(3), "used": types.Number(3)})
	ent.SetProp("spell_slots", types.Map(slotMap))
	require.Equal(t, kernel.OK, k.Write(fd, ent))
	k.Close(fd)

	assert.Equal(t, 0.0, readRemaining("1"))
}

func TestSpellSlotViewIsReadOnly(t *testing.T) {
	k := kernel.New(nil)
	require.Equal(t, kernel.OK, k.Create("/entity/mialee", nil))
	require.Equal(t, kernel.OK, RegisterSpellSlots(k, "mialee"))

	_, errno := k.Open("/proc/spellslots/mialee", kernel.ModeReadWrite)
	assert.Equal(t, kernel.EACCES, errno)
}
