// Package proc publishes read-mostly computed views under /proc. Views
// are generated on each read from live entity state; writing to them is
// refused by the kernel.
package proc

import (
	"github.com/sheetforge/sheetforge/internal/kernel"
	"github.com/sheetforge/sheetforge/internal/types"
)

const spellSlotsProp = "spell_slots"

// RegisterSpellSlots installs /proc/spellslots/<id>: a report of remaining
// spell slots per level, recomputed from the entity on every read.
func RegisterSpellSlots(k *kernel.Kernel, entityID string) kernel.Errno {
	entityPath := "/entity/" + entityID
	return k.RegisterProc("/proc/spellslots/"+entityID, func() (*types.Entity, kernel.Errno) {
		fd, errno := k.Open(entityPath, kernel.ModeRead)
		if !errno.Ok() {
			return nil, errno
		}
		defer k.Close(fd)

		ent, errno := k.Read(fd)
		if !errno.Ok() {
			return nil, errno
		}
		return buildReport(ent), kernel.OK
	})
}

// buildReport derives remaining = max - used per spell level
func buildReport(ent *types.Entity) *types.Entity {
	report := types.NewEntity(ent.ID+"-spellslots", "spellslot-report", ent.Name)

	levels := make(map[string]types.Value)
	if prop, ok := ent.Prop(spellSlotsProp); ok {
		if slots, ok := prop.AsMap(); ok {
			for level, entry := range slots {
				maxVal, _ := entry.Get("max")
				usedVal, _ := entry.Get("used")
				max, _ := maxVal.Num()
				used, _ := usedVal.Num()
				remaining := max - used
				if remaining < 0 {
					remaining = 0
				}
				levels[level] = types.Map(map[string]types.Value{
					"max":       types.Number(max),
					"used":      types.Number(used),
					"remaining": types.Number(remaining),
				})
			}
		}
	}
	report.SetProp("levels", types.Map(levels))
	return report
}
