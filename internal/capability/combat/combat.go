// Package combat implements the combat-math capability mounted at
// /dev/combat: armor class, initiative, attack bonus, and saving throws.
// Every derived number routes its modifiers through the bonus engine so
// stacking rules apply uniformly.
package combat

import (
	"context"

	"github.com/sheetforge/sheetforge/internal/capability/ability"
	"github.com/sheetforge/sheetforge/internal/capability/bonus"
	"github.com/sheetforge/sheetforge/internal/kernel"
	"github.com/sheetforge/sheetforge/internal/types"
)

const combatProp = "combat"

// baseArmorClass is the unarmored, unmodified starting AC
const baseArmorClass = 10.0

// ioctl request codes for /dev/combat
const (
	ReqSetBaseAttack uint32 = 1
	ReqSetBaseSave   uint32 = 2
	ReqArmorClass    uint32 = 3
	ReqInitiative    uint32 = 4
	ReqAttack        uint32 = 5
	ReqSave          uint32 = 6
)

// saveAbility maps each saving throw to its keyed ability
var saveAbility = map[string]string{
	"fort": "con",
	"ref":  "dex",
	"will": "wis",
}

// Engine computes combat statistics
type Engine struct {
	kernel  *kernel.Kernel
	ability *ability.Engine
	bonus   *bonus.Engine
}

// NewEngine creates a combat engine with its dependencies injected
func NewEngine(k *kernel.Kernel, a *ability.Engine, b *bonus.Engine) *Engine {
	return &Engine{kernel: k, ability: a, bonus: b}
}

// Initialize seeds zeroed combat baselines
func (e *Engine) Initialize(entityPath string) kernel.Errno {
	return e.mutate(entityPath, func(ent *types.Entity) {
		if _, ok := ent.Prop(combatProp); ok {
			return
		}
		ent.SetProp(combatProp, types.Map(map[string]types.Value{
			"base_attack": types.Number(0),
			"base_save": types.Map(map[string]types.Value{
				"fort": types.Number(0),
				"ref":  types.Number(0),
				"will": types.Number(0),
			}),
		}))
	})
}

// SetBaseAttack stores the base attack bonus
func (e *Engine) SetBaseAttack(entityPath string, value float64) kernel.Errno {
	return e.mutate(entityPath, func(ent *types.Entity) {
		combat := readCombat(ent)
		combat["base_attack"] = types.Number(value)
		ent.SetProp(combatProp, types.Map(combat))
	})
}

// SetBaseSave stores one base saving-throw value
func (e *Engine) SetBaseSave(entityPath, save string, value float64) kernel.Errno {
	if _, ok := saveAbility[save]; !ok {
		return kernel.EINVAL
	}
	return e.mutate(entityPath, func(ent *types.Entity) {
		combat := readCombat(ent)
		savesVal, _ := combat["base_save"].AsMap()
		if savesVal == nil {
			savesVal = make(map[string]types.Value)
		}
		savesVal[save] = types.Number(value)
		combat["base_save"] = types.Map(savesVal)
		ent.SetProp(combatProp, types.Map(combat))
	})
}

// ArmorClass computes 10 + dex modifier + aggregated "ac" bonuses
func (e *Engine) ArmorClass(entityPath string) (float64, kernel.Errno) {
	dexMod, errno := e.ability.Modifier(entityPath, "dex")
	if !errno.Ok() {
		return 0, errno
	}
	return e.bonus.Total(entityPath, "ac", baseArmorClass+dexMod)
}

// Initiative computes dex modifier + aggregated "initiative" bonuses
func (e *Engine) Initiative(entityPath string) (float64, kernel.Errno) {
	dexMod, errno := e.ability.Modifier(entityPath, "dex")
	if !errno.Ok() {
		return 0, errno
	}
	return e.bonus.Total(entityPath, "initiative", dexMod)
}

// Attack computes base attack + str modifier + aggregated "attack" bonuses
func (e *Engine) Attack(entityPath string) (float64, kernel.Errno) {
	strMod, errno := e.ability.Modifier(entityPath, "str")
	if !errno.Ok() {
		return 0, errno
	}
	base, errno := e.baseNumber(entityPath, "base_attack")
	if !errno.Ok() {
		return 0, errno
	}
	return e.bonus.Total(entityPath, "attack", base+strMod)
}

// Save computes one saving throw: base + keyed ability modifier +
// aggregated "save.<kind>" bonuses
func (e *Engine) Save(entityPath, save string) (float64, kernel.Errno) {
	abilityName, ok := saveAbility[save]
	if !ok {
		return 0, kernel.EINVAL
	}
	mod, errno := e.ability.Modifier(entityPath, abilityName)
	if !errno.Ok() {
		return 0, errno
	}

	fd, errno := e.kernel.Open(entityPath, kernel.ModeRead)
	if !errno.Ok() {
		return 0, errno
	}
	defer e.kernel.Close(fd)
	ent, errno := e.kernel.Read(fd)
	if !errno.Ok() {
		return 0, errno
	}

	base := 0.0
	if savesVal, ok := readCombat(ent)["base_save"]; ok {
		if saves, ok := savesVal.AsMap(); ok {
			if v, ok := saves[save]; ok {
				base, _ = v.Num()
			}
		}
	}
	return e.bonus.Total(entityPath, "save."+save, base+mod)
}

func (e *Engine) baseNumber(entityPath, key string) (float64, kernel.Errno) {
	fd, errno := e.kernel.Open(entityPath, kernel.ModeRead)
	if !errno.Ok() {
		return 0, errno
	}
	defer e.kernel.Close(fd)

	ent, errno := e.kernel.Read(fd)
	if !errno.Ok() {
		return 0, errno
	}
	v, ok := readCombat(ent)[key]
	if !ok {
		return 0, kernel.OK
	}
	n, _ := v.Num()
	return n, kernel.OK
}

func (e *Engine) mutate(entityPath string, fn func(*types.Entity)) kernel.Errno {
	fd, errno := e.kernel.Open(entityPath, kernel.ModeReadWrite)
	if !errno.Ok() {
		return errno
	}
	defer e.kernel.Close(fd)

	ent, errno := e.kernel.Read(fd)
	if !errno.Ok() {
		return errno
	}
	fn(ent)
	return e.kernel.Write(fd, ent)
}

func readCombat(ent *types.Entity) map[string]types.Value {
	prop, ok := ent.Prop(combatProp)
	if !ok {
		return make(map[string]types.Value)
	}
	m, ok := prop.AsMap()
	if !ok {
		return make(map[string]types.Value)
	}
	return m
}

// Device exposes the engine at /dev/combat
type Device struct {
	engine *Engine
}

// NewDevice wraps an engine as a mountable capability
func NewDevice(engine *Engine) *Device {
	return &Device{engine: engine}
}

// ID returns the device id
func (d *Device) ID() string { return "combat" }

// Version returns the capability version
func (d *Device) Version() string { return "1.0.0" }

// Ioctl dispatches a combat request
func (d *Device) Ioctl(_ context.Context, code uint32, args map[string]interface{}) (map[string]interface{}, kernel.Errno) {
	path, ok := args["entity_path"].(string)
	if !ok || path == "" {
		return nil, kernel.EINVAL
	}

	switch code {
	case kernel.ReqInitialize:
		if errno := d.engine.Initialize(path); !errno.Ok() {
			return nil, errno
		}
		return map[string]interface{}{"initialized": true}, kernel.OK

	case ReqSetBaseAttack:
		value, okV := args["value"].(float64)
		if !okV {
			return nil, kernel.EINVAL
		}
		if errno := d.engine.SetBaseAttack(path, value); !errno.Ok() {
			return nil, errno
		}
		return nil, kernel.OK

	case ReqSetBaseSave:
		save, okS := args["save"].(string)
		value, okV := args["value"].(float64)
		if !okS || !okV {
			return nil, kernel.EINVAL
		}
		if errno := d.engine.SetBaseSave(path, save, value); !errno.Ok() {
			return nil, errno
		}
		return nil, kernel.OK

	case ReqArmorClass:
		ac, errno := d.engine.ArmorClass(path)
		if !errno.Ok() {
			return nil, errno
		}
		return map[string]interface{}{"armor_class": ac}, kernel.OK

	case ReqInitiative:
		ini, errno := d.engine.Initiative(path)
		if !errno.Ok() {
			return nil, errno
		}
		return map[string]interface{}{"initiative": ini}, kernel.OK

	case ReqAttack:
		atk, errno := d.engine.Attack(path)
		if !errno.Ok() {
			return nil, errno
		}
		return map[string]interface{}{"attack": atk}, kernel.OK

	case ReqSave:
		save, okS := args["save"].(string)
		if !okS {
			return nil, kernel.EINVAL
		}
		total, errno := d.engine.Save(path, save)
		if !errno.Ok() {
			return nil, errno
		}
		return map[string]interface{}{"save": total}, kernel.OK

	default:
		return nil, kernel.EINVAL
	}
}
