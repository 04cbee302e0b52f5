// Package skill implements the skill capability mounted at /dev/skill.
//
// A skill check total is ranks + the keyed ability modifier + a class
// bonus when trained + whatever the bonus engine aggregates for
// "skill.<id>". Skill definitions (which ability keys each skill) come
// from the rules tables loaded at startup.
package skill

import (
	"context"

	"github.com/sheetforge/sheetforge/internal/capability/ability"
	"github.com/sheetforge/sheetforge/internal/capability/bonus"
	"github.com/sheetforge/sheetforge/internal/kernel"
	"github.com/sheetforge/sheetforge/internal/types"
)

const skillsProp = "skills"

// classSkillBonus is granted when a class skill has at least one rank
const classSkillBonus = 3.0

// ioctl request codes for /dev/skill
const (
	ReqSetRanks uint32 = 1
	ReqCheck    uint32 = 2
	ReqList     uint32 = 3
)

// Definition describes one skill in the active ruleset
type Definition struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Ability string `json:"ability" yaml:"ability"`
}

// DefaultDefinitions returns a minimal core skill table used when no
// ruleset file is loaded
func DefaultDefinitions() map[string]Definition {
	defs := []Definition{
		{ID: "acrobatics", Name: "Acrobatics", Ability: "dex"},
		{ID: "climb", Name: "Climb", Ability: "str"},
		{ID: "diplomacy", Name: "Diplomacy", Ability: "cha"},
		{ID: "perception", Name: "Perception", Ability: "wis"},
		{ID: "spellcraft", Name: "Spellcraft", Ability: "int"},
		{ID: "stealth", Name: "Stealth", Ability: "dex"},
		{ID: "swim", Name: "Swim", Ability: "str"},
	}
	m := make(map[string]Definition, len(defs))
	for _, d := range defs {
		m[d.ID] = d
	}
	return m
}

// Engine computes skill totals. Ability and bonus dependencies are
// injected at construction, resolved once at bootstrap.
type Engine struct {
	kernel  *kernel.Kernel
	ability *ability.Engine
	bonus   *bonus.Engine
	defs    map[string]Definition
}

// NewEngine creates a skill engine
func NewEngine(k *kernel.Kernel, a *ability.Engine, b *bonus.Engine, defs map[string]Definition) *Engine {
	if defs == nil {
		defs = DefaultDefinitions()
	}
	return &Engine{kernel: k, ability: a, bonus: b, defs: defs}
}

// Definitions returns the active skill table
func (e *Engine) Definitions() map[string]Definition { return e.defs }

// Initialize seeds an empty skill map on the entity
func (e *Engine) Initialize(entityPath string) kernel.Errno {
	return e.mutate(entityPath, func(ent *types.Entity) {
		if _, ok := ent.Prop(skillsProp); !ok {
			ent.SetProp(skillsProp, types.Map(nil))
		}
	})
}

// SetRanks stores ranks and the class-skill flag for a skill
func (e *Engine) SetRanks(entityPath, skillID string, ranks float64, classSkill bool) kernel.Errno {
	if _, ok := e.defs[skillID]; !ok {
		return kernel.EINVAL
	}
	return e.mutate(entityPath, func(ent *types.Entity) {
		skills := readSkills(ent)
		skills[skillID] = types.Map(map[string]types.Value{
			"ranks": types.Number(ranks),
			"class": types.Bool(classSkill),
		})
		ent.SetProp(skillsProp, types.Map(skills))
	})
}

// Ranks returns the stored ranks and class-skill flag
func (e *Engine) Ranks(entityPath, skillID string) (float64, bool, kernel.Errno) {
	if _, ok := e.defs[skillID]; !ok {
		return 0, false, kernel.EINVAL
	}
	fd, errno := e.kernel.Open(entityPath, kernel.ModeRead)
	if !errno.Ok() {
		return 0, false, errno
	}
	defer e.kernel.Close(fd)

	ent, errno := e.kernel.Read(fd)
	if !errno.Ok() {
		return 0, false, errno
	}
	entry, ok := readSkills(ent)[skillID]
	if !ok {
		return 0, false, kernel.OK
	}
	ranksVal, _ := entry.Get("ranks")
	ranks, _ := ranksVal.Num()
	classVal, _ := entry.Get("class")
	class, _ := classVal.Boolean()
	return ranks, class, kernel.OK
}

// Check computes the full skill total
func (e *Engine) Check(entityPath, skillID string) (float64, kernel.Errno) {
	def, ok := e.defs[skillID]
	if !ok {
		return 0, kernel.EINVAL
	}
	ranks, classSkill, errno := e.Ranks(entityPath, skillID)
	if !errno.Ok() {
		return 0, errno
	}
	mod, errno := e.ability.Modifier(entityPath, def.Ability)
	if !errno.Ok() {
		return 0, errno
	}
	base := ranks + mod
	if classSkill && ranks > 0 {
		base += classSkillBonus
	}
	return e.bonus.Total(entityPath, "skill."+skillID, base)
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

func readSkills(ent *types.Entity) map[string]types.Value {
	prop, ok := ent.Prop(skillsProp)
	if !ok {
		return make(map[string]types.Value)
	}
	m, ok := prop.AsMap()
	if !ok {
		return make(map[string]types.Value)
	}
	return m
}

// Device exposes the engine at /dev/skill
type Device struct {
	engine *Engine
}

// NewDevice wraps an engine as a mountable capability
func NewDevice(engine *Engine) *Device {
	return &Device{engine: engine}
}

// ID returns the device id
func (d *Device) ID() string { return "skill" }

// Version returns the capability version
func (d *Device) Version() string { return "1.1.0" }

// Ioctl dispatches a skill request
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

	case ReqSetRanks:
		skillID, okID := args["skill"].(string)
		ranks, okR := args["ranks"].(float64)
		if !okID || !okR {
			return nil, kernel.EINVAL
		}
		classSkill, _ := args["class"].(bool)
		if errno := d.engine.SetRanks(path, skillID, ranks, classSkill); !errno.Ok() {
			return nil, errno
		}
		return nil, kernel.OK

	case ReqCheck:
		skillID, okID := args["skill"].(string)
		if !okID {
			return nil, kernel.EINVAL
		}
		total, errno := d.engine.Check(path, skillID)
		if !errno.Ok() {
			return nil, errno
		}
		return map[string]interface{}{"total": total}, kernel.OK

	case ReqList:
		totals := make(map[string]interface{}, len(d.engine.defs))
		for id := range d.engine.defs {
			total, errno := d.engine.Check(path, id)
			if !errno.Ok() {
				return nil, errno
			}
			totals[id] = total
		}
		return map[string]interface{}{"skills": totals}, kernel.OK

	default:
		return nil, kernel.EINVAL
	}
}
