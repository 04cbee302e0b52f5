// Package condition implements the status-condition capability mounted at
// /dev/condition. Applying a condition installs its penalty components in
// the bonus engine under a "condition:<id>" source; removing it strips
// every component with that source in one pass.
package condition

import (
	"context"

	"github.com/sheetforge/sheetforge/internal/capability/bonus"
	"github.com/sheetforge/sheetforge/internal/kernel"
	"github.com/sheetforge/sheetforge/internal/types"
)

const conditionsProp = "conditions"

// ioctl request codes for /dev/condition
const (
	ReqApply  uint32 = 1
	ReqRemove uint32 = 2
	ReqActive uint32 = 3
)

// Effect is one modifier a condition imposes
type Effect struct {
	Target string  `json:"target" yaml:"target"`
	Value  float64 `json:"value" yaml:"value"`
	Type   string  `json:"type" yaml:"type"`
}

// Definition describes one condition in the active ruleset
type Definition struct {
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Effects []Effect `json:"effects" yaml:"effects"`
}

// DefaultDefinitions returns the core condition table
func DefaultDefinitions() map[string]Definition {
	defs := []Definition{
		{
			ID: "shaken", Name: "Shaken",
			Effects: []Effect{
				{Target: "attack", Value: -2},
				{Target: "save.fort", Value: -2},
				{Target: "save.ref", Value: -2},
				{Target: "save.will", Value: -2},
			},
		},
		{
			ID: "fatigued", Name: "Fatigued",
			Effects: []Effect{
				{Target: "ability.str", Value: -2},
				{Target: "ability.dex", Value: -2},
			},
		},
		{
			ID: "sickened", Name: "Sickened",
			Effects: []Effect{
				{Target: "attack", Value: -2},
				{Target: "save.fort", Value: -2},
				{Target: "save.ref", Value: -2},
				{Target: "save.will", Value: -2},
			},
		},
		{
			ID: "prone", Name: "Prone",
			Effects: []Effect{
				{Target: "attack", Value: -4},
				{Target: "ac", Value: -4},
			},
		},
		{
			ID: "entangled", Name: "Entangled",
			Effects: []Effect{
				{Target: "attack", Value: -2},
				{Target: "ability.dex", Value: -4},
			},
		},
	}
	m := make(map[string]Definition, len(defs))
	for _, d := range defs {
		m[d.ID] = d
	}
	return m
}

// source returns the bonus-component source for a condition
func source(conditionID string) string {
	return "condition:" + conditionID
}

// Engine applies and removes conditions
type Engine struct {
	kernel *kernel.Kernel
	bonus  *bonus.Engine
	defs   map[string]Definition
}

// NewEngine creates a condition engine
func NewEngine(k *kernel.Kernel, b *bonus.Engine, defs map[string]Definition) *Engine {
	if defs == nil {
		defs = DefaultDefinitions()
	}
	return &Engine{kernel: k, bonus: b, defs: defs}
}

// Definitions returns the active condition table
func (e *Engine) Definitions() map[string]Definition { return e.defs }

// Initialize seeds an empty active-condition list
func (e *Engine) Initialize(entityPath string) kernel.Errno {
	return e.mutate(entityPath, func(ent *types.Entity) {
		if _, ok := ent.Prop(conditionsProp); !ok {
			ent.SetProp(conditionsProp, types.List())
		}
	})
}

// Apply activates a condition, installing its effects as bonus components.
// Re-applying an active condition is a no-op.
func (e *Engine) Apply(entityPath, conditionID string) kernel.Errno {
	def, ok := e.defs[conditionID]
	if !ok {
		return kernel.EINVAL
	}

	active, errno := e.Active(entityPath)
	if !errno.Ok() {
		return errno
	}
	for _, id := range active {
		if id == conditionID {
			return kernel.OK
		}
	}

	for _, effect := range def.Effects {
		if errno := e.bonus.AddBonus(entityPath, effect.Target, effect.Value, effect.Type, source(conditionID)); !errno.Ok() {
			return errno
		}
	}
	return e.mutate(entityPath, func(ent *types.Entity) {
		list := readConditions(ent)
		list = append(list, types.String(conditionID))
		ent.SetProp(conditionsProp, types.List(list...))
	})
}

// Remove deactivates a condition and strips all its components. Removing
// an inactive condition is a no-op.
func (e *Engine) Remove(entityPath, conditionID string) kernel.Errno {
	if _, ok := e.defs[conditionID]; !ok {
		return kernel.EINVAL
	}
	if errno := e.bonus.RemoveSource(entityPath, source(conditionID)); !errno.Ok() {
		return errno
	}
	return e.mutate(entityPath, func(ent *types.Entity) {
		list := readConditions(ent)
		kept := list[:0]
		for _, v := range list {
			if id, _ := v.Str(); id != conditionID {
				kept = append(kept, v)
			}
		}
		ent.SetProp(conditionsProp, types.List(kept...))
	})
}

// Active returns the ids of the entity's active conditions
func (e *Engine) Active(entityPath string) ([]string, kernel.Errno) {
	fd, errno := e.kernel.Open(entityPath, kernel.ModeRead)
	if !errno.Ok() {
		return nil, errno
	}
	defer e.kernel.Close(fd)

	ent, errno := e.kernel.Read(fd)
	if !errno.Ok() {
		return nil, errno
	}
	list := readConditions(ent)
	ids := make([]string, 0, len(list))
	for _, v := range list {
		if id, ok := v.Str(); ok {
			ids = append(ids, id)
		}
	}
	return ids, kernel.OK
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

func readConditions(ent *types.Entity) []types.Value {
	prop, ok := ent.Prop(conditionsProp)
	if !ok {
		return nil
	}
	list, ok := prop.AsList()
	if !ok {
		return nil
	}
	return list
}

// Device exposes the engine at /dev/condition
type Device struct {
	engine *Engine
}

// NewDevice wraps an engine as a mountable capability
func NewDevice(engine *Engine) *Device {
	return &Device{engine: engine}
}

// ID returns the device id
func (d *Device) ID() string { return "condition" }

// Version returns the capability version
func (d *Device) Version() string { return "1.0.0" }

// Ioctl dispatches a condition request
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

	case ReqApply:
		id, okID := args["condition"].(string)
		if !okID {
			return nil, kernel.EINVAL
		}
		if errno := d.engine.Apply(path, id); !errno.Ok() {
			return nil, errno
		}
		return nil, kernel.OK

	case ReqRemove:
		id, okID := args["condition"].(string)
		if !okID {
			return nil, kernel.EINVAL
		}
		if errno := d.engine.Remove(path, id); !errno.Ok() {
			return nil, errno
		}
		return nil, kernel.OK

	case ReqActive:
		active, errno := d.engine.Active(path)
		if !errno.Ok() {
			return nil, errno
		}
		out := make([]interface{}, len(active))
		for i, id := range active {
			out[i] = id
		}
		return map[string]interface{}{"active": out}, kernel.OK

	default:
		return nil, kernel.EINVAL
	}
}
