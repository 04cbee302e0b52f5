// Package ability implements the ability-score capability mounted at
// /dev/ability: the six core scores and their derived modifiers.
package ability

import (
	"context"
	"math"

	"github.com/sheetforge/sheetforge/internal/capability/bonus"
	"github.com/sheetforge/sheetforge/internal/kernel"
	"github.com/sheetforge/sheetforge/internal/types"
)

const abilitiesProp = "abilities"

// Names is the closed set of ability identifiers
var Names = []string{"str", "dex", "con", "int", "wis", "cha"}

// ioctl request codes for /dev/ability
const (
	ReqSetScore uint32 = 1
	ReqGetScore uint32 = 2
	ReqModifier uint32 = 3
)

// Engine computes effective scores and modifiers. Effective score = stored
// base + aggregated bonuses on target "ability.<name>".
type Engine struct {
	kernel *kernel.Kernel
	bonus  *bonus.Engine
}

// NewEngine creates an ability engine with its bonus dependency injected
func NewEngine(k *kernel.Kernel, b *bonus.Engine) *Engine {
	return &Engine{kernel: k, bonus: b}
}

func validName(name string) bool {
	for _, n := range Names {
		if n == name {
			return true
		}
	}
	return false
}

// Initialize seeds any missing ability scores at 10
func (e *Engine) Initialize(entityPath string) kernel.Errno {
	return e.mutate(entityPath, func(ent *types.Entity) {
		scores := readScores(ent)
		for _, name := range Names {
			if _, ok := scores[name]; !ok {
				scores[name] = types.Number(10)
			}
		}
		ent.SetProp(abilitiesProp, types.Map(scores))
	})
}

// SetScore stores a base score
func (e *Engine) SetScore(entityPath, name string, score float64) kernel.Errno {
	if !validName(name) {
		return kernel.EINVAL
	}
	return e.mutate(entityPath, func(ent *types.Entity) {
		scores := readScores(ent)
		scores[name] = types.Number(score)
		ent.SetProp(abilitiesProp, types.Map(scores))
	})
}

// Score returns the stored base score
func (e *Engine) Score(entityPath, name string) (float64, kernel.Errno) {
	if !validName(name) {
		return 0, kernel.EINVAL
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
	score, ok := readScores(ent)[name]
	if !ok {
		return 10, kernel.OK
	}
	n, _ := score.Num()
	return n, kernel.OK
}

// EffectiveScore returns base plus bonuses on "ability.<name>"
func (e *Engine) EffectiveScore(entityPath, name string) (float64, kernel.Errno) {
	base, errno := e.Score(entityPath, name)
	if !errno.Ok() {
		return 0, errno
	}
	return e.bonus.Total(entityPath, "ability."+name, base)
}

// Modifier returns the ability modifier: floor((effective - 10) / 2)
func (e *Engine) Modifier(entityPath, name string) (float64, kernel.Errno) {
	eff, errno := e.EffectiveScore(entityPath, name)
	if !errno.Ok() {
		return 0, errno
	}
	return math.Floor((eff - 10) / 2), kernel.OK
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

func readScores(ent *types.Entity) map[string]types.Value {
	prop, ok := ent.Prop(abilitiesProp)
	if !ok {
		return make(map[string]types.Value)
	}
	m, ok := prop.AsMap()
	if !ok {
		return make(map[string]types.Value)
	}
	return m
}

// Device exposes the engine at /dev/ability
type Device struct {
	engine *Engine
}

// NewDevice wraps an engine as a mountable capability
func NewDevice(engine *Engine) *Device {
	return &Device{engine: engine}
}

// ID returns the device id
func (d *Device) ID() string { return "ability" }

// Version returns the capability version
func (d *Device) Version() string { return "1.0.0" }

// Ioctl dispatches an ability request
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

	case ReqSetScore:
		name, okN := args["ability"].(string)
		score, okS := args["score"].(float64)
		if !okN || !okS {
			return nil, kernel.EINVAL
		}
		if errno := d.engine.SetScore(path, name, score); !errno.Ok() {
			return nil, errno
		}
		return nil, kernel.OK

	case ReqGetScore:
		name, okN := args["ability"].(string)
		if !okN {
			return nil, kernel.EINVAL
		}
		base, errno := d.engine.Score(path, name)
		if !errno.Ok() {
			return nil, errno
		}
		eff, errno := d.engine.EffectiveScore(path, name)
		if !errno.Ok() {
			return nil, errno
		}
		return map[string]interface{}{"score": base, "effective": eff}, kernel.OK

	case ReqModifier:
		name, okN := args["ability"].(string)
		if !okN {
			return nil, kernel.EINVAL
		}
		mod, errno := d.engine.Modifier(path, name)
		if !errno.Ok() {
			return nil, errno
		}
		return map[string]interface{}{"modifier": mod}, kernel.OK

	default:
		return nil, kernel.EINVAL
	}
}
