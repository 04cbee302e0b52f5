package bonus

import (
	"go.uber.org/zap"

	"github.com/sheetforge/sheetforge/internal/infrastructure/logging"
	"github.com/sheetforge/sheetforge/internal/kernel"
	"github.com/sheetforge/sheetforge/internal/types"
)

// bonusesProp is the entity property holding per-target component lists
const bonusesProp = "bonuses"

// Engine maintains bonus components per (entity, target) and computes
// totals under the stacking rules. All entity access goes through kernel
// syscalls; the engine holds no entity state of its own.
type Engine struct {
	kernel *kernel.Kernel
	rules  StackingRules
	log    *logging.Logger
}

// NewEngine creates an engine bound to a kernel instance
func NewEngine(k *kernel.Kernel, rules StackingRules, log *logging.Logger) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Engine{kernel: k, rules: rules, log: log}
}

// Rules returns the active stacking table
func (e *Engine) Rules() StackingRules { return e.rules }

// AddBonus inserts or replaces the component keyed by (target, type,
// source). Zero and negative values are valid penalties.
func (e *Engine) AddBonus(entityPath, target string, value float64, bonusType, source string) kernel.Errno {
	return e.mutate(entityPath, func(ent *types.Entity) {
		components := readComponents(ent, target)
		replaced := false
		for i, c := range components {
			if c.Type == bonusType && c.Source == source {
				components[i].Value = value
				replaced = true
				break
			}
		}
		if !replaced {
			components = append(components, Component{Value: value, Type: bonusType, Source: source})
		}
		writeComponents(ent, target, components)
	})
}

// RemoveBonus removes every component for the source on the target,
// regardless of type. Removing a source with no components is a no-op.
func (e *Engine) RemoveBonus(entityPath, target, source string) kernel.Errno {
	return e.mutate(entityPath, func(ent *types.Entity) {
		components := readComponents(ent, target)
		kept := components[:0]
		for _, c := range components {
			if c.Source != source {
				kept = append(kept, c)
			}
		}
		writeComponents(ent, target, kept)
	})
}

// RemoveSource removes a source's components from every target on the
// entity. Conditions use this to undo all their effects in one call.
func (e *Engine) RemoveSource(entityPath, source string) kernel.Errno {
	return e.mutate(entityPath, func(ent *types.Entity) {
		targets, ok := ent.Prop(bonusesProp)
		if !ok {
			return
		}
		m, ok := targets.AsMap()
		if !ok {
			return
		}
		for target := range m {
			components := readComponents(ent, target)
			kept := components[:0]
			for _, c := range components {
				if c.Source != source {
					kept = append(kept, c)
				}
			}
			writeComponents(ent, target, kept)
		}
	})
}

// Total computes the aggregate for a target plus the caller-supplied base
func (e *Engine) Total(entityPath, target string, base float64) (float64, kernel.Errno) {
	b, errno := e.Breakdown(entityPath, target, base)
	if !errno.Ok() {
		return 0, errno
	}
	return b.Total, kernel.OK
}

// Breakdown computes the aggregate and annotates every component with
// whether it counted, for explainable output
func (e *Engine) Breakdown(entityPath, target string, base float64) (*Breakdown, kernel.Errno) {
	var out Breakdown
	errno := e.inspect(entityPath, func(ent *types.Entity) {
		out = compute(readComponents(ent, target), base, e.rules)
	})
	if !errno.Ok() {
		return nil, errno
	}
	return &out, kernel.OK
}

// HasBonus reports whether the source contributes any component to the
// target
func (e *Engine) HasBonus(entityPath, target, source string) (bool, kernel.Errno) {
	var found bool
	errno := e.inspect(entityPath, func(ent *types.Entity) {
		for _, c := range readComponents(ent, target) {
			if c.Source == source {
				found = true
				return
			}
		}
	})
	if !errno.Ok() {
		return false, errno
	}
	return found, kernel.OK
}

// inspect runs fn against a read-only snapshot of the entity
func (e *Engine) inspect(entityPath string, fn func(*types.Entity)) kernel.Errno {
	fd, errno := e.kernel.Open(entityPath, kernel.ModeRead)
	if !errno.Ok() {
		return errno
	}
	defer e.kernel.Close(fd)

	ent, errno := e.kernel.Read(fd)
	if !errno.Ok() {
		return errno
	}
	fn(ent)
	return kernel.OK
}

// mutate runs fn inside an open-read-modify-write-close critical section
// on a single fd
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
	if errno := e.kernel.Write(fd, ent); !errno.Ok() {
		e.log.Warn("bonus write failed",
			zap.String("path", entityPath),
			zap.String("errno", errno.String()))
		return errno
	}
	return kernel.OK
}

// readComponents decodes the component list for a target from entity
// properties. Malformed entries are skipped.
func readComponents(ent *types.Entity, target string) []Component {
	targets, ok := ent.Prop(bonusesProp)
	if !ok {
		return nil
	}
	listVal, ok := targets.Get(target)
	if !ok {
		return nil
	}
	items, ok := listVal.AsList()
	if !ok {
		return nil
	}

	components := make([]Component, 0, len(items))
	for _, item := range items {
		m, ok := item.AsMap()
		if !ok {
			continue
		}
		value, okV := m["value"].Num()
		bonusType, okT := m["type"].Str()
		source, okS := m["source"].Str()
		if !okV || !okT || !okS {
			continue
		}
		components = append(components, Component{Value: value, Type: bonusType, Source: source})
	}
	return components
}

// writeComponents encodes a component list back into entity properties.
// Empty lists drop the target key so removal leaves no residue.
func writeComponents(ent *types.Entity, target string, components []Component) {
	targets, ok := ent.Prop(bonusesProp)
	targetMap, isMap := targets.AsMap()
	if !ok || !isMap {
		targetMap = make(map[string]types.Value)
	}

	if len(components) == 0 {
		delete(targetMap, target)
	} else {
		items := make([]types.Value, len(components))
		for i, c := range components {
			items[i] = types.Map(map[string]types.Value{
				"value":  types.Number(c.Value),
				"type":   types.String(c.Type),
				"source": types.String(c.Source),
			})
		}
		targetMap[target] = types.List(items...)
	}
	ent.SetProp(bonusesProp, types.Map(targetMap))
}
