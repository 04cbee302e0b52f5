package bonus

import (
	"context"

	"github.com/sheetforge/sheetforge/internal/kernel"
	"github.com/sheetforge/sheetforge/internal/types"
)

// ioctl request codes for /dev/bonus. Code 0 is the shared initialize
// convention.
const (
	ReqAddBonus    uint32 = 1
	ReqRemoveBonus uint32 = 2
	ReqTotal       uint32 = 3
	ReqBreakdown   uint32 = 4
	ReqHasBonus    uint32 = 5
)

// Device exposes the engine at /dev/bonus
type Device struct {
	engine *Engine
}

// NewDevice wraps an engine as a mountable capability
func NewDevice(engine *Engine) *Device {
	return &Device{engine: engine}
}

// ID returns the device id
func (d *Device) ID() string { return "bonus" }

// Version returns the capability version
func (d *Device) Version() string { return "1.2.0" }

// Ioctl dispatches a bonus request. Args are decoded defensively: missing
// or mis-typed required arguments are EINVAL.
func (d *Device) Ioctl(_ context.Context, code uint32, args map[string]interface{}) (map[string]interface{}, kernel.Errno) {
	switch code {
	case kernel.ReqInitialize:
		path, ok := stringArg(args, "entity_path")
		if !ok {
			return nil, kernel.EINVAL
		}
		// seed an empty component table so later reads are uniform
		errno := d.engine.mutate(path, func(ent *types.Entity) {
			if _, ok := ent.Prop(bonusesProp); !ok {
				ent.SetProp(bonusesProp, types.Map(nil))
			}
		})
		if !errno.Ok() {
			return nil, errno
		}
		return map[string]interface{}{"initialized": true}, kernel.OK

	case ReqAddBonus:
		path, okP := stringArg(args, "entity_path")
		target, okT := stringArg(args, "target")
		value, okV := numberArg(args, "value")
		bonusType, okB := stringArg(args, "type")
		source, okS := stringArg(args, "source")
		if !okP || !okT || !okV || !okB || !okS {
			return nil, kernel.EINVAL
		}
		if errno := d.engine.AddBonus(path, target, value, bonusType, source); !errno.Ok() {
			return nil, errno
		}
		return nil, kernel.OK

	case ReqRemoveBonus:
		path, okP := stringArg(args, "entity_path")
		target, okT := stringArg(args, "target")
		source, okS := stringArg(args, "source")
		if !okP || !okT || !okS {
			return nil, kernel.EINVAL
		}
		if errno := d.engine.RemoveBonus(path, target, source); !errno.Ok() {
			return nil, errno
		}
		return nil, kernel.OK

	case ReqTotal:
		path, okP := stringArg(args, "entity_path")
		target, okT := stringArg(args, "target")
		if !okP || !okT {
			return nil, kernel.EINVAL
		}
		base, _ := numberArg(args, "base")
		total, errno := d.engine.Total(path, target, base)
		if !errno.Ok() {
			return nil, errno
		}
		return map[string]interface{}{"total": total}, kernel.OK

	case ReqBreakdown:
		path, okP := stringArg(args, "entity_path")
		target, okT := stringArg(args, "target")
		if !okP || !okT {
			return nil, kernel.EINVAL
		}
		base, _ := numberArg(args, "base")
		breakdown, errno := d.engine.Breakdown(path, target, base)
		if !errno.Ok() {
			return nil, errno
		}
		return map[string]interface{}{"breakdown": breakdown}, kernel.OK

	case ReqHasBonus:
		path, okP := stringArg(args, "entity_path")
		target, okT := stringArg(args, "target")
		source, okS := stringArg(args, "source")
		if !okP || !okT || !okS {
			return nil, kernel.EINVAL
		}
		found, errno := d.engine.HasBonus(path, target, source)
		if !errno.Ok() {
			return nil, errno
		}
		return map[string]interface{}{"has_bonus": found}, kernel.OK

	default:
		return nil, kernel.EINVAL
	}
}

func stringArg(args map[string]interface{}, key string) (string, bool) {
	s, ok := args[key].(string)
	return s, ok && s != ""
}

func numberArg(args map[string]interface{}, key string) (float64, bool) {
	switch n := args[key].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
