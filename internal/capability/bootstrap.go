package capability

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/sheetforge/sheetforge/internal/capability/ability"
	"github.com/sheetforge/sheetforge/internal/capability/bonus"
	"github.com/sheetforge/sheetforge/internal/capability/combat"
	"github.com/sheetforge/sheetforge/internal/capability/condition"
	"github.com/sheetforge/sheetforge/internal/capability/database"
	"github.com/sheetforge/sheetforge/internal/capability/skill"
	"github.com/sheetforge/sheetforge/internal/infrastructure/logging"
	"github.com/sheetforge/sheetforge/internal/kernel"
	"github.com/sheetforge/sheetforge/internal/store"
)

// Set holds the wired capability engines for one kernel instance.
// Engines receive their dependencies here, at bootstrap, and never look
// each other up through the registry afterwards.
type Set struct {
	Registry  *Registry
	Bonus     *bonus.Engine
	Ability   *ability.Engine
	Skill     *skill.Engine
	Combat    *combat.Engine
	Condition *condition.Engine
	Database  *database.Engine
}

// Options selects rule tables and the backing store for Bootstrap. Zero
// values fall back to the built-in defaults and the in-memory store.
type Options struct {
	Rules      bonus.StackingRules
	Skills     map[string]skill.Definition
	Conditions map[string]condition.Definition
	Store      store.BackingStore
}

// Bootstrap constructs every capability engine in dependency order, mounts
// the devices, and returns the wired set. Panics on mount conflicts, same
// as Registry.Register.
func Bootstrap(k *kernel.Kernel, opts Options, log *logging.Logger) *Set {
	if log == nil {
		log = logging.NewNop()
	}
	if opts.Rules == nil {
		opts.Rules = bonus.DefaultRules()
	}
	if opts.Store == nil {
		opts.Store = store.NewMemory()
	}

	bonusEng := bonus.NewEngine(k, opts.Rules, log.Named("bonus"))
	abilityEng := ability.NewEngine(k, bonusEng)
	skillEng := skill.NewEngine(k, abilityEng, bonusEng, opts.Skills)
	combatEng := combat.NewEngine(k, abilityEng, bonusEng)
	conditionEng := condition.NewEngine(k, bonusEng, opts.Conditions)
	databaseEng := database.NewEngine(k, opts.Store, log.Named("database"))

	reg := NewRegistry(k, log)
	reg.Register(bonus.NewDevice(bonusEng))
	reg.Register(ability.NewDevice(abilityEng))
	reg.Register(skill.NewDevice(skillEng))
	reg.Register(combat.NewDevice(combatEng))
	reg.Register(condition.NewDevice(conditionEng))
	reg.Register(database.NewDevice(databaseEng))

	ids := reg.IDs()
	sort.Strings(ids)
	log.Info("capabilities mounted", zap.Strings("devices", ids))

	return &Set{
		Registry:  reg,
		Bonus:     bonusEng,
		Ability:   abilityEng,
		Skill:     skillEng,
		Combat:    combatEng,
		Condition: conditionEng,
		Database:  databaseEng,
	}
}

// InitializeEntity runs the reserved initialize request against every
// mounted device for a freshly created entity, in a fixed order so seeded
// defaults land deterministically.
func (s *Set) InitializeEntity(ctx context.Context, k *kernel.Kernel, entityPath string) kernel.Errno {
	ids := s.Registry.IDs()
	sort.Strings(ids)
	for _, id := range ids {
		fd, errno := k.Open("/dev/"+id, kernel.ModeReadWrite)
		if !errno.Ok() {
			return errno
		}
		_, errno = k.Ioctl(ctx, fd, kernel.ReqInitialize, map[string]interface{}{
			"entity_path": entityPath,
		})
		k.Close(fd)
		if !errno.Ok() {
			return errno
		}
	}
	return kernel.OK
}
