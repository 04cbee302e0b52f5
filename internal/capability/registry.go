package capability

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sheetforge/sheetforge/internal/infrastructure/logging"
	"github.com/sheetforge/sheetforge/internal/kernel"
)

// Registry tracks mounted capabilities for one kernel instance. A duplicate
// id is a programming mistake, so registration panics instead of returning
// a runtime error code.
type Registry struct {
	kernel *kernel.Kernel
	caps   map[string]kernel.Capability
	log    *logging.Logger
}

// NewRegistry creates an empty registry bound to a kernel
func NewRegistry(k *kernel.Kernel, log *logging.Logger) *Registry {
	if log == nil {
		log = logging.NewNop()
	}
	return &Registry{
		kernel: k,
		caps:   make(map[string]kernel.Capability),
		log:    log,
	}
}

// Register mounts a capability at /dev/<id>. Panics on duplicate ids or an
// empty id: both indicate a broken mount table, not a runtime condition.
func (r *Registry) Register(c kernel.Capability) {
	id := c.ID()
	if id == "" {
		panic("capability: empty capability id")
	}
	if _, exists := r.caps[id]; exists {
		panic(fmt.Sprintf("capability: duplicate id %q", id))
	}
	if errno := r.kernel.Mount(c); !errno.Ok() {
		panic(fmt.Sprintf("capability: mount %q failed: %s", id, errno))
	}
	r.caps[id] = c
}

// Get returns a registered capability. Bootstrap-only; capabilities are
// handed their dependencies at construction.
func (r *Registry) Get(id string) (kernel.Capability, bool) {
	c, ok := r.caps[id]
	return c, ok
}

// IDs returns the registered capability ids
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.caps))
	for id := range r.caps {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown closes all outstanding device and entity fds, unmounts every
// capability, and clears the registry. Needed only for orderly shutdown.
func (r *Registry) Shutdown() {
	closed := r.kernel.ClosePrefix("/dev")
	closed += r.kernel.ClosePrefix("/entity")
	for id := range r.caps {
		r.kernel.Unmount(id)
		delete(r.caps, id)
	}
	r.log.Info("capability registry shut down", zap.Int("fds_closed", closed))
}
