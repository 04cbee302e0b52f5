package server

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sheetforge/sheetforge/internal/capability"
	"github.com/sheetforge/sheetforge/internal/infrastructure/logging"
	"github.com/sheetforge/sheetforge/internal/infrastructure/monitoring"
	"github.com/sheetforge/sheetforge/internal/kernel"
	"github.com/sheetforge/sheetforge/internal/notify"
	"github.com/sheetforge/sheetforge/internal/proc"
	"github.com/sheetforge/sheetforge/internal/snapshot"
	"github.com/sheetforge/sheetforge/internal/types"
	"github.com/sheetforge/sheetforge/internal/utils"
)

// Handlers contains all HTTP handlers. The kernel is single-threaded by
// contract, so every handler takes mu for the duration of its syscall
// sequence. Gin serves requests concurrently; the mutex is the host-side
// serialization the kernel requires.
type Handlers struct {
	mu      sync.Mutex
	kernel  *kernel.Kernel
	caps    *capability.Set
	hub     *notify.Hub
	metrics *monitoring.Metrics
	log     *logging.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(k *kernel.Kernel, caps *capability.Set, hub *notify.Hub, metrics *monitoring.Metrics, log *logging.Logger) *Handlers {
	return &Handlers{
		kernel:  k,
		caps:    caps,
		hub:     hub,
		metrics: metrics,
		log:     log,
	}
}

// httpStatus maps a kernel error code onto the closest HTTP status
func httpStatus(errno kernel.Errno) int {
	switch errno {
	case kernel.OK:
		return http.StatusOK
	case kernel.ENOENT:
		return http.StatusNotFound
	case kernel.EACCES:
		return http.StatusForbidden
	case kernel.EEXIST:
		return http.StatusConflict
	case kernel.EIO:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func errnoJSON(c *gin.Context, errno kernel.Errno) {
	c.JSON(httpStatus(errno), gin.H{"errno": int(errno), "error": errno.String()})
}

// Root handles the index check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "sheetforge",
		"version": "0.1.0",
	})
}

// Health reports kernel and transport state
func (h *Handlers) Health(c *gin.Context) {
	h.mu.Lock()
	openFDs := h.kernel.OpenCount()
	devices := h.caps.Registry.IDs()
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"open_fds":   openFDs,
		"devices":    devices,
		"ws_clients": h.hub.ClientCount(),
	})
}

type createEntityRequest struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Name       string                 `json:"name"`
	Properties map[string]interface{} `json:"properties"`
}

// CreateEntity creates an entity and runs capability initialization. A
// request without an id gets a generated one.
func (h *Handlers) CreateEntity(c *gin.Context) {
	var req createEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if err := utils.ValidateEntityID(req.ID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateProperties(req.Properties); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Type == "" {
		req.Type = "entity"
	}
	if req.Name == "" {
		req.Name = req.ID
	}

	ent := types.NewEntity(req.ID, req.Type, req.Name)
	for k, raw := range req.Properties {
		v, err := types.FromInterface(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ent.SetProp(k, v)
	}

	path := "/entity/" + req.ID

	h.mu.Lock()
	defer h.mu.Unlock()

	if errno := h.kernel.Create(path, ent); !errno.Ok() {
		errnoJSON(c, errno)
		return
	}
	if errno := h.caps.InitializeEntity(c.Request.Context(), h.kernel, path); !errno.Ok() {
		errnoJSON(c, errno)
		return
	}
	h.exposeProcViews(ent)

	created, errno := h.readEntity(path)
	if !errno.Ok() {
		errnoJSON(c, errno)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListEntities lists entity ids in the namespace
func (h *Handlers) ListEntities(c *gin.Context) {
	h.mu.Lock()
	ids, errno := h.kernel.ReadDir("/entity")
	h.mu.Unlock()

	if !errno.Ok() {
		errnoJSON(c, errno)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entities": ids, "count": len(ids)})
}

// GetEntity reads one entity
func (h *Handlers) GetEntity(c *gin.Context) {
	id := c.Param("id")
	if err := utils.ValidateEntityID(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mu.Lock()
	ent, errno := h.readEntity("/entity/" + id)
	h.mu.Unlock()

	if !errno.Ok() {
		errnoJSON(c, errno)
		return
	}
	c.JSON(http.StatusOK, ent)
}

type updateEntityRequest struct {
	Name       string                 `json:"name"`
	Properties map[string]interface{} `json:"properties"`
}

// UpdateEntity merges the request into the entity through a read-modify-
// write cycle, bumping the version and firing change notifications
func (h *Handlers) UpdateEntity(c *gin.Context) {
	id := c.Param("id")
	if err := utils.ValidateEntityID(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req updateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateProperties(req.Properties); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	path := "/entity/" + id

	h.mu.Lock()
	defer h.mu.Unlock()

	fd, errno := h.kernel.Open(path, kernel.ModeReadWrite)
	if !errno.Ok() {
		errnoJSON(c, errno)
		return
	}
	ent, errno := h.kernel.Read(fd)
	if !errno.Ok() {
		h.kernel.Close(fd)
		errnoJSON(c, errno)
		return
	}

	if req.Name != "" {
		ent.Name = req.Name
	}
	for k, raw := range req.Properties {
		v, err := types.FromInterface(raw)
		if err != nil {
			h.kernel.Close(fd)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ent.SetProp(k, v)
	}

	errno = h.kernel.Write(fd, ent)
	h.kernel.Close(fd)
	if !errno.Ok() {
		errnoJSON(c, errno)
		return
	}
	h.exposeProcViews(ent)

	updated, errno := h.readEntity(path)
	if !errno.Ok() {
		errnoJSON(c, errno)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteEntity unlinks an entity
func (h *Handlers) DeleteEntity(c *gin.Context) {
	id := c.Param("id")
	if err := utils.ValidateEntityID(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mu.Lock()
	errno := h.kernel.Unlink("/entity/" + id)
	if errno.Ok() {
		// drop the computed view if one was registered
		h.kernel.RemoveProc("/proc/spellslots/" + id)
	}
	h.mu.Unlock()

	if !errno.Ok() {
		errnoJSON(c, errno)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

type ioctlRequest struct {
	Code uint32                 `json:"code"`
	Args map[string]interface{} `json:"args"`
}

// Ioctl invokes a capability request against a mounted device
func (h *Handlers) Ioctl(c *gin.Context) {
	device := c.Param("device")
	var req ioctlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mu.Lock()
	fd, errno := h.kernel.Open("/dev/"+device, kernel.ModeReadWrite)
	if !errno.Ok() {
		h.mu.Unlock()
		h.metrics.RecordIoctl(device, errno)
		errnoJSON(c, errno)
		return
	}
	reply, errno := h.kernel.Ioctl(c.Request.Context(), fd, req.Code, req.Args)
	h.kernel.Close(fd)
	h.mu.Unlock()

	h.metrics.RecordIoctl(device, errno)
	if !errno.Ok() {
		errnoJSON(c, errno)
		return
	}
	c.JSON(http.StatusOK, gin.H{"errno": 0, "reply": reply})
}

// BonusBreakdown explains every component behind an aggregated total
func (h *Handlers) BonusBreakdown(c *gin.Context) {
	id := c.Param("id")
	target := c.Param("target")
	if err := utils.ValidateEntityID(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateTarget(target); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mu.Lock()
	bd, errno := h.caps.Bonus.Breakdown("/entity/"+id, target, 0)
	h.mu.Unlock()

	if !errno.Ok() {
		errnoJSON(c, errno)
		return
	}
	c.JSON(http.StatusOK, bd)
}

// ReadProc reads a computed view under /proc
func (h *Handlers) ReadProc(c *gin.Context) {
	path := "/proc" + c.Param("path")

	h.mu.Lock()
	ent, errno := h.readEntity(path)
	h.mu.Unlock()

	if !errno.Ok() {
		errnoJSON(c, errno)
		return
	}
	c.JSON(http.StatusOK, ent)
}

// LoadEntity pulls an entity from the backing store into the kernel
func (h *Handlers) LoadEntity(c *gin.Context) {
	id := c.Param("id")
	if err := utils.ValidateEntityID(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mu.Lock()
	errno := h.caps.Database.Load(c.Request.Context(), id)
	var ent *types.Entity
	if errno.Ok() {
		ent, errno = h.readEntity("/entity/" + id)
		if errno.Ok() {
			h.exposeProcViews(ent)
		}
	}
	h.mu.Unlock()

	if !errno.Ok() {
		errnoJSON(c, errno)
		return
	}
	c.JSON(http.StatusOK, ent)
}

// FlushEntity persists one entity to the backing store
func (h *Handlers) FlushEntity(c *gin.Context) {
	id := c.Param("id")
	if err := utils.ValidateEntityID(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mu.Lock()
	errno := h.caps.Database.Flush(c.Request.Context(), id)
	h.mu.Unlock()

	if !errno.Ok() {
		errnoJSON(c, errno)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flushed": id})
}

// FlushAll persists every entity to the backing store
func (h *Handlers) FlushAll(c *gin.Context) {
	h.mu.Lock()
	n, errno := h.caps.Database.FlushAll(c.Request.Context())
	h.mu.Unlock()

	if !errno.Ok() {
		errnoJSON(c, errno)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flushed": n})
}

// ExportSnapshot streams the entity namespace as a gzip snapshot
func (h *Handlers) ExportSnapshot(c *gin.Context) {
	c.Header("Content-Type", "application/gzip")
	c.Header("Content-Disposition", `attachment; filename="entities.json.gz"`)

	h.mu.Lock()
	_, err := snapshot.Export(h.kernel, c.Writer)
	h.mu.Unlock()

	if err != nil {
		// headers are already out; log and drop the connection
		h.log.Error("snapshot export failed", zap.Error(err))
		c.Abort()
	}
}

// ImportSnapshot restores entities from an uploaded gzip snapshot
func (h *Handlers) ImportSnapshot(c *gin.Context) {
	h.mu.Lock()
	restored, err := snapshot.Import(h.kernel, c.Request.Body)
	h.mu.Unlock()

	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"restored": restored})
}

// MetricsSummary returns a compact JSON view of the Prometheus counters
func (h *Handlers) MetricsSummary(c *gin.Context) {
	snap := h.metrics.GetSnapshot()
	c.JSON(http.StatusOK, gin.H{
		"uptime_seconds":   h.metrics.UptimeSeconds(),
		"http_requests":    snap.TotalRequests,
		"http_errors":      snap.TotalErrors,
		"syscalls":         snap.TotalSyscalls,
		"syscall_failures": snap.SyscallFailures,
		"open_fds":         snap.OpenFDs,
		"ws_clients":       h.hub.ClientCount(),
	})
}

// readEntity is the open-read-close convenience used by the GET paths.
// Callers hold mu.
func (h *Handlers) readEntity(path string) (*types.Entity, kernel.Errno) {
	fd, errno := h.kernel.Open(path, kernel.ModeRead)
	if !errno.Ok() {
		return nil, errno
	}
	defer h.kernel.Close(fd)
	return h.kernel.Read(fd)
}

// exposeProcViews registers computed views implied by entity properties.
// Callers hold mu. Re-registration of an existing view reports EEXIST,
// which is fine here.
func (h *Handlers) exposeProcViews(ent *types.Entity) {
	if _, ok := ent.Prop("spell_slots"); ok {
		proc.RegisterSpellSlots(h.kernel, ent.ID)
	}
}
