// Package database implements the backing-store bridge mounted at
// /dev/database. It is the kernel's only suspension point: load and flush
// cross the store boundary and must complete before returning. Store
// failures are wrapped as EIO with the detail logged, never leaked into
// the kernel's error contract.
package database

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sheetforge/sheetforge/internal/infrastructure/logging"
	"github.com/sheetforge/sheetforge/internal/infrastructure/resilience"
	"github.com/sheetforge/sheetforge/internal/kernel"
	"github.com/sheetforge/sheetforge/internal/store"
	"github.com/sheetforge/sheetforge/internal/types"
)

// ioctl request codes for /dev/database
const (
	ReqLoad     uint32 = 1
	ReqFlush    uint32 = 2
	ReqFlushAll uint32 = 3
)

// Engine moves entities between the path tree and the backing store. Store
// calls run through a circuit breaker: once the store starts failing, loads
// and flushes fail fast as EIO until it recovers.
type Engine struct {
	kernel  *kernel.Kernel
	store   store.BackingStore
	breaker *resilience.Breaker
	log     *logging.Logger
}

// NewEngine creates a database engine
func NewEngine(k *kernel.Kernel, s store.BackingStore, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.NewNop()
	}
	e := &Engine{kernel: k, store: s, log: log}
	e.breaker = resilience.New("store", resilience.Settings{
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("store breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return e
}

// Load fetches an entity from the store into /entity/<id>. A record the
// store does not have is ENOENT; any other store failure is EIO.
func (e *Engine) Load(ctx context.Context, id string) kernel.Errno {
	var record *types.Entity
	var fetchErr error
	err := e.breaker.Execute(func() error {
		record, fetchErr = e.store.FetchEntity(ctx, id)
		if errors.Is(fetchErr, store.ErrNotFound) {
			// a miss is a valid answer, not a store failure
			return nil
		}
		return fetchErr
	})
	if err == nil {
		err = fetchErr
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return kernel.ENOENT
		}
		e.log.Warn("backing store fetch failed",
			zap.String("entity", id),
			zap.Error(err))
		return kernel.EIO
	}

	path := "/entity/" + id
	if !e.kernel.Exists(path) {
		return e.kernel.Create(path, record)
	}

	fd, errno := e.kernel.Open(path, kernel.ModeWrite)
	if !errno.Ok() {
		return errno
	}
	defer e.kernel.Close(fd)
	return e.kernel.Write(fd, record)
}

// Flush persists one entity from the tree to the store
func (e *Engine) Flush(ctx context.Context, id string) kernel.Errno {
	path := "/entity/" + id
	fd, errno := e.kernel.Open(path, kernel.ModeRead)
	if !errno.Ok() {
		return errno
	}
	defer e.kernel.Close(fd)

	ent, errno := e.kernel.Read(fd)
	if !errno.Ok() {
		return errno
	}
	err := e.breaker.Execute(func() error {
		return e.store.Persist(ctx, id, ent)
	})
	if err != nil {
		e.log.Warn("backing store persist failed",
			zap.String("entity", id),
			zap.Error(err))
		return kernel.EIO
	}
	return kernel.OK
}

// FlushAll persists every entity in the tree, returning how many were
// written. Stops at the first failure.
func (e *Engine) FlushAll(ctx context.Context) (int, kernel.Errno) {
	ids, errno := e.kernel.ReadDir("/entity")
	if !errno.Ok() {
		return 0, errno
	}
	for i, id := range ids {
		if errno := e.Flush(ctx, id); !errno.Ok() {
			return i, errno
		}
	}
	return len(ids), kernel.OK
}

// Device exposes the engine at /dev/database
type Device struct {
	engine *Engine
}

// NewDevice wraps an engine as a mountable capability
func NewDevice(engine *Engine) *Device {
	return &Device{engine: engine}
}

// ID returns the device id
func (d *Device) ID() string { return "database" }

// Version returns the capability version
func (d *Device) Version() string { return "1.0.0" }

// Ioctl dispatches a database request
func (d *Device) Ioctl(ctx context.Context, code uint32, args map[string]interface{}) (map[string]interface{}, kernel.Errno) {
	switch code {
	case kernel.ReqInitialize:
		// nothing to initialize per-entity; accept for convention
		return map[string]interface{}{"initialized": true}, kernel.OK

	case ReqLoad:
		id, ok := args["entity_id"].(string)
		if !ok || id == "" {
			return nil, kernel.EINVAL
		}
		if errno := d.engine.Load(ctx, id); !errno.Ok() {
			return nil, errno
		}
		return map[string]interface{}{"path": "/entity/" + id}, kernel.OK

	case ReqFlush:
		id, ok := args["entity_id"].(string)
		if !ok || id == "" {
			return nil, kernel.EINVAL
		}
		if errno := d.engine.Flush(ctx, id); !errno.Ok() {
			return nil, errno
		}
		return nil, kernel.OK

	case ReqFlushAll:
		count, errno := d.engine.FlushAll(ctx)
		if !errno.Ok() {
			return nil, errno
		}
		return map[string]interface{}{"flushed": count}, kernel.OK

	default:
		return nil, kernel.EINVAL
	}
}
