package kernel

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sheetforge/sheetforge/internal/infrastructure/logging"
	"github.com/sheetforge/sheetforge/internal/types"
)

// ReqInitialize is the reserved ioctl request code every capability accepts:
// "initialize this entity against this capability". Args carry entity_path.
const ReqInitialize uint32 = 0

// Capability is a pluggable rule module mounted at /dev/<id> and reachable
// only through ioctl. Capabilities use kernel syscalls for all entity
// access, same as external callers.
type Capability interface {
	ID() string
	Version() string
	Ioctl(ctx context.Context, code uint32, args map[string]interface{}) (map[string]interface{}, Errno)
}

// Notifier receives a synchronous callback after every successful mutation
type Notifier interface {
	Publish(path string, kind types.ChangeKind)
}

// Observer receives syscall measurements for metrics collection
type Observer interface {
	ObserveSyscall(op string, errno Errno, seconds float64)
	SetOpenFDs(n int)
}

// Kernel is one capability-kernel instance. It exclusively owns its path
// tree, descriptor table, and entity store; multiple instances share
// nothing. All calls must be serialized by the host.
type Kernel struct {
	tree     *tree
	fds      *fdTable
	notifier Notifier
	obs      Observer
	log      *logging.Logger
}

// New creates a kernel with the standard namespace roots pre-created
func New(log *logging.Logger) *Kernel {
	if log == nil {
		log = logging.NewNop()
	}
	k := &Kernel{
		tree: newTree(),
		fds:  newFDTable(),
		log:  log,
	}
	for _, dir := range []string{"/entity", "/dev", "/proc"} {
		if errno := k.tree.mkdirAll(dir); !errno.Ok() {
			panic("kernel: cannot create namespace root " + dir)
		}
	}
	return k
}

// SetNotifier installs the change notifier
func (k *Kernel) SetNotifier(n Notifier) { k.notifier = n }

// SetObserver installs the syscall observer
func (k *Kernel) SetObserver(o Observer) { k.obs = o }

func (k *Kernel) observe(op string, errno Errno, start time.Time) Errno {
	if k.obs != nil {
		k.obs.ObserveSyscall(op, errno, time.Since(start).Seconds())
		k.obs.SetOpenFDs(k.fds.count())
	}
	return errno
}

func (k *Kernel) notify(path string, kind types.ChangeKind) {
	if k.notifier != nil {
		k.notifier.Publish(path, kind)
	}
}

// Open resolves a path and allocates a descriptor. Directories are not
// openable (EINVAL); proc views are read-only (EACCES for write modes);
// absent paths are ENOENT.
func (k *Kernel) Open(path string, mode Mode) (int, Errno) {
	start := time.Now()
	n, errno := k.tree.lookup(path)
	if !errno.Ok() {
		return -1, k.observe("open", errno, start)
	}
	switch n.kind {
	case kindDir:
		return -1, k.observe("open", EINVAL, start)
	case kindProc:
		if mode.CanWrite() {
			return -1, k.observe("open", EACCES, start)
		}
	}
	d := k.fds.alloc(path, mode)
	k.observe("open", OK, start)
	return d.id, OK
}

// Read returns a deep copy of the entity behind the fd. Proc views are
// computed on demand; devices hold no readable state (EINVAL).
func (k *Kernel) Read(fd int) (*types.Entity, Errno) {
	start := time.Now()
	d, errno := k.fds.get(fd)
	if !errno.Ok() {
		return nil, k.observe("read", errno, start)
	}
	if !d.mode.CanRead() {
		return nil, k.observe("read", EACCES, start)
	}
	n, errno := k.tree.lookup(d.path)
	if !errno.Ok() {
		// unlinked while open
		return nil, k.observe("read", ENOENT, start)
	}
	switch n.kind {
	case kindFile:
		d.cursor++
		k.observe("read", OK, start)
		return n.entity.Clone(), OK
	case kindProc:
		e, errno := n.proc()
		if !errno.Ok() {
			return nil, k.observe("read", errno, start)
		}
		d.cursor++
		k.observe("read", OK, start)
		return e, OK
	default:
		return nil, k.observe("read", EINVAL, start)
	}
}

// Write replaces the entity behind the fd, preserving creation metadata,
// bumping the version, and notifying subscribers before returning.
func (k *Kernel) Write(fd int, e *types.Entity) Errno {
	start := time.Now()
	d, errno := k.fds.get(fd)
	if !errno.Ok() {
		return k.observe("write", errno, start)
	}
	if !d.mode.CanWrite() {
		return k.observe("write", EACCES, start)
	}
	if e == nil {
		return k.observe("write", EINVAL, start)
	}
	n, errno := k.tree.lookup(d.path)
	if !errno.Ok() {
		return k.observe("write", ENOENT, start)
	}
	switch n.kind {
	case kindProc:
		return k.observe("write", EACCES, start)
	case kindDevice:
		return k.observe("write", EINVAL, start)
	}

	stored := e.Clone()
	stored.Metadata.CreatedAt = n.entity.Metadata.CreatedAt
	stored.Metadata.UpdatedAt = time.Now().UTC()
	stored.Metadata.Version = n.entity.Metadata.Version + 1
	if stored.ID == "" {
		stored.ID = n.entity.ID
	}
	n.entity = stored

	k.observe("write", OK, start)
	k.notify(d.path, types.ChangeModified)
	return OK
}

// Close releases the fd. Closing an already-closed fd is EBADF, never a
// panic, so cleanup paths are safe to run unconditionally.
func (k *Kernel) Close(fd int) Errno {
	start := time.Now()
	return k.observe("close", k.fds.release(fd), start)
}

// Create adds a new entity file. The parent directory must already exist;
// an existing leaf is EEXIST. A nil initial value creates an empty entity
// named after the leaf segment.
func (k *Kernel) Create(path string, initial *types.Entity) Errno {
	start := time.Now()
	parent, leaf, errno := k.tree.lookupParent(path)
	if !errno.Ok() {
		return k.observe("create", errno, start)
	}
	if _, exists := parent.children[leaf]; exists {
		return k.observe("create", EEXIST, start)
	}

	e := initial.Clone()
	if e == nil {
		e = types.NewEntity(leaf, "entity", leaf)
	}
	if e.ID == "" {
		e.ID = leaf
	}
	now := time.Now().UTC()
	e.Metadata = types.Metadata{CreatedAt: now, UpdatedAt: now, Version: 1}
	if e.Properties == nil {
		e.Properties = make(map[string]types.Value)
	}
	parent.children[leaf] = &node{name: leaf, kind: kindFile, entity: e}

	k.observe("create", OK, start)
	k.notify(path, types.ChangeCreated)
	return OK
}

// Mkdir creates a directory, including intermediate directories. A leaf
// that already exists as a file is EEXIST.
func (k *Kernel) Mkdir(path string) Errno {
	start := time.Now()
	return k.observe("mkdir", k.tree.mkdirAll(path), start)
}

// Unlink removes an entity file. Directories and devices are not
// unlinkable through this call.
func (k *Kernel) Unlink(path string) Errno {
	start := time.Now()
	parent, leaf, errno := k.tree.lookupParent(path)
	if !errno.Ok() {
		return k.observe("unlink", errno, start)
	}
	n, ok := parent.children[leaf]
	if !ok {
		return k.observe("unlink", ENOENT, start)
	}
	if n.kind != kindFile {
		return k.observe("unlink", EACCES, start)
	}
	delete(parent.children, leaf)

	k.observe("unlink", OK, start)
	k.notify(path, types.ChangeRemoved)
	return OK
}

// Exists reports whether a path resolves. Never fails; malformed paths are
// simply absent.
func (k *Kernel) Exists(path string) bool {
	_, errno := k.tree.lookup(path)
	return errno.Ok()
}

// ReadDir lists a directory's children in sorted order
func (k *Kernel) ReadDir(path string) ([]string, Errno) {
	n, errno := k.tree.lookup(path)
	if !errno.Ok() {
		return nil, errno
	}
	if n.kind != kindDir {
		return nil, EINVAL
	}
	return n.list(), OK
}

// Ioctl dispatches a control request to the capability mounted behind the
// fd. Non-device fds are ENOTTY. Mutations performed by the capability go
// through nested write syscalls, which notify subscribers on the entity
// paths they touch.
func (k *Kernel) Ioctl(ctx context.Context, fd int, code uint32, args map[string]interface{}) (map[string]interface{}, Errno) {
	start := time.Now()
	d, errno := k.fds.get(fd)
	if !errno.Ok() {
		return nil, k.observe("ioctl", errno, start)
	}
	n, errno := k.tree.lookup(d.path)
	if !errno.Ok() {
		return nil, k.observe("ioctl", ENOENT, start)
	}
	if n.kind != kindDevice {
		return nil, k.observe("ioctl", ENOTTY, start)
	}
	reply, errno := n.device.Ioctl(ctx, code, args)
	if !errno.Ok() {
		k.log.Debug("ioctl failed",
			zap.String("device", d.path),
			zap.Uint32("code", code),
			zap.String("errno", errno.String()))
		return nil, k.observe("ioctl", errno, start)
	}
	k.observe("ioctl", OK, start)
	return reply, OK
}

// Mount binds a capability at /dev/<id>. Mounting over an existing path is
// EEXIST; the registry turns that into a startup panic.
func (k *Kernel) Mount(cap Capability) Errno {
	path := "/dev/" + cap.ID()
	parent, leaf, errno := k.tree.lookupParent(path)
	if !errno.Ok() {
		return errno
	}
	if _, exists := parent.children[leaf]; exists {
		return EEXIST
	}
	parent.children[leaf] = &node{name: leaf, kind: kindDevice, device: cap}
	k.log.Info("capability mounted",
		zap.String("path", path),
		zap.String("version", cap.Version()))
	return OK
}

// Unmount removes a capability device
func (k *Kernel) Unmount(id string) Errno {
	parent, leaf, errno := k.tree.lookupParent("/dev/" + id)
	if !errno.Ok() {
		return errno
	}
	n, ok := parent.children[leaf]
	if !ok {
		return ENOENT
	}
	if n.kind != kindDevice {
		return EINVAL
	}
	delete(parent.children, leaf)
	return OK
}

// RegisterProc installs a computed read-only view. Intermediate
// directories are created as needed.
func (k *Kernel) RegisterProc(path string, fn ProcFunc) Errno {
	parent, leaf, errno := k.tree.lookupParent(path)
	if errno == ENOENT {
		segs, _ := splitPath(path)
		if len(segs) > 1 {
			dir := "/" + strings.Join(segs[:len(segs)-1], "/")
			if errno := k.tree.mkdirAll(dir); !errno.Ok() {
				return errno
			}
		}
		parent, leaf, errno = k.tree.lookupParent(path)
	}
	if !errno.Ok() {
		return errno
	}
	if _, exists := parent.children[leaf]; exists {
		return EEXIST
	}
	parent.children[leaf] = &node{name: leaf, kind: kindProc, proc: fn}
	return OK
}

// RemoveProc uninstalls a computed view
func (k *Kernel) RemoveProc(path string) Errno {
	parent, leaf, errno := k.tree.lookupParent(path)
	if !errno.Ok() {
		return errno
	}
	n, ok := parent.children[leaf]
	if !ok {
		return ENOENT
	}
	if n.kind != kindProc {
		return EINVAL
	}
	delete(parent.children, leaf)
	return OK
}

// ClosePrefix closes every open fd whose path starts with the prefix and
// returns how many were closed. Used for orderly shutdown.
func (k *Kernel) ClosePrefix(prefix string) int {
	var stale []int
	k.fds.each(func(d *descriptor) {
		if hasPathPrefix(d.path, prefix) {
			stale = append(stale, d.id)
		}
	})
	for _, fd := range stale {
		k.fds.release(fd)
	}
	if k.obs != nil {
		k.obs.SetOpenFDs(k.fds.count())
	}
	return len(stale)
}

// OpenCount returns the number of live descriptors
func (k *Kernel) OpenCount() int {
	return k.fds.count()
}

func hasPathPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return len(path) > len(prefix) && path[:len(prefix)] == prefix && path[len(prefix)] == '/'
}
