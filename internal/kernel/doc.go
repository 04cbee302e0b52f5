// Package kernel implements the capability kernel: an in-process,
// Unix-inspired virtual filesystem that mediates all access to mutable
// game-entity state.
//
// Every read, write, and rule invocation is a file operation against a path
// namespace:
//
//   - /entity/<id>  stored game entities
//   - /dev/<id>     mounted capability devices, reached through ioctl
//   - /proc/...     read-only computed views
//
// Syscalls return negative Errno codes for expected failures and never
// panic for them. The kernel panics only for startup configuration
// mistakes such as mounting two capabilities at the same path.
//
// The kernel is single-threaded by design: callers serialize access on
// their own event loop, and every syscall completes or fails atomically
// against in-memory state. The one suspension point is the backing-store
// boundary, which capabilities must await fully before returning.
package kernel
