// Package types defines the shared data model for the capability kernel:
// game entities, the tagged-union property value, and change notifications.
//
// Entities are the unit of persisted game state. They are owned by the
// kernel's entity store; everything outside the kernel works with copies
// obtained through read syscalls and must not retain them across calls.
package types
