// Package capability binds rule modules to the kernel's device namespace.
//
// Each capability (abilities, bonuses, skills, combat, conditions, the
// database bridge) is mounted at /dev/<id> during bootstrap and invoked
// only through ioctl. Capabilities that depend on each other receive their
// dependencies explicitly at construction; the registry lookup exists for
// bootstrap wiring only and is never a per-request path.
package capability
