package kernel

import (
	"sort"
	"strings"

	"github.com/sheetforge/sheetforge/internal/types"
)

// nodeKind discriminates the node types in the path tree
type nodeKind uint8

const (
	kindDir nodeKind = iota
	kindFile
	kindDevice
	kindProc
)

func (k nodeKind) String() string {
	switch k {
	case kindDir:
		return "directory"
	case kindFile:
		return "file"
	case kindDevice:
		return "device"
	case kindProc:
		return "proc"
	default:
		return "unknown"
	}
}

// ProcFunc computes the contents of a /proc view on demand
type ProcFunc func() (*types.Entity, Errno)

// node is one entry in the in-memory namespace. Directories hold children;
// files own an entity record; devices point at a mounted capability; proc
// nodes hold a generator.
type node struct {
	name     string
	kind     nodeKind
	children map[string]*node
	entity   *types.Entity
	device   Capability
	proc     ProcFunc
}

func newDir(name string) *node {
	return &node{name: name, kind: kindDir, children: make(map[string]*node)}
}

// tree is the hierarchical namespace. It is private to one kernel instance
// and mutated only by syscalls.
type tree struct {
	root *node
}

func newTree() *tree {
	return &tree{root: newDir("/")}
}

// splitPath validates and splits an absolute path into segments.
// Malformed paths (relative, empty segments, dot segments) are EINVAL.
func splitPath(path string) ([]string, Errno) {
	if path == "" || path[0] != '/' {
		return nil, EINVAL
	}
	if path == "/" {
		return nil, OK
	}
	segs := strings.Split(path[1:], "/")
	for _, s := range segs {
		if s == "" || s == "." || s == ".." {
			return nil, EINVAL
		}
	}
	return segs, OK
}

// lookup resolves a path to its node
func (t *tree) lookup(path string) (*node, Errno) {
	segs, errno := splitPath(path)
	if !errno.Ok() {
		return nil, errno
	}
	cur := t.root
	for _, s := range segs {
		if cur.kind != kindDir {
			return nil, ENOENT
		}
		next, ok := cur.children[s]
		if !ok {
			return nil, ENOENT
		}
		cur = next
	}
	return cur, OK
}

// lookupParent resolves the parent directory of a path and returns the
// leaf segment. The parent must exist and be a directory.
func (t *tree) lookupParent(path string) (*node, string, Errno) {
	segs, errno := splitPath(path)
	if !errno.Ok() {
		return nil, "", errno
	}
	if len(segs) == 0 {
		return nil, "", EINVAL
	}
	cur := t.root
	for _, s := range segs[:len(segs)-1] {
		next, ok := cur.children[s]
		if !ok || next.kind != kindDir {
			return nil, "", ENOENT
		}
		cur = next
	}
	return cur, segs[len(segs)-1], OK
}

// mkdirAll creates the directory path, including intermediate directories.
// Fails with EEXIST if the leaf already exists as a non-directory.
func (t *tree) mkdirAll(path string) Errno {
	segs, errno := splitPath(path)
	if !errno.Ok() {
		return errno
	}
	cur := t.root
	for _, s := range segs {
		next, ok := cur.children[s]
		if !ok {
			next = newDir(s)
			cur.children[s] = next
		} else if next.kind != kindDir {
			return EEXIST
		}
		cur = next
	}
	return OK
}

// list returns the sorted child names of a directory
func (n *node) list() []string {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
