package kernel

import "testing"

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path  string
		errno Errno
		segs  int
	}{
		{"/entity/abc", OK, 2},
		{"/", OK, 0},
		{"/dev/bonus", OK, 2},
		{"", EINVAL, 0},
		{"entity/abc", EINVAL, 0},
		{"/entity//abc", EINVAL, 0},
		{"/entity/abc/", EINVAL, 0},
		{"/entity/./abc", EINVAL, 0},
		{"/entity/../dev", EINVAL, 0},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			segs, errno := splitPath(tt.path)
			if errno != tt.errno {
				t.Fatalf("splitPath(%q) errno = %v, want %v", tt.path, errno, tt.errno)
			}
			if errno.Ok() && len(segs) != tt.segs {
				t.Errorf("splitPath(%q) segments = %d, want %d", tt.path, len(segs), tt.segs)
			}
		})
	}
}

func TestMkdirAllIntermediates(t *testing.T) {
	tr := newTree()
	if errno := tr.mkdirAll("/proc/spellslots/deep"); !errno.Ok() {
		t.Fatalf("mkdirAll failed: %v", errno)
	}

	n, errno := tr.lookup("/proc/spellslots")
	if !errno.Ok() || n.kind != kindDir {
		t.Fatalf("intermediate dir missing: %v", errno)
	}
}

func TestMkdirAllOverFile(t *testing.T) {
	tr := newTree()
	tr.mkdirAll("/entity")
	parent, leaf, _ := tr.lookupParent("/entity/abc")
	parent.children[leaf] = &node{name: leaf, kind: kindFile}

	if errno := tr.mkdirAll("/entity/abc"); errno != EEXIST {
		t.Errorf("mkdirAll over file = %v, want EEXIST", errno)
	}
	if errno := tr.mkdirAll("/entity/abc/sub"); errno != EEXIST {
		t.Errorf("mkdirAll through file = %v, want EEXIST", errno)
	}
}

func TestLookupParentMissing(t *testing.T) {
	tr := newTree()
	if _, _, errno := tr.lookupParent("/entity/abc"); errno != ENOENT {
		t.Errorf("expected ENOENT for missing parent, got %v", errno)
	}
}
