package kernel

import "testing"

func TestFDAllocOrder(t *testing.T) {
	tbl := newFDTable()

	a := tbl.alloc("/entity/a", ModeRead)
	b := tbl.alloc("/entity/b", ModeWrite)
	if a.id != 0 || b.id != 1 {
		t.Fatalf("expected fds 0,1 got %d,%d", a.id, b.id)
	}
}

func TestFDReuseLowestFirst(t *testing.T) {
	tbl := newFDTable()
	tbl.alloc("/entity/a", ModeRead)
	tbl.alloc("/entity/b", ModeRead)
	tbl.alloc("/entity/c", ModeRead)

	tbl.release(2)
	tbl.release(0)

	if d := tbl.alloc("/entity/d", ModeRead); d.id != 0 {
		t.Errorf("expected reuse of fd 0, got %d", d.id)
	}
	if d := tbl.alloc("/entity/e", ModeRead); d.id != 2 {
		t.Errorf("expected reuse of fd 2, got %d", d.id)
	}
	if d := tbl.alloc("/entity/f", ModeRead); d.id != 3 {
		t.Errorf("expected fresh fd 3, got %d", d.id)
	}
}

func TestFDDoubleRelease(t *testing.T) {
	tbl := newFDTable()
	tbl.alloc("/entity/a", ModeRead)

	if errno := tbl.release(0); !errno.Ok() {
		t.Fatalf("first release failed: %v", errno)
	}
	if errno := tbl.release(0); errno != EBADF {
		t.Errorf("second release = %v, want EBADF", errno)
	}
}

func TestFDCountTracksOpens(t *testing.T) {
	tbl := newFDTable()
	for i := 0; i < 5; i++ {
		tbl.alloc("/entity/x", ModeRead)
	}
	tbl.release(1)
	tbl.release(3)

	if tbl.count() != 3 {
		t.Errorf("count = %d, want 3", tbl.count())
	}
}
