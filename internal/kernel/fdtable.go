package kernel

// descriptor records one open handle: the path it was opened against and
// the access mode. Valid only between a successful open and the matching
// close.
type descriptor struct {
	id     int
	path   string
	mode   Mode
	cursor int
}

// fdTable maps small integer handles to descriptors. Freed numbers are
// reused, lowest first, matching Unix allocation order.
type fdTable struct {
	open map[int]*descriptor
	free []int
	next int
}

func newFDTable() *fdTable {
	return &fdTable{open: make(map[int]*descriptor)}
}

// alloc assigns the lowest available fd number
func (t *fdTable) alloc(path string, mode Mode) *descriptor {
	var id int
	if n := len(t.free); n > 0 {
		// lowest freed number first
		lowest := 0
		for i := 1; i < n; i++ {
			if t.free[i] < t.free[lowest] {
				lowest = i
			}
		}
		id = t.free[lowest]
		t.free[lowest] = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		id = t.next
		t.next++
	}
	d := &descriptor{id: id, path: path, mode: mode}
	t.open[id] = d
	return d
}

// get returns the descriptor for a live fd
func (t *fdTable) get(fd int) (*descriptor, Errno) {
	d, ok := t.open[fd]
	if !ok {
		return nil, EBADF
	}
	return d, OK
}

// release closes an fd and recycles its number
func (t *fdTable) release(fd int) Errno {
	if _, ok := t.open[fd]; !ok {
		return EBADF
	}
	delete(t.open, fd)
	t.free = append(t.free, fd)
	return OK
}

// count returns the number of live descriptors
func (t *fdTable) count() int {
	return len(t.open)
}

// each visits every live descriptor
func (t *fdTable) each(fn func(*descriptor)) {
	for _, d := range t.open {
		fn(d)
	}
}
