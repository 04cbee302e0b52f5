package kernel

// Errno is the closed set of kernel status codes. Zero is success; failures
// are negative so callers can branch on sign. Values mirror the classic
// Unix numbering.
type Errno int

const (
	OK     Errno = 0
	ENOENT Errno = -2  // path does not exist
	EIO    Errno = -5  // backing store failure
	EBADF  Errno = -9  // fd invalid or already closed
	EACCES Errno = -13 // open mode forbids the operation
	EEXIST Errno = -17 // path already exists
	EINVAL Errno = -22 // malformed path or wrong node kind
	ENOTTY Errno = -25 // ioctl on a non-device fd
)

// Ok reports whether the code is success
func (e Errno) Ok() bool { return e == OK }

// String returns the symbolic name
func (e Errno) String() string {
	switch e {
	case OK:
		return "OK"
	case ENOENT:
		return "ENOENT"
	case EIO:
		return "EIO"
	case EBADF:
		return "EBADF"
	case EACCES:
		return "EACCES"
	case EEXIST:
		return "EEXIST"
	case EINVAL:
		return "EINVAL"
	case ENOTTY:
		return "ENOTTY"
	default:
		return "EUNKNOWN"
	}
}

// Mode is the closed set of open modes
type Mode uint8

const (
	ModeRead Mode = iota
	ModeWrite
	ModeReadWrite
)

// CanRead reports whether the mode permits reads
func (m Mode) CanRead() bool { return m == ModeRead || m == ModeReadWrite }

// CanWrite reports whether the mode permits writes
func (m Mode) CanWrite() bool { return m == ModeWrite || m == ModeReadWrite }

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "READ"
	case ModeWrite:
		return "WRITE"
	case ModeReadWrite:
		return "READ_WRITE"
	default:
		return "INVALID"
	}
}
