package types

// ChangeKind classifies a mutation observed by the change notifier
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// Change is one notification delivered to subscribers after a successful
// mutating syscall
type Change struct {
	Path string     `json:"path"`
	Kind ChangeKind `json:"kind"`
}
