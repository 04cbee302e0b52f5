// Package notify implements the change notifier: a synchronous,
// best-effort fan-out the kernel drives after every successful mutation.
// There is no buffering and no retry; a subscriber that panics is logged
// and skipped, never allowed to abort the kernel operation that fired the
// notification.
package notify

import (
	"time"

	"go.uber.org/zap"

	"github.com/sheetforge/sheetforge/internal/infrastructure/logging"
	"github.com/sheetforge/sheetforge/internal/types"
)

// Subscriber receives one change notification
type Subscriber func(path string, kind types.ChangeKind)

// Notifier fans changes out to subscribers in registration order
type Notifier struct {
	subs    []Subscriber
	observe func(kind string, seconds float64)
	log     *logging.Logger
}

// New creates an empty notifier
func New(log *logging.Logger) *Notifier {
	if log == nil {
		log = logging.NewNop()
	}
	return &Notifier{log: log}
}

// Subscribe registers a callback. Subscription is bootstrap-time only;
// there is no unsubscribe.
func (n *Notifier) Subscribe(fn Subscriber) {
	n.subs = append(n.subs, fn)
}

// SetObserver installs a fan-out latency hook. Bootstrap-time only.
func (n *Notifier) SetObserver(fn func(kind string, seconds float64)) {
	n.observe = fn
}

// Publish delivers one change to every subscriber synchronously. Fires
// before the mutating syscall returns, so a read issued afterward in the
// same logical thread always sees the new version.
func (n *Notifier) Publish(path string, kind types.ChangeKind) {
	start := time.Now()
	for _, fn := range n.subs {
		n.deliver(fn, path, kind)
	}
	if n.observe != nil {
		n.observe(string(kind), time.Since(start).Seconds())
	}
}

func (n *Notifier) deliver(fn Subscriber, path string, kind types.ChangeKind) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Error("change subscriber panicked",
				zap.String("path", path),
				zap.String("kind", string(kind)),
				zap.Any("panic", r))
		}
	}()
	fn(path, kind)
}
