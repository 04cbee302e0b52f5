package notify

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sheetforge/sheetforge/internal/infrastructure/logging"
	"github.com/sheetforge/sheetforge/internal/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub bridges the notifier to websocket clients so the UI layer can react
// to sheet changes. Delivery to sockets is best-effort: a client that
// cannot keep up is dropped.
type Hub struct {
	mu    sync.Mutex
	conns map[string]*websocket.Conn
	log   *logging.Logger
}

// NewHub creates an empty hub
func NewHub(log *logging.Logger) *Hub {
	if log == nil {
		log = logging.NewNop()
	}
	return &Hub{
		conns: make(map[string]*websocket.Conn),
		log:   log,
	}
}

// OnChange is the Subscriber the hub registers with the notifier
func (h *Hub) OnChange(path string, kind types.ChangeKind) {
	msg := types.Change{Path: path, Kind: kind}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.conns {
		if err := conn.WriteJSON(msg); err != nil {
			h.log.Debug("dropping slow websocket client",
				zap.String("client", id),
				zap.Error(err))
			conn.Close()
			delete(h.conns, id)
		}
	}
}

// HandleConnection upgrades an HTTP request and tracks the socket until
// it closes
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	id := uuid.New().String()
	h.mu.Lock()
	h.conns[id] = conn
	h.mu.Unlock()
	h.log.Debug("websocket client connected", zap.String("client", id))

	// drain reads until the client goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
	conn.Close()
	h.log.Debug("websocket client disconnected", zap.String("client", id))
}

// ClientCount returns the number of connected sockets
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
