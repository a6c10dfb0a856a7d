package ws

import (
	"context"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/parleyhq/parley/internal/hub"
	"github.com/parleyhq/parley/pkg/jwt"
	"github.com/parleyhq/parley/pkg/logger"
)

// EventSink receives connection lifecycle and frames. The hub implements it.
// Connect is always delivered before the first frame; Disconnect exactly once.
type EventSink interface {
	HandleConnect(c hub.Conn)
	HandleFrame(c hub.Conn, data []byte)
	HandleDisconnect(c hub.Conn)
}

// Options bounds per-connection transport behavior.
type Options struct {
	QueueDepth     int      // egress queue capacity before force-close
	ReadLimit      int64    // max inbound frame size
	OriginPatterns []string // allowed origins for the upgrade
}

func (o Options) withDefaults() Options {
	if o.QueueDepth <= 0 {
		o.QueueDepth = 256
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 128 * 1024
	}
	return o
}

type Handler struct {
	sink   EventSink
	tokens *jwt.Service
	opts   Options
	log    *logger.Logger
}

func NewHandler(sink EventSink, tokens *jwt.Service, opts Options, log *logger.Logger) *Handler {
	return &Handler{
		sink:   sink,
		tokens: tokens,
		opts:   opts.withDefaults(),
		log:    log,
	}
}

// ServeHTTP upgrades the request, binds the authenticated identity to a new
// connection id, and pumps frames into the sink until the socket dies.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing authorization token", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.opts.OriginPatterns,
	})
	if err != nil {
		h.log.Warn("websocket accept failed", "error", err)
		return
	}
	sock.SetReadLimit(h.opts.ReadLimit)

	conn := newConn(uuid.NewString(), claims.UserID, claims.DisplayName, sock, h.opts.QueueDepth, h.log)

	h.log.Info("connection established",
		"conn_id", conn.ID(),
		"user_id", conn.UserID(),
		"display_name", conn.DisplayName(),
	)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.sink.HandleConnect(conn)
	go conn.writePump(ctx)

	h.readLoop(ctx, conn)

	h.sink.HandleDisconnect(conn)
	conn.close(websocket.StatusNormalClosure, "")
}

func (h *Handler) readLoop(ctx context.Context, conn *Conn) {
	for {
		_, data, err := conn.sock.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				h.log.Debug("client disconnected", "conn_id", conn.ID())
			} else {
				h.log.Debug("read error", "conn_id", conn.ID(), "error", err)
			}
			return
		}

		h.sink.HandleFrame(conn, data)
	}
}

// bearerToken pulls the token from the Authorization header, falling back to
// a query param for browser WebSocket clients that can't set headers.
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
