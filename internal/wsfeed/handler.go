package wsfeed

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-draw/pkg/drawdto"
)

// StateSource supplies the current state sent when a spectator connects.
type StateSource interface {
	Get(ctx context.Context, id string) (*drawdto.GameState, error)
}

// Handler upgrades GET /games/{id}/events to a websocket and streams every
// state change of that game as JSON.
type Handler struct {
	hub          *Hub
	source       StateSource
	logger       *zap.Logger
	pingInterval time.Duration
	writeTimeout time.Duration
}

func NewHandler(hub *Hub, source StateSource, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		hub:          hub,
		source:       source,
		logger:       logger,
		pingInterval: 30 * time.Second,
		writeTimeout: 5 * time.Second,
	}
}

// Mux routes the feed endpoint.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /games/{id}/events", h)
	return mux
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}
	// subscribe before reading the current state so nothing published in
	// between is lost
	updates, leave := h.hub.Subscribe(id)
	defer leave()

	var initial *drawdto.GameState
	if h.source != nil {
		st, err := h.source.Get(r.Context(), id)
		if err != nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		initial = st
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		h.logger.Warn("draw_feed_accept_error", zap.String("session_id", id), zap.Error(err))
		return
	}
	defer conn.CloseNow()
	h.logger.Info("draw_feed_join", zap.String("session_id", id), zap.Int("spectators", h.hub.Spectators(id)))

	// 관전자는 보내지 않음: 읽기는 close/ping 처리용
	ctx := conn.CloseRead(r.Context())

	var since time.Time
	if initial != nil {
		if err := h.write(ctx, conn, *initial); err != nil {
			return
		}
		if initial.Result != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "game over")
			return
		}
		since = initial.UpdatedAt
	}
	h.stream(ctx, conn, id, updates, since)
}

// stream forwards updates, skipping any older than since (queued before the
// initial state was read).
func (h *Handler) stream(ctx context.Context, conn *websocket.Conn, id string, updates <-chan drawdto.GameState, since time.Time) {
	t := time.NewTicker(h.pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case st := <-updates:
			if st.UpdatedAt.Before(since) {
				continue
			}
			if err := h.write(ctx, conn, st); err != nil {
				h.logger.Debug("draw_feed_write_error", zap.String("session_id", id), zap.Error(err))
				return
			}
			if st.Result != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "game over")
				return
			}
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					h.logger.Debug("draw_feed_ping_error", zap.String("session_id", id), zap.Error(err))
				}
				return
			}
		}
	}
}

func (h *Handler) write(ctx context.Context, conn *websocket.Conn, st drawdto.GameState) error {
	wctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, st)
}
