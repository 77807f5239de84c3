package wsfeed

import (
	"sync"

	"go.uber.org/zap"

	"github.com/park285/cheese-draw/pkg/drawdto"
)

const defaultBuffer = 16

// Hub fans game states out to the spectators of each game.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	buffer int
	logger *zap.Logger
}

type subscriber struct {
	ch chan drawdto.GameState
}

func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[string]map[*subscriber]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Publish never blocks; a spectator that falls behind loses the update.
func (h *Hub) Publish(st drawdto.GameState) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[st.ID] {
		select {
		case sub.ch <- st:
		default:
			h.logger.Warn("draw_feed_drop", zap.String("session_id", st.ID), zap.Int("ply", st.Draw.Ply))
		}
	}
}

// Subscribe registers a spectator for game id. Call the returned func to leave.
func (h *Hub) Subscribe(id string) (<-chan drawdto.GameState, func()) {
	sub := &subscriber{ch: make(chan drawdto.GameState, h.buffer)}
	h.mu.Lock()
	set, ok := h.subs[id]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[id] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[id], sub)
			if len(h.subs[id]) == 0 {
				delete(h.subs, id)
			}
			h.mu.Unlock()
		})
	}
}

// Spectators is the number of subscribers watching game id.
func (h *Hub) Spectators(id string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[id])
}
