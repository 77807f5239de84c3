package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cheese-draw/internal/domain"
	"github.com/park285/cheese-draw/internal/draw"
	"github.com/park285/cheese-draw/internal/msgcat"
	"github.com/park285/cheese-draw/internal/rules"
	"github.com/park285/cheese-draw/pkg/drawdto"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrInvalidSide     = errors.New("unknown side")
	ErrTooManySessions = errors.New("session limit reached")
	// ErrSnapshotFailed means the change was not saved and the session was
	// dropped from memory; the next request reloads the last saved state.
	ErrSnapshotFailed  = errors.New("session snapshot not saved")
)

// SnapshotStore persists session state between restarts.
type SnapshotStore interface {
	Save(ctx context.Context, st drawdto.GameState) error
	Load(ctx context.Context, id string) (*drawdto.GameState, error)
	Delete(ctx context.Context, id string) error
}

// ResultSink receives every finished game once.
type ResultSink interface {
	SaveResult(ctx context.Context, rec domain.GameRecord) error
}

// Publisher is notified after every state change.
type Publisher interface {
	Publish(st drawdto.GameState)
}

type Option func(*Registry)

func WithStore(s SnapshotStore) Option { return func(r *Registry) { r.store = s } }
func WithResults(s ResultSink) Option { return func(r *Registry) { r.results = s } }
func WithCatalog(c *msgcat.Catalog) Option { return func(r *Registry) { r.catalog = c } }
func WithPublisher(p Publisher) Option { return func(r *Registry) { r.publisher = p } }
func WithLogger(l *zap.Logger) Option { return func(r *Registry) { r.logger = l } }
func WithClock(now func() time.Time) Option { return func(r *Registry) { r.now = now } }
func WithMaxSessions(n int) Option { return func(r *Registry) { r.maxSessions = n } }
func WithDeadDetector(d draw.DeadPositionDetector) Option {
	return func(r *Registry) { r.dead = d }
}

// Registry owns the live sessions. Every session has its own draw manager;
// nothing is shared between games.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	store       SnapshotStore
	results     ResultSink
	catalog     *msgcat.Catalog
	publisher   Publisher
	logger      *zap.Logger
	now         func() time.Time
	maxSessions int
	dead        draw.DeadPositionDetector
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// Create starts a game from fen ("" for the initial position).
func (r *Registry) Create(ctx context.Context, req drawdto.CreateGameRequest) (*drawdto.GameState, error) {
	game, err := rules.New(req.FEN)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	s, err := r.newSession(id, strings.TrimSpace(req.White), strings.TrimSpace(req.Black), game)
	if err != nil {
		return nil, err
	}
	now := r.now()
	s.createdAt, s.updatedAt = now, now

	r.mu.Lock()
	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		r.mu.Unlock()
		return nil, ErrTooManySessions
	}
	r.sessions[id] = s
	r.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	// a start position can already be drawn, e.g. bare kings
	if st := s.draws.Status(); st.Ended {
		r.finishDraw(ctx, s, *st.Ending, "")
	}
	st, err := r.commit(ctx, s)
	if err != nil {
		r.mu.Lock()
		delete(r.sessions, id)
		r.mu.Unlock()
		return nil, err
	}
	r.logger.Info("draw_session_create",
		zap.String("session_id", id),
		zap.String("white", s.white),
		zap.String("black", s.black),
		zap.String("start_fen", game.StartFEN()),
	)
	return st, nil
}

// newSession builds the draw manager from the game's start position, so it
// works both for fresh games and for games about to be replayed.
func (r *Registry) newSession(id, white, black string, game *rules.Game) (*Session, error) {
	start, clocks, err := draw.ParseFEN(game.StartFEN())
	if err != nil {
		return nil, err
	}
	draws, err := draw.NewManager(start, draw.Config{Dead: r.dead, Clocks: clocks}, r.logger.With(zap.String("session_id", id)))
	if err != nil {
		return nil, err
	}
	return &Session{
		id:       id,
		white:    white,
		black:    black,
		game:     game,
		draws:    draws,
		startPly: clocks.Ply(start.SideToMove),
	}, nil
}

// Get returns the session state, restoring it from the snapshot store when
// it is not in memory.
func (r *Registry) Get(ctx context.Context, id string) (*drawdto.GameState, error) {
	s, err := r.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state()
	return &st, nil
}

// Play applies a move by side.
func (r *Registry) Play(ctx context.Context, id string, side draw.Color, move string) (*drawdto.MoveResponse, error) {
	if !side.Valid() {
		return nil, ErrInvalidSide
	}
	s, err := r.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken != nil {
		return nil, s.broken
	}
	if s.result != nil {
		return nil, draw.ErrGameOver
	}
	if turn := s.game.Turn(); turn != side {
		return nil, fmt.Errorf("%w: %s to move", ErrNotYourTurn, turn)
	}
	p, err := s.game.Play(move)
	if err != nil {
		return nil, err
	}
	s.updatedAt = r.now()

	if p.Checkmate {
		r.finishDecisive(ctx, s, side, "checkmate")
	} else {
		st, err := s.draws.Update(p.Position, p.Info)
		if err != nil {
			s.broken = fmt.Errorf("session %s: %w", id, err)
			r.logger.Error("draw_session_update_error", zap.String("session_id", id), zap.String("uci", p.UCI), zap.Error(err))
			return nil, s.broken
		}
		switch {
		case st.Ended:
			r.finishDraw(ctx, s, *st.Ending, "")
		default:
			// the engine ends some games on its own, e.g. fivefold repetition
			if res, method := s.game.Outcome(); res != rules.ResultOngoing {
				r.finishEngine(ctx, s, res, method)
			}
		}
	}

	r.logger.Info("draw_session_move",
		zap.String("session_id", id),
		zap.String("side", side.String()),
		zap.String("uci", p.UCI),
		zap.String("san", p.SAN),
		zap.Bool("ended", s.result != nil),
	)
	st, err := r.commit(ctx, s)
	if err != nil {
		return nil, err
	}
	return &drawdto.MoveResponse{State: st, UCI: p.UCI, SAN: p.SAN}, nil
}

// Offer opens a draw offer by side.
func (r *Registry) Offer(ctx context.Context, id string, side draw.Color) (*drawdto.GameState, error) {
	return r.mutate(ctx, id, side, func(s *Session) error {
		_, err := s.draws.Offer(side)
		return err
	})
}

// Accept ends the game by agreement; side must be the one that did not offer.
func (r *Registry) Accept(ctx context.Context, id string, side draw.Color) (*drawdto.GameState, error) {
	return r.mutate(ctx, id, side, func(s *Session) error {
		c, err := s.draws.Accept(side)
		if err != nil {
			return err
		}
		r.finishDraw(ctx, s, c, s.sideName(side))
		return nil
	})
}

func (r *Registry) Decline(ctx context.Context, id string, side draw.Color) (*drawdto.GameState, error) {
	return r.mutate(ctx, id, side, func(s *Session) error {
		_, err := s.draws.Decline(side)
		return err
	})
}

func (r *Registry) Withdraw(ctx context.Context, id string, side draw.Color) (*drawdto.GameState, error) {
	return r.mutate(ctx, id, side, func(s *Session) error {
		_, err := s.draws.Withdraw(side)
		return err
	})
}

// Claim ends the game with a claimable draw. Either side may claim.
func (r *Registry) Claim(ctx context.Context, id string, side draw.Color, reason draw.Reason) (*drawdto.GameState, error) {
	return r.mutate(ctx, id, side, func(s *Session) error {
		c, err := s.draws.Claim(reason)
		if err != nil {
			return err
		}
		r.finishDraw(ctx, s, c, s.sideName(side))
		return nil
	})
}

// Close drops the session from memory and from the snapshot store.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if r.store != nil {
		if err := r.store.Delete(ctx, id); err != nil {
			return err
		}
	} else if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.logger.Info("draw_session_close", zap.String("session_id", id))
	return nil
}

// Len is the number of sessions held in memory.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) mutate(ctx context.Context, id string, side draw.Color, fn func(*Session) error) (*drawdto.GameState, error) {
	if !side.Valid() {
		return nil, ErrInvalidSide
	}
	s, err := r.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken != nil {
		return nil, s.broken
	}
	// checkmate and engine endings never reach the draw manager
	if s.result != nil {
		return nil, draw.ErrGameOver
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	s.updatedAt = r.now()
	return r.commit(ctx, s)
}

func (r *Registry) lookup(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}
	if r.store == nil || id == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	snap, err := r.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	s, err = r.restore(snap)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// another request may have restored it first
	if cur, ok := r.sessions[id]; ok {
		return cur, nil
	}
	r.sessions[id] = s
	return s, nil
}

// commit saves the snapshot and notifies the publisher. Callers hold s.mu.
// When the save fails the in-memory session is ahead of the store, so it is
// marked broken and evicted; the next lookup restores the saved state.
func (r *Registry) commit(ctx context.Context, s *Session) (*drawdto.GameState, error) {
	st := s.state()
	if r.store != nil {
		if err := r.store.Save(ctx, st); err != nil {
			s.broken = fmt.Errorf("%w: %s: %w", ErrSnapshotFailed, s.id, err)
			r.mu.Lock()
			if r.sessions[s.id] == s {
				delete(r.sessions, s.id)
			}
			r.mu.Unlock()
			r.logger.Error("draw_session_snapshot_error", zap.String("session_id", s.id), zap.Error(err))
			return nil, s.broken
		}
	}
	if r.publisher != nil {
		r.publisher.Publish(st)
	}
	return &st, nil
}
