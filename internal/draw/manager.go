package draw

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// MoveInfo is what the rules engine knows about the move that produced a position.
type MoveInfo struct {
	// Irreversible is set for pawn moves and captures.
	Irreversible bool
	// Stalemate is set when the side to move has no legal move and is not in check.
	Stalemate bool
	// InCheck is set when the side to move is in check.
	InCheck bool
}

// Config tunes a Manager. The zero value starts from move 1 with the
// default dead-position heuristic.
type Config struct {
	Dead         DeadPositionDetector
	Clocks       FENClocks
	StartInCheck bool
}

// Manager tracks draw conditions for one game. Create one per game session;
// every exported method runs under a single lock.
type Manager struct {
	mu sync.Mutex

	hasher   Hasher
	reps     *RepetitionTracker
	clock    MoveClock
	analyzer *MaterialAnalyzer
	offers   *OfferProtocol
	logger   *zap.Logger

	keys   []PositionKey
	checks []bool

	threefold *Condition
	claimable []Condition
	ending    *Condition
}

// NewManager validates the starting position and records it as the first occurrence.
func NewManager(start Position, cfg Config, logger *zap.Logger) (*Manager, error) {
	if err := start.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		reps:     NewRepetitionTracker(),
		clock:    NewMoveClock(cfg.Clocks.Halfmove, cfg.Clocks.Ply(start.SideToMove)),
		analyzer: NewMaterialAnalyzer(cfg.Dead),
		offers:   NewOfferProtocol(),
		logger:   logger,
	}
	key := m.hasher.Key(&start)
	m.reps.Record(key, m.clock.Ply(), cfg.StartInCheck)
	m.keys = append(m.keys, key)
	m.checks = append(m.checks, cfg.StartInCheck)
	// a seeded clock or a bare-kings FEN can already be decisive
	m.evaluate(&start, key, 1, MoveInfo{InCheck: cfg.StartInCheck}, m.clock.Ply())
	return m, nil
}

// Update registers the position reached by the move just played.
func (m *Manager) Update(pos Position, info MoveInfo) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ending != nil {
		return m.statusLocked(), ErrGameOver
	}
	if err := pos.Validate(); err != nil {
		m.logger.Error("draw_corrupt_position", zap.Int("ply", m.clock.Ply()+1), zap.Error(err))
		return m.statusLocked(), err
	}

	mover := pos.SideToMove.Other()
	ply := m.clock.Ply() + 1
	key := m.hasher.Key(&pos)
	count := m.reps.Record(key, ply, info.InCheck)
	m.clock.Observe(info.Irreversible)
	m.keys = append(m.keys, key)
	m.checks = append(m.checks, info.InCheck)

	if off, cancelled := m.offers.MovePlayed(mover, ply); cancelled {
		m.logger.Info("draw_offer_cancelled",
			zap.String("offered_by", off.By.String()),
			zap.Int("offer_ply", off.Ply),
			zap.Int("ply", ply),
		)
	}

	m.evaluate(&pos, key, count, info, ply)
	return m.statusLocked(), nil
}

// evaluate rebuilds the claimable set and ends the game on an automatic condition.
func (m *Manager) evaluate(pos *Position, key PositionKey, count int, info MoveInfo, ply int) {
	snap := NewMaterialSnapshot(pos)
	material := m.analyzer.Classify(snap)

	if count >= 3 {
		entry, _ := m.reps.Entry(key)
		m.threefold = &Condition{
			Reason:      ThreefoldRepetition,
			Ply:         ply,
			Key:         key,
			Perpetual:   entry.AllInCheck,
			Description: fmt.Sprintf("Position repeated %d times (plies %s)", entry.Count, joinPlies(entry.Plies)),
		}
		if entry.AllInCheck {
			m.threefold.Description += ", side to move in check each time"
		}
	}

	var automatic *Condition
	switch {
	case info.Stalemate:
		automatic = &Condition{
			Reason:      Stalemate,
			Description: fmt.Sprintf("%s to move has no legal moves and is not in check", pos.SideToMove),
		}
	case m.clock.SeventyFiveMove():
		automatic = &Condition{
			Reason:      SeventyFiveMove,
			Description: fmt.Sprintf("75 moves without capture or pawn move (halfmove clock %d)", m.clock.Halfmove()),
		}
	case material == Insufficient:
		automatic = &Condition{
			Reason:      InsufficientMaterial,
			Description: snap.Label(),
		}
	case m.analyzer.Dead(pos, snap):
		automatic = &Condition{
			Reason:      DeadPosition,
			Description: fmt.Sprintf("Dead position: checkmate impossible (%s)", snap.Label()),
		}
	}

	if automatic != nil {
		automatic.Automatic = true
		automatic.Ply = ply
		automatic.Key = key
		m.ending = automatic
		m.claimable = nil
		m.logger.Info("draw_automatic",
			zap.String("reason", automatic.Reason.String()),
			zap.Int("ply", ply),
			zap.String("key", key.String()),
			zap.String("description", automatic.Description),
		)
		return
	}

	claimable := make([]Condition, 0, 2)
	if m.threefold != nil {
		claimable = append(claimable, *m.threefold)
	}
	if m.clock.FiftyMove() {
		claimable = append(claimable, Condition{
			Reason:      FiftyMove,
			Ply:         ply,
			Key:         key,
			Description: fmt.Sprintf("50 moves without capture or pawn move (since ply %d)", m.clock.LastIrreversible()),
		})
	}
	m.claimable = claimable

	m.logger.Debug("draw_update",
		zap.Int("ply", ply),
		zap.String("key", key.String()),
		zap.Int("repetitions", count),
		zap.Int("halfmove", m.clock.Halfmove()),
		zap.String("material", material.String()),
		zap.Int("claimable", len(claimable)),
	)
}

// Claim ends the game with a claimable condition.
func (m *Manager) Claim(r Reason) (Condition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ending != nil {
		return Condition{}, fmt.Errorf("%w: %w", ErrInvalidClaim, ErrGameOver)
	}
	for _, c := range m.claimable {
		if !c.Matches(r) {
			continue
		}
		ended := c
		m.ending = &ended
		m.claimable = nil
		m.logger.Info("draw_claim",
			zap.String("reason", ended.Label().String()),
			zap.Int("ply", m.clock.Ply()),
			zap.String("description", ended.Description),
		)
		return ended, nil
	}
	m.logger.Debug("draw_claim_rejected", zap.String("reason", r.String()), zap.Int("ply", m.clock.Ply()))
	return Condition{}, fmt.Errorf("%w: %s", ErrInvalidClaim, r)
}

// Offer opens a draw offer by side by.
func (m *Manager) Offer(by Color) (DrawOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ending != nil {
		return DrawOffer{}, fmt.Errorf("%w: %w", ErrInvalidOffer, ErrGameOver)
	}
	off, err := m.offers.Offer(by, m.clock.Ply())
	if err != nil {
		return DrawOffer{}, err
	}
	m.logger.Info("draw_offer", zap.String("by", by.String()), zap.Int("ply", off.Ply))
	return off, nil
}

// Accept ends the game by agreement. by must be the side that did not offer.
func (m *Manager) Accept(by Color) (Condition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ending != nil {
		return Condition{}, fmt.Errorf("%w: %w", ErrStaleOffer, ErrGameOver)
	}
	ply := m.clock.Ply()
	off, err := m.offers.Accept(by, ply)
	if err != nil {
		return Condition{}, err
	}
	var key PositionKey
	if n := len(m.keys); n > 0 {
		key = m.keys[n-1]
	}
	m.ending = &Condition{
		Reason:      MutualAgreement,
		Automatic:   true,
		Ply:         ply,
		Key:         key,
		Description: fmt.Sprintf("Draw agreed (offered by %s at ply %d, accepted by %s)", off.By, off.Ply, by),
	}
	m.claimable = nil
	m.logger.Info("draw_accept", zap.String("by", by.String()), zap.String("offered_by", off.By.String()), zap.Int("ply", ply))
	return *m.ending, nil
}

func (m *Manager) Decline(by Color) (DrawOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ending != nil {
		return DrawOffer{}, fmt.Errorf("%w: %w", ErrStaleOffer, ErrGameOver)
	}
	off, err := m.offers.Decline(by, m.clock.Ply())
	if err != nil {
		return DrawOffer{}, err
	}
	m.logger.Info("draw_decline", zap.String("by", by.String()), zap.String("offered_by", off.By.String()))
	return off, nil
}

func (m *Manager) Withdraw(by Color) (DrawOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ending != nil {
		return DrawOffer{}, fmt.Errorf("%w: %w", ErrStaleOffer, ErrGameOver)
	}
	return m.offers.Withdraw(by, m.clock.Ply())
}

// MarkOffered restores the rule that by may not offer again before the next
// move. It does not open an offer.
func (m *Manager) MarkOffered(by Color) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ending != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOffer, ErrGameOver)
	}
	return m.offers.MarkOffered(by)
}

// Status returns the current snapshot without changing anything.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

// History exports the tracking state.
func (m *Manager) History() History {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := History{
		Keys:             make([]string, len(m.keys)),
		Repetitions:      m.reps.Entries(),
		CheckFlags:       append([]bool(nil), m.checks...),
		Halfmove:         m.clock.Halfmove(),
		Ply:              m.clock.Ply(),
		LastIrreversible: m.clock.LastIrreversible(),
	}
	for i, k := range m.keys {
		h.Keys[i] = k.String()
	}
	if off, ok := m.offers.Last(); ok {
		h.LastOffer = &off
	}
	return h
}

func (m *Manager) statusLocked() Status {
	st := Status{
		Ended:          m.ending != nil,
		Ply:            m.clock.Ply(),
		Halfmove:       m.clock.Halfmove(),
		MaxRepetitions: m.reps.MaxCount(),
	}
	if m.ending != nil {
		end := *m.ending
		st.Ending = &end
	}
	if len(m.claimable) > 0 {
		st.Claimable = append([]Condition(nil), m.claimable...)
	}
	if off, ok := m.offers.Last(); ok {
		st.Offer = &off
	}
	for _, c := range [2]Color{White, Black} {
		if m.offers.Offered(c) {
			st.OfferedSinceMove = append(st.OfferedSinceMove, c)
		}
	}
	return st
}

func joinPlies(plies []int) string {
	var b []byte
	for i, p := range plies {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = fmt.Appendf(b, "%d", p)
	}
	return string(b)
}
