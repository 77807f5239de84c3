package draw

import (
	"errors"
	"sync"
	"testing"
)

// knight shuffle 1.Nf3 Nf6 2.Ng1 Ng8, back to the initial position
var shuffle = []string{
	"rnbqkbnr/pppppppp/8/8/8/5N2/PPPPPPPP/RNBQKB1R b KQkq - 1 1",
	"rnbqkb1r/pppppppp/5n2/8/8/5N2/PPPPPPPP/RNBQKB1R w KQkq - 2 2",
	"rnbqkb1r/pppppppp/5n2/8/8/8/PPPPPPPP/RNBQKBNR b KQkq - 3 2",
	StartFEN,
}

func newStartManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(MustParseFEN(StartFEN), Config{}, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func play(t *testing.T, m *Manager, fen string, info MoveInfo) Status {
	t.Helper()
	st, err := m.Update(MustParseFEN(fen), info)
	if err != nil {
		t.Fatalf("Update(%q): %v", fen, err)
	}
	return st
}

func TestKnightShuffleThreefold(t *testing.T) {
	m := newStartManager(t)
	for round := 0; round < 2; round++ {
		for i, fen := range shuffle {
			st := play(t, m, fen, MoveInfo{})
			last := round == 1 && i == len(shuffle)-1
			if st.CanClaim(ThreefoldRepetition) != last {
				t.Fatalf("round %d move %d: claimable=%v", round, i, !last)
			}
			if !last {
				if _, err := m.Claim(ThreefoldRepetition); !errors.Is(err, ErrInvalidClaim) {
					t.Fatalf("early claim: %v", err)
				}
			}
		}
	}
	st := m.Status()
	if st.MaxRepetitions != 3 || st.Ply != 8 || st.Halfmove != 8 {
		t.Fatalf("status = %+v", st)
	}
	c, err := m.Claim(ThreefoldRepetition)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if c.Reason != ThreefoldRepetition || c.Automatic || c.Ply != 8 {
		t.Fatalf("condition = %+v", c)
	}
	if st := m.Status(); !st.Ended || st.Ending == nil || st.Ending.Reason != ThreefoldRepetition {
		t.Fatalf("game not ended: %+v", st)
	}
	if _, err := m.Claim(ThreefoldRepetition); !errors.Is(err, ErrInvalidClaim) || !errors.Is(err, ErrGameOver) {
		t.Fatalf("claim after end: %v", err)
	}
	if _, err := m.Update(MustParseFEN(shuffle[0]), MoveInfo{}); !errors.Is(err, ErrGameOver) {
		t.Fatalf("update after end: %v", err)
	}
}

func TestThreefoldStaysClaimable(t *testing.T) {
	m := newStartManager(t)
	for round := 0; round < 2; round++ {
		for _, fen := range shuffle {
			play(t, m, fen, MoveInfo{})
		}
	}
	// moving on keeps the right to claim
	st := play(t, m, shuffle[0], MoveInfo{})
	if !st.CanClaim(ThreefoldRepetition) {
		t.Fatalf("threefold dropped after a further move")
	}
	if st.Ended {
		t.Fatalf("threefold must not end the game on its own")
	}
}

func TestPerpetualCheckLabel(t *testing.T) {
	m, err := NewManager(MustParseFEN(StartFEN), Config{StartInCheck: true}, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	for round := 0; round < 2; round++ {
		for _, fen := range shuffle {
			play(t, m, fen, MoveInfo{InCheck: true})
		}
	}
	c, err := m.Claim(PerpetualCheck)
	if err != nil {
		t.Fatalf("Claim(PerpetualCheck): %v", err)
	}
	if c.Label() != PerpetualCheck || !c.Perpetual {
		t.Fatalf("condition = %+v", c)
	}
}

func TestPerpetualCheckNeedsChecks(t *testing.T) {
	m := newStartManager(t)
	for round := 0; round < 2; round++ {
		for _, fen := range shuffle {
			play(t, m, fen, MoveInfo{})
		}
	}
	if _, err := m.Claim(PerpetualCheck); !errors.Is(err, ErrInvalidClaim) {
		t.Fatalf("perpetual without checks: %v", err)
	}
}

const rookEnding = "4k3/8/8/8/8/8/8/R3K3 w - - 0 1"

var rookShuffle = []string{
	"4k3/8/8/8/8/8/8/1R2K3 b - - 0 1",
	"3k4/8/8/8/8/8/8/1R2K3 w - - 0 1",
	"3k4/8/8/8/8/8/8/R3K3 b - - 0 1",
	"4k3/8/8/8/8/8/8/R3K3 w - - 0 1",
}

func TestFiftyAndSeventyFiveMove(t *testing.T) {
	m, err := NewManager(MustParseFEN(rookEnding), Config{Clocks: FENClocks{Halfmove: 98, Fullmove: 60}}, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	st := play(t, m, rookShuffle[0], MoveInfo{})
	if st.Halfmove != 99 || st.CanClaim(FiftyMove) {
		t.Fatalf("halfmove 99: %+v", st)
	}
	st = play(t, m, rookShuffle[1], MoveInfo{})
	if !st.CanClaim(FiftyMove) {
		t.Fatalf("fifty-move not claimable at 100")
	}
	for i := 2; st.Halfmove < 149; i++ {
		st = play(t, m, rookShuffle[i%len(rookShuffle)], MoveInfo{})
		if st.Ended {
			t.Fatalf("ended early at halfmove %d: %+v", st.Halfmove, st.Ending)
		}
		if !st.CanClaim(FiftyMove) {
			t.Fatalf("fifty-move not claimable at %d", st.Halfmove)
		}
	}
	st = play(t, m, rookShuffle[0], MoveInfo{})
	if !st.Ended || st.Ending.Reason != SeventyFiveMove || !st.Ending.Automatic {
		t.Fatalf("expected automatic 75-move draw: %+v", st)
	}
	if len(st.Claimable) != 0 {
		t.Fatalf("claimable after automatic end: %+v", st.Claimable)
	}
}

func TestIrreversibleMoveResetsClock(t *testing.T) {
	m, err := NewManager(MustParseFEN(rookEnding), Config{Clocks: FENClocks{Halfmove: 120}}, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if !m.Status().CanClaim(FiftyMove) {
		t.Fatalf("seeded clock should make fifty-move claimable")
	}
	st := play(t, m, rookShuffle[0], MoveInfo{Irreversible: true})
	if st.Halfmove != 0 || st.CanClaim(FiftyMove) {
		t.Fatalf("after reset: %+v", st)
	}
}

func TestAutomaticInsufficientMaterial(t *testing.T) {
	m := newStartManager(t)
	st := play(t, m, "4k3/8/8/8/8/8/8/4KB2 b - - 0 1", MoveInfo{Irreversible: true})
	if !st.Ended || st.Ending.Reason != InsufficientMaterial {
		t.Fatalf("expected insufficient material: %+v", st)
	}
	if st.Ending.Description != "King + Bishop vs King" {
		t.Fatalf("description = %q", st.Ending.Description)
	}
}

func TestAutomaticStalemateAndDeadPosition(t *testing.T) {
	m := newStartManager(t)
	st := play(t, m, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", MoveInfo{Stalemate: true})
	if !st.Ended || st.Ending.Reason != Stalemate {
		t.Fatalf("expected stalemate: %+v", st)
	}

	m = newStartManager(t)
	st = play(t, m, "4k3/8/8/p1p1p1p1/P1P1P1P1/8/8/4K3 b - - 0 1", MoveInfo{})
	if !st.Ended || st.Ending.Reason != DeadPosition {
		t.Fatalf("expected dead position: %+v", st)
	}
}

func TestNewManagerDecisiveStart(t *testing.T) {
	m, err := NewManager(MustParseFEN("4k3/8/8/8/8/8/8/4K3 w - - 0 1"), Config{}, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if st := m.Status(); !st.Ended || st.Ending.Reason != InsufficientMaterial {
		t.Fatalf("bare kings must end at once: %+v", st)
	}
}

func TestCorruptPosition(t *testing.T) {
	if _, err := NewManager(Position{}, Config{}, nil); !errors.Is(err, ErrCorruptPosition) {
		t.Fatalf("NewManager(empty): %v", err)
	}
	m := newStartManager(t)
	var bad Position
	bad.Board[0] = Piece{White, King}
	if _, err := m.Update(bad, MoveInfo{}); !errors.Is(err, ErrCorruptPosition) {
		t.Fatalf("Update(one king): %v", err)
	}
	if st := m.Status(); st.Ply != 0 || st.Ended {
		t.Fatalf("corrupt input changed state: %+v", st)
	}
}

func TestOfferAcceptEndsGame(t *testing.T) {
	m := newStartManager(t)
	if _, err := m.Offer(White); err != nil {
		t.Fatalf("Offer: %v", err)
	}
	c, err := m.Accept(Black)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if c.Reason != MutualAgreement {
		t.Fatalf("condition = %+v", c)
	}
	st := m.Status()
	if !st.Ended || st.Offer == nil || st.Offer.Status != OfferAccepted {
		t.Fatalf("status = %+v", st)
	}
	if _, err := m.Offer(Black); !errors.Is(err, ErrGameOver) {
		t.Fatalf("offer after end: %v", err)
	}
}

func TestOfferCancelledByOwnMove(t *testing.T) {
	m := newStartManager(t)
	m.Offer(White)
	play(t, m, shuffle[0], MoveInfo{})
	if _, err := m.Accept(Black); !errors.Is(err, ErrStaleOffer) {
		t.Fatalf("stale accept: %v", err)
	}
	if st := m.Status(); st.Ended || st.Offer.Status != OfferWithdrawn {
		t.Fatalf("status = %+v", st)
	}
}

func TestOfferSurvivesRejectedClaim(t *testing.T) {
	m := newStartManager(t)
	m.Offer(White)
	if _, err := m.Claim(FiftyMove); !errors.Is(err, ErrInvalidClaim) {
		t.Fatalf("claim: %v", err)
	}
	if _, err := m.Decline(Black); err != nil {
		t.Fatalf("Decline after claim: %v", err)
	}
	if _, err := m.Withdraw(White); !errors.Is(err, ErrStaleOffer) {
		t.Fatalf("withdraw after decline: %v", err)
	}
}

func TestStatusListsSidesThatOffered(t *testing.T) {
	m := newStartManager(t)
	m.Offer(White)
	m.Decline(Black)
	st := m.Status()
	if len(st.OfferedSinceMove) != 1 || st.OfferedSinceMove[0] != White {
		t.Fatalf("offered = %v", st.OfferedSinceMove)
	}
	play(t, m, shuffle[0], MoveInfo{})
	if st := m.Status(); len(st.OfferedSinceMove) != 0 {
		t.Fatalf("offered after move = %v", st.OfferedSinceMove)
	}

	fresh := newStartManager(t)
	if err := fresh.MarkOffered(Black); err != nil {
		t.Fatalf("MarkOffered: %v", err)
	}
	if _, err := fresh.Offer(Black); !errors.Is(err, ErrInvalidOffer) {
		t.Fatalf("offer after MarkOffered: %v", err)
	}
}

func TestHistoryExport(t *testing.T) {
	m := newStartManager(t)
	for _, fen := range shuffle {
		play(t, m, fen, MoveInfo{})
	}
	m.Offer(Black)
	h := m.History()
	if len(h.Keys) != 5 || len(h.CheckFlags) != 5 || h.Ply != 4 || h.Halfmove != 4 {
		t.Fatalf("history = %+v", h)
	}
	if h.Keys[0] != h.Keys[4] {
		t.Fatalf("start key %s != final key %s", h.Keys[0], h.Keys[4])
	}
	if len(h.Repetitions) != 4 || h.LastOffer == nil || h.LastOffer.By != Black {
		t.Fatalf("history = %+v", h)
	}
}

func TestManagerConcurrentAccess(t *testing.T) {
	m := newStartManager(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = m.Status()
				_ = m.History()
				m.Claim(ThreefoldRepetition)
			}
		}()
	}
	for round := 0; round < 2; round++ {
		for _, fen := range shuffle {
			if _, err := m.Update(MustParseFEN(fen), MoveInfo{}); err != nil && !errors.Is(err, ErrGameOver) {
				t.Errorf("Update: %v", err)
			}
		}
	}
	wg.Wait()
	if st := m.Status(); st.Ply != 8 && !st.Ended {
		t.Fatalf("status = %+v", st)
	}
}
