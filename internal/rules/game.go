// Package rules wraps the move generator. It owns legality, checkmate and
// notation; draw bookkeeping lives in package draw.
package rules

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/cheese-draw/internal/draw"
)

var (
	ErrIllegalMove = errors.New("illegal move")
	ErrInvalidFEN  = errors.New("invalid start position")
)

// Result strings as they appear in PGN.
const (
	ResultOngoing  = "*"
	ResultWhiteWon = "1-0"
	ResultBlackWon = "0-1"
	ResultDraw     = "1/2-1/2"
)

// Game is one game driven by UCI or SAN input. Not safe for concurrent use.
type Game struct {
	game     *nchess.Game
	startFEN string
	uci      []string
	san      []string
}

// Played describes a move that was just applied.
type Played struct {
	UCI      string
	SAN      string
	FEN      string
	Position draw.Position
	Info     draw.MoveInfo
	// Checkmate is set when the mover delivered mate.
	Checkmate bool
}

// New starts a game from fen; "" and "startpos" mean the initial position.
func New(fen string) (*Game, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || strings.EqualFold(fen, "startpos") {
		return &Game{game: nchess.NewGame(), startFEN: draw.StartFEN}, nil
	}
	// our own parser is stricter about kings and pawns on the back rank
	if _, _, err := draw.ParseFEN(fen); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFEN, err)
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFEN, err)
	}
	return &Game{game: nchess.NewGame(opt), startFEN: fen}, nil
}

// Replay rebuilds a game from its start position and UCI move list.
func Replay(fen string, moves []string) (*Game, []Played, error) {
	g, err := New(fen)
	if err != nil {
		return nil, nil, err
	}
	played := make([]Played, 0, len(moves))
	for i, mv := range moves {
		p, err := g.Play(mv)
		if err != nil {
			return nil, nil, fmt.Errorf("replay move %d (%s): %w", i+1, mv, err)
		}
		played = append(played, p)
	}
	return g, played, nil
}

// Play applies a move given in UCI ("g1f3") or SAN ("Nf3").
func (g *Game) Play(raw string) (Played, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Played{}, fmt.Errorf("%w: empty move", ErrIllegalMove)
	}
	before := g.game.Position()
	if err := g.game.PushNotationMove(strings.ToLower(raw), nchess.UCINotation{}, nil); err != nil {
		if err := g.game.PushNotationMove(raw, nchess.AlgebraicNotation{}, nil); err != nil {
			return Played{}, fmt.Errorf("%w: %s", ErrIllegalMove, raw)
		}
	}
	last := lastMove(g.game)
	if last == nil {
		return Played{}, fmt.Errorf("%w: %s", ErrIllegalMove, raw)
	}

	fen := g.game.FEN()
	pos, _, err := draw.ParseFEN(fen)
	if err != nil {
		return Played{}, err
	}
	p := Played{
		UCI:      last.String(),
		SAN:      nchess.AlgebraicNotation{}.Encode(before, last),
		FEN:      fen,
		Position: pos,
		Info: draw.MoveInfo{
			Irreversible: irreversible(before, last),
			InCheck:      last.HasTag(nchess.Check),
			Stalemate:    g.game.Method() == nchess.Stalemate,
		},
		Checkmate: g.game.Method() == nchess.Checkmate,
	}
	g.uci = append(g.uci, p.UCI)
	g.san = append(g.san, p.SAN)
	return p, nil
}

// Position returns the current position in draw form along with its clocks.
func (g *Game) Position() (draw.Position, draw.FENClocks, error) {
	return draw.ParseFEN(g.game.FEN())
}

func (g *Game) FEN() string      { return g.game.FEN() }
func (g *Game) StartFEN() string { return g.startFEN }

func (g *Game) Turn() draw.Color {
	if g.game.Position().Turn() == nchess.White {
		return draw.White
	}
	return draw.Black
}

func (g *Game) MovesUCI() []string { return append([]string(nil), g.uci...) }
func (g *Game) MovesSAN() []string { return append([]string(nil), g.san...) }

// Outcome reports the engine's verdict as a PGN result plus the method name,
// e.g. "1-0" and "checkmate". Ongoing games return "*" and "".
func (g *Game) Outcome() (string, string) {
	switch g.game.Outcome() {
	case nchess.WhiteWon:
		return ResultWhiteWon, methodName(g.game.Method())
	case nchess.BlackWon:
		return ResultBlackWon, methodName(g.game.Method())
	case nchess.Draw:
		return ResultDraw, methodName(g.game.Method())
	default:
		return ResultOngoing, ""
	}
}

func methodName(m nchess.Method) string {
	return strings.ToLower(m.String())
}

// irreversible: pawn moves and captures, en passant included.
func irreversible(before *nchess.Position, mv *nchess.Move) bool {
	if mv.HasTag(nchess.Capture) || mv.HasTag(nchess.EnPassant) {
		return true
	}
	return before.Board().Piece(mv.S1()).Type() == nchess.Pawn
}

func lastMove(game *nchess.Game) *nchess.Move {
	moves := game.Moves()
	if len(moves) == 0 {
		return nil
	}
	return moves[len(moves)-1]
}
