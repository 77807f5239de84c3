package draw

import (
	"fmt"
	"strings"
)

// Color identifies a side.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) Valid() bool { return c == White || c == Black }

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return fmt.Sprintf("color(%d)", uint8(c))
	}
}

// ParseColor accepts "white"/"w" and "black"/"b".
func ParseColor(s string) (Color, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, true
	case "black", "b":
		return Black, true
	default:
		return 0, false
	}
}

// Kind is a piece kind. NoKind marks an empty square.
type Kind uint8

const (
	NoKind Kind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

const kindCount = 7

func (k Kind) String() string {
	switch k {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return "none"
	}
}

// Piece is the content of one square. The zero value is an empty square.
type Piece struct {
	Color Color
	Kind  Kind
}

func (p Piece) Empty() bool { return p.Kind == NoKind }

// Square indexes the board from a1 (0) to h8 (63).
type Square uint8

// NewSquare builds a square from zero-based file and rank.
func NewSquare(file File, rank int) Square { return Square(rank*8 + int(file)) }

func (s Square) File() File { return File(s % 8) }
func (s Square) Rank() int  { return int(s / 8) }

// Light reports whether the square is a light square (a1 is dark).
func (s Square) Light() bool { return (int(s.File())+s.Rank())%2 == 1 }

func (s Square) String() string {
	return fmt.Sprintf("%c%d", 'a'+rune(s.File()), s.Rank()+1)
}

// File is a zero-based board file, a=0.
type File int8

// CastlingRights is a bitmask of the four castling flags.
type CastlingRights uint8

const (
	WhiteKingside CastlingRights = 1 << iota
	WhiteQueenside
	BlackKingside
	BlackQueenside
)

func (c CastlingRights) String() string {
	if c == 0 {
		return "-"
	}
	var b strings.Builder
	if c&WhiteKingside != 0 {
		b.WriteByte('K')
	}
	if c&WhiteQueenside != 0 {
		b.WriteByte('Q')
	}
	if c&BlackKingside != 0 {
		b.WriteByte('k')
	}
	if c&BlackQueenside != 0 {
		b.WriteByte('q')
	}
	return b.String()
}

// Position is the part of a game state that matters for draw detection.
type Position struct {
	Board        [64]Piece
	SideToMove   Color
	Castling     CastlingRights
	EnPassant    File
	HasEnPassant bool
}

// Piece returns the piece on sq.
func (p *Position) Piece(sq Square) Piece { return p.Board[sq] }

// Validate checks the structural invariants the rules engine guarantees:
// one king per side, no pawns on the back ranks, a known side to move.
func (p *Position) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil position", ErrCorruptPosition)
	}
	if !p.SideToMove.Valid() {
		return fmt.Errorf("%w: side to move %d", ErrCorruptPosition, p.SideToMove)
	}
	if p.HasEnPassant && (p.EnPassant < 0 || p.EnPassant > 7) {
		return fmt.Errorf("%w: en passant file %d", ErrCorruptPosition, p.EnPassant)
	}
	var kings [2]int
	for i, pc := range p.Board {
		if pc.Empty() {
			continue
		}
		if !pc.Color.Valid() || pc.Kind >= kindCount {
			return fmt.Errorf("%w: bad piece on %s", ErrCorruptPosition, Square(i))
		}
		switch pc.Kind {
		case King:
			kings[pc.Color]++
		case Pawn:
			if r := Square(i).Rank(); r == 0 || r == 7 {
				return fmt.Errorf("%w: pawn on %s", ErrCorruptPosition, Square(i))
			}
		}
	}
	if kings[White] != 1 || kings[Black] != 1 {
		return fmt.Errorf("%w: kings white=%d black=%d", ErrCorruptPosition, kings[White], kings[Black])
	}
	return nil
}

// king returns the square of c's king; Validate guarantees there is one.
func (p *Position) king(c Color) Square {
	for i, pc := range p.Board {
		if pc.Kind == King && pc.Color == c {
			return Square(i)
		}
	}
	return 0
}
