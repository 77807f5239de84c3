package draw

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var ErrInvalidFEN = errors.New("invalid FEN")

// FENClocks carries the halfmove clock and fullmove number fields of a FEN.
type FENClocks struct {
	Halfmove int
	Fullmove int
}

// Ply converts the fullmove number and side to move into a ply count.
func (c FENClocks) Ply(side Color) int {
	fm := c.Fullmove
	if fm < 1 {
		fm = 1
	}
	ply := (fm - 1) * 2
	if side == Black {
		ply++
	}
	return ply
}

var fenPieces = map[byte]Piece{
	'P': {White, Pawn}, 'N': {White, Knight}, 'B': {White, Bishop},
	'R': {White, Rook}, 'Q': {White, Queen}, 'K': {White, King},
	'p': {Black, Pawn}, 'n': {Black, Knight}, 'b': {Black, Bishop},
	'r': {Black, Rook}, 'q': {Black, Queen}, 'k': {Black, King},
}

// ParseFEN reads a FEN record. "startpos" is accepted as an alias for StartFEN.
// Missing clock fields default to 0 and 1. The result is validated.
func ParseFEN(fen string) (Position, FENClocks, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || strings.EqualFold(fen, "startpos") {
		fen = StartFEN
	}
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return Position{}, FENClocks{}, fmt.Errorf("%w: expected at least 4 fields, got %d", ErrInvalidFEN, len(fields))
	}

	var pos Position
	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return Position{}, FENClocks{}, fmt.Errorf("%w: expected 8 ranks", ErrInvalidFEN)
	}
	for i, row := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(row); j++ {
			ch := row[j]
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				continue
			}
			pc, ok := fenPieces[ch]
			if !ok {
				return Position{}, FENClocks{}, fmt.Errorf("%w: unknown piece %q", ErrInvalidFEN, ch)
			}
			if file > 7 {
				return Position{}, FENClocks{}, fmt.Errorf("%w: rank %d overflows", ErrInvalidFEN, rank+1)
			}
			pos.Board[NewSquare(File(file), rank)] = pc
			file++
		}
		if file != 8 {
			return Position{}, FENClocks{}, fmt.Errorf("%w: rank %d has %d files", ErrInvalidFEN, rank+1, file)
		}
	}

	switch fields[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return Position{}, FENClocks{}, fmt.Errorf("%w: side to move %q", ErrInvalidFEN, fields[1])
	}

	if fields[2] != "-" {
		for _, ch := range fields[2] {
			switch ch {
			case 'K':
				pos.Castling |= WhiteKingside
			case 'Q':
				pos.Castling |= WhiteQueenside
			case 'k':
				pos.Castling |= BlackKingside
			case 'q':
				pos.Castling |= BlackQueenside
			default:
				return Position{}, FENClocks{}, fmt.Errorf("%w: castling %q", ErrInvalidFEN, fields[2])
			}
		}
	}

	if ep := fields[3]; ep != "-" {
		if len(ep) != 2 || ep[0] < 'a' || ep[0] > 'h' || (ep[1] != '3' && ep[1] != '6') {
			return Position{}, FENClocks{}, fmt.Errorf("%w: en passant %q", ErrInvalidFEN, ep)
		}
		pos.EnPassant = File(ep[0] - 'a')
		pos.HasEnPassant = true
	}

	clocks := FENClocks{Halfmove: 0, Fullmove: 1}
	if len(fields) >= 5 {
		n, err := strconv.Atoi(fields[4])
		if err != nil || n < 0 {
			return Position{}, FENClocks{}, fmt.Errorf("%w: halfmove clock %q", ErrInvalidFEN, fields[4])
		}
		clocks.Halfmove = n
	}
	if len(fields) >= 6 {
		n, err := strconv.Atoi(fields[5])
		if err != nil || n < 1 {
			return Position{}, FENClocks{}, fmt.Errorf("%w: fullmove number %q", ErrInvalidFEN, fields[5])
		}
		clocks.Fullmove = n
	}

	if err := pos.Validate(); err != nil {
		return Position{}, FENClocks{}, err
	}
	return pos, clocks, nil
}

// MustParseFEN is ParseFEN for package-level fixtures; it panics on error.
func MustParseFEN(fen string) Position {
	pos, _, err := ParseFEN(fen)
	if err != nil {
		panic(err)
	}
	return pos
}
