package draw

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

const (
	packedBoardBytes = 32
	packedLen        = packedBoardBytes + 3
	noEnPassant      = 0xff
)

type packedPosition [packedLen]byte

// PositionKey identifies a position for repetition purposes. Hash is used for
// bucketing; Equal compares the full canonical encoding.
type PositionKey struct {
	Hash   uint64
	packed packedPosition
}

func (k PositionKey) Equal(o PositionKey) bool {
	return k.Hash == o.Hash && k.packed == o.packed
}

func (k PositionKey) IsZero() bool { return k == PositionKey{} }

func (k PositionKey) String() string { return fmt.Sprintf("%016x", k.Hash) }

// Hasher turns positions into keys. It is stateless and safe for concurrent use.
type Hasher struct{}

// Key canonicalizes pos. Two positions map to equal keys iff placement, side to
// move, castling rights and en-passant availability all match.
func (Hasher) Key(pos *Position) PositionKey {
	var k PositionKey
	for sq := 0; sq < 64; sq += 2 {
		k.packed[sq/2] = nibble(pos.Board[sq]) | nibble(pos.Board[sq+1])<<4
	}
	k.packed[packedBoardBytes] = byte(pos.SideToMove)
	k.packed[packedBoardBytes+1] = byte(pos.Castling)
	k.packed[packedBoardBytes+2] = noEnPassant
	if file, ok := enPassantFile(pos); ok {
		k.packed[packedBoardBytes+2] = byte(file)
	}
	k.Hash = xxhash.Sum64(k.packed[:])
	return k
}

func nibble(p Piece) byte {
	if p.Empty() {
		return 0
	}
	return byte(p.Kind)<<1 | byte(p.Color&1)
}

// enPassantFile reports the en-passant file only when the side to move can
// legally capture onto the target square. A FEN that names a target nobody
// can use describes the same position as one that does not; a pinned
// capturer counts as nobody.
func enPassantFile(pos *Position) (File, bool) {
	if !pos.HasEnPassant {
		return 0, false
	}
	file := pos.EnPassant
	us := pos.SideToMove
	// rank of the pawn that just made the double step, which is also the
	// rank our capturing pawns must stand on
	rank, targetRank := 4, 5
	if us == Black {
		rank, targetRank = 3, 2
	}
	pushedSq := NewSquare(file, rank)
	pushed := pos.Board[pushedSq]
	if pushed.Kind != Pawn || pushed.Color != us.Other() {
		return 0, false
	}
	target := NewSquare(file, targetRank)
	if !pos.Board[target].Empty() {
		return 0, false
	}
	for _, df := range [2]File{-1, 1} {
		f := file + df
		if f < 0 || f > 7 {
			continue
		}
		from := NewSquare(f, rank)
		pc := pos.Board[from]
		if pc.Kind != Pawn || pc.Color != us {
			continue
		}
		if enPassantLegal(pos, from, target, pushedSq) {
			return file, true
		}
	}
	return 0, false
}

// enPassantLegal plays the capture on a copy of the board and reports
// whether the mover's king is safe afterwards.
func enPassantLegal(pos *Position, from, to, captured Square) bool {
	board := pos.Board
	board[to] = board[from]
	board[from] = Piece{}
	board[captured] = Piece{}
	us := pos.SideToMove
	for i, pc := range board {
		if pc.Kind == King && pc.Color == us {
			return !attacked(&board, Square(i), us.Other())
		}
	}
	return false
}

var (
	knightSteps = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	rookRays    = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopRays  = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// attacked reports whether any piece of color by attacks sq.
func attacked(board *[64]Piece, sq Square, by Color) bool {
	f, r := int(sq.File()), sq.Rank()
	at := func(df, dr int) (Piece, bool) {
		nf, nr := f+df, r+dr
		if nf < 0 || nf > 7 || nr < 0 || nr > 7 {
			return Piece{}, false
		}
		return board[NewSquare(File(nf), nr)], true
	}

	// a pawn of color by attacks from one rank behind, seen from sq
	pawnDir := -1
	if by == Black {
		pawnDir = 1
	}
	for _, df := range [2]int{-1, 1} {
		if pc, ok := at(df, pawnDir); ok && pc.Kind == Pawn && pc.Color == by {
			return true
		}
	}
	for _, st := range knightSteps {
		if pc, ok := at(st[0], st[1]); ok && pc.Kind == Knight && pc.Color == by {
			return true
		}
	}
	for df := -1; df <= 1; df++ {
		for dr := -1; dr <= 1; dr++ {
			if df == 0 && dr == 0 {
				continue
			}
			if pc, ok := at(df, dr); ok && pc.Kind == King && pc.Color == by {
				return true
			}
		}
	}
	slide := func(rays [4][2]int, kind Kind) bool {
		for _, ray := range rays {
			for n := 1; n < 8; n++ {
				pc, ok := at(ray[0]*n, ray[1]*n)
				if !ok {
					break
				}
				if pc.Empty() {
					continue
				}
				if pc.Color == by && (pc.Kind == kind || pc.Kind == Queen) {
					return true
				}
				break
			}
		}
		return false
	}
	return slide(rookRays, Rook) || slide(bishopRays, Bishop)
}
