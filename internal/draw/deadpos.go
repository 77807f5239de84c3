package draw

// DeadPositionDetector decides whether neither side can ever checkmate.
// Implementations must be sound: false negatives are fine, false positives
// end games that are still alive.
type DeadPositionDetector interface {
	IsDead(pos *Position, s MaterialSnapshot) bool
}

// BlockadeDetector recognises insufficient material, positions with only
// same-colored bishops left, and locked king-and-pawn structures in which no
// pawn can move or be captured.
type BlockadeDetector struct{}

func (BlockadeDetector) IsDead(pos *Position, s MaterialSnapshot) bool {
	if classifyMaterial(s) == Insufficient {
		return true
	}
	if sameColoredBishopsOnly(s) {
		return true
	}
	return lockedPawnStructure(pos, s)
}

// sameColoredBishopsOnly: bishops confined to one square color can never
// cover a king's orthogonal flight squares.
func sameColoredBishopsOnly(s MaterialSnapshot) bool {
	for _, c := range [2]Color{White, Black} {
		if s.heavy(c) > 0 || s.Counts[c][Knight] > 0 {
			return false
		}
	}
	light := s.LightBishops[White] + s.LightBishops[Black]
	dark := s.DarkBishops[White] + s.DarkBishops[Black]
	return (light > 0) != (dark > 0)
}

func lockedPawnStructure(pos *Position, s MaterialSnapshot) bool {
	for _, c := range [2]Color{White, Black} {
		if s.Counts[c][Knight]+s.Counts[c][Bishop]+s.Counts[c][Rook]+s.Counts[c][Queen] > 0 {
			return false
		}
	}
	if s.Counts[White][Pawn] == 0 || s.Counts[Black][Pawn] == 0 {
		return false
	}
	if _, ok := enPassantFile(pos); ok {
		return false
	}

	var attacked [2][64]bool // squares attacked by pawns of each color
	for i, pc := range pos.Board {
		if pc.Kind != Pawn {
			continue
		}
		for _, t := range pawnTargets(Square(i), pc.Color) {
			attacked[pc.Color][t] = true
		}
	}

	for i, pc := range pos.Board {
		if pc.Kind != Pawn {
			continue
		}
		// any capture available right now, including a pawn checking a king
		for _, t := range pawnTargets(Square(i), pc.Color) {
			if target := pos.Board[t]; !target.Empty() && target.Color != pc.Color {
				return false
			}
		}
	}

	if !allPawnsFrozen(pos) {
		return false
	}

	for _, c := range [2]Color{White, Black} {
		if kingReachesCapture(pos, c, &attacked[c.Other()]) {
			return false
		}
	}
	return true
}

// allPawnsFrozen: every pawn is blocked head-on by an enemy pawn, or stands
// behind a frozen pawn of its own color.
func allPawnsFrozen(pos *Position) bool {
	var frozen [64]bool
	for changed := true; changed; {
		changed = false
		for i, pc := range pos.Board {
			if pc.Kind != Pawn || frozen[i] {
				continue
			}
			ahead, ok := pawnAhead(Square(i), pc.Color)
			if !ok {
				continue
			}
			blocker := pos.Board[ahead]
			if blocker.Kind != Pawn {
				continue
			}
			if blocker.Color != pc.Color || frozen[ahead] {
				frozen[i] = true
				changed = true
			}
		}
	}
	for i, pc := range pos.Board {
		if pc.Kind == Pawn && !frozen[i] {
			return false
		}
	}
	return true
}

// kingReachesCapture floods the squares c's king can ever walk to (no pawns,
// not attacked by enemy pawns) and reports whether one of them touches an
// enemy pawn that no other enemy pawn defends. The enemy king is ignored,
// which only widens the region.
func kingReachesCapture(pos *Position, c Color, enemyAttacks *[64]bool) bool {
	var seen [64]bool
	start := pos.king(c)
	stack := []Square{start}
	seen[start] = true
	for len(stack) > 0 {
		sq := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, n := range kingNeighbors(sq) {
			pc := pos.Board[n]
			if pc.Kind == Pawn {
				if pc.Color != c && !enemyAttacks[n] {
					return true
				}
				continue
			}
			if seen[n] || enemyAttacks[n] {
				continue
			}
			seen[n] = true
			stack = append(stack, n)
		}
	}
	return false
}

func pawnAhead(sq Square, c Color) (Square, bool) {
	r := sq.Rank()
	if c == White {
		if r >= 7 {
			return 0, false
		}
		return sq + 8, true
	}
	if r <= 0 {
		return 0, false
	}
	return sq - 8, true
}

func pawnTargets(sq Square, c Color) []Square {
	ahead, ok := pawnAhead(sq, c)
	if !ok {
		return nil
	}
	out := make([]Square, 0, 2)
	if f := sq.File(); f > 0 {
		out = append(out, ahead-1)
	}
	if f := sq.File(); f < 7 {
		out = append(out, ahead+1)
	}
	return out
}

func kingNeighbors(sq Square) []Square {
	out := make([]Square, 0, 8)
	f, r := int(sq.File()), sq.Rank()
	for dr := -1; dr <= 1; dr++ {
		for df := -1; df <= 1; df++ {
			if dr == 0 && df == 0 {
				continue
			}
			nf, nr := f+df, r+dr
			if nf < 0 || nf > 7 || nr < 0 || nr > 7 {
				continue
			}
			out = append(out, NewSquare(File(nf), nr))
		}
	}
	return out
}
