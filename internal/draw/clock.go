package draw

const (
	fiftyMoveHalfmoves       = 100
	seventyFiveMoveHalfmoves = 150
)

// MoveClock counts halfmoves since the last pawn move or capture.
type MoveClock struct {
	halfmove         int
	ply              int
	lastIrreversible int
}

// NewMoveClock seeds the clock, e.g. from FEN fields.
func NewMoveClock(halfmove, ply int) MoveClock {
	if halfmove < 0 {
		halfmove = 0
	}
	if ply < 0 {
		ply = 0
	}
	return MoveClock{halfmove: halfmove, ply: ply, lastIrreversible: ply - halfmove}
}

// Observe advances the clock by one ply and returns the halfmove count.
func (c *MoveClock) Observe(irreversible bool) int {
	c.ply++
	if irreversible {
		c.halfmove = 0
		c.lastIrreversible = c.ply
	} else {
		c.halfmove++
	}
	return c.halfmove
}

func (c *MoveClock) Halfmove() int { return c.halfmove }

func (c *MoveClock) Ply() int { return c.ply }

// LastIrreversible is the ply of the most recent pawn move or capture.
func (c *MoveClock) LastIrreversible() int { return c.lastIrreversible }

// SeventyFiveMove reports the automatic 75-move condition.
func (c *MoveClock) SeventyFiveMove() bool { return c.halfmove >= seventyFiveMoveHalfmoves }

// FiftyMove reports the claimable 50-move condition. It is false once the
// 75-move rule applies, which supersedes it.
func (c *MoveClock) FiftyMove() bool {
	return c.halfmove >= fiftyMoveHalfmoves && !c.SeventyFiveMove()
}
