package draw

import (
	"fmt"
	"strings"
)

// Reason enumerates the recognised draw conditions.
type Reason uint8

const (
	Stalemate Reason = iota + 1
	ThreefoldRepetition
	FiftyMove
	SeventyFiveMove
	InsufficientMaterial
	MutualAgreement
	PerpetualCheck
	DeadPosition
)

var reasonNames = map[Reason]string{
	Stalemate:            "stalemate",
	ThreefoldRepetition:  "threefold_repetition",
	FiftyMove:            "fifty_move_rule",
	SeventyFiveMove:      "seventy_five_move_rule",
	InsufficientMaterial: "insufficient_material",
	MutualAgreement:      "mutual_agreement",
	PerpetualCheck:       "perpetual_check",
	DeadPosition:         "dead_position",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("reason(%d)", uint8(r))
}

// ParseReason is the inverse of Reason.String; it also accepts dashes and spaces.
func ParseReason(s string) (Reason, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	for r, name := range reasonNames {
		if name == norm {
			return r, true
		}
	}
	return 0, false
}

// Condition is a detected draw condition.
type Condition struct {
	Reason    Reason
	Automatic bool
	Ply       int
	Key       PositionKey
	// Perpetual labels a threefold repetition in which the side to move was
	// in check at every occurrence.
	Perpetual   bool
	Description string
}

// Matches reports whether a claim for r is satisfied by c.
func (c Condition) Matches(r Reason) bool {
	if c.Reason == r {
		return true
	}
	return r == PerpetualCheck && c.Reason == ThreefoldRepetition && c.Perpetual
}

// Label is the reason as it should appear in a result record.
func (c Condition) Label() Reason {
	if c.Reason == ThreefoldRepetition && c.Perpetual {
		return PerpetualCheck
	}
	return c.Reason
}

// Status is the snapshot returned to the game loop after every call.
type Status struct {
	Ended     bool
	Ending    *Condition
	Claimable []Condition
	Offer     *DrawOffer
	// OfferedSinceMove lists the sides that may not offer again until a move is played.
	OfferedSinceMove []Color

	Ply            int
	Halfmove       int
	MaxRepetitions int
}

// CanClaim reports whether r is currently claimable.
func (s Status) CanClaim(r Reason) bool {
	for _, c := range s.Claimable {
		if c.Matches(r) {
			return true
		}
	}
	return false
}

// History is an export of the tracking state for analysis and persistence.
type History struct {
	Keys             []string
	Repetitions      []RepetitionEntry
	CheckFlags       []bool
	Halfmove         int
	Ply              int
	LastIrreversible int
	LastOffer        *DrawOffer
}
