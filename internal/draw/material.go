package draw

import (
	"fmt"
	"strings"
)

// Material is the verdict of MaterialAnalyzer.Classify.
type Material uint8

const (
	Indeterminate Material = iota
	Sufficient
	Insufficient
)

func (m Material) String() string {
	switch m {
	case Sufficient:
		return "sufficient"
	case Insufficient:
		return "insufficient"
	default:
		return "indeterminate"
	}
}

// MaterialSnapshot counts pieces per side and kind, plus the square colors of bishops.
type MaterialSnapshot struct {
	Counts       [2][kindCount]int
	LightBishops [2]int
	DarkBishops  [2]int
}

func NewMaterialSnapshot(pos *Position) MaterialSnapshot {
	var s MaterialSnapshot
	for i, pc := range pos.Board {
		if pc.Empty() {
			continue
		}
		s.Counts[pc.Color][pc.Kind]++
		if pc.Kind == Bishop {
			if Square(i).Light() {
				s.LightBishops[pc.Color]++
			} else {
				s.DarkBishops[pc.Color]++
			}
		}
	}
	return s
}

func (s MaterialSnapshot) minors(c Color) int {
	return s.Counts[c][Knight] + s.Counts[c][Bishop]
}

func (s MaterialSnapshot) heavy(c Color) int {
	return s.Counts[c][Pawn] + s.Counts[c][Rook] + s.Counts[c][Queen]
}

// Label renders the material as e.g. "King + Bishop vs King".
func (s MaterialSnapshot) Label() string {
	side := func(c Color) string {
		parts := []string{"King"}
		for k := Queen; k >= Pawn; k-- {
			name := k.String()
			name = strings.ToUpper(name[:1]) + name[1:]
			for i := 0; i < s.Counts[c][k]; i++ {
				parts = append(parts, name)
			}
		}
		return strings.Join(parts, " + ")
	}
	return fmt.Sprintf("%s vs %s", side(White), side(Black))
}

// MaterialAnalyzer classifies remaining material and delegates dead-position
// detection to a DeadPositionDetector.
type MaterialAnalyzer struct {
	dead DeadPositionDetector
}

func NewMaterialAnalyzer(dead DeadPositionDetector) *MaterialAnalyzer {
	if dead == nil {
		dead = BlockadeDetector{}
	}
	return &MaterialAnalyzer{dead: dead}
}

// Classify decides whether mate is impossible for both sides by material alone.
func (a *MaterialAnalyzer) Classify(s MaterialSnapshot) Material {
	return classifyMaterial(s)
}

// Dead reports a dead position. It never reports true for a position from
// which checkmate is reachable.
func (a *MaterialAnalyzer) Dead(pos *Position, s MaterialSnapshot) bool {
	return a.dead.IsDead(pos, s)
}

func classifyMaterial(s MaterialSnapshot) Material {
	if s.heavy(White) > 0 || s.heavy(Black) > 0 {
		return Sufficient
	}
	w, b := s.minors(White), s.minors(Black)
	if w >= 2 || b >= 2 {
		return Sufficient
	}
	if w+b <= 1 {
		// K v K, KB v K, KN v K
		return Insufficient
	}
	// one minor each
	if s.Counts[White][Bishop] == 1 && s.Counts[Black][Bishop] == 1 {
		if s.LightBishops[White] == s.LightBishops[Black] {
			return Insufficient
		}
		return Sufficient
	}
	// KN v KN, KN v KB: mate exists with cooperation, so not insufficient
	return Indeterminate
}
