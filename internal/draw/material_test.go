package draw

import "testing"

func classifyFEN(t *testing.T, fen string) Material {
	t.Helper()
	p, _, err := ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return NewMaterialAnalyzer(nil).Classify(NewMaterialSnapshot(&p))
}

func TestClassifyKingBishopVsKingEveryPlacement(t *testing.T) {
	a := NewMaterialAnalyzer(nil)
	wk, bk := NewSquare(4, 0), NewSquare(4, 7)
	for sq := Square(0); sq < 64; sq++ {
		if sq == wk || sq == bk {
			continue
		}
		for _, c := range [2]Color{White, Black} {
			var p Position
			p.Board[wk] = Piece{White, King}
			p.Board[bk] = Piece{Black, King}
			p.Board[sq] = Piece{c, Bishop}
			if got := a.Classify(NewMaterialSnapshot(&p)); got != Insufficient {
				t.Fatalf("%s bishop on %s: got %s", c, sq, got)
			}
		}
	}
}

func TestClassifyTable(t *testing.T) {
	cases := []struct {
		name string
		fen  string
		want Material
	}{
		{"bare kings", "4k3/8/8/8/8/8/8/4K3 w - - 0 1", Insufficient},
		{"knight", "4k3/8/8/8/8/8/8/4KN2 w - - 0 1", Insufficient},
		{"rook", "4k3/8/8/8/8/8/8/R3K3 w - - 0 1", Sufficient},
		{"pawn", "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1", Sufficient},
		{"queen for black", "3qk3/8/8/8/8/8/8/4K3 w - - 0 1", Sufficient},
		{"bishops same color", "4kb2/8/8/8/8/8/8/2B1K3 w - - 0 1", Insufficient},
		{"bishops opposite color", "4k1b1/8/8/8/8/8/8/2B1K3 w - - 0 1", Sufficient},
		{"two knights", "4k3/8/8/8/8/8/8/3NKN2 w - - 0 1", Sufficient},
		{"knight each", "4kn2/8/8/8/8/8/8/4KN2 w - - 0 1", Indeterminate},
		{"knight vs bishop", "4kb2/8/8/8/8/8/8/4KN2 w - - 0 1", Indeterminate},
		{"start", StartFEN, Sufficient},
	}
	for _, tc := range cases {
		if got := classifyFEN(t, tc.fen); got != tc.want {
			t.Fatalf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
}

func TestMaterialLabel(t *testing.T) {
	p := MustParseFEN("4k3/8/8/8/8/8/8/2B1K3 w - - 0 1")
	if got := NewMaterialSnapshot(&p).Label(); got != "King + Bishop vs King" {
		t.Fatalf("label = %q", got)
	}
}

type alwaysDead struct{}

func (alwaysDead) IsDead(*Position, MaterialSnapshot) bool { return true }

func TestMaterialAnalyzerDelegatesDeadPosition(t *testing.T) {
	p := MustParseFEN(StartFEN)
	s := NewMaterialSnapshot(&p)
	if NewMaterialAnalyzer(nil).Dead(&p, s) {
		t.Fatalf("start position reported dead")
	}
	if !NewMaterialAnalyzer(alwaysDead{}).Dead(&p, s) {
		t.Fatalf("custom detector ignored")
	}
}
