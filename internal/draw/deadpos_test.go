package draw

import "testing"

func deadFEN(t *testing.T, fen string) bool {
	t.Helper()
	p, _, err := ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return BlockadeDetector{}.IsDead(&p, NewMaterialSnapshot(&p))
}

func TestBlockadeDetector(t *testing.T) {
	cases := []struct {
		name string
		fen  string
		want bool
	}{
		{"bare kings", "4k3/8/8/8/8/8/8/4K3 w - - 0 1", true},
		{"rook", "4k3/8/8/8/8/8/8/R3K3 w - - 0 1", false},
		{"two dark bishops", "4k3/8/8/8/8/8/8/2B1K1B1 w - - 0 1", true},
		{"bishops both sides one color", "4kb2/8/8/8/8/8/8/2B1K1B1 w - - 0 1", true},
		{"bishops on both colors", "4k1b1/8/8/8/8/8/8/2B1K3 w - - 0 1", false},
		{"knight each", "4kn2/8/8/8/8/8/8/4KN2 w - - 0 1", false},
		{"locked chain", "4k3/8/8/p1p1p1p1/P1P1P1P1/8/8/4K3 w - - 0 1", true},
		{"king walks around", "4k3/8/8/p7/P7/8/8/4K3 w - - 0 1", false},
		{"pawn capture available", "4k3/8/8/1p6/P7/8/8/4K3 w - - 0 1", false},
		{"free pawn", "4k3/8/8/p7/P7/8/6P1/4K3 w - - 0 1", false},
		{"start", StartFEN, false},
	}
	for _, tc := range cases {
		if got := deadFEN(t, tc.fen); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}
