package notation

import (
	"strings"
	"testing"
	"time"

	"github.com/park285/cheese-draw/internal/domain"
)

func TestBuildPGNDrawByRepetition(t *testing.T) {
	rec := domain.GameRecord{
		White:       "Alice",
		Black:       `Bob "the" Rook`,
		MovesSAN:    []string{"Nf3", "Nf6", "Ng1", "Ng8", "Nf3", "Nf6", "Ng1", "Ng8"},
		Result:      "1/2-1/2",
		Termination: "threefold_repetition",
		EndedAt:     time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC),
	}
	pgn := BuildPGN(rec, Options{Event: "Test"})
	for _, want := range []string{
		`[Event "Test"]`,
		`[Date "2026.03.09"]`,
		`[Black "Bob 'the' Rook"]`,
		`[Result "1/2-1/2"]`,
		`[Termination "threefold_repetition"]`,
		"1. Nf3 Nf6 2. Ng1 Ng8 3. Nf3 Nf6 4. Ng1 Ng8 1/2-1/2",
	} {
		if !strings.Contains(pgn, want) {
			t.Fatalf("missing %q in\n%s", want, pgn)
		}
	}
	if strings.Contains(pgn, "[FEN") {
		t.Fatalf("standard start must not carry a FEN header")
	}
}

func TestBuildPGNFromBlackToMove(t *testing.T) {
	rec := domain.GameRecord{
		StartFEN: "4k3/8/8/8/8/8/8/R3K3 b - - 10 40",
		MovesSAN: []string{"Kd7", "Ra7+", "Kc6"},
		Result:   "*",
	}
	pgn := BuildPGN(rec, Options{})
	if !strings.Contains(pgn, `[SetUp "1"]`) || !strings.Contains(pgn, `[FEN "4k3/8/8/8/8/8/8/R3K3 b - - 10 40"]`) {
		t.Fatalf("missing setup headers:\n%s", pgn)
	}
	if !strings.Contains(pgn, "40... Kd7 41. Ra7+ Kc6 *") {
		t.Fatalf("bad numbering:\n%s", pgn)
	}
	if !strings.Contains(pgn, `[White "?"]`) {
		t.Fatalf("missing placeholder name:\n%s", pgn)
	}
}

func TestResultToken(t *testing.T) {
	cases := map[string]string{"white": "1-0", "Black": "0-1", " draw ": "1/2-1/2", "": "*"}
	for in, want := range cases {
		if got := ResultToken(in); got != want {
			t.Fatalf("ResultToken(%q) = %q", in, got)
		}
	}
}
