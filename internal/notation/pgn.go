package notation

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-draw/internal/domain"
	"github.com/park285/cheese-draw/internal/draw"
)

// Options carries the header fields that do not come from the record.
type Options struct {
	Event string
	Site  string
}

// BuildPGN renders rec as a PGN game. Non-standard start positions get SetUp
// and FEN headers and numbering continues from the FEN's move number.
func BuildPGN(rec domain.GameRecord, opts Options) string {
	var b strings.Builder
	date := rec.EndedAt
	if date.IsZero() {
		date = time.Now()
	}
	result := rec.Result
	if strings.TrimSpace(result) == "" {
		result = "*"
	}
	event := opts.Event
	if strings.TrimSpace(event) == "" {
		event = "Casual Game"
	}
	site := opts.Site
	if strings.TrimSpace(site) == "" {
		site = "?"
	}

	header(&b, "Event", event)
	header(&b, "Site", site)
	header(&b, "Date", fmt.Sprintf("%04d.%02d.%02d", date.Year(), int(date.Month()), date.Day()))
	header(&b, "White", orUnknown(rec.White))
	header(&b, "Black", orUnknown(rec.Black))
	header(&b, "Result", result)

	side, fullmove := draw.White, 1
	start := strings.TrimSpace(rec.StartFEN)
	if start != "" && start != draw.StartFEN && !strings.EqualFold(start, "startpos") {
		header(&b, "SetUp", "1")
		header(&b, "FEN", start)
		if pos, clocks, err := draw.ParseFEN(start); err == nil {
			side, fullmove = pos.SideToMove, clocks.Fullmove
		}
	}
	if t := strings.TrimSpace(rec.Termination); t != "" {
		header(&b, "Termination", t)
	}
	b.WriteString("\n")
	writeMoves(&b, rec.MovesSAN, side, fullmove)
	b.WriteString(result)
	return b.String()
}

// ResultToken maps a winner side ("white", "black", "draw") to a PGN result.
func ResultToken(winner string) string {
	switch strings.ToLower(strings.TrimSpace(winner)) {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	case "draw":
		return "1/2-1/2"
	default:
		return "*"
	}
}

func writeMoves(b *strings.Builder, san []string, side draw.Color, fullmove int) {
	for i, mv := range san {
		mv = strings.TrimSpace(mv)
		switch {
		case side == draw.White:
			fmt.Fprintf(b, "%d. %s ", fullmove, mv)
		case i == 0:
			fmt.Fprintf(b, "%d... %s ", fullmove, mv)
		default:
			fmt.Fprintf(b, "%s ", mv)
		}
		if side == draw.Black {
			fullmove++
		}
		side = side.Other()
	}
}

func header(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "[%s \"%s\"]\n", name, sanitize(value))
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "?"
	}
	return s
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
