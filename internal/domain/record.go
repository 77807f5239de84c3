package domain

import "time"

// GameRecord is a finished game as it is persisted and exported.
type GameRecord struct {
	SessionID   string
	White       string
	Black       string
	StartFEN    string
	FinalFEN    string
	MovesUCI    []string
	MovesSAN    []string
	Result      string // PGN result token
	Termination string
	Description string
	Ply         int
	// DrawHistory is the JSON export of the draw tracker; empty for decisive games.
	DrawHistory []byte
	StartedAt   time.Time
	EndedAt     time.Time
}

// Duration is clamped at zero for records with skewed timestamps.
func (r GameRecord) Duration() time.Duration {
	d := r.EndedAt.Sub(r.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

// IsDraw reports whether the record ended drawn.
func (r GameRecord) IsDraw() bool { return r.Result == "1/2-1/2" }
