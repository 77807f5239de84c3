package drawdto

import "time"

// Game lifecycle states.
const (
	StatusActive   = "ACTIVE"
	StatusFinished = "FINISHED"
	StatusDraw     = "DRAW"
)

// GameState is the externally visible state of one game session. It is also
// the snapshot persisted to Redis, so field names are part of the storage format.
type GameState struct {
	ID        string    `json:"id"`
	White     string    `json:"white"`
	Black     string    `json:"black"`
	StartFEN  string    `json:"start_fen"`
	FEN       string    `json:"fen"`
	MovesUCI  []string  `json:"moves_uci"`
	MovesSAN  []string  `json:"moves_san"`
	Turn      string    `json:"turn"`
	Status    string    `json:"status"`
	Draw      DrawState `json:"draw"`
	Result    *Result   `json:"result,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DrawState mirrors the draw manager status after the last operation.
type DrawState struct {
	Ply              int         `json:"ply"`
	Halfmove         int         `json:"halfmove"`
	MaxRepetitions   int         `json:"max_repetitions"`
	LastIrreversible int         `json:"last_irreversible"`
	Claimable        []Condition `json:"claimable,omitempty"`
	Offer            *Offer      `json:"offer,omitempty"`
	// OfferedSinceMove names the sides that must play a move before offering again.
	OfferedSinceMove []string `json:"offered_since_move,omitempty"`
}

type Condition struct {
	Reason      string `json:"reason"`
	Automatic   bool   `json:"automatic"`
	Ply         int    `json:"ply"`
	Key         string `json:"key,omitempty"`
	Description string `json:"description"`
}

type Offer struct {
	By          string `json:"by"`
	Ply         int    `json:"ply"`
	Status      string `json:"status"`
	ResolvedBy  string `json:"resolved_by,omitempty"`
	ResolvedPly int    `json:"resolved_ply,omitempty"`
}

// Result is the terminal record of a finished game.
type Result struct {
	Result      string    `json:"result"`
	Termination string    `json:"termination"`
	Winner      string    `json:"winner,omitempty"`
	Description string    `json:"description,omitempty"`
	Message     string    `json:"message,omitempty"`
	Ply         int       `json:"ply"`
	EndedAt     time.Time `json:"ended_at"`
}
