package drawdto

type CreateGameRequest struct {
	White string `json:"white"`
	Black string `json:"black"`
	// FEN is optional; empty means the standard initial position.
	FEN string `json:"fen,omitempty"`
}

type MoveRequest struct {
	Side string `json:"side"`
	Move string `json:"move"`
}

// SideRequest is the body of offer, accept, decline and withdraw.
type SideRequest struct {
	Side string `json:"side"`
}

type ClaimRequest struct {
	Side   string `json:"side"`
	Reason string `json:"reason"`
}

// MoveResponse wraps the state after a move with the notation actually applied.
type MoveResponse struct {
	State *GameState `json:"state"`
	UCI   string     `json:"uci"`
	SAN   string     `json:"san"`
}
