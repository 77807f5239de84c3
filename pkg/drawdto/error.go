package drawdto

// DomainError is the error body returned by the HTTP API.
type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "draw service error"
}

// Error codes.
const (
	CodeNotFound      = "not_found"
	CodeBadRequest    = "bad_request"
	CodeIllegalMove   = "illegal_move"
	CodeNotYourTurn   = "not_your_turn"
	CodeGameOver      = "game_over"
	CodeInvalidClaim  = "invalid_claim"
	CodeInvalidOffer  = "invalid_offer"
	CodeStaleOffer    = "stale_offer"
	CodeInternal      = "internal"
	CodeCorruptRecord = "corrupt_record"
)
