package draw

import "fmt"

// OfferStatus is the lifecycle state of a draw offer.
type OfferStatus string

const (
	OfferPending   OfferStatus = "PENDING"
	OfferAccepted  OfferStatus = "ACCEPTED"
	OfferDeclined  OfferStatus = "DECLINED"
	OfferWithdrawn OfferStatus = "WITHDRAWN"
)

// DrawOffer is one offer and how it was resolved.
type DrawOffer struct {
	By          Color
	Ply         int
	Status      OfferStatus
	ResolvedBy  Color
	ResolvedPly int
}

// OfferProtocol is the Idle/Pending state machine for draws by agreement.
// It is not safe for concurrent use; Manager serializes access.
type OfferProtocol struct {
	current *DrawOffer
	last    *DrawOffer
	// offered marks sides that already offered since the last move
	offered [2]bool
}

func NewOfferProtocol() *OfferProtocol { return &OfferProtocol{} }

// Pending returns the open offer, if any.
func (o *OfferProtocol) Pending() (DrawOffer, bool) {
	if o.current == nil {
		return DrawOffer{}, false
	}
	return *o.current, true
}

// Last returns the most recent offer in any state.
func (o *OfferProtocol) Last() (DrawOffer, bool) {
	if o.last == nil {
		return DrawOffer{}, false
	}
	return *o.last, true
}

func (o *OfferProtocol) Offer(by Color, ply int) (DrawOffer, error) {
	if !by.Valid() {
		return DrawOffer{}, fmt.Errorf("%w: unknown side %d", ErrInvalidOffer, by)
	}
	if o.current != nil {
		return DrawOffer{}, fmt.Errorf("%w: %s already offered", ErrInvalidOffer, o.current.By)
	}
	if o.offered[by] {
		return DrawOffer{}, fmt.Errorf("%w: %s already offered since the last move", ErrInvalidOffer, by)
	}
	off := &DrawOffer{By: by, Ply: ply, Status: OfferPending}
	o.current, o.last = off, off
	o.offered[by] = true
	return *off, nil
}

// Accept resolves the pending offer. Only the opponent of the offering side may accept.
func (o *OfferProtocol) Accept(by Color, ply int) (DrawOffer, error) {
	return o.resolve(by, ply, OfferAccepted)
}

func (o *OfferProtocol) Decline(by Color, ply int) (DrawOffer, error) {
	return o.resolve(by, ply, OfferDeclined)
}

// Withdraw lets the offering side take its own offer back.
func (o *OfferProtocol) Withdraw(by Color, ply int) (DrawOffer, error) {
	if o.current == nil {
		return DrawOffer{}, ErrStaleOffer
	}
	if o.current.By != by {
		return DrawOffer{}, fmt.Errorf("%w: only %s can withdraw", ErrInvalidOffer, o.current.By)
	}
	return o.close(by, ply, OfferWithdrawn), nil
}

// MovePlayed cancels a pending offer and lets both sides offer again.
// It reports whether an offer was cancelled.
func (o *OfferProtocol) MovePlayed(by Color, ply int) (DrawOffer, bool) {
	o.offered = [2]bool{}
	if o.current == nil {
		return DrawOffer{}, false
	}
	return o.close(by, ply, OfferWithdrawn), true
}

// Offered reports whether side c already offered since the last move.
func (o *OfferProtocol) Offered(c Color) bool {
	return c.Valid() && o.offered[c]
}

// MarkOffered records that c offered since the last move without opening an
// offer. Used when rebuilding a protocol from stored state.
func (o *OfferProtocol) MarkOffered(c Color) error {
	if !c.Valid() {
		return fmt.Errorf("%w: unknown side %d", ErrInvalidOffer, c)
	}
	o.offered[c] = true
	return nil
}

func (o *OfferProtocol) Reset() {
	*o = OfferProtocol{}
}

func (o *OfferProtocol) resolve(by Color, ply int, status OfferStatus) (DrawOffer, error) {
	if o.current == nil {
		return DrawOffer{}, ErrStaleOffer
	}
	if !by.Valid() || by == o.current.By {
		return DrawOffer{}, fmt.Errorf("%w: %s cannot answer its own offer", ErrInvalidOffer, by)
	}
	return o.close(by, ply, status), nil
}

func (o *OfferProtocol) close(by Color, ply int, status OfferStatus) DrawOffer {
	off := o.current
	off.Status = status
	off.ResolvedBy = by
	off.ResolvedPly = ply
	o.current = nil
	return *off
}
