package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-draw/internal/domain"
	"github.com/park285/cheese-draw/internal/draw"
	"github.com/park285/cheese-draw/internal/rules"
	"github.com/park285/cheese-draw/pkg/drawdto"
)

// Session is one game: the rules engine, its draw manager and the result
// once the game is over.
type Session struct {
	mu sync.Mutex

	id       string
	white    string
	black    string
	game     *rules.Game
	draws    *draw.Manager
	startPly int
	result   *drawdto.Result
	// broken is set when the draw manager rejected a position the rules
	// engine had already accepted; the two no longer agree.
	broken error

	createdAt time.Time
	updatedAt time.Time
}

func (s *Session) state() drawdto.GameState {
	ds := s.draws.Status()
	h := s.draws.History()
	st := drawdto.GameState{
		ID:        s.id,
		White:     s.white,
		Black:     s.black,
		StartFEN:  s.game.StartFEN(),
		FEN:       s.game.FEN(),
		MovesUCI:  s.game.MovesUCI(),
		MovesSAN:  s.game.MovesSAN(),
		Turn:      s.game.Turn().String(),
		Status:    drawdto.StatusActive,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
		Draw: drawdto.DrawState{
			Ply:              ds.Ply,
			Halfmove:         ds.Halfmove,
			MaxRepetitions:   ds.MaxRepetitions,
			LastIrreversible: h.LastIrreversible,
		},
	}
	if ds.Offer != nil {
		st.Draw.Offer = offerDTO(*ds.Offer)
	}
	for _, c := range ds.OfferedSinceMove {
		st.Draw.OfferedSinceMove = append(st.Draw.OfferedSinceMove, c.String())
	}
	if s.result != nil {
		res := *s.result
		st.Result = &res
		st.Status = drawdto.StatusFinished
		if res.Result == rules.ResultDraw {
			st.Status = drawdto.StatusDraw
		}
		return st
	}
	for _, c := range ds.Claimable {
		st.Draw.Claimable = append(st.Draw.Claimable, conditionDTO(c))
	}
	return st
}

func (s *Session) sideName(c draw.Color) string {
	name := s.white
	if c == draw.Black {
		name = s.black
	}
	if name == "" {
		return c.String()
	}
	return name
}

func (s *Session) record() domain.GameRecord {
	rec := domain.GameRecord{
		SessionID: s.id,
		White:     s.white,
		Black:     s.black,
		StartFEN:  s.game.StartFEN(),
		FinalFEN:  s.game.FEN(),
		MovesUCI:  s.game.MovesUCI(),
		MovesSAN:  s.game.MovesSAN(),
		StartedAt: s.createdAt,
	}
	if s.result != nil {
		rec.Result = s.result.Result
		rec.Termination = s.result.Termination
		rec.Description = s.result.Description
		rec.Ply = s.result.Ply
		rec.EndedAt = s.result.EndedAt
	}
	if rec.IsDraw() {
		rec.DrawHistory = historyJSON(s.draws.History())
	}
	return rec
}

func (r *Registry) finishDraw(ctx context.Context, s *Session, c draw.Condition, by string) {
	label := c.Label()
	res := &drawdto.Result{
		Result:      rules.ResultDraw,
		Termination: label.String(),
		Description: c.Description,
		Ply:         c.Ply,
		EndedAt:     r.now(),
	}
	labelText := r.catalog.RenderOr("reason."+label.String(), nil, label.String())
	switch {
	case c.Reason == draw.MutualAgreement:
		res.Message = r.catalog.RenderOr("draw.agreed", map[string]any{"Side": by}, c.Description)
	case by != "":
		res.Message = r.catalog.RenderOr("draw.claimed", map[string]any{
			"Side": by, "Label": labelText, "Description": c.Description,
		}, c.Description)
	default:
		res.Message = r.catalog.RenderOr("draw.automatic", map[string]any{
			"Label": labelText, "Description": c.Description,
		}, c.Description)
	}
	r.finish(ctx, s, res)
}

func (r *Registry) finishDecisive(ctx context.Context, s *Session, winner draw.Color, method string) {
	token := rules.ResultWhiteWon
	if winner == draw.Black {
		token = rules.ResultBlackWon
	}
	res := &drawdto.Result{
		Result:      token,
		Termination: method,
		Winner:      winner.String(),
		Ply:         s.ply(),
		EndedAt:     r.now(),
	}
	key := "result.decisive"
	if method == "checkmate" {
		key = "result.checkmate"
	}
	res.Message = r.catalog.RenderOr(key, map[string]any{"Winner": s.sideName(winner), "Method": method},
		fmt.Sprintf("%s wins by %s", s.sideName(winner), method))
	r.finish(ctx, s, res)
}

// finishEngine records an ending the rules engine applied on its own.
func (r *Registry) finishEngine(ctx context.Context, s *Session, token, method string) {
	switch token {
	case rules.ResultWhiteWon:
		r.finishDecisive(ctx, s, draw.White, method)
		return
	case rules.ResultBlackWon:
		r.finishDecisive(ctx, s, draw.Black, method)
		return
	}
	res := &drawdto.Result{
		Result:      rules.ResultDraw,
		Termination: method,
		Ply:         s.ply(),
		EndedAt:     r.now(),
	}
	res.Message = r.catalog.RenderOr("draw.engine", map[string]any{"Method": method}, "Game drawn ("+method+")")
	r.finish(ctx, s, res)
}

func (r *Registry) finish(ctx context.Context, s *Session, res *drawdto.Result) {
	s.result = res
	r.logger.Info("draw_session_end",
		zap.String("session_id", s.id),
		zap.String("result", res.Result),
		zap.String("termination", res.Termination),
		zap.Int("ply", res.Ply),
	)
	if r.results == nil {
		return
	}
	// 결과 저장 실패는 대국 진행을 막지 않음
	if err := r.results.SaveResult(ctx, s.record()); err != nil {
		r.logger.Error("draw_session_result_error", zap.String("session_id", s.id), zap.Error(err))
	}
}

func (s *Session) ply() int { return s.startPly + len(s.game.MovesUCI()) }

// restore replays a snapshot through a fresh game and draw manager.
func (r *Registry) restore(snap *drawdto.GameState) (*Session, error) {
	game, played, err := rules.Replay(snap.StartFEN, snap.MovesUCI)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", snap.ID, err)
	}
	s, err := r.newSession(snap.ID, snap.White, snap.Black, game)
	if err != nil {
		return nil, err
	}
	for _, p := range played {
		if _, err := s.draws.Update(p.Position, p.Info); err != nil && !errors.Is(err, draw.ErrGameOver) {
			return nil, fmt.Errorf("restore %s: %w", snap.ID, err)
		}
	}
	s.createdAt, s.updatedAt = snap.CreatedAt, snap.UpdatedAt
	if snap.Result != nil {
		res := *snap.Result
		s.result = &res
	} else {
		// the pending offer first: Offer itself marks its side
		if off := snap.Draw.Offer; off != nil && off.Status == string(draw.OfferPending) {
			if by, ok := draw.ParseColor(off.By); ok {
				if _, err := s.draws.Offer(by); err != nil {
					r.logger.Warn("draw_session_restore_offer", zap.String("session_id", snap.ID), zap.Error(err))
				}
			}
		}
		for _, name := range snap.Draw.OfferedSinceMove {
			if by, ok := draw.ParseColor(name); ok {
				if err := s.draws.MarkOffered(by); err != nil {
					r.logger.Warn("draw_session_restore_offer", zap.String("session_id", snap.ID), zap.Error(err))
				}
			}
		}
	}
	r.logger.Info("draw_session_restore", zap.String("session_id", snap.ID), zap.Int("moves", len(played)))
	return s, nil
}

func conditionDTO(c draw.Condition) drawdto.Condition {
	return drawdto.Condition{
		Reason:      c.Label().String(),
		Automatic:   c.Automatic,
		Ply:         c.Ply,
		Key:         keyString(c.Key),
		Description: c.Description,
	}
}

func offerDTO(o draw.DrawOffer) *drawdto.Offer {
	out := &drawdto.Offer{By: o.By.String(), Ply: o.Ply, Status: string(o.Status)}
	if o.Status != draw.OfferPending {
		out.ResolvedBy = o.ResolvedBy.String()
		out.ResolvedPly = o.ResolvedPly
	}
	return out
}

func keyString(k draw.PositionKey) string {
	if k.IsZero() {
		return ""
	}
	return k.String()
}

type repetitionJSON struct {
	Key        string `json:"key"`
	Count      int    `json:"count"`
	Plies      []int  `json:"plies"`
	AllInCheck bool   `json:"all_in_check,omitempty"`
}

type historyJSONDoc struct {
	Keys             []string         `json:"keys"`
	Repetitions      []repetitionJSON `json:"repetitions"`
	CheckFlags       []bool           `json:"check_flags"`
	Halfmove         int              `json:"halfmove"`
	Ply              int              `json:"ply"`
	LastIrreversible int              `json:"last_irreversible"`
	LastOffer        *drawdto.Offer   `json:"last_offer,omitempty"`
}

// historyJSON exports repeated positions only, ordered by first occurrence.
func historyJSON(h draw.History) []byte {
	doc := historyJSONDoc{
		Keys:             h.Keys,
		CheckFlags:       h.CheckFlags,
		Halfmove:         h.Halfmove,
		Ply:              h.Ply,
		LastIrreversible: h.LastIrreversible,
	}
	reps := append([]draw.RepetitionEntry(nil), h.Repetitions...)
	sort.Slice(reps, func(i, j int) bool { return reps[i].FirstPly < reps[j].FirstPly })
	for _, e := range reps {
		if e.Count < 2 {
			continue
		}
		doc.Repetitions = append(doc.Repetitions, repetitionJSON{
			Key:        e.Key.String(),
			Count:      e.Count,
			Plies:      e.Plies,
			AllInCheck: e.AllInCheck,
		})
	}
	if h.LastOffer != nil {
		doc.LastOffer = offerDTO(*h.LastOffer)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil
	}
	return b
}
