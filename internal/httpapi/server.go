package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/cheese-draw/internal/draw"
	"github.com/park285/cheese-draw/internal/drawstore"
	"github.com/park285/cheese-draw/internal/rules"
	"github.com/park285/cheese-draw/internal/session"
	"github.com/park285/cheese-draw/pkg/drawdto"
)

// Games is the part of session.Registry the API needs.
type Games interface {
	Create(ctx context.Context, req drawdto.CreateGameRequest) (*drawdto.GameState, error)
	Get(ctx context.Context, id string) (*drawdto.GameState, error)
	Play(ctx context.Context, id string, side draw.Color, move string) (*drawdto.MoveResponse, error)
	Offer(ctx context.Context, id string, side draw.Color) (*drawdto.GameState, error)
	Accept(ctx context.Context, id string, side draw.Color) (*drawdto.GameState, error)
	Decline(ctx context.Context, id string, side draw.Color) (*drawdto.GameState, error)
	Withdraw(ctx context.Context, id string, side draw.Color) (*drawdto.GameState, error)
	Claim(ctx context.Context, id string, side draw.Color, reason draw.Reason) (*drawdto.GameState, error)
	Close(ctx context.Context, id string) error
}

var _ Games = (*session.Registry)(nil)

const requestTimeout = 10 * time.Second

var errBadRequest = errors.New("bad request")

type Server struct {
	games  Games
	logger *zap.Logger
	srv    *fasthttp.Server
}

func NewServer(games Games, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{games: games, logger: logger}
	s.srv = &fasthttp.Server{
		Handler:            s.Handle,
		Name:               "drawd",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxRequestBodySize: 64 << 10,
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error { return s.srv.ListenAndServe(addr) }

func (s *Server) Serve(ln net.Listener) error { return s.srv.Serve(ln) }

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.ShutdownWithContext(ctx) }

// Handle routes:
//
//	POST   /games
//	GET    /games/{id}
//	DELETE /games/{id}
//	POST   /games/{id}/{moves|offer|accept|decline|withdraw|claim}
func (s *Server) Handle(rc *fasthttp.RequestCtx) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	method := string(rc.Method())
	parts := splitPath(string(rc.Path()))
	switch {
	case len(parts) == 1 && parts[0] == "healthz" && method == fasthttp.MethodGet:
		rc.SetStatusCode(fasthttp.StatusOK)
		rc.SetBodyString("ok")
	case len(parts) == 0 || parts[0] != "games":
		s.writeError(rc, fasthttp.StatusNotFound, drawdto.DomainError{Code: drawdto.CodeNotFound, Message: "no such route"})
	case len(parts) == 1:
		if !allow(rc, method, fasthttp.MethodPost) {
			break
		}
		s.create(ctx, rc)
	case len(parts) == 2:
		switch method {
		case fasthttp.MethodGet:
			s.respond(rc, fasthttp.StatusOK)(s.games.Get(ctx, parts[1]))
		case fasthttp.MethodDelete:
			if err := s.games.Close(ctx, parts[1]); err != nil {
				s.fail(rc, err)
				break
			}
			rc.SetStatusCode(fasthttp.StatusNoContent)
		default:
			allow(rc, method, fasthttp.MethodGet, fasthttp.MethodDelete)
		}
	case len(parts) == 3:
		if !allow(rc, method, fasthttp.MethodPost) {
			break
		}
		s.action(ctx, rc, parts[1], parts[2])
	default:
		s.writeError(rc, fasthttp.StatusNotFound, drawdto.DomainError{Code: drawdto.CodeNotFound, Message: "no such route"})
	}

	s.logger.Debug("http_request",
		zap.String("method", method),
		zap.ByteString("path", rc.Path()),
		zap.Int("status", rc.Response.StatusCode()),
		zap.Duration("took", time.Since(start)),
	)
}

func (s *Server) create(ctx context.Context, rc *fasthttp.RequestCtx) {
	var req drawdto.CreateGameRequest
	if err := decode(rc, &req); err != nil {
		s.fail(rc, err)
		return
	}
	s.respond(rc, fasthttp.StatusCreated)(s.games.Create(ctx, req))
}

func (s *Server) action(ctx context.Context, rc *fasthttp.RequestCtx, id, verb string) {
	switch verb {
	case "moves":
		var req drawdto.MoveRequest
		side, err := decodeSide(rc, &req, func() string { return req.Side })
		if err != nil {
			s.fail(rc, err)
			return
		}
		resp, err := s.games.Play(ctx, id, side, req.Move)
		if err != nil {
			s.fail(rc, err)
			return
		}
		s.writeJSON(rc, fasthttp.StatusOK, resp)
	case "claim":
		var req drawdto.ClaimRequest
		side, err := decodeSide(rc, &req, func() string { return req.Side })
		if err != nil {
			s.fail(rc, err)
			return
		}
		reason, ok := draw.ParseReason(req.Reason)
		if !ok {
			s.fail(rc, fmt.Errorf("%w: unknown draw reason %q", errBadRequest, req.Reason))
			return
		}
		s.respond(rc, fasthttp.StatusOK)(s.games.Claim(ctx, id, side, reason))
	case "offer", "accept", "decline", "withdraw":
		var req drawdto.SideRequest
		side, err := decodeSide(rc, &req, func() string { return req.Side })
		if err != nil {
			s.fail(rc, err)
			return
		}
		op := map[string]func(context.Context, string, draw.Color) (*drawdto.GameState, error){
			"offer":    s.games.Offer,
			"accept":   s.games.Accept,
			"decline":  s.games.Decline,
			"withdraw": s.games.Withdraw,
		}[verb]
		s.respond(rc, fasthttp.StatusOK)(op(ctx, id, side))
	default:
		s.writeError(rc, fasthttp.StatusNotFound, drawdto.DomainError{Code: drawdto.CodeNotFound, Message: "no such action " + verb})
	}
}

func (s *Server) respond(rc *fasthttp.RequestCtx, status int) func(*drawdto.GameState, error) {
	return func(st *drawdto.GameState, err error) {
		if err != nil {
			s.fail(rc, err)
			return
		}
		s.writeJSON(rc, status, st)
	}
}

func (s *Server) fail(rc *fasthttp.RequestCtx, err error) {
	status, body := classify(err)
	if status >= fasthttp.StatusInternalServerError {
		s.logger.Error("http_error", zap.ByteString("path", rc.Path()), zap.Error(err))
	}
	s.writeError(rc, status, body)
}

// classify maps domain errors onto HTTP status codes.
func classify(err error) (int, drawdto.DomainError) {
	msg := err.Error()
	switch {
	case errors.Is(err, session.ErrNotFound):
		return fasthttp.StatusNotFound, drawdto.DomainError{Code: drawdto.CodeNotFound, Message: msg}
	case errors.Is(err, rules.ErrIllegalMove):
		return fasthttp.StatusBadRequest, drawdto.DomainError{Code: drawdto.CodeIllegalMove, Message: msg}
	case errors.Is(err, errBadRequest), errors.Is(err, rules.ErrInvalidFEN), errors.Is(err, session.ErrInvalidSide):
		return fasthttp.StatusBadRequest, drawdto.DomainError{Code: drawdto.CodeBadRequest, Message: msg}
	case errors.Is(err, draw.ErrGameOver):
		return fasthttp.StatusConflict, drawdto.DomainError{Code: drawdto.CodeGameOver, Message: msg}
	case errors.Is(err, session.ErrNotYourTurn):
		return fasthttp.StatusConflict, drawdto.DomainError{Code: drawdto.CodeNotYourTurn, Message: msg}
	case errors.Is(err, draw.ErrInvalidClaim):
		return fasthttp.StatusConflict, drawdto.DomainError{Code: drawdto.CodeInvalidClaim, Message: msg}
	case errors.Is(err, draw.ErrInvalidOffer):
		return fasthttp.StatusConflict, drawdto.DomainError{Code: drawdto.CodeInvalidOffer, Message: msg}
	case errors.Is(err, draw.ErrStaleOffer):
		return fasthttp.StatusConflict, drawdto.DomainError{Code: drawdto.CodeStaleOffer, Message: msg}
	case errors.Is(err, drawstore.ErrStaleSnapshot):
		return fasthttp.StatusConflict, drawdto.DomainError{Code: drawdto.CodeInternal, Message: msg, Retryable: true}
	case errors.Is(err, session.ErrSnapshotFailed):
		return fasthttp.StatusServiceUnavailable, drawdto.DomainError{Code: drawdto.CodeInternal, Message: msg, Retryable: true}
	case errors.Is(err, session.ErrTooManySessions):
		return fasthttp.StatusServiceUnavailable, drawdto.DomainError{Code: drawdto.CodeInternal, Message: msg, Retryable: true}
	case errors.Is(err, draw.ErrCorruptPosition):
		return fasthttp.StatusInternalServerError, drawdto.DomainError{Code: drawdto.CodeCorruptRecord, Message: msg}
	default:
		return fasthttp.StatusInternalServerError, drawdto.DomainError{Code: drawdto.CodeInternal, Message: "internal error", Retryable: true}
	}
}

func (s *Server) writeJSON(rc *fasthttp.RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("http_encode_error", zap.Error(err))
		rc.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	rc.SetContentType("application/json")
	rc.SetStatusCode(status)
	rc.SetBody(b)
}

func (s *Server) writeError(rc *fasthttp.RequestCtx, status int, body drawdto.DomainError) {
	s.writeJSON(rc, status, body)
}

func allow(rc *fasthttp.RequestCtx, method string, allowed ...string) bool {
	for _, m := range allowed {
		if m == method {
			return true
		}
	}
	rc.Response.Header.Set("Allow", strings.Join(allowed, ", "))
	rc.SetContentType("application/json")
	rc.SetStatusCode(fasthttp.StatusMethodNotAllowed)
	rc.SetBodyString(`{"code":"bad_request","message":"method not allowed"}`)
	return false
}

func decode(rc *fasthttp.RequestCtx, v any) error {
	body := rc.PostBody()
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

func decodeSide(rc *fasthttp.RequestCtx, v any, side func() string) (draw.Color, error) {
	if err := decode(rc, v); err != nil {
		return 0, err
	}
	c, ok := draw.ParseColor(side())
	if !ok {
		return 0, session.ErrInvalidSide
	}
	return c, nil
}

func splitPath(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
