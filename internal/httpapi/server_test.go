package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/park285/cheese-draw/internal/draw"
	"github.com/park285/cheese-draw/internal/drawstore"
	"github.com/park285/cheese-draw/internal/rules"
	"github.com/park285/cheese-draw/internal/session"
	"github.com/park285/cheese-draw/pkg/drawdto"
)

func do(t *testing.T, s *Server, method, path, body string) (int, []byte) {
	t.Helper()
	var rc fasthttp.RequestCtx
	rc.Request.Header.SetMethod(method)
	rc.Request.SetRequestURI(path)
	if body != "" {
		rc.Request.SetBodyString(body)
	}
	s.Handle(&rc)
	return rc.Response.StatusCode(), append([]byte(nil), rc.Response.Body()...)
}

func decodeState(t *testing.T, b []byte) drawdto.GameState {
	t.Helper()
	var st drawdto.GameState
	require.NoError(t, json.Unmarshal(b, &st))
	return st
}

func decodeError(t *testing.T, b []byte) drawdto.DomainError {
	t.Helper()
	var e drawdto.DomainError
	require.NoError(t, json.Unmarshal(b, &e))
	return e
}

func TestGameLifecycle(t *testing.T) {
	s := NewServer(session.NewRegistry(), nil)

	status, body := do(t, s, "POST", "/games", `{"white":"alice","black":"bob"}`)
	require.Equal(t, fasthttp.StatusCreated, status, string(body))
	st := decodeState(t, body)
	require.NotEmpty(t, st.ID)
	assert.Equal(t, drawdto.StatusActive, st.Status)

	side := "white"
	for _, mv := range []string{"g1f3", "g8f6", "f3g1", "f6g8", "g1f3", "g8f6", "f3g1", "f6g8"} {
		status, body = do(t, s, "POST", "/games/"+st.ID+"/moves", fmt.Sprintf(`{"side":%q,"move":%q}`, side, mv))
		require.Equal(t, fasthttp.StatusOK, status, string(body))
		if side == "white" {
			side = "black"
		} else {
			side = "white"
		}
	}
	var resp drawdto.MoveResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "Ng8", resp.SAN)
	require.Len(t, resp.State.Draw.Claimable, 1)
	assert.Equal(t, "threefold_repetition", resp.State.Draw.Claimable[0].Reason)

	status, body = do(t, s, "POST", "/games/"+st.ID+"/claim", `{"side":"white","reason":"threefold repetition"}`)
	require.Equal(t, fasthttp.StatusOK, status, string(body))
	st = decodeState(t, body)
	assert.Equal(t, drawdto.StatusDraw, st.Status)
	assert.Equal(t, "1/2-1/2", st.Result.Result)

	status, body = do(t, s, "POST", "/games/"+st.ID+"/moves", `{"side":"white","move":"e2e4"}`)
	assert.Equal(t, fasthttp.StatusConflict, status)
	assert.Equal(t, drawdto.CodeGameOver, decodeError(t, body).Code)

	status, _ = do(t, s, "GET", "/games/"+st.ID, "")
	assert.Equal(t, fasthttp.StatusOK, status)
	status, _ = do(t, s, "DELETE", "/games/"+st.ID, "")
	assert.Equal(t, fasthttp.StatusNoContent, status)
	status, body = do(t, s, "GET", "/games/"+st.ID, "")
	assert.Equal(t, fasthttp.StatusNotFound, status)
	assert.Equal(t, drawdto.CodeNotFound, decodeError(t, body).Code)
}

func TestRequestErrors(t *testing.T) {
	s := NewServer(session.NewRegistry(), nil)
	_, body := do(t, s, "POST", "/games", "")
	id := decodeState(t, body).ID

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"bad json", "POST", "/games/" + id + "/moves", `{"side":`, 400, drawdto.CodeBadRequest},
		{"bad side", "POST", "/games/" + id + "/moves", `{"side":"green","move":"e2e4"}`, 400, drawdto.CodeBadRequest},
		{"illegal", "POST", "/games/" + id + "/moves", `{"side":"white","move":"e2e5"}`, 400, drawdto.CodeIllegalMove},
		{"turn", "POST", "/games/" + id + "/moves", `{"side":"black","move":"e7e5"}`, 409, drawdto.CodeNotYourTurn},
		{"unknown reason", "POST", "/games/" + id + "/claim", `{"side":"white","reason":"boredom"}`, 400, drawdto.CodeBadRequest},
		{"no claim", "POST", "/games/" + id + "/claim", `{"side":"white","reason":"fifty_move_rule"}`, 409, drawdto.CodeInvalidClaim},
		{"no offer", "POST", "/games/" + id + "/accept", `{"side":"black"}`, 409, drawdto.CodeStaleOffer},
		{"bad fen", "POST", "/games", `{"fen":"not a fen"}`, 400, drawdto.CodeBadRequest},
		{"unknown game", "GET", "/games/nope", "", 404, drawdto.CodeNotFound},
		{"unknown action", "POST", "/games/" + id + "/resign", `{"side":"white"}`, 404, drawdto.CodeNotFound},
		{"unknown route", "GET", "/players", "", 404, drawdto.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := do(t, s, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, status, string(body))
			assert.Equal(t, tc.code, decodeError(t, body).Code)
		})
	}

	status, _ := do(t, s, "PUT", "/games/"+id, "")
	assert.Equal(t, fasthttp.StatusMethodNotAllowed, status)
}

func TestOfferFlow(t *testing.T) {
	s := NewServer(session.NewRegistry(), nil)
	_, body := do(t, s, "POST", "/games", `{"white":"alice","black":"bob"}`)
	id := decodeState(t, body).ID

	status, body := do(t, s, "POST", "/games/"+id+"/offer", `{"side":"white"}`)
	require.Equal(t, fasthttp.StatusOK, status, string(body))
	status, body = do(t, s, "POST", "/games/"+id+"/offer", `{"side":"black"}`)
	assert.Equal(t, fasthttp.StatusConflict, status)
	assert.Equal(t, drawdto.CodeInvalidOffer, decodeError(t, body).Code)

	status, body = do(t, s, "POST", "/games/"+id+"/accept", `{"side":"black"}`)
	require.Equal(t, fasthttp.StatusOK, status, string(body))
	st := decodeState(t, body)
	assert.Equal(t, "mutual_agreement", st.Result.Termination)
}

func TestClassifyWrapped(t *testing.T) {
	status, body := classify(fmt.Errorf("%w: %w", draw.ErrInvalidClaim, draw.ErrGameOver))
	assert.Equal(t, fasthttp.StatusConflict, status)
	assert.Equal(t, drawdto.CodeGameOver, body.Code)

	status, body = classify(fmt.Errorf("play: %w", rules.ErrIllegalMove))
	assert.Equal(t, fasthttp.StatusBadRequest, status)
	assert.Equal(t, drawdto.CodeIllegalMove, body.Code)

	status, body = classify(fmt.Errorf("%w: g1: %w", session.ErrSnapshotFailed, errors.New("redis down")))
	assert.Equal(t, fasthttp.StatusServiceUnavailable, status)
	assert.True(t, body.Retryable)

	status, body = classify(fmt.Errorf("%w: g1: %w", session.ErrSnapshotFailed, drawstore.ErrStaleSnapshot))
	assert.Equal(t, fasthttp.StatusConflict, status)
	assert.True(t, body.Retryable)

	status, body = classify(errors.New("boom"))
	assert.Equal(t, fasthttp.StatusInternalServerError, status)
	assert.True(t, body.Retryable)
	assert.Equal(t, "internal error", body.Message)
}
