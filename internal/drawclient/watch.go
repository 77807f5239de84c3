package drawclient

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-draw/pkg/drawdto"
)

// Watch follows the spectator feed of game id at feedURL (ws:// or http://)
// and calls fn for every state until the game ends, ctx is cancelled or the
// server closes the feed. A normal close after the final state returns nil.
func Watch(ctx context.Context, feedURL, id string, headers HeaderProvider, fn func(drawdto.GameState)) error {
	u := strings.TrimRight(feedURL, "/")
	switch {
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, u+"/games/"+id+"/events", &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      buildHeaders(headers),
	})
	if err != nil {
		return err
	}
	defer conn.CloseNow()

	for {
		var st drawdto.GameState
		if err := wsjson.Read(ctx, conn, &st); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		fn(st)
		if st.Result != nil {
			return nil
		}
	}
}

func buildHeaders(p HeaderProvider) http.Header {
	h := http.Header{}
	if p == nil {
		return h
	}
	for k, v := range p() {
		if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
			h.Set(k, v)
		}
	}
	return h
}
