package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/cheese-draw/internal/drawclient"
	"github.com/park285/cheese-draw/pkg/drawdto"
)

// drawcheck plays a knight shuffle against a running drawd and claims the
// threefold repetition, printing the feed when DRAWD_FEED_URL is set.
func main() {
	baseURL := os.Getenv("DRAWD_URL")
	feedURL := os.Getenv("DRAWD_FEED_URL")
	userID := os.Getenv("X_USER_ID")

	if baseURL == "" {
		log.Fatal("DRAWD_URL is required")
	}

	headers := func() map[string]string {
		m := map[string]string{}
		if userID != "" {
			m["X-User-Id"] = userID
		}
		return m
	}

	client := drawclient.NewClient(baseURL,
		drawclient.WithHeaderProvider(headers),
		drawclient.WithTimeout(8*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := client.Create(ctx, drawdto.CreateGameRequest{White: "drawcheck-white", Black: "drawcheck-black"})
	if err != nil {
		log.Fatalf("create error: %v", err)
	}
	log.Printf("game %s created", st.ID)

	done := make(chan struct{})
	if feedURL != "" {
		go func() {
			defer close(done)
			err := drawclient.Watch(ctx, feedURL, st.ID, headers, func(gs drawdto.GameState) {
				fmt.Printf("feed ply=%d status=%s moves=%s\n", gs.Draw.Ply, gs.Status, strings.Join(gs.MovesSAN, " "))
			})
			if err != nil {
				log.Printf("feed error: %v", err)
			}
		}()
		// let the feed attach before moving
		time.Sleep(200 * time.Millisecond)
	} else {
		close(done)
	}

	side := "white"
	for _, mv := range []string{"Nf3", "Nf6", "Ng1", "Ng8", "Nf3", "Nf6", "Ng1", "Ng8"} {
		resp, err := client.Move(ctx, st.ID, side, mv)
		if err != nil {
			log.Fatalf("move %s error: %v", mv, err)
		}
		log.Printf("%s %s (%s) repetitions=%d", side, resp.SAN, resp.UCI, resp.State.Draw.MaxRepetitions)
		if side == "white" {
			side = "black"
		} else {
			side = "white"
		}
	}

	final, err := client.Claim(ctx, st.ID, side, "threefold_repetition")
	if err != nil {
		log.Fatalf("claim error: %v", err)
	}
	log.Printf("result %s (%s): %s", final.Result.Result, final.Result.Termination, final.Result.Message)
	<-done

	_ = client.Close(context.Background(), st.ID)
}
