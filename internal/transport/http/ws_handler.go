package http

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"competiquest/internal/app"
	"competiquest/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler streams the leaderboard to websocket clients, refreshing it after every submission
// that affects the subscribed board.
type WSHandler struct {
	attempts *app.AttemptService
	feed     *app.LeaderboardFeed
	upgrader websocket.Upgrader
}

func NewWSHandler(attempts *app.AttemptService, feed *app.LeaderboardFeed, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attempts: attempts,
		feed:     feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the request and pushes {"type":"leaderboard"} frames until the client leaves.
// Query: topicId scopes the board, limit caps its length.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	topicID := r.URL.Query().Get("topicId")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.feed.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	snapshot := func() outboundMessage[any] {
		board, err := h.attempts.Leaderboard(ctx, limit, topicID)
		if err != nil {
			log.Printf("ws leaderboard topic=%q: %v", topicID, err)
			return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "leaderboard unavailable"}}
		}
		if board == nil {
			board = []domain.LeaderboardEntry{}
		}
		return outboundMessage[any]{Type: "leaderboard", Payload: board}
	}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				if topicID != "" && update.TopicID != topicID {
					continue
				}
				select {
				case send <- snapshot():
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- snapshot()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "refresh":
			send <- snapshot()
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	stop()
	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// originChecker returns nil, gorilla's same-origin check, when nothing is configured.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
