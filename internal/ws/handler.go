package ws

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/scrumline/poker-backend/internal/hub"
	"github.com/scrumline/poker-backend/internal/room"
	"github.com/scrumline/poker-backend/internal/session"
	"github.com/scrumline/poker-backend/internal/store"
	"github.com/scrumline/poker-backend/internal/types"
)

// Handler accepts the room's realtime connections. Identity is carried as
// handshake metadata (claimed display name in the query string) and re-read
// for every event; there is no session token.
func Handler(h *hub.Hub, st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("room")
		username := r.URL.Query().Get("username")
		spectator := r.URL.Query().Get("spectator") == "true"
		if roomID == "" || username == "" {
			http.Error(w, "missing room or username", http.StatusBadRequest)
			return
		}

		team, err := st.FindTeam(r.Context(), roomID)
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "team not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "store unavailable", http.StatusInternalServerError)
			return
		}

		reply := make(chan *room.Room, 1)
		h.Inbox() <- hub.EnsureRoom{TeamID: team.ID, OwnerID: team.OwnerID, Reply: reply}
		rm := <-reply

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan types.ServerMessage, 8)
		clientID := randID(6)
		clog := log.With(
			zap.String("room", team.ID),
			zap.String("client", clientID),
			zap.String("username", username))
		clog.Info("connected")

		rm.Inbox() <- room.Subscribe{ClientID: clientID, Outbox: out}
		defer func() { rm.Inbox() <- room.Leave{ClientID: clientID} }()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop. No read deadline: a round can sit in voting
		// indefinitely and idle connections stay up.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					clog.Info("disconnected")
					return
				}
				// Otherwise, just exit (room.Leave in defer):
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"sessionError","message":"bad json"}`))
				continue
			}

			msg, ok := toRoomMsg(clientID, username, spectator, cm)
			if !ok {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"sessionError","message":"unknown type"}`))
				continue
			}

			rm.Inbox() <- msg
		}
	}
}

// toRoomMsg maps a wire event to a room message. joinSession may carry its
// own username; every other event is attributed to the handshake name. The
// roomId field in reveal/reset payloads is accepted but the command always
// applies to the connection's own room.
func toRoomMsg(clientID, username string, spectator bool, m types.ClientMessage) (room.Msg, bool) {
	name := username
	switch m.Type {
	case types.MsgJoinSession:
		if m.Username != "" {
			name = m.Username
		}
		return room.FromClient{ClientID: clientID, Username: name,
			Cmd: session.Command{Type: session.CmdJoin, IsSpectator: m.IsSpectator || spectator}}, true
	case types.MsgVote:
		return room.FromClient{ClientID: clientID, Username: name,
			Cmd: session.Command{Type: session.CmdVote, Vote: m.Vote}}, true
	case types.MsgRevealVotes:
		return room.FromClient{ClientID: clientID, Username: name,
			Cmd: session.Command{Type: session.CmdReveal}}, true
	case types.MsgResetRound:
		return room.FromClient{ClientID: clientID, Username: name,
			Cmd: session.Command{Type: session.CmdReset, StoryName: m.StoryName}}, true
	case types.MsgSwitchRole:
		return room.FromClient{ClientID: clientID, Username: name,
			Cmd: session.Command{Type: session.CmdSwitchRole, IsSpectator: m.IsSpectator}}, true
	case types.MsgSendReaction:
		return room.Reaction{ClientID: clientID, Emoji: m.Emoji}, true
	default:
		return nil, false
	}
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
