package room

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/scrumline/poker-backend/internal/session"
	"github.com/scrumline/poker-backend/internal/store"
	"github.com/scrumline/poker-backend/internal/types"
)

type Msg interface{ isRoomMsg() }

// Subscribe registers a connection's outbox. The connection only starts
// receiving broadcasts once its joinSession command succeeds.
type Subscribe struct {
	ClientID string
	Outbox   chan types.ServerMessage
}

type Leave struct{ ClientID string }

// FromClient carries one protocol event. Username is re-read from the
// connection handshake for every event; the user record is resolved (or
// created) against the store inside the room loop.
type FromClient struct {
	ClientID string
	Username string
	Cmd      session.Command
}

// Reaction is relayed to the room without touching session state.
type Reaction struct {
	ClientID string
	Emoji    string
}

type Shutdown struct{}

type GetState struct {
	Reply chan View
}

func (Subscribe) isRoomMsg()  {}
func (Leave) isRoomMsg()      {}
func (FromClient) isRoomMsg() {}
func (Reaction) isRoomMsg()   {}
func (Shutdown) isRoomMsg()   {}
func (GetState) isRoomMsg()   {}

// View reflects internal state for tests without data races.
type View struct {
	Version    int
	NumClients int
	Session    session.Session
}

type client struct {
	outbox chan types.ServerMessage
	joined bool
}

// Room owns the session for one team. All session mutation happens inside its
// single loop goroutine, so handlers are atomic per room and need no locks.
type Room struct {
	inbox   chan Msg
	teamID  string
	sess    session.Session
	version int
	clients map[string]*client
	store   store.Store
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, teamID, ownerID string, st store.Store, log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		inbox:   make(chan Msg, 64),
		teamID:  teamID,
		sess:    session.New(teamID, ownerID),
		clients: make(map[string]*client),
		store:   st,
		log:     log.With(zap.String("room", teamID)),
		ctx:     ctx,
		cancel:  cancel,
	}
	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Subscribe:
				r.clients[msg.ClientID] = &client{outbox: msg.Outbox}

			case Leave:
				// Disconnect is a no-op for the round: members and votes stay.
				if c := r.clients[msg.ClientID]; c != nil {
					close(c.outbox)
					delete(r.clients, msg.ClientID)
				}

			case FromClient:
				r.handle(msg)

			case Reaction:
				c := r.clients[msg.ClientID]
				if c == nil || !c.joined {
					break
				}
				r.broadcast(types.ServerMessage{Type: types.MsgReactionReceived, Emoji: msg.Emoji})

			case GetState:
				msg.Reply <- View{Version: r.version, NumClients: len(r.clients), Session: r.sess}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handle(msg FromClient) {
	user, err := r.store.ResolveOrCreateUser(r.ctx, msg.Username)
	if err != nil {
		r.log.Error("resolve user", zap.String("username", msg.Username), zap.Error(err))
		r.sendError(msg.ClientID, "internal error")
		return
	}

	cmd := msg.Cmd
	cmd.UserID = user.ID
	cmd.Username = user.Username

	if cmd.Type == session.CmdVote {
		if c := r.clients[msg.ClientID]; c == nil || !c.joined {
			r.sendError(msg.ClientID, "Not joined to a session or unauthorized")
			return
		}
	}

	if reason := r.authorize(cmd.Type, user.ID); reason != "" {
		r.log.Warn("rejected",
			zap.String("cmd", string(cmd.Type)),
			zap.String("username", user.Username),
			zap.String("reason", reason))
		r.sendError(msg.ClientID, reason)
		return
	}

	events, next, err := session.Apply(r.sess, cmd)
	if err != nil {
		// Illegal transitions (voting after reveal, role switch by a
		// non-member) are dropped without a broadcast; state is unchanged.
		return
	}
	r.sess = next
	r.version++

	if cmd.Type == session.CmdJoin {
		if c := r.clients[msg.ClientID]; c != nil {
			c.joined = true
		}
	}

	// Reveal statistics and the consensus signal go out before the snapshot,
	// matching the order clients reconcile in.
	for _, ev := range events {
		switch ev.Type {
		case session.EvtVotesRevealed:
			r.broadcast(types.ServerMessage{Type: types.MsgReveal, Stats: ev.Stats})
		case session.EvtConsensusReached:
			r.broadcast(types.ServerMessage{Type: types.MsgConsensusReached})
		}
	}

	// Snapshot by value: subscribers marshal concurrently with the loop, so
	// they must never alias the live sess field. Apply already clones the
	// maps and slices inside.
	snap := r.sess
	r.broadcast(types.ServerMessage{Type: types.MsgSessionUpdate, Version: r.version, Session: &snap})

	for _, ev := range events {
		if ev.Type == session.EvtMemberJoined {
			r.sendTo(msg.ClientID, types.ServerMessage{Type: types.MsgSessionJoined, UserID: ev.UserID})
		}
	}
}

// authorize is the membership/ownership guard. It returns the error text for
// the sender, or "" when the command may proceed. Ownership is always checked
// against a fresh team lookup, never the snapshot's cached ownerId.
func (r *Room) authorize(cmd session.CommandType, userID string) string {
	switch cmd {
	case session.CmdJoin:
		team, err := r.store.FindTeam(r.ctx, r.teamID)
		if errors.Is(err, store.ErrNotFound) {
			return "Team not found"
		}
		if err != nil {
			r.log.Error("find team", zap.Error(err))
			return "internal error"
		}
		ok, err := r.store.IsMember(r.ctx, team.ID, userID)
		if err != nil {
			r.log.Error("check membership", zap.Error(err))
			return "internal error"
		}
		if !ok {
			return "User not authorized for this team"
		}

	case session.CmdReveal:
		if !r.isOwner(userID) {
			return "Only the moderator can reveal votes."
		}

	case session.CmdReset:
		if !r.isOwner(userID) {
			return "Only the moderator can reset the round."
		}
	}
	return ""
}

func (r *Room) isOwner(userID string) bool {
	team, err := r.store.FindTeam(r.ctx, r.teamID)
	if err != nil {
		return false
	}
	return team.OwnerID == userID
}

func (r *Room) broadcast(msg types.ServerMessage) {
	for id, c := range r.clients {
		if !c.joined {
			continue
		}
		select {
		case c.outbox <- msg:
		default:
			// Client is slow/full - drop them.
			close(c.outbox)
			delete(r.clients, id)
		}
	}
}

func (r *Room) sendTo(clientID string, msg types.ServerMessage) {
	c := r.clients[clientID]
	if c == nil {
		return
	}
	select {
	case c.outbox <- msg:
	default:
		close(c.outbox)
		delete(r.clients, clientID)
	}
}

func (r *Room) sendError(clientID, text string) {
	r.sendTo(clientID, types.ServerMessage{Type: types.MsgSessionError, Error: text})
}

func (r *Room) shutdown() {
	for id, c := range r.clients {
		close(c.outbox)
		delete(r.clients, id)
	}
	r.cancel()
}
