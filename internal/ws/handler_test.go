package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scrumline/poker-backend/internal/hub"
	"github.com/scrumline/poker-backend/internal/store"
	"github.com/scrumline/poker-backend/internal/types"
)

func newGateway(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	h := hub.NewHub(context.Background(), st, zap.NewNop())
	mux := http.NewServeMux()
	mux.Handle("/ws", Handler(h, st, zap.NewNop()))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, st
}

func dial(t *testing.T, srv *httptest.Server, roomID, username string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?room=" + roomID + "&username=" + username
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg types.ClientMessage) {
	t.Helper()
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, payload))
}

func expect(t *testing.T, conn *websocket.Conn, wantType string) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg types.ServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	require.Equal(t, wantType, msg.Type, "payload: %s", data)
	return msg
}

func TestHandler_RejectsMissingMetadata(t *testing.T) {
	srv, _ := newGateway(t)

	resp, err := http.Get(srv.URL + "/ws?room=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_UnknownRoomIs404(t *testing.T) {
	srv, _ := newGateway(t)

	resp, err := http.Get(srv.URL + "/ws?room=missing&username=alice")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// Full round: owner and member join, vote far apart, the owner reveals.
func TestHandler_EndToEndRound(t *testing.T) {
	srv, st := newGateway(t)
	ctx := context.Background()

	alice, err := st.ResolveOrCreateUser(ctx, "alice")
	require.NoError(t, err)
	team, err := st.CreateTeam(ctx, "Sprint 12", alice.ID)
	require.NoError(t, err)
	bob, err := st.ResolveOrCreateUser(ctx, "bob")
	require.NoError(t, err)
	require.NoError(t, st.AddMember(ctx, team.ID, bob.ID))

	aliceConn := dial(t, srv, team.ID, "alice")
	send(t, aliceConn, types.ClientMessage{Type: types.MsgJoinSession, RoomID: team.ID, Username: "alice"})
	update := expect(t, aliceConn, types.MsgSessionUpdate)
	require.NotNil(t, update.Session)
	assert.Equal(t, team.ID, update.Session.TeamID)
	joined := expect(t, aliceConn, types.MsgSessionJoined)
	assert.Equal(t, alice.ID, joined.UserID)

	bobConn := dial(t, srv, team.ID, "bob")
	send(t, bobConn, types.ClientMessage{Type: types.MsgJoinSession, RoomID: team.ID, Username: "bob"})
	_ = expect(t, bobConn, types.MsgSessionUpdate)
	_ = expect(t, bobConn, types.MsgSessionJoined)
	_ = expect(t, aliceConn, types.MsgSessionUpdate) // bob's join snapshot

	send(t, aliceConn, types.ClientMessage{Type: types.MsgVote, Vote: "5"})
	_ = expect(t, aliceConn, types.MsgSessionUpdate)
	_ = expect(t, bobConn, types.MsgSessionUpdate)

	send(t, bobConn, types.ClientMessage{Type: types.MsgVote, Vote: "8"})
	_ = expect(t, aliceConn, types.MsgSessionUpdate)
	update = expect(t, bobConn, types.MsgSessionUpdate)
	assert.Len(t, update.Session.Votes, 2)

	send(t, aliceConn, types.ClientMessage{Type: types.MsgRevealVotes, RoomID: team.ID})

	reveal := expect(t, bobConn, types.MsgReveal)
	require.NotNil(t, reveal.Stats)
	assert.InDelta(t, 6.5, reveal.Stats.Average, 1e-9)
	assert.InDelta(t, 6.5, reveal.Stats.Median, 1e-9)
	assert.Equal(t, alice.ID, reveal.Stats.MinVoter)
	assert.Equal(t, bob.ID, reveal.Stats.MaxVoter)

	// tokens differ: no consensus, straight to the snapshot
	update = expect(t, bobConn, types.MsgSessionUpdate)
	assert.Equal(t, "revealed", string(update.Session.State))

	// non-owner reset is rejected on bob's connection only
	send(t, bobConn, types.ClientMessage{Type: types.MsgResetRound, RoomID: team.ID})
	errMsg := expect(t, bobConn, types.MsgSessionError)
	assert.Equal(t, "Only the moderator can reset the round.", errMsg.Error)

	// owner resets for the next story
	send(t, aliceConn, types.ClientMessage{Type: types.MsgResetRound, RoomID: team.ID, StoryName: "Search page"})
	_ = expect(t, aliceConn, types.MsgReveal) // pending from the reveal above
	_ = expect(t, aliceConn, types.MsgSessionUpdate)
	update = expect(t, aliceConn, types.MsgSessionUpdate)
	assert.Equal(t, "voting", string(update.Session.State))
	assert.Equal(t, "Search page", update.Session.StoryName)
	assert.Empty(t, update.Session.Votes)
}

func TestHandler_ReactionRelayed(t *testing.T) {
	srv, st := newGateway(t)
	ctx := context.Background()

	alice, err := st.ResolveOrCreateUser(ctx, "alice")
	require.NoError(t, err)
	team, err := st.CreateTeam(ctx, "Sprint 12", alice.ID)
	require.NoError(t, err)

	conn := dial(t, srv, team.ID, "alice")
	send(t, conn, types.ClientMessage{Type: types.MsgJoinSession, Username: "alice"})
	_ = expect(t, conn, types.MsgSessionUpdate)
	_ = expect(t, conn, types.MsgSessionJoined)

	send(t, conn, types.ClientMessage{Type: types.MsgSendReaction, Emoji: "🎉"})
	msg := expect(t, conn, types.MsgReactionReceived)
	assert.Equal(t, "🎉", msg.Emoji)
}

func TestHandler_UnknownTypeGetsSessionError(t *testing.T) {
	srv, st := newGateway(t)
	ctx := context.Background()

	alice, err := st.ResolveOrCreateUser(ctx, "alice")
	require.NoError(t, err)
	team, err := st.CreateTeam(ctx, "Sprint 12", alice.ID)
	require.NoError(t, err)

	conn := dial(t, srv, team.ID, "alice")
	send(t, conn, types.ClientMessage{Type: "bogus"})
	msg := expect(t, conn, types.MsgSessionError)
	assert.Equal(t, "unknown type", msg.Error)
}
