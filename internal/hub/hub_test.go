package hub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scrumline/poker-backend/internal/room"
	"github.com/scrumline/poker-backend/internal/store"
)

func TestHub_EnsureThenGet_SamePointer(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, store.NewMemoryStore(), zap.NewNop())
	reply := make(chan *room.Room, 1)

	h.Inbox() <- EnsureRoom{TeamID: "team-1", OwnerID: "alice", Reply: reply}
	rm1 := <-reply
	require.NotNil(t, rm1)

	h.Inbox() <- EnsureRoom{TeamID: "team-1", OwnerID: "someone-else", Reply: reply}
	rm2 := <-reply

	h.Inbox() <- GetRoom{TeamID: "team-1", Reply: reply}
	rm3 := <-reply

	require.Same(t, rm1, rm2, "ensure must not replace an existing room")
	require.Same(t, rm1, rm3)
}

func TestHub_GetUnknownRoomIsNil(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, store.NewMemoryStore(), zap.NewNop())
	reply := make(chan *room.Room, 1)

	h.Inbox() <- GetRoom{TeamID: "missing", Reply: reply}
	require.Nil(t, <-reply)
}

func TestHub_RemoveRoom(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, store.NewMemoryStore(), zap.NewNop())
	reply := make(chan *room.Room, 1)

	h.Inbox() <- EnsureRoom{TeamID: "team-1", OwnerID: "alice", Reply: reply}
	<-reply

	h.Inbox() <- RemoveRoom{TeamID: "team-1"}

	h.Inbox() <- GetRoom{TeamID: "team-1", Reply: reply}
	require.Nil(t, <-reply)
}
