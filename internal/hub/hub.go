package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/scrumline/poker-backend/internal/room"
	"github.com/scrumline/poker-backend/internal/store"
)

type HubMsg interface{ isHubMsg() }

type GetRoom struct {
	TeamID string
	Reply  chan *room.Room
}

type EnsureRoom struct {
	TeamID  string
	OwnerID string // only used if creation happens
	Reply   chan *room.Room
}

type RemoveRoom struct {
	TeamID string
}

type ShutdownHub struct{}

func (GetRoom) isHubMsg()     {}
func (EnsureRoom) isHubMsg()  {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Hub owns the teamID -> room map. Rooms are created lazily and live for the
// process lifetime; nothing sends RemoveRoom in normal operation.
type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	store  store.Store
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, st store.Store, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		store:  st,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case GetRoom:
				msg.Reply <- h.rooms[msg.TeamID] // may be nil

			case EnsureRoom:
				if rm := h.rooms[msg.TeamID]; rm != nil {
					msg.Reply <- rm
					break
				}
				rm := room.New(h.ctx, msg.TeamID, msg.OwnerID, h.store, h.log)
				h.rooms[msg.TeamID] = rm
				h.log.Info("room created", zap.String("room", msg.TeamID))
				msg.Reply <- rm

			case RemoveRoom:
				delete(h.rooms, msg.TeamID)

			case ShutdownHub:
				for _, rm := range h.rooms {
					rm.Inbox() <- room.Shutdown{}
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}
