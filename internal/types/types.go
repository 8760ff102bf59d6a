package types

import "github.com/scrumline/poker-backend/internal/session"

// Client -> Server event names.
const (
	MsgJoinSession  = "joinSession"
	MsgVote         = "vote"
	MsgRevealVotes  = "revealVotes"
	MsgResetRound   = "resetRound"
	MsgSwitchRole   = "switchRole"
	MsgSendReaction = "sendReaction"
)

// Server -> Client event names.
const (
	MsgSessionUpdate    = "sessionUpdate"
	MsgSessionJoined    = "sessionJoined"
	MsgReveal           = "reveal"
	MsgConsensusReached = "consensusReached"
	MsgReactionReceived = "reactionReceived"
	MsgSessionError     = "sessionError"
)

type ClientMessage struct {
	Type        string `json:"type"`
	RoomID      string `json:"roomId,omitempty"`
	Username    string `json:"username,omitempty"`
	IsSpectator bool   `json:"isSpectator,omitempty"`
	Vote        string `json:"vote,omitempty"`
	StoryName   string `json:"newStoryName,omitempty"`
	Emoji       string `json:"emoji,omitempty"`
}

type ServerMessage struct {
	Type    string           `json:"type"`
	Version int              `json:"version,omitempty"`
	Session *session.Session `json:"session,omitempty"`
	Stats   *session.Stats   `json:"stats,omitempty"`
	UserID  string           `json:"userId,omitempty"`
	Emoji   string           `json:"emoji,omitempty"`
	Error   string           `json:"message,omitempty"`
}
