package session

import "errors"

var ErrRoundRevealed = errors.New("round already revealed")
var ErrNotMember = errors.New("not a session member")
var ErrUnsupportedCommand = errors.New("unsupported command")

type State string

const (
	StateVoting   State = "voting"
	StateRevealed State = "revealed"
)

const DefaultStoryName = "New Story"

type Member struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	IsSpectator bool   `json:"isSpectator"`
}

// Session is the current voting round of one room. Authorization is the
// caller's job: Apply assumes the command has already passed the membership
// and ownership checks.
type Session struct {
	TeamID    string            `json:"teamId"`
	StoryName string            `json:"storyName"`
	State     State             `json:"state"`
	Votes     map[string]string `json:"votes"`
	Members   []Member          `json:"members"`
	OwnerID   string            `json:"ownerId"`
}

// New returns a fresh session in the voting state. OwnerID is captured once
// here and never refreshed, even if team ownership changes later.
func New(teamID, ownerID string) Session {
	return Session{
		TeamID:    teamID,
		StoryName: DefaultStoryName,
		State:     StateVoting,
		Votes:     map[string]string{},
		Members:   []Member{},
		OwnerID:   ownerID,
	}
}

type CommandType string

const (
	CmdJoin       CommandType = "Join"
	CmdVote       CommandType = "Vote"
	CmdReveal     CommandType = "Reveal"
	CmdReset      CommandType = "Reset"
	CmdSwitchRole CommandType = "SwitchRole"
)

type Command struct {
	Type        CommandType
	UserID      string
	Username    string
	Vote        string
	StoryName   string
	IsSpectator bool
}

type EventType string

const (
	EvtMemberJoined     EventType = "MemberJoined"
	EvtVotesRevealed    EventType = "VotesRevealed"
	EvtConsensusReached EventType = "ConsensusReached"
)

type Event struct {
	Type   EventType
	UserID string
	Stats  *Stats
}

func Apply(s Session, cmd Command) ([]Event, Session, error) {
	newState := s

	switch cmd.Type {
	case CmdJoin:
		// Rejoining clears any earlier vote and refreshes the spectator flag;
		// a member entry is never duplicated.
		newState.Votes = cloneVotes(s.Votes)
		delete(newState.Votes, cmd.UserID)
		if i := memberIndex(s, cmd.UserID); i >= 0 {
			newState.Members = cloneMembers(s.Members)
			newState.Members[i].IsSpectator = cmd.IsSpectator
		} else {
			newState.Members = append(cloneMembers(s.Members), Member{
				UserID:      cmd.UserID,
				Username:    cmd.Username,
				IsSpectator: cmd.IsSpectator,
			})
		}
		return []Event{{Type: EvtMemberJoined, UserID: cmd.UserID}}, newState, nil

	case CmdVote:
		if s.State != StateVoting {
			return nil, s, ErrRoundRevealed
		}
		// Last write wins; spectators are not blocked here.
		newState.Votes = cloneVotes(s.Votes)
		newState.Votes[cmd.UserID] = cmd.Vote
		return nil, newState, nil

	case CmdReveal:
		newState.State = StateRevealed
		stats := Summarize(newState)
		events := []Event{{Type: EvtVotesRevealed, Stats: &stats}}
		if HasConsensus(newState) {
			events = append(events, Event{Type: EvtConsensusReached})
		}
		return events, newState, nil

	case CmdReset:
		newState.State = StateVoting
		newState.Votes = map[string]string{}
		newState.StoryName = cmd.StoryName
		if newState.StoryName == "" {
			newState.StoryName = DefaultStoryName
		}
		return nil, newState, nil

	case CmdSwitchRole:
		i := memberIndex(s, cmd.UserID)
		if i < 0 {
			return nil, s, ErrNotMember
		}
		newState.Members = cloneMembers(s.Members)
		newState.Members[i].IsSpectator = cmd.IsSpectator
		return nil, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func memberIndex(s Session, userID string) int {
	for i, m := range s.Members {
		if m.UserID == userID {
			return i
		}
	}
	return -1
}

func cloneVotes(votes map[string]string) map[string]string {
	out := make(map[string]string, len(votes))
	for k, v := range votes {
		out[k] = v
	}
	return out
}

func cloneMembers(members []Member) []Member {
	return append([]Member(nil), members...)
}
