package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")
var ErrAlreadyMember = errors.New("already a member")
var ErrNotMember = errors.New("not a member")

type User struct {
	ID       string `json:"id" gorm:"primaryKey"`
	Username string `json:"username" gorm:"uniqueIndex;not null"`
}

type Team struct {
	ID      string `json:"id" gorm:"primaryKey"`
	Name    string `json:"name"`
	OwnerID string `json:"ownerId" gorm:"index"`
	// Populated on read; membership itself lives in team_members.
	MemberIDs []string `json:"memberIds" gorm:"-"`
}

type TeamMember struct {
	TeamID string `gorm:"primaryKey"`
	UserID string `gorm:"primaryKey"`
}

// Store is the identity and membership collaborator. The session engine only
// reads through it; round state is never persisted here.
type Store interface {
	ResolveOrCreateUser(ctx context.Context, username string) (User, error)
	FindUserByUsername(ctx context.Context, username string) (User, error)
	FindTeam(ctx context.Context, id string) (Team, error)
	CreateTeam(ctx context.Context, name, ownerID string) (Team, error)
	AddMember(ctx context.Context, teamID, userID string) error
	RemoveMember(ctx context.Context, teamID, userID string) error
	IsMember(ctx context.Context, teamID, userID string) (bool, error)
	TeamsByUser(ctx context.Context, userID string) ([]Team, error)
}
