package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is the map-backed Store used by tests and as the dev fallback
// when no database is configured.
type MemoryStore struct {
	mu      sync.Mutex
	users   map[string]User // keyed by username
	teams   map[string]Team
	members map[string][]string // teamID -> userIDs in join order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]User),
		teams:   make(map[string]Team),
		members: make(map[string][]string),
	}
}

func (s *MemoryStore) ResolveOrCreateUser(_ context.Context, username string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[username]; ok {
		return u, nil
	}
	u := User{ID: uuid.NewString(), Username: username}
	s.users[username] = u
	return u, nil
}

func (s *MemoryStore) FindUserByUsername(_ context.Context, username string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) FindTeam(_ context.Context, id string) (Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[id]
	if !ok {
		return Team{}, ErrNotFound
	}
	t.MemberIDs = append([]string(nil), s.members[id]...)
	return t, nil
}

func (s *MemoryStore) CreateTeam(_ context.Context, name, ownerID string) (Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := Team{ID: uuid.NewString(), Name: name, OwnerID: ownerID}
	s.teams[t.ID] = t
	s.members[t.ID] = []string{ownerID}
	t.MemberIDs = []string{ownerID}
	return t, nil
}

func (s *MemoryStore) AddMember(_ context.Context, teamID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[teamID]; !ok {
		return ErrNotFound
	}
	for _, id := range s.members[teamID] {
		if id == userID {
			return ErrAlreadyMember
		}
	}
	s.members[teamID] = append(s.members[teamID], userID)
	return nil
}

func (s *MemoryStore) RemoveMember(_ context.Context, teamID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.members[teamID]
	for i, id := range ids {
		if id == userID {
			s.members[teamID] = append(ids[:i:i], ids[i+1:]...)
			return nil
		}
	}
	return ErrNotMember
}

func (s *MemoryStore) IsMember(_ context.Context, teamID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.members[teamID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) TeamsByUser(_ context.Context, userID string) ([]Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	teams := []Team{}
	for teamID, ids := range s.members {
		for _, id := range ids {
			if id == userID {
				teams = append(teams, s.teams[teamID])
				break
			}
		}
	}
	return teams, nil
}
