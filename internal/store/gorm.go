package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormStore persists users, teams and memberships in Postgres.
type GormStore struct {
	db *gorm.DB
}

func Open(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&User{}, &Team{}, &TeamMember{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) ResolveOrCreateUser(ctx context.Context, username string) (User, error) {
	var u User
	err := s.db.WithContext(ctx).First(&u, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		u = User{ID: uuid.NewString(), Username: username}
		if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
			return User{}, fmt.Errorf("create user: %w", err)
		}
		return u, nil
	}
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *GormStore) FindUserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := s.db.WithContext(ctx).First(&u, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *GormStore) FindTeam(ctx context.Context, id string) (Team, error) {
	var t Team
	err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Team{}, ErrNotFound
	}
	if err != nil {
		return Team{}, fmt.Errorf("find team: %w", err)
	}

	var rows []TeamMember
	if err := s.db.WithContext(ctx).Where("team_id = ?", id).Find(&rows).Error; err != nil {
		return Team{}, fmt.Errorf("find team members: %w", err)
	}
	for _, row := range rows {
		t.MemberIDs = append(t.MemberIDs, row.UserID)
	}
	return t, nil
}

func (s *GormStore) CreateTeam(ctx context.Context, name, ownerID string) (Team, error) {
	t := Team{ID: uuid.NewString(), Name: name, OwnerID: ownerID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&t).Error; err != nil {
			return err
		}
		// The owner is a member from the start.
		return tx.Create(&TeamMember{TeamID: t.ID, UserID: ownerID}).Error
	})
	if err != nil {
		return Team{}, fmt.Errorf("create team: %w", err)
	}
	t.MemberIDs = []string{ownerID}
	return t, nil
}

func (s *GormStore) AddMember(ctx context.Context, teamID, userID string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if count > 0 {
		return ErrAlreadyMember
	}
	if err := s.db.WithContext(ctx).Create(&TeamMember{TeamID: teamID, UserID: userID}).Error; err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (s *GormStore) RemoveMember(ctx context.Context, teamID, userID string) error {
	res := s.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&TeamMember{})
	if res.Error != nil {
		return fmt.Errorf("remove member: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotMember
	}
	return nil
}

func (s *GormStore) IsMember(ctx context.Context, teamID, userID string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return count > 0, nil
}

func (s *GormStore) TeamsByUser(ctx context.Context, userID string) ([]Team, error) {
	var teams []Team
	err := s.db.WithContext(ctx).
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.user_id = ?", userID).
		Find(&teams).Error
	if err != nil {
		return nil, fmt.Errorf("teams by user: %w", err)
	}
	return teams, nil
}
