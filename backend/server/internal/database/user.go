package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fitlogd/fitlog/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)

// UserCreate inserts a new user, assigning a uuid when the caller did not
// supply an id. The unique index on username makes concurrent duplicate
// creations race-safe: exactly one insert wins, the rest get ErrUsernameTaken.
// Requires gorm.Config{TranslateError: true} so duplicate-key errors surface
// as gorm.ErrDuplicatedKey on both sqlite and postgres.
func (db *DB) UserCreate(ctx context.Context, user *shared.User) error {
	if user.ID == "" {
		user.ID = uuid.Must(uuid.NewRandom()).String()
	}
	tx := db.WithContext(ctx).Create(user)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrDuplicatedKey) || strings.Contains(tx.Error.Error(), "UNIQUE constraint failed") {
			return ErrUsernameTaken
		}
		return fmt.Errorf("tx.Error: %w", tx.Error)
	}

	return nil
}

func (db *DB) UserByID(ctx context.Context, id string) (*shared.User, error) {
	var user shared.User
	tx := db.WithContext(ctx).Where("id = ?", id).First(&user)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("tx.Error: %w", tx.Error)
	}

	return &user, nil
}

func (db *DB) UserByUsername(ctx context.Context, username string) (*shared.User, error) {
	var user shared.User
	tx := db.WithContext(ctx).Where("username = ?", username).First(&user)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("tx.Error: %w", tx.Error)
	}

	return &user, nil
}

func (db *DB) AllUsers(ctx context.Context) ([]*shared.User, error) {
	users := make([]*shared.User, 0)
	tx := db.WithContext(ctx).Find(&users)
	if tx.Error != nil {
		return nil, fmt.Errorf("tx.Error: %w", tx.Error)
	}

	return users, nil
}

func (db *DB) CountUsers(ctx context.Context) (int64, error) {
	var numUsers int64
	tx := db.WithContext(ctx).Model(&shared.User{}).Count(&numUsers)
	if tx.Error != nil {
		return 0, fmt.Errorf("tx.Error: %w", tx.Error)
	}

	return numUsers, nil
}

func (db *DB) DateOfLastRegistration(ctx context.Context) (string, error) {
	var users []*shared.User
	tx := db.WithContext(ctx).Order("created_at DESC").Limit(1).Find(&users)
	if tx.Error != nil {
		return "", fmt.Errorf("tx.Error: %w", tx.Error)
	}
	if len(users) == 0 {
		return "N/A", nil
	}

	return users[0].CreatedAt.Format(shared.DateOnly), nil
}
