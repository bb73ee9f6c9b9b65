package repository

import (
	"context"
	"errors"

	"roamly-chat/internal/domain/user"
	roamly_errors "roamly-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresUserDirectory struct {
	db *gorm.DB
}

func NewUserDirectory(db *gorm.DB) UserDirectory {
	return &PostgresUserDirectory{db: db}
}

func (r *PostgresUserDirectory) GetProfile(ctx context.Context, id uuid.UUID) (user.Profile, error) {
	var p user.Profile
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user.Profile{}, roamly_errors.ErrNotFound
		}
		return user.Profile{}, err
	}
	return p, nil
}
