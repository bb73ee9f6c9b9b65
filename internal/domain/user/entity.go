package user

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the narrow read model this service consumes from the users
// table. Profile storage and mutation belong to the accounts service.
type Profile struct {
	ID          uuid.UUID
	DisplayName string
	AvatarKey   string
	CreatedAt   time.Time
}

func (Profile) TableName() string {
	return "users"
}
