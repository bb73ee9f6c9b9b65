package trip

import (
	"time"

	"github.com/google/uuid"
)

// Join-request participant statuses.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// Trip represents the trips table. Trip CRUD lives in another service; this
// service only reads trips and flips participant statuses.
type Trip struct {
	ID              uuid.UUID
	CreatorID       uuid.UUID
	Title           string
	PhotoKey        string
	MaxParticipants int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TripParticipant represents the trip_participants table: one row per join
// request, decided by the trip creator.
type TripParticipant struct {
	ID        uuid.UUID
	TripID    uuid.UUID
	UserID    uuid.UUID
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Details is what the conversation core needs to know about a trip. The
// approved list includes the creator.
type Details struct {
	ID                   uuid.UUID
	CreatorID            uuid.UUID
	Title                string
	PhotoKey             string
	MaxParticipants      int
	ApprovedParticipants []uuid.UUID
}

func (Trip) TableName() string {
	return "trips"
}

func (TripParticipant) TableName() string {
	return "trip_participants"
}
