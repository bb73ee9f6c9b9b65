package repository

import (
	"context"
	"errors"
	"time"

	"roamly-chat/internal/domain/trip"
	roamly_errors "roamly-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostgresTripRepository implements the TripService collaborator contract
// against the shared trips schema. Trip CRUD lives in the trips service; this
// adapter only reads and decides join requests.
type PostgresTripRepository struct {
	db *gorm.DB
}

func NewTripRepository(db *gorm.DB) TripService {
	return &PostgresTripRepository{db: db}
}

func (r *PostgresTripRepository) GetTrip(ctx context.Context, tripID uuid.UUID) (trip.Details, error) {
	var t trip.Trip
	err := r.db.WithContext(ctx).
		Where("id = ?", tripID).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return trip.Details{}, roamly_errors.ErrNotFound
		}
		return trip.Details{}, err
	}

	var approved []uuid.UUID
	err = r.db.WithContext(ctx).
		Model(&trip.TripParticipant{}).
		Where("trip_id = ? AND status = ?", tripID, trip.StatusApproved).
		Order("updated_at ASC").
		Pluck("user_id", &approved).Error
	if err != nil {
		return trip.Details{}, err
	}

	// The creator counts as approved without a participant row.
	members := make([]uuid.UUID, 0, len(approved)+1)
	members = append(members, t.CreatorID)
	for _, id := range approved {
		if id != t.CreatorID {
			members = append(members, id)
		}
	}

	return trip.Details{
		ID:                   t.ID,
		CreatorID:            t.CreatorID,
		Title:                t.Title,
		PhotoKey:             t.PhotoKey,
		MaxParticipants:      t.MaxParticipants,
		ApprovedParticipants: members,
	}, nil
}

// SetParticipantStatus decides a join request. Re-applying the same decision
// is a no-op; a missing request row gets created so retries after a partial
// accept converge.
func (r *PostgresTripRepository) SetParticipantStatus(ctx context.Context, tripID, userID uuid.UUID, status string) error {
	res := r.db.WithContext(ctx).
		Model(&trip.TripParticipant{}).
		Where("trip_id = ? AND user_id = ?", tripID, userID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		p := trip.TripParticipant{
			ID:        uuid.New(),
			TripID:    tripID,
			UserID:    userID,
			Status:    status,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil
			}
			return err
		}
	}
	return nil
}
