package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/listing-qa-backend/pkg/db/models"
	"github.com/angelmondragon/listing-qa-backend/pkg/pagination"
)

const maxDLQErrorLen = 1024

var (
	ErrDeadLetterNotFound = errors.New("dead letter not found")
	// ErrEventNotRequeueable means the source row was pruned or already published.
	ErrEventNotRequeueable = errors.New("outbox event no longer pending")
)

// DLQRepository stores events the publisher gave up on, one row per event.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx records a terminal failure inside the publisher's batch transaction.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return ErrTransactionRequired
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.ErrorMessage != nil {
		entry.ErrorMessage = clip(*entry.ErrorMessage, maxDLQErrorLen)
	}
	return tx.Create(&entry).Error
}

// FindByEventID returns nil, nil when the event never dead-lettered.
func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var entry models.OutboxDLQ
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List pages through dead letters, most recent failure first.
func (r *DLQRepository) List(ctx context.Context, params pagination.Params) (pagination.Page[models.OutboxDLQ], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.OutboxDLQ]{}, err
	}

	var rows []models.OutboxDLQ
	if err := r.db.WithContext(ctx).
		Scopes(pagination.Seek("failed_at", cursor)).
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return pagination.Page[models.OutboxDLQ]{}, err
	}
	return pagination.BuildPage(rows, params.Limit, func(row models.OutboxDLQ) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.FailedAt, ID: row.ID}
	}), nil
}

// Requeue gives a dead-lettered event a fresh attempt budget and removes its
// DLQ row, so the publisher picks it up on its next batch.
func (r *DLQRepository) Requeue(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var entry models.OutboxDLQ
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", eventID).Take(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDeadLetterNotFound
			}
			return err
		}

		res := tx.Model(&models.OutboxEvent{}).
			Where("id = ? AND published_at IS NULL", eventID).
			Updates(map[string]any{"attempt_count": 0, "last_error": nil})
		if res.Error != nil {
			return fmt.Errorf("reset outbox event: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrEventNotRequeueable
		}
		return tx.Delete(&models.OutboxDLQ{}, "id = ?", entry.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func clip(msg string, limit int) *string {
	if len(msg) > limit {
		msg = msg[:limit]
	}
	return &msg
}
