package outbox

import (
	"errors"

	"gorm.io/gorm"

	"github.com/rentloop/rentloop-backend/pkg/db/models"
)

// Oversized provider errors get clipped before landing in the dead letter row.
const maxDLQErrorLen = 1024

// DLQRepository writes order events the publisher gave up on. Rows are
// inspected and replayed by hand; nothing in the runtime reads them back.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx parks the event in the DLQ within the publisher's batch
// transaction, so the event row and its tombstone commit together.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("dlq insert requires the batch transaction")
	}
	if entry.ErrorMessage != nil {
		msg := clipDLQError(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

func clipDLQError(message string) string {
	if len(message) <= maxDLQErrorLen {
		return message
	}
	return message[:maxDLQErrorLen]
}
