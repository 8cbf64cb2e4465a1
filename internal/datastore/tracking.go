package datastore

import (
	"fmt"
	"time"

	"gorm.io/gorm/clause"
)

// SaveConversion inserts a conversion row. When an event id is present the
// insert is conflict-aware: a retried event leaves the original row in place
// and cv.ID stays zero so the caller can fetch the existing row.
func (ds *DataStore) SaveConversion(cv *Conversion) error {
	tx := ds.DB
	if cv.EventID != nil {
		tx = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		})
	}
	if err := tx.Create(cv).Error; err != nil {
		return fmt.Errorf("saving conversion: %w", err)
	}
	return nil
}

// GetConversionByEventID returns the conversion carrying the idempotency
// key, or nil when none exists.
func (ds *DataStore) GetConversionByEventID(eventID string) (*Conversion, error) {
	var row Conversion
	err := ds.DB.Where("event_id = ?", eventID).First(&row).Error
	if err != nil {
		if err := notFoundAsNil(err); err != nil {
			return nil, fmt.Errorf("getting conversion by event id: %w", err)
		}
		return nil, nil
	}
	return &row, nil
}

// CountRecentConversions counts conversions from the same hashed IP within
// the window. Feeds the ip_rate risk heuristic.
func (ds *DataStore) CountRecentConversions(ipHash string, window time.Duration) (int64, error) {
	var count int64
	err := ds.DB.Model(&Conversion{}).
		Where("ip_hash = ? AND created_at > ?", ipHash, time.Now().Add(-window)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting recent conversions: %w", err)
	}
	return count, nil
}

// UpdateConversionStatus moves a conversion through the moderation workflow.
func (ds *DataStore) UpdateConversionStatus(id uint, status string) error {
	result := ds.DB.Model(&Conversion{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("updating conversion %d status: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("conversion %d not found", id)
	}
	return nil
}

// SaveClick inserts a click row.
func (ds *DataStore) SaveClick(cl *Click) error {
	if err := ds.DB.Create(cl).Error; err != nil {
		return fmt.Errorf("saving click: %w", err)
	}
	return nil
}
