package datastore

import (
	"fmt"
	"time"

	"gorm.io/gorm/clause"
)

// GetOverride returns the override row for schoolID, or nil when no override
// is stored.
func (ds *DataStore) GetOverride(schoolID string) (*SchoolOverride, error) {
	var row SchoolOverride
	err := ds.DB.Where("school_id = ?", schoolID).First(&row).Error
	if err != nil {
		if err := notFoundAsNil(err); err != nil {
			return nil, fmt.Errorf("getting override for %s: %w", schoolID, err)
		}
		return nil, nil
	}
	return &row, nil
}

// ListOverrides returns every stored override, most recently updated first.
func (ds *DataStore) ListOverrides() ([]SchoolOverride, error) {
	var rows []SchoolOverride
	if err := ds.DB.Order("updated_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing overrides: %w", err)
	}
	return rows, nil
}

// UpsertOverride stores the patch document for schoolID, replacing any
// previous one. A single conflict-aware statement keyed on the unique school
// id, so retries are naturally idempotent.
func (ds *DataStore) UpsertOverride(schoolID string, data []byte) error {
	row := SchoolOverride{
		SchoolID:  schoolID,
		Data:      string(data),
		UpdatedAt: time.Now(),
	}
	err := ds.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "school_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upserting override for %s: %w", schoolID, err)
	}
	return nil
}

// DeleteOverride removes the override row for schoolID. Deleting a missing
// row is not an error.
func (ds *DataStore) DeleteOverride(schoolID string) error {
	if err := ds.DB.Where("school_id = ?", schoolID).Delete(&SchoolOverride{}).Error; err != nil {
		return fmt.Errorf("deleting override for %s: %w", schoolID, err)
	}
	return nil
}
