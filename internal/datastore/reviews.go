package datastore

import (
	"fmt"
	"time"
)

// SaveReview inserts a new review submission.
func (ds *DataStore) SaveReview(r *Review) error {
	if err := ds.DB.Create(r).Error; err != nil {
		return fmt.Errorf("saving review: %w", err)
	}
	return nil
}

// ApprovedReviews returns the approved reviews for a school, newest first.
func (ds *DataStore) ApprovedReviews(schoolID string) ([]Review, error) {
	var rows []Review
	err := ds.DB.
		Where("school_id = ? AND status = ?", schoolID, StatusApproved).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing approved reviews for %s: %w", schoolID, err)
	}
	return rows, nil
}

// CountRecentReviews counts submissions from the same hashed IP within the
// window. Used by the best-effort rate limit on the submission endpoint.
func (ds *DataStore) CountRecentReviews(ipHash string, window time.Duration) (int64, error) {
	var count int64
	err := ds.DB.Model(&Review{}).
		Where("ip_hash = ? AND created_at > ?", ipHash, time.Now().Add(-window)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting recent reviews: %w", err)
	}
	return count, nil
}

// UpdateReviewStatus moves a review through the moderation workflow,
// optionally attaching a moderator comment.
func (ds *DataStore) UpdateReviewStatus(id uint, status string, comment *string) error {
	updates := map[string]any{"status": status}
	if comment != nil {
		updates["review_comment"] = *comment
	}
	result := ds.DB.Model(&Review{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("updating review %d status: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("review %d not found", id)
	}
	return nil
}
