// model.go defines the GORM entities for overrides, review submissions and
// tracking rows.
package datastore

import "time"

// Moderation statuses shared by reviews and conversions. Reviews never use
// StatusCheck; conversions flagged by the risk heuristics start there.
const (
	StatusPending  = "pending"
	StatusCheck    = "check"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// SchoolOverride holds the admin-authored JSON patch for one school.
// One row per school id, last write wins.
type SchoolOverride struct {
	ID        uint   `gorm:"primaryKey"`
	SchoolID  string `gorm:"uniqueIndex;size:64;not null"`
	Data      string `gorm:"type:text;not null"` // JSON patch document
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

// Review is a user-submitted rating tied to a school. Rows are never deleted
// in normal flow; moderation only moves the status.
type Review struct {
	ID       uint   `gorm:"primaryKey"`
	SchoolID string `gorm:"index;size:64;not null"`
	Status   string `gorm:"type:varchar(20);index;default:pending"`

	OverallRating     float64
	TeacherQuality    float64
	MaterialQuality   float64
	ConnectionQuality float64
	// Optional dimensions added in a later schema revision.
	PriceRating        *float64
	SatisfactionRating *float64

	Body string  `gorm:"type:text"`
	Age  *string `gorm:"size:20"`

	// Anti-abuse metadata. The raw IP is never stored, only its hash.
	IPHash    *string `gorm:"index;size:64"`
	IPVersion *int
	UserAgent *string `gorm:"size:512"`
	Referrer  *string `gorm:"size:2048"`

	ReviewComment *string `gorm:"type:text"` // moderator note

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// Conversion is an affiliate conversion notification from a partner site.
// Append-only; EventID gives idempotency under client retries.
type Conversion struct {
	ID      uint    `gorm:"primaryKey"`
	OfferID string  `gorm:"index;size:64;not null"`
	EventID *string `gorm:"uniqueIndex;size:128"`

	StudentIDHash *string `gorm:"size:64"`
	ClientTsMs    *int64

	Status string `gorm:"type:varchar(20);index;default:pending"`

	// Risk annotation computed at ingest time.
	RiskScore     int
	RiskReasons   *string `gorm:"size:512"` // JSON array of reason tokens
	NeedsReview   bool
	ReviewComment *string `gorm:"type:text"`

	Reward     *float64
	Payout     *float64
	Amount     *float64
	Commission *float64

	IPHash         *string `gorm:"index;size:64"`
	IPVersion      *int
	Country        *string `gorm:"size:8"`
	UserAgent      *string `gorm:"size:512"`
	AcceptLanguage *string `gorm:"size:256"`
	Origin         *string `gorm:"size:256"`
	Referrer       *string `gorm:"size:2048"`
	PageURL        *string `gorm:"size:2048"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// Click records one affiliate outbound click. Append-only.
type Click struct {
	ID      uint   `gorm:"primaryKey"`
	OfferID string `gorm:"index;size:64;not null"`
	ClickID string `gorm:"uniqueIndex;size:64;not null"`
	URL     string `gorm:"size:2048;not null"`

	Referrer  *string `gorm:"size:2048"`
	UserAgent *string `gorm:"size:512"`
	IPHash    *string `gorm:"index;size:64"`
	IPVersion *int

	CreatedAt time.Time `gorm:"index"`
}
