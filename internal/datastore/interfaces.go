// interfaces.go defines the interface for the database operations backing
// overrides, reviews and tracking.
package datastore

import (
	"errors"
	"log/slog"
	"os"
	"time"

	stdlog "log"

	"github.com/glats-richard/eigoonline/internal/conf"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Interface abstracts the underlying database implementation.
type Interface interface {
	Open() error
	Close() error

	// Override store, one row per school id.
	GetOverride(schoolID string) (*SchoolOverride, error)
	ListOverrides() ([]SchoolOverride, error)
	UpsertOverride(schoolID string, data []byte) error
	DeleteOverride(schoolID string) error

	// Review submissions.
	SaveReview(r *Review) error
	ApprovedReviews(schoolID string) ([]Review, error)
	CountRecentReviews(ipHash string, window time.Duration) (int64, error)
	UpdateReviewStatus(id uint, status string, comment *string) error

	// Conversion tracking.
	SaveConversion(cv *Conversion) error
	GetConversionByEventID(eventID string) (*Conversion, error)
	CountRecentConversions(ipHash string, window time.Duration) (int64, error)
	UpdateConversionStatus(id uint, status string) error

	// Click tracking.
	SaveClick(cl *Click) error
}

// DataStore implements Interface on top of a GORM database.
type DataStore struct {
	DB *gorm.DB
}

// New creates a store for whichever backend the settings enable, or nil when
// no database is configured. Callers must handle the nil case: the merge
// path degrades to static content, the submission endpoints refuse service.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Database.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Database.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// performAutoMigration creates or updates the table schema.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&SchoolOverride{}, &Review{}, &Conversion{}, &Click{}); err != nil {
		return err
	}
	if debug {
		slog.Debug("database initialized", "type", dbType, "target", connectionInfo)
	}
	return nil
}

// configurePool bounds the connection pool shared across requests.
func configurePool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return nil
}

// createGormLogger configures the GORM query logger.
func createGormLogger(debug bool) logger.Interface {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	return logger.New(
		stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// notFoundAsNil converts gorm's not-found error into a nil record so callers
// can distinguish "absent" from a real failure.
func notFoundAsNil(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
