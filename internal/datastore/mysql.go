package datastore

import (
	"fmt"

	"github.com/glats-richard/eigoonline/internal/conf"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// MySQLStore implements DataStore for MySQL.
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// Open sets up the MySQL database connection and migrates the schema.
func (store *MySQLStore) Open() error {
	dsn := store.Settings.Database.MySQL.DSN
	if dsn == "" {
		return fmt.Errorf("mysql dsn is not configured")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: createGormLogger(store.Settings.Debug),
	})
	if err != nil {
		return fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := configurePool(db); err != nil {
		return fmt.Errorf("failed to configure MySQL pool: %w", err)
	}

	store.DB = db
	if err := performAutoMigration(db, store.Settings.Debug, "MySQL", "mysql"); err != nil {
		return fmt.Errorf("failed to auto-migrate MySQL database: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (store *MySQLStore) Close() error {
	if store.DB == nil {
		return nil
	}
	sqlDB, err := store.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
