package database

import (
	"fmt"

	"gorm.io/gorm"
)

// Models lists every table this service owns
func Models() []interface{} {
	return []interface{}{
		&RegistrationModel{},
		&SendLogModel{},
	}
}

// RunMigrations creates or updates the registration and send-log tables.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
