package models

import "gorm.io/gorm"

// All lists every persisted model
func All() []interface{} {
	return []interface{}{
		&User{},
		&Wallet{},
		&WalletTransaction{},
		&Gift{},
	}
}

// AutoMigrate creates or updates the schema for all models.
// Used for sqlite; postgres is migrated with cmd/migrate.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
