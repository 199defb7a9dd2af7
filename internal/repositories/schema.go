package repositories

import (
	"fmt"

	"easyshop/internal/models"

	"gorm.io/gorm"
)

// CurrentSchemaVersion is the schema version this build writes.
// Bumping it drops and recreates the users and products tables.
const CurrentSchemaVersion = 1

type schemaVersion struct {
	ID      uint `gorm:"primaryKey"`
	Version int  `gorm:"not null"`
}

func (schemaVersion) TableName() string {
	return "schema_versions"
}

// Migrate brings the database to the given schema version.
// Upgrades are destructive: existing accounts and products are discarded.
func Migrate(db *gorm.DB, version int) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&schemaVersion{}); err != nil {
			return fmt.Errorf("failed to create schema_versions: %w", err)
		}

		var applied schemaVersion
		res := tx.Limit(1).Find(&applied)
		if res.Error != nil {
			return fmt.Errorf("failed to read schema version: %w", res.Error)
		}

		switch {
		case applied.Version > version:
			return fmt.Errorf("database schema version %d is newer than supported version %d", applied.Version, version)
		case applied.Version > 0 && applied.Version < version:
			if err := tx.Migrator().DropTable(&models.Account{}, &models.Product{}); err != nil {
				return fmt.Errorf("failed to drop tables for upgrade %d -> %d: %w", applied.Version, version, err)
			}
		}

		if err := createSchema(tx); err != nil {
			return err
		}

		if applied.ID == 0 {
			applied.ID = 1
		}
		applied.Version = version
		if err := tx.Save(&applied).Error; err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		return nil
	})
}

func createSchema(tx *gorm.DB) error {
	if err := tx.AutoMigrate(&models.Account{}, &models.Product{}); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	// Product names are unique ignoring case.
	if err := tx.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_product_name_lower ON products (LOWER(name))").Error; err != nil {
		return fmt.Errorf("failed to create idx_product_name_lower: %w", err)
	}
	return nil
}

// SchemaVersion returns the version recorded in the database, or 0 if none.
func SchemaVersion(db *gorm.DB) (int, error) {
	var applied schemaVersion
	if err := db.Limit(1).Find(&applied).Error; err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return applied.Version, nil
}
