package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Migrate applies the schema for the given models. AutoMigrate only adds
// missing tables, columns and indexes; it never drops anything, so running it
// repeatedly is safe.
func Migrate(ctx context.Context, db *gorm.DB, models ...any) error {
	if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
