// Package gorm provides GORM-based database operations for flowstate.
package gorm

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: sessions table
		{
			ID: "001_sessions",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&SessionRow{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("sessions")
			},
		},

		// Migration 002: tag vocabulary table
		{
			ID: "002_tag_vocabulary",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&TagVocabulary{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("tag_vocabulary")
			},
		},
	})

	return m.Migrate()
}
