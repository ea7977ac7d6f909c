package database

import (
	"fmt"

	"danji/server/internal/models"
)

func (d *Database) RunMigrations() error {
	// The records table follows the gorm model so the write path and the
	// raw read queries agree on column names.
	if err := d.orm.AutoMigrate(&models.FlatRecord{}, &models.CrawlRun{}); err != nil {
		return fmt.Errorf("failed to migrate record tables: %w", err)
	}

	// Name lookups back the search endpoint
	_, err := d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_records_name
		ON records(name);
	`)
	if err != nil {
		return err
	}

	// Prefix reads group records by district
	_, err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_records_cortar_no
		ON records(cortar_no);
	`)
	if err != nil {
		return err
	}

	return nil
}
