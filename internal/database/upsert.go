package database

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"danji/server/internal/models"
)

// UpsertRecords writes a batch of flattened records, replacing any earlier
// crawl of the same complex variant.
func UpsertRecords(tx *gorm.DB, batch []models.FlatRecord) error {
	if len(batch) == 0 {
		return nil
	}

	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "complex_no"}, {Name: "variant_index"}},
		UpdateAll: true,
	}).Create(&batch).Error
}
