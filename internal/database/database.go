package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"danji/server/internal/models"
)

// Database is the sqlite record store. Raw SQL handles migrations and the
// aggregate read queries; the gorm handle carries full-record reads and the
// batch upserts coming from the processors.
type Database struct {
	db  *sql.DB
	orm *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, err
	}

	orm, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm handle: %w", err)
	}

	return &Database{db: db, orm: orm}, nil
}

// Writer returns the gorm handle used by the batch processors.
func (d *Database) Writer() *gorm.DB {
	return d.orm
}

// GetRecords returns the flattened records whose neighborhood code starts
// with the given prefix. An empty prefix returns everything. A limit of 0
// means no limit.
func (d *Database) GetRecords(codePrefix string, limit int) ([]models.FlatRecord, error) {
	query := d.orm.Order("complex_no, variant_index")
	if codePrefix != "" {
		query = query.Where("cortar_no LIKE ?", codePrefix+"%")
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []models.FlatRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	return records, nil
}

// GetComplexRecords returns all unit-type variants of one complex in
// variant order.
func (d *Database) GetComplexRecords(complexNo string) ([]models.FlatRecord, error) {
	var records []models.FlatRecord
	err := d.orm.
		Where("complex_no = ?", complexNo).
		Order("variant_index").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query complex records: %w", err)
	}
	return records, nil
}

// SearchRecords returns records whose complex name contains the query text.
func (d *Database) SearchRecords(name string, limit int) ([]models.FlatRecord, error) {
	query := d.orm.
		Where("name LIKE ?", "%"+name+"%").
		Order("complex_no, variant_index")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []models.FlatRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to search records: %w", err)
	}
	return records, nil
}

// GetRecordStats returns store-wide counts and the time of the last crawl.
func (d *Database) GetRecordStats() (models.RecordStats, error) {
	var stats models.RecordStats
	var lastCrawled sql.NullString

	err := d.db.QueryRow(`
		SELECT
			COUNT(*) as total_records,
			COUNT(DISTINCT complex_no) as total_complexes,
			COUNT(DISTINCT substr(cortar_no, 1, 5)) as total_districts,
			MAX(crawled_at) as last_crawled_at
		FROM records
	`).Scan(
		&stats.TotalRecords,
		&stats.TotalComplexes,
		&stats.TotalDistricts,
		&lastCrawled,
	)
	if err != nil {
		return stats, fmt.Errorf("failed to query record stats: %w", err)
	}

	if lastCrawled.Valid {
		stats.LastCrawledAt = lastCrawled.String
	}
	return stats, nil
}

// GetComplexPoints returns one coordinate per complex under the given code
// prefix, for the complexes that carry usable coordinates.
func (d *Database) GetComplexPoints(codePrefix string) ([]models.ComplexPoint, error) {
	rows, err := d.db.Query(`
		SELECT
			complex_no,
			MAX(name) as name,
			MAX(cortar_no) as cortar_no,
			CAST(MAX(latitude) AS REAL) as latitude,
			CAST(MAX(longitude) AS REAL) as longitude
		FROM records
		WHERE cortar_no LIKE ? || '%'
		AND latitude != '' AND longitude != ''
		GROUP BY complex_no
	`, codePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to query complex points: %w", err)
	}
	defer rows.Close()

	var points []models.ComplexPoint
	for rows.Next() {
		var p models.ComplexPoint
		if err := rows.Scan(&p.ComplexNo, &p.Name, &p.CortarNo, &p.Latitude, &p.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan complex point: %w", err)
		}
		points = append(points, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating complex points: %w", err)
	}
	return points, nil
}

// GetDistrictPrefixes returns the distinct 5-digit district prefixes present
// in the store.
func (d *Database) GetDistrictPrefixes() ([]string, error) {
	rows, err := d.db.Query(`
		SELECT DISTINCT substr(cortar_no, 1, 5)
		FROM records
		WHERE cortar_no != ''
		ORDER BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query district prefixes: %w", err)
	}
	defer rows.Close()

	var prefixes []string
	for rows.Next() {
		var prefix string
		if err := rows.Scan(&prefix); err != nil {
			return nil, fmt.Errorf("failed to scan district prefix: %w", err)
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes, rows.Err()
}

// SaveCrawlRun records one finished crawl execution.
func (d *Database) SaveCrawlRun(summary models.CrawlSummary) error {
	run := models.CrawlRun{
		Scope:       summary.Scope,
		Records:     summary.Records,
		Complexes:   summary.Complexes,
		FailedCount: summary.FailedCount,
		OutputFile:  summary.OutputFile,
		StartedAt:   summary.StartedAt,
		FinishedAt:  summary.FinishedAt,
	}
	if err := d.orm.Create(&run).Error; err != nil {
		return fmt.Errorf("failed to save crawl run: %w", err)
	}
	return nil
}

// GetRecentCrawlRuns returns the latest crawl executions, newest first.
func (d *Database) GetRecentCrawlRuns(limit int) ([]models.CrawlRun, error) {
	if limit <= 0 {
		limit = 10
	}

	var runs []models.CrawlRun
	err := d.orm.Order("finished_at DESC").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query crawl runs: %w", err)
	}
	return runs, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}
