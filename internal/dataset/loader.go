// Package dataset seeds the request table from the prepared FOIA CSV
// extract on first startup.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"gorm.io/gorm"

	"github.com/bianchibruno/comp0034-fyp/internal/models"
)

// LoadCSV inserts the rows of path into the request table. It is a no-op
// when the table already holds data, so restarts do not duplicate the seed.
// Column order: case_type, status, request_received_year,
// request_received_quarter, request_received_month, case_active_days_grouped.
func LoadCSV(db *gorm.DB, path string) (int, error) {
	var count int64
	if err := db.Model(&models.Request{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("dataset: count requests: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil { // header
		return 0, fmt.Errorf("dataset: read header: %w", err)
	}

	inserted := 0
	err = db.Transaction(func(tx *gorm.DB) error {
		for {
			row, err := r.Read()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("dataset: read row: %w", err)
			}
			if len(row) < 6 {
				return fmt.Errorf("dataset: short row: %q", row)
			}
			req := models.Request{
				CaseType:               row[0],
				Status:                 row[1],
				RequestReceivedYear:    row[2],
				RequestReceivedQuarter: row[3],
				RequestReceivedMonth:   row[4],
				CaseActiveDaysGrouped:  row[5],
			}
			if err := tx.Create(&req).Error; err != nil {
				return fmt.Errorf("dataset: insert row: %w", err)
			}
			inserted++
		}
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
