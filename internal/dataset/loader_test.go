package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bianchibruno/comp0034-fyp/internal/models"
)

const sampleCSV = `case_type,status,request_received_year,request_received_quarter,request_received_month,case_active_days_grouped
FOIA Case,Closed,2018,Quarter 4,November,More than 60 days used
FOIA Case,Open,2019,Quarter 2,May,0-20 days used
`

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Request{}))
	return db
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dataset.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	db := newTestDB(t)
	path := writeCSV(t, sampleCSV)

	n, err := LoadCSV(db, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var first models.Request
	require.NoError(t, db.Order("id ASC").First(&first).Error)
	assert.Equal(t, "FOIA Case", first.CaseType)
	assert.Equal(t, "Closed", first.Status)
	assert.Equal(t, "2018", first.RequestReceivedYear)
	assert.Equal(t, "Quarter 4", first.RequestReceivedQuarter)
	assert.Equal(t, "November", first.RequestReceivedMonth)
	assert.Equal(t, "More than 60 days used", first.CaseActiveDaysGrouped)
}

func TestLoadCSV_IdempotentWhenSeeded(t *testing.T) {
	db := newTestDB(t)
	path := writeCSV(t, sampleCSV)

	_, err := LoadCSV(db, path)
	require.NoError(t, err)

	n, err := LoadCSV(db, path)
	require.NoError(t, err)
	assert.Zero(t, n)

	var count int64
	require.NoError(t, db.Model(&models.Request{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestLoadCSV_MissingFile(t *testing.T) {
	db := newTestDB(t)

	_, err := LoadCSV(db, filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestLoadCSV_ShortRow(t *testing.T) {
	db := newTestDB(t)
	path := writeCSV(t, "a,b,c,d,e,f\nonly,three,cols\n")

	_, err := LoadCSV(db, path)
	require.Error(t, err)

	// Nothing is half-loaded.
	var count int64
	require.NoError(t, db.Model(&models.Request{}).Count(&count).Error)
	assert.Zero(t, count)
}
