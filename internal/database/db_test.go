package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/moviestore/internal/model"
)

func TestEmbeddedSchemaStatements(t *testing.T) {
	stmts := Statements(schemaSQL)
	assert.Len(t, stmts, 8)
	for _, s := range stmts {
		assert.True(t, strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS"), s)
	}
	assert.Contains(t, schemaSQL, "UNIQUE KEY uq_seat_occurrence (screen_id, show_date, start_at, seat_label)")
}

// Seat labels are matched as entered, so the unique key must not fold case
// or accents, and must hold the longest label Book accepts.
func TestSeatLabelColumnIsBinary(t *testing.T) {
	var seats string
	for _, s := range Statements(schemaSQL) {
		if strings.Contains(s, "TABLE IF NOT EXISTS reservation_seats") {
			seats = s
		}
	}
	assert.Contains(t, seats, "seat_label     VARCHAR(191) COLLATE utf8mb4_bin NOT NULL")
	assert.Equal(t, 191, model.MaxSeatLabelLen)
	assert.Contains(t, schemaSQL, "seat_labels        TEXT")
}

func TestStatementsSkipsBlanks(t *testing.T) {
	got := Statements("SELECT 1;\n\n;\nSELECT 2;")
	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, got)
}
