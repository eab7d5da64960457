package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractUpMigration(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no markers", "CREATE TABLE a ();", "CREATE TABLE a ();"},
		{"up only", "-- +migrate Up\nCREATE TABLE a ();", "CREATE TABLE a ();"},
		{"up and down", "-- +migrate Up\nCREATE TABLE a ();\n-- +migrate Down\nDROP TABLE a;", "CREATE TABLE a ();"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, strings.TrimSpace(ExtractUpMigration(tt.content)))
		})
	}
}

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := DefaultPostgresConfig()
	cfg.Password = "secret"

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "dbname=eventic")
	assert.Contains(t, dsn, "password=secret")
}
