package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, entry := range entries {
		data, err := fs.ReadFile(migrationsFS, "migrations/"+entry.Name())
		require.NoError(t, err)

		body := string(data)
		assert.True(t, strings.Contains(body, "-- +goose Up"), "%s has no Up section", entry.Name())
		assert.True(t, strings.Contains(body, "-- +goose Down"), "%s has no Down section", entry.Name())
	}
}
