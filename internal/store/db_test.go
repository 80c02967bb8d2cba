package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"), true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSaveAndGetLookup(t *testing.T) {
	db := openTestDB(t)

	lookup := &Lookup{ID: "a1", Country: "in", State: "populated", Cards: 3, AtRisk: 1, DurationMs: 42}
	require.NoError(t, db.SaveLookup(lookup))

	got, err := db.GetLookup("a1")
	require.NoError(t, err)
	assert.Equal(t, "in", got.Country)
	assert.Equal(t, 3, got.Cards)
	assert.Equal(t, 1, got.AtRisk)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = db.GetLookup("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveLookupValidation(t *testing.T) {
	db := openTestDB(t)
	assert.Error(t, db.SaveLookup(nil))
	assert.Error(t, db.SaveLookup(&Lookup{Country: "in"}))
}

func TestListLookupsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rows := []Lookup{
		{ID: "1", Country: "in", State: "populated", Cards: 2, CreatedAt: base},
		{ID: "2", Country: "us", State: "error", Error: "500 Internal Server Error", CreatedAt: base.Add(time.Minute)},
		{ID: "3", Country: "in", State: "empty", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range rows {
		require.NoError(t, db.SaveLookup(&rows[i]))
	}

	all, total, err := db.ListLookups(LookupQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"3", "2", "1"}, []string{all[0].ID, all[1].ID, all[2].ID})

	page, total, err := db.ListLookups(LookupQuery{Country: "in", Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, page, 1)
	assert.Equal(t, "3", page[0].ID)

	errored, _, err := db.ListLookups(LookupQuery{State: "ERROR"})
	require.NoError(t, err)
	require.Len(t, errored, 1)
	assert.Equal(t, "500 Internal Server Error", errored[0].Error)

	counts, err := db.CountLookupsByState()
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"populated": 1, "error": 1, "empty": 1}, counts)
}
