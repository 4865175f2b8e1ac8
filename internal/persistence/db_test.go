package persistence

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/phase-lever/internal/phase"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func classified(t *testing.T, x, temp float64) Query {
	t.Helper()
	a, r, err := phase.AmountsAt(x, temp)
	require.NoError(t, err)
	return NewQuery(x, temp, r, a)
}

func TestSaveAndLoadQuery(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	q := classified(t, 0.1, 700)
	require.NoError(t, db.SaveQuery(q))

	got, err := db.GetQuery(q.ID)
	require.NoError(t, err)
	assert.Equal(t, q, got)
	assert.Equal(t, "Ti+Liquid", got.Region)
	assert.Equal(t, "two-phase", got.Kind)
	require.NotNil(t, got.LiquidX)
	assert.InDelta(t, 0.2244933920704846, *got.LiquidX, 1e-12)

	solid := classified(t, 0.5, 600)
	require.NoError(t, db.SaveQuery(solid))
	got, err = db.GetQuery(solid.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LiquidX)

	_, err = db.GetQuery("missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRecentQueriesAndCounts(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	batch := []Query{
		classified(t, 0.5, 600),
		classified(t, 0.6, 610),
		classified(t, 0.5, 900),
	}
	for i := range batch {
		batch[i].CreatedAtMs = int64(1000 + i)
	}
	require.NoError(t, db.SaveQueries(batch))

	recent, err := db.RecentQueries(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, batch[2].ID, recent[0].ID)
	assert.Equal(t, batch[1].ID, recent[1].ID)

	counts, err := db.CountByRegion()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Ti+TiU2": 2, "Liquid": 1}, counts)

	require.NoError(t, db.SaveQueries(nil))
}

func TestMeta(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	require.NoError(t, db.SaveMeta("started_at", "1"))
	require.NoError(t, db.SaveMeta("started_at", "2"))
	v, err := db.GetMeta("started_at")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}
