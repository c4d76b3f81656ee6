package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenSQLite("file:" + filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, InitSchema(db))
	return NewStore(db)
}

func TestStore_SaveAndRecentRuns(t *testing.T) {
	s := newTestStore(t)
	base := time.Unix(1_700_000_000, 0)

	require.NoError(t, s.SaveRun(Run{ID: "a", Symbols: []string{"TSLA", "AAPL"}, Years: 1, OK: true, At: base}))
	require.NoError(t, s.SaveRun(Run{ID: "b", Symbols: []string{"NFLX"}, Years: 3, OK: false, Reason: "no common dates", At: base.Add(time.Minute)}))

	runs, err := s.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)
	assert.False(t, runs[0].OK)
	assert.Equal(t, "no common dates", runs[0].Reason)
	assert.Equal(t, []string{"TSLA", "AAPL"}, runs[1].Symbols)
	assert.True(t, runs[1].OK)
	assert.Equal(t, base.Unix(), runs[1].At.Unix())
}

func TestStore_SymbolUsage(t *testing.T) {
	s := newTestStore(t)
	base := time.Unix(1_700_000_000, 0)

	require.NoError(t, s.SaveRun(Run{ID: "old", Symbols: []string{"MGM"}, Years: 1, At: base.Add(-48 * time.Hour)}))
	require.NoError(t, s.SaveRun(Run{ID: "1", Symbols: []string{"TSLA", "AAPL"}, Years: 1, At: base}))
	require.NoError(t, s.SaveRun(Run{ID: "2", Symbols: []string{"AAPL"}, Years: 2, At: base}))

	usage, err := s.SymbolUsage(base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []SymbolUsage{{Symbol: "AAPL", Count: 2}, {Symbol: "TSLA", Count: 1}}, usage)
}
