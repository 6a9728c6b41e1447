package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestApplicationLogAppendFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.csv")
	l := NewApplicationLog(path, zap.NewNop())

	ts := time.Date(2026, 8, 30, 14, 5, 9, 0, time.UTC)
	require.NoError(t, l.Append(Record{
		Timestamp: ts,
		JobID:     "4012345678",
		Title:     "Backend Engineer",
		Company:   "Acme Corp",
		Attempted: true,
		Result:    false,
	}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-30 14:05:09,4012345678,Backend Engineer,Acme Corp,true,false\n", string(raw))
}

func TestRecentIDsWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.csv")
	l := NewApplicationLog(path, zap.NewNop())

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(-12 * time.Hour)
	stale := now.Add(-72 * time.Hour)

	require.NoError(t, l.Append(Record{Timestamp: fresh, JobID: "fresh-1", Attempted: true, Result: true}))
	require.NoError(t, l.Append(Record{Timestamp: stale, JobID: "stale-1", Attempted: true, Result: false}))
	require.NoError(t, l.Append(Record{Timestamp: fresh, JobID: "fresh-2", Attempted: false, Result: false}))

	ids := l.RecentIDs(now, 48*time.Hour)
	assert.True(t, ids["fresh-1"])
	assert.True(t, ids["fresh-2"], "unattempted records still count toward the skip-set")
	assert.False(t, ids["stale-1"])
}

func TestRecentIDsMissingFile(t *testing.T) {
	l := NewApplicationLog(filepath.Join(t.TempDir(), "nope.csv"), zap.NewNop())
	ids := l.RecentIDs(time.Now(), 48*time.Hour)
	assert.Empty(t, ids)
}

func TestRecentIDsToleratesMalformedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.csv")
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	rows := strings.Join([]string{
		"not-a-timestamp,bad-1,x,y,true,true",
		now.Add(-time.Hour).Format("2006-01-02 15:04:05") + ",good-1,x,y,true,true",
		"short-row",
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(rows), 0o644))

	l := NewApplicationLog(path, zap.NewNop())
	ids := l.RecentIDs(now, 48*time.Hour)
	assert.Equal(t, map[string]bool{"good-1": true}, ids)
}
