package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/fetchbench/internal/metrics"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	return s, path
}

func runID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}

func TestSaveAndGet(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()

	rec := metrics.MetricRecord{RunID: runID(time.Now()), Mode: "scraper", Concurrency: 4, Total: 10, Successes: 9, SuccessRate: 0.9}
	require.NoError(t, s.Save(rec))

	got, err := s.Get(rec.RunID)
	require.NoError(t, err)
	assert.Equal(t, "scraper", got.Mode)
	assert.Equal(t, int64(9), got.Successes)
	assert.InDelta(t, 0.9, got.SuccessRate, 1e-9)
}

func TestGetMissing(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()

	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRequiresRunID(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()

	assert.Error(t, s.Save(metrics.MetricRecord{Mode: "http"}))
}

func TestListNewestFirst(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()

	base := time.Now()
	for i, mode := range []string{"http", "chrome", "scraper"} {
		rec := metrics.MetricRecord{RunID: runID(base.Add(time.Duration(i) * time.Second)), Mode: mode}
		require.NoError(t, s.Save(rec))
	}

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"scraper", "chrome", "http"}, []string{all[0].Mode, all[1].Mode, all[2].Mode})

	two, err := s.List(2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
	assert.Equal(t, "scraper", two[0].Mode)
}

func TestReopenKeepsRecords(t *testing.T) {
	s, path := openTemp(t)
	rec := metrics.MetricRecord{RunID: runID(time.Now()), Mode: "http"}
	require.NoError(t, s.Save(rec))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.List(0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.RunID, got[0].RunID)
}
