package holidays

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	name  string
	days  []time.Time
	err   error
	calls int
}

func (s *countingSource) Name() string { return s.name }

func (s *countingSource) Holidays(_ context.Context, _ int) ([]time.Time, error) {
	s.calls++
	return s.days, s.err
}

// memCache is an in-memory cache.Cache for unit tests.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memCache) Ping(context.Context) error { return nil }

func (m *memCache) SetRunStatus(context.Context, uuid.UUID, string, time.Duration) error {
	return nil
}

func (m *memCache) GetRunStatus(context.Context, uuid.UUID) (string, bool, error) {
	return "", false, nil
}

func (m *memCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 0, nil
}

func (m *memCache) AcquireLock(context.Context, string, string, time.Duration) error { return nil }

func (m *memCache) ReleaseLock(context.Context, string, string) error { return nil }

func day(s string) time.Time {
	d, _ := time.Parse(time.DateOnly, s)
	return d
}

func TestChain_FirstSuccessWins(t *testing.T) {
	failing := &countingSource{name: "remote", err: errors.New("down")}
	local := &countingSource{name: "local", days: []time.Time{day("2026-09-12")}}
	never := &countingSource{name: "never"}

	days, err := Chain{failing, local, never}.Holidays(context.Background(), 2026)
	require.NoError(t, err)
	assert.Len(t, days, 1)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 0, never.calls)
}

func TestChain_AllFail(t *testing.T) {
	boom := errors.New("boom")
	_, err := Chain{&countingSource{name: "a", err: boom}}.Holidays(context.Background(), 2026)
	assert.ErrorIs(t, err, boom)

	_, err = Chain{}.Holidays(context.Background(), 2026)
	assert.Error(t, err)
}

func TestMerge_Unions(t *testing.T) {
	a := &countingSource{name: "a", days: []time.Time{day("2026-09-12")}}
	b := &countingSource{name: "b", days: []time.Time{day("2026-12-31")}}

	days, err := Merge{a, b}.Holidays(context.Background(), 2026)
	require.NoError(t, err)
	assert.Len(t, days, 2)
}

func TestCachedSource_HitsCacheSecondTime(t *testing.T) {
	inner := &countingSource{name: "hebcal", days: []time.Time{day("2026-09-12"), day("2026-09-21")}}
	cs := CachedSource{Source: inner, Cache: newMemCache(), TTL: time.Hour}
	ctx := context.Background()

	first, err := cs.Holidays(ctx, 2026)
	require.NoError(t, err)
	second, err := cs.Holidays(ctx, 2026)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	require.Len(t, second, 2)
	assert.True(t, first[0].Equal(second[0]))
}

func TestCachedSource_ErrorNotCached(t *testing.T) {
	inner := &countingSource{name: "hebcal", err: ErrSourceUnreachable}
	mc := newMemCache()
	cs := CachedSource{Source: inner, Cache: mc, TTL: time.Hour}

	_, err := cs.Holidays(context.Background(), 2026)
	assert.ErrorIs(t, err, ErrSourceUnreachable)
	assert.Empty(t, mc.data)
}

func TestFallbackSource(t *testing.T) {
	days, err := FallbackSource{}.Holidays(context.Background(), 2027)
	require.NoError(t, err)
	assert.Len(t, days, len(fallbackDates))
	for _, d := range days {
		assert.Equal(t, 2027, d.Year())
	}
}

func TestParseHolidayFile(t *testing.T) {
	data := []byte(`
holidays:
  - date: 2026-10-02
    name: Sukkot
  - date: 2026-12-31
    name: Inventory
  - date: 2027-01-01
    name: Next year
`)
	days, err := parseHolidayFile(data, 2026, time.UTC)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2026-10-02", days[0].Format(time.DateOnly))

	_, err = parseHolidayFile([]byte("holidays:\n  - date: 02/10/2026\n    name: bad\n"), 2026, time.UTC)
	assert.Error(t, err)

	_, err = parseHolidayFile([]byte("holidays: [unterminated"), 2026, time.UTC)
	assert.Error(t, err)
}

func TestFileSource_MissingFile(t *testing.T) {
	_, err := FileSource{Path: "/nonexistent/holidays.yaml"}.Holidays(context.Background(), 2026)
	assert.Error(t, err)
}
