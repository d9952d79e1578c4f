package holidays

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/shopplan/internal/cache"
)

// Source is a named holiday provider.
type Source interface {
	Name() string
	Holidays(ctx context.Context, year int) ([]time.Time, error)
}

// Chain asks each source in order and returns the first answer.
type Chain []Source

func (c Chain) Name() string {
	return "chain"
}

func (c Chain) Holidays(ctx context.Context, year int) ([]time.Time, error) {
	var errs []error
	for _, s := range c {
		days, err := s.Holidays(ctx, year)
		if err == nil {
			return days, nil
		}
		slog.Warn("holiday source failed", "source", s.Name(), "year", year, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	if len(errs) == 0 {
		return nil, errors.New("no holiday sources configured")
	}
	return nil, errors.Join(errs...)
}

// Merge unions the answers of every source. A failing source fails the merge.
type Merge []Source

func (m Merge) Name() string {
	return "merge"
}

func (m Merge) Holidays(ctx context.Context, year int) ([]time.Time, error) {
	var all []time.Time
	for _, s := range m {
		days, err := s.Holidays(ctx, year)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name(), err)
		}
		all = append(all, days...)
	}
	return all, nil
}

// CachedSource stores a wrapped source's answers in the cache for TTL.
type CachedSource struct {
	Source Source
	Cache  cache.Cache
	TTL    time.Duration
}

func (s CachedSource) Name() string {
	return s.Source.Name()
}

func (s CachedSource) Holidays(ctx context.Context, year int) ([]time.Time, error) {
	key := cache.HolidaysKey(s.Source.Name(), year)

	raw, found, err := s.Cache.Get(ctx, key)
	if err != nil {
		slog.Warn("holiday cache read failed", "key", key, "error", err)
	}
	if found {
		var days []time.Time
		if err := json.Unmarshal(raw, &days); err == nil {
			return days, nil
		}
	}

	days, err := s.Source.Holidays(ctx, year)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(days); err == nil {
		if err := s.Cache.Set(ctx, key, data, s.TTL); err != nil {
			slog.Warn("holiday cache write failed", "key", key, "error", err)
		}
	}
	return days, nil
}

var (
	_ Source = (*HebcalClient)(nil)
	_ Source = FallbackSource{}
	_ Source = FileSource{}
	_ Source = Chain(nil)
	_ Source = Merge(nil)
	_ Source = CachedSource{}
)
