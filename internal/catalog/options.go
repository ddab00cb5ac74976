package catalog

import (
	"context"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"gamecatalog/pkg/logger"
	"gamecatalog/pkg/models"
)

// FilterOptions lists the distinct genre, platform and developer tokens
// across both sources. Results are served from the cache when one is set.
func (s *Service) FilterOptions(ctx context.Context) (*models.FilterOptions, error) {
	if s.cache != nil {
		opts, ok, err := s.cache.Get(ctx)
		switch {
		case err != nil:
			logger.Ctx(ctx).Warn().Err(err).Msg("filter options cache read failed")
		case ok:
			s.countCache("hit")
			return opts, nil
		}
		s.countCache("miss")
	}

	gen := s.optionsGen.Load()
	rows, err := s.store.ListGames(ctx, ListParams{})
	if err != nil {
		return nil, s.storeError(ctx, "list filter options", err)
	}

	entries := s.StaticEntries()
	for _, g := range rows {
		entries = append(entries, NormalizePersisted(g))
	}
	opts := BuildFilterOptions(entries)

	if s.cache != nil && s.optionsGen.Load() == gen {
		if err := s.cache.Set(ctx, &opts); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("filter options cache write failed")
		}
		// a mutation that landed during Set may have invalidated first
		if s.optionsGen.Load() != gen {
			s.dropCachedOptions(ctx)
		}
	}
	return &opts, nil
}

func (s *Service) countCache(result string) {
	if s.metrics != nil {
		s.metrics.FilterOptionsCache.WithLabelValues(result).Inc()
	}
}

// BuildFilterOptions splits each field on commas exactly as Filter does,
// deduplicates case-insensitively keeping the first spelling seen, and sorts
// alphabetically.
func BuildFilterOptions(entries []models.CatalogEntry) models.FilterOptions {
	genres, platforms, developers := newTokenSet(), newTokenSet(), newTokenSet()
	for _, e := range entries {
		genres.add(e.Genre)
		platforms.add(e.Platform)
		developers.add(e.Developer)
	}
	return models.FilterOptions{
		Genres:     genres.sorted(),
		Platforms:  platforms.sorted(),
		Developers: developers.sorted(),
	}
}

type tokenSet struct {
	seen  map[string]bool
	items []string
}

func newTokenSet() *tokenSet {
	return &tokenSet{seen: make(map[string]bool)}
}

func (t *tokenSet) add(field *string) {
	if field == nil {
		return
	}
	for _, part := range strings.Split(*field, ",") {
		v := strings.TrimSpace(part)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if t.seen[key] {
			continue
		}
		t.seen[key] = true
		t.items = append(t.items, v)
	}
}

// sorted uses a fresh collator per call; collate.Collator is not safe for
// concurrent use.
func (t *tokenSet) sorted() []string {
	out := make([]string, len(t.items))
	copy(out, t.items)
	collate.New(language.English).SortStrings(out)
	return out
}
