package catalog

import (
	"strings"

	"gamecatalog/pkg/models"
)

// ListParams are the raw catalog query parameters. Every category is
// optional; an empty category places no constraint.
type ListParams struct {
	Search    string
	Genres    []string
	Platforms []string
}

// query is ListParams after trimming, lower-casing and comma splitting.
type query struct {
	search    string
	genres    []string
	platforms []string
}

func (p ListParams) compile() query {
	return query{
		search:    strings.ToLower(strings.TrimSpace(p.Search)),
		genres:    SplitTokens(p.Genres...),
		platforms: SplitTokens(p.Platforms...),
	}
}

// IsEmpty reports whether p places no constraint at all.
func (p ListParams) IsEmpty() bool {
	q := p.compile()
	return q.search == "" && len(q.genres) == 0 && len(q.platforms) == 0
}

// SplitTokens splits every value on commas and returns the trimmed,
// lower-cased, non-empty tokens in order of appearance.
func SplitTokens(values ...string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			t := strings.ToLower(strings.TrimSpace(part))
			if t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

// fieldTokens tokenises a multi-valued field such as "PC, PS5, Xbox".
func fieldTokens(field *string) []string {
	if field == nil {
		return nil
	}
	return SplitTokens(*field)
}

// anyToken reports whether any wanted token equals one of the field's tokens.
// The whole field string is never compared as a unit.
func anyToken(field *string, wanted []string) bool {
	have := fieldTokens(field)
	if len(have) == 0 {
		return false
	}
	for _, w := range wanted {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func (q query) match(e models.CatalogEntry) bool {
	if q.search != "" && !strings.Contains(strings.ToLower(e.Title), q.search) {
		return false
	}
	if len(q.genres) > 0 && !anyToken(e.Genre, q.genres) {
		return false
	}
	if len(q.platforms) > 0 && !anyToken(e.Platform, q.platforms) {
		return false
	}
	return true
}

// Filter returns the entries satisfying every category of p, in input order.
func Filter(entries []models.CatalogEntry, p ListParams) []models.CatalogEntry {
	return p.compile().filter(entries)
}

func (q query) filter(entries []models.CatalogEntry) []models.CatalogEntry {
	out := make([]models.CatalogEntry, 0, len(entries))
	for _, e := range entries {
		if q.match(e) {
			out = append(out, e)
		}
	}
	return out
}
