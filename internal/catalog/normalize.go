package catalog

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"gamecatalog/internal/static"
	"gamecatalog/pkg/models"
)

const (
	placeholderTitle    = "Untitled game"
	placeholderIDPrefix = models.StaticIDPrefix + "invalid-"
	dateLayout          = "2006-01-02"
)

// StaticID namespaces a seed record's native id.
func StaticID(nativeID string) string {
	return models.StaticIDPrefix + nativeID
}

// IsStaticID reports whether id carries the static namespace.
func IsStaticID(id string) bool {
	return strings.HasPrefix(id, models.StaticIDPrefix)
}

// NormalizeStatic converts one seed record into a CatalogEntry. A record
// without a usable id or title yields a placeholder entry and ok=false; it
// never returns an error.
func NormalizeStatic(rec static.Record, index int, loadedAt time.Time) (entry models.CatalogEntry, ok bool) {
	nativeID, idOK := scalarString(lookup(rec, "id"))
	title, titleOK := nonEmptyString(lookup(rec, "title"))
	ok = idOK && titleOK

	id := StaticID(nativeID)
	if !ok {
		id = placeholderIDPrefix + strconv.Itoa(index)
		title = placeholderTitle
	}

	desc, _ := lookup(rec, "description").(string)

	created := timeValue(lookup(rec, "createdAt", "created_at"), loadedAt)
	updated := timeValue(lookup(rec, "updatedAt", "updated_at"), loadedAt)

	cover := urlValue(lookup(rec, "coverImageUrl", "cover_image_url"))
	if cover == nil {
		cover = urlValue(lookup(rec, "imageUrl", "image_url"))
	}

	entry = models.CatalogEntry{
		ID:            id,
		Title:         title,
		Description:   desc,
		Genre:         optionalString(lookup(rec, "genre")),
		Platform:      optionalString(lookup(rec, "platform")),
		Developer:     optionalString(lookup(rec, "developer")),
		Publisher:     optionalString(lookup(rec, "publisher")),
		ReleaseDate:   dateValue(lookup(rec, "releaseDate", "release_date")),
		Price:         priceValue(lookup(rec, "price")),
		CoverImageURL: cover,
		Screenshots:   NormalizeScreenshots(id, lookup(rec, "screenshots")),
		IsStatic:      true,
		IsPlaceholder: !ok,
		CreatedAt:     created,
		UpdatedAt:     updated,
	}
	return entry, ok
}

// NormalizePersisted converts a stored game into a CatalogEntry.
func NormalizePersisted(g models.PersistedGame) models.CatalogEntry {
	shots := make([]models.Screenshot, 0, len(g.Screenshots))
	for i, s := range g.Screenshots {
		u := strings.TrimSpace(s.URL)
		if !ValidURL(u) {
			continue
		}
		sid := s.ID
		if sid == "" {
			sid = screenshotID(g.ID, i)
		}
		shots = append(shots, models.Screenshot{ID: sid, URL: u, GameID: g.ID})
	}

	return models.CatalogEntry{
		ID:            g.ID,
		Title:         g.Title,
		Description:   g.Description,
		Genre:         g.Genre,
		Platform:      g.Platform,
		Developer:     g.Developer,
		Publisher:     g.Publisher,
		ReleaseDate:   g.ReleaseDate,
		Price:         g.Price,
		CoverImageURL: g.CoverImageURL,
		Screenshots:   shots,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}
}

// NormalizeScreenshots accepts a list whose items are bare URL strings or
// objects with a "url" key. Anything else is dropped.
func NormalizeScreenshots(ownerID string, raw any) []models.Screenshot {
	items, _ := raw.([]any)
	out := make([]models.Screenshot, 0, len(items))
	for i, item := range items {
		var (
			u   string
			sid string
		)
		switch v := item.(type) {
		case string:
			u = v
		case map[string]any:
			u, _ = v["url"].(string)
			sid, _ = scalarString(v["id"])
		default:
			continue
		}
		u = strings.TrimSpace(u)
		if !ValidURL(u) {
			continue
		}
		if sid == "" {
			sid = screenshotID(ownerID, i)
		}
		out = append(out, models.Screenshot{ID: sid, URL: u, GameID: ownerID})
	}
	return out
}

func screenshotID(ownerID string, pos int) string {
	return fmt.Sprintf("%s-screenshot-%d", ownerID, pos)
}

// ValidURL accepts absolute http(s) URLs with a host and site-relative paths
// ("/img.png", not "//host/img.png"). Whitespace anywhere is rejected.
func ValidURL(s string) bool {
	if s == "" || strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return false
	}
	if strings.HasPrefix(s, "/") {
		if strings.HasPrefix(s, "//") {
			return false
		}
		_, err := url.Parse(s)
		return err == nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func lookup(rec static.Record, keys ...string) any {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// scalarString renders a string or integral number as an id.
func scalarString(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case uint64:
		s = strconv.FormatUint(t, 10)
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) || math.IsNaN(t) {
			return "", false
		}
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return "", false
	}
	return s, s != ""
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// optionalString keeps an explicitly empty string distinct from a missing key.
func optionalString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	return &s
}

func urlValue(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if !ValidURL(s) {
		return nil
	}
	return &s
}

func priceValue(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint64:
		f = float64(t)
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = p
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return nil
	}
	return &f
}

func dateValue(v any) *string {
	var d string
	switch t := v.(type) {
	case time.Time:
		d = t.UTC().Format(dateLayout)
	case string:
		parsed, ok := parseDate(t)
		if !ok {
			return nil
		}
		d = parsed
	default:
		return nil
	}
	return &d
}

// parseDate accepts a calendar date or an RFC 3339 timestamp and returns the
// calendar date part.
func parseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.Format(dateLayout), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(dateLayout), true
	}
	return "", false
}

func timeValue(v any, def time.Time) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		s := strings.TrimSpace(t)
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts
		}
		if ts, err := time.Parse(dateLayout, s); err == nil {
			return ts
		}
	}
	return def
}
