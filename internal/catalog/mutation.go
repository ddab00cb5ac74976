package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"gamecatalog/pkg/database"
	apperrors "gamecatalog/pkg/errors"
	"gamecatalog/pkg/logger"
	"gamecatalog/pkg/models"
)

const minDescriptionLen = 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("imageurl", func(fl validator.FieldLevel) bool {
		return ValidURL(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register imageurl validation: %v", err))
	}
	return v
}

// Amount is a price that accepts a JSON number or a numeric string.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("price must be a number, got %s", string(b))
	}
	*a = Amount(f)
	return nil
}

// CreateInput is the payload for a new persisted entry.
type CreateInput struct {
	Title         string   `json:"title" validate:"required"`
	Description   string   `json:"description" validate:"required,min=10"`
	CoverImageURL string   `json:"coverImageUrl" validate:"required,imageurl"`
	Price         *Amount  `json:"price" validate:"required,gte=0"`
	Genre         *string  `json:"genre"`
	Platform      *string  `json:"platform"`
	Developer     *string  `json:"developer"`
	Publisher     *string  `json:"publisher"`
	ReleaseDate   *string  `json:"releaseDate" validate:"omitempty,datetime=2006-01-02"`
	Screenshots   []string `json:"screenshots" validate:"omitempty,dive,imageurl"`
}

func (in *CreateInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.CoverImageURL = strings.TrimSpace(in.CoverImageURL)
	in.Genre = trimOptional(in.Genre)
	in.Platform = trimOptional(in.Platform)
	in.Developer = trimOptional(in.Developer)
	in.Publisher = trimOptional(in.Publisher)
	in.ReleaseDate = trimOptional(in.ReleaseDate)
	in.Screenshots = trimURLs(in.Screenshots)
}

// trimOptional treats a blank value the same as an absent one.
func trimOptional(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}

func trimURLs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, u := range in {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// UpdateInput is a partial update. Absent keys are left alone; null or ""
// clears an optional field. Title, description, cover and price cannot be
// cleared. Screenshots, when present, replace the whole set.
type UpdateInput struct {
	Title         models.Patch[string]   `json:"title"`
	Description   models.Patch[string]   `json:"description"`
	CoverImageURL models.Patch[string]   `json:"coverImageUrl"`
	Price         models.Patch[Amount]   `json:"price"`
	Genre         models.Patch[string]   `json:"genre"`
	Platform      models.Patch[string]   `json:"platform"`
	Developer     models.Patch[string]   `json:"developer"`
	Publisher     models.Patch[string]   `json:"publisher"`
	ReleaseDate   models.Patch[string]   `json:"releaseDate"`
	Screenshots   models.Patch[[]string] `json:"screenshots"`
}

func required(field string, p models.Patch[string]) (*string, error) {
	if !p.Set {
		return nil, nil
	}
	v := strings.TrimSpace(p.Value)
	if p.Null || v == "" {
		return nil, apperrors.Validation(field+" cannot be cleared", nil)
	}
	return &v, nil
}

func optional(p models.Patch[string]) models.Patch[string] {
	if !p.Set {
		return p
	}
	v := strings.TrimSpace(p.Value)
	if p.Null || v == "" {
		return models.Null[string]()
	}
	return models.Some(v)
}

func (s *Service) buildUpdate(gameID string, in UpdateInput) (GameUpdate, error) {
	var (
		u   GameUpdate
		err error
	)
	if u.Title, err = required("title", in.Title); err != nil {
		return u, err
	}
	if u.Description, err = required("description", in.Description); err != nil {
		return u, err
	}
	if u.Description != nil && utf8.RuneCountInString(*u.Description) < minDescriptionLen {
		return u, apperrors.Validation(fmt.Sprintf("description must be at least %d characters", minDescriptionLen), nil)
	}
	if u.CoverImageURL, err = required("coverImageUrl", in.CoverImageURL); err != nil {
		return u, err
	}
	if u.CoverImageURL != nil && !ValidURL(*u.CoverImageURL) {
		return u, apperrors.Validation("coverImageUrl must be an absolute or site-relative URL", nil)
	}

	if in.Price.Set {
		if in.Price.Null {
			return u, apperrors.Validation("price cannot be cleared", nil)
		}
		p := float64(in.Price.Value)
		if p < 0 {
			return u, apperrors.Validation("price must be greater than or equal to 0", nil)
		}
		u.Price = &p
	}

	u.Genre = optional(in.Genre)
	u.Platform = optional(in.Platform)
	u.Developer = optional(in.Developer)
	u.Publisher = optional(in.Publisher)
	u.ReleaseDate = optional(in.ReleaseDate)
	if u.ReleaseDate.Set && !u.ReleaseDate.Null {
		if _, err := time.Parse(dateLayout, u.ReleaseDate.Value); err != nil {
			return u, apperrors.Validation("releaseDate must be a date in 2006-01-02 layout", err)
		}
	}

	if in.Screenshots.Set {
		urls := trimURLs(in.Screenshots.Value)
		for _, raw := range urls {
			if !ValidURL(raw) {
				return u, apperrors.Validation("screenshots must be absolute or site-relative URLs", nil)
			}
		}
		shots := s.newScreenshots(gameID, urls)
		u.Screenshots = &shots
	}

	u.UpdatedAt = s.now().UTC()
	return u, nil
}

func (s *Service) newScreenshots(gameID string, urls []string) []models.Screenshot {
	shots := make([]models.Screenshot, 0, len(urls))
	for _, u := range urls {
		shots = append(shots, models.Screenshot{ID: s.newID(), URL: u, GameID: gameID})
	}
	return shots
}

// Create validates in and stores a new persisted entry with its screenshots.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.CatalogEntry, error) {
	in.normalize()
	if err := validate.Struct(in); err != nil {
		s.countMutation("create", "invalid")
		return nil, apperrors.FromValidator(err)
	}

	now := s.now().UTC()
	price := float64(*in.Price)
	id := s.newID()
	g := models.PersistedGame{
		ID:            id,
		Title:         in.Title,
		Description:   in.Description,
		Genre:         in.Genre,
		Platform:      in.Platform,
		Developer:     in.Developer,
		Publisher:     in.Publisher,
		ReleaseDate:   in.ReleaseDate,
		Price:         &price,
		CoverImageURL: &in.CoverImageURL,
		Screenshots:   s.newScreenshots(id, in.Screenshots),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.CreateGame(ctx, g); err != nil {
		if database.IsUniqueViolation(err) {
			s.countMutation("create", "duplicate")
			return nil, apperrors.DuplicateTitle(g.Title, err)
		}
		s.countMutation("create", "error")
		return nil, s.storeError(ctx, "create game", err)
	}

	s.countMutation("create", "ok")
	s.invalidateOptions(ctx)
	e := NormalizePersisted(g)
	return &e, nil
}

// Update applies a partial update. Static ids are rejected before anything
// else is looked at.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*models.CatalogEntry, error) {
	if IsStaticID(id) {
		s.countMutation("update", "static")
		return nil, apperrors.StaticEntryImmutable(id)
	}

	u, err := s.buildUpdate(id, in)
	if err != nil {
		s.countMutation("update", "invalid")
		return nil, err
	}

	g, err := s.store.UpdateGame(ctx, id, u)
	switch {
	case errors.Is(err, ErrGameNotFound):
		s.countMutation("update", "not_found")
		return nil, apperrors.NotFound("Game", err)
	case database.IsUniqueViolation(err):
		s.countMutation("update", "duplicate")
		title := ""
		if u.Title != nil {
			title = *u.Title
		}
		return nil, apperrors.DuplicateTitle(title, err)
	case err != nil:
		s.countMutation("update", "error")
		return nil, s.storeError(ctx, "update game", err)
	}

	s.countMutation("update", "ok")
	s.invalidateOptions(ctx)
	e := NormalizePersisted(*g)
	return &e, nil
}

// Delete removes a persisted entry together with its purchases and
// screenshots.
func (s *Service) Delete(ctx context.Context, id string) error {
	if IsStaticID(id) {
		s.countMutation("delete", "static")
		return apperrors.StaticEntryImmutable(id)
	}

	err := s.store.DeleteGame(ctx, id)
	switch {
	case errors.Is(err, ErrGameNotFound):
		s.countMutation("delete", "not_found")
		return apperrors.NotFound("Game", err)
	case err != nil:
		s.countMutation("delete", "error")
		return s.storeError(ctx, "delete game", err)
	}

	s.countMutation("delete", "ok")
	s.invalidateOptions(ctx)
	return nil
}

func (s *Service) countMutation(op, result string) {
	if s.metrics != nil {
		s.metrics.Mutations.WithLabelValues(op, result).Inc()
	}
}

func (s *Service) invalidateOptions(ctx context.Context) {
	s.optionsGen.Add(1)
	s.dropCachedOptions(ctx)
}

func (s *Service) dropCachedOptions(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("filter options cache invalidation failed")
	}
}
