package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"gamecatalog/internal/static"
	apperrors "gamecatalog/pkg/errors"
	"gamecatalog/pkg/logger"
	"gamecatalog/pkg/metrics"
	"gamecatalog/pkg/models"
)

// Store is the persisted catalog. Repo is the SQL implementation.
type Store interface {
	ListGames(ctx context.Context, p ListParams) ([]models.PersistedGame, error)
	GetGame(ctx context.Context, id string) (*models.PersistedGame, error)
	CreateGame(ctx context.Context, g models.PersistedGame) error
	UpdateGame(ctx context.Context, id string, u GameUpdate) (*models.PersistedGame, error)
	DeleteGame(ctx context.Context, id string) error
	CreatePurchase(ctx context.Context, rec models.PurchaseRecord) (*models.PersistedGame, error)
	OwnedGameIDs(ctx context.Context, userID string, gameIDs []string) (map[string]bool, error)
	ListOwned(ctx context.Context, userID string) ([]OwnedRow, error)
}

// OptionsCache caches the filter-option lists between mutations.
type OptionsCache interface {
	Get(ctx context.Context) (*models.FilterOptions, bool, error)
	Set(ctx context.Context, opts *models.FilterOptions) error
	Invalidate(ctx context.Context) error
}

type Service struct {
	store   Store
	cache   OptionsCache
	metrics *metrics.Registry
	now     func() time.Time
	newID   func() string

	// optionsGen is bumped on every mutation; FilterOptions only caches a
	// result computed without an intervening bump.
	optionsGen atomic.Uint64

	// static entries are normalized once and never modified afterwards.
	static     []models.CatalogEntry
	staticByID map[string]int
}

type Option func(*Service)

func WithCache(c OptionsCache) Option { return func(s *Service) { s.cache = c } }

func WithMetrics(m *metrics.Registry) Option { return func(s *Service) { s.metrics = m } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithIDGenerator(f func() string) Option { return func(s *Service) { s.newID = f } }

func NewService(store Store, seed *static.Catalog, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.loadStatic(seed)
	return s
}

func (s *Service) loadStatic(seed *static.Catalog) {
	s.staticByID = make(map[string]int)
	if seed == nil {
		return
	}
	log := logger.L()
	for i, rec := range seed.Records() {
		e, ok := NormalizeStatic(rec, i, seed.LoadedAt())
		if !ok {
			log.Warn().Int("index", i).Str("id", e.ID).Msg("malformed static record replaced by placeholder")
			if s.metrics != nil {
				s.metrics.Placeholders.Inc()
			}
		}
		if pos, dup := s.staticByID[e.ID]; dup {
			log.Warn().Int("index", i).Str("id", e.ID).Msg("duplicate static id, later record wins")
			s.static[pos] = e
			continue
		}
		s.staticByID[e.ID] = len(s.static)
		s.static = append(s.static, e)
	}
}

// StaticEntries returns copies of the normalized seed entries.
func (s *Service) StaticEntries() []models.CatalogEntry {
	out := make([]models.CatalogEntry, len(s.static))
	for i, e := range s.static {
		out[i] = cloneEntry(e)
	}
	return out
}

func cloneEntry(e models.CatalogEntry) models.CatalogEntry {
	shots := make([]models.Screenshot, len(e.Screenshots))
	copy(shots, e.Screenshots)
	e.Screenshots = shots
	return e
}

// List returns the merged, deduplicated catalog matching p, newest first,
// with IsOwned set for requesterID. An empty requesterID is anonymous.
func (s *Service) List(ctx context.Context, p ListParams, requesterID string) ([]models.CatalogEntry, error) {
	q := p.compile()

	staticHits := q.filter(s.StaticEntries())

	rows, err := s.store.ListGames(ctx, p)
	if err != nil {
		return nil, s.storeError(ctx, "list games", err)
	}
	persisted := make([]models.CatalogEntry, 0, len(rows))
	for _, g := range rows {
		persisted = append(persisted, NormalizePersisted(g))
	}
	persistedHits := q.filter(persisted)

	merged := Merge(staticHits, persistedHits)
	SortByRecency(merged)

	if err := s.annotateOwnership(ctx, merged, requesterID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, s.storeError(ctx, "list games", err)
	}

	if s.metrics != nil {
		s.metrics.CatalogListed.Observe(float64(len(merged)))
	}
	return merged, nil
}

// Merge concatenates both result sets keyed by id. A persisted entry whose id
// is already present replaces it in place.
func Merge(staticHits, persisted []models.CatalogEntry) []models.CatalogEntry {
	out := make([]models.CatalogEntry, 0, len(staticHits)+len(persisted))
	index := make(map[string]int, len(staticHits)+len(persisted))
	put := func(e models.CatalogEntry) {
		if i, ok := index[e.ID]; ok {
			out[i] = e
			return
		}
		index[e.ID] = len(out)
		out = append(out, e)
	}
	for _, e := range staticHits {
		put(e)
	}
	for _, e := range persisted {
		put(e)
	}
	return out
}

// SortByRecency orders by CreatedAt descending; ties keep their input order.
func SortByRecency(entries []models.CatalogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}

func (s *Service) annotateOwnership(ctx context.Context, entries []models.CatalogEntry, requesterID string) error {
	if requesterID == "" {
		return nil
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsStatic {
			ids = append(ids, e.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	owned, err := s.store.OwnedGameIDs(ctx, requesterID, ids)
	if err != nil {
		return s.storeError(ctx, "load ownership", err)
	}
	for i := range entries {
		entries[i].IsOwned = !entries[i].IsStatic && owned[entries[i].ID]
	}
	return nil
}

// Get looks the id up in the persisted store first, so a colliding persisted
// row wins over the seed entry just as it does in List.
func (s *Service) Get(ctx context.Context, id string, requesterID string) (*models.CatalogEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.NotFound("Game", nil)
	}

	g, err := s.store.GetGame(ctx, id)
	if err != nil {
		return nil, s.storeError(ctx, "get game", err)
	}
	if g != nil {
		entries := []models.CatalogEntry{NormalizePersisted(*g)}
		if err := s.annotateOwnership(ctx, entries, requesterID); err != nil {
			return nil, err
		}
		return &entries[0], nil
	}

	if i, ok := s.staticByID[id]; ok {
		e := cloneEntry(s.static[i])
		return &e, nil
	}
	return nil, apperrors.NotFound("Game", nil)
}

// ListOwned returns the requester's library, most recent purchase first.
func (s *Service) ListOwned(ctx context.Context, requesterID string) ([]models.OwnedGame, error) {
	if requesterID == "" {
		return nil, apperrors.Unauthenticated("authentication required", nil)
	}
	rows, err := s.store.ListOwned(ctx, requesterID)
	if err != nil {
		return nil, s.storeError(ctx, "list owned games", err)
	}
	out := make([]models.OwnedGame, 0, len(rows))
	for _, r := range rows {
		e := NormalizePersisted(r.Game)
		e.IsOwned = true
		out = append(out, models.OwnedGame{CatalogEntry: e, PurchasedAt: r.PurchasedAt})
	}
	return out, nil
}

// storeError classifies an unexpected store failure. Deadlines become TIMEOUT;
// everything else is a logged STORE_ERROR.
func (s *Service) storeError(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.Timeout(op+" timed out", err)
	}
	logger.Ctx(ctx).Error().Err(err).Str("op", op).Msg("catalog store failure")
	return apperrors.Store(op+" failed", err)
}
