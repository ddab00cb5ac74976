package catalog

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamecatalog/internal/auth"
	"gamecatalog/internal/cache"
	"gamecatalog/internal/static"
	"gamecatalog/pkg/database"
	apperrors "gamecatalog/pkg/errors"
	"gamecatalog/pkg/models"
)

type testEnv struct {
	db   *sql.DB
	repo *Repo
	svc  *Service
}

// stepClock advances one second per call so every write gets a distinct,
// increasing timestamp after the seed.
func stepClock() func() time.Time {
	cur := seedLoadedAt
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

func newEnv(t *testing.T, seed *static.Catalog, opts ...Option) *testEnv {
	t.Helper()
	ctx := context.Background()
	db, dialect, err := database.Open(ctx, database.Config{
		Driver: "sqlite3",
		DSN:    filepath.Join(t.TempDir(), "catalog.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db, dialect))

	repo := NewRepo(db, dialect)
	opts = append([]Option{WithClock(stepClock())}, opts...)
	return &testEnv{db: db, repo: repo, svc: NewService(repo, seed, opts...)}
}

func embeddedSeed(t *testing.T) *static.Catalog {
	t.Helper()
	seed, err := static.LoadFile("", seedLoadedAt)
	require.NoError(t, err)
	return seed
}

func (e *testEnv) addUser(t *testing.T, id string) string {
	t.Helper()
	repo := auth.NewRepo(e.db, e.repo.Dialect)
	require.NoError(t, repo.CreateUser(context.Background(), auth.User{
		ID:           id,
		Username:     id,
		Email:        id + "@example.com",
		PasswordHash: "x",
	}))
	return id
}

func validInput(title string) CreateInput {
	price := Amount(19.99)
	genre, platform, dev := "Survival, Action", "PC", "Iron Gate"
	return CreateInput{
		Title:         title,
		Description:   "A brutal exploration and survival game.",
		CoverImageURL: "/images/valheim/cover.jpg",
		Price:         &price,
		Genre:         &genre,
		Platform:      &platform,
		Developer:     &dev,
		Screenshots:   []string{"/images/valheim/1.jpg", "https://cdn.example.com/2.jpg"},
	}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	ae, ok := apperrors.As(err)
	require.True(t, ok, "want AppError, got %T: %v", err, err)
	assert.Equal(t, code, ae.Code, ae.Message)
}

func TestService_ListMergesBothSources(t *testing.T) {
	env := newEnv(t, embeddedSeed(t))
	ctx := context.Background()

	created, err := env.svc.Create(ctx, validInput("Valheim"))
	require.NoError(t, err)

	all, err := env.svc.List(ctx, ListParams{}, "")
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, created.ID, all[0].ID, "persisted entry is newest")
	assert.False(t, all[0].IsStatic)
	assert.Equal(t, []string{"static-1", "static-2", "static-3", "static-4", "static-5"}, ids(all[1:]))

	portal, err := env.svc.List(ctx, ListParams{Search: "portal"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"static-4"}, ids(portal))

	action, err := env.svc.List(ctx, ListParams{Genres: []string{"action"}}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{created.ID, "static-5"}, ids(action), "Action RPG is not an Action token")

	both, err := env.svc.List(ctx, ListParams{Genres: []string{"rpg"}, Platforms: []string{"switch"}}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"static-2"}, ids(both))
}

func TestService_ListIsRepeatable(t *testing.T) {
	env := newEnv(t, embeddedSeed(t))
	ctx := context.Background()
	_, err := env.svc.Create(ctx, validInput("Valheim"))
	require.NoError(t, err)

	p := ListParams{Platforms: []string{"PC"}}
	first, err := env.svc.List(ctx, p, "")
	require.NoError(t, err)
	second, err := env.svc.List(ctx, p, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	first[0].Title = "mutated"
	third, err := env.svc.List(ctx, p, "")
	require.NoError(t, err)
	assert.Equal(t, second, third)
}

func TestService_PersistedRowWinsIDCollision(t *testing.T) {
	env := newEnv(t, embeddedSeed(t))
	ctx := context.Background()

	require.NoError(t, env.repo.CreateGame(ctx, models.PersistedGame{
		ID:          "static-1",
		Title:       "Override",
		Description: "Stored with a seed id.",
		CreatedAt:   seedLoadedAt,
		UpdatedAt:   seedLoadedAt,
	}))

	all, err := env.svc.List(ctx, ListParams{}, "")
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "static-1", all[0].ID)
	assert.Equal(t, "Override", all[0].Title)
	assert.False(t, all[0].IsStatic)

	got, err := env.svc.Get(ctx, "static-1", "")
	require.NoError(t, err)
	assert.Equal(t, "Override", got.Title)
}

func TestService_Get(t *testing.T) {
	env := newEnv(t, embeddedSeed(t))
	ctx := context.Background()

	created, err := env.svc.Create(ctx, validInput("Valheim"))
	require.NoError(t, err)

	got, err := env.svc.Get(ctx, created.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Valheim", got.Title)
	assert.Len(t, got.Screenshots, 2)

	seed, err := env.svc.Get(ctx, "static-3", "")
	require.NoError(t, err)
	assert.Equal(t, "Elden Ring", seed.Title)
	assert.True(t, seed.IsStatic)

	_, err = env.svc.Get(ctx, "missing", "")
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = env.svc.Get(ctx, " ", "")
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestService_SeedProblemsAreTolerated(t *testing.T) {
	seed := static.FromRecords([]static.Record{
		{"id": "1", "title": "First"},
		{"title": "No id", "genre": "RPG"},
		{"id": "1", "title": "First again"},
	}, seedLoadedAt)
	env := newEnv(t, seed)

	entries := env.svc.StaticEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "static-1", entries[0].ID)
	assert.Equal(t, "First again", entries[0].Title, "later duplicate wins")
	assert.Equal(t, "static-invalid-1", entries[1].ID)
	assert.True(t, entries[1].IsPlaceholder)

	all, err := env.svc.List(context.Background(), ListParams{Genres: []string{"rpg"}}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"static-invalid-1"}, ids(all))
}

func TestService_ScalarSeedItemBecomesPlaceholder(t *testing.T) {
	seed, err := static.Load([]byte("- id: \"1\"\n  title: Portal 2\n- just a string\n"), seedLoadedAt)
	require.NoError(t, err)
	env := newEnv(t, seed)

	entries := env.svc.StaticEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "static-1", entries[0].ID)
	assert.Equal(t, "Portal 2", entries[0].Title)
	assert.Equal(t, "static-invalid-1", entries[1].ID)
	assert.Equal(t, "Untitled game", entries[1].Title)
	assert.True(t, entries[1].IsPlaceholder)
}

func TestService_NilSeed(t *testing.T) {
	env := newEnv(t, nil)
	all, err := env.svc.List(context.Background(), ListParams{}, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestService_CreateValidation(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		edit func(*CreateInput)
	}{
		{"missing title", func(in *CreateInput) { in.Title = "  " }},
		{"short description", func(in *CreateInput) { in.Description = "too short" }},
		{"missing cover", func(in *CreateInput) { in.CoverImageURL = "" }},
		{"relative cover without slash", func(in *CreateInput) { in.CoverImageURL = "cover.jpg" }},
		{"missing price", func(in *CreateInput) { in.Price = nil }},
		{"negative price", func(in *CreateInput) { p := Amount(-1); in.Price = &p }},
		{"bad release date", func(in *CreateInput) { d := "10/12/2020"; in.ReleaseDate = &d }},
		{"bad screenshot", func(in *CreateInput) { in.Screenshots = []string{"/ok.png", "nope"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput("Valheim")
			tt.edit(&in)
			_, err := env.svc.Create(ctx, in)
			requireCode(t, err, apperrors.CodeValidation)
		})
	}

	all, err := env.svc.List(ctx, ListParams{}, "")
	require.NoError(t, err)
	assert.Empty(t, all, "nothing was stored")
}

func TestService_CreateNormalizesInput(t *testing.T) {
	env := newEnv(t, nil)
	in := validInput("  Valheim  ")
	blank := "   "
	in.Publisher = &blank
	in.Screenshots = []string{" /a.png ", ""}

	e, err := env.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Valheim", e.Title)
	assert.Nil(t, e.Publisher)
	assert.Nil(t, e.ReleaseDate)
	require.Len(t, e.Screenshots, 1)
	assert.Equal(t, "/a.png", e.Screenshots[0].URL)
	assert.Equal(t, e.ID, e.Screenshots[0].GameID)
	assert.NotEmpty(t, e.Screenshots[0].ID)
}

func TestService_DuplicateTitle(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, validInput("Valheim"))
	require.NoError(t, err)
	_, err = env.svc.Create(ctx, validInput("Valheim"))
	requireCode(t, err, apperrors.CodeDuplicateTitle)

	other, err := env.svc.Create(ctx, validInput("Grounded"))
	require.NoError(t, err)
	_, err = env.svc.Update(ctx, other.ID, UpdateInput{Title: models.Some("Valheim")})
	requireCode(t, err, apperrors.CodeDuplicateTitle)
}

func TestService_StaticEntriesAreImmutable(t *testing.T) {
	env := newEnv(t, embeddedSeed(t))
	ctx := context.Background()

	_, err := env.svc.Update(ctx, "static-1", UpdateInput{Title: models.Some("Renamed")})
	requireCode(t, err, apperrors.CodeStaticEntry)

	// checked before validation
	_, err = env.svc.Update(ctx, "static-1", UpdateInput{Title: models.Some("")})
	requireCode(t, err, apperrors.CodeStaticEntry)

	err = env.svc.Delete(ctx, "static-2")
	requireCode(t, err, apperrors.CodeStaticEntry)

	err = env.svc.Delete(ctx, "static-does-not-exist")
	requireCode(t, err, apperrors.CodeStaticEntry)

	got, err := env.svc.Get(ctx, "static-1", "")
	require.NoError(t, err)
	assert.Equal(t, "Cyberpunk 2077", got.Title)
}

func TestService_UpdatePartial(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, validInput("Valheim"))
	require.NoError(t, err)

	updated, err := env.svc.Update(ctx, created.ID, UpdateInput{
		Price:       models.Some(Amount(0)),
		Genre:       models.Null[string](),
		Developer:   models.Some(""),
		Publisher:   models.Some("Coffee Stain"),
		ReleaseDate: models.Some("2021-02-02"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Valheim", updated.Title, "absent fields are untouched")
	assert.Equal(t, created.Description, updated.Description)
	require.NotNil(t, updated.Price)
	assert.Zero(t, *updated.Price)
	assert.Nil(t, updated.Genre)
	assert.Nil(t, updated.Developer)
	require.NotNil(t, updated.Publisher)
	assert.Equal(t, "Coffee Stain", *updated.Publisher)
	require.NotNil(t, updated.ReleaseDate)
	assert.Equal(t, "2021-02-02", *updated.ReleaseDate)
	assert.Len(t, updated.Screenshots, 2, "screenshots untouched when absent")
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
}

func TestService_UpdateValidation(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, validInput("Valheim"))
	require.NoError(t, err)

	tests := []struct {
		name string
		in   UpdateInput
	}{
		{"clear title", UpdateInput{Title: models.Some(" ")}},
		{"null description", UpdateInput{Description: models.Null[string]()}},
		{"short description", UpdateInput{Description: models.Some("short")}},
		{"bad cover", UpdateInput{CoverImageURL: models.Some("//cdn.example.com/a.png")}},
		{"null price", UpdateInput{Price: models.Null[Amount]()}},
		{"negative price", UpdateInput{Price: models.Some(Amount(-5))}},
		{"bad date", UpdateInput{ReleaseDate: models.Some("2021-02-30")}},
		{"bad screenshot", UpdateInput{Screenshots: models.Some([]string{"x y"})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Update(ctx, created.ID, tt.in)
			requireCode(t, err, apperrors.CodeValidation)
		})
	}

	_, err = env.svc.Update(ctx, "missing", UpdateInput{Title: models.Some("X")})
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestService_UpdateReplacesScreenshots(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, validInput("Valheim"))
	require.NoError(t, err)

	updated, err := env.svc.Update(ctx, created.ID, UpdateInput{
		Screenshots: models.Some([]string{"/new-1.png", "/new-2.png", "/new-3.png"}),
	})
	require.NoError(t, err)
	urls := make([]string, 0, len(updated.Screenshots))
	for _, s := range updated.Screenshots {
		urls = append(urls, s.URL)
	}
	assert.Equal(t, []string{"/new-1.png", "/new-2.png", "/new-3.png"}, urls)

	cleared, err := env.svc.Update(ctx, created.ID, UpdateInput{Screenshots: models.Null[[]string]()})
	require.NoError(t, err)
	assert.Empty(t, cleared.Screenshots)
}

func TestService_UpdateIsAtomic(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, validInput("Valheim"))
	require.NoError(t, err)

	_, err = env.db.ExecContext(ctx, `
		CREATE TRIGGER fail_screenshot BEFORE INSERT ON screenshots
		WHEN NEW.url = '/boom.png'
		BEGIN SELECT RAISE(ABORT, 'injected'); END;
	`)
	require.NoError(t, err)

	_, err = env.svc.Update(ctx, created.ID, UpdateInput{
		Title:       models.Some("Valheim Deluxe"),
		Screenshots: models.Some([]string{"/fine.png", "/boom.png"}),
	})
	requireCode(t, err, apperrors.CodeStore)

	got, err := env.svc.Get(ctx, created.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Valheim", got.Title)
	assert.Equal(t, created.Screenshots, got.Screenshots)
}

func TestService_DeleteCascades(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()
	user := env.addUser(t, "u1")

	created, err := env.svc.Create(ctx, validInput("Valheim"))
	require.NoError(t, err)
	_, err = env.svc.Purchase(ctx, created.ID, user)
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(ctx, created.ID))

	_, err = env.svc.Get(ctx, created.ID, user)
	requireCode(t, err, apperrors.CodeNotFound)

	var n int
	require.NoError(t, env.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM screenshots`).Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, env.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM purchases`).Scan(&n))
	assert.Zero(t, n)

	owned, err := env.svc.ListOwned(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, owned)

	err = env.svc.Delete(ctx, created.ID)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestService_Purchase(t *testing.T) {
	env := newEnv(t, embeddedSeed(t))
	ctx := context.Background()
	user := env.addUser(t, "u1")

	paid, err := env.svc.Create(ctx, validInput("Valheim"))
	require.NoError(t, err)
	freeIn := validInput("Among Us")
	zero := Amount(0)
	freeIn.Price = &zero
	free, err := env.svc.Create(ctx, freeIn)
	require.NoError(t, err)

	res, err := env.svc.Purchase(ctx, paid.ID, user)
	require.NoError(t, err)
	assert.Equal(t, models.PurchasePaid, res.Type)
	assert.Equal(t, "Valheim", res.Title)
	assert.Equal(t, paid.ID, res.GameID)
	require.NotNil(t, res.Price)
	assert.InDelta(t, 19.99, *res.Price, 1e-9)

	res, err = env.svc.Purchase(ctx, free.ID, user)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseFree, res.Type)

	_, err = env.svc.Purchase(ctx, paid.ID, user)
	requireCode(t, err, apperrors.CodeAlreadyOwned)

	_, err = env.svc.Purchase(ctx, "static-5", user)
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = env.svc.Purchase(ctx, "missing", user)
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = env.svc.Purchase(ctx, paid.ID, "")
	requireCode(t, err, apperrors.CodeUnauthenticated)

	var n int
	require.NoError(t, env.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM purchases`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestService_Ownership(t *testing.T) {
	env := newEnv(t, embeddedSeed(t))
	ctx := context.Background()
	alice := env.addUser(t, "alice")
	bob := env.addUser(t, "bob")

	valheim, err := env.svc.Create(ctx, validInput("Valheim"))
	require.NoError(t, err)
	grounded, err := env.svc.Create(ctx, validInput("Grounded"))
	require.NoError(t, err)

	_, err = env.svc.Purchase(ctx, valheim.ID, alice)
	require.NoError(t, err)
	_, err = env.svc.Purchase(ctx, grounded.ID, alice)
	require.NoError(t, err)

	owned := func(entries []models.CatalogEntry) []string {
		var out []string
		for _, e := range entries {
			if e.IsOwned {
				out = append(out, e.ID)
			}
		}
		return out
	}

	forAlice, err := env.svc.List(ctx, ListParams{}, alice)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{valheim.ID, grounded.ID}, owned(forAlice))

	forBob, err := env.svc.List(ctx, ListParams{}, bob)
	require.NoError(t, err)
	assert.Empty(t, owned(forBob))

	anon, err := env.svc.List(ctx, ListParams{}, "")
	require.NoError(t, err)
	assert.Empty(t, owned(anon))

	one, err := env.svc.Get(ctx, valheim.ID, alice)
	require.NoError(t, err)
	assert.True(t, one.IsOwned)

	library, err := env.svc.ListOwned(ctx, alice)
	require.NoError(t, err)
	require.Len(t, library, 2)
	assert.Equal(t, grounded.ID, library[0].ID, "most recent purchase first")
	assert.Equal(t, valheim.ID, library[1].ID)
	assert.True(t, library[0].IsOwned)
	assert.True(t, library[0].PurchasedAt.After(library[1].PurchasedAt))
	assert.Len(t, library[0].Screenshots, 2)

	_, err = env.svc.ListOwned(ctx, "")
	requireCode(t, err, apperrors.CodeUnauthenticated)
}

type fakeCache struct {
	opts        *models.FilterOptions
	gets, sets  int
	invalidated int
	err         error
}

func (f *fakeCache) Get(context.Context) (*models.FilterOptions, bool, error) {
	f.gets++
	if f.err != nil {
		return nil, false, f.err
	}
	return f.opts, f.opts != nil, nil
}

func (f *fakeCache) Set(_ context.Context, opts *models.FilterOptions) error {
	f.sets++
	if f.err != nil {
		return f.err
	}
	f.opts = opts
	return nil
}

func (f *fakeCache) Invalidate(context.Context) error {
	f.invalidated++
	f.opts = nil
	return f.err
}

func TestService_FilterOptions(t *testing.T) {
	c := &fakeCache{}
	env := newEnv(t, embeddedSeed(t), WithCache(c))
	ctx := context.Background()

	opts, err := env.svc.FilterOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Action", "Action RPG", "Platformer", "Puzzle", "RPG", "Shooter"}, opts.Genres)
	assert.Contains(t, opts.Platforms, "Xbox Series X/S")
	assert.Equal(t, []string{"CD Projekt Red", "FromSoftware", "Valve"}, opts.Developers)
	assert.Equal(t, 1, c.sets)

	again, err := env.svc.FilterOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, opts, again)
	assert.Equal(t, 1, c.sets, "served from cache")

	_, err = env.svc.Create(ctx, validInput("Valheim"))
	require.NoError(t, err)
	assert.Equal(t, 1, c.invalidated)

	fresh, err := env.svc.FilterOptions(ctx)
	require.NoError(t, err)
	assert.Contains(t, fresh.Genres, "Survival")
	assert.Contains(t, fresh.Developers, "Iron Gate")
}

// listHookStore runs afterList once, after the first ListGames call returns.
type listHookStore struct {
	Store
	afterList func()
}

func (h *listHookStore) ListGames(ctx context.Context, p ListParams) ([]models.PersistedGame, error) {
	rows, err := h.Store.ListGames(ctx, p)
	if f := h.afterList; f != nil {
		h.afterList = nil
		f()
	}
	return rows, err
}

func TestService_FilterOptionsNotCachedAcrossConcurrentMutation(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()
	store := &listHookStore{Store: env.repo}
	svc := NewService(store, nil, WithCache(cache.NewMemory(time.Minute)), WithClock(stepClock()))

	store.afterList = func() {
		_, err := svc.Create(ctx, validInput("Valheim"))
		require.NoError(t, err)
	}

	first, err := svc.FilterOptions(ctx)
	require.NoError(t, err)
	assert.Empty(t, first.Genres, "rows were read before the game existed")

	next, err := svc.FilterOptions(ctx)
	require.NoError(t, err)
	assert.Contains(t, next.Genres, "Survival")
	assert.Contains(t, next.Genres, "Action")
}

func TestService_FilterOptionsSurvivesCacheFailure(t *testing.T) {
	c := &fakeCache{err: errors.New("redis down")}
	env := newEnv(t, embeddedSeed(t), WithCache(c))
	ctx := context.Background()

	opts, err := env.svc.FilterOptions(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, opts.Genres)

	_, err = env.svc.Create(ctx, validInput("Valheim"))
	require.NoError(t, err, "invalidation failure does not fail the mutation")
}

func TestService_Timeout(t *testing.T) {
	env := newEnv(t, embeddedSeed(t))
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := env.svc.List(ctx, ListParams{}, "")
	requireCode(t, err, apperrors.CodeTimeout)
}

func TestService_StoreFailure(t *testing.T) {
	env := newEnv(t, embeddedSeed(t))
	require.NoError(t, env.db.Close())

	_, err := env.svc.List(context.Background(), ListParams{}, "")
	requireCode(t, err, apperrors.CodeStore)

	_, err = env.svc.FilterOptions(context.Background())
	requireCode(t, err, apperrors.CodeStore)
}

func TestMerge(t *testing.T) {
	s := []models.CatalogEntry{entry("static-1", "Seed", "", ""), entry("static-2", "Other", "", "")}
	p := []models.CatalogEntry{entry("g1", "New", "", ""), entry("static-2", "Stored", "", "")}

	got := Merge(s, p)
	assert.Equal(t, []string{"static-1", "static-2", "g1"}, ids(got))
	assert.Equal(t, "Stored", got[1].Title)
}

func TestSortByRecency_StableOnTies(t *testing.T) {
	at := func(id string, ts time.Time) models.CatalogEntry {
		e := entry(id, id, "", "")
		e.CreatedAt = ts
		return e
	}
	entries := []models.CatalogEntry{
		at("a", seedLoadedAt),
		at("b", seedLoadedAt.Add(time.Hour)),
		at("c", seedLoadedAt),
	}
	SortByRecency(entries)
	assert.Equal(t, []string{"b", "a", "c"}, ids(entries))
}
