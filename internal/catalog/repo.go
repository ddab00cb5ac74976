package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gamecatalog/pkg/database"
	"gamecatalog/pkg/models"
)

// ErrGameNotFound is returned by Repo when the targeted game row is absent.
var ErrGameNotFound = errors.New("game not found")

// screenshotChunk bounds the IN list when loading screenshots for many games.
const screenshotChunk = 500

type Repo struct {
	DB      *sql.DB
	Dialect database.Dialect
}

func NewRepo(db *sql.DB, dialect database.Dialect) *Repo {
	return &Repo{DB: db, Dialect: dialect}
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const gameColumns = `id, title, description, genre, platform, developer, publisher,
	release_date, price, cover_image_url, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(sc rowScanner, extra ...any) (models.PersistedGame, error) {
	var (
		g         models.PersistedGame
		genre     sql.NullString
		platform  sql.NullString
		developer sql.NullString
		publisher sql.NullString
		release   sql.NullString
		price     sql.NullFloat64
		cover     sql.NullString
	)
	dest := []any{
		&g.ID, &g.Title, &g.Description, &genre, &platform, &developer, &publisher,
		&release, &price, &cover, &g.CreatedAt, &g.UpdatedAt,
	}
	if err := sc.Scan(append(dest, extra...)...); err != nil {
		return g, err
	}

	g.Genre = nullString(genre)
	g.Platform = nullString(platform)
	g.Developer = nullString(developer)
	g.Publisher = nullString(publisher)
	g.ReleaseDate = nullString(release)
	g.CoverImageURL = nullString(cover)
	if price.Valid {
		p := price.Float64
		g.Price = &p
	}
	return g, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// ListGames returns persisted games that may satisfy p, newest first. The SQL
// WHERE clause only narrows candidates; callers still apply Filter for exact
// token semantics.
func (r *Repo) ListGames(ctx context.Context, p ListParams) ([]models.PersistedGame, error) {
	sqlStr, args := buildListSQL(p.compile())

	rows, err := r.DB.QueryContext(ctx, r.Dialect.Rebind(sqlStr), args...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var out []models.PersistedGame
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("list games scan: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list games rows: %w", err)
	}

	if err := r.attachScreenshots(ctx, r.DB, out); err != nil {
		return nil, err
	}
	return out, nil
}

// buildListSQL turns the compiled query into a candidate-narrowing SELECT.
// LOWER() is ASCII-only in SQLite, so a category containing a non-ASCII token
// is left to the in-memory filter entirely.
func buildListSQL(q query) (string, []any) {
	var where []string
	var args []any

	if q.search != "" && isASCII(q.search) {
		where = append(where, `LOWER(title) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(q.search)+"%")
	}

	for _, cat := range []struct {
		column string
		tokens []string
	}{
		{"genre", q.genres},
		{"platform", q.platforms},
	} {
		if len(cat.tokens) == 0 || !allASCII(cat.tokens) {
			continue
		}
		var or []string
		for _, t := range cat.tokens {
			or = append(or, "LOWER("+cat.column+`) LIKE ? ESCAPE '\'`)
			args = append(args, "%"+escapeLike(t)+"%")
		}
		where = append(where, "("+strings.Join(or, " OR ")+")")
	}

	sqlStr := "SELECT " + gameColumns + " FROM games"
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}
	sqlStr += " ORDER BY created_at DESC, id ASC"
	return sqlStr, args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func allASCII(ss []string) bool {
	for _, s := range ss {
		if !isASCII(s) {
			return false
		}
	}
	return true
}

// GetGame returns nil, nil when no game has the id.
func (r *Repo) GetGame(ctx context.Context, id string) (*models.PersistedGame, error) {
	return r.getGame(ctx, r.DB, id)
}

func (r *Repo) getGame(ctx context.Context, q queryer, id string) (*models.PersistedGame, error) {
	row := q.QueryRowContext(ctx, r.Dialect.Rebind(`SELECT `+gameColumns+` FROM games WHERE id = ?`), id)
	g, err := scanGame(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get game: %w", err)
	}

	games := []models.PersistedGame{g}
	if err := r.attachScreenshots(ctx, q, games); err != nil {
		return nil, err
	}
	return &games[0], nil
}

func (r *Repo) attachScreenshots(ctx context.Context, q queryer, games []models.PersistedGame) error {
	if len(games) == 0 {
		return nil
	}
	index := make(map[string]int, len(games))
	ids := make([]string, 0, len(games))
	for i, g := range games {
		index[g.ID] = i
		ids = append(ids, g.ID)
	}

	for start := 0; start < len(ids); start += screenshotChunk {
		end := min(start+screenshotChunk, len(ids))
		chunk := ids[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		rows, err := q.QueryContext(ctx, r.Dialect.Rebind(`
			SELECT id, game_id, url
			FROM screenshots
			WHERE game_id IN (`+database.Placeholders(len(chunk))+`)
			ORDER BY game_id, position
		`), args...)
		if err != nil {
			return fmt.Errorf("list screenshots: %w", err)
		}

		for rows.Next() {
			var s models.Screenshot
			if err := rows.Scan(&s.ID, &s.GameID, &s.URL); err != nil {
				rows.Close()
				return fmt.Errorf("list screenshots scan: %w", err)
			}
			i := index[s.GameID]
			games[i].Screenshots = append(games[i].Screenshots, s)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("list screenshots rows: %w", err)
		}
	}
	return nil
}

// CreateGame inserts the game and its screenshots in one transaction.
func (r *Repo) CreateGame(ctx context.Context, g models.PersistedGame) error {
	return database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, r.Dialect.Rebind(`
			INSERT INTO games (`+gameColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`),
			g.ID, g.Title, g.Description, g.Genre, g.Platform, g.Developer, g.Publisher,
			g.ReleaseDate, g.Price, g.CoverImageURL, g.CreatedAt.UTC(), g.UpdatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert game: %w", err)
		}
		return r.insertScreenshots(ctx, tx, g.ID, g.Screenshots)
	})
}

func (r *Repo) insertScreenshots(ctx context.Context, tx *sql.Tx, gameID string, shots []models.Screenshot) error {
	for i, s := range shots {
		if _, err := tx.ExecContext(ctx, r.Dialect.Rebind(`
			INSERT INTO screenshots (id, game_id, url, position)
			VALUES (?, ?, ?, ?)
		`), s.ID, gameID, s.URL, i); err != nil {
			return fmt.Errorf("insert screenshot: %w", err)
		}
	}
	return nil
}

// GameUpdate carries the columns to change. Nil pointers and unset patches are
// left untouched; a patch with Null set writes NULL.
type GameUpdate struct {
	Title         *string
	Description   *string
	CoverImageURL *string
	Price         *float64

	Genre       models.Patch[string]
	Platform    models.Patch[string]
	Developer   models.Patch[string]
	Publisher   models.Patch[string]
	ReleaseDate models.Patch[string]

	// Screenshots, when non-nil, replaces the whole set.
	Screenshots *[]models.Screenshot

	UpdatedAt time.Time
}

func (u GameUpdate) assignments() ([]string, []any) {
	var cols []string
	var args []any
	set := func(col string, v any) {
		cols = append(cols, col+" = ?")
		args = append(args, v)
	}

	if u.Title != nil {
		set("title", *u.Title)
	}
	if u.Description != nil {
		set("description", *u.Description)
	}
	if u.CoverImageURL != nil {
		set("cover_image_url", *u.CoverImageURL)
	}
	if u.Price != nil {
		set("price", *u.Price)
	}
	for _, p := range []struct {
		col   string
		patch models.Patch[string]
	}{
		{"genre", u.Genre},
		{"platform", u.Platform},
		{"developer", u.Developer},
		{"publisher", u.Publisher},
		{"release_date", u.ReleaseDate},
	} {
		if !p.patch.Set {
			continue
		}
		if p.patch.Null {
			set(p.col, nil)
		} else {
			set(p.col, p.patch.Value)
		}
	}
	set("updated_at", u.UpdatedAt.UTC())
	return cols, args
}

// UpdateGame applies u and, when requested, replaces the screenshot set, all
// in one transaction. It returns the game as stored after the update.
func (r *Repo) UpdateGame(ctx context.Context, id string, u GameUpdate) (*models.PersistedGame, error) {
	var out *models.PersistedGame
	err := database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		cols, args := u.assignments()
		args = append(args, id)

		res, err := tx.ExecContext(ctx, r.Dialect.Rebind(
			`UPDATE games SET `+strings.Join(cols, ", ")+` WHERE id = ?`,
		), args...)
		if err != nil {
			return fmt.Errorf("update game: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update game rows: %w", err)
		}
		if affected == 0 {
			return ErrGameNotFound
		}

		if u.Screenshots != nil {
			if _, err := tx.ExecContext(ctx, r.Dialect.Rebind(`DELETE FROM screenshots WHERE game_id = ?`), id); err != nil {
				return fmt.Errorf("delete screenshots: %w", err)
			}
			if err := r.insertScreenshots(ctx, tx, id, *u.Screenshots); err != nil {
				return err
			}
		}

		g, err := r.getGame(ctx, tx, id)
		if err != nil {
			return err
		}
		if g == nil {
			return ErrGameNotFound
		}
		out = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteGame removes purchases, then screenshots, then the game row, so it
// works against a store that enforces foreign keys without ON DELETE CASCADE.
func (r *Repo) DeleteGame(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, r.Dialect.Rebind(`DELETE FROM purchases WHERE game_id = ?`), id); err != nil {
			return fmt.Errorf("delete purchases: %w", err)
		}
		if _, err := tx.ExecContext(ctx, r.Dialect.Rebind(`DELETE FROM screenshots WHERE game_id = ?`), id); err != nil {
			return fmt.Errorf("delete screenshots: %w", err)
		}
		res, err := tx.ExecContext(ctx, r.Dialect.Rebind(`DELETE FROM games WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete game: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete game rows: %w", err)
		}
		if affected == 0 {
			return ErrGameNotFound
		}
		return nil
	})
}

// CreatePurchase records ownership of an existing game. A second purchase of
// the same pair fails with the store's unique violation.
func (r *Repo) CreatePurchase(ctx context.Context, rec models.PurchaseRecord) (*models.PersistedGame, error) {
	var game *models.PersistedGame
	err := database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		g, err := r.getGame(ctx, tx, rec.GameID)
		if err != nil {
			return err
		}
		if g == nil {
			return ErrGameNotFound
		}
		if _, err := tx.ExecContext(ctx, r.Dialect.Rebind(`
			INSERT INTO purchases (id, user_id, game_id, purchased_at)
			VALUES (?, ?, ?, ?)
		`), rec.ID, rec.UserID, rec.GameID, rec.PurchasedAt.UTC()); err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}
		game = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return game, nil
}

// OwnedGameIDs reports which of gameIDs the user has purchased.
func (r *Repo) OwnedGameIDs(ctx context.Context, userID string, gameIDs []string) (map[string]bool, error) {
	owned := make(map[string]bool)
	for start := 0; start < len(gameIDs); start += screenshotChunk {
		end := min(start+screenshotChunk, len(gameIDs))
		chunk := gameIDs[start:end]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, userID)
		for _, id := range chunk {
			args = append(args, id)
		}

		rows, err := r.DB.QueryContext(ctx, r.Dialect.Rebind(`
			SELECT game_id
			FROM purchases
			WHERE user_id = ? AND game_id IN (`+database.Placeholders(len(chunk))+`)
		`), args...)
		if err != nil {
			return nil, fmt.Errorf("owned games: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("owned games scan: %w", err)
			}
			owned[id] = true
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("owned games rows: %w", err)
		}
	}
	return owned, nil
}

// ListOwned returns the user's purchased games, most recent purchase first.
func (r *Repo) ListOwned(ctx context.Context, userID string) ([]OwnedRow, error) {
	rows, err := r.DB.QueryContext(ctx, r.Dialect.Rebind(`
		SELECT g.id, g.title, g.description, g.genre, g.platform, g.developer, g.publisher,
			g.release_date, g.price, g.cover_image_url, g.created_at, g.updated_at, p.purchased_at
		FROM purchases p
		JOIN games g ON g.id = p.game_id
		WHERE p.user_id = ?
		ORDER BY p.purchased_at DESC, g.id ASC
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("list owned: %w", err)
	}
	defer rows.Close()

	var (
		games []models.PersistedGame
		at    []time.Time
	)
	for rows.Next() {
		var purchasedAt time.Time
		g, err := scanGame(rows, &purchasedAt)
		if err != nil {
			return nil, fmt.Errorf("list owned scan: %w", err)
		}
		games = append(games, g)
		at = append(at, purchasedAt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list owned rows: %w", err)
	}
	if err := r.attachScreenshots(ctx, r.DB, games); err != nil {
		return nil, err
	}

	out := make([]OwnedRow, len(games))
	for i := range games {
		out[i] = OwnedRow{Game: games[i], PurchasedAt: at[i]}
	}
	return out, nil
}

type OwnedRow struct {
	Game        models.PersistedGame
	PurchasedAt time.Time
}
