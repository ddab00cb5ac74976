package models

import "time"

// StaticIDPrefix namespaces seed entries so they can never collide with ids
// issued by the persisted store.
const StaticIDPrefix = "static-"

// CatalogEntry is the canonical form of a game regardless of which source
// backs it. Optional fields are nil when unset; genre/platform/developer/
// publisher are omitted from JSON when unset, the remaining optionals are
// rendered as null.
type CatalogEntry struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Genre         *string      `json:"genre,omitempty"`
	Platform      *string      `json:"platform,omitempty"`
	Developer     *string      `json:"developer,omitempty"`
	Publisher     *string      `json:"publisher,omitempty"`
	ReleaseDate   *string      `json:"releaseDate"`
	Price         *float64     `json:"price"`
	CoverImageURL *string      `json:"coverImageUrl"`
	Screenshots   []Screenshot `json:"screenshots"`
	IsStatic      bool         `json:"isStatic"`
	IsOwned       bool         `json:"isOwned"`
	// IsPlaceholder marks an entry synthesized from a malformed seed record.
	IsPlaceholder bool      `json:"isPlaceholder,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Screenshot struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	GameID string `json:"gameId"`
}

// PersistedGame is one row of the games table with its screenshot rows in
// position order.
type PersistedGame struct {
	ID            string
	Title         string
	Description   string
	Genre         *string
	Platform      *string
	Developer     *string
	Publisher     *string
	ReleaseDate   *string
	Price         *float64
	CoverImageURL *string
	Screenshots   []Screenshot
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type FilterOptions struct {
	Genres     []string `json:"genres"`
	Platforms  []string `json:"platforms"`
	Developers []string `json:"developers"`
}
