package models

import "time"

type PurchaseRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	GameID      string    `json:"gameId"`
	PurchasedAt time.Time `json:"purchasedAt"`
}

const (
	PurchaseFree = "free_purchase"
	PurchasePaid = "paid_purchase"
)

type PurchaseResult struct {
	Message     string    `json:"message"`
	Type        string    `json:"type"`
	GameID      string    `json:"gameId"`
	Title       string    `json:"title"`
	Price       *float64  `json:"price"`
	PurchasedAt time.Time `json:"purchasedAt"`
}

// OwnedGame is a catalog entry in a user's library along with when it was
// purchased.
type OwnedGame struct {
	CatalogEntry
	PurchasedAt time.Time `json:"purchasedAt"`
}
