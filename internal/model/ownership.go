package model

import "time"

// UserCosmetic is an ownership edge. At most one exists per (user, cosmetic).
type UserCosmetic struct {
	UserID        string    `json:"user_id"`
	CosmeticID    int64     `json:"cosmetic_id"`
	TransactionID string    `json:"transaction_id"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

// Grant is a request to create an ownership edge for a cosmetic, carrying the
// billing transaction that entitled it.
type Grant struct {
	CosmeticID    int64
	TransactionID string
}

// OwnedCosmetic joins an ownership edge with its cosmetic.
type OwnedCosmetic struct {
	Cosmetic      Cosmetic
	TransactionID string
	Active        bool
}

// Selection is one entry of a partial active-cosmetic update. A nil
// CosmeticID clears the category.
type Selection struct {
	Category   Category
	CosmeticID *int64
}
