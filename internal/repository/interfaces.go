package repository

import (
	"context"

	"plus-api/internal/model"

	"github.com/google/uuid"
)

// Repository defines cosmetic ownership data access methods.
type Repository interface {
	// InTx runs fn inside a single transaction. The transaction commits when
	// fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// ListCosmetics returns every cosmetic, optionally restricted to a category.
	ListCosmetics(ctx context.Context, category *model.Category) ([]model.Cosmetic, error)

	// GetCosmetic returns a cosmetic by ID or ErrNotFound.
	GetCosmetic(ctx context.Context, id int64) (*model.Cosmetic, error)

	// OwnedCosmetics returns all cosmetics owned by a player.
	OwnedCosmetics(ctx context.Context, player uuid.UUID) ([]model.OwnedCosmetic, error)

	// ActiveCosmetics returns active cosmetic IDs keyed by player. Players
	// without an active selection are absent from the map.
	ActiveCosmetics(ctx context.Context, players []uuid.UUID) (map[uuid.UUID][]int64, error)

	// PackageCosmetics returns the package mappings for the given package IDs.
	PackageCosmetics(ctx context.Context, packageIDs []int64) ([]model.CosmeticPackage, error)

	// CreateCosmetic registers a new cosmetic.
	CreateCosmetic(ctx context.Context, category model.Category, path *string) (*model.Cosmetic, error)

	// MapPackage links a billing package to a cosmetic. Repeating a mapping is a no-op.
	MapPackage(ctx context.Context, packageID, cosmeticID int64) error

	// GetStats returns statistics about the database.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close closes the repository connection.
	Close() error
}

// Tx is the set of operations that must run inside a caller's transaction.
type Tx interface {
	// GetOrCreateUser resolves a player to an internal user, inserting one
	// on first sight. A concurrent insert of the same player is absorbed.
	GetOrCreateUser(ctx context.Context, player uuid.UUID) (*model.User, error)

	// GrantOwnership inserts one ownership edge per grant, ignoring pairs that
	// already exist, and returns the grants that were newly inserted.
	GrantOwnership(ctx context.Context, userID string, grants []model.Grant) ([]model.Grant, error)

	// CosmeticsByID returns the cosmetics that exist among ids.
	CosmeticsByID(ctx context.Context, ids []int64) ([]model.Cosmetic, error)

	// MatchingCosmetics returns the cosmetics whose (id, category) pair is
	// among the non-nil selections, in a single query.
	MatchingCosmetics(ctx context.Context, selections []model.Selection) ([]model.Cosmetic, error)

	// OwnedCosmeticIDs returns which of ids the user owns.
	OwnedCosmeticIDs(ctx context.Context, userID string, ids []int64) ([]int64, error)

	// SetActive activates cosmeticID within category for the user, clearing
	// every other edge in that category. A nil cosmeticID clears the category.
	SetActive(ctx context.Context, userID string, category model.Category, cosmeticID *int64) error
}
