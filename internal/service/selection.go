package service

import (
	"context"
	"slices"
	"strings"

	"plus-api/internal/model"
	"plus-api/internal/repository"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SelectionService applies partial updates to a player's active cosmetics.
type SelectionService struct {
	repo   repository.Repository
	logger *zap.Logger
}

func NewSelectionService(repo repository.Repository, logger *zap.Logger) *SelectionService {
	return &SelectionService{repo: repo, logger: logger.Named("selection")}
}

type categoryID struct {
	category model.Category
	id       int64
}

// parseSelections converts a category -> id-or-null mapping into
// selections ordered by category. Absent categories are not represented.
func parseSelections(raw map[string]*int64) ([]model.Selection, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	selections := make([]model.Selection, 0, len(keys))
	seen := mapset.NewThreadUnsafeSet[model.Category]()
	for _, k := range keys {
		category, err := model.ParseCategory(k)
		if err != nil {
			return nil, &SelectionError{Category: strings.TrimSpace(k), Reason: ReasonUnknownCategory}
		}
		if !seen.Add(category) {
			return nil, &SelectionError{Category: string(category), Reason: ReasonDuplicateCategory}
		}
		selections = append(selections, model.Selection{Category: category, CosmeticID: raw[k]})
	}
	return selections, nil
}

// UpdateActive applies the update for player inside one transaction. Every
// non-null pair is validated before any row changes; the first invalid or
// unowned pair rejects the whole update with a *SelectionError.
func (s *SelectionService) UpdateActive(ctx context.Context, player uuid.UUID, raw map[string]*int64) error {
	selections, err := parseSelections(raw)
	if err != nil {
		return err
	}
	if len(selections) == 0 {
		return nil
	}

	var ids []int64
	for _, sel := range selections {
		if sel.CosmeticID != nil {
			ids = append(ids, *sel.CosmeticID)
		}
	}

	err = s.repo.InTx(ctx, func(tx repository.Tx) error {
		if len(ids) > 0 {
			matched, err := tx.MatchingCosmetics(ctx, selections)
			if err != nil {
				return err
			}
			valid := mapset.NewThreadUnsafeSet[categoryID]()
			for _, c := range matched {
				valid.Add(categoryID{category: c.Category, id: c.ID})
			}
			for _, sel := range selections {
				if sel.CosmeticID != nil && !valid.Contains(categoryID{sel.Category, *sel.CosmeticID}) {
					return newSelectionError(sel.Category, *sel.CosmeticID, ReasonInvalidCosmetic)
				}
			}
		}

		user, err := tx.GetOrCreateUser(ctx, player)
		if err != nil {
			return err
		}

		if len(ids) > 0 {
			owned, err := tx.OwnedCosmeticIDs(ctx, user.ID, ids)
			if err != nil {
				return err
			}
			ownedSet := mapset.NewThreadUnsafeSet(owned...)
			for _, sel := range selections {
				if sel.CosmeticID != nil && !ownedSet.Contains(*sel.CosmeticID) {
					return newSelectionError(sel.Category, *sel.CosmeticID, ReasonNotOwned)
				}
			}
		}

		for _, sel := range selections {
			if err := tx.SetActive(ctx, user.ID, sel.Category, sel.CosmeticID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("active cosmetics updated", zap.Stringer("player", player), zap.Int("categories", len(selections)))
	return nil
}
