package service

import (
	"context"
	"testing"

	"plus-api/internal/model"
	"plus-api/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type selectionFixture struct {
	repo   *repository.SQLRepository
	svc    *SelectionService
	player uuid.UUID
	capeA  int64
	capeB  int64
	emote  int64
}

func newSelectionFixture(t *testing.T) *selectionFixture {
	t.Helper()
	repo := newTestRepository(t)
	ids := seedCosmetics(t, repo, model.CategoryCape, model.CategoryCape, model.CategoryEmote, model.CategoryCape)
	f := &selectionFixture{
		repo:   repo,
		svc:    NewSelectionService(repo, zap.NewNop()),
		player: uuid.New(),
		capeA:  ids[0],
		capeB:  ids[1],
		emote:  ids[2],
	}

	ents := NewEntitlementService(repo, &fakePackages{}, nil, zap.NewNop())
	_, err := ents.HandlePayment(context.Background(), payment("tbx-1", f.player, "cosmetic:1", "cosmetic:2", "cosmetic:3"))
	require.NoError(t, err)
	return f
}

func (f *selectionFixture) active(t *testing.T) []int64 {
	t.Helper()
	active, err := f.repo.ActiveCosmetics(context.Background(), []uuid.UUID{f.player})
	require.NoError(t, err)
	return active[f.player]
}

func TestSelectionService_SetOmitAndClear(t *testing.T) {
	f := newSelectionFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.UpdateActive(ctx, f.player, map[string]*int64{"cape": &f.capeA, "emote": &f.emote}))
	assert.ElementsMatch(t, []int64{f.capeA, f.emote}, f.active(t))

	// Setting another cape implicitly clears the first one.
	require.NoError(t, f.svc.UpdateActive(ctx, f.player, map[string]*int64{"cape": &f.capeB}))
	assert.ElementsMatch(t, []int64{f.capeB, f.emote}, f.active(t))

	// Omitting cape leaves it untouched.
	require.NoError(t, f.svc.UpdateActive(ctx, f.player, map[string]*int64{"emote": nil}))
	assert.Equal(t, []int64{f.capeB}, f.active(t))

	require.NoError(t, f.svc.UpdateActive(ctx, f.player, map[string]*int64{"cape": nil}))
	assert.Empty(t, f.active(t))

	require.NoError(t, f.svc.UpdateActive(ctx, f.player, map[string]*int64{}))
}

func TestSelectionService_WrongCategoryRejectsWholeUpdate(t *testing.T) {
	f := newSelectionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.UpdateActive(ctx, f.player, map[string]*int64{"cape": &f.capeA}))

	err := f.svc.UpdateActive(ctx, f.player, map[string]*int64{"cape": &f.emote, "emote": &f.emote})

	var selErr *SelectionError
	require.ErrorAs(t, err, &selErr)
	assert.Equal(t, "cape", selErr.Category)
	require.NotNil(t, selErr.ID)
	assert.Equal(t, f.emote, *selErr.ID)
	assert.Equal(t, ReasonInvalidCosmetic, selErr.Reason)
	assert.Contains(t, err.Error(), "cape")

	assert.Equal(t, []int64{f.capeA}, f.active(t), "emote must not be applied")
}

func TestSelectionService_NonexistentCosmetic(t *testing.T) {
	f := newSelectionFixture(t)

	err := f.svc.UpdateActive(context.Background(), f.player, map[string]*int64{"emote": int64Ptr(404)})

	var selErr *SelectionError
	require.ErrorAs(t, err, &selErr)
	assert.Equal(t, "emote", selErr.Category)
	assert.Equal(t, int64(404), *selErr.ID)
}

func TestSelectionService_RequiresOwnership(t *testing.T) {
	f := newSelectionFixture(t)
	unowned := int64(4)

	err := f.svc.UpdateActive(context.Background(), f.player, map[string]*int64{"cape": &unowned, "emote": &f.emote})

	var selErr *SelectionError
	require.ErrorAs(t, err, &selErr)
	assert.Equal(t, ReasonNotOwned, selErr.Reason)
	assert.Equal(t, unowned, *selErr.ID)
	assert.Empty(t, f.active(t))

	stranger := uuid.New()
	err = f.svc.UpdateActive(context.Background(), stranger, map[string]*int64{"cape": &f.capeA})
	require.ErrorAs(t, err, &selErr)
	assert.Equal(t, ReasonNotOwned, selErr.Reason)
}

func TestSelectionService_UnknownCategory(t *testing.T) {
	f := newSelectionFixture(t)

	err := f.svc.UpdateActive(context.Background(), f.player, map[string]*int64{"hat": &f.capeA, "cape": &f.capeA})

	var selErr *SelectionError
	require.ErrorAs(t, err, &selErr)
	assert.Equal(t, ReasonUnknownCategory, selErr.Reason)
	assert.Equal(t, "hat", selErr.Category)
	assert.Nil(t, selErr.ID)
	assert.Empty(t, f.active(t))

	err = f.svc.UpdateActive(context.Background(), f.player, map[string]*int64{"cape": nil, "CAPE": &f.capeA})
	require.ErrorAs(t, err, &selErr)
	assert.Equal(t, ReasonDuplicateCategory, selErr.Reason)
}
