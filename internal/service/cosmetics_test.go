package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"plus-api/internal/cache"
	"plus-api/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	etag  string
	err   error
	heads atomic.Int32
}

func (f *fakeStore) URL(ctx context.Context, path string) (string, error) {
	return "https://cdn.example.com/" + path, nil
}

func (f *fakeStore) ETag(ctx context.Context, path string) (string, error) {
	f.heads.Add(1)
	return f.etag, f.err
}

func newCosmeticFixture(t *testing.T, store *fakeStore) (*CosmeticService, *cache.MemoryCache) {
	t.Helper()
	repo := newTestRepository(t)
	mem := cache.NewMemoryCache(time.Hour)
	t.Cleanup(func() { mem.Close() })
	if store == nil {
		return NewCosmeticService(repo, mem, nil, time.Hour, zap.NewNop()), mem
	}
	return NewCosmeticService(repo, mem, store, time.Hour, zap.NewNop()), mem
}

func TestCosmeticService_InfoUsesCache(t *testing.T) {
	store := &fakeStore{etag: `"d41d8cd98f00b204e9800998ecf8427e"`}
	svc, _ := newCosmeticFixture(t, store)
	ctx := context.Background()

	path := "capes/founder.png"
	c, err := svc.Create(ctx, model.CategoryCape, &path)
	require.NoError(t, err)
	assert.EqualValues(t, 1, store.heads.Load(), "created cosmetics are warmed")

	for i := 0; i < 3; i++ {
		info := svc.Info(ctx, *c)
		assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", info.Hash)
		require.NotNil(t, info.URL)
		assert.Equal(t, "https://cdn.example.com/capes/founder.png", *info.URL)
		assert.Equal(t, model.CategoryCape, info.Type)
	}
	assert.EqualValues(t, 1, store.heads.Load())
}

func TestCosmeticService_DefaultHash(t *testing.T) {
	svc, _ := newCosmeticFixture(t, nil)
	ctx := context.Background()

	path := "capes/x.png"
	c, err := svc.Create(ctx, model.CategoryCape, &path)
	require.NoError(t, err)

	info := svc.Info(ctx, *c)
	assert.Equal(t, DefaultCosmeticHash, info.Hash)
	assert.Nil(t, info.URL)
}

func TestCosmeticService_AssetFailureIsNotCached(t *testing.T) {
	store := &fakeStore{err: errors.New("asset host down")}
	svc, mem := newCosmeticFixture(t, store)
	ctx := context.Background()

	path := "capes/x.png"
	c, err := svc.Create(ctx, model.CategoryCape, &path)
	require.NoError(t, err)

	info := svc.Info(ctx, *c)
	assert.Equal(t, DefaultCosmeticHash, info.Hash)
	assert.Equal(t, 0, mem.Len())

	store.err = nil
	store.etag = `W/"abc"`
	assert.Equal(t, "abc", svc.Info(ctx, *c).Hash)
	assert.Equal(t, 1, mem.Len())
}

func TestCosmeticService_ForPlayer(t *testing.T) {
	svc, _ := newCosmeticFixture(t, nil)
	ctx := context.Background()
	player := uuid.New()

	ids := seedCosmetics(t, svc.repo, model.CategoryCape, model.CategoryEmote)
	ents := NewEntitlementService(svc.repo, &fakePackages{}, nil, zap.NewNop())
	_, err := ents.HandlePayment(ctx, payment("tbx-1", player, "cosmetic:1", "cosmetic:2"))
	require.NoError(t, err)
	require.NoError(t, NewSelectionService(svc.repo, zap.NewNop()).
		UpdateActive(ctx, player, map[string]*int64{"cape": &ids[0]}))

	pc, err := svc.ForPlayer(ctx, player)
	require.NoError(t, err)
	require.Len(t, pc.Cosmetics, 2)
	require.NotNil(t, pc.Active[model.CategoryCape])
	assert.Equal(t, ids[0], *pc.Active[model.CategoryCape])
	assert.Contains(t, pc.Active, model.CategoryEmote)
	assert.Nil(t, pc.Active[model.CategoryEmote])

	empty, err := svc.ForPlayer(ctx, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, empty.Cosmetics)
	assert.Empty(t, empty.Cosmetics)

	active, err := svc.ActiveForPlayers(ctx, []uuid.UUID{player})
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[0]}, active[player])
}

func TestCacheWarmer_RunNow(t *testing.T) {
	store := &fakeStore{etag: `"abc"`}
	svc, mem := newCosmeticFixture(t, store)
	ctx := context.Background()

	for _, p := range []string{"a.png", "b.png"} {
		path := p
		_, err := svc.repo.CreateCosmetic(ctx, model.CategoryCape, &path)
		require.NoError(t, err)
	}
	seedCosmetics(t, svc.repo, model.CategoryEmote)

	w := NewCacheWarmer(svc, WarmerConfig{Interval: time.Hour}, zap.NewNop())
	assert.Equal(t, 3, w.RunNow())
	assert.Equal(t, 3, mem.Len())

	w.Start()
	w.Stop()
	w.Stop()
}
