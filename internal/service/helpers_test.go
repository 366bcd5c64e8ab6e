package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"plus-api/internal/model"
	"plus-api/internal/repository"
	"plus-api/internal/tebex"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRepository(t *testing.T) *repository.SQLRepository {
	t.Helper()
	repo, err := repository.NewSQLiteRepository(context.Background(), ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedCosmetics(t *testing.T, repo repository.Repository, categories ...model.Category) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(categories))
	for _, category := range categories {
		c, err := repo.CreateCosmetic(context.Background(), category, nil)
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	return ids
}

type fakePackages struct {
	packages map[uuid.UUID][]tebex.ActivePackage
	err      error
}

func (f *fakePackages) ActivePackages(ctx context.Context, player uuid.UUID, packageID *int64) ([]tebex.ActivePackage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.packages[player], nil
}

type recordingPublisher struct {
	delay  time.Duration
	mu     sync.Mutex
	events []model.GrantEvent
}

func (r *recordingPublisher) PublishGranted(ctx context.Context, events []model.GrantEvent) error {
	time.Sleep(r.delay)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func ownedIDs(t *testing.T, repo repository.Repository, player uuid.UUID) []int64 {
	t.Helper()
	owned, err := repo.OwnedCosmetics(context.Background(), player)
	require.NoError(t, err)
	ids := make([]int64, 0, len(owned))
	for _, o := range owned {
		ids = append(ids, o.Cosmetic.ID)
	}
	return ids
}

func payment(txn string, player uuid.UUID, customs ...string) tebex.Payment {
	p := tebex.Payment{
		TransactionID: txn,
		Status:        tebex.PaymentStatus{ID: tebex.StatusComplete, Description: "Complete"},
		Customer:      tebex.Customer{Username: tebex.Username{ID: player.String(), Username: "Steve"}},
	}
	for i, custom := range customs {
		p.Products = append(p.Products, tebex.Product{
			ID:       int64(1000 + i),
			Quantity: 1,
			Custom:   tebex.CustomData(custom),
		})
	}
	return p
}

func int64Ptr(v int64) *int64 { return &v }
