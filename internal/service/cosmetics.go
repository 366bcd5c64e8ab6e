package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"plus-api/internal/assets"
	"plus-api/internal/cache"
	"plus-api/internal/model"
	"plus-api/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCosmeticHash is reported for cosmetics without a resolvable asset.
const DefaultCosmeticHash = "37a6259cc0c1dae299a7866489dff0bd"

// DefaultInfoTTL bounds how long cosmetic metadata is cached.
const DefaultInfoTTL = time.Hour

// CosmeticInfo is the display projection of a cosmetic.
type CosmeticInfo struct {
	ID   int64          `json:"id"`
	Type model.Category `json:"type"`
	URL  *string        `json:"url,omitempty"`
	Hash string         `json:"hash"`
}

// PlayerCosmetics is everything a player owns plus their active selection
// per category. Categories without a selection map to nil.
type PlayerCosmetics struct {
	Cosmetics []CosmeticInfo            `json:"cosmetics"`
	Active    map[model.Category]*int64 `json:"active"`
}

// CosmeticService serves read projections over ownership data and the
// catalog maintenance operations.
type CosmeticService struct {
	repo   repository.Repository
	cache  cache.Cache
	store  assets.Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewCosmeticService creates the service. store may be nil when no asset
// host is configured.
func NewCosmeticService(repo repository.Repository, c cache.Cache, store assets.Store, ttl time.Duration, logger *zap.Logger) *CosmeticService {
	if ttl <= 0 {
		ttl = DefaultInfoTTL
	}
	return &CosmeticService{repo: repo, cache: c, store: store, ttl: ttl, logger: logger.Named("cosmetics")}
}

func infoKey(id int64) string {
	return "cosmetic:" + strconv.FormatInt(id, 10)
}

// resolve builds metadata from the catalog row and the asset host.
func (s *CosmeticService) resolve(ctx context.Context, c model.Cosmetic) (CosmeticInfo, error) {
	info := CosmeticInfo{ID: c.ID, Type: c.Category, Hash: DefaultCosmeticHash}
	if s.store == nil || c.Path == nil {
		return info, nil
	}

	url, err := s.store.URL(ctx, *c.Path)
	if err != nil {
		return info, err
	}
	info.URL = &url

	tag, err := s.store.ETag(ctx, *c.Path)
	if err != nil {
		return info, err
	}
	if h := assets.NormalizeETag(tag); h != "" {
		info.Hash = h
	}
	return info, nil
}

// Info returns cached metadata for c, resolving it on a miss. Cache and
// asset host failures degrade to uncached or default metadata.
func (s *CosmeticService) Info(ctx context.Context, c model.Cosmetic) CosmeticInfo {
	var resolved CosmeticInfo
	var resolveErr error

	data, err := s.cache.GetOrSet(ctx, infoKey(c.ID), s.ttl, func() ([]byte, error) {
		resolved, resolveErr = s.resolve(ctx, c)
		if resolveErr != nil {
			return nil, resolveErr
		}
		return json.Marshal(resolved)
	})
	if err != nil {
		if resolveErr != nil {
			s.logger.Warn("failed to resolve cosmetic asset", zap.Int64("cosmetic_id", c.ID), zap.Error(resolveErr))
		}
		return resolved
	}

	var info CosmeticInfo
	if err := json.Unmarshal(data, &info); err != nil || info.ID != c.ID {
		s.cache.Delete(ctx, infoKey(c.ID))
		info, _ = s.resolve(ctx, c)
	}
	return info
}

// Refresh recomputes and stores metadata for c.
func (s *CosmeticService) Refresh(ctx context.Context, c model.Cosmetic) error {
	info, err := s.resolve(ctx, c)
	if err != nil {
		return err
	}
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, infoKey(c.ID), data, s.ttl)
}

// List returns metadata for all cosmetics, optionally filtered by category.
func (s *CosmeticService) List(ctx context.Context, category *model.Category) ([]CosmeticInfo, error) {
	cosmetics, err := s.repo.ListCosmetics(ctx, category)
	if err != nil {
		return nil, err
	}

	infos := make([]CosmeticInfo, 0, len(cosmetics))
	for _, c := range cosmetics {
		infos = append(infos, s.Info(ctx, c))
	}
	return infos, nil
}

// ForPlayer returns a player's owned cosmetics and active selections.
func (s *CosmeticService) ForPlayer(ctx context.Context, player uuid.UUID) (*PlayerCosmetics, error) {
	owned, err := s.repo.OwnedCosmetics(ctx, player)
	if err != nil {
		return nil, err
	}

	result := &PlayerCosmetics{
		Cosmetics: make([]CosmeticInfo, 0, len(owned)),
		Active:    make(map[model.Category]*int64, len(model.Categories)),
	}
	for _, category := range model.Categories {
		result.Active[category] = nil
	}
	for _, o := range owned {
		result.Cosmetics = append(result.Cosmetics, s.Info(ctx, o.Cosmetic))
		if o.Active {
			id := o.Cosmetic.ID
			result.Active[o.Cosmetic.Category] = &id
		}
	}
	return result, nil
}

// ActiveForPlayers returns active cosmetic ids for each player that has any.
func (s *CosmeticService) ActiveForPlayers(ctx context.Context, players []uuid.UUID) (map[uuid.UUID][]int64, error) {
	return s.repo.ActiveCosmetics(ctx, players)
}

// Create registers a cosmetic and warms its metadata.
func (s *CosmeticService) Create(ctx context.Context, category model.Category, path *string) (*model.Cosmetic, error) {
	c, err := s.repo.CreateCosmetic(ctx, category, path)
	if err != nil {
		return nil, err
	}
	if err := s.Refresh(ctx, *c); err != nil {
		s.logger.Warn("failed to warm new cosmetic", zap.Int64("cosmetic_id", c.ID), zap.Error(err))
	}
	s.logger.Info("cosmetic created", zap.Int64("cosmetic_id", c.ID), zap.String("type", string(category)))
	return c, nil
}

// MapPackage links a billing package to a cosmetic.
func (s *CosmeticService) MapPackage(ctx context.Context, packageID, cosmeticID int64) error {
	return s.repo.MapPackage(ctx, packageID, cosmeticID)
}

// ClearCache drops all cached metadata.
func (s *CosmeticService) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

// Stats returns storage statistics.
func (s *CosmeticService) Stats(ctx context.Context) (map[string]interface{}, error) {
	return s.repo.GetStats(ctx)
}
