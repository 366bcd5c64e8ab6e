package service

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"plus-api/internal/model"
	"plus-api/internal/repository"
	"plus-api/internal/tebex"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CosmeticTagPrefix marks a product's custom data as naming a cosmetic,
// e.g. "cosmetic:3".
const CosmeticTagPrefix = "cosmetic:"

// PackageSource lists a player's active billing packages.
type PackageSource interface {
	ActivePackages(ctx context.Context, player uuid.UUID, packageID *int64) ([]tebex.ActivePackage, error)
}

// GrantPublisher receives committed grants.
type GrantPublisher interface {
	PublishGranted(ctx context.Context, events []model.GrantEvent) error
}

// EntitlementService turns purchases into ownership edges. Both the webhook
// path and the restore path rely on the (user, cosmetic) uniqueness of the
// store, so repeated or overlapping deliveries converge on one edge.
type EntitlementService struct {
	repo      repository.Repository
	packages  PackageSource
	publisher GrantPublisher
	logger    *zap.Logger

	publishTimeout time.Duration
	publishing     sync.WaitGroup
}

// NewEntitlementService creates the service. publisher may be nil.
func NewEntitlementService(repo repository.Repository, packages PackageSource, publisher GrantPublisher, logger *zap.Logger) *EntitlementService {
	return &EntitlementService{
		repo:           repo,
		packages:       packages,
		publisher:      publisher,
		logger:         logger.Named("entitlements"),
		publishTimeout: 10 * time.Second,
	}
}

// ParseCosmeticTag extracts the cosmetic id from product custom data.
func ParseCosmeticTag(custom string) (int64, bool) {
	s := strings.TrimSpace(custom)
	if len(s) <= len(CosmeticTagPrefix) || !strings.EqualFold(s[:len(CosmeticTagPrefix)], CosmeticTagPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(s[len(CosmeticTagPrefix):]), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// productPlayer returns the game account a product was bought for. The
// product's own username wins over the customer's, covering gifts.
func productPlayer(p tebex.Product, c tebex.Customer) (uuid.UUID, bool) {
	for _, raw := range []string{p.Username.ID, c.Username.ID} {
		if raw == "" {
			continue
		}
		if id, err := uuid.Parse(raw); err == nil {
			return id, true
		}
	}
	return uuid.Nil, false
}

type playerGrants struct {
	player    uuid.UUID
	cosmetics []int64
}

// HandlePayment grants every cosmetic named by the payment's products in a
// single transaction. Products that do not name a cosmetic, or whose player
// cannot be parsed, are skipped. It returns the newly granted edges.
func (s *EntitlementService) HandlePayment(ctx context.Context, payment tebex.Payment) ([]model.GrantEvent, error) {
	log := s.logger.With(
		zap.String("transaction_id", payment.TransactionID),
		zap.Stringer("status", payment.Status.ID),
	)

	var groups []*playerGrants
	byPlayer := make(map[uuid.UUID]*playerGrants)
	seen := mapset.NewThreadUnsafeSet[string]()
	allIDs := mapset.NewThreadUnsafeSet[int64]()

	for _, product := range payment.Products {
		cosmeticID, ok := ParseCosmeticTag(string(product.Custom))
		if !ok {
			log.Debug("skipping product without cosmetic tag", zap.Int64("product_id", product.ID))
			continue
		}
		player, ok := productPlayer(product, payment.Customer)
		if !ok {
			log.Debug("skipping product without valid player", zap.Int64("product_id", product.ID))
			continue
		}
		if !seen.Add(player.String() + ":" + strconv.FormatInt(cosmeticID, 10)) {
			continue
		}

		g, ok := byPlayer[player]
		if !ok {
			g = &playerGrants{player: player}
			byPlayer[player] = g
			groups = append(groups, g)
		}
		g.cosmetics = append(g.cosmetics, cosmeticID)
		allIDs.Add(cosmeticID)
	}

	if len(groups) == 0 {
		log.Info("payment contains no cosmetics")
		return nil, nil
	}

	var events []model.GrantEvent
	err := s.repo.InTx(ctx, func(tx repository.Tx) error {
		existing, err := tx.CosmeticsByID(ctx, allIDs.ToSlice())
		if err != nil {
			return err
		}
		known := mapset.NewThreadUnsafeSet[int64]()
		for _, c := range existing {
			known.Add(c.ID)
		}

		for _, g := range groups {
			grants := make([]model.Grant, 0, len(g.cosmetics))
			for _, id := range g.cosmetics {
				if !known.Contains(id) {
					log.Warn("payment references unknown cosmetic", zap.Int64("cosmetic_id", id))
					continue
				}
				grants = append(grants, model.Grant{CosmeticID: id, TransactionID: payment.TransactionID})
			}
			if len(grants) == 0 {
				continue
			}

			user, err := tx.GetOrCreateUser(ctx, g.player)
			if err != nil {
				return err
			}
			inserted, err := tx.GrantOwnership(ctx, user.ID, grants)
			if err != nil {
				return err
			}
			events = append(events, grantEvents(g.player, inserted, model.GrantSourceWebhook, payment.Status.ID.String())...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply payment %s: %w", payment.TransactionID, err)
	}

	log.Info("payment applied", zap.Int("players", len(groups)), zap.Int("granted", len(events)))
	s.publish(events)
	return events, nil
}

// Restore pulls the player's active packages from the billing provider and
// grants the cosmetics they map to. It returns the distinct transaction ids
// of grants that were newly created by this call.
func (s *EntitlementService) Restore(ctx context.Context, player uuid.UUID) ([]string, error) {
	log := s.logger.With(zap.Stringer("player", player))

	active, err := s.packages.ActivePackages(ctx, player, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBillingUnavailable, err)
	}

	// Later purchases of the same package overwrite earlier ones.
	txnByPackage := make(map[int64]string, len(active))
	for _, p := range active {
		txnByPackage[p.Package.ID] = p.TransactionID
	}
	if len(txnByPackage) == 0 {
		return []string{}, nil
	}

	packageIDs := make([]int64, 0, len(txnByPackage))
	for id := range txnByPackage {
		packageIDs = append(packageIDs, id)
	}
	slices.Sort(packageIDs)

	mappings, err := s.repo.PackageCosmetics(ctx, packageIDs)
	if err != nil {
		return nil, err
	}

	// Mappings arrive ordered by package id, so the lowest package
	// provides the provenance of a cosmetic shared between packages.
	var grants []model.Grant
	granted := mapset.NewThreadUnsafeSet[int64]()
	for _, m := range mappings {
		if !granted.Add(m.CosmeticID) {
			continue
		}
		grants = append(grants, model.Grant{CosmeticID: m.CosmeticID, TransactionID: txnByPackage[m.PackageID]})
	}
	if len(grants) == 0 {
		log.Debug("no cosmetics mapped to active packages", zap.Int("packages", len(packageIDs)))
		return []string{}, nil
	}

	var inserted []model.Grant
	err = s.repo.InTx(ctx, func(tx repository.Tx) error {
		user, err := tx.GetOrCreateUser(ctx, player)
		if err != nil {
			return err
		}
		inserted, err = tx.GrantOwnership(ctx, user.ID, grants)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to restore purchases for %s: %w", player, err)
	}

	restored := []string{}
	reported := mapset.NewThreadUnsafeSet[string]()
	for _, g := range inserted {
		if reported.Add(g.TransactionID) {
			restored = append(restored, g.TransactionID)
		}
	}

	log.Info("purchases restored", zap.Int("packages", len(packageIDs)), zap.Int("granted", len(inserted)))
	s.publish(grantEvents(player, inserted, model.GrantSourceRestore, ""))
	return restored, nil
}

func grantEvents(player uuid.UUID, grants []model.Grant, source, status string) []model.GrantEvent {
	now := time.Now().UTC()
	events := make([]model.GrantEvent, 0, len(grants))
	for _, g := range grants {
		events = append(events, model.GrantEvent{
			PlayerUUID:    player.String(),
			CosmeticID:    g.CosmeticID,
			TransactionID: g.TransactionID,
			Source:        source,
			PaymentStatus: status,
			GrantedAt:     now,
		})
	}
	return events
}

// publish hands committed grants to the publisher in the background. The
// edges are already durable, so failures are only logged.
func (s *EntitlementService) publish(events []model.GrantEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	s.publishing.Add(1)
	go func() {
		defer s.publishing.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.publishTimeout)
		defer cancel()
		if err := s.publisher.PublishGranted(ctx, events); err != nil {
			s.logger.Warn("failed to publish grant events", zap.Int("count", len(events)), zap.Error(err))
		}
	}()
}

// Wait blocks until every in-flight grant notification has finished. Call
// it after the HTTP server has stopped and before closing the publisher.
func (s *EntitlementService) Wait() {
	s.publishing.Wait()
}
