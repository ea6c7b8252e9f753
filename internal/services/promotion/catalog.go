package promotion

import (
	"context"
	"fmt"
	"log"
	"time"

	"nusapos/internal/cache"
	"nusapos/internal/database/models"
	"nusapos/internal/store"
)

const (
	promoCachePrefix = "promo:active:"
	promoCacheTTL    = 5 * time.Minute
)

// Validation reason codes returned by Validate.
const (
	ReasonNotFound   = "NOT_FOUND"
	ReasonInactive   = "INACTIVE"
	ReasonNotStarted = "NOT_STARTED"
	ReasonExpired    = "EXPIRED"
)

type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Catalog serves promotion definitions: the active set per branch (cached),
// single-promotion validation and window conflict checks.
type Catalog struct {
	repo  store.Repository
	cache cache.PromotionCache
}

func NewCatalog(repo store.Repository, promoCache cache.PromotionCache) *Catalog {
	if promoCache == nil {
		promoCache = cache.NoopPromotionCache{}
	}
	return &Catalog{repo: repo, cache: promoCache}
}

// ListActive returns promotions that are active at now and whose branch scope
// admits branchID, ordered by priority descending.
func (c *Catalog) ListActive(ctx context.Context, branchID int64, now time.Time) ([]models.Promotion, error) {
	key := fmt.Sprintf("%s%d", promoCachePrefix, branchID)

	if cached, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		return filterCurrent(cached, now), nil
	} else if err != nil {
		log.Printf("[promotion] WARN: cache read failed for %s: %v", key, err)
	}

	promos, err := c.repo.ListActivePromotions(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list active promotions: %w", err)
	}

	scoped := make([]models.Promotion, 0, len(promos))
	for _, p := range promos {
		if len(p.BranchIDs) > 0 && !p.BranchIDs.Contains(branchID) {
			continue
		}
		scoped = append(scoped, p)
	}

	if err := c.cache.Set(ctx, key, scoped, promoCacheTTL); err != nil {
		log.Printf("[promotion] WARN: cache write failed for %s: %v", key, err)
	}

	return scoped, nil
}

// filterCurrent re-applies the date window to cached entries so a promotion
// expiring inside the cache TTL is never served stale.
func filterCurrent(promos []models.Promotion, now time.Time) []models.Promotion {
	out := make([]models.Promotion, 0, len(promos))
	for _, p := range promos {
		if p.IsActive && !p.StartDate.After(now) && !p.EndDate.Before(now) {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) Validate(ctx context.Context, promotionID int64) (ValidationResult, error) {
	promo, err := c.repo.GetPromotion(ctx, promotionID)
	if err != nil {
		if err == store.ErrNotFound {
			return ValidationResult{Valid: false, Reason: ReasonNotFound}, nil
		}
		return ValidationResult{}, err
	}

	now := time.Now()
	switch {
	case !promo.IsActive:
		return ValidationResult{Valid: false, Reason: ReasonInactive}, nil
	case now.Before(promo.StartDate):
		return ValidationResult{Valid: false, Reason: ReasonNotStarted}, nil
	case now.After(promo.EndDate):
		return ValidationResult{Valid: false, Reason: ReasonExpired}, nil
	}

	return ValidationResult{Valid: true}, nil
}

// CheckConflicts returns promotions whose validity window overlaps the
// candidate window. Branch and product scoping is advisory: overlap detection
// ignores it, but out-of-scope promotions are marked so callers can judge.
type Conflict struct {
	Promotion models.Promotion `json:"promotion"`
	InScope   bool             `json:"in_scope"`
}

func (c *Catalog) CheckConflicts(ctx context.Context, start, end time.Time, branchID, productID *int64) ([]Conflict, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end before start", store.ErrInvalidInput)
	}

	promos, err := c.repo.ListPromotionsOverlapping(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list overlapping promotions: %w", err)
	}

	conflicts := make([]Conflict, 0, len(promos))
	for _, p := range promos {
		inScope := true
		if branchID != nil && len(p.BranchIDs) > 0 && !p.BranchIDs.Contains(*branchID) {
			inScope = false
		}
		if productID != nil && len(p.ProductIDs) > 0 && !p.ProductIDs.Contains(*productID) {
			inScope = false
		}
		conflicts = append(conflicts, Conflict{Promotion: p, InScope: inScope})
	}
	return conflicts, nil
}

func (c *Catalog) Create(ctx context.Context, promo *models.Promotion) error {
	if err := validatePromotion(promo); err != nil {
		return err
	}
	if err := c.repo.CreatePromotion(ctx, promo); err != nil {
		return fmt.Errorf("create promotion: %w", err)
	}
	c.invalidate(ctx)
	return nil
}

func (c *Catalog) Update(ctx context.Context, promo *models.Promotion) error {
	if err := validatePromotion(promo); err != nil {
		return err
	}
	if err := c.repo.UpdatePromotion(ctx, promo); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *Catalog) Deactivate(ctx context.Context, promotionID int64) error {
	promo, err := c.repo.GetPromotion(ctx, promotionID)
	if err != nil {
		return err
	}
	promo.IsActive = false
	if err := c.repo.UpdatePromotion(ctx, promo); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *Catalog) invalidate(ctx context.Context) {
	if err := c.cache.Invalidate(ctx, promoCachePrefix+"*"); err != nil {
		log.Printf("[promotion] WARN: cache invalidation failed: %v", err)
	}
}

func validatePromotion(promo *models.Promotion) error {
	if promo.Name == "" {
		return fmt.Errorf("%w: name required", store.ErrInvalidInput)
	}

	switch promo.Type {
	case models.PromotionPercentage, models.PromotionFixed, models.PromotionMemberOnly, models.PromotionHappyHour:
	case models.PromotionBuyXGetY:
		if promo.BuyQuantity == nil || *promo.BuyQuantity <= 0 {
			return fmt.Errorf("%w: buy_x_get_y requires buy_quantity > 0", store.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown promotion type %q", store.ErrInvalidInput, promo.Type)
	}

	if promo.DiscountValue.IsNegative() || promo.DiscountValue.IsZero() {
		return fmt.Errorf("%w: discount_value must be positive", store.ErrInvalidInput)
	}
	if promo.EndDate.Before(promo.StartDate) {
		return fmt.Errorf("%w: end_date before start_date", store.ErrInvalidInput)
	}

	var bandStart, bandEnd *time.Time
	for i, t := range []*string{promo.StartTime, promo.EndTime} {
		if t == nil {
			continue
		}
		parsed, err := time.Parse("15:04", *t)
		if err != nil {
			return fmt.Errorf("%w: time band must be HH:MM", store.ErrInvalidInput)
		}
		if i == 0 {
			bandStart = &parsed
		} else {
			bandEnd = &parsed
		}
	}
	// Bands do not wrap midnight; an inverted band would never match.
	if bandStart != nil && bandEnd != nil && !bandStart.Before(*bandEnd) {
		return fmt.Errorf("%w: time band start must be before end", store.ErrInvalidInput)
	}

	return nil
}
