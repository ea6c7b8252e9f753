package promotion

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"nusapos/internal/database/models"
	"nusapos/internal/store"
)

// Default happy-hour band, used when a happy_hour promotion carries no time
// band of its own. Matches the window the legacy engine hard-coded.
const (
	defaultHappyHourStart = 11 * 60
	defaultHappyHourEnd   = 14 * 60
)

var oneHundred = decimal.NewFromInt(100)

type CartLine struct {
	ProductID int64           `json:"product_id"`
	Quantity  int32           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type ResolveContext struct {
	BranchID     int64
	CustomerID   *int64
	CustomerTier string
	Now          time.Time
}

type ResolveResult struct {
	DiscountAmount   decimal.Decimal   `json:"discount_amount"`
	FinalPrice       decimal.Decimal   `json:"final_price"`
	AppliedPromotion *models.Promotion `json:"applied_promotion,omitempty"`
}

// Resolver picks at most one promotion per cart line: the highest-priority
// eligible promotion that yields a positive discount. No stacking. "Nothing
// applied" is a normal zero-discount result, not an error.
type Resolver struct {
	catalog *Catalog
}

func NewResolver(catalog *Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

func (r *Resolver) Resolve(ctx context.Context, line CartLine, rctx ResolveContext) (ResolveResult, error) {
	if line.Quantity <= 0 {
		return ResolveResult{}, fmt.Errorf("%w: quantity must be positive", store.ErrInvalidInput)
	}
	if !line.UnitPrice.IsPositive() {
		return ResolveResult{}, fmt.Errorf("%w: unit_price must be positive", store.ErrInvalidInput)
	}

	subtotal := line.UnitPrice.Mul(decimal.NewFromInt32(line.Quantity)).Round(2)

	promos, err := r.catalog.ListActive(ctx, rctx.BranchID, rctx.Now)
	if err != nil {
		return ResolveResult{}, err
	}

	for i := range promos {
		promo := promos[i]
		if !promo.AppliesTo(rctx.BranchID, line.ProductID) {
			continue
		}
		if !eligible(promo, line, rctx) {
			continue
		}

		discount := computeDiscount(promo, subtotal)
		if !discount.IsPositive() {
			continue
		}

		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}

		return ResolveResult{
			DiscountAmount:   discount,
			FinalPrice:       subtotal.Sub(discount),
			AppliedPromotion: &promo,
		}, nil
	}

	return ResolveResult{
		DiscountAmount: decimal.Zero,
		FinalPrice:     subtotal,
	}, nil
}

func eligible(promo models.Promotion, line CartLine, rctx ResolveContext) bool {
	switch promo.Type {
	case models.PromotionMemberOnly:
		return rctx.CustomerID != nil
	case models.PromotionHappyHour:
		return inHappyHour(promo, rctx.Now)
	case models.PromotionBuyXGetY:
		return promo.BuyQuantity != nil && line.Quantity >= *promo.BuyQuantity
	case models.PromotionPercentage, models.PromotionFixed:
		return true
	default:
		return false
	}
}

// inHappyHour gates on the promotion's own HH:MM band, falling back to the
// default band for rows that carry none. The end of the band is exclusive.
func inHappyHour(promo models.Promotion, now time.Time) bool {
	start, end := defaultHappyHourStart, defaultHappyHourEnd
	if promo.StartTime != nil && promo.EndTime != nil {
		s, errS := time.Parse("15:04", *promo.StartTime)
		e, errE := time.Parse("15:04", *promo.EndTime)
		if errS == nil && errE == nil {
			start = s.Hour()*60 + s.Minute()
			end = e.Hour()*60 + e.Minute()
		}
	}

	minute := now.Hour()*60 + now.Minute()
	return minute >= start && minute < end
}

func computeDiscount(promo models.Promotion, subtotal decimal.Decimal) decimal.Decimal {
	switch promo.Type {
	case models.PromotionFixed:
		// Flat amount per line, not scaled by quantity.
		return promo.DiscountValue.Round(2)
	default:
		return subtotal.Mul(promo.DiscountValue).Div(oneHundred).Round(2)
	}
}
