package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"nusapos/internal/database/models"
	"nusapos/internal/services/promotion"
)

type PromotionHTTPHandler struct {
	catalog  *promotion.Catalog
	resolver *promotion.Resolver
	taxRate  decimal.Decimal
}

// NewPromotionHTTPHandler takes the tax rate (percent) used to extend the
// discount preview with the tax and total the register will charge.
func NewPromotionHTTPHandler(catalog *promotion.Catalog, resolver *promotion.Resolver, taxRate decimal.Decimal) *PromotionHTTPHandler {
	return &PromotionHTTPHandler{catalog: catalog, resolver: resolver, taxRate: taxRate}
}

// Request structs
type CreatePromotionRequest struct {
	Name          string          `json:"name" binding:"required"`
	Type          string          `json:"type" binding:"required"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	BuyQuantity   *int32          `json:"buy_quantity,omitempty"`
	GetQuantity   *int32          `json:"get_quantity,omitempty"`
	GetProductID  *int64          `json:"get_product_id,omitempty"`
	StartDate     time.Time       `json:"start_date" binding:"required"`
	EndDate       time.Time       `json:"end_date" binding:"required"`
	StartTime     *string         `json:"start_time,omitempty"`
	EndTime       *string         `json:"end_time,omitempty"`
	ProductIDs    []int64         `json:"product_ids,omitempty"`
	BranchIDs     []int64         `json:"branch_ids,omitempty"`
	MemberOnly    bool            `json:"member_only"`
	Priority      int32           `json:"priority"`
}

type CalculateDiscountRequest struct {
	ProductID    int64           `json:"product_id" binding:"required"`
	Quantity     int32           `json:"quantity" binding:"required,min=1"`
	UnitPrice    decimal.Decimal `json:"unit_price" binding:"required"`
	BranchID     int64           `json:"branch_id" binding:"required"`
	CustomerID   *int64          `json:"customer_id,omitempty"`
	CustomerTier string          `json:"customer_tier,omitempty"`
	// RFC3339; lets the register preview a price at a stated time, e.g.
	// inside a happy-hour band. Defaults to now.
	CurrentTime *string `json:"current_time,omitempty"`
}

type CalculateDiscountResponse struct {
	promotion.ResolveResult
	TaxAmount decimal.Decimal `json:"tax_amount"`
	Total     decimal.Decimal `json:"total"`
}

type CheckConflictsRequest struct {
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
	BranchID  *int64    `json:"branch_id,omitempty"`
	ProductID *int64    `json:"product_id,omitempty"`
}

func (h *PromotionHTTPHandler) CreatePromotion(c *gin.Context) {
	var req CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request body: "+err.Error()))
		return
	}

	promo := &models.Promotion{
		Name:          req.Name,
		Type:          models.PromotionType(req.Type),
		DiscountValue: req.DiscountValue,
		BuyQuantity:   req.BuyQuantity,
		GetQuantity:   req.GetQuantity,
		GetProductID:  req.GetProductID,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		ProductIDs:    req.ProductIDs,
		BranchIDs:     req.BranchIDs,
		MemberOnly:    req.MemberOnly,
		Priority:      req.Priority,
		IsActive:      true,
	}

	if err := h.catalog.Create(c.Request.Context(), promo); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Promotion created successfully", promo))
}

func (h *PromotionHTTPHandler) ListActivePromotions(c *gin.Context) {
	branchID, ok := queryInt64(c, "branch_id")
	if !ok {
		return
	}

	promos, err := h.catalog.ListActive(c.Request.Context(), branchID, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Active promotions retrieved successfully", promos, gin.H{"count": len(promos)}))
}

func (h *PromotionHTTPHandler) ValidatePromotion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.catalog.Validate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Promotion validated", result))
}

func (h *PromotionHTTPHandler) DeactivatePromotion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.catalog.Deactivate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Promotion deactivated", nil))
}

func (h *PromotionHTTPHandler) CheckConflicts(c *gin.Context) {
	var req CheckConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request body: "+err.Error()))
		return
	}

	conflicts, err := h.catalog.CheckConflicts(c.Request.Context(), req.StartDate, req.EndDate, req.BranchID, req.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Conflict check completed", conflicts, gin.H{"count": len(conflicts)}))
}

func (h *PromotionHTTPHandler) CalculateDiscount(c *gin.Context) {
	var req CalculateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request body: "+err.Error()))
		return
	}

	now := time.Now()
	if req.CurrentTime != nil && *req.CurrentTime != "" {
		parsed, err := time.Parse(time.RFC3339, *req.CurrentTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("current_time must be RFC3339"))
			return
		}
		now = parsed
	}

	result, err := h.resolver.Resolve(c.Request.Context(),
		promotion.CartLine{
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			UnitPrice: req.UnitPrice,
		},
		promotion.ResolveContext{
			BranchID:     req.BranchID,
			CustomerID:   req.CustomerID,
			CustomerTier: req.CustomerTier,
			Now:          now,
		})
	if err != nil {
		respondError(c, err)
		return
	}

	tax := result.FinalPrice.Mul(h.taxRate).Div(decimal.NewFromInt(100)).Round(2)
	c.JSON(http.StatusOK, successResponse("Discount calculated", CalculateDiscountResponse{
		ResolveResult: result,
		TaxAmount:     tax,
		Total:         result.FinalPrice.Add(tax),
	}))
}
