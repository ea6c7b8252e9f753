package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"nusapos/internal/database/models"
	"nusapos/internal/services/pos"
	"nusapos/internal/store"
)

type POSHTTPHandler struct {
	svc *pos.Service
}

func NewPOSHTTPHandler(svc *pos.Service) *POSHTTPHandler {
	return &POSHTTPHandler{svc: svc}
}

// Request structs
type CreateTransactionRequest struct {
	BranchID       int64                        `json:"branch_id" binding:"required"`
	CashierID      int64                        `json:"cashier_id" binding:"required"`
	CustomerID     *int64                       `json:"customer_id,omitempty"`
	Subtotal       decimal.Decimal              `json:"subtotal" binding:"required"`
	DiscountAmount decimal.Decimal              `json:"discount_amount"`
	TaxAmount      decimal.Decimal              `json:"tax_amount"`
	Total          decimal.Decimal              `json:"total" binding:"required"`
	PaymentMethod  string                       `json:"payment_method" binding:"required"`
	AmountPaid     decimal.Decimal              `json:"amount_paid"`
	ChangeAmount   decimal.Decimal              `json:"change_amount"`
	Status         string                       `json:"status"`
	PointsEarned   int32                        `json:"points_earned"`
	Items          []CreateTransactionItemInput `json:"items" binding:"required,min=1"`
}

type CreateTransactionItemInput struct {
	ProductID           int64           `json:"product_id" binding:"required"`
	Quantity            int32           `json:"quantity" binding:"required,min=1"`
	UnitPrice           decimal.Decimal `json:"unit_price" binding:"required"`
	DiscountAmount      decimal.Decimal `json:"discount_amount"`
	TaxAmount           decimal.Decimal `json:"tax_amount"`
	Subtotal            decimal.Decimal `json:"subtotal" binding:"required"`
	AppliedPromotionIDs []int64         `json:"applied_promotion_ids,omitempty"`
}

type HoldTransactionRequest struct {
	HeldBy int64   `json:"held_by" binding:"required"`
	Notes  *string `json:"notes,omitempty"`
}

type CreateRefundRequest struct {
	Reason       string          `json:"reason" binding:"required"`
	RefundAmount decimal.Decimal `json:"refund_amount" binding:"required"`
	ProcessedBy  int64           `json:"processed_by" binding:"required"`
}

type ListTransactionsQuery struct {
	BranchID   *int64  `form:"branch_id,omitempty"`
	CashierID  *int64  `form:"cashier_id,omitempty"`
	CustomerID *int64  `form:"customer_id,omitempty"`
	Status     *string `form:"status,omitempty"`
	Limit      int     `form:"limit,default=50"`
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid "+name))
		return 0, false
	}
	return id, true
}

func queryInt64(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid "+name))
		return 0, false
	}
	return id, true
}

// --- Product Handlers ---

func (h *POSHTTPHandler) SearchProducts(c *gin.Context) {
	query := c.Query("search")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	products, err := h.svc.SearchProducts(c.Request.Context(), query, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Products retrieved successfully", products))
}

func (h *POSHTTPHandler) GetProductByBarcode(c *gin.Context) {
	product, err := h.svc.GetProductByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Product retrieved successfully", product))
}

func (h *POSHTTPHandler) GetProductBySKU(c *gin.Context) {
	product, err := h.svc.GetProductBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Product retrieved successfully", product))
}

// --- Transaction Handlers ---

func (h *POSHTTPHandler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request body: "+err.Error()))
		return
	}

	status := models.TransactionStatus(req.Status)
	if req.Status == "" {
		status = models.TransactionCompleted
	}

	items := make([]pos.TransactionItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = pos.TransactionItemInput{
			ProductID:           item.ProductID,
			Quantity:            item.Quantity,
			UnitPrice:           item.UnitPrice,
			DiscountAmount:      item.DiscountAmount,
			TaxAmount:           item.TaxAmount,
			Subtotal:            item.Subtotal,
			AppliedPromotionIDs: item.AppliedPromotionIDs,
		}
	}

	txn, err := h.svc.CreateTransaction(c.Request.Context(), pos.CreateTransactionInput{
		BranchID:       req.BranchID,
		CashierID:      req.CashierID,
		CustomerID:     req.CustomerID,
		Subtotal:       req.Subtotal,
		DiscountAmount: req.DiscountAmount,
		TaxAmount:      req.TaxAmount,
		Total:          req.Total,
		PaymentMethod:  models.PaymentMethod(req.PaymentMethod),
		AmountPaid:     req.AmountPaid,
		ChangeAmount:   req.ChangeAmount,
		Status:         status,
		PointsEarned:   req.PointsEarned,
		Items:          items,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Transaction created successfully", txn))
}

func (h *POSHTTPHandler) GetTransaction(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	txn, err := h.svc.GetTransaction(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Transaction retrieved successfully", txn))
}

func (h *POSHTTPHandler) AddTransactionItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req CreateTransactionItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request body: "+err.Error()))
		return
	}

	txn, err := h.svc.AddTransactionItem(c.Request.Context(), id, pos.TransactionItemInput{
		ProductID:           req.ProductID,
		Quantity:            req.Quantity,
		UnitPrice:           req.UnitPrice,
		DiscountAmount:      req.DiscountAmount,
		TaxAmount:           req.TaxAmount,
		Subtotal:            req.Subtotal,
		AppliedPromotionIDs: req.AppliedPromotionIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Transaction item added", txn))
}

func (h *POSHTTPHandler) GetTransactionItems(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	items, err := h.svc.GetTransactionItems(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Transaction items retrieved successfully", items))
}

func (h *POSHTTPHandler) ListTransactions(c *gin.Context) {
	var query ListTransactionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	filter := store.TransactionFilter{
		BranchID:   query.BranchID,
		CashierID:  query.CashierID,
		CustomerID: query.CustomerID,
		Limit:      query.Limit,
	}
	if query.Status != nil {
		status := models.TransactionStatus(*query.Status)
		filter.Status = &status
	}

	txns, err := h.svc.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Transactions retrieved successfully", txns, gin.H{"count": len(txns)}))
}

// --- Hold Handlers ---

func (h *POSHTTPHandler) HoldTransaction(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req HoldTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request body: "+err.Error()))
		return
	}

	hold, err := h.svc.Hold(c.Request.Context(), id, req.HeldBy, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Transaction held successfully", hold))
}

func (h *POSHTTPHandler) ResumeTransaction(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	hold, err := h.svc.Resume(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Transaction resumed successfully", hold))
}

func (h *POSHTTPHandler) DiscardHeldTransaction(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Discard(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Held transaction discarded", nil))
}

func (h *POSHTTPHandler) ListHeldTransactions(c *gin.Context) {
	var branchID int64
	if raw := c.Query("branch_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid branch_id"))
			return
		}
		branchID = parsed
	}

	holds, err := h.svc.ListHeld(c.Request.Context(), branchID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Held transactions retrieved successfully", holds, gin.H{"count": len(holds)}))
}

// --- Refund Handlers ---

func (h *POSHTTPHandler) CreateRefund(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request body: "+err.Error()))
		return
	}

	refund, err := h.svc.CreateRefund(c.Request.Context(), id, req.Reason, req.RefundAmount, req.ProcessedBy)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Refund created successfully", refund))
}

func (h *POSHTTPHandler) ApproveRefund(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	refund, err := h.svc.ApproveRefund(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Refund approved", refund))
}

func (h *POSHTTPHandler) RejectRefund(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	refund, err := h.svc.RejectRefund(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Refund rejected", refund))
}

func (h *POSHTTPHandler) CompleteRefund(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	refund, err := h.svc.CompleteRefund(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Refund completed", refund))
}

func (h *POSHTTPHandler) ListRefundsByTransaction(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	refunds, err := h.svc.GetRefundsByTransaction(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Refunds retrieved successfully", refunds))
}
