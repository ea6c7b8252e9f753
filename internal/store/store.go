package store

import (
	"context"
	"errors"
	"time"

	"nusapos/internal/database/models"
)

var (
	ErrNotFound                   = errors.New("not found")
	ErrDuplicateTransactionNumber = errors.New("duplicate transaction number")
	ErrInsufficientStock          = errors.New("insufficient stock")
	ErrStateConflict              = errors.New("state conflict")
	ErrInvalidInput               = errors.New("invalid input")
	ErrHoldExpired                = errors.New("held transaction expired")
	ErrRefundExceedsTotal         = errors.New("refund exceeds transaction total")
)

// TransactionFilter narrows the transaction projections. Exactly the fields
// that are set are applied; results are always newest-first.
type TransactionFilter struct {
	BranchID   *int64
	CashierID  *int64
	CustomerID *int64
	Status     *models.TransactionStatus
	Limit      int
}

// Repository is the single source of truth for the POS engine. The postgres
// implementation backs production; the memory implementation backs tests.
type Repository interface {
	// Products
	SearchProducts(ctx context.Context, query string, limit int) ([]models.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*models.Product, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)

	// Promotions
	CreatePromotion(ctx context.Context, promo *models.Promotion) error
	UpdatePromotion(ctx context.Context, promo *models.Promotion) error
	GetPromotion(ctx context.Context, id int64) (*models.Promotion, error)
	ListActivePromotions(ctx context.Context, now time.Time) ([]models.Promotion, error)
	ListPromotionsOverlapping(ctx context.Context, start, end time.Time) ([]models.Promotion, error)

	// Transactions. CreateTransaction persists the header, its items and,
	// when decrementStock is set, the branch stock decrement plus one stock
	// movement per line, all inside a single storage transaction.
	CreateTransaction(ctx context.Context, txn *models.Transaction, decrementStock bool) error
	// AddTransactionItem appends the line and writes the caller-recomputed
	// header totals in one storage transaction.
	AddTransactionItem(ctx context.Context, txn *models.Transaction, item *models.TransactionItem) error
	GetTransaction(ctx context.Context, id int64) (*models.Transaction, error)
	GetTransactionItems(ctx context.Context, transactionID int64) ([]models.TransactionItem, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id int64, status models.TransactionStatus) error

	// Held transactions
	CreateHold(ctx context.Context, hold *models.HeldTransaction) error
	GetHold(ctx context.Context, id int64) (*models.HeldTransaction, error)
	GetActiveHoldByTransaction(ctx context.Context, transactionID int64) (*models.HeldTransaction, error)
	UpdateHoldStatus(ctx context.Context, id int64, status models.HoldStatus) error
	ListActiveHolds(ctx context.Context, branchID int64) ([]models.HeldTransaction, error)

	// Refunds
	CreateRefund(ctx context.Context, refund *models.Refund) error
	GetRefund(ctx context.Context, id int64) (*models.Refund, error)
	UpdateRefundStatus(ctx context.Context, id int64, status models.RefundStatus) error
	ListRefundsByTransaction(ctx context.Context, transactionID int64) ([]models.Refund, error)
}
