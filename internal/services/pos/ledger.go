package pos

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"nusapos/internal/database/models"
	"nusapos/internal/store"
)

const (
	numberAttempts = 3
	defaultHoldTTL = 4 * time.Hour
)

// centTolerance absorbs 2-decimal rounding drift in caller-computed totals.
var centTolerance = decimal.New(1, -2)

// Service is the transaction ledger plus the hold/resume store and the refund
// processor operating on ledger entries.
type Service struct {
	repo      store.Repository
	publisher Publisher
	loyalty   LoyaltyAccruer
	holdTTL   time.Duration
}

func NewService(repo store.Repository, publisher Publisher, loyalty LoyaltyAccruer, holdTTL time.Duration) *Service {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if loyalty == nil {
		loyalty = eventLoyalty{publisher: publisher}
	}
	if holdTTL <= 0 {
		holdTTL = defaultHoldTTL
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		loyalty:   loyalty,
		holdTTL:   holdTTL,
	}
}

type TransactionItemInput struct {
	ProductID           int64           `json:"product_id"`
	Quantity            int32           `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	DiscountAmount      decimal.Decimal `json:"discount_amount"`
	TaxAmount           decimal.Decimal `json:"tax_amount"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	AppliedPromotionIDs []int64         `json:"applied_promotion_ids"`
}

type CreateTransactionInput struct {
	BranchID       int64                    `json:"branch_id"`
	CashierID      int64                    `json:"cashier_id"`
	CustomerID     *int64                   `json:"customer_id,omitempty"`
	Subtotal       decimal.Decimal          `json:"subtotal"`
	DiscountAmount decimal.Decimal          `json:"discount_amount"`
	TaxAmount      decimal.Decimal          `json:"tax_amount"`
	Total          decimal.Decimal          `json:"total"`
	PaymentMethod  models.PaymentMethod     `json:"payment_method"`
	AmountPaid     decimal.Decimal          `json:"amount_paid"`
	ChangeAmount   decimal.Decimal          `json:"change_amount"`
	Status         models.TransactionStatus `json:"status"`
	PointsEarned   int32                    `json:"points_earned"`
	Items          []TransactionItemInput   `json:"items"`
}

func within(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(centTolerance)
}

func validPaymentMethod(m models.PaymentMethod) bool {
	switch m {
	case models.PaymentCash, models.PaymentCard, models.PaymentEwallet, models.PaymentMixed:
		return true
	}
	return false
}

func validateCreateTransaction(input CreateTransactionInput) error {
	if input.BranchID <= 0 || input.CashierID <= 0 {
		return fmt.Errorf("%w: branch_id and cashier_id required", store.ErrInvalidInput)
	}
	if len(input.Items) == 0 {
		return fmt.Errorf("%w: transaction must have at least one item", store.ErrInvalidInput)
	}
	if !validPaymentMethod(input.PaymentMethod) {
		return fmt.Errorf("%w: unknown payment method %q", store.ErrInvalidInput, input.PaymentMethod)
	}
	if input.Status != models.TransactionCompleted && input.Status != models.TransactionHeld {
		return fmt.Errorf("%w: status must be completed or held", store.ErrInvalidInput)
	}

	for i, item := range input.Items {
		if err := validateItem(i, item); err != nil {
			return err
		}
	}

	wantTotal := input.Subtotal.Sub(input.DiscountAmount).Add(input.TaxAmount)
	if !within(input.Total, wantTotal) {
		return fmt.Errorf("%w: total does not match subtotal - discount + tax", store.ErrInvalidInput)
	}

	if input.Status == models.TransactionCompleted {
		wantChange := input.AmountPaid.Sub(input.Total)
		if !within(input.ChangeAmount, wantChange) {
			return fmt.Errorf("%w: change_amount does not match amount_paid - total", store.ErrInvalidInput)
		}
		if input.ChangeAmount.LessThan(centTolerance.Neg()) {
			return fmt.Errorf("%w: change_amount must not be negative for completed sales", store.ErrInvalidInput)
		}
	}

	return nil
}

func validateItem(i int, item TransactionItemInput) error {
	if item.Quantity <= 0 {
		return fmt.Errorf("%w: item %d quantity must be positive", store.ErrInvalidInput, i)
	}
	if !item.UnitPrice.IsPositive() {
		return fmt.Errorf("%w: item %d unit_price must be positive", store.ErrInvalidInput, i)
	}
	if item.DiscountAmount.IsNegative() || item.TaxAmount.IsNegative() {
		return fmt.Errorf("%w: item %d amounts must not be negative", store.ErrInvalidInput, i)
	}

	want := item.UnitPrice.Mul(decimal.NewFromInt32(item.Quantity)).
		Sub(item.DiscountAmount).Add(item.TaxAmount)
	if !within(item.Subtotal, want) {
		return fmt.Errorf("%w: item %d subtotal does not match quantity*unit_price - discount + tax", store.ErrInvalidInput, i)
	}
	return nil
}

func generateTransactionNumber() string {
	return fmt.Sprintf("TXN-%d-%04d", time.Now().UnixMilli(), rand.Intn(10000))
}

// CreateTransaction persists a finalized (or parked) sale atomically: header,
// line items and, for completed sales, the branch stock decrement all commit
// together or not at all. Loyalty accrual and the event fan-out happen after
// commit; their failure never unwinds the sale.
func (s *Service) CreateTransaction(ctx context.Context, input CreateTransactionInput) (*models.Transaction, error) {
	if err := validateCreateTransaction(input); err != nil {
		return nil, err
	}

	items := make([]models.TransactionItem, len(input.Items))
	for i, in := range input.Items {
		items[i] = models.TransactionItem{
			ProductID:           in.ProductID,
			Quantity:            in.Quantity,
			UnitPrice:           in.UnitPrice,
			DiscountAmount:      in.DiscountAmount,
			TaxAmount:           in.TaxAmount,
			Subtotal:            in.Subtotal,
			AppliedPromotionIDs: in.AppliedPromotionIDs,
		}
	}

	txn := &models.Transaction{
		BranchID:       input.BranchID,
		CashierID:      input.CashierID,
		CustomerID:     input.CustomerID,
		Subtotal:       input.Subtotal,
		DiscountAmount: input.DiscountAmount,
		TaxAmount:      input.TaxAmount,
		Total:          input.Total,
		PaymentMethod:  input.PaymentMethod,
		AmountPaid:     input.AmountPaid,
		ChangeAmount:   input.ChangeAmount,
		Status:         input.Status,
		PointsEarned:   input.PointsEarned,
		Items:          items,
	}

	decrementStock := input.Status == models.TransactionCompleted

	var err error
	for attempt := 0; attempt < numberAttempts; attempt++ {
		txn.TransactionNumber = generateTransactionNumber()
		err = s.repo.CreateTransaction(ctx, txn, decrementStock)
		if !errors.Is(err, store.ErrDuplicateTransactionNumber) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	if input.Status == models.TransactionCompleted {
		s.publish(ctx, Event{
			EventType:         EventTransactionCreated,
			TransactionID:     txn.ID,
			TransactionNumber: txn.TransactionNumber,
			BranchID:          txn.BranchID,
			CashierID:         txn.CashierID,
			CustomerID:        txn.CustomerID,
			Amount:            txn.Total.StringFixed(2),
			Status:            string(txn.Status),
			Timestamp:         time.Now(),
		})

		if txn.CustomerID != nil && txn.PointsEarned > 0 {
			if err := s.loyalty.Accrue(ctx, *txn.CustomerID, txn.PointsEarned, txn.TransactionNumber); err != nil {
				log.Printf("[pos] WARN: loyalty accrual failed for %s: %v", txn.TransactionNumber, err)
			}
		}
	}

	return txn, nil
}

// AddTransactionItem appends a line to a parked sale and recomputes the
// header totals. Completed ledger entries are immutable.
func (s *Service) AddTransactionItem(ctx context.Context, transactionID int64, input TransactionItemInput) (*models.Transaction, error) {
	if err := validateItem(0, input); err != nil {
		return nil, err
	}

	txn, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Status != models.TransactionHeld {
		return nil, fmt.Errorf("%w: transaction %s is %s and immutable", store.ErrStateConflict, txn.TransactionNumber, txn.Status)
	}

	item := models.TransactionItem{
		TransactionID:       txn.ID,
		ProductID:           input.ProductID,
		Quantity:            input.Quantity,
		UnitPrice:           input.UnitPrice,
		DiscountAmount:      input.DiscountAmount,
		TaxAmount:           input.TaxAmount,
		Subtotal:            input.Subtotal,
		AppliedPromotionIDs: input.AppliedPromotionIDs,
	}

	txn.Subtotal = txn.Subtotal.Add(input.UnitPrice.Mul(decimal.NewFromInt32(input.Quantity)))
	txn.DiscountAmount = txn.DiscountAmount.Add(input.DiscountAmount)
	txn.TaxAmount = txn.TaxAmount.Add(input.TaxAmount)
	txn.Total = txn.Subtotal.Sub(txn.DiscountAmount).Add(txn.TaxAmount)

	if err := s.repo.AddTransactionItem(ctx, txn, &item); err != nil {
		return nil, err
	}
	txn.Items = append(txn.Items, item)
	return txn, nil
}

func (s *Service) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *Service) GetTransactionItems(ctx context.Context, transactionID int64) ([]models.TransactionItem, error) {
	if _, err := s.repo.GetTransaction(ctx, transactionID); err != nil {
		return nil, err
	}
	return s.repo.GetTransactionItems(ctx, transactionID)
}

func (s *Service) GetTransactionsByBranch(ctx context.Context, branchID int64, limit int) ([]models.Transaction, error) {
	return s.repo.ListTransactions(ctx, store.TransactionFilter{BranchID: &branchID, Limit: limit})
}

func (s *Service) GetTransactionsByCashier(ctx context.Context, cashierID int64, limit int) ([]models.Transaction, error) {
	return s.repo.ListTransactions(ctx, store.TransactionFilter{CashierID: &cashierID, Limit: limit})
}

func (s *Service) GetTransactionsByCustomer(ctx context.Context, customerID int64, limit int) ([]models.Transaction, error) {
	return s.repo.ListTransactions(ctx, store.TransactionFilter{CustomerID: &customerID, Limit: limit})
}

func (s *Service) ListTransactions(ctx context.Context, filter store.TransactionFilter) ([]models.Transaction, error) {
	return s.repo.ListTransactions(ctx, filter)
}

func (s *Service) publish(ctx context.Context, event Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("[pos] WARN: failed to publish %s event: %v", event.EventType, err)
	}
}
