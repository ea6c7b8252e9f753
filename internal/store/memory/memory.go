package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"nusapos/internal/database/models"
	"nusapos/internal/store"
)

// Store is an in-memory Repository used by tests. Semantics mirror the
// postgres implementation, including the atomic stock decrement inside
// CreateTransaction.
type Store struct {
	mu sync.Mutex

	products     map[int64]models.Product
	promotions   map[int64]models.Promotion
	transactions map[int64]models.Transaction
	items        map[int64][]models.TransactionItem
	holds        map[int64]models.HeldTransaction
	refunds      map[int64]models.Refund
	stock        map[[2]int64]int32
	movements    []models.StockMovement

	nextProduct   int64
	nextPromotion int64
	nextTxn       int64
	nextItem      int64
	nextHold      int64
	nextRefund    int64
}

func NewStore() *Store {
	return &Store{
		products:     make(map[int64]models.Product),
		promotions:   make(map[int64]models.Promotion),
		transactions: make(map[int64]models.Transaction),
		items:        make(map[int64][]models.TransactionItem),
		holds:        make(map[int64]models.HeldTransaction),
		refunds:      make(map[int64]models.Refund),
		stock:        make(map[[2]int64]int32),
	}
}

// NewSeeded returns a store preloaded with a small product catalog and
// generous branch stock for branch 1.
func NewSeeded() *Store {
	s := NewStore()
	seed := []models.Product{
		{SKU: "SKU-KOPI-01", Barcode: "8990001000011", ProductName: "Kopi Tubruk 200g", UnitPrice: decimal.NewFromInt(100), IsActive: true},
		{SKU: "SKU-TEH-02", Barcode: "8990001000028", ProductName: "Teh Melati 100g", UnitPrice: decimal.NewFromInt(50), IsActive: true},
		{SKU: "SKU-GULA-03", Barcode: "8990001000035", ProductName: "Gula Pasir 1kg", UnitPrice: decimal.NewFromInt(25), IsActive: true},
	}
	for i := range seed {
		_ = s.AddProduct(&seed[i])
		s.SetStock(1, seed[i].ID, 1000)
	}
	return s
}

// AddProduct and SetStock are test helpers, not part of store.Repository.

func (s *Store) AddProduct(p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextProduct++
	p.ID = s.nextProduct
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.products[p.ID] = *p
	return nil
}

func (s *Store) SetStock(branchID, productID int64, qty int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[[2]int64{branchID, productID}] = qty
}

func (s *Store) StockLevel(branchID, productID int64) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[[2]int64{branchID, productID}]
}

func (s *Store) Movements() []models.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.StockMovement, len(s.movements))
	copy(out, s.movements)
	return out
}

// -- Products --

func (s *Store) SearchProducts(_ context.Context, query string, limit int) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	q := strings.ToLower(query)
	var out []models.Product
	for _, p := range s.products {
		if !p.IsActive {
			continue
		}
		if q == "" ||
			strings.Contains(strings.ToLower(p.ProductName), q) ||
			strings.Contains(strings.ToLower(p.SKU), q) ||
			strings.Contains(strings.ToLower(p.Barcode), q) {
			out = append(out, p)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ProductName < out[j].ProductName })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetProductByBarcode(_ context.Context, barcode string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.products {
		if p.Barcode == barcode {
			product := p
			return &product, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetProductBySKU(_ context.Context, sku string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.products {
		if p.SKU == sku {
			product := p
			return &product, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	product := p
	return &product, nil
}

// -- Promotions --

func (s *Store) CreatePromotion(_ context.Context, promo *models.Promotion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextPromotion++
	promo.ID = s.nextPromotion
	now := time.Now()
	promo.CreatedAt = now
	promo.UpdatedAt = now
	s.promotions[promo.ID] = *promo
	return nil
}

func (s *Store) UpdatePromotion(_ context.Context, promo *models.Promotion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.promotions[promo.ID]
	if !ok {
		return store.ErrNotFound
	}
	promo.CreatedAt = existing.CreatedAt
	promo.UpdatedAt = time.Now()
	s.promotions[promo.ID] = *promo
	return nil
}

func (s *Store) GetPromotion(_ context.Context, id int64) (*models.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.promotions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	promo := p
	return &promo, nil
}

func sortByPriority(promos []models.Promotion) {
	sort.Slice(promos, func(i, j int) bool {
		if promos[i].Priority != promos[j].Priority {
			return promos[i].Priority > promos[j].Priority
		}
		return promos[i].ID < promos[j].ID
	})
}

func (s *Store) ListActivePromotions(_ context.Context, now time.Time) ([]models.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Promotion
	for _, p := range s.promotions {
		if p.IsActive && !p.StartDate.After(now) && !p.EndDate.Before(now) {
			out = append(out, p)
		}
	}
	sortByPriority(out)
	return out, nil
}

func (s *Store) ListPromotionsOverlapping(_ context.Context, start, end time.Time) ([]models.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Promotion
	for _, p := range s.promotions {
		if !p.StartDate.After(end) && !p.EndDate.Before(start) {
			out = append(out, p)
		}
	}
	sortByPriority(out)
	return out, nil
}

// -- Transactions --

func (s *Store) CreateTransaction(_ context.Context, txn *models.Transaction, decrementStock bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.transactions {
		if existing.TransactionNumber == txn.TransactionNumber {
			return store.ErrDuplicateTransactionNumber
		}
	}

	if decrementStock {
		for _, item := range txn.Items {
			key := [2]int64{txn.BranchID, item.ProductID}
			if s.stock[key] < item.Quantity {
				return store.ErrInsufficientStock
			}
		}
	}

	s.nextTxn++
	txn.ID = s.nextTxn
	now := time.Now()
	txn.CreatedAt = now
	txn.UpdatedAt = now

	items := make([]models.TransactionItem, len(txn.Items))
	copy(items, txn.Items)
	for i := range items {
		s.nextItem++
		items[i].ID = s.nextItem
		items[i].TransactionID = txn.ID
		items[i].CreatedAt = now
	}
	txn.Items = items

	if decrementStock {
		for _, item := range items {
			key := [2]int64{txn.BranchID, item.ProductID}
			s.stock[key] -= item.Quantity
			s.movements = append(s.movements, models.StockMovement{
				ID:              int64(len(s.movements) + 1),
				BranchID:        txn.BranchID,
				ProductID:       item.ProductID,
				Quantity:        -item.Quantity,
				MovementType:    "sale",
				ReferenceNumber: txn.TransactionNumber,
				CreatedAt:       now,
			})
		}
	}

	stored := *txn
	stored.Items = nil
	s.transactions[txn.ID] = stored
	s.items[txn.ID] = items
	return nil
}

func (s *Store) AddTransactionItem(_ context.Context, txn *models.Transaction, item *models.TransactionItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.transactions[txn.ID]
	if !ok {
		return store.ErrNotFound
	}

	s.nextItem++
	item.ID = s.nextItem
	item.TransactionID = txn.ID
	item.CreatedAt = time.Now()
	s.items[txn.ID] = append(s.items[txn.ID], *item)

	stored.Subtotal = txn.Subtotal
	stored.DiscountAmount = txn.DiscountAmount
	stored.TaxAmount = txn.TaxAmount
	stored.Total = txn.Total
	stored.UpdatedAt = time.Now()
	s.transactions[txn.ID] = stored
	return nil
}

func (s *Store) getTransactionLocked(id int64) (*models.Transaction, bool) {
	t, ok := s.transactions[id]
	if !ok {
		return nil, false
	}
	txn := t
	items := make([]models.TransactionItem, len(s.items[id]))
	copy(items, s.items[id])
	txn.Items = items
	return &txn, true
}

func (s *Store) GetTransaction(_ context.Context, id int64) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.getTransactionLocked(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return txn, nil
}

func (s *Store) GetTransactionItems(_ context.Context, transactionID int64) ([]models.TransactionItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.TransactionItem, len(s.items[transactionID]))
	copy(items, s.items[transactionID])
	return items, nil
}

func (s *Store) ListTransactions(_ context.Context, filter store.TransactionFilter) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Transaction
	for id := range s.transactions {
		txn, _ := s.getTransactionLocked(id)
		if filter.BranchID != nil && txn.BranchID != *filter.BranchID {
			continue
		}
		if filter.CashierID != nil && txn.CashierID != *filter.CashierID {
			continue
		}
		if filter.CustomerID != nil && (txn.CustomerID == nil || *txn.CustomerID != *filter.CustomerID) {
			continue
		}
		if filter.Status != nil && txn.Status != *filter.Status {
			continue
		}
		out = append(out, *txn)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpdateTransactionStatus(_ context.Context, id int64, status models.TransactionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.transactions[id]
	if !ok {
		return store.ErrNotFound
	}
	txn.Status = status
	txn.UpdatedAt = time.Now()
	s.transactions[id] = txn
	return nil
}

// -- Held transactions --

func (s *Store) CreateHold(_ context.Context, hold *models.HeldTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextHold++
	hold.ID = s.nextHold
	now := time.Now()
	hold.CreatedAt = now
	hold.UpdatedAt = now

	stored := *hold
	stored.Transaction = nil
	s.holds[hold.ID] = stored
	return nil
}

func (s *Store) GetHold(_ context.Context, id int64) (*models.HeldTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.holds[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	hold := h
	if txn, ok := s.getTransactionLocked(hold.TransactionID); ok {
		hold.Transaction = txn
	}
	return &hold, nil
}

func (s *Store) GetActiveHoldByTransaction(_ context.Context, transactionID int64) (*models.HeldTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range s.holds {
		if h.TransactionID == transactionID && h.Status == models.HoldActive {
			hold := h
			return &hold, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateHoldStatus(_ context.Context, id int64, status models.HoldStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.holds[id]
	if !ok {
		return store.ErrNotFound
	}
	h.Status = status
	h.UpdatedAt = time.Now()
	s.holds[id] = h
	return nil
}

func (s *Store) ListActiveHolds(_ context.Context, branchID int64) ([]models.HeldTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.HeldTransaction
	for _, h := range s.holds {
		if h.Status != models.HoldActive {
			continue
		}
		txn, ok := s.getTransactionLocked(h.TransactionID)
		if !ok {
			continue
		}
		if branchID != 0 && txn.BranchID != branchID {
			continue
		}
		hold := h
		hold.Transaction = txn
		out = append(out, hold)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].HeldAt.After(out[j].HeldAt) })
	return out, nil
}

// -- Refunds --

func (s *Store) CreateRefund(_ context.Context, refund *models.Refund) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.refunds {
		if existing.RefundNumber == refund.RefundNumber {
			return store.ErrDuplicateTransactionNumber
		}
	}

	s.nextRefund++
	refund.ID = s.nextRefund
	now := time.Now()
	refund.CreatedAt = now
	refund.UpdatedAt = now
	s.refunds[refund.ID] = *refund
	return nil
}

func (s *Store) GetRefund(_ context.Context, id int64) (*models.Refund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.refunds[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	refund := r
	return &refund, nil
}

func (s *Store) UpdateRefundStatus(_ context.Context, id int64, status models.RefundStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.refunds[id]
	if !ok {
		return store.ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = time.Now()
	s.refunds[id] = r
	return nil
}

func (s *Store) ListRefundsByTransaction(_ context.Context, transactionID int64) ([]models.Refund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Refund
	for _, r := range s.refunds {
		if r.TransactionID == transactionID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
