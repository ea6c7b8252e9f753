package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"nusapos/internal/database/models"
	"nusapos/internal/store"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrDuplicateTransactionNumber
	default:
		return err
	}
}

// -- Products --

func (s *Store) SearchProducts(ctx context.Context, query string, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = 20
	}

	var products []models.Product
	q := s.db.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true)
	if query != "" {
		pattern := "%" + query + "%"
		q = q.Where("product_name ILIKE ? OR sku ILIKE ? OR barcode ILIKE ?", pattern, pattern, pattern)
	}

	if err := q.Order("product_name ASC").Limit(limit).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Where("barcode = ?", barcode).First(&product).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Where("sku = ?", sku).First(&product).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// -- Promotions --

func (s *Store) CreatePromotion(ctx context.Context, promo *models.Promotion) error {
	return translate(s.db.WithContext(ctx).Create(promo).Error)
}

func (s *Store) UpdatePromotion(ctx context.Context, promo *models.Promotion) error {
	result := s.db.WithContext(ctx).Model(&models.Promotion{}).Where("id = ?", promo.ID).
		Select("*").Omit("id", "created_at").Updates(promo)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetPromotion(ctx context.Context, id int64) (*models.Promotion, error) {
	var promo models.Promotion
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&promo).Error; err != nil {
		return nil, translate(err)
	}
	return &promo, nil
}

func (s *Store) ListActivePromotions(ctx context.Context, now time.Time) ([]models.Promotion, error) {
	var promos []models.Promotion
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND start_date <= ? AND end_date >= ?", true, now, now).
		Order("priority DESC, id ASC").
		Find(&promos).Error
	if err != nil {
		return nil, err
	}
	return promos, nil
}

func (s *Store) ListPromotionsOverlapping(ctx context.Context, start, end time.Time) ([]models.Promotion, error) {
	var promos []models.Promotion
	err := s.db.WithContext(ctx).
		Where("start_date <= ? AND end_date >= ?", end, start).
		Order("priority DESC, id ASC").
		Find(&promos).Error
	if err != nil {
		return nil, err
	}
	return promos, nil
}

// -- Transactions --

func (s *Store) CreateTransaction(ctx context.Context, txn *models.Transaction, decrementStock bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := txn.Items
		txn.Items = nil
		if err := tx.Create(txn).Error; err != nil {
			return translate(err)
		}

		for i := range items {
			items[i].TransactionID = txn.ID
			if err := tx.Create(&items[i]).Error; err != nil {
				return translate(err)
			}
		}
		txn.Items = items

		if !decrementStock {
			return nil
		}

		for _, item := range items {
			result := tx.Model(&models.BranchStock{}).
				Where("branch_id = ? AND product_id = ? AND quantity >= ?", txn.BranchID, item.ProductID, item.Quantity).
				Update("quantity", gorm.Expr("quantity - ?", item.Quantity))
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return store.ErrInsufficientStock
			}

			movement := models.StockMovement{
				BranchID:        txn.BranchID,
				ProductID:       item.ProductID,
				Quantity:        -item.Quantity,
				MovementType:    "sale",
				ReferenceNumber: txn.TransactionNumber,
			}
			if err := tx.Create(&movement).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (s *Store) AddTransactionItem(ctx context.Context, txn *models.Transaction, item *models.TransactionItem) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			return translate(err)
		}

		result := tx.Model(&models.Transaction{}).Where("id = ?", txn.ID).
			Updates(map[string]interface{}{
				"subtotal":        txn.Subtotal,
				"discount_amount": txn.DiscountAmount,
				"tax_amount":      txn.TaxAmount,
				"total":           txn.Total,
				"updated_at":      time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&txn).Error; err != nil {
		return nil, translate(err)
	}
	return &txn, nil
}

func (s *Store) GetTransactionItems(ctx context.Context, transactionID int64) ([]models.TransactionItem, error) {
	var items []models.TransactionItem
	err := s.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter store.TransactionFilter) ([]models.Transaction, error) {
	query := s.db.WithContext(ctx).Model(&models.Transaction{}).Preload("Items")

	if filter.BranchID != nil {
		query = query.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.CashierID != nil {
		query = query.Where("cashier_id = ?", *filter.CashierID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var txns []models.Transaction
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (s *Store) UpdateTransactionStatus(ctx context.Context, id int64, status models.TransactionStatus) error {
	result := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// -- Held transactions --

func (s *Store) CreateHold(ctx context.Context, hold *models.HeldTransaction) error {
	return s.db.WithContext(ctx).Create(hold).Error
}

func (s *Store) GetHold(ctx context.Context, id int64) (*models.HeldTransaction, error) {
	var hold models.HeldTransaction
	err := s.db.WithContext(ctx).
		Preload("Transaction.Items").
		Where("id = ?", id).
		First(&hold).Error
	if err != nil {
		return nil, translate(err)
	}
	return &hold, nil
}

func (s *Store) GetActiveHoldByTransaction(ctx context.Context, transactionID int64) (*models.HeldTransaction, error) {
	var hold models.HeldTransaction
	err := s.db.WithContext(ctx).
		Where("transaction_id = ? AND status = ?", transactionID, models.HoldActive).
		First(&hold).Error
	if err != nil {
		return nil, translate(err)
	}
	return &hold, nil
}

func (s *Store) UpdateHoldStatus(ctx context.Context, id int64, status models.HoldStatus) error {
	result := s.db.WithContext(ctx).Model(&models.HeldTransaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListActiveHolds(ctx context.Context, branchID int64) ([]models.HeldTransaction, error) {
	query := s.db.WithContext(ctx).Model(&models.HeldTransaction{}).
		Preload("Transaction.Items").
		Joins("JOIN transactions ON transactions.id = held_transactions.transaction_id").
		Where("held_transactions.status = ?", models.HoldActive)
	if branchID != 0 {
		query = query.Where("transactions.branch_id = ?", branchID)
	}

	var holds []models.HeldTransaction
	if err := query.Order("held_transactions.held_at DESC").Find(&holds).Error; err != nil {
		return nil, err
	}
	return holds, nil
}

// -- Refunds --

func (s *Store) CreateRefund(ctx context.Context, refund *models.Refund) error {
	return translate(s.db.WithContext(ctx).Create(refund).Error)
}

func (s *Store) GetRefund(ctx context.Context, id int64) (*models.Refund, error) {
	var refund models.Refund
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&refund).Error; err != nil {
		return nil, translate(err)
	}
	return &refund, nil
}

func (s *Store) UpdateRefundStatus(ctx context.Context, id int64, status models.RefundStatus) error {
	result := s.db.WithContext(ctx).Model(&models.Refund{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListRefundsByTransaction(ctx context.Context, transactionID int64) ([]models.Refund, error) {
	var refunds []models.Refund
	err := s.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at DESC, id DESC").
		Find(&refunds).Error
	if err != nil {
		return nil, err
	}
	return refunds, nil
}
