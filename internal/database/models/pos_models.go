package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PromotionType string

const (
	PromotionPercentage PromotionType = "percentage"
	PromotionFixed      PromotionType = "fixed"
	PromotionBuyXGetY   PromotionType = "buy_x_get_y"
	PromotionMemberOnly PromotionType = "member_only"
	PromotionHappyHour  PromotionType = "happy_hour"
)

type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "completed"
	TransactionHeld      TransactionStatus = "held"
	TransactionCancelled TransactionStatus = "cancelled"
	TransactionRefunded  TransactionStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentCard    PaymentMethod = "card"
	PaymentEwallet PaymentMethod = "ewallet"
	PaymentMixed   PaymentMethod = "mixed"
)

type HoldStatus string

const (
	HoldActive    HoldStatus = "held"
	HoldResumed   HoldStatus = "resumed"
	HoldDiscarded HoldStatus = "discarded"
	HoldExpired   HoldStatus = "expired"
)

type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundApproved  RefundStatus = "approved"
	RefundCompleted RefundStatus = "completed"
	RefundRejected  RefundStatus = "rejected"
)

// Int64Array is stored as a JSON text column.
type Int64Array []int64

func (a *Int64Array) Scan(value interface{}) error {
	if value == nil {
		*a = []int64{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to scan Int64Array: %v", value)
	}

	return json.Unmarshal(bytes, a)
}

func (a Int64Array) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Contains reports whether id is in the array. An empty array means "no
// restriction" for promotion scoping, which callers must check separately.
func (a Int64Array) Contains(id int64) bool {
	for _, v := range a {
		if v == id {
			return true
		}
	}
	return false
}

type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SKU         string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"sku"`
	Barcode     string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"barcode"`
	ProductName string          `gorm:"type:varchar(128);not null" json:"product_name"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	IsActive    bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type BranchStock struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BranchID  int64     `gorm:"uniqueIndex:idx_branch_product;not null" json:"branch_id"`
	ProductID int64     `gorm:"uniqueIndex:idx_branch_product;not null" json:"product_id"`
	Quantity  int32     `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StockMovement is the audit row written alongside every stock mutation so the
// ledger and the warehouse stay reconcilable.
type StockMovement struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BranchID        int64     `gorm:"index;not null" json:"branch_id"`
	ProductID       int64     `gorm:"index;not null" json:"product_id"`
	Quantity        int32     `gorm:"not null" json:"quantity"`
	MovementType    string    `gorm:"type:varchar(32);not null" json:"movement_type"`
	ReferenceNumber string    `gorm:"type:varchar(64);index;not null" json:"reference_number"`
	CreatedAt       time.Time `json:"created_at"`
}

type Promotion struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string          `gorm:"type:varchar(128);not null" json:"name"`
	Type          PromotionType   `gorm:"type:varchar(32);not null" json:"type"`
	DiscountValue decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount_value"`

	BuyQuantity  *int32 `json:"buy_quantity,omitempty"`
	GetQuantity  *int32 `json:"get_quantity,omitempty"`
	GetProductID *int64 `json:"get_product_id,omitempty"`

	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`

	// Time-of-day band for happy_hour promotions, "HH:MM".
	StartTime *string `gorm:"type:varchar(5)" json:"start_time,omitempty"`
	EndTime   *string `gorm:"type:varchar(5)" json:"end_time,omitempty"`

	// Empty scope set means the promotion applies everywhere.
	ProductIDs Int64Array `gorm:"type:text" json:"product_ids"`
	BranchIDs  Int64Array `gorm:"type:text" json:"branch_ids"`

	MemberOnly bool  `gorm:"not null;default:false" json:"member_only"`
	Priority   int32 `gorm:"not null;default:0" json:"priority"`
	IsActive   bool  `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppliesTo reports whether the promotion's advisory scope sets admit the
// given branch and product.
func (p Promotion) AppliesTo(branchID, productID int64) bool {
	if len(p.BranchIDs) > 0 && !p.BranchIDs.Contains(branchID) {
		return false
	}
	if len(p.ProductIDs) > 0 && !p.ProductIDs.Contains(productID) {
		return false
	}
	return true
}

type Transaction struct {
	ID                int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNumber string `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_number"`
	BranchID          int64  `gorm:"index;not null" json:"branch_id"`
	CashierID         int64  `gorm:"index;not null" json:"cashier_id"`
	CustomerID        *int64 `gorm:"index" json:"customer_id,omitempty"`

	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount_amount"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax_amount"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`

	PaymentMethod PaymentMethod   `gorm:"type:varchar(16);not null" json:"payment_method"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_paid"`
	ChangeAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"change_amount"`

	Status       TransactionStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	PointsEarned int32             `gorm:"not null;default:0" json:"points_earned"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []TransactionItem `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

type TransactionItem struct {
	ID            int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionID int64 `gorm:"index;not null" json:"transaction_id"`
	ProductID     int64 `gorm:"not null" json:"product_id"`
	Quantity      int32 `gorm:"not null" json:"quantity"`

	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount_amount"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax_amount"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`

	AppliedPromotionIDs Int64Array `gorm:"type:text" json:"applied_promotion_ids"`
	CreatedAt           time.Time  `json:"created_at"`
}

type HeldTransaction struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionID int64      `gorm:"index;not null" json:"transaction_id"`
	HeldBy        int64      `gorm:"not null" json:"held_by"`
	HeldAt        time.Time  `gorm:"not null" json:"held_at"`
	ExpiresAt     time.Time  `gorm:"not null" json:"expires_at"`
	Notes         *string    `gorm:"type:text" json:"notes,omitempty"`
	Status        HoldStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Transaction *Transaction `gorm:"foreignKey:TransactionID" json:"transaction,omitempty"`
}

type Refund struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionID int64           `gorm:"index;not null" json:"transaction_id"`
	RefundNumber  string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"refund_number"`
	Reason        string          `gorm:"type:text;not null" json:"reason"`
	RefundAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"refund_amount"`
	Status        RefundStatus    `gorm:"type:varchar(16);index;not null" json:"status"`
	ProcessedBy   int64           `gorm:"not null" json:"processed_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
