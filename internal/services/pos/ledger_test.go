package pos

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"nusapos/internal/database/models"
	"nusapos/internal/store"
	"nusapos/internal/store/memory"
)

func newSeededRepo(t *testing.T) *memory.Store {
	t.Helper()
	return memory.NewSeeded()
}

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	repo := newSeededRepo(t)
	return NewService(repo, nil, nil, 0), repo
}

// saleInput is one unit of product 1 (unit price 100) with a 10 discount and
// 9 tax, paid in cash with 100.
func saleInput() CreateTransactionInput {
	return CreateTransactionInput{
		BranchID:       1,
		CashierID:      7,
		Subtotal:       decimal.NewFromInt(100),
		DiscountAmount: decimal.NewFromInt(10),
		TaxAmount:      decimal.NewFromInt(9),
		Total:          decimal.NewFromInt(99),
		PaymentMethod:  models.PaymentCash,
		AmountPaid:     decimal.NewFromInt(100),
		ChangeAmount:   decimal.NewFromInt(1),
		Status:         models.TransactionCompleted,
		Items: []TransactionItemInput{
			{
				ProductID:      1,
				Quantity:       1,
				UnitPrice:      decimal.NewFromInt(100),
				DiscountAmount: decimal.NewFromInt(10),
				TaxAmount:      decimal.NewFromInt(9),
				Subtotal:       decimal.NewFromInt(99),
			},
		},
	}
}

func mustCreate(t *testing.T, svc *Service, input CreateTransactionInput) *models.Transaction {
	t.Helper()
	txn, err := svc.CreateTransaction(context.Background(), input)
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return txn
}

func TestCreateTransactionPersistsAndDecrementsStock(t *testing.T) {
	svc, repo := newTestService(t)

	txn := mustCreate(t, svc, saleInput())

	if txn.ID == 0 {
		t.Error("transaction was not assigned an ID")
	}
	if !strings.HasPrefix(txn.TransactionNumber, "TXN-") {
		t.Errorf("transaction number = %q, want TXN- prefix", txn.TransactionNumber)
	}
	if txn.Status != models.TransactionCompleted {
		t.Errorf("status = %s, want completed", txn.Status)
	}

	if got := repo.StockLevel(1, 1); got != 999 {
		t.Errorf("stock after sale = %d, want 999", got)
	}

	movements := repo.Movements()
	if len(movements) != 1 {
		t.Fatalf("movement count = %d, want 1", len(movements))
	}
	m := movements[0]
	if m.MovementType != "sale" || m.Quantity != -1 || m.ReferenceNumber != txn.TransactionNumber {
		t.Errorf("movement = %+v, want sale of -1 referencing %s", m, txn.TransactionNumber)
	}

	items, err := svc.GetTransactionItems(context.Background(), txn.ID)
	if err != nil {
		t.Fatalf("get items: %v", err)
	}
	if len(items) != 1 || !items[0].Subtotal.Equal(decimal.NewFromInt(99)) {
		t.Errorf("items = %+v, want one line with subtotal 99", items)
	}
}

func TestCreateTransactionRejectsBrokenArithmetic(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []struct {
		name   string
		mutate func(*CreateTransactionInput)
	}{
		{"total mismatch", func(in *CreateTransactionInput) {
			in.Total = decimal.NewFromInt(90)
			in.ChangeAmount = decimal.NewFromInt(10)
		}},
		{"item subtotal mismatch", func(in *CreateTransactionInput) {
			in.Items[0].Subtotal = decimal.NewFromInt(100)
		}},
		{"change mismatch", func(in *CreateTransactionInput) {
			in.ChangeAmount = decimal.NewFromInt(5)
		}},
		{"underpaid", func(in *CreateTransactionInput) {
			in.AmountPaid = decimal.NewFromInt(50)
			in.ChangeAmount = decimal.NewFromInt(-49)
		}},
		{"no items", func(in *CreateTransactionInput) {
			in.Items = nil
		}},
		{"zero quantity", func(in *CreateTransactionInput) {
			in.Items[0].Quantity = 0
		}},
		{"negative item discount", func(in *CreateTransactionInput) {
			in.Items[0].DiscountAmount = decimal.NewFromInt(-1)
		}},
		{"unknown payment method", func(in *CreateTransactionInput) {
			in.PaymentMethod = "barter"
		}},
		{"cancelled status", func(in *CreateTransactionInput) {
			in.Status = models.TransactionCancelled
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := saleInput()
			tc.mutate(&input)
			_, err := svc.CreateTransaction(context.Background(), input)
			if !errors.Is(err, store.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestCreateTransactionToleratesCentRounding(t *testing.T) {
	svc, _ := newTestService(t)

	input := saleInput()
	// A caller that rounded per line can be a cent off on the header.
	input.Total = decimal.RequireFromString("99.01")
	input.ChangeAmount = decimal.RequireFromString("0.99")

	if _, err := svc.CreateTransaction(context.Background(), input); err != nil {
		t.Errorf("cent-off total rejected: %v", err)
	}
}

func TestCreateTransactionInsufficientStock(t *testing.T) {
	svc, repo := newTestService(t)
	repo.SetStock(1, 1, 0)

	_, err := svc.CreateTransaction(context.Background(), saleInput())
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("error = %v, want ErrInsufficientStock", err)
	}

	txns, err := svc.ListTransactions(context.Background(), store.TransactionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txns) != 0 {
		t.Errorf("transactions after failed sale = %d, want 0", len(txns))
	}
}

func TestHeldTransactionSkipsStockDecrement(t *testing.T) {
	svc, repo := newTestService(t)

	input := saleInput()
	input.Status = models.TransactionHeld
	input.AmountPaid = decimal.Zero
	input.ChangeAmount = decimal.Zero

	txn := mustCreate(t, svc, input)

	if txn.Status != models.TransactionHeld {
		t.Errorf("status = %s, want held", txn.Status)
	}
	if got := repo.StockLevel(1, 1); got != 1000 {
		t.Errorf("stock after parking = %d, want untouched 1000", got)
	}
	if len(repo.Movements()) != 0 {
		t.Errorf("movements after parking = %d, want 0", len(repo.Movements()))
	}
}

func TestAddTransactionItemToParkedSale(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	input := saleInput()
	input.Status = models.TransactionHeld
	input.AmountPaid = decimal.Zero
	input.ChangeAmount = decimal.Zero
	txn := mustCreate(t, svc, input)

	updated, err := svc.AddTransactionItem(ctx, txn.ID, TransactionItemInput{
		ProductID: 2,
		Quantity:  2,
		UnitPrice: decimal.NewFromInt(50),
		Subtotal:  decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}

	if len(updated.Items) != 2 {
		t.Errorf("item count = %d, want 2", len(updated.Items))
	}
	if !updated.Subtotal.Equal(decimal.NewFromInt(200)) {
		t.Errorf("subtotal = %s, want 200", updated.Subtotal)
	}
	if !updated.Total.Equal(decimal.NewFromInt(199)) {
		t.Errorf("total = %s, want 199", updated.Total)
	}

	stored, err := svc.GetTransaction(ctx, txn.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if len(stored.Items) != 2 || !stored.Total.Equal(decimal.NewFromInt(199)) {
		t.Errorf("stored transaction = %d items total %s, want 2 items total 199", len(stored.Items), stored.Total)
	}
}

func TestAddTransactionItemRejectsCompletedSale(t *testing.T) {
	svc, _ := newTestService(t)

	txn := mustCreate(t, svc, saleInput())

	_, err := svc.AddTransactionItem(context.Background(), txn.ID, TransactionItemInput{
		ProductID: 2,
		Quantity:  1,
		UnitPrice: decimal.NewFromInt(50),
		Subtotal:  decimal.NewFromInt(50),
	})
	if !errors.Is(err, store.ErrStateConflict) {
		t.Errorf("error = %v, want ErrStateConflict", err)
	}

	_, err = svc.AddTransactionItem(context.Background(), txn.ID, TransactionItemInput{
		ProductID: 2,
		Quantity:  0,
		UnitPrice: decimal.NewFromInt(50),
		Subtotal:  decimal.Zero,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("zero quantity error = %v, want ErrInvalidInput", err)
	}
}

func TestCreateTransactionAccruesLoyalty(t *testing.T) {
	repo := memory.NewSeeded()
	accrued := make(map[int64]int32)
	svc := NewService(repo, nil, loyaltyFunc(func(_ context.Context, customerID int64, points int32, _ string) error {
		accrued[customerID] += points
		return nil
	}), 0)

	customerID := int64(42)
	input := saleInput()
	input.CustomerID = &customerID
	input.PointsEarned = 9

	mustCreate(t, svc, input)

	if accrued[customerID] != 9 {
		t.Errorf("accrued points = %d, want 9", accrued[customerID])
	}
}

type loyaltyFunc func(ctx context.Context, customerID int64, points int32, transactionNumber string) error

func (f loyaltyFunc) Accrue(ctx context.Context, customerID int64, points int32, transactionNumber string) error {
	return f(ctx, customerID, points, transactionNumber)
}

func TestTransactionProjections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	customerID := int64(42)
	first := saleInput()
	first.CustomerID = &customerID
	mustCreate(t, svc, first)

	second := saleInput()
	second.BranchID = 2
	second.CashierID = 8
	// Branch 2 carries no stock in the seed; park it instead of completing.
	second.Status = models.TransactionHeld
	second.AmountPaid = decimal.Zero
	second.ChangeAmount = decimal.Zero
	mustCreate(t, svc, second)

	byBranch, err := svc.GetTransactionsByBranch(ctx, 1, 10)
	if err != nil {
		t.Fatalf("by branch: %v", err)
	}
	if len(byBranch) != 1 || byBranch[0].BranchID != 1 {
		t.Errorf("branch 1 transactions = %+v, want exactly the first sale", byBranch)
	}

	byCashier, err := svc.GetTransactionsByCashier(ctx, 8, 10)
	if err != nil {
		t.Fatalf("by cashier: %v", err)
	}
	if len(byCashier) != 1 || byCashier[0].CashierID != 8 {
		t.Errorf("cashier 8 transactions = %+v, want exactly the parked sale", byCashier)
	}

	byCustomer, err := svc.GetTransactionsByCustomer(ctx, customerID, 10)
	if err != nil {
		t.Fatalf("by customer: %v", err)
	}
	if len(byCustomer) != 1 {
		t.Errorf("customer transactions = %d, want 1", len(byCustomer))
	}

	status := models.TransactionHeld
	held, err := svc.ListTransactions(ctx, store.TransactionFilter{Status: &status})
	if err != nil {
		t.Fatalf("by status: %v", err)
	}
	if len(held) != 1 || held[0].Status != models.TransactionHeld {
		t.Errorf("held transactions = %+v, want exactly the parked sale", held)
	}
}

func TestGetTransactionNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.GetTransaction(context.Background(), 9999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if _, err := svc.GetTransactionItems(context.Background(), 9999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("items error = %v, want ErrNotFound", err)
	}
}

func TestTransactionNumbersAreUnique(t *testing.T) {
	svc, _ := newTestService(t)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		txn := mustCreate(t, svc, saleInput())
		if seen[txn.TransactionNumber] {
			t.Fatalf("duplicate transaction number %s", txn.TransactionNumber)
		}
		seen[txn.TransactionNumber] = true
	}
}
