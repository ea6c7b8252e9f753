package pos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"nusapos/internal/database/models"
	"nusapos/internal/store"
)

func parkedSale(t *testing.T, svc *Service) *models.Transaction {
	t.Helper()
	input := saleInput()
	input.Status = models.TransactionHeld
	input.AmountPaid = decimal.Zero
	input.ChangeAmount = decimal.Zero
	return mustCreate(t, svc, input)
}

func TestHoldResumeRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	txn := parkedSale(t, svc)
	notes := "customer fetching wallet"

	hold, err := svc.Hold(ctx, txn.ID, 7, &notes)
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	if hold.Status != models.HoldActive {
		t.Errorf("hold status = %s, want held", hold.Status)
	}
	if !hold.ExpiresAt.After(hold.HeldAt) {
		t.Errorf("expires_at %v not after held_at %v", hold.ExpiresAt, hold.HeldAt)
	}

	resumed, err := svc.Resume(ctx, hold.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.Status != models.HoldResumed {
		t.Errorf("resumed status = %s, want resumed", resumed.Status)
	}
	if resumed.Transaction == nil {
		t.Fatal("resume did not return the parked transaction")
	}
	if len(resumed.Transaction.Items) != 1 {
		t.Errorf("resumed items = %d, want the full cart", len(resumed.Transaction.Items))
	}
	if !resumed.Transaction.Total.Equal(txn.Total) {
		t.Errorf("resumed total = %s, want %s", resumed.Transaction.Total, txn.Total)
	}
}

func TestHoldRejectsNonHeldTransaction(t *testing.T) {
	svc, _ := newTestService(t)

	completed := mustCreate(t, svc, saleInput())

	_, err := svc.Hold(context.Background(), completed.ID, 7, nil)
	if !errors.Is(err, store.ErrStateConflict) {
		t.Errorf("error = %v, want ErrStateConflict", err)
	}
}

func TestHoldRejectsDoubleHold(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	txn := parkedSale(t, svc)
	if _, err := svc.Hold(ctx, txn.ID, 7, nil); err != nil {
		t.Fatalf("first hold: %v", err)
	}

	_, err := svc.Hold(ctx, txn.ID, 7, nil)
	if !errors.Is(err, store.ErrStateConflict) {
		t.Errorf("second hold error = %v, want ErrStateConflict", err)
	}
}

func TestResumeExpiredHold(t *testing.T) {
	repo := newSeededRepo(t)
	svc := NewService(repo, nil, nil, time.Nanosecond)
	ctx := context.Background()

	txn := parkedSale(t, svc)
	hold, err := svc.Hold(ctx, txn.ID, 7, nil)
	if err != nil {
		t.Fatalf("hold: %v", err)
	}

	time.Sleep(time.Millisecond)

	_, err = svc.Resume(ctx, hold.ID)
	if !errors.Is(err, store.ErrHoldExpired) {
		t.Fatalf("resume error = %v, want ErrHoldExpired", err)
	}

	stored, err := repo.GetHold(ctx, hold.ID)
	if err != nil {
		t.Fatalf("get hold: %v", err)
	}
	if stored.Status != models.HoldExpired {
		t.Errorf("hold status = %s, want expired", stored.Status)
	}

	// Expired is terminal; a second resume is a state conflict, not a retry.
	if _, err := svc.Resume(ctx, hold.ID); !errors.Is(err, store.ErrStateConflict) {
		t.Errorf("resume after expiry error = %v, want ErrStateConflict", err)
	}
}

func TestResumeResumedHoldConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	txn := parkedSale(t, svc)
	hold, err := svc.Hold(ctx, txn.ID, 7, nil)
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	if _, err := svc.Resume(ctx, hold.ID); err != nil {
		t.Fatalf("resume: %v", err)
	}

	if _, err := svc.Resume(ctx, hold.ID); !errors.Is(err, store.ErrStateConflict) {
		t.Errorf("second resume error = %v, want ErrStateConflict", err)
	}
}

func TestDiscardCancelsAndIsIdempotent(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	txn := parkedSale(t, svc)
	hold, err := svc.Hold(ctx, txn.ID, 7, nil)
	if err != nil {
		t.Fatalf("hold: %v", err)
	}

	if err := svc.Discard(ctx, hold.ID); err != nil {
		t.Fatalf("discard: %v", err)
	}

	stored, err := repo.GetHold(ctx, hold.ID)
	if err != nil {
		t.Fatalf("get hold: %v", err)
	}
	if stored.Status != models.HoldDiscarded {
		t.Errorf("hold status = %s, want discarded", stored.Status)
	}

	cancelled, err := svc.GetTransaction(ctx, txn.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if cancelled.Status != models.TransactionCancelled {
		t.Errorf("transaction status = %s, want cancelled", cancelled.Status)
	}

	if err := svc.Discard(ctx, hold.ID); err != nil {
		t.Errorf("second discard: %v, want nil", err)
	}
	if err := svc.Discard(ctx, 9999); err != nil {
		t.Errorf("discard of absent hold: %v, want nil", err)
	}
}

func TestReHoldAfterDiscard(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	txn := parkedSale(t, svc)
	hold, err := svc.Hold(ctx, txn.ID, 7, nil)
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	if _, err := svc.Resume(ctx, hold.ID); err != nil {
		t.Fatalf("resume: %v", err)
	}

	// The cart is back at the register; parking it again must work.
	if _, err := svc.Hold(ctx, txn.ID, 7, nil); err != nil {
		t.Errorf("re-hold after resume: %v", err)
	}
}

func TestListHeldFiltersBranchAndFlagsExpiry(t *testing.T) {
	repo := newSeededRepo(t)
	svc := NewService(repo, nil, nil, time.Nanosecond)
	ctx := context.Background()

	txn := parkedSale(t, svc)
	if _, err := svc.Hold(ctx, txn.ID, 7, nil); err != nil {
		t.Fatalf("hold: %v", err)
	}

	time.Sleep(time.Millisecond)

	views, err := svc.ListHeld(ctx, 1)
	if err != nil {
		t.Fatalf("list held: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("held count = %d, want 1", len(views))
	}
	if !views[0].Expired {
		t.Error("stale hold not flagged as expired")
	}
	if views[0].Transaction == nil {
		t.Error("listing did not preload the parked transaction")
	}

	other, err := svc.ListHeld(ctx, 2)
	if err != nil {
		t.Fatalf("list held branch 2: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("branch 2 held count = %d, want 0", len(other))
	}
}
