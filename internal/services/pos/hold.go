package pos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nusapos/internal/database/models"
	"nusapos/internal/store"
)

// HeldTransactionView decorates a hold with its computed expiry flag. Expiry
// is advisory on listings; it is only enforced at resume time.
type HeldTransactionView struct {
	models.HeldTransaction
	Expired bool `json:"expired"`
}

// Hold parks a freshly built sale so the register can serve another customer.
// Only transactions created in the held status and not already parked can be
// held; completed, cancelled and refunded sales conflict.
func (s *Service) Hold(ctx context.Context, transactionID, heldBy int64, notes *string) (*models.HeldTransaction, error) {
	txn, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if txn.Status != models.TransactionHeld {
		return nil, fmt.Errorf("%w: transaction %s is %s", store.ErrStateConflict, txn.TransactionNumber, txn.Status)
	}

	if _, err := s.repo.GetActiveHoldByTransaction(ctx, transactionID); err == nil {
		return nil, fmt.Errorf("%w: transaction %s is already held", store.ErrStateConflict, txn.TransactionNumber)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	hold := &models.HeldTransaction{
		TransactionID: transactionID,
		HeldBy:        heldBy,
		HeldAt:        now,
		ExpiresAt:     now.Add(s.holdTTL),
		Notes:         notes,
		Status:        models.HoldActive,
	}

	if err := s.repo.CreateHold(ctx, hold); err != nil {
		return nil, err
	}

	s.publish(ctx, Event{
		EventType:         EventTransactionHeld,
		TransactionID:     txn.ID,
		TransactionNumber: txn.TransactionNumber,
		BranchID:          txn.BranchID,
		CashierID:         heldBy,
		Status:            string(models.HoldActive),
		Timestamp:         now,
	})

	return hold, nil
}

// Resume returns the parked transaction with its items intact so the caller
// can rebuild the in-progress sale. Expired holds are flipped to the terminal
// expired state instead of being silently served.
func (s *Service) Resume(ctx context.Context, heldID int64) (*models.HeldTransaction, error) {
	hold, err := s.repo.GetHold(ctx, heldID)
	if err != nil {
		return nil, err
	}

	if hold.Status != models.HoldActive {
		return nil, fmt.Errorf("%w: hold %d is %s", store.ErrStateConflict, heldID, hold.Status)
	}

	if time.Now().After(hold.ExpiresAt) {
		if err := s.repo.UpdateHoldStatus(ctx, heldID, models.HoldExpired); err != nil {
			return nil, err
		}
		return nil, store.ErrHoldExpired
	}

	if err := s.repo.UpdateHoldStatus(ctx, heldID, models.HoldResumed); err != nil {
		return nil, err
	}
	hold.Status = models.HoldResumed

	if hold.Transaction != nil {
		s.publish(ctx, Event{
			EventType:         EventTransactionResumed,
			TransactionID:     hold.TransactionID,
			TransactionNumber: hold.Transaction.TransactionNumber,
			BranchID:          hold.Transaction.BranchID,
			Timestamp:         time.Now(),
		})
	}

	return hold, nil
}

// Discard removes a hold. It is idempotent: discarding an absent or already
// discarded hold succeeds. The parked transaction is cancelled.
func (s *Service) Discard(ctx context.Context, heldID int64) error {
	hold, err := s.repo.GetHold(ctx, heldID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	if hold.Status == models.HoldDiscarded {
		return nil
	}

	if err := s.repo.UpdateHoldStatus(ctx, heldID, models.HoldDiscarded); err != nil {
		return err
	}

	if err := s.repo.UpdateTransactionStatus(ctx, hold.TransactionID, models.TransactionCancelled); err != nil {
		return err
	}

	s.publish(ctx, Event{
		EventType:     EventTransactionDiscarded,
		TransactionID: hold.TransactionID,
		Timestamp:     time.Now(),
	})

	return nil
}

// ListHeld returns active holds, newest first. branchID 0 means all branches.
func (s *Service) ListHeld(ctx context.Context, branchID int64) ([]HeldTransactionView, error) {
	holds, err := s.repo.ListActiveHolds(ctx, branchID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	views := make([]HeldTransactionView, len(holds))
	for i, h := range holds {
		views[i] = HeldTransactionView{
			HeldTransaction: h,
			Expired:         now.After(h.ExpiresAt),
		}
	}
	return views, nil
}
