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

func generateRefundNumber() string {
	return fmt.Sprintf("RFN-%d-%04d", time.Now().UnixMilli(), rand.Intn(10000))
}

// CreateRefund opens a pending refund against a completed sale. The amount
// plus every prior non-rejected refund must not exceed the original total.
func (s *Service) CreateRefund(ctx context.Context, transactionID int64, reason string, amount decimal.Decimal, processedBy int64) (*models.Refund, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: reason required", store.ErrInvalidInput)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: refund_amount must be positive", store.ErrInvalidInput)
	}

	txn, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if txn.Status != models.TransactionCompleted && txn.Status != models.TransactionRefunded {
		return nil, fmt.Errorf("%w: cannot refund a %s transaction", store.ErrStateConflict, txn.Status)
	}

	prior, err := s.repo.ListRefundsByTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	refunded := decimal.Zero
	for _, r := range prior {
		if r.Status != models.RefundRejected {
			refunded = refunded.Add(r.RefundAmount)
		}
	}
	if refunded.Add(amount).GreaterThan(txn.Total) {
		return nil, store.ErrRefundExceedsTotal
	}

	refund := &models.Refund{
		TransactionID: transactionID,
		Reason:        reason,
		RefundAmount:  amount,
		Status:        models.RefundPending,
		ProcessedBy:   processedBy,
	}

	for attempt := 0; attempt < numberAttempts; attempt++ {
		refund.RefundNumber = generateRefundNumber()
		err = s.repo.CreateRefund(ctx, refund)
		if !errors.Is(err, store.ErrDuplicateTransactionNumber) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Event{
		EventType:         EventRefundCreated,
		TransactionID:     transactionID,
		TransactionNumber: txn.TransactionNumber,
		Amount:            amount.StringFixed(2),
		Status:            string(models.RefundPending),
		Timestamp:         time.Now(),
	})

	return refund, nil
}

func (s *Service) ApproveRefund(ctx context.Context, refundID int64) (*models.Refund, error) {
	return s.transitionRefund(ctx, refundID, models.RefundPending, models.RefundApproved)
}

func (s *Service) RejectRefund(ctx context.Context, refundID int64) (*models.Refund, error) {
	return s.transitionRefund(ctx, refundID, models.RefundPending, models.RefundRejected)
}

// CompleteRefund finishes an approved refund. Once the completed refunds
// cover the full total, the original transaction becomes refunded.
func (s *Service) CompleteRefund(ctx context.Context, refundID int64) (*models.Refund, error) {
	refund, err := s.transitionRefund(ctx, refundID, models.RefundApproved, models.RefundCompleted)
	if err != nil {
		return nil, err
	}

	// The refund itself is already completed; the status flip on the parent
	// sale is best-effort and must not fail the caller.
	txn, err := s.repo.GetTransaction(ctx, refund.TransactionID)
	if err != nil {
		log.Printf("[pos] WARN: refund %s completed but transaction %d could not be loaded, refunded flip skipped: %v", refund.RefundNumber, refund.TransactionID, err)
		return refund, nil
	}

	all, err := s.repo.ListRefundsByTransaction(ctx, refund.TransactionID)
	if err != nil {
		log.Printf("[pos] WARN: refund %s completed but refunds for transaction %d could not be listed, refunded flip skipped: %v", refund.RefundNumber, refund.TransactionID, err)
		return refund, nil
	}

	completed := decimal.Zero
	for _, r := range all {
		if r.Status == models.RefundCompleted {
			completed = completed.Add(r.RefundAmount)
		}
	}
	if completed.GreaterThanOrEqual(txn.Total) && txn.Status != models.TransactionRefunded {
		if err := s.repo.UpdateTransactionStatus(ctx, txn.ID, models.TransactionRefunded); err != nil {
			return refund, err
		}
	}

	return refund, nil
}

func (s *Service) transitionRefund(ctx context.Context, refundID int64, from, to models.RefundStatus) (*models.Refund, error) {
	refund, err := s.repo.GetRefund(ctx, refundID)
	if err != nil {
		return nil, err
	}

	if refund.Status != from {
		return nil, fmt.Errorf("%w: refund %s is %s, not %s", store.ErrStateConflict, refund.RefundNumber, refund.Status, from)
	}

	if err := s.repo.UpdateRefundStatus(ctx, refundID, to); err != nil {
		return nil, err
	}
	refund.Status = to

	s.publish(ctx, Event{
		EventType:     EventRefundStatusChanged,
		TransactionID: refund.TransactionID,
		Amount:        refund.RefundAmount.StringFixed(2),
		Status:        string(to),
		Timestamp:     time.Now(),
	})

	return refund, nil
}

func (s *Service) GetRefundsByTransaction(ctx context.Context, transactionID int64) ([]models.Refund, error) {
	if _, err := s.repo.GetTransaction(ctx, transactionID); err != nil {
		return nil, err
	}
	return s.repo.ListRefundsByTransaction(ctx, transactionID)
}
