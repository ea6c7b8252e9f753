package pos

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	EventTransactionCreated   = "transaction.created"
	EventTransactionHeld      = "transaction.held"
	EventTransactionResumed   = "transaction.resumed"
	EventTransactionDiscarded = "transaction.discarded"
	EventRefundCreated        = "refund.created"
	EventRefundStatusChanged  = "refund.status_changed"
	EventLoyaltyAccrued       = "loyalty.accrued"
)

type Event struct {
	EventType         string    `json:"event_type"`
	TransactionID     int64     `json:"transaction_id,omitempty"`
	TransactionNumber string    `json:"transaction_number,omitempty"`
	BranchID          int64     `json:"branch_id,omitempty"`
	CashierID         int64     `json:"cashier_id,omitempty"`
	CustomerID        *int64    `json:"customer_id,omitempty"`
	Points            int32     `json:"points,omitempty"`
	Amount            string    `json:"amount,omitempty"`
	Status            string    `json:"status,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// Publisher fans sale lifecycle events out to interested collaborators
// (loyalty, reporting, warehouse reconciliation).
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, _ Event) error { return nil }

type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := fmt.Sprintf("pos:events:%s", event.EventType)
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if err := p.client.Publish(ctx, "pos:events:all", payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to all channel: %w", err)
	}

	return nil
}

// LoyaltyAccruer credits points to a customer account. The loyalty ledger
// itself lives in an external service; the default implementation hands the
// accrual off on the event bus.
type LoyaltyAccruer interface {
	Accrue(ctx context.Context, customerID int64, points int32, transactionNumber string) error
}

type eventLoyalty struct {
	publisher Publisher
}

func (l eventLoyalty) Accrue(ctx context.Context, customerID int64, points int32, transactionNumber string) error {
	return l.publisher.Publish(ctx, Event{
		EventType:         EventLoyaltyAccrued,
		TransactionNumber: transactionNumber,
		CustomerID:        &customerID,
		Points:            points,
		Timestamp:         time.Now(),
	})
}
