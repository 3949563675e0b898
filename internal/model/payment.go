package model

import "time"

// PaymentStatus is the lifecycle state of a stored transaction.
type PaymentStatus string

// Payment statuses.
const (
	StatusPending   PaymentStatus = "pending"
	StatusCompleted PaymentStatus = "completed"
	StatusFailed    PaymentStatus = "failed"
	StatusCancelled PaymentStatus = "cancelled"
	StatusRefunded  PaymentStatus = "refunded"
)

var statusTransitions = map[PaymentStatus][]PaymentStatus{
	StatusPending:   {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted: {StatusRefunded},
	StatusFailed:    {StatusPending},
	StatusCancelled: {},
	StatusRefunded:  {},
}

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether a transaction in status s may move to next.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentWebhookData is the payload posted by a payment gateway.
type PaymentWebhookData struct {
	Metadata      map[string]any `json:"metadata,omitempty"`
	Amount        *float64       `json:"amount,omitempty"`
	TransactionID string         `json:"transactionId"`
	Status        PaymentStatus  `json:"status"`
	Currency      string         `json:"currency,omitempty"`
	Timestamp     string         `json:"timestamp"`
	Gateway       string         `json:"gateway,omitempty"`
	ReferenceID   string         `json:"referenceId,omitempty"`
	FailureReason string         `json:"failureReason,omitempty"`
}

// TransactionStatusUpdate records one status change.
type TransactionStatusUpdate struct {
	UpdatedAt     time.Time     `json:"updatedAt"`
	TransactionID string        `json:"transactionId"`
	Status        PaymentStatus `json:"status"`
	UpdatedBy     string        `json:"updatedBy"`
	Notes         string        `json:"notes,omitempty"`
	// From, when set, makes the update apply only while the stored status
	// still equals it.
	From PaymentStatus `json:"-"`
}

// RewardCalculation is the reward outcome of a completed or refunded transaction.
type RewardCalculation struct {
	TransactionID string  `json:"transactionId"`
	Category      string  `json:"category"`
	Status        string  `json:"status"`
	Cashback      float64 `json:"cashback"`
	Points        float64 `json:"points"`
	Multiplier    float64 `json:"multiplier"`
}

// NotificationType identifies the event a notification describes.
type NotificationType string

// Notification types.
const (
	NotifyTransactionComplete NotificationType = "transaction_complete"
	NotifyRewardEarned        NotificationType = "reward_earned"
	NotifyTransactionFailed   NotificationType = "transaction_failed"
	NotifyRefundProcessed     NotificationType = "refund_processed"
	NotifyRewardAdjusted      NotificationType = "reward_adjusted"
)

// Notification is a message dispatched to a user about a transaction.
type Notification struct {
	Timestamp     time.Time        `json:"timestamp"`
	TransactionID string           `json:"transactionId"`
	UserID        string           `json:"userId,omitempty"`
	Type          NotificationType `json:"type"`
	Channel       string           `json:"channel"`
	Reason        string           `json:"reason,omitempty"`
	Sent          bool             `json:"sent"`
}

// PaymentProcessingResult is the outcome of handling a payment webhook.
type PaymentProcessingResult struct {
	Rewards       *RewardCalculation `json:"rewardCalculations,omitempty"`
	TransactionID string             `json:"transactionId"`
	Status        string             `json:"status"`
	ProcessedAt   string             `json:"processedAt"`
	Notifications []Notification     `json:"notifications,omitempty"`
	Errors        []string           `json:"errors,omitempty"`
	Success       bool               `json:"success"`
}
