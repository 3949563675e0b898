// Package payment applies payment gateway webhooks to stored SMS
// transactions, triggering rewards and notifications on settlement.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/cardwise/internal/common"
	"github.com/Veraticus/cardwise/internal/model"
	"github.com/Veraticus/cardwise/internal/service"
)

// Actors recorded in the status history.
const (
	UpdatedByWebhook = "payment_webhook"
	UpdatedByAPI     = "api_request"
)

// Notification channels.
const (
	ChannelPush  = "push"
	ChannelEmail = "email"
)

// ResultStatusError is the result status of a webhook that was not applied.
const ResultStatusError = "error"

// TransactionStatus is the current status of a transaction and how it got there.
type TransactionStatus struct {
	TransactionID string                          `json:"transactionId"`
	Status        model.PaymentStatus             `json:"status"`
	LastUpdated   string                          `json:"lastUpdated"`
	History       []model.TransactionStatusUpdate `json:"history"`
}

// Processor handles payment webhooks and manual status changes.
type Processor struct {
	store    service.TransactionStore
	rewards  service.RewardCalculator
	notifier service.Notifier
	logger   *slog.Logger
	now      func() time.Time
	stats    processingStats
}

// Option configures a Processor.
type Option func(*Processor)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

// NewProcessor creates a processor. rewards and notifier may be nil, in which
// case settlement skips that step.
func NewProcessor(store service.TransactionStore, rewards service.RewardCalculator, notifier service.Notifier, logger *slog.Logger, opts ...Option) (*Processor, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: transaction store is required", common.ErrMissingConfig)
	}

	p := &Processor{
		store:    store,
		rewards:  rewards,
		notifier: notifier,
		logger:   common.LoggerOrDefault(logger),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ProcessWebhook applies data to its transaction. It never returns an error;
// failures are reported in the result with Success false.
func (p *Processor) ProcessWebhook(ctx context.Context, data model.PaymentWebhookData) model.PaymentProcessingResult {
	start := p.now()
	logger := p.logger.With("request_id", common.RequestIDFrom(ctx), "transaction_id", data.TransactionID)
	logger.Info("processing payment webhook", "status", data.Status, "gateway", data.Gateway)

	result, err := p.processWebhook(ctx, data, logger)
	if err != nil {
		logger.Warn("payment webhook failed", "error", err)
		result = model.PaymentProcessingResult{
			TransactionID: data.TransactionID,
			Status:        ResultStatusError,
			Errors:        []string{common.PublicMessage(err)},
		}
	}
	result.ProcessedAt = p.now().UTC().Format(model.TimestampLayout)
	result.Success = len(result.Errors) == 0

	p.stats.record(result.Success, p.now().Sub(start), p.now())
	logger.Info("payment webhook processed", "success", result.Success, "status", result.Status)
	return result
}

func (p *Processor) processWebhook(ctx context.Context, data model.PaymentWebhookData, logger *slog.Logger) (model.PaymentProcessingResult, error) {
	if err := ValidateWebhook(data); err != nil {
		return model.PaymentProcessingResult{}, err
	}

	txn, err := p.store.GetSMSTransaction(ctx, data.TransactionID)
	if err != nil {
		return model.PaymentProcessingResult{}, fmt.Errorf("failed to load transaction: %w", err)
	}

	result := model.PaymentProcessingResult{
		TransactionID: txn.ID,
		Status:        string(data.Status),
	}

	// Gateways redeliver; a repeat of the current status is acknowledged
	// without triggering rewards again.
	if txn.Status == data.Status {
		logger.Info("duplicate payment webhook ignored", "status", data.Status)
		return result, nil
	}

	if err := p.transition(ctx, txn, data.Status, UpdatedByWebhook, webhookNotes(data)); err != nil {
		if !errors.Is(err, common.ErrStatusConflict) {
			return model.PaymentProcessingResult{}, err
		}
		// A concurrent delivery won the update. If it applied the same
		// status this one is a duplicate.
		current, loadErr := p.store.GetSMSTransaction(ctx, data.TransactionID)
		if loadErr == nil && current.Status == data.Status {
			logger.Info("duplicate payment webhook ignored", "status", data.Status)
			return result, nil
		}
		return model.PaymentProcessingResult{}, err
	}

	switch data.Status {
	case model.StatusCompleted:
		p.applyRewards(ctx, txn, &result, false)
		p.notify(ctx, txn, &result, model.NotifyTransactionComplete, ChannelPush, "")
		if result.Rewards != nil {
			p.notify(ctx, txn, &result, model.NotifyRewardEarned, ChannelEmail, "")
		}
	case model.StatusFailed:
		p.notify(ctx, txn, &result, model.NotifyTransactionFailed, ChannelPush, data.FailureReason)
	case model.StatusRefunded:
		p.applyRewards(ctx, txn, &result, true)
		p.notify(ctx, txn, &result, model.NotifyRefundProcessed, ChannelPush, "")
		if result.Rewards != nil {
			p.notify(ctx, txn, &result, model.NotifyRewardAdjusted, ChannelEmail, "")
		}
	}

	return result, nil
}

// UpdateStatus moves a transaction to status outside of a webhook.
func (p *Processor) UpdateStatus(ctx context.Context, transactionID string, status model.PaymentStatus, updatedBy, notes string) error {
	if strings.TrimSpace(transactionID) == "" {
		return common.InvalidInput("transactionId is required")
	}
	if !status.Valid() {
		return common.InvalidInput(fmt.Sprintf("invalid status %q", status))
	}
	if updatedBy == "" {
		updatedBy = UpdatedByAPI
	}

	txn, err := p.store.GetSMSTransaction(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("failed to load transaction: %w", err)
	}
	return p.transition(ctx, txn, status, updatedBy, notes)
}

// GetTransactionStatus returns the status and history of a transaction.
func (p *Processor) GetTransactionStatus(ctx context.Context, transactionID string) (TransactionStatus, error) {
	if strings.TrimSpace(transactionID) == "" {
		return TransactionStatus{}, common.InvalidInput("transactionId is required")
	}

	txn, err := p.store.GetSMSTransaction(ctx, transactionID)
	if err != nil {
		return TransactionStatus{}, fmt.Errorf("failed to load transaction: %w", err)
	}

	history, err := p.store.GetStatusHistory(ctx, transactionID)
	if err != nil {
		return TransactionStatus{}, fmt.Errorf("failed to load status history: %w", err)
	}

	lastUpdated := txn.UpdatedAt
	if n := len(history); n > 0 && history[n-1].UpdatedAt.After(lastUpdated) {
		lastUpdated = history[n-1].UpdatedAt
	}

	return TransactionStatus{
		TransactionID: txn.ID,
		Status:        txn.Status,
		LastUpdated:   lastUpdated.UTC().Format(model.TimestampLayout),
		History:       history,
	}, nil
}

// TriggerRewards calculates rewards for a completed transaction on demand.
func (p *Processor) TriggerRewards(ctx context.Context, transactionID string) (model.RewardCalculation, error) {
	if p.rewards == nil {
		return model.RewardCalculation{}, fmt.Errorf("%w: reward calculator is not configured", common.ErrMissingConfig)
	}

	txn, err := p.store.GetSMSTransaction(ctx, transactionID)
	if err != nil {
		return model.RewardCalculation{}, fmt.Errorf("failed to load transaction: %w", err)
	}
	if txn.Status != model.StatusCompleted {
		return model.RewardCalculation{}, common.NewAppError(common.KindInvalidInput,
			fmt.Sprintf("transaction is %s, rewards need a completed transaction", txn.Status),
			common.ErrInvalidStatusTransition)
	}
	return p.rewards.Calculate(ctx, *txn)
}

// Stats returns webhook processing statistics.
func (p *Processor) Stats() Stats {
	return p.stats.snapshot()
}

func (p *Processor) transition(ctx context.Context, txn *model.SMSTransaction, status model.PaymentStatus, updatedBy, notes string) error {
	if !txn.Status.CanTransitionTo(status) {
		return common.NewAppError(common.KindInvalidInput,
			fmt.Sprintf("cannot move transaction from %s to %s", txn.Status, status),
			common.ErrInvalidStatusTransition)
	}

	err := p.store.UpdateTransactionStatus(ctx, model.TransactionStatusUpdate{
		TransactionID: txn.ID,
		Status:        status,
		From:          txn.Status,
		UpdatedBy:     updatedBy,
		Notes:         notes,
		UpdatedAt:     p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	p.logger.Info("transaction status updated",
		"transaction_id", txn.ID,
		"from", txn.Status,
		"to", status,
		"updated_by", updatedBy)
	txn.Status = status
	return nil
}

func (p *Processor) applyRewards(ctx context.Context, txn *model.SMSTransaction, result *model.PaymentProcessingResult, reverse bool) {
	if p.rewards == nil {
		return
	}

	calc := p.rewards.Calculate
	if reverse {
		calc = p.rewards.Reverse
	}

	reward, err := calc(ctx, *txn)
	if err != nil {
		p.logger.Warn("reward calculation failed", "transaction_id", txn.ID, "error", err)
		result.Errors = append(result.Errors, fmt.Sprintf("reward calculation failed: %s", common.PublicMessage(err)))
		return
	}
	result.Rewards = &reward
}

func (p *Processor) notify(ctx context.Context, txn *model.SMSTransaction, result *model.PaymentProcessingResult, kind model.NotificationType, channel, reason string) {
	n := model.Notification{
		Timestamp:     p.now().UTC(),
		TransactionID: txn.ID,
		UserID:        txn.UserID,
		Type:          kind,
		Channel:       channel,
		Reason:        reason,
	}

	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, n); err != nil {
			p.logger.Warn("notification failed", "transaction_id", txn.ID, "type", kind, "error", err)
		} else {
			n.Sent = true
		}
	}
	result.Notifications = append(result.Notifications, n)
}

// ValidateWebhook checks the fields every webhook must carry.
func ValidateWebhook(data model.PaymentWebhookData) error {
	var problems []string
	if strings.TrimSpace(data.TransactionID) == "" {
		problems = append(problems, "transactionId is required")
	}
	switch {
	case data.Status == "":
		problems = append(problems, "status is required")
	case !data.Status.Valid():
		problems = append(problems, fmt.Sprintf("invalid status %q", data.Status))
	}
	if strings.TrimSpace(data.Timestamp) == "" {
		problems = append(problems, "timestamp is required")
	}
	if data.Amount != nil && *data.Amount < 0 {
		problems = append(problems, "amount must not be negative")
	}

	if len(problems) > 0 {
		return common.InvalidInput(strings.Join(problems, "; "))
	}
	return nil
}

func webhookNotes(data model.PaymentWebhookData) string {
	var parts []string
	if data.Gateway != "" {
		parts = append(parts, "gateway="+data.Gateway)
	}
	if data.ReferenceID != "" {
		parts = append(parts, "reference="+data.ReferenceID)
	}
	if data.FailureReason != "" {
		parts = append(parts, "reason="+data.FailureReason)
	}
	return strings.Join(parts, " ")
}

// Stats summarizes webhook processing.
type Stats struct {
	LastUpdated           string  `json:"lastUpdated,omitempty"`
	TotalProcessed        int64   `json:"totalProcessed"`
	Succeeded             int64   `json:"succeeded"`
	Failed                int64   `json:"failed"`
	SuccessRate           float64 `json:"successRate"`
	AverageProcessingTime float64 `json:"averageProcessingTime"`
}

type processingStats struct {
	last    time.Time
	total   int64
	success int64
	elapsed time.Duration
	mu      sync.Mutex
}

func (s *processingStats) record(success bool, elapsed time.Duration, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if success {
		s.success++
	}
	s.elapsed += elapsed
	s.last = at
}

func (s *processingStats) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Stats{
		TotalProcessed: s.total,
		Succeeded:      s.success,
		Failed:         s.total - s.success,
	}
	if s.total > 0 {
		out.SuccessRate = float64(s.success) / float64(s.total)
		out.AverageProcessingTime = float64(s.elapsed.Milliseconds()) / float64(s.total)
	}
	if !s.last.IsZero() {
		out.LastUpdated = s.last.UTC().Format(model.TimestampLayout)
	}
	return out
}
