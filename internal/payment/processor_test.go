package payment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/cardwise/internal/common"
	"github.com/Veraticus/cardwise/internal/model"
	"github.com/Veraticus/cardwise/internal/rewards"
	"github.com/Veraticus/cardwise/internal/service"
	"github.com/Veraticus/cardwise/internal/testutil"
)

var fixedNow = time.Date(2025, 7, 31, 9, 30, 0, 0, time.UTC)

type harness struct {
	db        *testutil.TestDB
	notifier  *rewards.MemoryNotifier
	processor *Processor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.SetupTestDB(t)
	notifier := &rewards.MemoryNotifier{}

	p, err := NewProcessor(db.Storage, rewards.NewCalculator(nil), notifier, nil,
		WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)

	return &harness{db: db, notifier: notifier, processor: p}
}

func webhook(id string, status model.PaymentStatus) model.PaymentWebhookData {
	return model.PaymentWebhookData{
		TransactionID: id,
		Status:        status,
		Timestamp:     "2025-07-31T09:29:58Z",
		Gateway:       "razorpay",
		ReferenceID:   "pay_29QQoUBi66xm2f",
	}
}

func TestProcessWebhook_Completed(t *testing.T) {
	h := newHarness(t)
	txn := h.db.MustSave(testutil.HDFCSpent.Parsed(), "user-1")

	result := h.processor.ProcessWebhook(context.Background(), webhook(txn.ID, model.StatusCompleted))

	require.True(t, result.Success, "errors: %v", result.Errors)
	assert.Equal(t, txn.ID, result.TransactionID)
	assert.Equal(t, "completed", result.Status)
	assert.Equal(t, "2025-07-31T09:30:00.000Z", result.ProcessedAt)

	require.NotNil(t, result.Rewards)
	assert.Equal(t, rewards.CategoryFoodDelivery, result.Rewards.Category)
	assert.Equal(t, rewards.StatusEarned, result.Rewards.Status)
	assert.InDelta(t, 39.95, result.Rewards.Cashback, 1e-9)
	assert.InDelta(t, 80.0, result.Rewards.Points, 1e-9)

	require.Len(t, result.Notifications, 2)
	assert.Equal(t, model.NotifyTransactionComplete, result.Notifications[0].Type)
	assert.Equal(t, ChannelPush, result.Notifications[0].Channel)
	assert.Equal(t, model.NotifyRewardEarned, result.Notifications[1].Type)
	assert.Equal(t, ChannelEmail, result.Notifications[1].Channel)
	for _, n := range result.Notifications {
		assert.True(t, n.Sent)
		assert.Equal(t, "user-1", n.UserID)
	}
	assert.Equal(t, []model.NotificationType{model.NotifyTransactionComplete, model.NotifyRewardEarned}, h.notifier.Types())

	stored := h.db.MustGet(txn.ID)
	assert.Equal(t, model.StatusCompleted, stored.Status)

	history, err := h.db.Storage.GetStatusHistory(context.Background(), txn.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, UpdatedByWebhook, history[1].UpdatedBy)
	assert.Equal(t, "gateway=razorpay reference=pay_29QQoUBi66xm2f", history[1].Notes)
}

// gatedStore holds the first n reads until all of them have arrived, so that
// concurrent deliveries observe the same stored status.
type gatedStore struct {
	service.TransactionStore
	release chan struct{}
	mu      sync.Mutex
	waiting int
}

func newGatedStore(store service.TransactionStore, n int) *gatedStore {
	return &gatedStore{TransactionStore: store, release: make(chan struct{}), waiting: n}
}

func (g *gatedStore) GetSMSTransaction(ctx context.Context, id string) (*model.SMSTransaction, error) {
	txn, err := g.TransactionStore.GetSMSTransaction(ctx, id)

	g.mu.Lock()
	gated := g.waiting > 0
	if gated {
		g.waiting--
		if g.waiting == 0 {
			close(g.release)
		}
	}
	g.mu.Unlock()

	if gated {
		select {
		case <-g.release:
		case <-time.After(2 * time.Second):
		}
	}
	return txn, err
}

func TestProcessWebhook_ConcurrentDuplicateDelivery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	notifier := &rewards.MemoryNotifier{}
	txn := db.MustSave(testutil.HDFCSpent.Parsed(), "user-1")

	p, err := NewProcessor(newGatedStore(db.Storage, 2), rewards.NewCalculator(nil), notifier, nil,
		WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)

	results := make([]model.PaymentProcessingResult, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = p.ProcessWebhook(context.Background(), webhook(txn.ID, model.StatusCompleted))
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.True(t, r.Success, "errors: %v", r.Errors)
	}

	earned := 0
	for _, kind := range notifier.Types() {
		if kind == model.NotifyRewardEarned {
			earned++
		}
	}
	assert.Equal(t, 1, earned)

	history, err := db.Storage.GetStatusHistory(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, model.StatusCompleted, db.MustGet(txn.ID).Status)
}

func TestProcessWebhook_Failed(t *testing.T) {
	h := newHarness(t)
	txn := h.db.MustSave(testutil.SBIStandard.Parsed(), "user-2")

	data := webhook(txn.ID, model.StatusFailed)
	data.FailureReason = "insufficient funds"
	result := h.processor.ProcessWebhook(context.Background(), data)

	require.True(t, result.Success, "errors: %v", result.Errors)
	assert.Nil(t, result.Rewards)
	require.Len(t, result.Notifications, 1)
	assert.Equal(t, model.NotifyTransactionFailed, result.Notifications[0].Type)
	assert.Equal(t, "insufficient funds", result.Notifications[0].Reason)
	assert.Equal(t, model.StatusFailed, h.db.MustGet(txn.ID).Status)
}

func TestProcessWebhook_Refunded(t *testing.T) {
	h := newHarness(t)
	txn := h.db.MustSave(testutil.HDFCSpent.Parsed(), "user-1")
	ctx := context.Background()

	require.True(t, h.processor.ProcessWebhook(ctx, webhook(txn.ID, model.StatusCompleted)).Success)
	result := h.processor.ProcessWebhook(ctx, webhook(txn.ID, model.StatusRefunded))

	require.True(t, result.Success, "errors: %v", result.Errors)
	require.NotNil(t, result.Rewards)
	assert.Equal(t, rewards.StatusReversed, result.Rewards.Status)
	assert.InDelta(t, -39.95, result.Rewards.Cashback, 1e-9)
	assert.InDelta(t, -80.0, result.Rewards.Points, 1e-9)

	require.Len(t, result.Notifications, 2)
	assert.Equal(t, model.NotifyRefundProcessed, result.Notifications[0].Type)
	assert.Equal(t, model.NotifyRewardAdjusted, result.Notifications[1].Type)
	assert.Equal(t, model.StatusRefunded, h.db.MustGet(txn.ID).Status)
}

func TestProcessWebhook_Cancelled(t *testing.T) {
	h := newHarness(t)
	txn := h.db.MustSave(testutil.ChaseStandard.Parsed(), "user-3")

	result := h.processor.ProcessWebhook(context.Background(), webhook(txn.ID, model.StatusCancelled))

	assert.True(t, result.Success)
	assert.Nil(t, result.Rewards)
	assert.Empty(t, result.Notifications)
	assert.Equal(t, model.StatusCancelled, h.db.MustGet(txn.ID).Status)
}

func TestProcessWebhook_Errors(t *testing.T) {
	h := newHarness(t)
	txn := h.db.MustSave(testutil.HDFCSpent.Parsed(), "user-1")
	negative := -5.0

	tests := []struct {
		name    string
		data    model.PaymentWebhookData
		wantErr string
	}{
		{
			name:    "missing transaction id",
			data:    webhook("", model.StatusCompleted),
			wantErr: "transactionId is required",
		},
		{
			name:    "missing status",
			data:    webhook(txn.ID, ""),
			wantErr: "status is required",
		},
		{
			name:    "unknown status",
			data:    webhook(txn.ID, "settled"),
			wantErr: `invalid status "settled"`,
		},
		{
			name: "missing timestamp",
			data: func() model.PaymentWebhookData {
				d := webhook(txn.ID, model.StatusCompleted)
				d.Timestamp = ""
				return d
			}(),
			wantErr: "timestamp is required",
		},
		{
			name: "negative amount",
			data: func() model.PaymentWebhookData {
				d := webhook(txn.ID, model.StatusCompleted)
				d.Amount = &negative
				return d
			}(),
			wantErr: "amount must not be negative",
		},
		{
			name:    "unknown transaction",
			data:    webhook("missing", model.StatusCompleted),
			wantErr: "not found",
		},
		{
			name:    "illegal transition",
			data:    webhook(txn.ID, model.StatusRefunded),
			wantErr: "cannot move transaction from pending to refunded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := h.processor.ProcessWebhook(context.Background(), tt.data)

			assert.False(t, result.Success)
			assert.Equal(t, "error", result.Status)
			assert.NotEmpty(t, result.ProcessedAt)
			require.Len(t, result.Errors, 1)
			assert.Contains(t, result.Errors[0], tt.wantErr)
		})
	}

	assert.Equal(t, model.StatusPending, h.db.MustGet(txn.ID).Status)
	assert.Empty(t, h.notifier.Sent())
}

func TestProcessWebhook_DuplicateDelivery(t *testing.T) {
	h := newHarness(t)
	txn := h.db.MustSave(testutil.HDFCSpent.Parsed(), "user-1")
	ctx := context.Background()

	first := h.processor.ProcessWebhook(ctx, webhook(txn.ID, model.StatusCompleted))
	require.True(t, first.Success)

	again := h.processor.ProcessWebhook(ctx, webhook(txn.ID, model.StatusCompleted))
	assert.True(t, again.Success)
	assert.Nil(t, again.Rewards)
	assert.Empty(t, again.Notifications)
	assert.Len(t, h.notifier.Sent(), 2)

	history, err := h.db.Storage.GetStatusHistory(ctx, txn.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestProcessWebhook_NotifierFailure(t *testing.T) {
	h := newHarness(t)
	h.notifier.Err = errors.New("push gateway down")
	txn := h.db.MustSave(testutil.HDFCSpent.Parsed(), "user-1")

	result := h.processor.ProcessWebhook(context.Background(), webhook(txn.ID, model.StatusCompleted))

	assert.True(t, result.Success)
	require.Len(t, result.Notifications, 2)
	for _, n := range result.Notifications {
		assert.False(t, n.Sent)
	}
}

func TestProcessWebhook_RewardFailure(t *testing.T) {
	h := newHarness(t)
	parsed := testutil.HDFCSpent.Parsed()
	parsed.Transaction.Amount = 0
	txn := h.db.MustSave(parsed, "user-1")

	result := h.processor.ProcessWebhook(context.Background(), webhook(txn.ID, model.StatusCompleted))

	assert.False(t, result.Success)
	assert.Equal(t, "completed", result.Status)
	assert.Nil(t, result.Rewards)
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "reward calculation failed"))
	require.Len(t, result.Notifications, 1)
	assert.Equal(t, model.NotifyTransactionComplete, result.Notifications[0].Type)
	assert.Equal(t, model.StatusCompleted, h.db.MustGet(txn.ID).Status)
}

func TestUpdateStatus(t *testing.T) {
	h := newHarness(t)
	txn := h.db.MustSave(testutil.HDFCSpent.Parsed(), "user-1")
	ctx := context.Background()

	require.NoError(t, h.processor.UpdateStatus(ctx, txn.ID, model.StatusFailed, "", "card declined"))
	require.NoError(t, h.processor.UpdateStatus(ctx, txn.ID, model.StatusPending, "ops", ""))

	err := h.processor.UpdateStatus(ctx, txn.ID, model.StatusRefunded, "", "")
	assert.ErrorIs(t, err, common.ErrInvalidStatusTransition)
	assert.Equal(t, common.KindInvalidInput, common.KindOf(err))

	err = h.processor.UpdateStatus(ctx, txn.ID, "settled", "", "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	err = h.processor.UpdateStatus(ctx, " ", model.StatusFailed, "", "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	err = h.processor.UpdateStatus(ctx, "missing", model.StatusFailed, "", "")
	assert.ErrorIs(t, err, common.ErrNotFound)

	status, err := h.processor.GetTransactionStatus(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, status.Status)
	require.Len(t, status.History, 3)
	assert.Equal(t, UpdatedByAPI, status.History[1].UpdatedBy)
	assert.Equal(t, "card declined", status.History[1].Notes)
	assert.Equal(t, "ops", status.History[2].UpdatedBy)
	assert.Equal(t, "2025-07-31T09:30:00.000Z", status.LastUpdated)
}

func TestGetTransactionStatus_Errors(t *testing.T) {
	h := newHarness(t)

	_, err := h.processor.GetTransactionStatus(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = h.processor.GetTransactionStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}

func TestTriggerRewards(t *testing.T) {
	h := newHarness(t)
	txn := h.db.MustSave(testutil.SBIStandard.Parsed(), "user-2")
	ctx := context.Background()

	_, err := h.processor.TriggerRewards(ctx, txn.ID)
	assert.ErrorIs(t, err, common.ErrInvalidStatusTransition)

	require.NoError(t, h.processor.UpdateStatus(ctx, txn.ID, model.StatusCompleted, "", ""))
	reward, err := h.processor.TriggerRewards(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, rewards.CategoryShopping, reward.Category)
	assert.InDelta(t, 62.5, reward.Cashback, 1e-9)

	bare, err := NewProcessor(h.db.Storage, nil, nil, nil)
	require.NoError(t, err)
	_, err = bare.TriggerRewards(ctx, txn.ID)
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestProcessorStats(t *testing.T) {
	h := newHarness(t)
	txn := h.db.MustSave(testutil.HDFCSpent.Parsed(), "user-1")
	ctx := context.Background()

	assert.Equal(t, Stats{}, h.processor.Stats())

	h.processor.ProcessWebhook(ctx, webhook(txn.ID, model.StatusCompleted))
	h.processor.ProcessWebhook(ctx, webhook("missing", model.StatusCompleted))

	stats := h.processor.Stats()
	assert.Equal(t, int64(2), stats.TotalProcessed)
	assert.Equal(t, int64(1), stats.Succeeded)
	assert.Equal(t, int64(1), stats.Failed)
	assert.InDelta(t, 0.5, stats.SuccessRate, 1e-9)
	assert.Equal(t, "2025-07-31T09:30:00.000Z", stats.LastUpdated)
}

func TestNewProcessor_RequiresStore(t *testing.T) {
	_, err := NewProcessor(nil, nil, nil, nil)
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
