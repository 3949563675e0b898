package rewards

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Veraticus/cardwise/internal/common"
	"github.com/Veraticus/cardwise/internal/model"
)

// LogNotifier delivers notifications by logging them.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier writing to logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: common.LoggerOrDefault(logger)}
}

// Notify logs n.
func (l *LogNotifier) Notify(ctx context.Context, n model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.logger.Info("notification sent",
		"type", n.Type,
		"channel", n.Channel,
		"transaction_id", n.TransactionID,
		"user_id", n.UserID,
		"reason", n.Reason,
		"request_id", common.RequestIDFrom(ctx))
	return nil
}

// MemoryNotifier records notifications in memory.
type MemoryNotifier struct {
	Err  error
	sent []model.Notification
	mu   sync.Mutex
}

// Notify records n, or returns Err when it is set.
func (m *MemoryNotifier) Notify(_ context.Context, n model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, n)
	return nil
}

// Sent returns the notifications recorded so far.
func (m *MemoryNotifier) Sent() []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Notification, len(m.sent))
	copy(out, m.sent)
	return out
}

// Types returns the type of every recorded notification in order.
func (m *MemoryNotifier) Types() []model.NotificationType {
	sent := m.Sent()
	out := make([]model.NotificationType, len(sent))
	for i, n := range sent {
		out[i] = n.Type
	}
	return out
}
