package settlement

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taklabs/coordinator/pkg/model"
	"github.com/taklabs/coordinator/pkg/money"
)

// MockAdapter is the development stand-in for a real settlement
// backend. It sleeps briefly to imitate backend latency and returns a
// synthetic receipt. It is explicitly not production execution.
type MockAdapter struct {
	logger *zap.Logger
	delay  time.Duration
}

// NewMockAdapter creates a mock adapter with the given simulated latency.
func NewMockAdapter(logger *zap.Logger, delay time.Duration) *MockAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MockAdapter{logger: logger, delay: delay}
}

func (m *MockAdapter) Name() string { return "mock" }

// ExecutePayment synthesizes a receipt of the form
// "mock_receipt_<16 hex chars>" after the configured delay.
func (m *MockAdapter) ExecutePayment(ctx context.Context, snap model.DealSnapshot) (string, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	receipt := "mock_receipt_" + raw[:16]

	m.logger.Info("settlement.mock.executed",
		zap.String("deal_id", snap.DealID),
		zap.String("payer", snap.PayerID),
		zap.String("payee", snap.PayeeID),
		zap.Int64("amount_nano", snap.AmountNano),
		zap.String("amount", money.FormatNano(snap.AmountNano)),
		zap.String("receipt", receipt))

	return receipt, nil
}
