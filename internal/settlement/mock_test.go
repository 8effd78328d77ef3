package settlement

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taklabs/coordinator/pkg/model"
)

func TestMockAdapter_ExecutePayment(t *testing.T) {
	adapter := NewMockAdapter(zap.NewNop(), 0)

	receipt, err := adapter.ExecutePayment(context.Background(), model.DealSnapshot{
		DealID:     "deal_abc",
		PayerID:    "agt_payer",
		PayeeID:    "agt_payee",
		AmountNano: 1_500_000_000,
	})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(receipt, "mock_receipt_"))
	assert.Len(t, receipt, len("mock_receipt_")+16)
}

func TestMockAdapter_UniqueReceipts(t *testing.T) {
	adapter := NewMockAdapter(nil, 0)
	ctx := context.Background()

	r1, err := adapter.ExecutePayment(ctx, model.DealSnapshot{DealID: "deal_1"})
	require.NoError(t, err)
	r2, err := adapter.ExecutePayment(ctx, model.DealSnapshot{DealID: "deal_1"})
	require.NoError(t, err)

	assert.NotEqual(t, r1, r2)
}

func TestMockAdapter_ContextCancelled(t *testing.T) {
	adapter := NewMockAdapter(zap.NewNop(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := adapter.ExecutePayment(ctx, model.DealSnapshot{DealID: "deal_abc"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockAdapter_Name(t *testing.T) {
	assert.Equal(t, "mock", NewMockAdapter(nil, 0).Name())
}
