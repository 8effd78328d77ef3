package api

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taklabs/coordinator/internal/idempotency"
	"github.com/taklabs/coordinator/pkg/model"
)

func newGuard() *idempotency.Guard {
	return idempotency.NewGuard(idempotency.NewMemoryStore(time.Minute), zap.NewNop())
}

func TestIdempotency_ReplaySameKeyExecutesOnce(t *testing.T) {
	var executions atomic.Int64
	neg := &mockNegotiation{
		createRequestFn: func(_ context.Context, requesterID, query string, maxPrice int64) (*model.Request, error) {
			n := executions.Add(1)
			return &model.Request{
				ID:           model.NewRequestID(),
				RequesterID:  requesterID,
				ServiceQuery: query,
				MaxPriceNano: maxPrice,
				Status:       model.RequestOpen,
				CreatedAt:    time.Unix(n, 0).UTC(),
			}, nil
		},
	}

	app := fiber.New()
	handler := NewHandler(zap.NewNop(), neg, &mockDeals{}, "mock")
	RegisterRoutes(app, nil, storeStub{}, handler, newGuard())

	body := `{"requester_agent_id":"agt_buyer","service_query":"data","max_price_nano":2000000000}`
	send := func() *http.Response {
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/requests", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(HeaderIdempotencyKey, "key-123")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	first := send()
	second := send()

	assert.Equal(t, int64(1), executions.Load())
	assert.Equal(t, fiber.StatusCreated, first.StatusCode)
	assert.Equal(t, fiber.StatusCreated, second.StatusCode)
	assert.Equal(t, "true", second.Header.Get("Idempotency-Replayed"))
	assert.Empty(t, first.Header.Get("Idempotency-Replayed"))

	firstBody, err := io.ReadAll(first.Body)
	require.NoError(t, err)
	secondBody, err := io.ReadAll(second.Body)
	require.NoError(t, err)
	assert.Equal(t, firstBody, secondBody)
}

func TestIdempotency_KeyFromBodyField(t *testing.T) {
	var executions atomic.Int64
	neg := &mockNegotiation{
		createRequestFn: func(_ context.Context, requesterID, query string, maxPrice int64) (*model.Request, error) {
			executions.Add(1)
			return &model.Request{ID: "req_fixed", Status: model.RequestOpen}, nil
		},
	}

	app := fiber.New()
	handler := NewHandler(zap.NewNop(), neg, &mockDeals{}, "mock")
	RegisterRoutes(app, nil, storeStub{}, handler, newGuard())

	body := `{"requester_agent_id":"agt_buyer","service_query":"data","max_price_nano":100,"idempotency_key":"body-key-1"}`
	for i := 0; i < 3; i++ {
		resp := postJSON(t, app, "/api/v1/requests", body)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}
	assert.Equal(t, int64(1), executions.Load())
}

func TestIdempotency_DistinctKeysExecuteSeparately(t *testing.T) {
	var executions atomic.Int64
	neg := &mockNegotiation{
		createRequestFn: func(context.Context, string, string, int64) (*model.Request, error) {
			executions.Add(1)
			return &model.Request{ID: model.NewRequestID(), Status: model.RequestOpen}, nil
		},
	}

	app := fiber.New()
	handler := NewHandler(zap.NewNop(), neg, &mockDeals{}, "mock")
	RegisterRoutes(app, nil, storeStub{}, handler, newGuard())

	body := `{"requester_agent_id":"agt_buyer","service_query":"data","max_price_nano":100}`
	for _, key := range []string{"key-a", "key-b"} {
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/requests", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(HeaderIdempotencyKey, key)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}
	assert.Equal(t, int64(2), executions.Load())
}

func TestIdempotency_NoKeyIsNeverCached(t *testing.T) {
	var executions atomic.Int64
	neg := &mockNegotiation{
		createRequestFn: func(context.Context, string, string, int64) (*model.Request, error) {
			executions.Add(1)
			return &model.Request{ID: model.NewRequestID(), Status: model.RequestOpen}, nil
		},
	}

	app := fiber.New()
	handler := NewHandler(zap.NewNop(), neg, &mockDeals{}, "mock")
	RegisterRoutes(app, nil, storeStub{}, handler, newGuard())

	body := `{"requester_agent_id":"agt_buyer","service_query":"data","max_price_nano":100}`
	postJSON(t, app, "/api/v1/requests", body)
	postJSON(t, app, "/api/v1/requests", body)
	assert.Equal(t, int64(2), executions.Load())
}

func TestIdempotency_ErrorResponsesNotRecorded(t *testing.T) {
	var executions atomic.Int64
	neg := &mockNegotiation{
		createRequestFn: func(context.Context, string, string, int64) (*model.Request, error) {
			n := executions.Add(1)
			if n == 1 {
				return nil, assert.AnError
			}
			return &model.Request{ID: "req_retry_ok", Status: model.RequestOpen}, nil
		},
	}

	app := fiber.New()
	handler := NewHandler(zap.NewNop(), neg, &mockDeals{}, "mock")
	RegisterRoutes(app, nil, storeStub{}, handler, newGuard())

	body := `{"requester_agent_id":"agt_buyer","service_query":"data","max_price_nano":100,"idempotency_key":"retry-key"}`

	resp := postJSON(t, app, "/api/v1/requests", body)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	// A failed attempt must not poison the key; the retry executes.
	resp = postJSON(t, app, "/api/v1/requests", body)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, int64(2), executions.Load())
}

func TestIdempotency_GetRequestsBypassGuard(t *testing.T) {
	var lists atomic.Int64
	neg := &mockNegotiation{
		listRequestsFn: func(context.Context) ([]model.Request, error) {
			lists.Add(1)
			return nil, nil
		},
	}

	app := fiber.New()
	handler := NewHandler(zap.NewNop(), neg, &mockDeals{}, "mock")
	RegisterRoutes(app, nil, storeStub{}, handler, newGuard())

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/requests", nil)
		req.Header.Set(HeaderIdempotencyKey, "key-get")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
	assert.Equal(t, int64(2), lists.Load())
}
