package api

import (
	"context"
	"time"

	"github.com/taklabs/coordinator/pkg/model"
)

// storeStub satisfies store.Store for routes that only need the health
// probe; everything else is a no-op.
type storeStub struct{}

func (storeStub) GetAgent(context.Context, string) (*model.Agent, error)  { return nil, nil }
func (storeStub) PutAgent(context.Context, model.Agent) error             { return nil }
func (storeStub) CreateRequest(context.Context, model.Request) error      { return nil }
func (storeStub) GetRequest(context.Context, string) (*model.Request, error) {
	return nil, nil
}
func (storeStub) ListRequests(context.Context) ([]model.Request, error) { return nil, nil }
func (storeStub) CancelRequest(context.Context, string) (*model.Request, error) {
	return nil, nil
}
func (storeStub) CreateOffer(context.Context, model.Offer) error { return nil }
func (storeStub) GetOffer(context.Context, string) (*model.Offer, error) {
	return nil, nil
}
func (storeStub) ListOffers(context.Context, string) ([]model.Offer, error) { return nil, nil }
func (storeStub) AcceptOffer(context.Context, string) (*model.Offer, int64, error) {
	return nil, 0, nil
}
func (storeStub) RejectOffer(context.Context, string) (*model.Offer, error) {
	return nil, nil
}
func (storeStub) CreateDeal(context.Context, model.Deal) error { return nil }
func (storeStub) GetDeal(context.Context, string) (*model.Deal, error) {
	return nil, nil
}
func (storeStub) ListDeals(context.Context) ([]model.Deal, error) { return nil, nil }
func (storeStub) ApproveDeal(context.Context, string, time.Time) (*model.Deal, error) {
	return nil, nil
}
func (storeStub) MarkDealExecuted(context.Context, string, string, time.Time) (*model.Deal, error) {
	return nil, nil
}
func (storeStub) MarkDealFailed(context.Context, string) (*model.Deal, error) {
	return nil, nil
}
func (storeStub) CancelDeal(context.Context, string) (*model.Deal, error) {
	return nil, nil
}
func (storeStub) HealthCheck(context.Context) error { return nil }
func (storeStub) Close() error                      { return nil }
