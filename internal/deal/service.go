// Package deal owns the deal state machine: creation from an accepted
// offer, the explicit approval gate, execution through the settlement
// adapter, and cancellation. Every mutation travels a legal edge
// exactly once; payer, payee and amount are sealed at creation.
package deal

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taklabs/coordinator/internal/events"
	"github.com/taklabs/coordinator/internal/metrics"
	"github.com/taklabs/coordinator/internal/settlement"
	"github.com/taklabs/coordinator/internal/store"
	"github.com/taklabs/coordinator/pkg/fault"
	"github.com/taklabs/coordinator/pkg/model"
)

// Service manages the deal lifecycle against the ledger store.
type Service struct {
	store   store.Store
	adapter settlement.Adapter
	events  *events.Publisher
	logger  *zap.Logger
}

// NewService creates a deal lifecycle service. events may be nil.
func NewService(st store.Store, adapter settlement.Adapter, pub *events.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, adapter: adapter, events: pub, logger: logger}
}

// Create seals a new deal from an accepted offer. Payer, payee and
// amount are copied from the request/offer at this instant and never
// recomputed afterwards, even if those records later change.
func (s *Service) Create(ctx context.Context, requestID, offerID string) (*model.Deal, error) {
	start := time.Now()
	var err error
	defer func() { metrics.ObserveOperation("create_deal", start, err) }()

	if strings.TrimSpace(requestID) == "" || strings.TrimSpace(offerID) == "" {
		err = fault.InvalidArgument("request_id and offer_id are required")
		return nil, err
	}

	offer, err := s.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, fault.Internal(err, "load offer")
	}
	if offer == nil {
		err = fault.NotFound("offer %s not found", offerID)
		return nil, err
	}
	if offer.Status != model.OfferAccepted {
		err = fault.ConflictStatus(string(offer.Status), "only accepted offers can back a deal")
		return nil, err
	}
	if offer.RequestID != requestID {
		err = fault.Conflict("offer %s does not belong to request %s", offerID, requestID)
		return nil, err
	}

	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, fault.Internal(err, "load request")
	}
	if req == nil {
		err = fault.NotFound("request %s not found", requestID)
		return nil, err
	}

	d := model.Deal{
		ID:         model.NewDealID(),
		RequestID:  requestID,
		OfferID:    offerID,
		PayerID:    req.RequesterID,
		PayeeID:    offer.ProviderID,
		AmountNano: offer.PriceNano,
		Status:     model.DealAwaitingApproval,
		CreatedAt:  time.Now().UTC(),
	}
	if err = s.store.CreateDeal(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Info("deal.created",
		zap.String("deal_id", d.ID),
		zap.String("offer_id", offerID),
		zap.Int64("amount_nano", d.AmountNano))
	s.events.Publish(ctx, "deal.created", d)

	return &d, nil
}

// Get returns a deal by ID.
func (s *Service) Get(ctx context.Context, id string) (*model.Deal, error) {
	d, err := s.store.GetDeal(ctx, id)
	if err != nil {
		return nil, fault.Internal(err, "load deal")
	}
	if d == nil {
		return nil, fault.NotFound("deal %s not found", id)
	}
	return d, nil
}

// List returns all deals, newest first.
func (s *Service) List(ctx context.Context) ([]model.Deal, error) {
	deals, err := s.store.ListDeals(ctx)
	if err != nil {
		return nil, fault.Internal(err, "list deals")
	}
	return deals, nil
}

// Approve flips a deal from awaiting_approval to approved and stamps
// approved_at. This gate is deliberate: execution can never be reached
// from creation without it.
func (s *Service) Approve(ctx context.Context, id string) (*model.Deal, error) {
	start := time.Now()
	d, err := s.store.ApproveDeal(ctx, id, time.Now().UTC())
	metrics.ObserveOperation("approve_deal", start, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("deal.approved", zap.String("deal_id", id))
	s.events.Publish(ctx, "deal.approved", d)
	return d, nil
}

// Execute hands the sealed snapshot of an approved deal to the
// settlement adapter. Adapter success records the receipt and marks the
// deal executed; adapter failure marks it failed — a terminal state,
// re-execution requires a brand-new deal. The adapter error is returned
// alongside the failed deal so the caller sees both.
func (s *Service) Execute(ctx context.Context, id string) (*model.Deal, error) {
	start := time.Now()
	var err error
	defer func() { metrics.ObserveOperation("execute_deal", start, err) }()

	d, err := s.store.GetDeal(ctx, id)
	if err != nil {
		return nil, fault.Internal(err, "load deal")
	}
	if d == nil {
		err = fault.NotFound("deal %s not found", id)
		return nil, err
	}
	if !d.Status.CanTransitionTo(model.DealExecuted) {
		if d.Status.Terminal() {
			err = fault.ConflictStatus(string(d.Status), "deal is terminal in state %s; settlement needs a new deal", d.Status)
		} else {
			err = fault.ConflictStatus(string(d.Status), "deal must be approved, currently %s", d.Status)
		}
		return nil, err
	}

	receipt, adapterErr := s.adapter.ExecutePayment(ctx, d.Snapshot())
	if adapterErr != nil {
		metrics.IncSettlement(s.adapter.Name(), "error")
		s.logger.Error("deal.execution_failed",
			zap.String("deal_id", id),
			zap.String("adapter", s.adapter.Name()),
			zap.Error(adapterErr))

		failed, markErr := s.store.MarkDealFailed(ctx, id)
		if markErr != nil {
			// The deal was raced into another state first; surface that
			// conflict rather than the adapter error.
			err = markErr
			return nil, err
		}
		s.events.Publish(ctx, "deal.failed", failed)
		err = fault.AdapterFailure(adapterErr, "settlement via %s failed", s.adapter.Name())
		return failed, err
	}

	metrics.IncSettlement(s.adapter.Name(), "ok")

	executed, err := s.store.MarkDealExecuted(ctx, id, receipt, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.logger.Info("deal.executed",
		zap.String("deal_id", id),
		zap.String("adapter", s.adapter.Name()),
		zap.String("receipt", receipt))
	s.events.Publish(ctx, "deal.executed", executed)

	return executed, nil
}

// Cancel is only legal from awaiting_approval.
func (s *Service) Cancel(ctx context.Context, id string) (*model.Deal, error) {
	start := time.Now()
	d, err := s.store.CancelDeal(ctx, id)
	metrics.ObserveOperation("cancel_deal", start, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("deal.cancelled", zap.String("deal_id", id))
	s.events.Publish(ctx, "deal.cancelled", d)
	return d, nil
}
