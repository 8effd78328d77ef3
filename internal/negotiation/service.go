// Package negotiation implements the request/offer half of the
// coordinator: requests opened under a price ceiling, competing offers,
// and the atomic acceptance that rejects every competitor and closes
// the request.
package negotiation

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taklabs/coordinator/internal/events"
	"github.com/taklabs/coordinator/internal/metrics"
	"github.com/taklabs/coordinator/internal/store"
	"github.com/taklabs/coordinator/pkg/fault"
	"github.com/taklabs/coordinator/pkg/model"
)

// Service coordinates requests and offers against the ledger store.
type Service struct {
	store  store.Store
	events *events.Publisher
	logger *zap.Logger
}

// NewService creates a negotiation service. events may be nil.
func NewService(st store.Store, pub *events.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, events: pub, logger: logger}
}

// CreateRequest opens a new service request under a price ceiling.
func (s *Service) CreateRequest(ctx context.Context, requesterID, serviceQuery string, maxPriceNano int64) (*model.Request, error) {
	start := time.Now()
	var err error
	defer func() { metrics.ObserveOperation("create_request", start, err) }()

	if strings.TrimSpace(requesterID) == "" || strings.TrimSpace(serviceQuery) == "" {
		err = fault.InvalidArgument("requester_agent_id and service_query are required")
		return nil, err
	}
	if maxPriceNano <= 0 {
		err = fault.InvalidArgument("max_price_nano must be a positive integer")
		return nil, err
	}

	agent, err := s.store.GetAgent(ctx, requesterID)
	if err != nil {
		return nil, fault.Internal(err, "resolve requester")
	}
	if agent == nil {
		err = fault.InvalidArgument("requester agent %s does not resolve", requesterID)
		return nil, err
	}

	req := model.Request{
		ID:           model.NewRequestID(),
		RequesterID:  requesterID,
		ServiceQuery: serviceQuery,
		MaxPriceNano: maxPriceNano,
		Status:       model.RequestOpen,
		CreatedAt:    time.Now().UTC(),
	}
	if err = s.store.CreateRequest(ctx, req); err != nil {
		return nil, fault.Internal(err, "persist request")
	}

	s.logger.Info("negotiation.request_created",
		zap.String("request_id", req.ID),
		zap.String("requester", requesterID),
		zap.Int64("max_price_nano", maxPriceNano))
	s.events.Publish(ctx, "request.created", req)

	return &req, nil
}

// GetRequest returns a request by ID.
func (s *Service) GetRequest(ctx context.Context, id string) (*model.Request, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, fault.Internal(err, "load request")
	}
	if req == nil {
		return nil, fault.NotFound("request %s not found", id)
	}
	return req, nil
}

// ListRequests returns all requests, newest first.
func (s *Service) ListRequests(ctx context.Context) ([]model.Request, error) {
	reqs, err := s.store.ListRequests(ctx)
	if err != nil {
		return nil, fault.Internal(err, "list requests")
	}
	return reqs, nil
}

// CancelRequest cancels an open request. Only legal from open.
func (s *Service) CancelRequest(ctx context.Context, id string) (*model.Request, error) {
	start := time.Now()
	req, err := s.store.CancelRequest(ctx, id)
	metrics.ObserveOperation("cancel_request", start, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("negotiation.request_cancelled", zap.String("request_id", id))
	s.events.Publish(ctx, "request.cancelled", req)
	return req, nil
}

// SubmitOffer places a pending offer against an open request. The
// price ceiling is enforced here: offers above the ceiling are invalid
// at submission and never reach the ledger.
func (s *Service) SubmitOffer(ctx context.Context, requestID, providerID string, priceNano int64, terms string) (*model.Offer, error) {
	start := time.Now()
	var err error
	defer func() { metrics.ObserveOperation("submit_offer", start, err) }()

	if strings.TrimSpace(requestID) == "" || strings.TrimSpace(providerID) == "" {
		err = fault.InvalidArgument("request_id and provider_agent_id are required")
		return nil, err
	}
	if priceNano <= 0 {
		err = fault.InvalidArgument("price_nano must be a positive integer")
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
	if req.Status != model.RequestOpen {
		err = fault.ConflictStatus(string(req.Status), "cannot offer on a %s request", req.Status)
		return nil, err
	}
	if priceNano > req.MaxPriceNano {
		err = fault.InvalidArgument("offer price %d exceeds request ceiling %d", priceNano, req.MaxPriceNano)
		return nil, err
	}

	provider, err := s.store.GetAgent(ctx, providerID)
	if err != nil {
		return nil, fault.Internal(err, "resolve provider")
	}
	if provider == nil {
		err = fault.NotFound("provider agent %s not found", providerID)
		return nil, err
	}

	offer := model.Offer{
		ID:         model.NewOfferID(),
		RequestID:  requestID,
		ProviderID: providerID,
		PriceNano:  priceNano,
		Terms:      terms,
		Status:     model.OfferPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err = s.store.CreateOffer(ctx, offer); err != nil {
		// The store re-checks the request status inside the insert; a
		// request raced shut between the check above and the insert
		// surfaces here as a conflict, not a storage fault.
		var fe *fault.Error
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, fault.Internal(err, "persist offer")
	}

	s.logger.Info("negotiation.offer_submitted",
		zap.String("offer_id", offer.ID),
		zap.String("request_id", requestID),
		zap.Int64("price_nano", priceNano))
	s.events.Publish(ctx, "offer.submitted", offer)

	return &offer, nil
}

// GetOffer returns an offer by ID.
func (s *Service) GetOffer(ctx context.Context, id string) (*model.Offer, error) {
	offer, err := s.store.GetOffer(ctx, id)
	if err != nil {
		return nil, fault.Internal(err, "load offer")
	}
	if offer == nil {
		return nil, fault.NotFound("offer %s not found", id)
	}
	return offer, nil
}

// ListOffers returns offers, optionally filtered by request.
func (s *Service) ListOffers(ctx context.Context, requestID string) ([]model.Offer, error) {
	offers, err := s.store.ListOffers(ctx, requestID)
	if err != nil {
		return nil, fault.Internal(err, "list offers")
	}
	return offers, nil
}

// AcceptOffer accepts one pending offer, atomically rejecting all
// competing pending offers on the same request and closing the
// request. Returns the accepted offer and the rejected-competitor
// count. Acceptance is an explicit caller decision; the negotiator
// imposes no ranking of offers.
func (s *Service) AcceptOffer(ctx context.Context, id string) (*model.Offer, int64, error) {
	start := time.Now()
	offer, rejected, err := s.store.AcceptOffer(ctx, id)
	metrics.ObserveOperation("accept_offer", start, err)
	if err != nil {
		return nil, 0, err
	}

	s.logger.Info("negotiation.offer_accepted",
		zap.String("offer_id", offer.ID),
		zap.String("request_id", offer.RequestID),
		zap.Int64("rejected_competitors", rejected))
	s.events.Publish(ctx, "offer.accepted", offer)

	return offer, rejected, nil
}

// RejectOffer rejects a pending offer. Idempotent on an
// already-rejected offer; conflicts on an accepted one.
func (s *Service) RejectOffer(ctx context.Context, id string) (*model.Offer, error) {
	start := time.Now()
	offer, err := s.store.RejectOffer(ctx, id)
	metrics.ObserveOperation("reject_offer", start, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("negotiation.offer_rejected", zap.String("offer_id", id))
	s.events.Publish(ctx, "offer.rejected", offer)
	return offer, nil
}
