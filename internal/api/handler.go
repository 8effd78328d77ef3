package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/taklabs/coordinator/pkg/model"
)

// NegotiationService defines the request/offer operations needed by the handler.
type NegotiationService interface {
	CreateRequest(ctx context.Context, requesterID, serviceQuery string, maxPriceNano int64) (*model.Request, error)
	GetRequest(ctx context.Context, id string) (*model.Request, error)
	ListRequests(ctx context.Context) ([]model.Request, error)
	CancelRequest(ctx context.Context, id string) (*model.Request, error)
	SubmitOffer(ctx context.Context, requestID, providerID string, priceNano int64, terms string) (*model.Offer, error)
	GetOffer(ctx context.Context, id string) (*model.Offer, error)
	ListOffers(ctx context.Context, requestID string) ([]model.Offer, error)
	AcceptOffer(ctx context.Context, id string) (*model.Offer, int64, error)
	RejectOffer(ctx context.Context, id string) (*model.Offer, error)
}

// DealService defines the deal lifecycle operations needed by the handler.
type DealService interface {
	Create(ctx context.Context, requestID, offerID string) (*model.Deal, error)
	Get(ctx context.Context, id string) (*model.Deal, error)
	List(ctx context.Context) ([]model.Deal, error)
	Approve(ctx context.Context, id string) (*model.Deal, error)
	Execute(ctx context.Context, id string) (*model.Deal, error)
	Cancel(ctx context.Context, id string) (*model.Deal, error)
}

// Handler exposes the coordinator's HTTP surface.
type Handler struct {
	logger      *zap.Logger
	negotiation NegotiationService
	deals       DealService
	adapterName string
}

// NewHandler creates a Handler. adapterName is reported in deal
// execution responses.
func NewHandler(logger *zap.Logger, neg NegotiationService, deals DealService, adapterName string) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		logger:      logger,
		negotiation: neg,
		deals:       deals,
		adapterName: adapterName,
	}
}

// --- requests ---

func (h *Handler) CreateRequest(c *fiber.Ctx) error {
	var p CreateRequestPayload
	if err := c.BodyParser(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := p.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	req, err := h.negotiation.CreateRequest(c.Context(), p.RequesterAgentID, p.ServiceQuery, p.MaxPriceNano)
	if err != nil {
		h.logger.Warn("api.create_request.failed",
			zap.String("requester", p.RequesterAgentID),
			zap.Error(err))
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

func (h *Handler) GetRequest(c *fiber.Ctx) error {
	req, err := h.negotiation.GetRequest(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(req)
}

func (h *Handler) ListRequests(c *fiber.Ctx) error {
	reqs, err := h.negotiation.ListRequests(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"requests": reqs, "total": len(reqs)})
}

func (h *Handler) CancelRequest(c *fiber.Ctx) error {
	req, err := h.negotiation.CancelRequest(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(req)
}

// --- offers ---

func (h *Handler) SubmitOffer(c *fiber.Ctx) error {
	var p SubmitOfferPayload
	if err := c.BodyParser(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := p.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	offer, err := h.negotiation.SubmitOffer(c.Context(), p.RequestID, p.ProviderAgentID, p.PriceNano, p.Terms)
	if err != nil {
		h.logger.Warn("api.submit_offer.failed",
			zap.String("request_id", p.RequestID),
			zap.Error(err))
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(offer)
}

func (h *Handler) GetOffer(c *fiber.Ctx) error {
	offer, err := h.negotiation.GetOffer(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(offer)
}

func (h *Handler) ListOffers(c *fiber.Ctx) error {
	offers, err := h.negotiation.ListOffers(c.Context(), c.Query("request_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"offers": offers, "total": len(offers)})
}

func (h *Handler) AcceptOffer(c *fiber.Ctx) error {
	offer, rejected, err := h.negotiation.AcceptOffer(c.Context(), c.Params("id"))
	if err != nil {
		h.logger.Warn("api.accept_offer.failed",
			zap.String("offer_id", c.Params("id")),
			zap.Error(err))
		return writeError(c, err)
	}
	return c.JSON(AcceptOfferResponse{Offer: *offer, OtherOffersAutoRejected: rejected})
}

func (h *Handler) RejectOffer(c *fiber.Ctx) error {
	offer, err := h.negotiation.RejectOffer(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(offer)
}

// --- deals ---

func (h *Handler) CreateDeal(c *fiber.Ctx) error {
	var p CreateDealPayload
	if err := c.BodyParser(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := p.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	d, err := h.deals.Create(c.Context(), p.RequestID, p.OfferID)
	if err != nil {
		h.logger.Warn("api.create_deal.failed",
			zap.String("offer_id", p.OfferID),
			zap.Error(err))
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toDealResponse(d, ""))
}

func (h *Handler) GetDeal(c *fiber.Ctx) error {
	d, err := h.deals.Get(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toDealResponse(d, ""))
}

func (h *Handler) ListDeals(c *fiber.Ctx) error {
	deals, err := h.deals.List(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]DealResponse, 0, len(deals))
	for i := range deals {
		out = append(out, toDealResponse(&deals[i], ""))
	}
	return c.JSON(fiber.Map{"deals": out, "total": len(out)})
}

func (h *Handler) ApproveDeal(c *fiber.Ctx) error {
	d, err := h.deals.Approve(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toDealResponse(d, ""))
}

// ExecuteDeal invokes settlement. Adapter failure answers 502 with the
// failed deal attached so the caller sees the terminal state it must
// work around.
func (h *Handler) ExecuteDeal(c *fiber.Ctx) error {
	d, err := h.deals.Execute(c.Context(), c.Params("id"))
	if err != nil {
		h.logger.Warn("api.execute_deal.failed",
			zap.String("deal_id", c.Params("id")),
			zap.Error(err))
		if d != nil {
			body := errorBody{
				Error:      err.Error(),
				Code:       "adapter_failure",
				DealStatus: string(d.Status),
			}
			return c.Status(fiber.StatusBadGateway).JSON(body)
		}
		return writeError(c, err)
	}
	return c.JSON(toDealResponse(d, h.adapterName))
}

func (h *Handler) CancelDeal(c *fiber.Ctx) error {
	d, err := h.deals.Cancel(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toDealResponse(d, ""))
}
