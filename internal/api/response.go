package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/taklabs/coordinator/pkg/fault"
	"github.com/taklabs/coordinator/pkg/model"
	"github.com/taklabs/coordinator/pkg/money"
)

// DealResponse is a deal plus its human-readable amount. Arithmetic
// stays in nano-units; the display string is presentation only.
type DealResponse struct {
	model.Deal
	AmountDisplay string `json:"amount_display"`
	Adapter       string `json:"adapter,omitempty"`
}

func toDealResponse(d *model.Deal, adapter string) DealResponse {
	return DealResponse{
		Deal:          *d,
		AmountDisplay: money.FormatNano(d.AmountNano),
		Adapter:       adapter,
	}
}

// AcceptOfferResponse wraps the accepted offer with the count of
// competitors that were auto-rejected in the same transaction.
type AcceptOfferResponse struct {
	model.Offer
	OtherOffersAutoRejected int64 `json:"other_offers_auto_rejected"`
}

type errorBody struct {
	Error         string `json:"error"`
	Code          string `json:"code"`
	CurrentStatus string `json:"current_status,omitempty"`
	DealStatus    string `json:"deal_status,omitempty"`
}

func httpStatus(code fault.Code) int {
	switch code {
	case fault.CodeInvalidArgument:
		return fiber.StatusBadRequest
	case fault.CodeNotFound:
		return fiber.StatusNotFound
	case fault.CodeConflict:
		return fiber.StatusConflict
	case fault.CodeAdapterFailure:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError maps a fault to its HTTP status, carrying the
// authoritative current state where one is known so the caller can
// decide whether a retry makes sense.
func writeError(c *fiber.Ctx, err error) error {
	code := fault.CodeOf(err)
	body := errorBody{
		Code:          string(code),
		CurrentStatus: fault.StatusOf(err),
	}

	var fe *fault.Error
	if errors.As(err, &fe) {
		body.Error = fe.Message
		if fe.Err != nil {
			body.Error = fe.Message + ": " + fe.Err.Error()
		}
	} else {
		body.Error = err.Error()
	}

	return c.Status(httpStatus(code)).JSON(body)
}
