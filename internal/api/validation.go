package api

import (
	"fmt"
	"strings"
)

func (p CreateRequestPayload) Validate() error {
	if strings.TrimSpace(p.RequesterAgentID) == "" {
		return fmt.Errorf("requester_agent_id is required")
	}
	if strings.TrimSpace(p.ServiceQuery) == "" {
		return fmt.Errorf("service_query is required")
	}
	if p.MaxPriceNano <= 0 {
		return fmt.Errorf("max_price_nano must be a positive integer")
	}
	return nil
}

func (p SubmitOfferPayload) Validate() error {
	if strings.TrimSpace(p.RequestID) == "" {
		return fmt.Errorf("request_id is required")
	}
	if strings.TrimSpace(p.ProviderAgentID) == "" {
		return fmt.Errorf("provider_agent_id is required")
	}
	if p.PriceNano <= 0 {
		return fmt.Errorf("price_nano must be a positive integer")
	}
	return nil
}

func (p CreateDealPayload) Validate() error {
	if strings.TrimSpace(p.RequestID) == "" {
		return fmt.Errorf("request_id is required")
	}
	if strings.TrimSpace(p.OfferID) == "" {
		return fmt.Errorf("offer_id is required")
	}
	return nil
}
