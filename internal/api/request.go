package api

// CreateRequestPayload opens a service request under a price ceiling.
type CreateRequestPayload struct {
	RequesterAgentID string `json:"requester_agent_id"`
	ServiceQuery     string `json:"service_query"`
	MaxPriceNano     int64  `json:"max_price_nano"`
	IdempotencyKey   string `json:"idempotency_key,omitempty"`
}

// SubmitOfferPayload places an offer against an open request.
type SubmitOfferPayload struct {
	RequestID       string `json:"request_id"`
	ProviderAgentID string `json:"provider_agent_id"`
	PriceNano       int64  `json:"price_nano"`
	Terms           string `json:"terms,omitempty"`
	IdempotencyKey  string `json:"idempotency_key,omitempty"`
}

// CreateDealPayload seals a deal from an accepted offer.
type CreateDealPayload struct {
	RequestID      string `json:"request_id"`
	OfferID        string `json:"offer_id"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}
