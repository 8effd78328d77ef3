package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateRequestPayloadValidate(t *testing.T) {
	valid := CreateRequestPayload{
		RequesterAgentID: "agt_buyer",
		ServiceQuery:     "market data",
		MaxPriceNano:     2_000_000_000,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(*CreateRequestPayload)
		wantMsg string
	}{
		{"missing requester", func(p *CreateRequestPayload) { p.RequesterAgentID = "" }, "requester_agent_id"},
		{"whitespace requester", func(p *CreateRequestPayload) { p.RequesterAgentID = "   " }, "requester_agent_id"},
		{"missing query", func(p *CreateRequestPayload) { p.ServiceQuery = "" }, "service_query"},
		{"zero ceiling", func(p *CreateRequestPayload) { p.MaxPriceNano = 0 }, "max_price_nano"},
		{"negative ceiling", func(p *CreateRequestPayload) { p.MaxPriceNano = -1 }, "max_price_nano"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestSubmitOfferPayloadValidate(t *testing.T) {
	valid := SubmitOfferPayload{
		RequestID:       "req_1",
		ProviderAgentID: "agt_provider",
		PriceNano:       1_500_000_000,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(*SubmitOfferPayload)
		wantMsg string
	}{
		{"missing request", func(p *SubmitOfferPayload) { p.RequestID = "" }, "request_id"},
		{"missing provider", func(p *SubmitOfferPayload) { p.ProviderAgentID = "" }, "provider_agent_id"},
		{"zero price", func(p *SubmitOfferPayload) { p.PriceNano = 0 }, "price_nano"},
		{"negative price", func(p *SubmitOfferPayload) { p.PriceNano = -500 }, "price_nano"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestCreateDealPayloadValidate(t *testing.T) {
	assert.NoError(t, CreateDealPayload{RequestID: "req_1", OfferID: "off_1"}.Validate())
	assert.Error(t, CreateDealPayload{OfferID: "off_1"}.Validate())
	assert.Error(t, CreateDealPayload{RequestID: "req_1"}.Validate())
}
