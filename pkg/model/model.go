// Package model holds the canonical negotiation and settlement records
// shared by the store, the services, and the API layer.
//
// All monetary amounts are integer nano-units (1 unit = 1,000,000,000
// nano-units). No floating point is used anywhere for money.
package model

import "time"

// RequestStatus is the lifecycle state of a service request.
type RequestStatus string

const (
	RequestOpen      RequestStatus = "open"
	RequestClosed    RequestStatus = "closed"
	RequestCancelled RequestStatus = "cancelled"
)

// OfferStatus is the lifecycle state of an offer.
type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
)

// DealStatus is the lifecycle state of a deal.
type DealStatus string

const (
	DealAwaitingApproval DealStatus = "awaiting_approval"
	DealApproved         DealStatus = "approved"
	DealExecuted         DealStatus = "executed"
	DealFailed           DealStatus = "failed"
	DealCancelled        DealStatus = "cancelled"
)

// Terminal reports whether no further transition is legal from s.
func (s DealStatus) Terminal() bool {
	switch s {
	case DealExecuted, DealFailed, DealCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether s → next is a legal deal state edge.
// Legal edges: awaiting_approval→approved, awaiting_approval→cancelled,
// approved→executed, approved→failed.
func (s DealStatus) CanTransitionTo(next DealStatus) bool {
	switch s {
	case DealAwaitingApproval:
		return next == DealApproved || next == DealCancelled
	case DealApproved:
		return next == DealExecuted || next == DealFailed
	}
	return false
}

// Agent is a participant in the marketplace. The coordinator only needs
// agents for existence checks; registration is an external concern.
type Agent struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	EndpointURL string    `json:"endpoint_url,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Request is a requester's ask for a service under a price ceiling.
type Request struct {
	ID           string        `json:"id"`
	RequesterID  string        `json:"requester_agent_id"`
	ServiceQuery string        `json:"service_query"`
	MaxPriceNano int64         `json:"max_price_nano"`
	Status       RequestStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Offer is a provider's bid against an open request. Price must not
// exceed the request ceiling at submission time.
type Offer struct {
	ID         string      `json:"id"`
	RequestID  string      `json:"request_id"`
	ProviderID string      `json:"provider_agent_id"`
	PriceNano  int64       `json:"price_nano"`
	Terms      string      `json:"terms,omitempty"`
	Status     OfferStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Deal is the sealed settlement record created from an accepted offer.
// Payer, payee and amount are copied at creation and never recomputed
// from the source request/offer afterwards.
type Deal struct {
	ID               string     `json:"id"`
	RequestID        string     `json:"request_id"`
	OfferID          string     `json:"offer_id"`
	PayerID          string     `json:"payer_agent_id"`
	PayeeID          string     `json:"payee_agent_id"`
	AmountNano       int64      `json:"amount_nano"`
	Status           DealStatus `json:"status"`
	ExecutionReceipt string     `json:"execution_receipt,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	ExecutedAt       *time.Time `json:"executed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// DealSnapshot is the frozen view of a deal handed to a settlement
// adapter. It carries everything a backend needs to move value.
type DealSnapshot struct {
	DealID     string `json:"deal_id"`
	PayerID    string `json:"payer_agent_id"`
	PayeeID    string `json:"payee_agent_id"`
	AmountNano int64  `json:"amount_nano"`
}

// Snapshot returns the frozen settlement view of the deal.
func (d Deal) Snapshot() DealSnapshot {
	return DealSnapshot{
		DealID:     d.ID,
		PayerID:    d.PayerID,
		PayeeID:    d.PayeeID,
		AmountNano: d.AmountNano,
	}
}
