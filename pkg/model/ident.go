package model

import (
	"strings"

	"github.com/google/uuid"
)

// Identifier prefixes keep IDs self-describing and collision-free
// across entity types.
const (
	PrefixAgent   = "agt"
	PrefixRequest = "req"
	PrefixOffer   = "off"
	PrefixDeal    = "deal"
)

// NewID returns a prefix-tagged identifier: "<prefix>_<12 hex chars>".
func NewID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + raw[:12]
}

func NewAgentID() string   { return NewID(PrefixAgent) }
func NewRequestID() string { return NewID(PrefixRequest) }
func NewOfferID() string   { return NewID(PrefixOffer) }
func NewDealID() string    { return NewID(PrefixDeal) }
