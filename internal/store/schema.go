package store

import "context"

// Schema for the negotiation ledger. Statuses are CHECK-constrained,
// amounts are BIGINT nano-units, and two uniqueness rules back the core
// invariants at the store level rather than in application code:
//
//   - uq_offers_one_accepted: at most one accepted offer per request
//   - deals.offer_id UNIQUE:  at most one deal per offer
const schema = `
CREATE TABLE IF NOT EXISTS agents (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL UNIQUE,
    description  TEXT NOT NULL DEFAULT '',
    endpoint_url TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','disabled')),
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS requests (
    id                 TEXT PRIMARY KEY,
    requester_agent_id TEXT NOT NULL REFERENCES agents(id),
    service_query      TEXT NOT NULL,
    max_price_nano     BIGINT NOT NULL CHECK (max_price_nano > 0),
    status             TEXT NOT NULL DEFAULT 'open'
                         CHECK (status IN ('open','closed','cancelled')),
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS offers (
    id                TEXT PRIMARY KEY,
    request_id        TEXT NOT NULL REFERENCES requests(id),
    provider_agent_id TEXT NOT NULL REFERENCES agents(id),
    price_nano        BIGINT NOT NULL CHECK (price_nano > 0),
    terms             TEXT NOT NULL DEFAULT '',
    status            TEXT NOT NULL DEFAULT 'pending'
                        CHECK (status IN ('pending','accepted','rejected')),
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_offers_one_accepted
    ON offers (request_id) WHERE status = 'accepted';

CREATE TABLE IF NOT EXISTS deals (
    id                TEXT PRIMARY KEY,
    request_id        TEXT NOT NULL REFERENCES requests(id),
    offer_id          TEXT NOT NULL UNIQUE REFERENCES offers(id),
    payer_agent_id    TEXT NOT NULL REFERENCES agents(id),
    payee_agent_id    TEXT NOT NULL REFERENCES agents(id),
    amount_nano       BIGINT NOT NULL CHECK (amount_nano > 0),
    status            TEXT NOT NULL DEFAULT 'awaiting_approval'
                        CHECK (status IN ('awaiting_approval','approved','executed','failed','cancelled')),
    execution_receipt TEXT NOT NULL DEFAULT '',
    approved_at       TIMESTAMPTZ,
    executed_at       TIMESTAMPTZ,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_offers_request ON offers (request_id);
CREATE INDEX IF NOT EXISTS idx_deals_request  ON deals (request_id);
`

// Migrate applies the ledger schema. Safe to run repeatedly.
func (s *PGStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}
