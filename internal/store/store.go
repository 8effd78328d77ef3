package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/taklabs/coordinator/pkg/fault"
	"github.com/taklabs/coordinator/pkg/model"
)

// Store defines the contract for the negotiation ledger. It is the
// single source of truth for requests, offers and deals; no in-memory
// copy of this state is authoritative.
type Store interface {
	GetAgent(ctx context.Context, id string) (*model.Agent, error)
	PutAgent(ctx context.Context, a model.Agent) error

	CreateRequest(ctx context.Context, r model.Request) error
	GetRequest(ctx context.Context, id string) (*model.Request, error)
	ListRequests(ctx context.Context) ([]model.Request, error)
	CancelRequest(ctx context.Context, id string) (*model.Request, error)

	// CreateOffer persists the offer, guarding in the same statement
	// that its request is still open. A request raced shut by a
	// concurrent acceptance yields a conflict with the current status.
	CreateOffer(ctx context.Context, o model.Offer) error
	GetOffer(ctx context.Context, id string) (*model.Offer, error)
	ListOffers(ctx context.Context, requestID string) ([]model.Offer, error)
	// AcceptOffer atomically accepts the offer, rejects all competing
	// pending offers on the same request, and closes the request. It
	// returns the accepted offer and the number of auto-rejected
	// competitors.
	AcceptOffer(ctx context.Context, id string) (*model.Offer, int64, error)
	RejectOffer(ctx context.Context, id string) (*model.Offer, error)

	CreateDeal(ctx context.Context, d model.Deal) error
	GetDeal(ctx context.Context, id string) (*model.Deal, error)
	ListDeals(ctx context.Context) ([]model.Deal, error)
	ApproveDeal(ctx context.Context, id string, at time.Time) (*model.Deal, error)
	MarkDealExecuted(ctx context.Context, id, receipt string, at time.Time) (*model.Deal, error)
	MarkDealFailed(ctx context.Context, id string) (*model.Deal, error)
	CancelDeal(ctx context.Context, id string) (*model.Deal, error)

	HealthCheck(ctx context.Context) error
	Close() error
}

// PGStore is the Postgres-backed ledger store.
type PGStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// PoolConfig tunes the pgx connection pool.
type PoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// NewPG connects to Postgres and returns a ledger store.
func NewPG(ctx context.Context, pgURL string, poolCfg PoolConfig, logger *zap.Logger) (*PGStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg, err := pgxpool.ParseConfig(pgURL)
	if err != nil {
		return nil, fmt.Errorf("invalid pg config: %w", err)
	}
	if poolCfg.MaxConns > 0 {
		cfg.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		cfg.MinConns = poolCfg.MinConns
	}
	if poolCfg.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = poolCfg.MaxConnLifetime
	}
	if poolCfg.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = poolCfg.MaxConnIdleTime
	}
	if poolCfg.HealthCheckPeriod > 0 {
		cfg.HealthCheckPeriod = poolCfg.HealthCheckPeriod
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return &PGStore{pool: pool, logger: logger}, nil
}

// --- agents ---

func (s *PGStore) GetAgent(ctx context.Context, id string) (*model.Agent, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, description, endpoint_url, status, created_at
		FROM agents WHERE id = $1
	`, id)

	var a model.Agent
	if err := row.Scan(&a.ID, &a.Name, &a.Description, &a.EndpointURL, &a.Status, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return &a, nil
}

func (s *PGStore) PutAgent(ctx context.Context, a model.Agent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO agents (id, name, description, endpoint_url, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			endpoint_url = EXCLUDED.endpoint_url,
			status = EXCLUDED.status
	`, a.ID, a.Name, a.Description, a.EndpointURL, a.Status, a.CreatedAt)
	if err != nil {
		s.logger.Error("store.pg.put_agent_failed", zap.Error(err))
		return fmt.Errorf("put agent: %w", err)
	}
	return nil
}

// --- requests ---

func (s *PGStore) CreateRequest(ctx context.Context, r model.Request) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO requests (id, requester_agent_id, service_query, max_price_nano, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.ID, r.RequesterID, r.ServiceQuery, r.MaxPriceNano, r.Status, r.CreatedAt)
	if err != nil {
		s.logger.Error("store.pg.insert_request_failed", zap.Error(err))
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (s *PGStore) GetRequest(ctx context.Context, id string) (*model.Request, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, requester_agent_id, service_query, max_price_nano, status, created_at
		FROM requests WHERE id = $1
	`, id)

	var r model.Request
	if err := row.Scan(&r.ID, &r.RequesterID, &r.ServiceQuery, &r.MaxPriceNano, &r.Status, &r.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return &r, nil
}

func (s *PGStore) ListRequests(ctx context.Context) ([]model.Request, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, requester_agent_id, service_query, max_price_nano, status, created_at
		FROM requests ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var results []model.Request
	for rows.Next() {
		var r model.Request
		if err := rows.Scan(&r.ID, &r.RequesterID, &r.ServiceQuery, &r.MaxPriceNano, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// CancelRequest flips an open request to cancelled. Acceptance already
// closes a request before any deal can exist, so a request with a live
// deal can never reach this transition.
func (s *PGStore) CancelRequest(ctx context.Context, id string) (*model.Request, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE requests SET status = 'cancelled' WHERE id = $1 AND status = 'open'
	`, id)
	if err != nil {
		return nil, fmt.Errorf("cancel request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r, err := s.GetRequest(ctx, id)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, fault.NotFound("request %s not found", id)
		}
		return nil, fault.ConflictStatus(string(r.Status), "cannot cancel a %s request", r.Status)
	}
	return s.GetRequest(ctx, id)
}

// --- offers ---

// CreateOffer inserts the offer only while its request is still open.
// The guard lives in the statement itself, so an acceptance committing
// between the service's status check and this insert cannot leave a
// pending offer on a closed request.
func (s *PGStore) CreateOffer(ctx context.Context, o model.Offer) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO offers (id, request_id, provider_agent_id, price_nano, terms, status, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE EXISTS (SELECT 1 FROM requests WHERE id = $2 AND status = 'open')
	`, o.ID, o.RequestID, o.ProviderID, o.PriceNano, o.Terms, o.Status, o.CreatedAt)
	if err != nil {
		s.logger.Error("store.pg.insert_offer_failed", zap.Error(err))
		return fmt.Errorf("insert offer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r, err := s.GetRequest(ctx, o.RequestID)
		if err != nil {
			return err
		}
		if r == nil {
			return fault.NotFound("request %s not found", o.RequestID)
		}
		return fault.ConflictStatus(string(r.Status), "cannot offer on a %s request", r.Status)
	}
	return nil
}

func (s *PGStore) GetOffer(ctx context.Context, id string) (*model.Offer, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, request_id, provider_agent_id, price_nano, terms, status, created_at
		FROM offers WHERE id = $1
	`, id)

	var o model.Offer
	if err := row.Scan(&o.ID, &o.RequestID, &o.ProviderID, &o.PriceNano, &o.Terms, &o.Status, &o.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get offer: %w", err)
	}
	return &o, nil
}

func (s *PGStore) ListOffers(ctx context.Context, requestID string) ([]model.Offer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, request_id, provider_agent_id, price_nano, terms, status, created_at
		FROM offers
		WHERE ($1 = '' OR request_id = $1)
		ORDER BY created_at DESC
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	defer rows.Close()

	var results []model.Offer
	for rows.Next() {
		var o model.Offer
		if err := rows.Scan(&o.ID, &o.RequestID, &o.ProviderID, &o.PriceNano, &o.Terms, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, o)
	}
	return results, rows.Err()
}

// acceptTxError classifies an error out of the acceptance transaction.
// The losing side of a concurrent acceptance aborts with SQLSTATE 40001
// (serialization failure); that is a conflict the caller resolves by
// refetching, not a storage fault.
func acceptTxError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "40001" {
		return fault.Conflict("lost a concurrent acceptance; refetch the offer for its authoritative status")
	}
	return fmt.Errorf("%s: %w", op, err)
}

// AcceptOffer runs the accept / reject-siblings / close-request writes
// as one serializable transaction. A concurrent acceptance on the same
// request loses the race and observes a conflict, never partial state.
func (s *PGStore) AcceptOffer(ctx context.Context, id string) (*model.Offer, int64, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, 0, fmt.Errorf("accept offer: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var o model.Offer
	err = tx.QueryRow(ctx, `
		SELECT id, request_id, provider_agent_id, price_nano, terms, status, created_at
		FROM offers WHERE id = $1 FOR UPDATE
	`, id).Scan(&o.ID, &o.RequestID, &o.ProviderID, &o.PriceNano, &o.Terms, &o.Status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, fault.NotFound("offer %s not found", id)
		}
		return nil, 0, acceptTxError("accept offer: lock offer", err)
	}
	if o.Status != model.OfferPending {
		return nil, 0, fault.ConflictStatus(string(o.Status), "offer is already %s", o.Status)
	}

	var reqStatus model.RequestStatus
	err = tx.QueryRow(ctx, `
		SELECT status FROM requests WHERE id = $1 FOR UPDATE
	`, o.RequestID).Scan(&reqStatus)
	if err != nil {
		return nil, 0, acceptTxError("accept offer: lock request", err)
	}
	if reqStatus != model.RequestOpen {
		return nil, 0, fault.ConflictStatus(string(reqStatus), "cannot accept an offer on a %s request", reqStatus)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE offers SET status = 'accepted' WHERE id = $1
	`, o.ID); err != nil {
		return nil, 0, acceptTxError("accept offer: mark accepted", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE offers SET status = 'rejected'
		WHERE request_id = $1 AND id <> $2 AND status = 'pending'
	`, o.RequestID, o.ID)
	if err != nil {
		return nil, 0, acceptTxError("accept offer: reject siblings", err)
	}
	rejected := tag.RowsAffected()

	if _, err := tx.Exec(ctx, `
		UPDATE requests SET status = 'closed' WHERE id = $1
	`, o.RequestID); err != nil {
		return nil, 0, acceptTxError("accept offer: close request", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, acceptTxError("accept offer: commit", err)
	}

	o.Status = model.OfferAccepted
	return &o, rejected, nil
}

// RejectOffer is idempotent on an already-rejected offer and conflicts
// on an accepted one.
func (s *PGStore) RejectOffer(ctx context.Context, id string) (*model.Offer, error) {
	o, err := s.GetOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fault.NotFound("offer %s not found", id)
	}
	switch o.Status {
	case model.OfferRejected:
		return o, nil
	case model.OfferAccepted:
		return nil, fault.ConflictStatus(string(o.Status), "cannot reject an accepted offer")
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE offers SET status = 'rejected' WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return nil, fmt.Errorf("reject offer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Lost a race with an acceptance; refetch for the authoritative state.
		cur, err := s.GetOffer(ctx, id)
		if err != nil {
			return nil, err
		}
		if cur != nil && cur.Status == model.OfferRejected {
			return cur, nil
		}
		status := ""
		if cur != nil {
			status = string(cur.Status)
		}
		return nil, fault.ConflictStatus(status, "cannot reject an accepted offer")
	}
	o.Status = model.OfferRejected
	return o, nil
}

// --- deals ---

// CreateDeal inserts the sealed deal row. The UNIQUE constraint on
// offer_id makes the at-most-one-deal-per-offer rule race-proof.
func (s *PGStore) CreateDeal(ctx context.Context, d model.Deal) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO deals (id, request_id, offer_id, payer_agent_id, payee_agent_id, amount_nano, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, d.ID, d.RequestID, d.OfferID, d.PayerID, d.PayeeID, d.AmountNano, d.Status, d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fault.Conflict("a deal for offer %s already exists", d.OfferID)
		}
		s.logger.Error("store.pg.insert_deal_failed", zap.Error(err))
		return fmt.Errorf("insert deal: %w", err)
	}
	return nil
}

func (s *PGStore) GetDeal(ctx context.Context, id string) (*model.Deal, error) {
	row := s.pool.QueryRow(ctx, dealSelect+` WHERE id = $1`, id)
	d, err := scanDeal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get deal: %w", err)
	}
	return d, nil
}

func (s *PGStore) ListDeals(ctx context.Context) ([]model.Deal, error) {
	rows, err := s.pool.Query(ctx, dealSelect+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	defer rows.Close()

	var results []model.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *d)
	}
	return results, rows.Err()
}

func (s *PGStore) ApproveDeal(ctx context.Context, id string, at time.Time) (*model.Deal, error) {
	return s.transitionDeal(ctx, id, model.DealAwaitingApproval, `
		UPDATE deals SET status = 'approved', approved_at = $2
		WHERE id = $1 AND status = 'awaiting_approval'
	`, id, at)
}

func (s *PGStore) MarkDealExecuted(ctx context.Context, id, receipt string, at time.Time) (*model.Deal, error) {
	return s.transitionDeal(ctx, id, model.DealApproved, `
		UPDATE deals SET status = 'executed', execution_receipt = $2, executed_at = $3
		WHERE id = $1 AND status = 'approved'
	`, id, receipt, at)
}

func (s *PGStore) MarkDealFailed(ctx context.Context, id string) (*model.Deal, error) {
	return s.transitionDeal(ctx, id, model.DealApproved, `
		UPDATE deals SET status = 'failed'
		WHERE id = $1 AND status = 'approved'
	`, id)
}

func (s *PGStore) CancelDeal(ctx context.Context, id string) (*model.Deal, error) {
	return s.transitionDeal(ctx, id, model.DealAwaitingApproval, `
		UPDATE deals SET status = 'cancelled'
		WHERE id = $1 AND status = 'awaiting_approval'
	`, id)
}

// transitionDeal applies a conditional status update. The WHERE clause
// carries the required source state, so a lost race surfaces as a
// conflict with the authoritative current status, never as a second
// application of the same edge.
func (s *PGStore) transitionDeal(ctx context.Context, id string, from model.DealStatus, query string, args ...any) (*model.Deal, error) {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("deal transition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		d, err := s.GetDeal(ctx, id)
		if err != nil {
			return nil, err
		}
		if d == nil {
			return nil, fault.NotFound("deal %s not found", id)
		}
		return nil, fault.ConflictStatus(string(d.Status),
			"deal must be %s, currently %s", from, d.Status)
	}
	return s.GetDeal(ctx, id)
}

const dealSelect = `
	SELECT id, request_id, offer_id, payer_agent_id, payee_agent_id,
	       amount_nano, status, execution_receipt, approved_at, executed_at, created_at
	FROM deals`

func scanDeal(row pgx.Row) (*model.Deal, error) {
	var d model.Deal
	err := row.Scan(&d.ID, &d.RequestID, &d.OfferID, &d.PayerID, &d.PayeeID,
		&d.AmountNano, &d.Status, &d.ExecutionReceipt, &d.ApprovedAt, &d.ExecutedAt, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// --- lifecycle ---

func (s *PGStore) HealthCheck(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("postgres not initialized")
	}
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

func (s *PGStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
