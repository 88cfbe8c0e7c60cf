package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-orders/internal/config"
	"github.com/josh-kwaku/wallet-orders/internal/domain"
	"github.com/josh-kwaku/wallet-orders/internal/logging"
	"github.com/josh-kwaku/wallet-orders/internal/metrics"
	"github.com/josh-kwaku/wallet-orders/internal/outbox"
	"github.com/josh-kwaku/wallet-orders/internal/repository"
)

type walletRepo interface {
	Debit(ctx context.Context, q repository.DBTX, clientID string, amount decimal.Decimal) (*domain.Wallet, error)
	Reverse(ctx context.Context, q repository.DBTX, clientID string, amount decimal.Decimal) (*domain.Wallet, error)
}

type orderRepo interface {
	CreatePending(ctx context.Context, q repository.DBTX, order *domain.Order) error
	MarkFulfilled(ctx context.Context, q repository.DBTX, id uuid.UUID, fulfillmentRef string) (*domain.Order, error)
	MarkFailed(ctx context.Context, q repository.DBTX, id uuid.UUID, reason string) (*domain.Order, error)
	GetForClient(ctx context.Context, id uuid.UUID, clientID string) (*domain.Order, error)
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Order, error)
}

type ledgerRepo interface {
	Append(ctx context.Context, q repository.DBTX, entry *domain.LedgerEntry) error
}

type outboxRepo interface {
	Create(ctx context.Context, q repository.DBTX, event *domain.OutboxEvent) error
}

type fulfillmentGateway interface {
	Fulfill(ctx context.Context, orderID uuid.UUID, clientID string) (string, error)
}

type balanceCache interface {
	Refresh(ctx context.Context, w *domain.Wallet)
}

const (
	outcomeFulfilled = "fulfilled"
	outcomeFailed    = "failed"
	outcomeRejected  = "rejected"
	outcomeError     = "error"
)

// Service coordinates the order workflow: reserve funds, record a pending
// order, call the fulfillment gateway, then commit or compensate.
type Service struct {
	wallets walletRepo
	orders  orderRepo
	ledger  ledgerRepo
	events  outboxRepo
	gateway fulfillmentGateway
	cache   balanceCache
	metrics *metrics.Metrics
	db      *sql.DB
	config  *config.Config

	newBackOff func() backoff.BackOff
}

func NewService(
	wallets walletRepo,
	orders orderRepo,
	ledger ledgerRepo,
	events outboxRepo,
	gw fulfillmentGateway,
	cache balanceCache,
	m *metrics.Metrics,
	db *sql.DB,
	cfg *config.Config,
) *Service {
	return &Service{
		wallets:    wallets,
		orders:     orders,
		ledger:     ledger,
		events:     events,
		gateway:    gw,
		cache:      cache,
		metrics:    m,
		db:         db,
		config:     cfg,
		newBackOff: defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}

// PlaceOrder debits the client's wallet by amount and fulfills an order for
// it. On a gateway failure the debit is reversed and the failed order is
// returned together with an error wrapping domain.ErrFulfillmentFailed. If
// the reversal could not be committed the error also wraps
// domain.ErrCompensationPending and no order is returned.
func (s *Service) PlaceOrder(ctx context.Context, clientID string, amount decimal.Decimal) (*domain.Order, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, fmt.Errorf("PlaceOrder: client id: %w", domain.ErrInvalidRequest)
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, fmt.Errorf("PlaceOrder: %w", err)
	}

	ctx = logging.With(ctx, "client_id", clientID)
	log := logging.FromContext(ctx)

	w, err := s.wallets.Debit(ctx, s.db, clientID, amount)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			s.metrics.OrderOutcome(outcomeRejected)
			log.Info("order rejected", "amount", amount.StringFixed(domain.AmountScale), "reason", "insufficient funds")
		} else {
			s.metrics.OrderOutcome(outcomeError)
		}
		return nil, fmt.Errorf("PlaceOrder: reserve: %w", err)
	}
	s.refreshCache(ctx, w)

	// Funds are reserved. Everything below must run to commit or compensation
	// even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	now := time.Now().UTC()
	order := &domain.Order{
		ID:        uuid.New(),
		ClientID:  clientID,
		Amount:    amount,
		Status:    domain.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ctx = logging.With(ctx, "order_id", order.ID)
	log = logging.FromContext(ctx)
	res := reservation{orderID: order.ID, clientID: clientID, amount: amount}

	if err := s.orders.CreatePending(ctx, s.db, order); err != nil {
		_, cerr := s.compensate(ctx, res, "order record not created: "+err.Error())
		s.metrics.OrderOutcome(outcomeError)
		return nil, fmt.Errorf("PlaceOrder: create order: %w", withCompensation(err, cerr))
	}

	log.Info("order pending", "amount", amount.StringFixed(domain.AmountScale))

	ref, err := s.fulfill(ctx, order)
	if err != nil {
		failed, cerr := s.compensate(ctx, res, err.Error())
		s.metrics.OrderOutcome(outcomeFailed)
		if cerr != nil {
			return nil, fmt.Errorf("PlaceOrder: %w", withCompensation(err, cerr))
		}
		return failed, fmt.Errorf("PlaceOrder: %w", err)
	}

	fulfilled, err := s.commit(ctx, order, ref)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			// Someone else finalized the order (the recovery sweep) while the
			// gateway call was in flight. It already reversed the debit.
			logging.Alert(ctx, "order finalized concurrently after successful fulfillment",
				"fulfillment_ref", ref, "error", err)
			s.metrics.OrderOutcome(outcomeError)
			return nil, fmt.Errorf("PlaceOrder: commit: %w", err)
		}
		_, cerr := s.compensate(ctx, res, "commit failed: "+err.Error())
		s.metrics.OrderOutcome(outcomeError)
		return nil, fmt.Errorf("PlaceOrder: commit: %w", withCompensation(err, cerr))
	}

	s.metrics.OrderOutcome(outcomeFulfilled)
	log.Info("order fulfilled", "fulfillment_ref", ref)
	return fulfilled, nil
}

// withCompensation adds the compensation outcome to the error that triggered
// it. An order already finalized elsewhere had its funds returned there.
func withCompensation(err, cerr error) error {
	if cerr == nil || errors.Is(cerr, domain.ErrInvalidTransition) {
		return err
	}
	return fmt.Errorf("%w: %w: %w", err, domain.ErrCompensationPending, cerr)
}

func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID, clientID string) (*domain.Order, error) {
	o, err := s.orders.GetForClient(ctx, orderID, clientID)
	if err != nil {
		return nil, fmt.Errorf("GetOrder: %w", err)
	}
	return o, nil
}

// fulfill calls the gateway under its own deadline. Any error returned wraps
// domain.ErrFulfillmentFailed.
func (s *Service) fulfill(ctx context.Context, order *domain.Order) (string, error) {
	gwCtx, cancel := context.WithTimeout(ctx, s.config.GatewayTimeout)
	defer cancel()

	start := time.Now()
	ref, err := s.gateway.Fulfill(gwCtx, order.ID, order.ClientID)
	if err != nil {
		s.metrics.ObserveGateway("failure", time.Since(start))
		logging.FromContext(ctx).Warn("fulfillment failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		if !errors.Is(err, domain.ErrFulfillmentFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrFulfillmentFailed, err)
		}
		return "", err
	}
	s.metrics.ObserveGateway("success", time.Since(start))
	return ref, nil
}

// commit finalizes a fulfilled order. The status change, ledger entry and
// outbox event are written in one transaction.
func (s *Service) commit(ctx context.Context, order *domain.Order, ref string) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("commit: begin tx: %w: %w", domain.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	fulfilled, err := s.orders.MarkFulfilled(ctx, tx, order.ID, ref)
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	orderID := fulfilled.ID
	entry := &domain.LedgerEntry{
		ID:        uuid.New(),
		ClientID:  fulfilled.ClientID,
		Kind:      domain.EntryKindOrder,
		Amount:    fulfilled.Amount,
		OrderID:   &orderID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.ledger.Append(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("commit: ledger: %w", err)
	}

	event, err := outbox.OrderEvent(fulfilled)
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	if err := s.events.Create(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("commit: outbox: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w: %w", domain.ErrStorageUnavailable, err)
	}
	return fulfilled, nil
}

func (s *Service) refreshCache(ctx context.Context, w *domain.Wallet) {
	if s.cache != nil {
		s.cache.Refresh(ctx, w)
	}
}
