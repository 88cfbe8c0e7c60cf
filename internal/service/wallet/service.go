package wallet

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-orders/internal/domain"
	"github.com/josh-kwaku/wallet-orders/internal/logging"
	"github.com/josh-kwaku/wallet-orders/internal/metrics"
	"github.com/josh-kwaku/wallet-orders/internal/outbox"
	"github.com/josh-kwaku/wallet-orders/internal/repository"
)

type walletRepo interface {
	Credit(ctx context.Context, q repository.DBTX, clientID string, amount decimal.Decimal) (*domain.Wallet, error)
	Debit(ctx context.Context, q repository.DBTX, clientID string, amount decimal.Decimal) (*domain.Wallet, error)
	GetByClientID(ctx context.Context, clientID string) (*domain.Wallet, error)
}

type ledgerRepo interface {
	Append(ctx context.Context, q repository.DBTX, entry *domain.LedgerEntry) error
}

type outboxRepo interface {
	Create(ctx context.Context, q repository.DBTX, event *domain.OutboxEvent) error
}

type balanceCache interface {
	Get(ctx context.Context, clientID string) (*domain.Wallet, bool, error)
	Refresh(ctx context.Context, w *domain.Wallet)
}

type Service struct {
	wallets walletRepo
	ledger  ledgerRepo
	events  outboxRepo
	cache   balanceCache
	metrics *metrics.Metrics
	db      *sql.DB
}

func NewService(
	wallets walletRepo,
	ledger ledgerRepo,
	events outboxRepo,
	cache balanceCache,
	m *metrics.Metrics,
	db *sql.DB,
) *Service {
	return &Service{
		wallets: wallets,
		ledger:  ledger,
		events:  events,
		cache:   cache,
		metrics: m,
		db:      db,
	}
}

func (s *Service) CreditWallet(ctx context.Context, clientID string, amount decimal.Decimal) (*domain.Wallet, error) {
	w, err := s.mutate(ctx, clientID, amount, domain.EntryKindCredit)
	if err != nil {
		return nil, fmt.Errorf("CreditWallet: %w", err)
	}
	return w, nil
}

func (s *Service) DebitWallet(ctx context.Context, clientID string, amount decimal.Decimal) (*domain.Wallet, error) {
	w, err := s.mutate(ctx, clientID, amount, domain.EntryKindDebit)
	if err != nil {
		return nil, fmt.Errorf("DebitWallet: %w", err)
	}
	return w, nil
}

// GetBalance never fails for an unknown client; it reports a zero balance.
func (s *Service) GetBalance(ctx context.Context, clientID string) (*domain.Wallet, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, fmt.Errorf("GetBalance: client id: %w", domain.ErrInvalidRequest)
	}

	log := logging.FromContext(ctx)

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, clientID)
		if err != nil {
			log.Warn("balance cache read failed", "client_id", clientID, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	w, err := s.wallets.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("GetBalance: %w", err)
	}
	if w.Version > 0 && s.cache != nil {
		s.cache.Refresh(ctx, w)
	}
	return w, nil
}

// mutate applies a ledgered credit or debit. The balance change, ledger
// entry and outbox event commit together or not at all.
func (s *Service) mutate(ctx context.Context, clientID string, amount decimal.Decimal, kind domain.EntryKind) (*domain.Wallet, error) {
	log := logging.FromContext(ctx)

	if strings.TrimSpace(clientID) == "" {
		return nil, fmt.Errorf("client id: %w", domain.ErrInvalidRequest)
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w: %w", domain.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	var (
		w         *domain.Wallet
		eventType domain.OutboxEventType
	)
	switch kind {
	case domain.EntryKindCredit:
		w, err = s.wallets.Credit(ctx, tx, clientID, amount)
		eventType = domain.OutboxEventTypeWalletCredited
	case domain.EntryKindDebit:
		w, err = s.wallets.Debit(ctx, tx, clientID, amount)
		eventType = domain.OutboxEventTypeWalletDebited
	default:
		return nil, fmt.Errorf("unsupported entry kind %q: %w", kind, domain.ErrInvalidRequest)
	}
	if err != nil {
		return nil, err
	}

	entry := &domain.LedgerEntry{
		ID:        uuid.New(),
		ClientID:  clientID,
		Kind:      kind,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.ledger.Append(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}

	event, err := outbox.WalletEvent(eventType, amount, w)
	if err != nil {
		return nil, err
	}
	if err := s.events.Create(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("outbox: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w: %w", domain.ErrStorageUnavailable, err)
	}

	s.metrics.WalletOperation(string(kind))
	if s.cache != nil {
		s.cache.Refresh(ctx, w)
	}

	log.Info("wallet updated",
		"client_id", clientID,
		"kind", kind,
		"amount", amount.StringFixed(domain.AmountScale),
		"balance", w.Balance.StringFixed(domain.AmountScale),
		"version", w.Version,
	)
	return w, nil
}
