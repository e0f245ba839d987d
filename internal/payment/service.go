package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/LocDang637/CosplayDate-sub001/internal/metrics"
	"github.com/LocDang637/CosplayDate-sub001/internal/user"
	"github.com/LocDang637/CosplayDate-sub001/internal/wallet"
)

var ErrInvalidTopUpAmount = errors.New("top-up amount is below the minimum")

// Service initiates top-ups and reconciles gateway notifications.
type Service interface {
	InitiateTopUp(ctx context.Context, userID int, amount int64) (*CheckoutLink, error)
	Reconcile(ctx context.Context, e *WebhookEvent) (Outcome, error)
	ParseWebhook(body []byte) (*WebhookEvent, error)
}

type service struct {
	gateway    Gateway
	ledger     wallet.Ledger
	users      user.Repository
	reconciler *Reconciler
}

func NewService(gateway Gateway, ledger wallet.Ledger, users user.Repository, notifier Notifier) Service {
	return &service{
		gateway:    gateway,
		ledger:     ledger,
		users:      users,
		reconciler: NewReconciler(ledger, notifier),
	}
}

// InitiateTopUp asks the gateway for a checkout link and records a pending
// ledger entry keyed by the gateway's order ID. The gateway call happens
// before any ledger work so no wallet row is locked while waiting on it.
func (s *service) InitiateTopUp(ctx context.Context, userID int, amount int64) (*CheckoutLink, error) {
	if amount < minRealAmount {
		return nil, ErrInvalidTopUpAmount
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	link, err := s.gateway.CreateCheckoutLink(ctx, amount, BuyerInfo{Name: u.Name, Email: u.Email})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout link: %w", err)
	}

	if _, err := s.ledger.RecordPendingTopUp(ctx, userID, amount, link.ExternalOrderID); err != nil {
		return nil, err
	}

	metrics.RecordWalletTopUp("initiated")
	return link, nil
}

func (s *service) Reconcile(ctx context.Context, e *WebhookEvent) (Outcome, error) {
	return s.reconciler.Reconcile(ctx, e)
}

func (s *service) ParseWebhook(body []byte) (*WebhookEvent, error) {
	return s.gateway.ParseWebhook(body)
}
