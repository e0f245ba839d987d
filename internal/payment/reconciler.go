package payment

import (
	"context"
	"strconv"

	"github.com/LocDang637/CosplayDate-sub001/internal/logger"
	"github.com/LocDang637/CosplayDate-sub001/internal/metrics"
	"github.com/LocDang637/CosplayDate-sub001/internal/wallet"
)

// Test payloads the gateway sends during merchant onboarding. They must be
// acknowledged without touching the ledger or the gateway retries forever.
const (
	sentinelOrderCode = "123"
	minOrderCode      = 1000
	minRealAmount     = 2000
)

// Notifier mirrors booking.Notifier for the top-up path.
type Notifier interface {
	NotifyPaymentEvent(ctx context.Context, userID int, kind string, amount int64, bookingCode string, success bool)
}

// Reconciler maps gateway notifications onto pending top-up entries.
type Reconciler struct {
	ledger   wallet.Ledger
	notifier Notifier
}

func NewReconciler(ledger wallet.Ledger, notifier Notifier) *Reconciler {
	return &Reconciler{ledger: ledger, notifier: notifier}
}

func isTestPayload(e *WebhookEvent) bool {
	if e.ExternalOrderID == sentinelOrderCode {
		return true
	}
	if code, err := strconv.ParseInt(e.ExternalOrderID, 10, 64); err == nil && code < minOrderCode {
		return true
	}
	return e.Amount < minRealAmount
}

// Reconcile applies one normalized gateway event. The returned error is only
// non-nil for infrastructure failures; every business case, including
// orphans and replays, resolves to an Outcome the caller acks as success.
func (r *Reconciler) Reconcile(ctx context.Context, e *WebhookEvent) (Outcome, error) {
	if isTestPayload(e) {
		logger.Info("ignoring gateway test payload", "order_id", e.ExternalOrderID, "amount", e.Amount)
		metrics.RecordWebhook(string(OutcomeIgnoredTest))
		return OutcomeIgnoredTest, nil
	}

	entry, err := r.ledger.FindEntryByReference(ctx, e.ExternalOrderID)
	if err != nil {
		return "", err
	}
	if entry == nil && e.Reference != "" {
		entry, err = r.ledger.FindEntryByReference(ctx, e.Reference)
		if err != nil {
			return "", err
		}
	}

	if entry == nil {
		if e.Succeeded {
			// Real money with no matching record. Deliberately not credited
			// to anyone; recorded for manual reconciliation.
			logger.Error("orphaned successful payment",
				"order_id", e.ExternalOrderID, "reference", e.Reference, "amount", e.Amount)
			metrics.RecordOrphanedPayment()
		}
		metrics.RecordWebhook(string(OutcomeOrphaned))
		return OutcomeOrphaned, nil
	}

	switch entry.Status {
	case wallet.StatusCompleted:
		// Duplicate delivery of a notification we already applied.
		metrics.RecordWebhook(string(OutcomeReplay))
		return OutcomeReplay, nil

	case wallet.StatusFailed:
		if e.Succeeded {
			logger.Error("success notification for a failed top-up, flagging for review",
				"order_id", e.ExternalOrderID, "entry_id", entry.ID)
			metrics.RecordOrphanedPayment()
			metrics.RecordWebhook(string(OutcomeOrphaned))
			return OutcomeOrphaned, nil
		}
		metrics.RecordWebhook(string(OutcomeReplay))
		return OutcomeReplay, nil
	}

	if e.Succeeded {
		completed, err := r.ledger.CompletePendingTopUp(ctx, entry.ReferenceID)
		if err != nil {
			return "", err
		}

		metrics.RecordWalletTopUp("completed")
		metrics.RecordWebhook(string(OutcomeCompleted))
		logger.Info("top-up completed", "order_id", e.ExternalOrderID,
			"user_id", completed.UserID, "amount", completed.Amount)
		r.notifier.NotifyPaymentEvent(ctx, completed.UserID, "topup", completed.Amount, "", true)
		return OutcomeCompleted, nil
	}

	failed, err := r.ledger.MarkPendingTopUpFailed(ctx, entry.ReferenceID, e.Description)
	if err != nil {
		return "", err
	}

	metrics.RecordWalletTopUp("failed")
	metrics.RecordWebhook(string(OutcomeFailed))
	logger.Info("top-up failed", "order_id", e.ExternalOrderID, "user_id", failed.UserID)
	r.notifier.NotifyPaymentEvent(ctx, failed.UserID, "topup", failed.Amount, "", false)
	return OutcomeFailed, nil
}
