package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nardwin/platform/internal/domain"
	"github.com/nardwin/platform/internal/guard"
	"github.com/nardwin/platform/internal/metrics"
	"github.com/nardwin/platform/internal/repository"
)

// Reconciliation channels. Push is the signed gateway webhook, redirect is
// the payer returning through the browser, verify is the server-side
// status lookup.
const (
	ChannelPush     = "push"
	ChannelRedirect = "redirect"
	ChannelVerify   = "verify"
)

// Reconciler drives pending deposits to a terminal status. All three
// channels converge on Resolve, whose conditional pending→terminal update
// makes the whole pipeline idempotent: exactly one channel wins the
// transition, and only a won transition to completed credits the wallet.
type Reconciler struct {
	db      DB
	gateway PaymentGateway
	users   repository.UserRepository
	entries repository.LedgerRepository
	outbox  repository.OutboxRepository
	breaker *guard.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger

	pollInterval time.Duration
	pollAttempts int
}

// NewReconciler creates a Reconciler.
func NewReconciler(
	db DB,
	gateway PaymentGateway,
	users repository.UserRepository,
	entries repository.LedgerRepository,
	outbox repository.OutboxRepository,
	breaker *guard.CircuitBreaker,
	m *metrics.Metrics,
	logger *slog.Logger,
	pollInterval time.Duration,
	pollAttempts int,
) *Reconciler {
	return &Reconciler{
		db:           db,
		gateway:      gateway,
		users:        users,
		entries:      entries,
		outbox:       outbox,
		breaker:      breaker,
		metrics:      m,
		logger:       logger,
		pollInterval: pollInterval,
		pollAttempts: pollAttempts,
	}
}

// Resolve applies a canonical payment signal to the entry identified by the
// correlation id. Safe to call any number of times from any channel: a
// terminal entry is returned unchanged, an indeterminate signal changes
// nothing, and concurrent definite signals serialize on the conditional
// update so only one of them credits.
func (r *Reconciler) Resolve(ctx context.Context, paymentID string, trackingID *string, signal domain.PaymentSignal, channel string) (*domain.LedgerEntry, error) {
	entry, err := r.entries.FindByPaymentID(ctx, r.db, paymentID)
	if err != nil {
		return nil, domain.ErrInternal("find payment", err)
	}
	if entry == nil {
		r.metrics.ReconcileAttempts.WithLabelValues(channel, "unknown_payment").Inc()
		return nil, domain.ErrNotFound("payment", paymentID)
	}

	if entry.PaymentStatus.IsTerminal() {
		r.metrics.ReconcileAttempts.WithLabelValues(channel, "already_terminal").Inc()
		return entry, nil
	}

	if signal == domain.SignalIndeterminate {
		r.metrics.ReconcileAttempts.WithLabelValues(channel, "indeterminate").Inc()
		return entry, nil
	}

	status := signal.TerminalStatus()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	updated, err := r.entries.TransitionPaymentStatus(ctx, tx, paymentID, status, resolutionDescription(status, entry.Amount), trackingID)
	if err != nil {
		return nil, domain.ErrInternal("transition payment status", err)
	}
	if updated == nil {
		// Another channel won the race while we were looking. Report the
		// committed outcome instead of ours.
		r.metrics.ReconcileAttempts.WithLabelValues(channel, "lost_race").Inc()
		current, err := r.entries.FindByPaymentID(ctx, r.db, paymentID)
		if err != nil {
			return nil, domain.ErrInternal("refetch payment", err)
		}
		return current, nil
	}

	if status == domain.PaymentCompleted {
		user, err := r.users.ApplyBalanceDelta(ctx, tx, updated.UserID, updated.Amount)
		if err != nil {
			return nil, domain.ErrInternal("credit deposit", err)
		}
		if user == nil {
			return nil, domain.ErrNotFound("user", updated.UserID.String())
		}
		if err := r.entries.SetBalanceAfter(ctx, tx, updated.ID, user.Balance); err != nil {
			return nil, domain.ErrInternal("snapshot balance", err)
		}
		updated.BalanceAfter = user.Balance

		if err := r.outbox.Insert(ctx, tx, domain.NewDepositCompletedEvent(updated, channel)); err != nil {
			return nil, domain.ErrInternal("insert outbox event", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	r.metrics.ReconcileAttempts.WithLabelValues(channel, string(status)).Inc()
	r.logger.Info("payment reconciled",
		"payment_id", paymentID, "channel", channel, "status", status, "amount", entry.Amount)
	return updated, nil
}

// VerifyPayment resolves a payment through the server-side status lookup,
// polling the gateway a bounded number of times while its answer stays
// indeterminate. When the row carries no stored tracking id (the invoice call
// raced the intent row) the caller's trackId from the return URL fills the
// gap. Returns the entry in its final observed state, which may still be
// pending when the gateway never gave a definite answer.
func (r *Reconciler) VerifyPayment(ctx context.Context, paymentID string, callerTrackID *string) (*domain.LedgerEntry, error) {
	entry, err := r.entries.FindByPaymentID(ctx, r.db, paymentID)
	if err != nil {
		return nil, domain.ErrInternal("find payment", err)
	}
	if entry == nil {
		return nil, domain.ErrNotFound("payment", paymentID)
	}
	if entry.PaymentStatus.IsTerminal() {
		return entry, nil
	}

	var trackID string
	switch {
	case entry.GatewayTransactionID != nil:
		trackID = *entry.GatewayTransactionID
	case callerTrackID != nil && *callerTrackID != "":
		trackID = *callerTrackID
	default:
		// Neither the row nor the caller knows the invoice; nothing to look up.
		return entry, nil
	}

	for attempt := 1; attempt <= r.pollAttempts; attempt++ {
		if check := r.breaker.Check("oxapay_payment_info"); !check.Allowed {
			return nil, domain.ErrGateway("payment gateway temporarily unavailable", nil)
		}

		started := time.Now()
		rawStatus, err := r.gateway.PaymentInfo(ctx, trackID)
		r.metrics.GatewayDuration.WithLabelValues("oxapay_payment_info").Observe(time.Since(started).Seconds())
		if err != nil {
			r.breaker.RecordFailure("oxapay_payment_info")
			return nil, domain.ErrGateway("payment status lookup", err)
		}
		r.breaker.RecordSuccess("oxapay_payment_info")

		signal := domain.SignalFromGatewayInfo(rawStatus)
		if signal != domain.SignalIndeterminate {
			return r.Resolve(ctx, paymentID, &trackID, signal, ChannelVerify)
		}

		r.logger.Debug("payment still in flight",
			"payment_id", paymentID, "gateway_status", rawStatus, "attempt", attempt)

		if attempt == r.pollAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}

	r.metrics.ReconcileAttempts.WithLabelValues(ChannelVerify, "still_pending").Inc()
	return entry, nil
}

func resolutionDescription(status domain.PaymentStatus, amount int64) string {
	switch status {
	case domain.PaymentCompleted:
		return fmt.Sprintf("شارژ حساب به مبلغ %d تومان انجام شد", amount)
	case domain.PaymentCancelled:
		return "پرداخت توسط کاربر لغو شد"
	default:
		return "پرداخت ناموفق بود"
	}
}
