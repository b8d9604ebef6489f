package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nardwin/platform/internal/domain"
	"github.com/nardwin/platform/internal/guard"
	"github.com/nardwin/platform/internal/ledger"
	"github.com/nardwin/platform/internal/metrics"
	"github.com/nardwin/platform/internal/provider"
	"github.com/nardwin/platform/internal/repository"
)

// DB is the database handle the services run against. pgxpool.Pool satisfies
// it; tests substitute an in-memory fake.
type DB interface {
	repository.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PriceOracle converts toman amounts to gateway settlement amounts.
type PriceOracle interface {
	Quote(ctx context.Context) (*provider.PriceQuote, error)
	Convert(ctx context.Context, toman int64) (float64, *provider.PriceQuote, error)
}

// PaymentGateway is the outbound payment provider surface.
type PaymentGateway interface {
	CreateInvoice(ctx context.Context, req provider.InvoiceRequest) (*provider.Invoice, error)
	PaymentInfo(ctx context.Context, trackID string) (string, error)
	VerifyWebhookSignature(payload []byte, sigHeader string) error
}

// PaymentService orchestrates deposit intents, withdrawals, gifts and
// transaction history.
type PaymentService struct {
	db      DB
	oracle  PriceOracle
	gateway PaymentGateway
	users   repository.UserRepository
	entries repository.LedgerRepository
	engine  *ledger.Engine
	breaker *guard.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger

	baseURL           string
	minWithdrawAmount int64
}

// NewPaymentService creates a PaymentService.
func NewPaymentService(
	db DB,
	oracle PriceOracle,
	gateway PaymentGateway,
	users repository.UserRepository,
	entries repository.LedgerRepository,
	engine *ledger.Engine,
	breaker *guard.CircuitBreaker,
	m *metrics.Metrics,
	logger *slog.Logger,
	baseURL string,
	minWithdrawAmount int64,
) *PaymentService {
	return &PaymentService{
		db:                db,
		oracle:            oracle,
		gateway:           gateway,
		users:             users,
		entries:           entries,
		engine:            engine,
		breaker:           breaker,
		metrics:           m,
		logger:            logger,
		baseURL:           baseURL,
		minWithdrawAmount: minWithdrawAmount,
	}
}

// DepositIntent is the created gateway checkout, returned to the client.
type DepositIntent struct {
	PaymentID   string  `json:"payment_id"`
	TrackID     string  `json:"track_id"`
	PaymentURL  string  `json:"payment_url"`
	AmountToman int64   `json:"amount_toman"`
	AmountUSDT  float64 `json:"amount_usdt"`
	RateToman   float64 `json:"rate_toman"`
}

// CreateDepositIntent quotes the toman amount into USDT, records a pending
// deposit entry keyed by a fresh correlation id, and asks the gateway for a
// hosted payment page. The pending row exists before the gateway call, so a
// gateway status report can never arrive for an unknown payment.
func (s *PaymentService) CreateDepositIntent(ctx context.Context, userID uuid.UUID, amountToman int64) (*DepositIntent, error) {
	if err := domain.ValidatePositiveAmount(amountToman); err != nil {
		s.metrics.DepositIntents.WithLabelValues("rejected").Inc()
		return nil, err
	}

	usdt, quote, err := s.oracle.Convert(ctx, amountToman)
	if err != nil {
		s.metrics.DepositIntents.WithLabelValues("rejected").Inc()
		return nil, err
	}

	user, err := s.users.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user", userID.String())
	}

	paymentID := newCorrelationID()
	gatewayName := provider.GatewayName

	entry, err := s.entries.Insert(ctx, s.db, &domain.LedgerEntry{
		UserID:      userID,
		Type:        domain.EntryDeposit,
		Amount:      amountToman,
		Description: fmt.Sprintf("شارژ حساب به مبلغ %d تومان", amountToman),
		PaymentID:   &paymentID,
		Gateway:     &gatewayName,
	})
	if err != nil {
		return nil, domain.ErrInternal("record pending deposit", err)
	}

	if check := s.breaker.Check("oxapay_invoice"); !check.Allowed {
		s.failPendingDeposit(ctx, paymentID, "gateway circuit open")
		s.metrics.DepositIntents.WithLabelValues("gateway_error").Inc()
		return nil, domain.ErrGateway("payment gateway temporarily unavailable", nil)
	}

	started := time.Now()
	invoice, err := s.gateway.CreateInvoice(ctx, provider.InvoiceRequest{
		AmountUSDT:  usdt,
		OrderID:     paymentID,
		Email:       user.UserName + "@nardwin.local",
		Description: fmt.Sprintf("wallet top-up %d toman", amountToman),
		CallbackURL: s.baseURL + "/webhooks/oxapay",
		ReturnURL:   s.baseURL + "/wallet/payment/callback?orderId=" + paymentID,
	})
	s.metrics.GatewayDuration.WithLabelValues("oxapay_invoice").Observe(time.Since(started).Seconds())
	if err != nil {
		s.breaker.RecordFailure("oxapay_invoice")
		s.failPendingDeposit(ctx, paymentID, "invoice creation failed")
		s.metrics.DepositIntents.WithLabelValues("gateway_error").Inc()
		return nil, domain.ErrGateway("create invoice", err)
	}
	s.breaker.RecordSuccess("oxapay_invoice")

	if err := s.entries.SetGatewayTrackingID(ctx, s.db, entry.ID, invoice.TrackID); err != nil {
		s.logger.Error("attach tracking id", "payment_id", paymentID, "error", err)
	}

	s.metrics.DepositIntents.WithLabelValues("created").Inc()
	s.logger.Info("deposit intent created",
		"payment_id", paymentID, "user_id", userID,
		"amount_toman", amountToman, "amount_usdt", usdt, "track_id", invoice.TrackID)

	return &DepositIntent{
		PaymentID:   paymentID,
		TrackID:     invoice.TrackID,
		PaymentURL:  invoice.PaymentURL,
		AmountToman: amountToman,
		AmountUSDT:  usdt,
		RateToman:   quote.RateToman,
	}, nil
}

// failPendingDeposit moves the freshly minted pending row to failed so it
// never lingers as an open intent. Best effort: the row is already pending
// and reconciliation would close it the same way.
func (s *PaymentService) failPendingDeposit(ctx context.Context, paymentID, reason string) {
	if _, err := s.entries.TransitionPaymentStatus(ctx, s.db, paymentID, domain.PaymentFailed,
		fmt.Sprintf("پرداخت ناموفق: %s", reason), nil); err != nil {
		s.logger.Error("fail pending deposit", "payment_id", paymentID, "error", err)
	}
}

// Withdraw debits the user's balance after enforcing the minimum floor.
func (s *PaymentService) Withdraw(ctx context.Context, userID uuid.UUID, amount int64) (*domain.CommandResult, error) {
	if err := domain.ValidatePositiveAmount(amount); err != nil {
		return nil, err
	}
	if amount < s.minWithdrawAmount {
		return nil, domain.ErrBelowMinimum(
			fmt.Sprintf("minimum withdrawal is %d toman", s.minWithdrawAmount))
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	result, err := s.engine.ExecuteWithdraw(ctx, tx, domain.WithdrawParams{
		UserID: userID,
		Amount: amount,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	s.logger.Info("withdrawal recorded", "user_id", userID, "amount", amount, "balance", result.User.Balance)
	return result, nil
}

// Gift transfers balance between two users atomically.
func (s *PaymentService) Gift(ctx context.Context, fromUserID, toUserID uuid.UUID, amount int64) (*domain.GiftResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	result, err := s.engine.ExecuteGift(ctx, tx, domain.GiftParams{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Amount:     amount,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	s.logger.Info("gift transferred", "from", fromUserID, "to", toUserID, "amount", amount)
	return result, nil
}

// GetBalance returns the user's wallet snapshot.
func (s *PaymentService) GetBalance(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user", userID.String())
	}
	return user, nil
}

// ListTransactions returns the user's ledger history, newest first.
func (s *PaymentService) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	entries, err := s.entries.ListByUser(ctx, s.db, userID, limit)
	if err != nil {
		return nil, domain.ErrInternal("list transactions", err)
	}
	return entries, nil
}

// newCorrelationID mints the platform-side payment id the gateway echoes on
// every status report.
func newCorrelationID() string {
	return fmt.Sprintf("PAY-%d-%s", time.Now().UnixMilli(), uuid.New().String()[:8])
}
