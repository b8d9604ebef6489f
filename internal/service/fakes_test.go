package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
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

// The fakes below back the service tests with an in-memory store. Commit and
// rollback are no-ops: transactional atomicity belongs to postgres and is
// covered by the integration suite, while these tests pin down the service
// decision logic (ordering, idempotency, signal handling).

type fakeTx struct{ pgx.Tx }

func (fakeTx) Commit(ctx context.Context) error   { return nil }
func (fakeTx) Rollback(ctx context.Context) error { return nil }

type fakeDB struct{ repository.DBTX }

func (fakeDB) Begin(ctx context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *fakeUserRepo) add(u *domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Rank == 0 {
		u.Rank = domain.RankForScore(u.TotalScore)
	}
	r.users[u.ID] = u
	return u
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func (r *fakeUserRepo) FindByID(ctx context.Context, db repository.DBTX, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUser(r.users[id]), nil
}

func (r *fakeUserRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUser(r.users[id]), nil
}

func (r *fakeUserRepo) Create(ctx context.Context, db repository.DBTX, user *domain.User) error {
	r.add(user)
	return nil
}

func (r *fakeUserRepo) ApplyBalanceDelta(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	if u.Balance+delta < 0 {
		return nil, fmt.Errorf("balance check constraint violated")
	}
	u.Balance += delta
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

func (r *fakeUserRepo) UpdateGameStats(ctx context.Context, tx pgx.Tx, id uuid.UUID, winsDelta, lossesDelta, totalScore, rank int) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	u.Wins += winsDelta
	u.Losses += lossesDelta
	u.TotalScore = totalScore
	u.Rank = rank
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

type fakeLedgerRepo struct {
	mu      sync.Mutex
	entries []*domain.LedgerEntry
}

func cloneEntry(e *domain.LedgerEntry) *domain.LedgerEntry {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

func (r *fakeLedgerRepo) Insert(ctx context.Context, db repository.DBTX, entry *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := cloneEntry(entry)
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now()
	if stored.PaymentID != nil && stored.PaymentStatus == "" {
		stored.PaymentStatus = domain.PaymentPending
	}
	r.entries = append(r.entries, stored)
	return cloneEntry(stored), nil
}

func (r *fakeLedgerRepo) FindByPaymentID(ctx context.Context, db repository.DBTX, paymentID string) (*domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.PaymentID != nil && *e.PaymentID == paymentID {
			return cloneEntry(e), nil
		}
	}
	return nil, nil
}

func (r *fakeLedgerRepo) TransitionPaymentStatus(ctx context.Context, db repository.DBTX, paymentID string, to domain.PaymentStatus, description string, trackingID *string) (*domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.PaymentID != nil && *e.PaymentID == paymentID && e.PaymentStatus == domain.PaymentPending {
			e.PaymentStatus = to
			e.Description = description
			if trackingID != nil {
				e.GatewayTransactionID = trackingID
			}
			return cloneEntry(e), nil
		}
	}
	return nil, nil
}

func (r *fakeLedgerRepo) SetBalanceAfter(ctx context.Context, tx pgx.Tx, id uuid.UUID, balanceAfter int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			e.BalanceAfter = balanceAfter
			return nil
		}
	}
	return fmt.Errorf("entry %s not found", id)
}

func (r *fakeLedgerRepo) SetGatewayTrackingID(ctx context.Context, db repository.DBTX, id uuid.UUID, trackingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			e.GatewayTransactionID = &trackingID
			return nil
		}
	}
	return fmt.Errorf("entry %s not found", id)
}

func (r *fakeLedgerRepo) ListByUser(ctx context.Context, db repository.DBTX, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var out []domain.LedgerEntry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].UserID == userID {
			out = append(out, *cloneEntry(r.entries[i]))
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) byPaymentID(paymentID string) *domain.LedgerEntry {
	e, _ := r.FindByPaymentID(context.Background(), nil, paymentID)
	return e
}

type fakeOutboxRepo struct {
	mu     sync.Mutex
	drafts []domain.OutboxDraft
}

func (r *fakeOutboxRepo) Insert(ctx context.Context, db repository.DBTX, draft domain.OutboxDraft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts = append(r.drafts, draft)
	return nil
}

func (r *fakeOutboxRepo) countByType(t domain.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.drafts {
		if d.EventType == t {
			n++
		}
	}
	return n
}

type fakeOracle struct {
	rateToman float64
	err       error
}

func (o *fakeOracle) Quote(ctx context.Context) (*provider.PriceQuote, error) {
	if o.err != nil {
		return nil, domain.ErrQuoteUnavailable(o.err)
	}
	return &provider.PriceQuote{RateToman: o.rateToman, FetchedAt: time.Now()}, nil
}

func (o *fakeOracle) Convert(ctx context.Context, toman int64) (float64, *provider.PriceQuote, error) {
	quote, err := o.Quote(ctx)
	if err != nil {
		return 0, nil, err
	}
	usdt := math.Round(float64(toman)/quote.RateToman*1e6) / 1e6
	if usdt < provider.MinSettlementAmount {
		return 0, quote, domain.ErrBelowMinimum("amount below gateway minimum")
	}
	return usdt, quote, nil
}

type fakeGateway struct {
	mu           sync.Mutex
	trackID      string
	invoiceErr   error
	infoStatuses []string
	infoCalls    int
}

func (g *fakeGateway) CreateInvoice(ctx context.Context, req provider.InvoiceRequest) (*provider.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.invoiceErr != nil {
		return nil, g.invoiceErr
	}
	if g.trackID == "" {
		g.trackID = "18502917"
	}
	return &provider.Invoice{TrackID: g.trackID, PaymentURL: "https://pay.oxapay.com/" + g.trackID}, nil
}

func (g *fakeGateway) PaymentInfo(ctx context.Context, trackID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.infoCalls++
	if len(g.infoStatuses) == 0 {
		return "waiting", nil
	}
	status := g.infoStatuses[0]
	if len(g.infoStatuses) > 1 {
		g.infoStatuses = g.infoStatuses[1:]
	}
	return status, nil
}

func (g *fakeGateway) VerifyWebhookSignature(payload []byte, sigHeader string) error {
	return nil
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.infoCalls
}

// testEnv bundles one fully wired service stack over the fakes.
type testEnv struct {
	users   *fakeUserRepo
	entries *fakeLedgerRepo
	outbox  *fakeOutboxRepo
	oracle  *fakeOracle
	gateway *fakeGateway

	payments   *PaymentService
	reconciler *Reconciler
	games      *GameService
}

func newTestEnv() *testEnv {
	users := newFakeUserRepo()
	entries := &fakeLedgerRepo{}
	outbox := &fakeOutboxRepo{}
	oracle := &fakeOracle{rateToman: 50000}
	gateway := &fakeGateway{}

	db := fakeDB{}
	engine := ledger.NewEngine(users, entries, outbox)
	breaker := guard.NewCircuitBreaker(5, time.Minute)
	m := metrics.NewNop()
	logger := slog.New(slog.DiscardHandler)

	return &testEnv{
		users:   users,
		entries: entries,
		outbox:  outbox,
		oracle:  oracle,
		gateway: gateway,
		payments: NewPaymentService(db, oracle, gateway, users, entries, engine, breaker, m, logger,
			"http://localhost:3100", 100000),
		reconciler: NewReconciler(db, gateway, users, entries, outbox, breaker, m, logger,
			time.Millisecond, 5),
		games: NewGameService(db, users, engine, m, logger),
	}
}
