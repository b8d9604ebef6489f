//go:build integration

package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nardwin/platform/internal/app"
	"github.com/nardwin/platform/internal/auth"
	"github.com/nardwin/platform/internal/infra"
)

const (
	TestJWTSecret    = "integration-test-secret-0123456789abcdef"
	TestServiceToken = "integration-service-token"
	TestMerchantKey  = "test-merchant-key"
	TestDBHost       = "localhost"
	TestDBPort       = 5435
	TestDBUser       = "nardwin"
	TestDBPass       = "nardwin"
	TestDBName       = "nardwin_test"
)

// TestEnv holds all resources for an integration test: the API under test,
// the database pool, and stub gateway/oracle servers the API talks to.
type TestEnv struct {
	Server  *httptest.Server
	Pool    *pgxpool.Pool
	JWTMgr  *auth.JWTManager
	Gateway *GatewayStub
	t       *testing.T
}

var (
	sharedPool *pgxpool.Pool
	poolOnce   sync.Once
	poolErr    error
)

func testDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		TestDBUser, TestDBPass, TestDBHost, TestDBPort, TestDBName)
}

func bootstrapDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		TestDBUser, TestDBPass, TestDBHost, TestDBPort, "nardwin")
}

func ensureTestDB() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bPool, err := pgxpool.New(ctx, bootstrapDSN())
	if err != nil {
		return fmt.Errorf("connect bootstrap db: %w", err)
	}
	defer bPool.Close()

	var exists bool
	err = bPool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", TestDBName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check db exists: %w", err)
	}
	if !exists {
		if _, err := bPool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", TestDBName)); err != nil {
			return fmt.Errorf("create test db: %w", err)
		}
	}
	return nil
}

func runMigrations() error {
	root := findProjectRoot()
	m, err := migrate.New(fmt.Sprintf("file://%s/db/migrations", root), testDSN())
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func findProjectRoot() string {
	dir, _ := os.Getwd()
	for dir != "" && dir != "/" {
		if _, err := os.Stat(dir + "/go.mod"); err == nil {
			return dir
		}
		dir = dir[:strings.LastIndex(dir, "/")]
	}
	return "."
}

func getSharedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	poolOnce.Do(func() {
		if err := ensureTestDB(); err != nil {
			poolErr = err
			return
		}
		if err := runMigrations(); err != nil {
			poolErr = err
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		poolCfg, err := pgxpool.ParseConfig(testDSN())
		if err != nil {
			poolErr = fmt.Errorf("parse pool config: %w", err)
			return
		}
		poolCfg.MaxConns = 10
		poolCfg.MinConns = 1

		sharedPool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			poolErr = fmt.Errorf("create pool: %w", err)
		}
	})

	if poolErr != nil {
		t.Fatalf("failed to initialize test pool: %v", poolErr)
	}
	return sharedPool
}

// GatewayStub emulates the Oxapay invoice and payment-info endpoints plus
// the Nobitex orderbook, so the API under test runs against live HTTP.
type GatewayStub struct {
	Server *httptest.Server

	mu          sync.Mutex
	nextTrackID int
	infoStatus  string // served by the payment-info endpoint
	rateRial    float64
}

func newGatewayStub() *GatewayStub {
	g := &GatewayStub{nextTrackID: 18000000, infoStatus: "waiting", rateRial: 500000}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /invoice", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.nextTrackID++
		trackID := g.nextTrackID
		g.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": 200,
			"data": map[string]interface{}{
				"track_id":    trackID,
				"payment_url": fmt.Sprintf("https://pay.test/%d", trackID),
			},
		})
	})
	mux.HandleFunc("GET /payment/", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		status := g.infoStatus
		g.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"status": status},
		})
	})
	mux.HandleFunc("GET /orderbook", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		rate := g.rateRial
		g.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":         "ok",
			"lastTradePrice": fmt.Sprintf("%.0f", rate),
			"asks":           [][]string{{fmt.Sprintf("%.0f", rate+1000), "1.5"}},
		})
	})

	g.Server = httptest.NewServer(mux)
	return g
}

// SetInfoStatus controls what the payment-info lookup reports.
func (g *GatewayStub) SetInfoStatus(status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.infoStatus = status
}

// NewTestEnv creates a test environment with an httptest.Server backed by the
// real router, the test DB, and stubbed external endpoints.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	pool := getSharedPool(t)
	stub := newGatewayStub()

	cfg := &infra.Config{
		APIPort:              3100,
		BaseURL:              "http://localhost:3100",
		JWTSecret:            TestJWTSecret,
		JWTExpiry:            24 * time.Hour,
		ServiceToken:         TestServiceToken,
		OxapayMerchantKey:    TestMerchantKey,
		OxapayInvoiceURL:     stub.Server.URL + "/invoice",
		OxapayPaymentInfoURL: stub.Server.URL + "/payment",
		GatewayTimeout:       5 * time.Second,
		NobitexAPIURL:        stub.Server.URL + "/orderbook",
		PriceCacheTTL:        time.Millisecond, // force a fresh quote per request
		VerifyPollInterval:   10 * time.Millisecond,
		VerifyPollAttempts:   3,
		MinWithdrawAmount:    100000,
		CORSAllowedOrigins:   "*",
	}

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	router := app.NewRouter(app.RouterDeps{
		Pool:   pool,
		Config: cfg,
		JWTMgr: jwtMgr,
		Logger: logger,
	})

	server := httptest.NewServer(router)

	env := &TestEnv{
		Server:  server,
		Pool:    pool,
		JWTMgr:  jwtMgr,
		Gateway: stub,
		t:       t,
	}

	t.Cleanup(func() {
		server.Close()
		stub.Server.Close()
		env.CleanAll()
	})

	env.CleanAll()
	return env
}
