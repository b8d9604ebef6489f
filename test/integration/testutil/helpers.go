//go:build integration

package testutil

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// CreateUser inserts a user row directly and mints a session token. The
// platform has no registration endpoint: accounts arrive from the main app.
func (env *TestEnv) CreateUser(userName string, balance int64) (token string, userID uuid.UUID) {
	env.t.Helper()

	userID = uuid.New()
	_, err := env.Pool.Exec(context.Background(), `
		INSERT INTO users (id, user_name, balance) VALUES ($1, $2, $3)`,
		userID, userName, balance)
	if err != nil {
		env.t.Fatalf("CreateUser: %v", err)
	}

	token, err = env.JWTMgr.GenerateToken(userID, userName)
	if err != nil {
		env.t.Fatalf("CreateUser: token: %v", err)
	}
	return token, userID
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	resp, err := http.Get(env.Server.URL + path)
	if err != nil {
		env.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// POST performs a POST request with optional auth token.
func (env *TestEnv) POST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("POST %s: encode: %v", path, err)
		}
	}
	req, err := http.NewRequest("POST", env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("POST %s: new request: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// AuthGET performs an authenticated GET request.
func (env *TestEnv) AuthGET(path, token string) *http.Response {
	env.t.Helper()
	req, err := http.NewRequest("GET", env.Server.URL+path, nil)
	if err != nil {
		env.t.Fatalf("AuthGET %s: new request: %v", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("AuthGET %s: %v", path, err)
	}
	return resp
}

// AuthPOST performs an authenticated POST request.
func (env *TestEnv) AuthPOST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.POST(path, body, token)
}

// SignedWebhook posts a gateway callback with a valid HMAC-SHA512 signature.
func (env *TestEnv) SignedWebhook(payload map[string]interface{}) *http.Response {
	env.t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		env.t.Fatalf("SignedWebhook: encode: %v", err)
	}

	mac := hmac.New(sha512.New, []byte(TestMerchantKey))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequest("POST", env.Server.URL+"/webhooks/oxapay", bytes.NewReader(body))
	if err != nil {
		env.t.Fatalf("SignedWebhook: new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HMAC", sig)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("SignedWebhook: %v", err)
	}
	return resp
}

// Balance reads the user's stored balance straight from the database.
func (env *TestEnv) Balance(userID uuid.UUID) int64 {
	env.t.Helper()
	var balance int64
	err := env.Pool.QueryRow(context.Background(),
		`SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		env.t.Fatalf("Balance: %v", err)
	}
	return balance
}

// PaymentStatus reads a deposit entry's payment status by correlation id.
func (env *TestEnv) PaymentStatus(paymentID string) string {
	env.t.Helper()
	var status string
	err := env.Pool.QueryRow(context.Background(),
		`SELECT payment_status FROM ledger_entries WHERE payment_id = $1`, paymentID).Scan(&status)
	if err != nil {
		env.t.Fatalf("PaymentStatus: %v", err)
	}
	return status
}

// DecodeBody decodes a JSON response body into dst and closes the body.
func (env *TestEnv) DecodeBody(resp *http.Response, dst interface{}) {
	env.t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		env.t.Fatalf("DecodeBody: %v", err)
	}
}
