//go:build integration

package testutil

import (
	"context"
	"time"
)

// CleanAll truncates all mutable tables so each test starts from scratch.
func (env *TestEnv) CleanAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := env.Pool.Exec(ctx,
		`TRUNCATE TABLE event_outbox, ledger_entries, users RESTART IDENTITY CASCADE`)
	if err != nil {
		env.t.Fatalf("CleanAll: %v", err)
	}
}
