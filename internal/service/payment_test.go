package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nardwin/platform/internal/domain"
)

func appErrCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Code
}

func TestCreateDepositIntent(t *testing.T) {
	env := newTestEnv()
	user := env.users.add(&domain.User{UserName: "alireza", Balance: 0})

	intent, err := env.payments.CreateDepositIntent(context.Background(), user.ID, 500000)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(intent.PaymentID, "PAY-"), "payment id %q", intent.PaymentID)
	assert.Equal(t, 10.0, intent.AmountUSDT) // 500000 toman at 50000 toman/USDT
	assert.Equal(t, int64(500000), intent.AmountToman)
	assert.NotEmpty(t, intent.TrackID)
	assert.NotEmpty(t, intent.PaymentURL)

	entry := env.entries.byPaymentID(intent.PaymentID)
	require.NotNil(t, entry)
	assert.Equal(t, domain.EntryDeposit, entry.Type)
	assert.Equal(t, domain.PaymentPending, entry.PaymentStatus)
	assert.Equal(t, int64(500000), entry.Amount)
	require.NotNil(t, entry.GatewayTransactionID)
	assert.Equal(t, intent.TrackID, *entry.GatewayTransactionID)

	// Intent creation never touches the balance.
	fetched, err := env.payments.GetBalance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), fetched.Balance)
}

func TestCreateDepositIntent_BelowMinimum(t *testing.T) {
	env := newTestEnv()
	user := env.users.add(&domain.User{UserName: "alireza"})

	// 400 toman at 50000 toman/USDT is 0.008 USDT, under the gateway floor.
	_, err := env.payments.CreateDepositIntent(context.Background(), user.ID, 400)
	assert.Equal(t, "BELOW_MINIMUM", appErrCode(t, err))
	assert.Empty(t, env.entries.entries, "no pending row for a rejected quote")
}

func TestCreateDepositIntent_QuoteUnavailable(t *testing.T) {
	env := newTestEnv()
	user := env.users.add(&domain.User{UserName: "alireza"})
	env.oracle.err = errors.New("connection refused")

	_, err := env.payments.CreateDepositIntent(context.Background(), user.ID, 500000)
	assert.Equal(t, "QUOTE_UNAVAILABLE", appErrCode(t, err))
}

func TestCreateDepositIntent_GatewayFailure(t *testing.T) {
	env := newTestEnv()
	user := env.users.add(&domain.User{UserName: "alireza"})
	env.gateway.invoiceErr = fmt.Errorf("invoice rejected: invalid merchant")

	_, err := env.payments.CreateDepositIntent(context.Background(), user.ID, 500000)
	assert.Equal(t, "GATEWAY_ERROR", appErrCode(t, err))

	// The pending row must not linger as an open intent.
	require.Len(t, env.entries.entries, 1)
	assert.Equal(t, domain.PaymentFailed, env.entries.entries[0].PaymentStatus)
}

func TestCreateDepositIntent_InvalidAmount(t *testing.T) {
	env := newTestEnv()
	user := env.users.add(&domain.User{UserName: "alireza"})

	_, err := env.payments.CreateDepositIntent(context.Background(), user.ID, -100)
	assert.Equal(t, "VALIDATION_ERROR", appErrCode(t, err))
}

func TestWithdraw(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		env := newTestEnv()
		user := env.users.add(&domain.User{UserName: "alireza", Balance: 500000})

		result, err := env.payments.Withdraw(context.Background(), user.ID, 200000)
		require.NoError(t, err)

		assert.Equal(t, int64(300000), result.User.Balance)
		assert.Equal(t, domain.EntryWithdraw, result.Entry.Type)
		assert.Equal(t, int64(-200000), result.Entry.Amount)
		assert.Equal(t, int64(300000), result.Entry.BalanceAfter)
	})

	t.Run("below minimum floor", func(t *testing.T) {
		env := newTestEnv()
		user := env.users.add(&domain.User{UserName: "alireza", Balance: 500000})

		_, err := env.payments.Withdraw(context.Background(), user.ID, 50000)
		assert.Equal(t, "BELOW_MINIMUM", appErrCode(t, err))
	})

	t.Run("insufficient balance", func(t *testing.T) {
		env := newTestEnv()
		user := env.users.add(&domain.User{UserName: "alireza", Balance: 500000})

		_, err := env.payments.Withdraw(context.Background(), user.ID, 600000)
		assert.Equal(t, "INSUFFICIENT_BALANCE", appErrCode(t, err))

		fetched, err := env.payments.GetBalance(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(500000), fetched.Balance)
	})

	t.Run("unknown user", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.payments.Withdraw(context.Background(), uuid.New(), 200000)
		assert.Equal(t, "NOT_FOUND", appErrCode(t, err))
	})
}

func TestGift(t *testing.T) {
	t.Run("conserves total balance", func(t *testing.T) {
		env := newTestEnv()
		sender := env.users.add(&domain.User{UserName: "alireza", Balance: 80000})
		receiver := env.users.add(&domain.User{UserName: "maryam", Balance: 20000})

		result, err := env.payments.Gift(context.Background(), sender.ID, receiver.ID, 30000)
		require.NoError(t, err)

		assert.Equal(t, int64(50000), result.Sender.Balance)
		assert.Equal(t, int64(50000), result.Receiver.Balance)
		assert.Equal(t, int64(-30000), result.SentEntry.Amount)
		assert.Equal(t, int64(30000), result.ReceivedEntry.Amount)
		require.NotNil(t, result.SentEntry.RelatedUserID)
		assert.Equal(t, receiver.ID, *result.SentEntry.RelatedUserID)
	})

	t.Run("self gift rejected", func(t *testing.T) {
		env := newTestEnv()
		user := env.users.add(&domain.User{UserName: "alireza", Balance: 80000})

		_, err := env.payments.Gift(context.Background(), user.ID, user.ID, 10000)
		assert.Equal(t, "VALIDATION_ERROR", appErrCode(t, err))
	})

	t.Run("insufficient balance", func(t *testing.T) {
		env := newTestEnv()
		sender := env.users.add(&domain.User{UserName: "alireza", Balance: 5000})
		receiver := env.users.add(&domain.User{UserName: "maryam"})

		_, err := env.payments.Gift(context.Background(), sender.ID, receiver.ID, 10000)
		assert.Equal(t, "INSUFFICIENT_BALANCE", appErrCode(t, err))
	})
}

func TestListTransactions(t *testing.T) {
	env := newTestEnv()
	user := env.users.add(&domain.User{UserName: "alireza", Balance: 1000000})

	_, err := env.payments.Withdraw(context.Background(), user.ID, 100000)
	require.NoError(t, err)
	_, err = env.payments.Withdraw(context.Background(), user.ID, 150000)
	require.NoError(t, err)

	entries, err := env.payments.ListTransactions(context.Background(), user.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, int64(-150000), entries[0].Amount)
	assert.Equal(t, int64(-100000), entries[1].Amount)
}
