//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nardwin/platform/test/integration/testutil"
)

func servicePOST(t *testing.T, env *testutil.TestEnv, path string, body interface{}) *http.Response {
	t.Helper()
	return env.POST(path, body, testutil.TestServiceToken)
}

func TestPayout_SettlesMatch(t *testing.T) {
	env := testutil.NewTestEnv(t)
	_, winnerID := env.CreateUser("alireza", 5000)
	_, loserID := env.CreateUser("maryam", 9000)

	resp := servicePOST(t, env, "/games/payout", map[string]interface{}{
		"room_id":   uuid.New(),
		"winner_id": winnerID,
		"loser_id":  loserID,
		"wager":     1000,
		"game_kind": "backgammon",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Settled bool `json:"settled"`
		Winner  struct {
			Balance    int64 `json:"balance"`
			Wins       int   `json:"wins"`
			TotalScore int   `json:"total_score"`
		} `json:"winner"`
	}
	env.DecodeBody(resp, &out)
	assert.True(t, out.Settled)
	assert.Equal(t, int64(7000), out.Winner.Balance)
	assert.Equal(t, 1, out.Winner.Wins)
	assert.Equal(t, 20, out.Winner.TotalScore)

	// Winner gets double the wager; the loser's stake was already escrowed
	// by the room, so their balance is untouched here.
	assert.Equal(t, int64(7000), env.Balance(winnerID))
	assert.Equal(t, int64(9000), env.Balance(loserID))
}

func TestPayout_RejectsPlayerToken(t *testing.T) {
	env := testutil.NewTestEnv(t)
	playerToken, winnerID := env.CreateUser("alireza", 5000)
	_, loserID := env.CreateUser("maryam", 9000)

	resp := env.AuthPOST("/games/payout", map[string]interface{}{
		"room_id":   uuid.New(),
		"winner_id": winnerID,
		"loser_id":  loserID,
		"wager":     1000,
		"game_kind": "backgammon",
	}, playerToken)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int64(5000), env.Balance(winnerID))
}

func TestPayout_FreeGameSettlesNothing(t *testing.T) {
	env := testutil.NewTestEnv(t)
	_, winnerID := env.CreateUser("alireza", 5000)
	_, loserID := env.CreateUser("maryam", 9000)

	resp := servicePOST(t, env, "/games/payout", map[string]interface{}{
		"room_id":   uuid.New(),
		"winner_id": winnerID,
		"loser_id":  loserID,
		"wager":     0,
		"game_kind": "backgammon",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Settled bool `json:"settled"`
	}
	env.DecodeBody(resp, &out)
	assert.False(t, out.Settled)
	assert.Equal(t, int64(5000), env.Balance(winnerID))
}

func TestValidateBet(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, _ := env.CreateUser("alireza", 3000)

	t.Run("sufficient balance", func(t *testing.T) {
		resp := env.AuthPOST("/games/validate-bet", map[string]int64{"amount": 2000}, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out struct {
			Valid   bool  `json:"valid"`
			Balance int64 `json:"balance"`
		}
		env.DecodeBody(resp, &out)
		assert.True(t, out.Valid)
		assert.Equal(t, int64(3000), out.Balance)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		resp := env.AuthPOST("/games/validate-bet", map[string]int64{"amount": 5000}, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out struct {
			Valid    bool  `json:"valid"`
			Shortage int64 `json:"shortage"`
		}
		env.DecodeBody(resp, &out)
		assert.False(t, out.Valid)
		assert.Equal(t, int64(2000), out.Shortage)
	})

	t.Run("zero wager is a free game", func(t *testing.T) {
		resp := env.AuthPOST("/games/validate-bet", map[string]int64{"amount": 0}, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out struct {
			Valid bool `json:"valid"`
		}
		env.DecodeBody(resp, &out)
		assert.True(t, out.Valid)
	})
}
