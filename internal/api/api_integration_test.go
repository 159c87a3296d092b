// internal/api/api_integration_test.go
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "tradesim-ledger/internal"
)

var testApp *app.Application
var testServer *httptest.Server

// TestMain boots the full application once, with the in-memory registry, and
// serves it through httptest.
func TestMain(m *testing.M) {
	os.Setenv("STORE", "memory")

	testApp = app.NewApplication()
	if err := testApp.Initialize(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize test application: %v\n", err)
		os.Exit(1)
	}

	testServer = httptest.NewServer(testApp.HTTPHandler)
	code := m.Run()
	testServer.Close()

	if err := testApp.Shutdown(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to shutdown test application: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func doJSON(t *testing.T, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, testServer.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestAccountLifecycle(t *testing.T) {
	// Create with a zero opening deposit.
	resp, body := doJSON(t, http.MethodPost, "/accounts", map[string]interface{}{
		"username":        "alice",
		"initial_deposit": "0",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "alice", body["username"])

	// Duplicate username is a conflict.
	resp, _ = doJSON(t, http.MethodPost, "/accounts", map[string]interface{}{
		"username":        "alice",
		"initial_deposit": "10",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Deposit 1000.
	resp, body = doJSON(t, http.MethodPost, "/accounts/alice/deposit", map[string]interface{}{
		"amount": "1000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1000", body["new_balance"])

	// Overdraft is rejected and reports the available balance.
	resp, body = doJSON(t, http.MethodPost, "/accounts/alice/withdraw", map[string]interface{}{
		"amount": "1500",
	})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Contains(t, body["error"], "available 1000")

	// Buy 5 AAPL at 150.
	resp, body = doJSON(t, http.MethodPost, "/accounts/alice/buy", map[string]interface{}{
		"symbol":   "aapl",
		"quantity": 5,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "250", body["new_balance"])
	assert.EqualValues(t, 5, body["holding_qty"])

	// Sell them all back.
	resp, body = doJSON(t, http.MethodPost, "/accounts/alice/sell", map[string]interface{}{
		"symbol":   "AAPL",
		"quantity": 5,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1000", body["new_balance"])
	assert.EqualValues(t, 0, body["holding_qty"])

	// Portfolio metrics: flat position, P/L zero.
	resp, body = doJSON(t, http.MethodGet, "/accounts/alice/portfolio", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1000", body["total_value"])
	assert.Equal(t, "0", body["profit_loss"])

	// History is newest first: SELL, BUY, DEPOSIT.
	resp, body = doJSON(t, http.MethodGet, "/accounts/alice/transactions?limit=10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, ok := body["data"].([]interface{})
	require.True(t, ok)
	require.Len(t, data, 3)
	first := data[0].(map[string]interface{})
	last := data[2].(map[string]interface{})
	assert.Equal(t, "SELL", first["type"])
	assert.Equal(t, "DEPOSIT", last["type"])

	// The audit replay agrees with the live account.
	resp, body = doJSON(t, http.MethodGet, "/accounts/alice/audit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["consistent"])
	assert.EqualValues(t, 3, body["transaction_count"])
}

func TestTradeRejections(t *testing.T) {
	resp, _ := doJSON(t, http.MethodPost, "/accounts", map[string]interface{}{
		"username":        "bob",
		"initial_deposit": "100",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Unknown symbol.
	resp, _ = doJSON(t, http.MethodPost, "/accounts/bob/buy", map[string]interface{}{
		"symbol":   "DOGE",
		"quantity": 1,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Zero quantity.
	resp, _ = doJSON(t, http.MethodPost, "/accounts/bob/buy", map[string]interface{}{
		"symbol":   "AAPL",
		"quantity": 0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Selling something never owned.
	resp, body := doJSON(t, http.MethodPost, "/accounts/bob/sell", map[string]interface{}{
		"symbol":   "TSLA",
		"quantity": 1,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body["error"], "no shares")

	// Negative deposit.
	resp, _ = doJSON(t, http.MethodPost, "/accounts/bob/deposit", map[string]interface{}{
		"amount": "-5",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown account.
	resp, _ = doJSON(t, http.MethodGet, "/accounts/ghost/balance", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSymbolsEndpoint(t *testing.T) {
	resp, body := doJSON(t, http.MethodGet, "/symbols", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	quotes, ok := body["symbols"].([]interface{})
	require.True(t, ok)
	require.Len(t, quotes, 3)
	first := quotes[0].(map[string]interface{})
	assert.Equal(t, "AAPL", first["symbol"])
	assert.Equal(t, "150", first["price"])
}
