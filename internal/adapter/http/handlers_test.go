package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terangapay/transfert-backend/internal/adapter/artifact"
	"github.com/terangapay/transfert-backend/internal/adapter/repository/memory"
	"github.com/terangapay/transfert-backend/internal/domain"
	"github.com/terangapay/transfert-backend/internal/usecase/adminops"
	"github.com/terangapay/transfert-backend/internal/usecase/history"
	"github.com/terangapay/transfert-backend/internal/usecase/receipt"
	"github.com/terangapay/transfert-backend/internal/usecase/transfer"
)

type testEnv struct {
	store    *memory.Store
	router   http.Handler
	verifier *HMACVerifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	renderer, err := artifact.NewFileRenderer(t.TempDir())
	require.NoError(t, err)

	receiptSvc := receipt.NewService(store.Repositories().Receipts, renderer, logger)
	transferSvc := transfer.NewService(store, receiptSvc, logger)
	adminSvc := adminops.NewService(store, logger)
	historySvc := history.NewService(store)

	verifier := NewHMACVerifier("test-secret")
	handlers := NewHandlers(logger, transferSvc, adminSvc, receiptSvc, historySvc, renderer)
	return &testEnv{
		store:    store,
		router:   NewRouter(handlers, verifier),
		verifier: verifier,
	}
}

func (e *testEnv) seedAccount(t *testing.T, phone, balance string) *domain.Account {
	t.Helper()
	account := &domain.Account{
		Phone:   phone,
		Balance: decimal.RequireFromString(balance),
		Active:  true,
	}
	require.NoError(t, e.store.Repositories().Accounts.Save(context.Background(), account))
	return account
}

func (e *testEnv) do(t *testing.T, method, path, body string, identity *domain.Identity) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if identity != nil {
		req.Header.Set("Authorization", "Bearer "+e.verifier.Issue(*identity))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func user(phone string) *domain.Identity {
	return &domain.Identity{Phone: phone, Role: domain.RoleUser}
}

func admin() *domain.Identity {
	return &domain.Identity{Phone: "770000099", Role: domain.RoleAdmin}
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t)

	t.Run("health check is open", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/healthz", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing credential", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/accounts/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "UNAUTHORIZED", decodeBody(t, rec)["code"])
	})

	t.Run("garbage credential", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/accounts/me", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("user role cannot reach admin routes", func(t *testing.T) {
		env.seedAccount(t, "770000001", "0")
		rec := env.do(t, http.MethodPost, "/accounts/1/deposit", `{"amount": 10}`, user("770000001"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "FORBIDDEN", decodeBody(t, rec)["code"])
	})
}

func TestTransferEndpoint(t *testing.T) {
	t.Run("success returns amounts and an inline receipt", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedAccount(t, "770000001", "1000")
		env.seedAccount(t, "770000002", "0")

		rec := env.do(t, http.MethodPost, "/transfer",
			`{"destinationPhone": "770000002", "amount": 100}`, user("770000001"))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decodeBody(t, rec)
		assert.Equal(t, "100.00", body["amount"])
		assert.Equal(t, "1.00", body["fee"])
		assert.Equal(t, "101.00", body["totalDebited"])
		assert.Equal(t, "SUCCESS", body["status"])

		receiptInfo, ok := body["receipt"].(map[string]any)
		require.True(t, ok, "receipt missing from response")
		assert.Regexp(t, `^RC\d{14}[0-9A-F]{6}$`, receiptInfo["numero"])
		assert.Contains(t, receiptInfo["downloadUrl"], "/receipt")
	})

	t.Run("insufficient funds", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedAccount(t, "770000001", "50")
		env.seedAccount(t, "770000002", "0")

		rec := env.do(t, http.MethodPost, "/transfer",
			`{"destinationPhone": "770000002", "amount": 100}`, user("770000001"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INSUFFICIENT_FUNDS", decodeBody(t, rec)["code"])
	})

	t.Run("unknown recipient", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedAccount(t, "770000001", "1000")

		rec := env.do(t, http.MethodPost, "/transfer",
			`{"destinationPhone": "779999999", "amount": 100}`, user("770000001"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "RECIPIENT_NOT_FOUND", decodeBody(t, rec)["code"])
	})

	t.Run("self transfer", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedAccount(t, "770000001", "1000")

		rec := env.do(t, http.MethodPost, "/transfer",
			`{"destinationPhone": "770000001", "amount": 100}`, user("770000001"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "SELF_TRANSFER", decodeBody(t, rec)["code"])
	})

	t.Run("missing destination", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedAccount(t, "770000001", "1000")

		rec := env.do(t, http.MethodPost, "/transfer", `{"amount": 100}`, user("770000001"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "BAD_REQUEST", decodeBody(t, rec)["code"])
	})
}

func TestAccountAndHistoryEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "770000001", "1000")
	env.seedAccount(t, "770000002", "0")

	sendRec := env.do(t, http.MethodPost, "/transfer",
		`{"destinationPhone": "770000002", "amount": 100}`, user("770000001"))
	require.Equal(t, http.StatusOK, sendRec.Code)
	txID := decodeBody(t, sendRec)["transactionId"]

	t.Run("my account reflects the debit", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/accounts/me", "", user("770000001"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "899.00", decodeBody(t, rec)["balance"])
	})

	t.Run("listing is caller-scoped", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/transactions", "", user("770000002"))
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.EqualValues(t, 1, body["total"])
	})

	t.Run("party reads the record", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/transactions/1", "", user("770000002"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, txID, decodeBody(t, rec)["id"])
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		env.seedAccount(t, "770000003", "0")
		rec := env.do(t, http.MethodGet, "/transactions/1", "", user("770000003"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("stats", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/transactions/stats", "", user("770000001"))
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "100.00", body["totalSent"])
		assert.Equal(t, "1.00", body["totalFees"])
	})
}

func TestReceiptEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "770000001", "1000")
	env.seedAccount(t, "770000002", "0")

	sendRec := env.do(t, http.MethodPost, "/transfer",
		`{"destinationPhone": "770000002", "amount": 100}`, user("770000001"))
	require.Equal(t, http.StatusOK, sendRec.Code)

	t.Run("receipt info", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/transactions/1/receipt-info", "", user("770000001"))
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["hasReceipt"])
		assert.Regexp(t, `^RC\d{14}[0-9A-F]{6}$`, body["receiptNumero"])
	})

	t.Run("download returns the artifact", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/transactions/1/receipt", "", user("770000002"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
		assert.Contains(t, rec.Body.String(), "Amount: 100.00")
	})

	t.Run("stranger cannot download", func(t *testing.T) {
		env.seedAccount(t, "770000003", "0")
		rec := env.do(t, http.MethodGet, "/transactions/1/receipt", "", user("770000003"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no receipt for an admin deposit", func(t *testing.T) {
		dep := env.do(t, http.MethodPost, "/accounts/1/deposit", `{"amount": 10}`, admin())
		require.Equal(t, http.StatusOK, dep.Code)
		depID := decodeBody(t, dep)["id"]

		rec := env.do(t, http.MethodGet, "/transactions/2/receipt-info", "", admin())
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.EqualValues(t, 2, depID)
		assert.Equal(t, false, body["hasReceipt"])
	})
}

func TestAdminEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "770000001", "1000")
	env.seedAccount(t, "770000002", "0")

	t.Run("deposit and withdraw", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/accounts/1/deposit", `{"amount": 500, "memo": "funding"}`, admin())
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "0.00", body["fee"])
		assert.Nil(t, body["sourceAccountId"])

		rec = env.do(t, http.MethodPost, "/accounts/1/withdraw", `{"amount": 500}`, admin())
		require.Equal(t, http.StatusOK, rec.Code)

		me := env.do(t, http.MethodGet, "/accounts/me", "", user("770000001"))
		assert.Equal(t, "1000.00", decodeBody(t, me)["balance"])
	})

	t.Run("cancel a transfer once", func(t *testing.T) {
		send := env.do(t, http.MethodPost, "/transfer",
			`{"destinationPhone": "770000002", "amount": 100}`, user("770000001"))
		require.Equal(t, http.StatusOK, send.Code)
		txID := decodeBody(t, send)["transactionId"]
		path := "/transactions/admin/" + jsonNumber(t, txID) + "/cancel"

		rec := env.do(t, http.MethodPut, path, "", admin())
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "CANCELLED", decodeBody(t, rec)["status"])

		rec = env.do(t, http.MethodPut, path, "", admin())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "ALREADY_CANCELLED", decodeBody(t, rec)["code"])

		// the fee is gone for good
		me := env.do(t, http.MethodGet, "/accounts/me", "", user("770000001"))
		assert.Equal(t, "999.00", decodeBody(t, me)["balance"])
	})

	t.Run("create account", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/admin/accounts",
			`{"ownerId": 9, "phone": "770000009", "accountType": "checking"}`, admin())
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "0.00", decodeBody(t, rec)["balance"])

		rec = env.do(t, http.MethodPost, "/admin/accounts",
			`{"ownerId": 10, "phone": "770000009"}`, admin())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "PHONE_TAKEN", decodeBody(t, rec)["code"])
	})

	t.Run("toggle account status", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/admin/accounts/2/status", "", admin())
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, false, decodeBody(t, rec)["active"])

		rec = env.do(t, http.MethodPut, "/admin/accounts/2/status", "", admin())
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decodeBody(t, rec)["active"])
	})

	t.Run("statistics", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/admin/statistics", "", admin())
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.NotNil(t, body["totalAccounts"])
		assert.NotNil(t, body["totalBalance"])
	})

	t.Run("history feed", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/admin/history", "", admin())
		require.Equal(t, http.StatusOK, rec.Code)
		items, ok := decodeBody(t, rec)["items"].([]any)
		require.True(t, ok)
		require.NotEmpty(t, items)
		// newest first; every mutation above left a mirror entry
		first, ok := items[0].(map[string]any)
		require.True(t, ok)
		assert.NotEmpty(t, first["status"])
		assert.NotEmpty(t, first["recordedAt"])
	})

	t.Run("history scoped to one account", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/admin/history?accountId=2", "", admin())
		require.Equal(t, http.StatusOK, rec.Code)
		items, ok := decodeBody(t, rec)["items"].([]any)
		require.True(t, ok)
		for _, raw := range items {
			entry, ok := raw.(map[string]any)
			require.True(t, ok)
			involved := entry["sourceAccountId"] == float64(2) || entry["destinationAccountId"] == float64(2)
			assert.True(t, involved, "entry %v does not involve account 2", entry)
		}

		rec = env.do(t, http.MethodGet, "/admin/history?accountId=999", "", admin())
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = env.do(t, http.MethodGet, "/admin/history?accountId=bogus", "", admin())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("receipt lookup by numero", func(t *testing.T) {
		send := env.do(t, http.MethodPost, "/transfer",
			`{"destinationPhone": "770000002", "amount": 10}`, user("770000001"))
		require.Equal(t, http.StatusOK, send.Code)
		receiptInfo, ok := decodeBody(t, send)["receipt"].(map[string]any)
		require.True(t, ok)
		numero, ok := receiptInfo["numero"].(string)
		require.True(t, ok)

		rec := env.do(t, http.MethodGet, "/admin/receipts/"+numero, "", admin())
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, numero, body["numero"])
		tx, ok := body["transaction"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "10.00", tx["amount"])

		rec = env.do(t, http.MethodGet, "/admin/receipts/RC20250101000000FFFFFF", "", admin())
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "RECEIPT_NOT_FOUND", decodeBody(t, rec)["code"])
	})

	t.Run("list transactions", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/admin/transactions?limit=1", "", admin())
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		items, ok := body["items"].([]any)
		require.True(t, ok)
		assert.Len(t, items, 1)
	})
}

func jsonNumber(t *testing.T, v any) string {
	t.Helper()
	f, ok := v.(float64)
	require.True(t, ok, "expected a JSON number, got %T", v)
	return strconv.FormatInt(int64(f), 10)
}
