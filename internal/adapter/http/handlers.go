// Package http exposes the REST surface of the ledger. Handlers verify the
// caller once, resolve their account explicitly and hand everything to the
// usecase services as plain values.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/terangapay/transfert-backend/internal/adapter/artifact"
	"github.com/terangapay/transfert-backend/internal/domain"
	"github.com/terangapay/transfert-backend/internal/usecase/adminops"
	"github.com/terangapay/transfert-backend/internal/usecase/history"
	"github.com/terangapay/transfert-backend/internal/usecase/receipt"
	"github.com/terangapay/transfert-backend/internal/usecase/transfer"
)

// Handlers exposes HTTP handlers for the REST API.
type Handlers struct {
	logger    *slog.Logger
	transfers *transfer.Service
	admin     *adminops.Service
	receipts  *receipt.Service
	history   *history.Service
	artifacts *artifact.FileRenderer
}

// NewHandlers constructs a Handlers instance.
func NewHandlers(
	logger *slog.Logger,
	transfers *transfer.Service,
	admin *adminops.Service,
	receipts *receipt.Service,
	historySvc *history.Service,
	artifacts *artifact.FileRenderer,
) *Handlers {
	return &Handlers{
		logger:    logger,
		transfers: transfers,
		admin:     admin,
		receipts:  receipts,
		history:   historySvc,
		artifacts: artifacts,
	}
}

func (h *Handlers) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- transfer ---

type transferRequest struct {
	DestinationPhone string          `json:"destinationPhone"`
	Amount           decimal.Decimal `json:"amount"`
}

type receiptInfoPayload struct {
	Numero      string `json:"numero"`
	DownloadURL string `json:"downloadUrl"`
	GeneratedAt string `json:"generatedAt"`
}

type transferResponse struct {
	TransactionID int64               `json:"transactionId"`
	Amount        string              `json:"amount"`
	Fee           string              `json:"fee"`
	TotalDebited  string              `json:"totalDebited"`
	Status        string              `json:"status"`
	Date          string              `json:"date"`
	Receipt       *receiptInfoPayload `json:"receipt,omitempty"`
}

func (h *Handlers) transfer(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var payload transferRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if payload.DestinationPhone == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "destinationPhone is required")
		return
	}

	source, err := h.history.CallerAccount(r.Context(), identity.Phone)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := h.transfers.Transfer(r.Context(), transfer.Input{
		SourceAccountID:  source.ID,
		DestinationPhone: payload.DestinationPhone,
		Amount:           payload.Amount,
	})
	if err != nil {
		h.logger.Info("transfer rejected", "sourceAccountId", source.ID, "error", err)
		writeDomainError(w, err)
		return
	}

	resp := transferResponse{
		TransactionID: result.Transaction.ID,
		Amount:        result.Transaction.Amount.StringFixed(2),
		Fee:           result.Fee.StringFixed(2),
		TotalDebited:  result.TotalDebited.StringFixed(2),
		Status:        string(result.Transaction.Status),
		Date:          result.Transaction.CreatedAt.UTC().Format(time.RFC3339),
	}
	if result.Receipt != nil {
		resp.Receipt = &receiptInfoPayload{
			Numero:      result.Receipt.Numero,
			DownloadURL: fmt.Sprintf("/transactions/%d/receipt", result.Transaction.ID),
			GeneratedAt: result.Receipt.GeneratedAt.UTC().Format(time.RFC3339),
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// --- caller account & history ---

type accountResponse struct {
	ID          int64  `json:"id"`
	OwnerID     int64  `json:"ownerId"`
	Phone       string `json:"phone"`
	AccountType string `json:"accountType"`
	Balance     string `json:"balance"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"createdAt"`
}

func toAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:          a.ID,
		OwnerID:     a.OwnerID,
		Phone:       a.Phone,
		AccountType: a.AccountType,
		Balance:     a.Balance.StringFixed(2),
		Active:      a.Active,
		CreatedAt:   a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handlers) myAccount(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	account, err := h.history.CallerAccount(r.Context(), identity.Phone)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toAccountResponse(account))
}

type transactionResponse struct {
	ID                   int64  `json:"id"`
	SourceAccountID      *int64 `json:"sourceAccountId"`
	DestinationAccountID *int64 `json:"destinationAccountId"`
	Amount               string `json:"amount"`
	Fee                  string `json:"fee"`
	Status               string `json:"status"`
	Memo                 string `json:"memo,omitempty"`
	Date                 string `json:"date"`
}

func toTransactionResponse(t *domain.Transaction) transactionResponse {
	return transactionResponse{
		ID:                   t.ID,
		SourceAccountID:      t.SourceAccountID,
		DestinationAccountID: t.DestinationAccountID,
		Amount:               t.Amount.StringFixed(2),
		Fee:                  t.Fee.StringFixed(2),
		Status:               string(t.Status),
		Memo:                 t.Memo,
		Date:                 t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type transactionListResponse struct {
	Items []transactionResponse `json:"items"`
	Total int                   `json:"total"`
}

func (h *Handlers) listTransactions(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	query := r.URL.Query()

	params := history.ListParams{
		Direction: domain.Direction(query.Get("direction")),
		Limit:     parseInt(query.Get("limit"), 20),
		Offset:    parseInt(query.Get("offset"), 0),
	}
	if v := query.Get("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid from timestamp")
			return
		}
		params.From = &ts
	}
	if v := query.Get("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid to timestamp")
			return
		}
		params.To = &ts
	}

	items, total, err := h.history.List(r.Context(), identity, params)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := transactionListResponse{Items: []transactionResponse{}, Total: total}
	for _, item := range items {
		resp.Items = append(resp.Items, toTransactionResponse(item))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) getTransaction(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tx, err := h.history.Get(r.Context(), id, identity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (h *Handlers) transactionStats(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	totals, err := h.history.TotalsFor(r.Context(), identity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"totalSent":     totals.Sent.StringFixed(2),
		"totalReceived": totals.Received.StringFixed(2),
		"totalFees":     totals.Fees.StringFixed(2),
		"count":         totals.Count,
	})
}

// --- receipts ---

func (h *Handlers) receiptInfo(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tx, err := h.history.Get(r.Context(), id, identity)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rec, err := h.receipts.GetByTransactionID(r.Context(), tx.ID)
	if errors.Is(err, domain.ErrReceiptNotFound) {
		respondJSON(w, http.StatusOK, map[string]any{"hasReceipt": false, "receiptNumero": nil})
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"hasReceipt": true, "receiptNumero": rec.Numero})
}

func (h *Handlers) downloadReceipt(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tx, err := h.history.Get(r.Context(), id, identity)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rec, err := h.receipts.GetOrCreate(r.Context(), tx)
	if err != nil {
		// the transfer is committed either way; degrade to "not yet"
		h.logger.Warn("receipt unavailable", "transactionId", tx.ID, "error", err)
		writeError(w, http.StatusNotFound, "RECEIPT_PENDING", "receipt not available yet")
		return
	}
	content, err := h.artifacts.Read(rec)
	if err != nil {
		h.logger.Warn("receipt artifact unreadable", "numero", rec.Numero, "error", err)
		writeError(w, http.StatusNotFound, "RECEIPT_PENDING", "receipt not available yet")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.Numero+".txt"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

// --- admin ---

type adjustmentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Memo   string          `json:"memo"`
}

func (h *Handlers) deposit(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.admin.Deposit)
}

func (h *Handlers) withdraw(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.admin.Withdraw)
}

func (h *Handlers) adjust(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, accountID int64, amount decimal.Decimal, memo string) (*domain.Transaction, error),
) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload adjustmentRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	tx, err := op(r.Context(), id, payload.Amount, payload.Memo)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (h *Handlers) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tx, err := h.admin.Cancel(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTransactionResponse(tx))
}

type createAccountRequest struct {
	OwnerID     int64  `json:"ownerId"`
	Phone       string `json:"phone"`
	AccountType string `json:"accountType"`
}

func (h *Handlers) adminCreateAccount(w http.ResponseWriter, r *http.Request) {
	var payload createAccountRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if payload.Phone == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "phone is required")
		return
	}
	account, err := h.admin.CreateAccount(r.Context(), payload.OwnerID, payload.Phone, payload.AccountType)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *Handlers) adminToggleAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	account, err := h.admin.ToggleAccountStatus(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handlers) adminListAccounts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	accounts, err := h.admin.ListAccounts(r.Context(), parseInt(query.Get("limit"), 50), parseInt(query.Get("offset"), 0))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	items := []accountResponse{}
	for _, a := range accounts {
		items = append(items, toAccountResponse(a))
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handlers) adminListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	items, total, err := h.admin.ListTransactions(r.Context(), parseInt(query.Get("limit"), 20), parseInt(query.Get("offset"), 0))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := transactionListResponse{Items: []transactionResponse{}, Total: total}
	for _, item := range items {
		resp.Items = append(resp.Items, toTransactionResponse(item))
	}
	respondJSON(w, http.StatusOK, resp)
}

type historyEntryResponse struct {
	ID                   int64  `json:"id"`
	SourceAccountID      *int64 `json:"sourceAccountId"`
	DestinationAccountID *int64 `json:"destinationAccountId"`
	Amount               string `json:"amount"`
	Fee                  string `json:"fee"`
	Status               string `json:"status"`
	RecordedAt           string `json:"recordedAt"`
}

func toHistoryEntryResponse(e *domain.HistoryEntry) historyEntryResponse {
	return historyEntryResponse{
		ID:                   e.ID,
		SourceAccountID:      e.SourceAccountID,
		DestinationAccountID: e.DestinationAccountID,
		Amount:               e.Amount.StringFixed(2),
		Fee:                  e.Fee.StringFixed(2),
		Status:               string(e.Status),
		RecordedAt:           e.RecordedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handlers) adminHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parseInt(query.Get("limit"), 20)

	var (
		entries []*domain.HistoryEntry
		err     error
	)
	if v := query.Get("accountId"); v != "" {
		accountID, parseErr := strconv.ParseInt(v, 10, 64)
		if parseErr != nil || accountID <= 0 {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid accountId")
			return
		}
		entries, err = h.admin.AccountActivity(r.Context(), accountID, limit, parseInt(query.Get("offset"), 0))
	} else {
		entries, err = h.admin.RecentActivity(r.Context(), limit)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := []historyEntryResponse{}
	for _, entry := range entries {
		items = append(items, toHistoryEntryResponse(entry))
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handlers) adminReceiptLookup(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	numero := chi.URLParam(r, "numero")

	rec, err := h.receipts.GetByNumero(r.Context(), numero)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	tx, err := h.history.Get(r.Context(), rec.TransactionID, identity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"numero":      rec.Numero,
		"generatedAt": rec.GeneratedAt.UTC().Format(time.RFC3339),
		"transaction": toTransactionResponse(tx),
	})
}

func (h *Handlers) adminStatistics(w http.ResponseWriter, r *http.Request) {
	totals, err := h.admin.PlatformStatistics(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"totalAccounts":  totals.Accounts,
		"activeAccounts": totals.ActiveAccounts,
		"transactions":   totals.Transactions,
		"totalBalance":   totals.TotalBalance.StringFixed(2),
		"totalFees":      totals.TotalFees.StringFixed(2),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// --- helpers ---

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid id")
		return 0, false
	}
	return id, true
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}
