/**
 * @description
 * This file contains the HTTP handlers for the banking service's API
 * endpoints. Handlers are responsible for parsing incoming requests, calling
 * the appropriate methods on the application service, and writing the HTTP
 * response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/store: For service logic and tagged errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/finspeak/banking-service/internal/app"
	"github.com/finspeak/banking-service/internal/store"
)

// BankingHandlers holds the application service and dispatcher that handlers
// will use.
type BankingHandlers struct {
	service    *app.Service
	dispatcher *app.Dispatcher
}

// NewBankingHandlers creates a new instance of BankingHandlers.
func NewBankingHandlers(service *app.Service, dispatcher *app.Dispatcher) *BankingHandlers {
	return &BankingHandlers{service: service, dispatcher: dispatcher}
}

type beginTransferRequest struct {
	Kind            string `json:"kind"`
	SourceAccountID string `json:"source_account_id"`
	DestinationID   string `json:"destination_id"`
	BeneficiaryID   string `json:"beneficiary_id"`
	Amount          int64  `json:"amount"`
	Mode            string `json:"mode"`
	Currency        string `json:"currency,omitempty"`
}

type confirmOTPRequest struct {
	SessionID string `json:"session_id"`
	OTP       string `json:"otp"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type historyRequest struct {
	Account   string `json:"account"`
	Period    string `json:"period"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Page      int    `json:"page"`
}

type toolInvokeRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// ListAccountsHandler returns every account owned by the caller.
func (h *BankingHandlers) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := GetCallerID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Caller identity missing")
		return
	}

	accounts, err := h.service.ListAccounts(r.Context(), callerID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

// CheckBalanceHandler returns balances for the accounts matching an optional
// filter.
func (h *BankingHandlers) CheckBalanceHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := GetCallerID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Caller identity missing")
		return
	}

	summary, err := h.service.CheckBalance(r.Context(), callerID, r.URL.Query().Get("account"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// ListBeneficiariesHandler returns the caller's saved beneficiaries,
// optionally narrowed by a name fragment.
func (h *BankingHandlers) ListBeneficiariesHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := GetCallerID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Caller identity missing")
		return
	}

	name := r.URL.Query().Get("name")
	if name != "" {
		matches, err := h.service.FindBeneficiariesByName(r.Context(), callerID, name)
		if err != nil {
			h.respondServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]any{"beneficiaries": matches})
		return
	}

	beneficiaries, err := h.service.ListBeneficiaries(r.Context(), callerID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"beneficiaries": beneficiaries})
}

// ListTransferModesHandler returns the static transfer mode catalog.
func (h *BankingHandlers) ListTransferModesHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"modes": h.service.ListTransferModes()})
}

// BeginTransferHandler starts a transfer with all fields collected up front
// and responds with the OTP challenge prompt. The OTP itself is never in the
// response.
func (h *BankingHandlers) BeginTransferHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := GetCallerID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Caller identity missing")
		return
	}

	var req beginTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	destination := req.DestinationID
	if destination == "" {
		destination = req.BeneficiaryID
	}

	args := map[string]any{
		"kind":              req.Kind,
		"source_account_id": req.SourceAccountID,
		"destination_id":    destination,
		"amount":            req.Amount,
		"mode":              req.Mode,
		"currency":          req.Currency,
	}
	result, err := h.dispatcher.Dispatch(r.Context(), callerID, "begin_transfer", args)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, result)
}

// ConfirmOTPHandler completes a pending transfer with the challenge code.
func (h *BankingHandlers) ConfirmOTPHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := GetCallerID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Caller identity missing")
		return
	}

	var req confirmOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receipt, err := h.service.Flow().SubmitOTP(r.Context(), callerID, req.SessionID, req.OTP)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, receipt)
}

// CancelTransferHandler abandons a pending transfer.
func (h *BankingHandlers) CancelTransferHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := GetCallerID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Caller identity missing")
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.Flow().Cancel(r.Context(), callerID, req.SessionID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// TransactionHistoryHandler starts a history browse and returns page one.
func (h *BankingHandlers) TransactionHistoryHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := GetCallerID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Caller identity missing")
		return
	}

	req := historyRequest{
		Account:   r.URL.Query().Get("account"),
		Period:    r.URL.Query().Get("period"),
		StartDate: r.URL.Query().Get("start_date"),
		EndDate:   r.URL.Query().Get("end_date"),
	}
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if n, err := strconv.Atoi(pageStr); err == nil {
			req.Page = n
		}
	}

	page, err := h.service.History().GetTransactionHistory(r.Context(), callerID, req.Account, req.Period, req.StartDate, req.EndDate, req.Page)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// HistoryNextPageHandler advances an existing pagination session.
func (h *BankingHandlers) HistoryNextPageHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := GetCallerID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Caller identity missing")
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	page, err := h.service.History().NextPage(r.Context(), callerID, req.SessionID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// HistoryPreviousPageHandler steps an existing pagination session back.
func (h *BankingHandlers) HistoryPreviousPageHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := GetCallerID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Caller identity missing")
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	page, err := h.service.History().PreviousPage(r.Context(), callerID, req.SessionID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// ToolInvokeHandler is the entry point for the language-model collaborator:
// one named tool call in, one structured result out.
func (h *BankingHandlers) ToolInvokeHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := GetCallerID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Caller identity missing")
		return
	}

	var req toolInvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), callerID, req.Tool, req.Args)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"tool": req.Tool, "result": result})
}

// AuditMetricsHandler serves the aggregate audit metrics report.
func (h *BankingHandlers) AuditMetricsHandler(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.service.AuditMetricsReport(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, metrics)
}

// respondServiceError maps tagged service errors onto HTTP statuses. The
// error messages are written verbatim because they are already phrased for
// the caller.
func (h *BankingHandlers) respondServiceError(w http.ResponseWriter, err error) {
	var insufficient *app.InsufficientBalanceError
	var modeLimit *app.ModeLimitError
	var rangeTooWide *app.RangeTooWideError

	switch {
	case errors.As(err, &insufficient):
		h.writeError(w, http.StatusUnprocessableEntity, insufficient.Error())
	case errors.As(err, &modeLimit):
		h.writeError(w, http.StatusUnprocessableEntity, modeLimit.Error())
	case errors.As(err, &rangeTooWide):
		h.writeError(w, http.StatusBadRequest, rangeTooWide.Error())
	case errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrBeneficiaryNotFound),
		errors.Is(err, app.ErrNoAccounts),
		errors.Is(err, app.ErrNoMatchingAccount):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrNoPendingTransaction),
		errors.Is(err, app.ErrNoActiveSession),
		errors.Is(err, app.ErrNoOTPIssued):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrInvalidOTP):
		h.writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrOTPAttemptsExceeded):
		h.writeError(w, http.StatusLocked, err.Error())
	case errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrInvalidMode),
		errors.Is(err, app.ErrInvalidKind),
		errors.Is(err, app.ErrInvalidRange),
		errors.Is(err, app.ErrUnsupportedCurrency),
		errors.Is(err, app.ErrUnknownTool),
		errors.Is(err, app.ErrSameAccountTransfer),
		errors.Is(err, app.ErrAlreadyOnFirstPage),
		errors.Is(err, app.ErrAlreadyOnLastPage):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("level=error component=api msg=\"unhandled service error\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Something went wrong, please try again later")
	}
}

// writeJSON is a helper for writing JSON responses.
func (h *BankingHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *BankingHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
