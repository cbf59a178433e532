package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finance-ledger-go/internal/classifier"
	"finance-ledger-go/internal/importer"
	"finance-ledger-go/internal/ledger"
	"finance-ledger-go/internal/models"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// Handler serves the ledger over HTTP.
type Handler struct {
	ledger         *ledger.Service
	importer       *importer.Importer
	maxUploadBytes int64
}

func NewHandler(l *ledger.Service, im *importer.Importer, maxUploadBytes int64) *Handler {
	return &Handler{ledger: l, importer: im, maxUploadBytes: maxUploadBytes}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Accounts ---

type createAccountRequest struct {
	BankName       string          `json:"bank_name"`
	AccountType    string          `json:"account_type"`
	MaskedAccount  string          `json:"masked_account"`
	Currency       string          `json:"currency"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.ledger.CreateAccount(r.Context(), models.ActingUser(r.Context()), ledger.AccountRequest{
		BankName:       req.BankName,
		AccountType:    req.AccountType,
		MaskedAccount:  req.MaskedAccount,
		Currency:       req.Currency,
		OpeningBalance: req.InitialBalance,
	})
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewAccountRecord(*account))
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.ledger.ListAccounts(r.Context(), models.ActingUser(r.Context()))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}

	records := make([]models.AccountRecord, 0, len(accounts))
	for _, a := range accounts {
		records = append(records, models.NewAccountRecord(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": records, "count": len(records)})
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.ledger.GetAccount(r.Context(), models.ActingUser(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewAccountRecord(*account))
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteAccount(r.Context(), models.ActingUser(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeLedgerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ReconcileAccount(w http.ResponseWriter, r *http.Request) {
	accountId := mux.Vars(r)["id"]
	if err := h.ledger.ReconcileAccount(r.Context(), models.ActingUser(r.Context()), accountId); err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account_id": accountId, "reconciled": true})
}

// --- Transactions ---

type createTransactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	TxnType     string          `json:"txn_type"`
	Merchant    string          `json:"merchant"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	TxnDate     string          `json:"txn_date"`
	PostedDate  string          `json:"posted_date"`
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	txnDate, err := ledger.ParseDate(req.TxnDate)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	var postedDate time.Time
	if req.PostedDate != "" {
		if postedDate, err = ledger.ParseDate(req.PostedDate); err != nil {
			writeLedgerError(w, r, err)
			return
		}
	}

	txn, err := h.ledger.CreateTransaction(r.Context(), models.ActingUser(r.Context()), ledger.TransactionRequest{
		AccountId:   mux.Vars(r)["id"],
		Amount:      req.Amount,
		Currency:    req.Currency,
		TxnType:     req.TxnType,
		Merchant:    req.Merchant,
		Description: req.Description,
		Category:    req.Category,
		TxnDate:     txnDate,
		PostedDate:  postedDate,
	})
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewTransactionRecord(*txn))
}

func (h *Handler) ImportTransactions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
				return
			}
			writeError(w, http.StatusBadRequest, "multipart upload must carry a file field")
			return
		}
		defer file.Close()
		body = file
	}

	report, err := h.importer.Import(r.Context(), models.ActingUser(r.Context()), mux.Vars(r)["id"], body)
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
	case errors.Is(err, importer.ErrNothingImported):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error(), "report": report})
	case err != nil:
		writeLedgerError(w, r, err)
	default:
		writeJSON(w, http.StatusCreated, report)
	}
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := parseRange(q.Get("from_date"), q.Get("to_date"))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	limit, err := parseInt(q.Get("limit"), "limit")
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	offset, err := parseInt(q.Get("offset"), "offset")
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}

	transactions, err := h.ledger.ListTransactions(r.Context(), models.ActingUser(r.Context()), ledger.TransactionQuery{
		AccountId: q.Get("account_id"),
		From:      from,
		To:        to,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}

	records := make([]models.TransactionRecord, 0, len(transactions))
	for _, t := range transactions {
		records = append(records, models.NewTransactionRecord(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": records, "count": len(records)})
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := h.ledger.GetTransaction(r.Context(), models.ActingUser(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewTransactionRecord(*txn))
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteTransaction(r.Context(), models.ActingUser(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeLedgerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	txn, err := h.ledger.UpdateCategory(r.Context(), models.ActingUser(r.Context()), mux.Vars(r)["id"], req.Category)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewTransactionRecord(*txn))
}

// --- Summaries ---

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := parseRange(q.Get("from_date"), q.Get("to_date"))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}

	summary, err := h.ledger.Summary(r.Context(), models.ActingUser(r.Context()), ledger.SummaryScope{
		AccountId: q.Get("account_id"),
		From:      from,
		To:        to,
	})
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	overview, err := h.ledger.Dashboard(r.Context(), models.ActingUser(r.Context()))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// --- Category rules ---

func newRuleRecord(rule models.CategoryRule) models.CategoryRuleRecord {
	return models.CategoryRuleRecord{
		Id:           rule.Id,
		CategoryName: rule.CategoryName,
		Keywords:     classifier.SplitKeywords(rule.Keywords),
	}
}

func (h *Handler) CreateCategoryRule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CategoryName string   `json:"category_name"`
		Keywords     []string `json:"keywords"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	rule, err := h.ledger.CreateCategoryRule(r.Context(), models.ActingUser(r.Context()), req.CategoryName, strings.Join(req.Keywords, ","))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newRuleRecord(*rule))
}

func (h *Handler) ListCategoryRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.ledger.ListCategoryRules(r.Context(), models.ActingUser(r.Context()))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}

	records := make([]models.CategoryRuleRecord, 0, len(rules))
	for _, rule := range rules {
		records = append(records, newRuleRecord(rule))
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": records, "count": len(records)})
}

func (h *Handler) DeleteCategoryRule(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteCategoryRule(r.Context(), models.ActingUser(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeLedgerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Query parsing ---

func parseRange(fromValue, toValue string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if fromValue != "" {
		t, err := ledger.ParseDate(fromValue)
		if err != nil {
			return nil, nil, err
		}
		from = &t
	}
	if toValue != "" {
		t, err := ledger.ParseDate(toValue)
		if err != nil {
			return nil, nil, err
		}
		to = &t
	}
	return from, to, nil
}

func parseInt(value, name string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ledger.ErrValidation, name)
	}
	return n, nil
}
