package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finance-ledger-go/internal/database"
	"finance-ledger-go/internal/importer"
	"finance-ledger-go/internal/ledger"
	"finance-ledger-go/internal/models"
	"finance-ledger-go/internal/store"

	"github.com/google/uuid"
)

type testAPI struct {
	router http.Handler
	db     *database.Service
}

func setupTestAPI(t *testing.T) (*testAPI, func()) {
	t.Helper()

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	l := ledger.NewService(db, models.LedgerConfig{})
	h := NewHandler(l, importer.New(l), 1<<20)
	return &testAPI{router: NewRouter(h, db, nil), db: db}, db.Close
}

func (a *testAPI) createUser(t *testing.T) string {
	t.Helper()
	userId := uuid.New().String()
	if _, err := a.db.CreateUser(context.Background(), userId, "API User", userId+"@example.com"); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return userId
}

func (a *testAPI) do(t *testing.T, method, path, userId string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userId != "" {
		req.Header.Set(headerUserID, userId)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) createAccount(t *testing.T, userId string) models.AccountRecord {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/accounts", userId, map[string]any{
		"bank_name":       "API Bank",
		"account_type":    "checking",
		"masked_account":  "****7777",
		"currency":        "INR",
		"initial_balance": "100.00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201 creating account, got %d: %s", rec.Code, rec.Body)
	}
	var account models.AccountRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &account); err != nil {
		t.Fatalf("Failed to decode account: %v", err)
	}
	return account
}

func TestHealthAndAuth(t *testing.T) {
	api, cleanup := setupTestAPI(t)
	defer cleanup()

	if rec := api.do(t, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 from /health, got %d", rec.Code)
	}
	if rec := api.do(t, http.MethodGet, "/accounts", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without user header, got %d", rec.Code)
	}
	if rec := api.do(t, http.MethodGet, "/accounts", "ghost", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for unknown user, got %d", rec.Code)
	}

	rec := api.do(t, http.MethodGet, "/health", "", nil)
	if rec.Header().Get(headerRequestID) == "" {
		t.Error("Expected a request id header")
	}
}

func TestCreateTransactionStatuses(t *testing.T) {
	api, cleanup := setupTestAPI(t)
	defer cleanup()

	owner := api.createUser(t)
	stranger := api.createUser(t)
	account := api.createAccount(t, owner)
	path := fmt.Sprintf("/accounts/%s/transactions", account.Id)

	body := map[string]any{
		"amount":   "25.00",
		"txn_type": "debit",
		"merchant": "Swiggy",
		"txn_date": "2024-05-01",
	}

	rec := api.do(t, http.MethodPost, path, owner, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var txn models.TransactionRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &txn); err != nil {
		t.Fatalf("Failed to decode transaction: %v", err)
	}
	if txn.Category != "Food" || txn.BalanceAfter.String() != "75" {
		t.Errorf("Expected Food with balance 75, got %s with %s", txn.Category, txn.BalanceAfter)
	}

	tests := []struct {
		name   string
		path   string
		userId string
		body   any
		want   int
	}{
		{"duplicate", path, owner, body, http.StatusConflict},
		{"foreign account", path, stranger, body, http.StatusForbidden},
		{"missing account", "/accounts/missing/transactions", owner, body, http.StatusNotFound},
		{"zero amount", path, owner, map[string]any{"amount": "0", "txn_type": "debit", "txn_date": "2024-05-02"}, http.StatusUnprocessableEntity},
		{"bad date", path, owner, map[string]any{"amount": "1", "txn_type": "debit", "txn_date": "soon"}, http.StatusUnprocessableEntity},
		{"overdraft", path, owner, map[string]any{"amount": "500", "txn_type": "debit", "merchant": "Rent", "txn_date": "2024-05-03"}, http.StatusUnprocessableEntity},
		{"malformed json", path, owner, "not an object", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := api.do(t, http.MethodPost, tt.path, tt.userId, tt.body); rec.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, rec.Code, rec.Body)
			}
		})
	}

	rec = api.do(t, http.MethodGet, "/accounts/"+account.Id, owner, nil)
	var refreshed models.AccountRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &refreshed); err != nil {
		t.Fatalf("Failed to decode account: %v", err)
	}
	if refreshed.Balance.String() != "75" {
		t.Errorf("Expected balance 75 after rejected requests, got %s", refreshed.Balance)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	api, cleanup := setupTestAPI(t)
	defer cleanup()

	owner := api.createUser(t)
	account := api.createAccount(t, owner)

	rec := api.do(t, http.MethodPost, "/accounts/"+account.Id+"/transactions", owner, map[string]any{
		"amount": "10", "txn_type": "credit", "merchant": "Friend", "txn_date": "2024-06-01",
	})
	var txn models.TransactionRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &txn); err != nil {
		t.Fatalf("Failed to decode transaction: %v", err)
	}

	rec = api.do(t, http.MethodPatch, "/transactions/"+txn.Id+"/category", owner, map[string]any{"category": "Gifts"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"category":"Gifts"`) {
		t.Errorf("Expected category update, got %d: %s", rec.Code, rec.Body)
	}

	rec = api.do(t, http.MethodGet, "/transactions?account_id="+account.Id+"&limit=5", owner, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":1`) {
		t.Errorf("Expected one listed transaction, got %d: %s", rec.Code, rec.Body)
	}
	if rec := api.do(t, http.MethodGet, "/transactions?limit=ten", owner, nil); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for non-numeric limit, got %d", rec.Code)
	}

	if rec := api.do(t, http.MethodDelete, "/accounts/"+account.Id, owner, nil); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 deleting account with transactions, got %d", rec.Code)
	}
	if rec := api.do(t, http.MethodDelete, "/transactions/"+txn.Id, owner, nil); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204 deleting transaction, got %d: %s", rec.Code, rec.Body)
	}
	if rec := api.do(t, http.MethodGet, "/accounts/"+account.Id+"/reconcile", owner, nil); rec.Code != http.StatusOK {
		t.Errorf("Expected reconciled account, got %d: %s", rec.Code, rec.Body)
	}
	if rec := api.do(t, http.MethodDelete, "/accounts/"+account.Id, owner, nil); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204 deleting empty account, got %d: %s", rec.Code, rec.Body)
	}
}

func TestImportEndpoint(t *testing.T) {
	api, cleanup := setupTestAPI(t)
	defer cleanup()

	owner := api.createUser(t)
	account := api.createAccount(t, owner)
	path := "/accounts/" + account.Id + "/import"

	csvData := "amount,txn_type,txn_date,merchant\n5,debit,2024-07-01,Uber\n5,debit,2024-07-01,Uber\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "statement.csv")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	part.Write([]byte(csvData))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(headerUserID, owner)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var report models.ImportReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}
	if report.Created != 1 || report.Skipped != 1 {
		t.Errorf("Expected created=1 skipped=1, got %+v", report)
	}

	// Raw text/csv body, same rows again: nothing new.
	req = httptest.NewRequest(http.MethodPost, path, strings.NewReader(csvData))
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set(headerUserID, owner)
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 when nothing is imported, got %d: %s", rec.Code, rec.Body)
	}

	req = httptest.NewRequest(http.MethodPost, path, strings.NewReader("amount\n1\n"))
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set(headerUserID, owner)
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing columns, got %d: %s", rec.Code, rec.Body)
	}
}

func TestSummaryDashboardAndRules(t *testing.T) {
	api, cleanup := setupTestAPI(t)
	defer cleanup()

	owner := api.createUser(t)
	account := api.createAccount(t, owner)

	rec := api.do(t, http.MethodPost, "/category-rules", owner, map[string]any{
		"category_name": "Coffee", "keywords": []string{"starbucks"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201 creating rule, got %d: %s", rec.Code, rec.Body)
	}
	var rule models.CategoryRuleRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &rule); err != nil {
		t.Fatalf("Failed to decode rule: %v", err)
	}

	api.do(t, http.MethodPost, "/accounts/"+account.Id+"/transactions", owner, map[string]any{
		"amount": "4.50", "txn_type": "debit", "merchant": "Starbucks Cafe", "txn_date": "2024-08-01",
	})

	rec = api.do(t, http.MethodGet, "/summary?account_id="+account.Id, owner, nil)
	var summary models.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("Failed to decode summary: %v", err)
	}
	if len(summary.Categories) != 1 || summary.Categories[0].Category != "Coffee" {
		t.Errorf("Expected Coffee breakdown, got %+v", summary.Categories)
	}

	if rec := api.do(t, http.MethodGet, "/dashboard", owner, nil); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 from dashboard, got %d", rec.Code)
	}
	if rec := api.do(t, http.MethodDelete, "/category-rules/"+rule.Id, owner, nil); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204 deleting rule, got %d", rec.Code)
	}
	if rec := api.do(t, http.MethodDelete, "/category-rules/"+rule.Id, owner, nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 deleting rule twice, got %d", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", ledger.ErrValidation), http.StatusUnprocessableEntity},
		{store.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{store.ErrNotFound, http.StatusNotFound},
		{ledger.ErrForbidden, http.StatusForbidden},
		{store.ErrDuplicateTransaction, http.StatusConflict},
		{store.ErrBalanceMismatch, http.StatusConflict},
		{importer.ErrInvalidFile, http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 after panic, got %d", rec.Code)
	}
}
