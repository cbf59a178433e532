package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"finance-ledger-go/internal/database"
	"finance-ledger-go/internal/models"
	"finance-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var testDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func request(accountId, txnType, amount, merchant string) TransactionRequest {
	return TransactionRequest{
		AccountId: accountId,
		Amount:    decimal.RequireFromString(amount),
		TxnType:   txnType,
		Merchant:  merchant,
		TxnDate:   testDate,
	}
}

func TestCreateTransaction_CreditAndDebit(t *testing.T) {
	service, cleanup := setupTestLedger(t, models.LedgerConfig{})
	defer cleanup()

	ctx := context.Background()
	userId := createTestUser(t, service)
	account := createTestAccount(t, service, userId, "100")

	credit, err := service.CreateTransaction(ctx, userId, request(account.Id, "CREDIT", "20.005", "Employer"))
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if credit.TxnType != models.TxnTypeCredit || !credit.Amount.Equal(decimal.RequireFromString("20.01")) {
		t.Errorf("Expected credit of 20.01, got %s %s", credit.TxnType, credit.Amount)
	}
	if credit.Currency != "INR" {
		t.Errorf("Expected account currency, got %s", credit.Currency)
	}
	if credit.PostedDate.IsZero() {
		t.Error("Expected posted date to be stamped")
	}

	if _, err := service.CreateTransaction(ctx, userId, request(account.Id, "debit", "45.50", "Bookstore")); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	if got := balanceOf(t, service, userId, account.Id); !got.Equal(decimal.RequireFromString("74.51")) {
		t.Errorf("Expected balance 74.51, got %s", got)
	}
	if err := service.ReconcileAccount(ctx, userId, account.Id); err != nil {
		t.Errorf("Expected ledger to reconcile, got %v", err)
	}
}

func TestCreateTransaction_Validation(t *testing.T) {
	service, cleanup := setupTestLedger(t, models.LedgerConfig{})
	defer cleanup()

	userId := createTestUser(t, service)
	account := createTestAccount(t, service, userId, "100")

	tests := []struct {
		name   string
		mutate func(r *TransactionRequest)
	}{
		{"zero amount", func(r *TransactionRequest) { r.Amount = decimal.Zero }},
		{"negative amount", func(r *TransactionRequest) { r.Amount = decimal.NewFromInt(-5) }},
		{"rounds to zero", func(r *TransactionRequest) { r.Amount = decimal.RequireFromString("0.004") }},
		{"bad type", func(r *TransactionRequest) { r.TxnType = "refund" }},
		{"bad currency shape", func(r *TransactionRequest) { r.Currency = "rupee" }},
		{"foreign currency", func(r *TransactionRequest) { r.Currency = "USD" }},
		{"missing date", func(r *TransactionRequest) { r.TxnDate = time.Time{} }},
		{"above maximum", func(r *TransactionRequest) { r.Amount = decimal.RequireFromString("10000000000") }},
		{"rounds above maximum", func(r *TransactionRequest) { r.Amount = decimal.RequireFromString("9999999999.996") }},
		{"huge exponent", func(r *TransactionRequest) { r.Amount = decimal.RequireFromString("1e50000") }},
		{"exponent near int32 limit", func(r *TransactionRequest) { r.Amount = decimal.RequireFromString("1e2000000000") }},
		{"tiny exponent", func(r *TransactionRequest) { r.Amount = decimal.RequireFromString("1e-2000000000") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(account.Id, models.TxnTypeDebit, "10", "Shop")
			tt.mutate(&req)
			if _, err := service.CreateTransaction(context.Background(), userId, req); !errors.Is(err, ErrValidation) {
				t.Errorf("Expected ErrValidation, got %v", err)
			}
		})
	}

	if got := balanceOf(t, service, userId, account.Id); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected balance untouched, got %s", got)
	}
}

func TestCreateTransaction_DuplicateRejected(t *testing.T) {
	service, cleanup := setupTestLedger(t, models.LedgerConfig{})
	defer cleanup()

	ctx := context.Background()
	userId := createTestUser(t, service)
	account := createTestAccount(t, service, userId, "100")

	req := request(account.Id, models.TxnTypeDebit, "12.00", "Netflix")
	if _, err := service.CreateTransaction(ctx, userId, req); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if _, err := service.CreateTransaction(ctx, userId, req); !errors.Is(err, store.ErrDuplicateTransaction) {
		t.Fatalf("Expected ErrDuplicateTransaction, got %v", err)
	}
	if got := balanceOf(t, service, userId, account.Id); !got.Equal(decimal.NewFromInt(88)) {
		t.Errorf("Expected balance 88 after rejected duplicate, got %s", got)
	}

	// Same charge a month later is legitimate.
	req.TxnDate = testDate.AddDate(0, 1, 0)
	if _, err := service.CreateTransaction(ctx, userId, req); err != nil {
		t.Errorf("Expected repeated charge on a new date to post, got %v", err)
	}
}

func TestCreateTransaction_BlankMerchantNeverDuplicate(t *testing.T) {
	service, cleanup := setupTestLedger(t, models.LedgerConfig{})
	defer cleanup()

	ctx := context.Background()
	userId := createTestUser(t, service)
	account := createTestAccount(t, service, userId, "0")

	req := request(account.Id, models.TxnTypeCredit, "5", "  ")
	for i := 0; i < 2; i++ {
		if _, err := service.CreateTransaction(ctx, userId, req); err != nil {
			t.Fatalf("Attempt %d: expected merchant-less posting to succeed, got %v", i+1, err)
		}
	}
	if got := balanceOf(t, service, userId, account.Id); !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected balance 10, got %s", got)
	}
}

func TestCreateTransaction_Categories(t *testing.T) {
	service, cleanup := setupTestLedger(t, models.LedgerConfig{})
	defer cleanup()

	ctx := context.Background()
	userId := createTestUser(t, service)
	account := createTestAccount(t, service, userId, "1000")

	salary := request(account.Id, models.TxnTypeCredit, "500", "ACME Corp")
	salary.Description = "Salary payment"
	txn, err := service.CreateTransaction(ctx, userId, salary)
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if txn.Category != "Income" {
		t.Errorf("Expected Income, got %s", txn.Category)
	}

	explicit := request(account.Id, models.TxnTypeDebit, "9", "Swiggy")
	explicit.Category = "Treats"
	if txn, err = service.CreateTransaction(ctx, userId, explicit); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if txn.Category != "Treats" {
		t.Errorf("Expected caller category to be kept, got %s", txn.Category)
	}

	if _, err := service.CreateCategoryRule(ctx, userId, "Pets", "petco"); err != nil {
		t.Fatalf("CreateCategoryRule failed: %v", err)
	}
	if txn, err = service.CreateTransaction(ctx, userId, request(account.Id, models.TxnTypeDebit, "30", "Petco Food Store")); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if txn.Category != "Pets" {
		t.Errorf("Expected user rule to outrank defaults, got %s", txn.Category)
	}
}

func TestCreateTransaction_OverdraftPolicy(t *testing.T) {
	tests := []struct {
		name           string
		allowOverdraft bool
		wantErr        error
		wantBalance    string
	}{
		{"overdraft blocked", false, store.ErrInsufficientFunds, "10"},
		{"overdraft allowed", true, nil, "-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, cleanup := setupTestLedger(t, models.LedgerConfig{AllowOverdraft: tt.allowOverdraft})
			defer cleanup()

			userId := createTestUser(t, service)
			account := createTestAccount(t, service, userId, "10")

			_, err := service.CreateTransaction(context.Background(), userId, request(account.Id, models.TxnTypeDebit, "25", "Rent"))
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Expected success, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			if got := balanceOf(t, service, userId, account.Id); !got.Equal(decimal.RequireFromString(tt.wantBalance)) {
				t.Errorf("Expected balance %s, got %s", tt.wantBalance, got)
			}
		})
	}
}

func TestCreateTransaction_Ownership(t *testing.T) {
	service, cleanup := setupTestLedger(t, models.LedgerConfig{})
	defer cleanup()

	ctx := context.Background()
	owner := createTestUser(t, service)
	stranger := createTestUser(t, service)
	account := createTestAccount(t, service, owner, "50")

	if _, err := service.CreateTransaction(ctx, stranger, request(account.Id, models.TxnTypeDebit, "5", "Cafe")); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}
	if _, err := service.CreateTransaction(ctx, owner, request("missing", models.TxnTypeDebit, "5", "Cafe")); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	txn, err := service.CreateTransaction(ctx, owner, request(account.Id, models.TxnTypeDebit, "5", "Cafe"))
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if err := service.DeleteTransaction(ctx, stranger, txn.Id); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden on delete, got %v", err)
	}
	if _, err := service.UpdateCategory(ctx, stranger, txn.Id, "Food"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden on update, got %v", err)
	}
	if _, err := service.GetTransaction(ctx, stranger, txn.Id); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden on get, got %v", err)
	}
	if got := balanceOf(t, service, owner, account.Id); !got.Equal(decimal.NewFromInt(45)) {
		t.Errorf("Expected balance 45, got %s", got)
	}
}

func TestDeleteTransaction_RestoresBalance(t *testing.T) {
	service, cleanup := setupTestLedger(t, models.LedgerConfig{})
	defer cleanup()

	ctx := context.Background()
	userId := createTestUser(t, service)
	account := createTestAccount(t, service, userId, "200.10")

	for _, req := range []TransactionRequest{
		request(account.Id, models.TxnTypeDebit, "99.99", "Amazon"),
		request(account.Id, models.TxnTypeCredit, "0.01", "Cashback"),
	} {
		txn, err := service.CreateTransaction(ctx, userId, req)
		if err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}
		if err := service.DeleteTransaction(ctx, userId, txn.Id); err != nil {
			t.Fatalf("DeleteTransaction failed: %v", err)
		}
		if got := balanceOf(t, service, userId, account.Id); !got.Equal(decimal.RequireFromString("200.10")) {
			t.Errorf("Expected balance restored to 200.10, got %s", got)
		}
	}

	if err := service.DeleteTransaction(ctx, userId, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdateCategory(t *testing.T) {
	service, cleanup := setupTestLedger(t, models.LedgerConfig{})
	defer cleanup()

	ctx := context.Background()
	userId := createTestUser(t, service)
	account := createTestAccount(t, service, userId, "100")

	txn, err := service.CreateTransaction(ctx, userId, request(account.Id, models.TxnTypeDebit, "40", "Unknown Vendor"))
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if txn.Category != "Others" {
		t.Fatalf("Expected Others, got %s", txn.Category)
	}

	if _, err := service.UpdateCategory(ctx, userId, txn.Id, "  "); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}

	updated, err := service.UpdateCategory(ctx, userId, txn.Id, "Health")
	if err != nil {
		t.Fatalf("UpdateCategory failed: %v", err)
	}
	if updated.Category != "Health" {
		t.Errorf("Expected Health, got %s", updated.Category)
	}
	if !updated.Amount.Equal(txn.Amount) || !updated.BalanceAfter.Equal(txn.BalanceAfter) {
		t.Error("Expected amount and balance snapshot unchanged")
	}
	if got := balanceOf(t, service, userId, account.Id); !got.Equal(decimal.NewFromInt(60)) {
		t.Errorf("Expected balance 60, got %s", got)
	}
}

func TestListTransactions(t *testing.T) {
	service, cleanup := setupTestLedger(t, models.LedgerConfig{})
	defer cleanup()

	ctx := context.Background()
	userId := createTestUser(t, service)
	first := createTestAccount(t, service, userId, "100")
	second := createTestAccount(t, service, userId, "100")

	for i := 0; i < 3; i++ {
		req := request(first.Id, models.TxnTypeDebit, "1", "Metro")
		req.TxnDate = testDate.AddDate(0, 0, i)
		if _, err := service.CreateTransaction(ctx, userId, req); err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}
	}
	if _, err := service.CreateTransaction(ctx, userId, request(second.Id, models.TxnTypeCredit, "1", "Refund")); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	all, err := service.ListTransactions(ctx, userId, TransactionQuery{})
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("Expected 4 transactions, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].TxnDate.After(all[i-1].TxnDate) {
			t.Errorf("Expected newest first, got %v before %v", all[i-1].TxnDate, all[i].TxnDate)
		}
	}

	from := testDate.AddDate(0, 0, 1)
	ranged, err := service.ListTransactions(ctx, userId, TransactionQuery{AccountId: first.Id, From: &from})
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(ranged) != 2 {
		t.Errorf("Expected 2 transactions from %v, got %d", from, len(ranged))
	}

	to := testDate.AddDate(0, 0, -1)
	if _, err := service.ListTransactions(ctx, userId, TransactionQuery{From: &from, To: &to}); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for inverted range, got %v", err)
	}
	if _, err := service.ListTransactions(ctx, userId, TransactionQuery{Limit: -1}); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for negative limit, got %v", err)
	}

	stranger := createTestUser(t, service)
	if _, err := service.ListTransactions(ctx, stranger, TransactionQuery{AccountId: first.Id}); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}
	none, err := service.ListTransactions(ctx, stranger, TransactionQuery{})
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no transactions for a user without accounts, got %d", len(none))
	}
}

func TestCreateTransaction_ConcurrentDistinctPostings(t *testing.T) {
	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         t.TempDir() + "/ledger.db",
		MaxOpenConns: 4,
		MaxIdleConns: 4,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	defer db.Close()

	service := NewService(db, models.LedgerConfig{MaxRetries: 3})
	ctx := context.Background()
	userId := createTestUser(t, service)
	account := createTestAccount(t, service, userId, "100")

	var g errgroup.Group
	g.Go(func() error {
		_, err := service.CreateTransaction(ctx, userId, request(account.Id, models.TxnTypeCredit, "30", "Employer"))
		return err
	})
	g.Go(func() error {
		_, err := service.CreateTransaction(ctx, userId, request(account.Id, models.TxnTypeDebit, "45.25", "Grocer"))
		return err
	})
	if err := g.Wait(); err != nil {
		t.Fatalf("Concurrent postings failed: %v", err)
	}

	if got := balanceOf(t, service, userId, account.Id); !got.Equal(decimal.RequireFromString("84.75")) {
		t.Errorf("Expected balance 84.75, got %s", got)
	}
	if err := service.ReconcileAccount(ctx, userId, account.Id); err != nil {
		t.Errorf("Expected ledger to reconcile, got %v", err)
	}
}

// flakyStore fails the first n postings with a lost-update error.
type flakyStore struct {
	store.LedgerStore
	failures int
	calls    int
}

func (f *flakyStore) ApplyTransaction(ctx context.Context, params store.ApplyTransactionParams) (*models.Transaction, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, store.ErrConcurrentModification
	}
	return f.LedgerStore.ApplyTransaction(ctx, params)
}

func TestCreateTransaction_RetriesConcurrentModification(t *testing.T) {
	tests := []struct {
		name       string
		failures   int
		maxRetries int
		wantErr    bool
	}{
		{"recovers within budget", 2, 3, false},
		{"gives up after budget", 4, 3, true},
		{"no retries", 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, cleanup := setupTestLedger(t, models.LedgerConfig{})
			defer cleanup()

			flaky := &flakyStore{LedgerStore: base.Store(), failures: tt.failures}
			service := NewService(flaky, models.LedgerConfig{MaxRetries: tt.maxRetries})

			userId := createTestUser(t, service)
			account := createTestAccount(t, service, userId, "10")

			_, err := service.CreateTransaction(context.Background(), userId, request(account.Id, models.TxnTypeCredit, "1", "Bank"))
			if tt.wantErr {
				if !errors.Is(err, store.ErrConcurrentModification) {
					t.Errorf("Expected ErrConcurrentModification, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected success after retries, got %v", err)
			}
			if flaky.calls != tt.failures+1 {
				t.Errorf("Expected %d attempts, got %d", tt.failures+1, flaky.calls)
			}
		})
	}
}
