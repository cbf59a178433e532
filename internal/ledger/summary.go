package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"finance-ledger-go/internal/models"
	"finance-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

// SummaryScope narrows a summary to one account and/or a txn_date range.
type SummaryScope struct {
	AccountId string
	From      *time.Time
	To        *time.Time
}

const recentTransactionCount = 10

// Summary rolls up committed transactions in scope. The category breakdown
// covers debits only.
func (s *Service) Summary(ctx context.Context, actingUser string, scope SummaryScope) (*models.Summary, error) {
	filter, err := s.scopeFilter(ctx, actingUser, scope.AccountId, scope.From, scope.To)
	if err != nil {
		return nil, err
	}

	transactions, err := s.store.ListTransactions(ctx, filter)
	if err != nil {
		return nil, err
	}

	summary := Summarize(transactions)
	return &summary, nil
}

// Summarize computes totals over transactions.
func Summarize(transactions []models.Transaction) models.Summary {
	totalCredit, totalDebit := decimal.Zero, decimal.Zero
	byCategory := map[string]*models.CategoryTotal{}

	for _, t := range transactions {
		switch t.TxnType {
		case models.TxnTypeCredit:
			totalCredit = totalCredit.Add(t.Amount)
		case models.TxnTypeDebit:
			totalDebit = totalDebit.Add(t.Amount)
			ct, ok := byCategory[t.Category]
			if !ok {
				ct = &models.CategoryTotal{Category: t.Category, Total: decimal.Zero}
				byCategory[t.Category] = ct
			}
			ct.Total = ct.Total.Add(t.Amount)
			ct.Count++
		}
	}

	categories := make([]models.CategoryTotal, 0, len(byCategory))
	for _, ct := range byCategory {
		categories = append(categories, *ct)
	}
	sort.Slice(categories, func(i, j int) bool {
		if c := categories[i].Total.Cmp(categories[j].Total); c != 0 {
			return c > 0
		}
		return categories[i].Category < categories[j].Category
	})

	return models.Summary{
		TotalCredit: totalCredit,
		TotalDebit:  totalDebit,
		NetFlow:     totalCredit.Sub(totalDebit),
		Categories:  categories,
	}
}

// Dashboard returns the landing overview for the acting user.
func (s *Service) Dashboard(ctx context.Context, actingUser string) (*models.DashboardOverview, error) {
	if actingUser == "" {
		return nil, fmt.Errorf("%w: no acting user", ErrForbidden)
	}

	accounts, err := s.store.ListAccounts(ctx, actingUser)
	if err != nil {
		return nil, err
	}

	overview := &models.DashboardOverview{
		Accounts:           make([]models.AccountRecord, 0, len(accounts)),
		Balances:           []models.CurrencyBalance{},
		RecentTransactions: []models.TransactionRecord{},
	}

	balances := map[string]decimal.Decimal{}
	accountIds := make([]string, 0, len(accounts))
	for _, a := range accounts {
		overview.Accounts = append(overview.Accounts, models.NewAccountRecord(a))
		balances[a.Currency] = balances[a.Currency].Add(a.Balance)
		accountIds = append(accountIds, a.Id)
	}
	for currency, balance := range balances {
		overview.Balances = append(overview.Balances, models.CurrencyBalance{Currency: currency, Balance: balance})
	}
	sort.Slice(overview.Balances, func(i, j int) bool {
		return overview.Balances[i].Currency < overview.Balances[j].Currency
	})

	transactions, err := s.store.ListTransactions(ctx, store.TransactionFilter{AccountIds: accountIds})
	if err != nil {
		return nil, err
	}
	for i, t := range transactions {
		if i == recentTransactionCount {
			break
		}
		overview.RecentTransactions = append(overview.RecentTransactions, models.NewTransactionRecord(t))
	}
	overview.Summary = Summarize(transactions)

	return overview, nil
}
