package common

import (
	"fmt"
	"strconv"

	"finance-ledger-go/internal/models"

	"github.com/pterm/pterm"
)

const dateLayout = "2006-01-02"

// PrintHeader prints a section title
func PrintHeader(title string) {
	pterm.DefaultSection.Println(title)
}

// RenderUsers prints users as a table
func RenderUsers(users []models.User) error {
	data := pterm.TableData{{"ID", "Name", "Email", "Accounts", "Created"}}
	for _, u := range users {
		data = append(data, []string{u.Id, u.Name, u.Email, strconv.Itoa(u.AccountCount), u.CreatedAt.Format(dateLayout)})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// RenderAccounts prints accounts with their balances
func RenderAccounts(accounts []models.Account) error {
	data := pterm.TableData{{"ID", "Bank", "Type", "Number", "Balance", "Currency"}}
	for _, a := range accounts {
		data = append(data, []string{
			a.Id, a.BankName, a.AccountType, a.MaskedAccount,
			a.Balance.StringFixed(2), a.Currency,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// RenderTransactions prints transactions newest first, as given
func RenderTransactions(transactions []models.Transaction) error {
	data := pterm.TableData{{"Date", "Type", "Amount", "Merchant", "Category", "Balance"}}
	for _, t := range transactions {
		data = append(data, []string{
			t.TxnDate.Format(dateLayout), t.TxnType, t.SignedAmount().StringFixed(2),
			t.Merchant, t.Category, t.BalanceAfter.StringFixed(2),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// RenderSummary prints totals and the debit breakdown
func RenderSummary(summary *models.Summary) error {
	totals := pterm.TableData{
		{"Income", summary.TotalCredit.StringFixed(2)},
		{"Expenses", summary.TotalDebit.StringFixed(2)},
		{"Net flow", summary.NetFlow.StringFixed(2)},
	}
	if err := pterm.DefaultTable.WithData(totals).Render(); err != nil {
		return err
	}

	if len(summary.Categories) == 0 {
		pterm.Info.Println("No expenses in range")
		return nil
	}

	breakdown := pterm.TableData{{"Category", "Spent", "Count"}}
	for _, c := range summary.Categories {
		breakdown = append(breakdown, []string{c.Category, c.Total.StringFixed(2), strconv.Itoa(c.Count)})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(breakdown).Render()
}

// RenderImportReport prints counts and any row errors
func RenderImportReport(report *models.ImportReport) {
	pterm.Success.Printf("Created %d transactions\n", report.Created)
	if report.Skipped > 0 {
		pterm.Warning.Printf("Skipped %d rows (%d duplicates, %d without merchant, %d invalid)\n",
			report.Skipped, report.SkippedDuplicates, report.SkippedNoMerchant, report.Invalid)
	}
	for _, e := range report.Errors {
		fmt.Println("  " + e)
	}
}

// RenderCategoryRules prints a user's rules in priority order
func RenderCategoryRules(rules []models.CategoryRule) error {
	data := pterm.TableData{{"ID", "Category", "Keywords"}}
	for _, r := range rules {
		data = append(data, []string{r.Id, r.CategoryName, r.Keywords})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
