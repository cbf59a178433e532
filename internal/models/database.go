package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types. The sign of a posting is carried by the type, never by the amount.
const (
	TxnTypeDebit  = "debit"
	TxnTypeCredit = "credit"
)

// Account types accepted at creation.
const (
	AccountTypeSavings    = "savings"
	AccountTypeChecking   = "checking"
	AccountTypeCreditCard = "credit_card"
	AccountTypeLoan       = "loan"
	AccountTypeInvestment = "investment"
)

// User owns accounts and category rules. Emails are stored lower-cased.
// AccountCount is derived when the row is read.
type User struct {
	Id           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	AccountCount int       `db:"account_count"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Account is a bank account owned by exactly one user. Balance is the hot state
// kept in step with the transactions posted against it.
type Account struct {
	Id                string          `db:"id"`
	UserId            string          `db:"user_id"`
	BankName          string          `db:"bank_name"`
	AccountType       string          `db:"account_type"`
	MaskedAccount     string          `db:"masked_account"`
	Currency          string          `db:"currency"`
	Balance           decimal.Decimal `db:"balance"`
	OpeningBalance    decimal.Decimal `db:"opening_balance"`
	LastTransactionId string          `db:"last_transaction_id"`
	Version           int64           `db:"version"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// Transaction is a single posting against an account. Only Category may change
// after creation.
type Transaction struct {
	Id            string          `db:"id"`
	AccountId     string          `db:"account_id"`
	Description   string          `db:"description"`
	Category      string          `db:"category"`
	Amount        decimal.Decimal `db:"amount"`
	Currency      string          `db:"currency"`
	TxnType       string          `db:"txn_type"`
	Merchant      string          `db:"merchant"`
	TxnDate       time.Time       `db:"txn_date"`
	PostedDate    time.Time       `db:"posted_date"`
	BalanceBefore decimal.Decimal `db:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after"`
	CreatedAt     time.Time       `db:"created_at"`
}

// SignedAmount returns the balance effect of the transaction.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.TxnType == TxnTypeDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// CategoryRule is a user-defined keyword list that outranks the default table.
type CategoryRule struct {
	Id           string    `db:"id"`
	UserId       string    `db:"user_id"`
	CategoryName string    `db:"category_name"`
	Keywords     string    `db:"keywords"`
	CreatedAt    time.Time `db:"created_at"`
}
