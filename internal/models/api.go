/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountRecord is the external view of an account
type AccountRecord struct {
	Id            string          `json:"id"`
	BankName      string          `json:"bank_name"`
	AccountType   string          `json:"account_type"`
	MaskedAccount string          `json:"masked_account"`
	Currency      string          `json:"currency"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TransactionRecord is the external view of a transaction
type TransactionRecord struct {
	Id           string          `json:"id"`
	AccountId    string          `json:"account_id"`
	Type         string          `json:"txn_type"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Category     string          `json:"category"`
	Merchant     string          `json:"merchant,omitempty"`
	Description  string          `json:"description,omitempty"`
	TxnDate      time.Time       `json:"txn_date"`
	PostedDate   time.Time       `json:"posted_date"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

// ImportReport is the outcome of one CSV import. Skipped is the sum of the
// three skip counters.
type ImportReport struct {
	AccountId         string   `json:"account_id"`
	Created           int      `json:"created"`
	Skipped           int      `json:"skipped"`
	SkippedDuplicates int      `json:"skipped_duplicates"`
	SkippedNoMerchant int      `json:"skipped_no_merchant"`
	Invalid           int      `json:"invalid"`
	Errors            []string `json:"errors,omitempty"`
}

// CategoryTotal is one line of the debit breakdown
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// Summary holds income/expense rollups for a scope
type Summary struct {
	TotalCredit decimal.Decimal `json:"total_credit"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	NetFlow     decimal.Decimal `json:"net_flow"`
	Categories  []CategoryTotal `json:"categories"`
}

// CurrencyBalance sums account balances sharing a currency
type CurrencyBalance struct {
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

// DashboardOverview is the landing view for a user
type DashboardOverview struct {
	Accounts           []AccountRecord     `json:"accounts"`
	Balances           []CurrencyBalance   `json:"balances"`
	RecentTransactions []TransactionRecord `json:"recent_transactions"`
	Summary            Summary             `json:"summary"`
}

// CategoryRuleRecord is the external view of a user category rule
type CategoryRuleRecord struct {
	Id           string   `json:"id"`
	CategoryName string   `json:"category_name"`
	Keywords     []string `json:"keywords"`
}

// NewAccountRecord maps a stored account to its external view
func NewAccountRecord(a Account) AccountRecord {
	return AccountRecord{
		Id:            a.Id,
		BankName:      a.BankName,
		AccountType:   a.AccountType,
		MaskedAccount: a.MaskedAccount,
		Currency:      a.Currency,
		Balance:       a.Balance,
		CreatedAt:     a.CreatedAt,
	}
}

// NewTransactionRecord maps a stored transaction to its external view
func NewTransactionRecord(t Transaction) TransactionRecord {
	return TransactionRecord{
		Id:           t.Id,
		AccountId:    t.AccountId,
		Type:         t.TxnType,
		Amount:       t.Amount,
		Currency:     t.Currency,
		Category:     t.Category,
		Merchant:     t.Merchant,
		Description:  t.Description,
		TxnDate:      t.TxnDate,
		PostedDate:   t.PostedDate,
		BalanceAfter: t.BalanceAfter,
	}
}
