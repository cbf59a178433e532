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

package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"finance-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound               = errors.New("not found")
	ErrDuplicateTransaction   = errors.New("duplicate transaction")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrAccountHasTransactions = errors.New("account has transactions")
	ErrBalanceMismatch        = errors.New("balance mismatch")
	ErrEmailTaken             = errors.New("email already registered")
)

// DuplicateKey is the tuple that identifies a reposted transaction on an account.
type DuplicateKey struct {
	AccountId string
	Amount    decimal.Decimal
	TxnType   string
	Merchant  string
	TxnDate   time.Time
}

// Checkable reports whether the key can be deduplicated at all. Transactions
// without a merchant are never treated as duplicates of one another: two
// identical merchant-less postings on the same day are both accepted.
func (k DuplicateKey) Checkable() bool {
	return strings.TrimSpace(k.Merchant) != ""
}

// CreateAccountParams contains the parameters for opening an account.
type CreateAccountParams struct {
	UserId         string
	BankName       string
	AccountType    string
	MaskedAccount  string
	Currency       string
	OpeningBalance decimal.Decimal
}

// ApplyTransactionParams is a fully validated posting. Amount is positive and
// already rounded; the sign comes from TxnType.
type ApplyTransactionParams struct {
	AccountId      string
	Amount         decimal.Decimal
	Currency       string
	TxnType        string
	Merchant       string
	Description    string
	Category       string
	TxnDate        time.Time
	PostedDate     time.Time // zero means commit time
	AllowOverdraft bool
}

// Key returns the duplicate tuple of the posting.
func (p ApplyTransactionParams) Key() DuplicateKey {
	return DuplicateKey{
		AccountId: p.AccountId,
		Amount:    p.Amount,
		TxnType:   p.TxnType,
		Merchant:  p.Merchant,
		TxnDate:   p.TxnDate,
	}
}

// TransactionFilter selects transactions for listing. AccountIds restricts the
// result to those accounts; From and To are inclusive bounds on txn_date.
type TransactionFilter struct {
	AccountIds []string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// LedgerStore defines the contract that every backend must satisfy.
type LedgerStore interface {
	// --- Users ---
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, userId, name, email string) (*models.User, error)

	// --- Accounts ---
	CreateAccount(ctx context.Context, params CreateAccountParams) (*models.Account, error)
	GetAccount(ctx context.Context, accountId string) (*models.Account, error)
	ListAccounts(ctx context.Context, userId string) ([]models.Account, error)
	DeleteAccount(ctx context.Context, accountId string) error
	ReconcileAccount(ctx context.Context, accountId string) error

	// --- Transactions ---
	IsDuplicate(ctx context.Context, key DuplicateKey) (bool, error)
	ApplyTransaction(ctx context.Context, params ApplyTransactionParams) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, transactionId string) (*models.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, transactionId, category string) error
	GetTransaction(ctx context.Context, transactionId string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)

	// --- Category rules ---
	CreateCategoryRule(ctx context.Context, userId, categoryName, keywords string) (*models.CategoryRule, error)
	ListCategoryRules(ctx context.Context, userId string) ([]models.CategoryRule, error)
	DeleteCategoryRule(ctx context.Context, userId, ruleId string) error

	// --- Lifecycle ---
	Ping(ctx context.Context) error
	Close()
}
