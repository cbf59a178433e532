package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"finance-ledger-go/internal/models"
	"finance-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// normalizeTime stores every timestamp as UTC with second precision so that
// equality and range comparisons on the TEXT encoding behave.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	var amountStr, balanceBeforeStr, balanceAfterStr string
	err := row.Scan(&t.Id, &t.AccountId, &t.Description, &t.Category, &amountStr, &t.Currency,
		&t.TxnType, &t.Merchant, &t.TxnDate, &t.PostedDate, &balanceBeforeStr, &balanceAfterStr, &t.CreatedAt)
	if err != nil {
		return nil, err
	}

	t.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	t.BalanceBefore, err = decimal.NewFromString(balanceBeforeStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance before '%s': %w", balanceBeforeStr, err)
	}
	t.BalanceAfter, err = decimal.NewFromString(balanceAfterStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance after '%s': %w", balanceAfterStr, err)
	}
	return &t, nil
}

func findDuplicate(ctx context.Context, q querier, key store.DuplicateKey) (string, bool, error) {
	if !key.Checkable() {
		return "", false, nil
	}

	var existingId string
	err := q.QueryRowContext(ctx, queryCheckDuplicateTransaction,
		key.AccountId, key.Amount.Round(2).StringFixed(2), key.TxnType,
		strings.TrimSpace(key.Merchant), normalizeTime(key.TxnDate)).Scan(&existingId)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to check for duplicate transaction: %w", err)
	}
	return existingId, true, nil
}

// IsDuplicate reports whether the tuple already exists on the account.
func (s *Service) IsDuplicate(ctx context.Context, key store.DuplicateKey) (bool, error) {
	_, found, err := findDuplicate(ctx, s.db, key)
	return found, err
}

// ApplyTransaction atomically records the transaction and moves the account
// balance by its signed amount.
func (s *Service) ApplyTransaction(ctx context.Context, params store.ApplyTransactionParams) (*models.Transaction, error) {
	zap.L().Info("Applying transaction",
		zap.String("account_id", params.AccountId),
		zap.String("type", params.TxnType),
		zap.String("amount", params.Amount.String()),
		zap.String("merchant", params.Merchant),
		zap.String("category", params.Category))

	amount := params.Amount.Round(2)
	var delta decimal.Decimal
	switch params.TxnType {
	case models.TxnTypeCredit:
		delta = amount
	case models.TxnTypeDebit:
		delta = amount.Neg()
	default:
		return nil, fmt.Errorf("unknown transaction type %q", params.TxnType)
	}

	// Start database transaction for atomicity
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Re-checked under the write lock so two racing writers cannot both insert the tuple.
	if existingId, found, err := findDuplicate(ctx, tx, params.Key()); err != nil {
		return nil, err
	} else if found {
		zap.L().Warn("Duplicate transaction detected, skipping",
			zap.String("account_id", params.AccountId),
			zap.String("existing_transaction_id", existingId))
		return nil, fmt.Errorf("%w: matches transaction %s", store.ErrDuplicateTransaction, existingId)
	}

	var currentBalanceStr string
	var version int64
	err = tx.QueryRowContext(ctx, queryGetAccountBalance, params.AccountId).Scan(&currentBalanceStr, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account %s", store.ErrNotFound, params.AccountId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	}

	currentBalance, err := decimal.NewFromString(currentBalanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse current balance '%s': %w", currentBalanceStr, err)
	}

	newBalance := currentBalance.Add(delta)
	if !params.AllowOverdraft && delta.IsNegative() && newBalance.IsNegative() {
		return nil, fmt.Errorf("%w: balance %s cannot cover debit of %s",
			store.ErrInsufficientFunds, currentBalance.StringFixed(2), amount.StringFixed(2))
	}

	transactionId := uuid.New().String()
	now := time.Now().UTC()
	postedDate := now
	if !params.PostedDate.IsZero() {
		postedDate = params.PostedDate
	}

	transaction, err := scanTransaction(tx.QueryRowContext(ctx, queryInsertTransaction,
		transactionId, params.AccountId, strings.TrimSpace(params.Description), params.Category,
		amount.StringFixed(2), params.Currency, params.TxnType, strings.TrimSpace(params.Merchant),
		normalizeTime(params.TxnDate), normalizeTime(postedDate),
		currentBalance.StringFixed(2), newBalance.StringFixed(2), now))
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	// Update account balance (with optimistic locking)
	result, err := tx.ExecContext(ctx, queryUpdateAccountBalance,
		newBalance.StringFixed(2), transactionId, now, params.AccountId, version)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Transaction applied successfully",
		zap.String("transaction_id", transactionId),
		zap.String("account_id", params.AccountId),
		zap.String("old_balance", currentBalance.StringFixed(2)),
		zap.String("new_balance", newBalance.StringFixed(2)))

	return transaction, nil
}

// DeleteTransaction removes a transaction and reverses its balance effect in
// the same unit of work. The deleted row is returned.
func (s *Service) DeleteTransaction(ctx context.Context, transactionId string) (*models.Transaction, error) {
	zap.L().Info("Deleting transaction", zap.String("transaction_id", transactionId))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	transaction, err := scanTransaction(tx.QueryRowContext(ctx, queryGetTransaction, transactionId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transaction %s", store.ErrNotFound, transactionId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}

	var currentBalanceStr, lastTransactionId string
	var version int64
	err = tx.QueryRowContext(ctx, queryGetAccountBalanceForReversal, transaction.AccountId).Scan(&currentBalanceStr, &lastTransactionId, &version)
	if err != nil {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	}

	currentBalance, err := decimal.NewFromString(currentBalanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse current balance '%s': %w", currentBalanceStr, err)
	}
	newBalance := currentBalance.Sub(transaction.SignedAmount())

	if _, err := tx.ExecContext(ctx, queryDeleteTransaction, transactionId); err != nil {
		return nil, fmt.Errorf("failed to delete transaction: %w", err)
	}

	result, err := tx.ExecContext(ctx, queryUpdateAccountBalance,
		newBalance.StringFixed(2), lastTransactionId, time.Now().UTC(), transaction.AccountId, version)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Transaction deleted and balance restored",
		zap.String("transaction_id", transactionId),
		zap.String("account_id", transaction.AccountId),
		zap.String("old_balance", currentBalance.StringFixed(2)),
		zap.String("new_balance", newBalance.StringFixed(2)))

	return transaction, nil
}

func (s *Service) UpdateTransactionCategory(ctx context.Context, transactionId, category string) error {
	zap.L().Info("Updating transaction category",
		zap.String("transaction_id", transactionId),
		zap.String("category", category))

	result, err := s.db.ExecContext(ctx, queryUpdateTransactionCategory, category, transactionId)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: transaction %s", store.ErrNotFound, transactionId)
	}
	return nil
}

func (s *Service) GetTransaction(ctx context.Context, transactionId string) (*models.Transaction, error) {
	transaction, err := scanTransaction(s.db.QueryRowContext(ctx, queryGetTransaction, transactionId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transaction %s", store.ErrNotFound, transactionId)
	}
	if err != nil {
		zap.L().Error("Failed to query transaction", zap.String("transaction_id", transactionId), zap.Error(err))
		return nil, fmt.Errorf("unable to query transaction: %w", err)
	}
	return transaction, nil
}

// ListTransactions returns matching transactions, newest txn_date first. A nil
// AccountIds means every account; an empty non-nil slice matches nothing.
func (s *Service) ListTransactions(ctx context.Context, filter store.TransactionFilter) ([]models.Transaction, error) {
	zap.L().Debug("Listing transactions",
		zap.Strings("account_ids", filter.AccountIds),
		zap.Int("limit", filter.Limit),
		zap.Int("offset", filter.Offset))

	if filter.AccountIds != nil && len(filter.AccountIds) == 0 {
		return nil, nil
	}

	var query strings.Builder
	var args []any
	query.WriteString("SELECT" + transactionColumns + " FROM transactions WHERE 1 = 1")

	if len(filter.AccountIds) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(filter.AccountIds)), ", ")
		query.WriteString(" AND account_id IN (" + placeholders + ")")
		for _, id := range filter.AccountIds {
			args = append(args, id)
		}
	}
	if filter.From != nil {
		query.WriteString(" AND txn_date >= ?")
		args = append(args, normalizeTime(*filter.From))
	}
	if filter.To != nil {
		query.WriteString(" AND txn_date <= ?")
		args = append(args, normalizeTime(*filter.To))
	}

	query.WriteString(" ORDER BY txn_date DESC, created_at DESC, rowid DESC")
	switch {
	case filter.Limit > 0:
		query.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, filter.Limit, max(filter.Offset, 0))
	case filter.Offset > 0:
		query.WriteString(" LIMIT -1 OFFSET ?")
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var transactions []models.Transaction
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *transaction)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transaction row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, nil
}
