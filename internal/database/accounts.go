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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finance-ledger-go/internal/models"
	"finance-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var account models.Account
	var balanceStr, openingStr string
	err := row.Scan(&account.Id, &account.UserId, &account.BankName, &account.AccountType,
		&account.MaskedAccount, &account.Currency, &balanceStr, &openingStr,
		&account.LastTransactionId, &account.Version, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}

	account.Balance, err = decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
	}
	account.OpeningBalance, err = decimal.NewFromString(openingStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse opening balance '%s': %w", openingStr, err)
	}
	return &account, nil
}

func (s *Service) CreateAccount(ctx context.Context, params store.CreateAccountParams) (*models.Account, error) {
	zap.L().Info("Creating account",
		zap.String("user_id", params.UserId),
		zap.String("bank_name", params.BankName),
		zap.String("account_type", params.AccountType),
		zap.String("currency", params.Currency))

	opening := params.OpeningBalance.Round(2).StringFixed(2)
	now := time.Now().UTC()

	account, err := scanAccount(s.db.QueryRowContext(ctx, queryInsertAccount,
		uuid.New().String(), params.UserId, params.BankName, params.AccountType,
		params.MaskedAccount, params.Currency, opening, opening, now, now))
	if err != nil {
		zap.L().Error("Failed to insert account", zap.String("user_id", params.UserId), zap.Error(err))
		return nil, fmt.Errorf("unable to insert account: %w", err)
	}

	zap.L().Info("Account created successfully",
		zap.String("account_id", account.Id),
		zap.String("user_id", account.UserId),
		zap.String("opening_balance", opening))
	return account, nil
}

func (s *Service) GetAccount(ctx context.Context, accountId string) (*models.Account, error) {
	zap.L().Debug("Querying account", zap.String("account_id", accountId))

	account, err := scanAccount(s.db.QueryRowContext(ctx, queryGetAccount, accountId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %s", store.ErrNotFound, accountId)
		}
		zap.L().Error("Failed to query account", zap.String("account_id", accountId), zap.Error(err))
		return nil, fmt.Errorf("unable to query account: %w", err)
	}
	return account, nil
}

func (s *Service) ListAccounts(ctx context.Context, userId string) ([]models.Account, error) {
	zap.L().Debug("Listing accounts", zap.String("user_id", userId))

	rows, err := s.db.QueryContext(ctx, queryListAccounts, userId)
	if err != nil {
		zap.L().Error("Failed to list accounts", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to list accounts: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan account row: %w", err)
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during account row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}

	return accounts, nil
}

// DeleteAccount removes an account that has no transactions left.
func (s *Service) DeleteAccount(ctx context.Context, accountId string) error {
	zap.L().Info("Deleting account", zap.String("account_id", accountId))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, queryCountAccountTransactions, accountId).Scan(&count); err != nil {
		return fmt.Errorf("failed to count transactions: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: account %s has %d transactions", store.ErrAccountHasTransactions, accountId, count)
	}

	result, err := tx.ExecContext(ctx, queryDeleteAccount, accountId)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: account %s", store.ErrNotFound, accountId)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Account deleted", zap.String("account_id", accountId))
	return nil
}
