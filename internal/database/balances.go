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
	"fmt"

	"finance-ledger-go/internal/models"
	"finance-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReconcileAccount verifies that the stored balance equals the opening balance
// plus the signed sum of every transaction on the account.
func (s *Service) ReconcileAccount(ctx context.Context, accountId string) error {
	zap.L().Info("Reconciling balance", zap.String("account_id", accountId))

	rows, err := s.db.QueryContext(ctx, queryReconcileAccount, accountId)
	if err != nil {
		return fmt.Errorf("failed to load account transactions: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	found := false
	var currentBalance, calculatedBalance decimal.Decimal
	for rows.Next() {
		var balanceStr, openingStr string
		var txnType, amountStr sql.NullString
		if err := rows.Scan(&balanceStr, &openingStr, &txnType, &amountStr); err != nil {
			return fmt.Errorf("failed to scan reconcile row: %w", err)
		}

		if !found {
			found = true
			if currentBalance, err = decimal.NewFromString(balanceStr); err != nil {
				return fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
			}
			if calculatedBalance, err = decimal.NewFromString(openingStr); err != nil {
				return fmt.Errorf("failed to parse opening balance '%s': %w", openingStr, err)
			}
		}

		// LEFT JOIN yields one NULL row for an account without transactions.
		if !amountStr.Valid {
			continue
		}
		amount, err := decimal.NewFromString(amountStr.String)
		if err != nil {
			return fmt.Errorf("failed to parse amount '%s': %w", amountStr.String, err)
		}
		if txnType.String == models.TxnTypeDebit {
			amount = amount.Neg()
		}
		calculatedBalance = calculatedBalance.Add(amount)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating reconcile rows: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: account %s", store.ErrNotFound, accountId)
	}

	// Check if balances match (exact decimal comparison)
	if !currentBalance.Equal(calculatedBalance) {
		zap.L().Error("Balance reconciliation failed",
			zap.String("account_id", accountId),
			zap.String("current_balance", currentBalance.StringFixed(2)),
			zap.String("calculated_balance", calculatedBalance.StringFixed(2)),
			zap.String("difference", currentBalance.Sub(calculatedBalance).StringFixed(2)))
		return fmt.Errorf("%w: current=%s, calculated=%s",
			store.ErrBalanceMismatch, currentBalance.StringFixed(2), calculatedBalance.StringFixed(2))
	}

	zap.L().Info("Balance reconciliation successful",
		zap.String("account_id", accountId),
		zap.String("balance", currentBalance.StringFixed(2)))
	return nil
}
