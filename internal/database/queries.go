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

const (
	// User queries
	userColumns = `
		u.id, u.name, u.email, u.created_at, u.updated_at,
		(SELECT COUNT(1) FROM accounts a WHERE a.user_id = u.id) AS account_count`

	queryListUsers = `
		SELECT` + userColumns + `
		FROM users u
		WHERE u.active = 1
		ORDER BY u.created_at, u.id`

	queryInsertUser = `
		INSERT INTO users (id, name, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`

	queryGetUserById = `
		SELECT` + userColumns + `
		FROM users u
		WHERE u.id = ? AND u.active = 1`

	queryGetUserByEmail = `
		SELECT` + userColumns + `
		FROM users u
		WHERE u.email = ? AND u.active = 1`

	// Account queries
	accountColumns = `
		id, user_id, bank_name, account_type, masked_account, currency,
		balance, opening_balance, last_transaction_id, version, created_at, updated_at`

	queryInsertAccount = `
		INSERT INTO accounts (
			id, user_id, bank_name, account_type, masked_account, currency,
			balance, opening_balance, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING` + accountColumns

	queryGetAccount = `
		SELECT` + accountColumns + `
		FROM accounts
		WHERE id = ?`

	queryListAccounts = `
		SELECT` + accountColumns + `
		FROM accounts
		WHERE user_id = ?
		ORDER BY created_at, id`

	queryCountAccountTransactions = `
		SELECT COUNT(1) FROM transactions WHERE account_id = ?`

	queryDeleteAccount = `
		DELETE FROM accounts WHERE id = ?`

	queryGetAccountBalance = `
		SELECT balance, version
		FROM accounts
		WHERE id = ?`

	queryGetAccountBalanceForReversal = `
		SELECT balance, last_transaction_id, version
		FROM accounts
		WHERE id = ?`

	queryUpdateAccountBalance = `
		UPDATE accounts
		SET balance = ?, last_transaction_id = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	queryReconcileAccount = `
		SELECT a.balance, a.opening_balance, t.txn_type, t.amount
		FROM accounts a
		LEFT JOIN transactions t ON t.account_id = a.id
		WHERE a.id = ?`

	// Transaction queries
	transactionColumns = `
		id, account_id, description, category, amount, currency, txn_type, merchant,
		txn_date, posted_date, balance_before, balance_after, created_at`

	queryCheckDuplicateTransaction = `
		SELECT id FROM transactions
		WHERE account_id = ? AND amount = ? AND txn_type = ? AND merchant = ? AND txn_date = ?
		LIMIT 1`

	queryInsertTransaction = `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING` + transactionColumns

	queryGetTransaction = `
		SELECT` + transactionColumns + `
		FROM transactions
		WHERE id = ?`

	queryDeleteTransaction = `
		DELETE FROM transactions WHERE id = ?`

	queryUpdateTransactionCategory = `
		UPDATE transactions SET category = ? WHERE id = ?`

	// Category rule queries
	queryInsertCategoryRule = `
		INSERT INTO category_rules (id, user_id, category_name, keywords, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, user_id, category_name, keywords, created_at`

	queryListCategoryRules = `
		SELECT id, user_id, category_name, keywords, created_at
		FROM category_rules
		WHERE user_id = ?
		ORDER BY created_at, rowid`

	queryDeleteCategoryRule = `
		DELETE FROM category_rules WHERE id = ? AND user_id = ?`
)
