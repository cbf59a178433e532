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
	"strings"
	"time"

	"finance-ledger-go/internal/models"
	"finance-ledger-go/internal/store"

	sqlite "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	if err := row.Scan(&user.Id, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt, &user.AccountCount); err != nil {
		return nil, err
	}
	return &user, nil
}

// isEmailConflict reports whether err is the unique index on users.email firing.
func isEmailConflict(err error) bool {
	var sqliteErr sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite.ErrConstraintUnique && strings.Contains(sqliteErr.Error(), "users.email")
}

// GetUsers lists active users with the number of accounts each owns.
func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, queryListUsers)
	if err != nil {
		zap.L().Error("Failed to list users", zap.Error(err))
		return nil, fmt.Errorf("unable to list users: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	zap.L().Debug("Listed users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, queryGetUserById, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, userId)
		}
		zap.L().Error("Failed to load user", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to load user %s: %w", userId, err)
	}
	return user, nil
}

// GetUserByEmail matches case-insensitively.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = normalizeEmail(email)
	user, err := scanUser(s.db.QueryRowContext(ctx, queryGetUserByEmail, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, email)
		}
		zap.L().Error("Failed to load user by email", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("unable to load user %s: %w", email, err)
	}
	return user, nil
}

// CreateUser registers an account holder. A second registration for the same
// email, in any letter case, fails with store.ErrEmailTaken.
func (s *Service) CreateUser(ctx context.Context, userId, name, email string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	now := time.Now().UTC()

	if _, err := s.db.ExecContext(ctx, queryInsertUser, userId, name, email, now, now); err != nil {
		if isEmailConflict(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrEmailTaken, email)
		}
		zap.L().Error("Failed to insert user", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("unable to insert user: %w", err)
	}

	zap.L().Info("Account holder registered", zap.String("user_id", userId), zap.String("email", email))
	return s.GetUserById(ctx, userId)
}
