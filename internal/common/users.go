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

package common

import (
	"context"
	"fmt"

	"finance-ledger-go/internal/models"
	"finance-ledger-go/internal/store"

	"go.uber.org/zap"
)

// ResolveUser finds a user by id or, failing that, by email. Command-line
// tools accept either.
func ResolveUser(ctx context.Context, dbService store.LedgerStore, idOrEmail string) (*models.User, error) {
	if idOrEmail == "" {
		return nil, fmt.Errorf("a user id or email is required")
	}

	user, err := dbService.GetUserById(ctx, idOrEmail)
	if err == nil {
		return user, nil
	}

	zap.L().Debug("Looking up user by email", zap.String("email", idOrEmail))
	user, err = dbService.GetUserByEmail(ctx, idOrEmail)
	if err != nil {
		return nil, fmt.Errorf("user %q not found: %w", idOrEmail, err)
	}
	return user, nil
}

// InitializeUsers retrieves users based on an optional email filter.
// If emailFilter is provided, returns a single user with that email.
// If emailFilter is empty, returns all users.
func InitializeUsers(ctx context.Context, dbService store.LedgerStore, emailFilter string) ([]models.User, error) {
	if emailFilter != "" {
		zap.L().Info("Looking up user by email", zap.String("email", emailFilter))
		user, err := dbService.GetUserByEmail(ctx, emailFilter)
		if err != nil {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return []models.User{*user}, nil
	}

	users, err := dbService.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	zap.L().Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}
