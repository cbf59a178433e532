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

	"finance-ledger-go/internal/models"
	"finance-ledger-go/internal/store"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Service)(nil)

const memoryPath = ":memory:"

// BEGIN IMMEDIATE takes the write lock up front so two writers on the same
// account queue on the busy timeout instead of failing at commit.
const dsnOptions = "_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"

type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?"+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	if cfg.Path == memoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after migration failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to migrate schema: %w", err)
	}

	service := &Service{db: db}
	if cfg.CreateDummyUsers {
		service.createDummyUsers(ctx)
	} else {
		zap.L().Info("Skipping dummy user creation (CREATE_DUMMY_USERS=false)")
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

// createDummyUsers inserts three demo users, each with one savings account.
func (s *Service) createDummyUsers(ctx context.Context) {
	users := []struct {
		name  string
		email string
	}{
		{"Alice Johnson", "alice.johnson@example.com"},
		{"Bob Smith", "bob.smith@example.com"},
		{"Carol Williams", "carol.williams@example.com"},
	}

	for _, u := range users {
		user, err := s.CreateUser(ctx, uuid.New().String(), u.name, u.email)
		if errors.Is(err, store.ErrEmailTaken) {
			zap.L().Debug("Dummy user already present", zap.String("email", u.email))
			continue
		}
		if err != nil {
			zap.L().Error("Failed to insert dummy user", zap.String("name", u.name), zap.Error(err))
			continue
		}

		_, err = s.CreateAccount(ctx, store.CreateAccountParams{
			UserId:        user.Id,
			BankName:      "Demo Bank",
			AccountType:   models.AccountTypeSavings,
			MaskedAccount: "****0000",
			Currency:      "INR",
		})
		if err != nil {
			zap.L().Error("Failed to insert dummy account", zap.String("user_id", user.Id), zap.Error(err))
			continue
		}
		zap.L().Info("Dummy user created", zap.String("id", user.Id), zap.String("name", user.Name))
	}
}
