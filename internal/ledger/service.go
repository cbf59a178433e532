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

package ledger

import (
	"context"
	"errors"
	"fmt"

	"finance-ledger-go/internal/classifier"
	"finance-ledger-go/internal/metrics"
	"finance-ledger-go/internal/models"
	"finance-ledger-go/internal/store"

	"go.uber.org/zap"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
)

// Service is the ledger engine. Every mutation of an account balance goes
// through it.
type Service struct {
	store      store.LedgerStore
	classifier *classifier.Classifier
	detector   *DuplicateDetector
	metrics    metrics.Collector
	policy     models.LedgerConfig
}

// Option customises a Service.
type Option func(*Service)

// WithClassifier replaces the built-in category table.
func WithClassifier(c *classifier.Classifier) Option {
	return func(s *Service) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithMetrics sets the collector that receives posting events.
func WithMetrics(m metrics.Collector) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func NewService(st store.LedgerStore, policy models.LedgerConfig, opts ...Option) *Service {
	s := &Service{
		store:      st,
		classifier: classifier.Default(),
		detector:   NewDuplicateDetector(st),
		metrics:    metrics.NoOpCollector{},
		policy:     policy,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.policy.MaxRetries < 0 {
		s.policy.MaxRetries = 0
	}
	return s
}

// Store exposes the backing store.
func (s *Service) Store() store.LedgerStore {
	return s.store
}

// Metrics returns the collector in use.
func (s *Service) Metrics() metrics.Collector {
	return s.metrics
}

func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// AuthorizeAccount loads an account and checks that actingUser owns it. It
// is the one ownership predicate used by every account and transaction
// operation.
func (s *Service) AuthorizeAccount(ctx context.Context, actingUser, accountId string) (*models.Account, error) {
	if actingUser == "" {
		return nil, fmt.Errorf("%w: no acting user", ErrForbidden)
	}

	account, err := s.store.GetAccount(ctx, accountId)
	if err != nil {
		return nil, err
	}
	if account.UserId != actingUser {
		zap.L().Warn("Rejected access to foreign account",
			zap.String("acting_user", actingUser),
			zap.String("account_id", accountId))
		return nil, fmt.Errorf("%w: account %s", ErrForbidden, accountId)
	}
	return account, nil
}

// ClassifierFor returns the classifier for a user: their rules first, then
// the service table.
func (s *Service) ClassifierFor(ctx context.Context, userId string) (*classifier.Classifier, error) {
	rules, err := s.store.ListCategoryRules(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to load category rules: %w", err)
	}
	return s.classifier.WithRules(rules), nil
}

// authorizeTransaction loads a transaction and checks ownership through its account.
func (s *Service) authorizeTransaction(ctx context.Context, actingUser, transactionId string) (*models.Transaction, error) {
	txn, err := s.store.GetTransaction(ctx, transactionId)
	if err != nil {
		return nil, err
	}
	if _, err := s.AuthorizeAccount(ctx, actingUser, txn.AccountId); err != nil {
		return nil, err
	}
	return txn, nil
}
