package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"finance-ledger-go/internal/classifier"
	"finance-ledger-go/internal/metrics"
	"finance-ledger-go/internal/models"
	"finance-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransactionRequest is a posting as received from a caller. Currency may be
// blank, in which case the account currency is used.
type TransactionRequest struct {
	AccountId   string
	Amount      decimal.Decimal
	Currency    string
	TxnType     string
	Merchant    string
	Description string
	Category    string
	TxnDate     time.Time
	PostedDate  time.Time
}

// TransactionQuery selects transactions visible to the acting user. A blank
// AccountId means all of the user's accounts.
type TransactionQuery struct {
	AccountId string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// CreateTransaction posts one transaction on behalf of actingUser. A
// duplicate is rejected with store.ErrDuplicateTransaction and nothing is written.
func (s *Service) CreateTransaction(ctx context.Context, actingUser string, req TransactionRequest) (*models.Transaction, error) {
	account, err := s.AuthorizeAccount(ctx, actingUser, req.AccountId)
	if err != nil {
		return nil, err
	}

	cls, err := s.ClassifierFor(ctx, actingUser)
	if err != nil {
		return nil, err
	}

	return s.Apply(ctx, account, req, cls)
}

// Apply validates req against an already authorised account and posts it
// atomically. cls resolves a blank category.
func (s *Service) Apply(ctx context.Context, account *models.Account, req TransactionRequest, cls *classifier.Classifier) (*models.Transaction, error) {
	start := time.Now()

	params, err := s.prepare(account, req, cls)
	if err != nil {
		s.metrics.RecordTransaction(strings.ToLower(req.TxnType), metrics.OutcomeInvalid, time.Since(start))
		return nil, err
	}

	duplicate, err := s.detector.IsDuplicate(ctx, params.Key())
	if err != nil {
		s.metrics.RecordTransaction(params.TxnType, metrics.OutcomeError, time.Since(start))
		return nil, err
	}
	if duplicate {
		zap.L().Info("Duplicate transaction rejected",
			zap.String("account_id", params.AccountId),
			zap.String("amount", params.Amount.String()),
			zap.String("merchant", params.Merchant))
		s.metrics.RecordTransaction(params.TxnType, metrics.OutcomeDuplicate, time.Since(start))
		return nil, fmt.Errorf("%w: %s %s at %s on %s", store.ErrDuplicateTransaction,
			params.TxnType, params.Amount.StringFixed(2), params.Merchant, params.TxnDate.Format(time.DateOnly))
	}

	var txn *models.Transaction
	err = s.withRetry(ctx, func() error {
		var applyErr error
		txn, applyErr = s.store.ApplyTransaction(ctx, params)
		return applyErr
	})
	s.metrics.RecordTransaction(params.TxnType, outcomeOf(err), time.Since(start))
	if err != nil {
		return nil, err
	}

	zap.L().Info("Transaction posted",
		zap.String("transaction_id", txn.Id),
		zap.String("account_id", txn.AccountId),
		zap.String("type", txn.TxnType),
		zap.String("amount", txn.Amount.String()),
		zap.String("category", txn.Category),
		zap.String("balance_after", txn.BalanceAfter.String()))
	return txn, nil
}

func (s *Service) prepare(account *models.Account, req TransactionRequest, cls *classifier.Classifier) (store.ApplyTransactionParams, error) {
	amount, err := NormalizeAmount(req.Amount)
	if err != nil {
		return store.ApplyTransactionParams{}, err
	}

	txnType, err := NormalizeTxnType(req.TxnType)
	if err != nil {
		return store.ApplyTransactionParams{}, err
	}

	currency := strings.TrimSpace(req.Currency)
	if currency == "" {
		currency = account.Currency
	}
	if err := validateCurrency(currency); err != nil {
		return store.ApplyTransactionParams{}, err
	}
	if currency != account.Currency {
		return store.ApplyTransactionParams{}, validationError("currency %s does not match account currency %s", currency, account.Currency)
	}

	if req.TxnDate.IsZero() {
		return store.ApplyTransactionParams{}, validationError("txn_date is required")
	}

	merchant := strings.TrimSpace(req.Merchant)
	description := strings.TrimSpace(req.Description)
	category := strings.TrimSpace(req.Category)
	if category == "" {
		if cls == nil {
			cls = s.classifier
		}
		category = cls.Classify(merchant + " " + description)
	}

	return store.ApplyTransactionParams{
		AccountId:      account.Id,
		Amount:         amount,
		Currency:       currency,
		TxnType:        txnType,
		Merchant:       merchant,
		Description:    description,
		Category:       category,
		TxnDate:        req.TxnDate,
		PostedDate:     req.PostedDate,
		AllowOverdraft: s.policy.AllowOverdraft,
	}, nil
}

// withRetry reruns fn while the store reports a lost balance update.
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if !errors.Is(err, store.ErrConcurrentModification) || attempt >= s.policy.MaxRetries {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.metrics.RecordRetry()
		zap.L().Warn("Balance changed underneath posting, retrying", zap.Int("attempt", attempt+1))
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeApplied
	case errors.Is(err, store.ErrDuplicateTransaction):
		return metrics.OutcomeDuplicate
	case errors.Is(err, store.ErrInsufficientFunds):
		return metrics.OutcomeInsufficientFunds
	case errors.Is(err, ErrValidation):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}

// DeleteTransaction removes a transaction and reverses its effect on the
// owning account's balance.
func (s *Service) DeleteTransaction(ctx context.Context, actingUser, transactionId string) error {
	if _, err := s.authorizeTransaction(ctx, actingUser, transactionId); err != nil {
		return err
	}

	var deleted *models.Transaction
	err := s.withRetry(ctx, func() error {
		var deleteErr error
		deleted, deleteErr = s.store.DeleteTransaction(ctx, transactionId)
		return deleteErr
	})
	if err != nil {
		return err
	}

	s.metrics.RecordDeletion()
	zap.L().Info("Transaction deleted",
		zap.String("transaction_id", deleted.Id),
		zap.String("account_id", deleted.AccountId),
		zap.String("reversed", deleted.SignedAmount().Neg().String()))
	return nil
}

// UpdateCategory corrects the category of a transaction. Nothing else changes.
func (s *Service) UpdateCategory(ctx context.Context, actingUser, transactionId, category string) (*models.Transaction, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, validationError("category cannot be blank")
	}

	if _, err := s.authorizeTransaction(ctx, actingUser, transactionId); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTransactionCategory(ctx, transactionId, category); err != nil {
		return nil, err
	}
	return s.store.GetTransaction(ctx, transactionId)
}

func (s *Service) GetTransaction(ctx context.Context, actingUser, transactionId string) (*models.Transaction, error) {
	return s.authorizeTransaction(ctx, actingUser, transactionId)
}

// ListTransactions returns the user's transactions, newest txn_date first.
func (s *Service) ListTransactions(ctx context.Context, actingUser string, query TransactionQuery) ([]models.Transaction, error) {
	if query.Limit < 0 || query.Offset < 0 {
		return nil, validationError("limit and offset cannot be negative")
	}
	if query.Limit == 0 {
		query.Limit = DefaultListLimit
	}
	query.Limit = min(query.Limit, MaxListLimit)

	filter, err := s.scopeFilter(ctx, actingUser, query.AccountId, query.From, query.To)
	if err != nil {
		return nil, err
	}
	filter.Limit = query.Limit
	filter.Offset = query.Offset
	return s.store.ListTransactions(ctx, filter)
}

// scopeFilter restricts a filter to one owned account, or to every account of the user.
func (s *Service) scopeFilter(ctx context.Context, actingUser, accountId string, from, to *time.Time) (store.TransactionFilter, error) {
	if from != nil && to != nil && from.After(*to) {
		return store.TransactionFilter{}, validationError("from_date is after to_date")
	}

	filter := store.TransactionFilter{From: from, To: to}
	if accountId != "" {
		if _, err := s.AuthorizeAccount(ctx, actingUser, accountId); err != nil {
			return store.TransactionFilter{}, err
		}
		filter.AccountIds = []string{accountId}
		return filter, nil
	}

	if actingUser == "" {
		return store.TransactionFilter{}, fmt.Errorf("%w: no acting user", ErrForbidden)
	}
	accounts, err := s.store.ListAccounts(ctx, actingUser)
	if err != nil {
		return store.TransactionFilter{}, err
	}
	filter.AccountIds = make([]string, 0, len(accounts))
	for _, a := range accounts {
		filter.AccountIds = append(filter.AccountIds, a.Id)
	}
	return filter, nil
}
