package ledger

import (
	"context"
	"strings"

	"finance-ledger-go/internal/classifier"
	"finance-ledger-go/internal/models"
	"finance-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AccountRequest describes an account to open.
type AccountRequest struct {
	BankName       string
	AccountType    string
	MaskedAccount  string
	Currency       string
	OpeningBalance decimal.Decimal
}

func (s *Service) CreateAccount(ctx context.Context, actingUser string, req AccountRequest) (*models.Account, error) {
	if _, err := s.store.GetUserById(ctx, actingUser); err != nil {
		return nil, err
	}

	req.BankName = strings.TrimSpace(req.BankName)
	req.AccountType = strings.ToLower(strings.TrimSpace(req.AccountType))
	req.MaskedAccount = strings.TrimSpace(req.MaskedAccount)
	req.Currency = strings.TrimSpace(req.Currency)
	if err := validateAccount(req); err != nil {
		return nil, err
	}

	return s.store.CreateAccount(ctx, store.CreateAccountParams{
		UserId:         actingUser,
		BankName:       req.BankName,
		AccountType:    req.AccountType,
		MaskedAccount:  req.MaskedAccount,
		Currency:       req.Currency,
		OpeningBalance: req.OpeningBalance.Round(2),
	})
}

func (s *Service) GetAccount(ctx context.Context, actingUser, accountId string) (*models.Account, error) {
	return s.AuthorizeAccount(ctx, actingUser, accountId)
}

func (s *Service) ListAccounts(ctx context.Context, actingUser string) ([]models.Account, error) {
	return s.store.ListAccounts(ctx, actingUser)
}

// DeleteAccount removes an account once it has no transactions.
func (s *Service) DeleteAccount(ctx context.Context, actingUser, accountId string) error {
	if _, err := s.AuthorizeAccount(ctx, actingUser, accountId); err != nil {
		return err
	}
	return s.store.DeleteAccount(ctx, accountId)
}

// ReconcileAccount checks the stored balance against the transactions.
func (s *Service) ReconcileAccount(ctx context.Context, actingUser, accountId string) error {
	if _, err := s.AuthorizeAccount(ctx, actingUser, accountId); err != nil {
		return err
	}
	if err := s.store.ReconcileAccount(ctx, accountId); err != nil {
		zap.L().Error("Account failed reconciliation", zap.String("account_id", accountId), zap.Error(err))
		return err
	}
	return nil
}

// CreateCategoryRule stores a user rule. keywords is a comma-separated list.
func (s *Service) CreateCategoryRule(ctx context.Context, actingUser, categoryName, keywords string) (*models.CategoryRule, error) {
	categoryName = strings.TrimSpace(categoryName)
	if categoryName == "" {
		return nil, validationError("category_name cannot be blank")
	}
	parsed := classifier.SplitKeywords(keywords)
	if len(parsed) == 0 {
		return nil, validationError("at least one keyword is required")
	}
	if _, err := s.store.GetUserById(ctx, actingUser); err != nil {
		return nil, err
	}
	return s.store.CreateCategoryRule(ctx, actingUser, categoryName, strings.Join(parsed, ","))
}

func (s *Service) ListCategoryRules(ctx context.Context, actingUser string) ([]models.CategoryRule, error) {
	return s.store.ListCategoryRules(ctx, actingUser)
}

func (s *Service) DeleteCategoryRule(ctx context.Context, actingUser, ruleId string) error {
	return s.store.DeleteCategoryRule(ctx, actingUser, ruleId)
}
