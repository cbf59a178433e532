package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"finance-ledger-go/internal/models"
	"finance-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func scanCategoryRule(row rowScanner) (*models.CategoryRule, error) {
	var rule models.CategoryRule
	if err := row.Scan(&rule.Id, &rule.UserId, &rule.CategoryName, &rule.Keywords, &rule.CreatedAt); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (s *Service) CreateCategoryRule(ctx context.Context, userId, categoryName, keywords string) (*models.CategoryRule, error) {
	zap.L().Info("Creating category rule",
		zap.String("user_id", userId),
		zap.String("category", categoryName))

	rule, err := scanCategoryRule(s.db.QueryRowContext(ctx, queryInsertCategoryRule,
		uuid.New().String(), userId, categoryName, keywords, time.Now().UTC()))
	if err != nil {
		zap.L().Error("Failed to insert category rule", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to insert category rule: %w", err)
	}
	return rule, nil
}

// ListCategoryRules returns a user's rules in creation order, which is also
// their match priority.
func (s *Service) ListCategoryRules(ctx context.Context, userId string) ([]models.CategoryRule, error) {
	rows, err := s.db.QueryContext(ctx, queryListCategoryRules, userId)
	if err != nil {
		return nil, fmt.Errorf("unable to list category rules: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var rules []models.CategoryRule
	for rows.Next() {
		rule, err := scanCategoryRule(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan category rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category rule rows: %w", err)
	}
	return rules, nil
}

func (s *Service) DeleteCategoryRule(ctx context.Context, userId, ruleId string) error {
	result, err := s.db.ExecContext(ctx, queryDeleteCategoryRule, ruleId, userId)
	if err != nil {
		return fmt.Errorf("unable to delete category rule: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: category rule %s", store.ErrNotFound, ruleId)
	}
	return nil
}
