package ledger

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"finance-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

var (
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	maskedPattern   = regexp.MustCompile(`^\*{4}[0-9A-Za-z*]{2,16}$`)
)

var accountTypes = map[string]bool{
	models.AccountTypeSavings:    true,
	models.AccountTypeChecking:   true,
	models.AccountTypeCreditCard: true,
	models.AccountTypeLoan:       true,
	models.AccountTypeInvestment: true,
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NormalizeTxnType lower-cases and checks a transaction type literal.
func NormalizeTxnType(txnType string) (string, error) {
	switch t := strings.ToLower(strings.TrimSpace(txnType)); t {
	case models.TxnTypeDebit, models.TxnTypeCredit:
		return t, nil
	default:
		return "", validationError("txn_type must be debit or credit, got %q", txnType)
	}
}

// MaxAmount is the largest amount or balance a single posting may carry,
// matching a NUMERIC(12,2) column.
var MaxAmount = decimal.RequireFromString("9999999999.99")

const (
	maxIntegerDigits = 10
	maxFractionScale = 18
)

// checkMagnitude rejects values whose digits or exponent are out of range.
// It only inspects the coefficient and exponent: Round and Cmp rescale, which
// allocates proportionally to the exponent.
func checkMagnitude(amount decimal.Decimal, field string) error {
	if amount.IsZero() {
		return nil
	}
	if amount.Exponent() < -maxFractionScale {
		return validationError("%s has more than %d decimal places", field, maxFractionScale)
	}
	if int64(amount.NumDigits())+int64(amount.Exponent()) > maxIntegerDigits {
		return validationError("%s exceeds %s", field, MaxAmount.StringFixed(2))
	}
	return nil
}

// NormalizeAmount rounds half-up to two places and requires a positive result
// no larger than MaxAmount.
func NormalizeAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsZero() || amount.IsNegative() {
		return decimal.Zero, validationError("amount must be greater than zero")
	}
	if err := checkMagnitude(amount, "amount"); err != nil {
		return decimal.Zero, err
	}
	rounded := amount.Round(2)
	if !rounded.IsPositive() {
		return decimal.Zero, validationError("amount must be greater than zero, got %s", amount)
	}
	if rounded.GreaterThan(MaxAmount) {
		return decimal.Zero, validationError("amount exceeds %s", MaxAmount.StringFixed(2))
	}
	return rounded, nil
}

func validateCurrency(currency string) error {
	if !currencyPattern.MatchString(currency) {
		return validationError("currency must be a 3-letter uppercase code, got %q", currency)
	}
	return nil
}

func validateAccount(req AccountRequest) error {
	n := utf8.RuneCountInString(strings.TrimSpace(req.BankName))
	if n < 2 || n > 100 {
		return validationError("bank_name must be 2 to 100 characters")
	}
	if !accountTypes[req.AccountType] {
		return validationError("unknown account_type %q", req.AccountType)
	}
	if !maskedPattern.MatchString(req.MaskedAccount) {
		return validationError("masked_account must look like ****1234")
	}
	if err := validateCurrency(req.Currency); err != nil {
		return err
	}
	if req.OpeningBalance.IsNegative() {
		return validationError("opening balance cannot be negative")
	}
	if err := checkMagnitude(req.OpeningBalance, "opening balance"); err != nil {
		return err
	}
	if req.OpeningBalance.Round(2).GreaterThan(MaxAmount) {
		return validationError("opening balance exceeds %s", MaxAmount.StringFixed(2))
	}
	return nil
}
