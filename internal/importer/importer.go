// Package importer posts bank statement CSV files through the ledger engine,
// one row at a time.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"finance-ledger-go/internal/classifier"
	"finance-ledger-go/internal/ledger"
	"finance-ledger-go/internal/models"
	"finance-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidFile     = errors.New("invalid csv file")
	ErrNothingImported = errors.New("no transactions imported")
)

var requiredColumns = []string{"amount", "txn_type", "txn_date"}

// Importer drives the ledger engine once per CSV row.
type Importer struct {
	ledger *ledger.Service
}

func New(l *ledger.Service) *Importer {
	return &Importer{ledger: l}
}

type rowOutcome int

const (
	rowCreated rowOutcome = iota
	rowDuplicate
	rowNoMerchant
	rowInvalid
)

// Import reads a CSV statement and posts every usable row to accountId.
// Row failures are recorded in the report and never stop the batch. When no
// row is created the report is returned together with ErrNothingImported.
func (im *Importer) Import(ctx context.Context, actingUser, accountId string, r io.Reader) (*models.ImportReport, error) {
	start := time.Now()

	account, err := im.ledger.AuthorizeAccount(ctx, actingUser, accountId)
	if err != nil {
		return nil, err
	}
	cls, err := im.ledger.ClassifierFor(ctx, actingUser)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidFile)
	}
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return nil, fmt.Errorf("%w: unreadable header: %v", ErrInvalidFile, parseErr.Err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	columns, err := indexHeader(header)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Importing statement",
		zap.String("account_id", account.Id),
		zap.String("acting_user", actingUser))

	report := &models.ImportReport{AccountId: account.Id}
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return report, fmt.Errorf("failed to read csv: %w", err)
			}
			report.Invalid++
			report.Errors = append(report.Errors, fmt.Sprintf("Row %d: %v", line, parseErr.Err))
			continue
		}
		if isBlank(record) {
			continue
		}

		outcome, reason := im.importRow(ctx, account, cls, columns.row(record))
		switch outcome {
		case rowCreated:
			report.Created++
		case rowDuplicate:
			report.SkippedDuplicates++
		case rowNoMerchant:
			report.SkippedNoMerchant++
		case rowInvalid:
			report.Invalid++
		}
		if reason != "" {
			report.Errors = append(report.Errors, fmt.Sprintf("Row %d: %s", line, reason))
		}
	}
	report.Skipped = report.SkippedDuplicates + report.SkippedNoMerchant + report.Invalid

	im.ledger.Metrics().RecordImport(report.Created, report.SkippedDuplicates+report.SkippedNoMerchant, report.Invalid, time.Since(start))
	zap.L().Info("Statement import finished",
		zap.String("account_id", account.Id),
		zap.Int("created", report.Created),
		zap.Int("skipped_duplicates", report.SkippedDuplicates),
		zap.Int("skipped_no_merchant", report.SkippedNoMerchant),
		zap.Int("invalid", report.Invalid))

	if report.Created == 0 {
		return report, fmt.Errorf("%w: %d rows skipped", ErrNothingImported, report.Skipped)
	}
	return report, nil
}

func (im *Importer) importRow(ctx context.Context, account *models.Account, cls *classifier.Classifier, row map[string]string) (rowOutcome, string) {
	amount, err := decimal.NewFromString(strings.ReplaceAll(row["amount"], ",", ""))
	if err != nil {
		return rowInvalid, fmt.Sprintf("invalid amount %q", row["amount"])
	}
	txnType, err := ledger.NormalizeTxnType(row["txn_type"])
	if err != nil {
		return rowInvalid, fmt.Sprintf("invalid txn_type %q", row["txn_type"])
	}
	txnDate, err := ledger.ParseDate(row["txn_date"])
	if err != nil {
		return rowInvalid, fmt.Sprintf("invalid txn_date %q", row["txn_date"])
	}

	var postedDate time.Time
	if v := row["posted_date"]; v != "" {
		if postedDate, err = ledger.ParseDate(v); err != nil {
			return rowInvalid, fmt.Sprintf("invalid posted_date %q", v)
		}
	}

	if row["merchant"] == "" {
		return rowNoMerchant, "merchant is required"
	}

	_, err = im.ledger.Apply(ctx, account, ledger.TransactionRequest{
		AccountId:   account.Id,
		Amount:      amount,
		Currency:    row["currency"],
		TxnType:     txnType,
		Merchant:    row["merchant"],
		Description: row["description"],
		Category:    row["category"],
		TxnDate:     txnDate,
		PostedDate:  postedDate,
	}, cls)
	switch {
	case err == nil:
		return rowCreated, ""
	case errors.Is(err, store.ErrDuplicateTransaction):
		return rowDuplicate, ""
	case errors.Is(err, ledger.ErrValidation), errors.Is(err, store.ErrInsufficientFunds):
		return rowInvalid, err.Error()
	default:
		zap.L().Error("Row failed to post", zap.String("account_id", account.Id), zap.Error(err))
		return rowInvalid, err.Error()
	}
}

type columnIndex map[string]int

func indexHeader(header []string) (columnIndex, error) {
	columns := columnIndex{}
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if _, seen := columns[name]; !seen && name != "" {
			columns[name] = i
		}
	}

	var missing []string
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required columns: %s", ErrInvalidFile, strings.Join(missing, ", "))
	}
	return columns, nil
}

// row maps column names to trimmed values. Short records yield blanks.
func (c columnIndex) row(record []string) map[string]string {
	values := make(map[string]string, len(c))
	for name, i := range c {
		if i < len(record) {
			values[name] = strings.TrimSpace(record[i])
		}
	}
	return values
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
