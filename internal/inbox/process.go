package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"finance-ledger-go/internal/importer"
	"finance-ledger-go/internal/models"

	"go.uber.org/zap"
)

// processFile imports one statement and files it under processed/ or
// failed/ with its report alongside. It reports whether rows were created.
func (w *Watcher) processFile(ctx context.Context, name string) bool {
	path := filepath.Join(w.dir, name)
	accountId := AccountIdFromName(name)

	report, err := w.importFile(ctx, accountId, path)

	// A statement whose rows are all already posted is not a failure.
	alreadyPosted := errors.Is(err, importer.ErrNothingImported) &&
		report != nil && report.SkippedDuplicates > 0 && report.Invalid == 0

	destination := failedDir
	if err == nil || alreadyPosted {
		destination = processedDir
	}

	if err != nil && !alreadyPosted {
		zap.L().Error("Statement import failed",
			zap.String("file", name),
			zap.String("account_id", accountId),
			zap.Error(err))
	}

	if moveErr := w.archive(name, destination, report, err); moveErr != nil {
		zap.L().Error("Failed to archive statement", zap.String("file", name), zap.Error(moveErr))
	}
	w.markProcessed(name)

	return err == nil
}

func (w *Watcher) importFile(ctx context.Context, accountId, path string) (*models.ImportReport, error) {
	account, err := w.store.GetAccount(ctx, accountId)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open statement: %w", err)
	}
	defer f.Close()

	return w.importer.Import(ctx, account.UserId, account.Id, f)
}

type archiveReport struct {
	File       string               `json:"file"`
	ArchivedAt time.Time            `json:"archived_at"`
	Error      string               `json:"error,omitempty"`
	Report     *models.ImportReport `json:"report,omitempty"`
}

// archive moves name into sub/ with a timestamp prefix and writes a JSON
// report next to it.
func (w *Watcher) archive(name, sub string, report *models.ImportReport, importErr error) error {
	now := time.Now().UTC()
	target := filepath.Join(w.dir, sub, now.Format("20060102T150405")+"_"+name)
	if err := os.Rename(filepath.Join(w.dir, name), target); err != nil {
		return err
	}

	summary := archiveReport{File: name, ArchivedAt: now, Report: report}
	if importErr != nil {
		summary.Error = importErr.Error()
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(target+".report.json", data, 0o644)
}
