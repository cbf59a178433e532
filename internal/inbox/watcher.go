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

package inbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"finance-ledger-go/internal/importer"
	"finance-ledger-go/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	processedDir = "processed"
	failedDir    = "failed"

	maxConcurrentImports = 4
)

// WatcherConfig contains configuration for Watcher
type WatcherConfig struct {
	Importer        *importer.Importer
	Store           store.LedgerStore
	Dir             string
	PollingInterval time.Duration
	CleanupInterval time.Duration
	Retention       time.Duration
	SettleTime      time.Duration
}

// Watcher polls a directory for statement files and imports each one into
// the account named by the file.
type Watcher struct {
	importer *importer.Importer
	store    store.LedgerStore
	dir      string

	// Files already handled, by name
	processed       map[string]time.Time
	mutex           sync.RWMutex
	pollingInterval time.Duration
	cleanupInterval time.Duration
	retention       time.Duration
	settleTime      time.Duration

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

func NewWatcher(cfg WatcherConfig) *Watcher {
	return &Watcher{
		importer:        cfg.Importer,
		store:           cfg.Store,
		dir:             cfg.Dir,
		processed:       make(map[string]time.Time),
		pollingInterval: cfg.PollingInterval,
		cleanupInterval: cfg.CleanupInterval,
		retention:       cfg.Retention,
		settleTime:      cfg.SettleTime,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

// Start prepares the inbox layout and begins polling.
func (w *Watcher) Start(ctx context.Context) error {
	zap.L().Info("Starting statement inbox watcher", zap.String("dir", w.dir))

	if err := w.prepare(); err != nil {
		return err
	}

	go w.pollLoop(ctx)
	go w.cleanupLoop(ctx)

	zap.L().Info("Statement inbox watcher started",
		zap.Duration("polling_interval", w.pollingInterval),
		zap.Duration("retention", w.retention),
		zap.Duration("settle_time", w.settleTime))
	return nil
}

func (w *Watcher) prepare() error {
	for _, sub := range []string{processedDir, failedDir} {
		if err := os.MkdirAll(filepath.Join(w.dir, sub), 0o755); err != nil {
			return fmt.Errorf("failed to prepare inbox: %w", err)
		}
	}
	return nil
}

// Stop waits for the current scan to finish.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		zap.L().Info("Stopping statement inbox watcher")
		close(w.stopChan)
		<-w.doneChan
		zap.L().Info("Statement inbox watcher stopped")
	})
}

func (w *Watcher) pollLoop(ctx context.Context) {
	defer close(w.doneChan)

	ticker := time.NewTicker(w.pollingInterval)
	defer ticker.Stop()

	w.Scan(ctx)

	for {
		select {
		case <-ticker.C:
			w.Scan(ctx)
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Scan imports every pending statement file once and returns how many were
// imported successfully. A file modified within the settle time is left for a
// later scan; writers that cannot guarantee that should write under a
// non-.csv name and rename into place.
func (w *Watcher) Scan(ctx context.Context) int {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		zap.L().Error("Failed to read inbox", zap.String("dir", w.dir), zap.Error(err))
		return 0
	}

	now := time.Now()
	var pending []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".csv") || w.isProcessed(name) {
			continue
		}
		if !w.settled(entry, now) {
			zap.L().Debug("Statement file still settling", zap.String("file", name))
			continue
		}
		pending = append(pending, name)
	}
	if len(pending) == 0 {
		return 0
	}

	zap.L().Info("Found statement files", zap.Int("count", len(pending)))

	var (
		g        errgroup.Group
		mu       sync.Mutex
		imported int
	)
	g.SetLimit(maxConcurrentImports)
	for _, name := range pending {
		g.Go(func() error {
			if w.processFile(ctx, name) {
				mu.Lock()
				imported++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return imported
}

func (w *Watcher) settled(entry os.DirEntry, now time.Time) bool {
	if w.settleTime <= 0 {
		return true
	}
	info, err := entry.Info()
	if err != nil {
		return false
	}
	return now.Sub(info.ModTime()) >= w.settleTime
}

// AccountIdFromName extracts the account id from "<id>.csv" or "<id>__<label>.csv".
func AccountIdFromName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if i := strings.Index(base, "__"); i >= 0 {
		base = base[:i]
	}
	return strings.TrimSpace(base)
}

func (w *Watcher) isProcessed(name string) bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	_, exists := w.processed[name]
	return exists
}

func (w *Watcher) markProcessed(name string) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.processed[name] = time.Now()
}

func (w *Watcher) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.cleanupProcessed()
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// cleanupProcessed forgets file names older than the retention window.
func (w *Watcher) cleanupProcessed() {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	cutoff := time.Now().Add(-w.retention)
	cleaned := 0

	for name, processedAt := range w.processed {
		if processedAt.Before(cutoff) {
			delete(w.processed, name)
			cleaned++
		}
	}

	if cleaned > 0 {
		zap.L().Debug("Cleaned up processed statement names",
			zap.Int("cleaned", cleaned),
			zap.Int("remaining", len(w.processed)))
	}
}
