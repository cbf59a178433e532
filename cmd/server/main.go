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

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"finance-ledger-go/internal/common"
	"finance-ledger-go/internal/config"
	"finance-ledger-go/internal/httpapi"
	"finance-ledger-go/internal/inbox"

	"go.uber.org/zap"
)

func main() {
	addr := flag.String("addr", "", "Listen address (overrides SERVER_ADDRESS)")
	inboxDir := flag.String("inbox", "", "Statement inbox directory (overrides INBOX_DIR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}
	if *addr != "" {
		cfg.Server.Address = *addr
	}
	if *inboxDir != "" {
		cfg.Inbox.Dir = *inboxDir
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Logging)
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting finance ledger server")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	handler := httpapi.NewHandler(services.Ledger, services.Importer, cfg.Server.MaxUploadBytes)
	router := httpapi.NewRouter(handler, services.DbService, services.Metrics.Handler())

	server := httpapi.NewServer(cfg.Server, router)
	if err := server.Start(); err != nil {
		zap.L().Fatal("Failed to start HTTP server", zap.Error(err))
	}

	var watcher *inbox.Watcher
	if cfg.Inbox.Dir != "" {
		watcher = inbox.NewWatcher(inbox.WatcherConfig{
			Importer:        services.Importer,
			Store:           services.DbService,
			Dir:             cfg.Inbox.Dir,
			PollingInterval: cfg.Inbox.PollingInterval,
			CleanupInterval: cfg.Inbox.CleanupInterval,
			Retention:       cfg.Inbox.Retention,
			SettleTime:      cfg.Inbox.SettleTime,
		})
		if err := watcher.Start(ctx); err != nil {
			zap.L().Fatal("Failed to start inbox watcher", zap.String("dir", cfg.Inbox.Dir), zap.Error(err))
		}
	} else {
		zap.L().Info("Inbox watcher disabled (no INBOX_DIR)")
	}

	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		zap.L().Info("Shutdown signal received, stopping...")
	case err := <-server.Done():
		zap.L().Error("HTTP server exited unexpectedly", zap.Error(err))
	}

	if watcher != nil {
		watcher.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		zap.L().Warn("Forced shutdown after timeout", zap.Error(err))
		return
	}
	zap.L().Info("Server stopped gracefully")
}
