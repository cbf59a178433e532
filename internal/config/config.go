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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"finance-ledger-go/internal/models"
)

func Load() (*models.Config, error) {
	durations := map[string]*time.Duration{}
	var errs []error
	// Durations registered with optional may be zero.
	optional := map[string]bool{"INBOX_SETTLE_TIME": true}
	duration := func(key string, defaultValue time.Duration) time.Duration {
		d, err := getEnvDuration(key, defaultValue)
		if err != nil {
			errs = append(errs, err)
		}
		durations[key] = &d
		return d
	}

	cfg := &models.Config{
		Database: models.DatabaseConfig{
			Path:             getEnvString("DATABASE_PATH", "ledger.db"),
			MaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime:  duration("DB_CONN_MAX_IDLE_TIME", 30*time.Second),
			PingTimeout:      duration("DB_PING_TIMEOUT", 5*time.Second),
			CreateDummyUsers: getEnvBool("CREATE_DUMMY_USERS", false),
		},
		Server: models.ServerConfig{
			Address:         getEnvString("SERVER_ADDRESS", ":8080"),
			ReadTimeout:     duration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    duration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: duration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			MaxConnections:  getEnvInt("SERVER_MAX_CONNECTIONS", 0),
			MaxUploadBytes:  int64(getEnvInt("SERVER_MAX_UPLOAD_BYTES", 10<<20)),
		},
		Ledger: models.LedgerConfig{
			AllowOverdraft: getEnvBool("LEDGER_ALLOW_OVERDRAFT", false),
			MaxRetries:     getEnvInt("LEDGER_MAX_RETRIES", 3),
			CategoryFile:   getEnvString("CATEGORY_FILE", ""),
		},
		Inbox: models.InboxConfig{
			Dir:             getEnvString("INBOX_DIR", ""),
			PollingInterval: duration("INBOX_POLLING_INTERVAL", 30*time.Second),
			CleanupInterval: duration("INBOX_CLEANUP_INTERVAL", 15*time.Minute),
			Retention:       duration("INBOX_RETENTION", 24*time.Hour),
			SettleTime:      duration("INBOX_SETTLE_TIME", 5*time.Second),
		},
		Logging: models.LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Metrics: models.MetricsConfig{
			Namespace: getEnvString("METRICS_NAMESPACE", "finance_ledger"),
		},
	}
	if len(errs) > 0 {
		return nil, errs[0]
	}

	for key, d := range durations {
		if optional[key] {
			if *d < 0 {
				return nil, fmt.Errorf("%s cannot be negative, got %s", key, *d)
			}
			continue
		}
		if *d <= 0 {
			return nil, fmt.Errorf("%s must be positive, got %s", key, *d)
		}
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("SERVER_MAX_UPLOAD_BYTES must be positive")
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
