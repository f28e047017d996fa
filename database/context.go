/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// Context is the application database context: one Bun database shared by
// every scope, closed when the container shuts down.
type Context struct {
	settings DatabaseSettings
	db       *bun.DB
	logger   Logger

	mu           sync.RWMutex
	closed       bool
	healthStatus *HealthStatus
}

// UseDatabase opens the database selected by provider and wraps it in a
// Context.
func UseDatabase(provider ProviderKey, settings DatabaseSettings, logger Logger) (*Context, error) {
	sqlDB, d, err := openDatabase(provider, settings.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	return NewContext(bun.NewDB(sqlDB, d), settings, logger), nil
}

// NewContext wraps an already opened database, applying the pool and query
// hook settings.
func NewContext(db *bun.DB, settings DatabaseSettings, logger Logger) *Context {
	if logger == nil {
		logger = GetLogger()
	}
	dc := &Context{
		settings:     settings,
		db:           db,
		logger:       logger,
		healthStatus: &HealthStatus{},
	}
	dc.configureConnectionPool()
	for _, hook := range queryHooks(settings, logger, os.Stdout) {
		db.AddQueryHook(hook)
	}
	return dc
}

func (dc *Context) configureConnectionPool() {
	sqlDB := dc.db.DB
	if dc.settings.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dc.settings.MaxIdleConns)
	}
	if dc.settings.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dc.settings.MaxOpenConns)
	}
	if dc.settings.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(dc.settings.ConnMaxLifetime)
	}
	if dc.settings.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(dc.settings.ConnMaxIdleTime)
	}
}

func (dc *Context) DB() *bun.DB {
	return dc.db
}

func (dc *Context) SQLDB() *sql.DB {
	return dc.db.DB
}

func (dc *Context) Settings() DatabaseSettings {
	return dc.settings
}

// Dialect returns the Bun dialect name, e.g. "mysql".
func (dc *Context) Dialect() string {
	return dc.db.Dialect().Name().String()
}

// RegisterModels registers models with Bun, which is required for
// many-to-many join models.
func (dc *Context) RegisterModels(models []SQLModel) {
	if len(models) == 0 {
		return
	}
	dc.db.RegisterModel(ModelInstances(models)...)
}

func (dc *Context) connectTimeout() time.Duration {
	if dc.settings.ConnectTimeout > 0 {
		return dc.settings.ConnectTimeout
	}
	return 30 * time.Second
}

// Ping checks that the database is reachable within the connect timeout.
func (dc *Context) Ping(ctx context.Context) error {
	dc.mu.RLock()
	closed := dc.closed
	dc.mu.RUnlock()
	if closed {
		return fmt.Errorf("database context is closed")
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, dc.connectTimeout())
	defer cancel()
	return dc.db.PingContext(ctxTimeout)
}

// ServerVersion asks the server for its version string.
func (dc *Context) ServerVersion(ctx context.Context) (string, error) {
	var query string
	switch dc.db.Dialect().Name() {
	case dialect.MySQL:
		query = "SELECT VERSION()"
	case dialect.MSSQL:
		query = "SELECT CAST(SERVERPROPERTY('ProductVersion') AS NVARCHAR(128))"
	case dialect.SQLite:
		query = "SELECT sqlite_version()"
	default:
		return "", fmt.Errorf("server version is not supported for %s", dc.Dialect())
	}
	var version string
	if err := dc.db.QueryRowContext(ctx, query).Scan(&version); err != nil {
		return "", err
	}
	return version, nil
}

// HealthCheck pings the database and records the result with pool usage.
func (dc *Context) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{
		Provider:  dc.settings.DBProvider,
		CheckedAt: start,
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	if err := dc.Ping(ctxTimeout); err != nil {
		status.LastError = err.Error()
	} else {
		status.Healthy = true
	}
	status.Latency = time.Since(start)
	status.Pool = dc.Stats()

	dc.mu.Lock()
	dc.healthStatus = status
	dc.mu.Unlock()
	return status
}

// LastHealthStatus returns the result of the most recent HealthCheck.
func (dc *Context) LastHealthStatus() HealthStatus {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return *dc.healthStatus
}

func (dc *Context) Stats() PoolStats {
	return newPoolStats(dc.db.DB.Stats())
}

// Shutdown closes the database. It is called by the container on shutdown.
func (dc *Context) Shutdown() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if dc.closed {
		return nil
	}
	dc.closed = true
	err := dc.db.Close()
	if err != nil {
		dc.logger.Error("Failed to close database connection", "error", err)
	} else {
		dc.logger.Info("Database connection closed")
	}
	return err
}
