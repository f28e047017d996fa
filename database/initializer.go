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
	"fmt"

	"github.com/uptrace/bun"
)

// DatabaseInitializer prepares every database the application uses. It is
// resolved from a startup scope and run to completion before serving.
type DatabaseInitializer interface {
	InitializeDatabases(ctx context.Context) error
}

// CustomSeeder seeds one slice of data. Seeders must be idempotent: they run
// on every startup.
type CustomSeeder interface {
	Name() string
	Initialize(ctx context.Context, db bun.IDB) error
}

type defaultDatabaseInitializer struct {
	initializer *ApplicationDbInitializer
}

// NewDatabaseInitializer returns the initializer for the application
// database.
func NewDatabaseInitializer(initializer *ApplicationDbInitializer) DatabaseInitializer {
	return &defaultDatabaseInitializer{initializer: initializer}
}

func (d *defaultDatabaseInitializer) InitializeDatabases(ctx context.Context) error {
	return d.initializer.Initialize(ctx)
}

// ApplicationDbInitializer applies pending migrations and then runs the
// seeder.
type ApplicationDbInitializer struct {
	db         *Context
	migrations *MigrationManager
	seeder     *ApplicationDbSeeder
	logger     Logger
}

func NewApplicationDbInitializer(db *Context, migrations []MigrationItem, seeder *ApplicationDbSeeder, logger Logger) *ApplicationDbInitializer {
	if logger == nil {
		logger = GetLogger()
	}
	return &ApplicationDbInitializer{
		db:         db,
		migrations: NewMigrationManager(db.DB(), logger, migrations...),
		seeder:     seeder,
		logger:     logger,
	}
}

func (i *ApplicationDbInitializer) Migrations() *MigrationManager {
	return i.migrations
}

// Migrate applies the pending migrations only.
func (i *ApplicationDbInitializer) Migrate(ctx context.Context) error {
	if err := i.db.Ping(ctx); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}
	if version, err := i.db.ServerVersion(ctx); err == nil {
		i.logger.Info("Connected to database", "dialect", i.db.Dialect(), "version", version)
	}
	pending, err := i.migrations.PendingMigrations(ctx)
	if err != nil {
		// the tracking table does not exist yet on a fresh database
		if is, kind := IsSqlError(err); !is || kind != NoTableErr {
			return fmt.Errorf("failed to list applied migrations: %w", err)
		}
		pending = i.migrations.Migrations()
	}
	if len(pending) > 0 {
		i.logger.Info("Applying migrations", "pending", len(pending))
	}
	return i.migrations.RunMigrations(ctx)
}

func (i *ApplicationDbInitializer) Initialize(ctx context.Context) error {
	if err := i.Migrate(ctx); err != nil {
		return err
	}
	return i.seeder.Seed(ctx, i.db.DB())
}

// ApplicationDbSeeder runs every registered CustomSeeder in declaration
// order.
type ApplicationDbSeeder struct {
	seeders []CustomSeeder
	logger  Logger
}

func NewApplicationDbSeeder(seeders []CustomSeeder, logger Logger) *ApplicationDbSeeder {
	if logger == nil {
		logger = GetLogger()
	}
	return &ApplicationDbSeeder{seeders: seeders, logger: logger}
}

func (s *ApplicationDbSeeder) Seed(ctx context.Context, db bun.IDB) error {
	for _, seeder := range s.seeders {
		s.logger.Info("Seeding data", "seeder", seeder.Name())
		if err := seeder.Initialize(ctx, db); err != nil {
			return fmt.Errorf("seeder %s failed: %w", seeder.Name(), err)
		}
	}
	return nil
}
