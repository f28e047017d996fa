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
	"os"
	"sort"
	"time"

	"github.com/uptrace/bun"
)

// Migration is an applied migration record.
type Migration struct {
	bun.BaseModel `bun:"table:schema_migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at"`
	Description string    `bun:"description"`
}

// MigrationFunc is a migration step executed within a transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

// MigrationItem describes a single migration version with up/down functions.
// Packages contribute migrations to the persistence layer as container group
// members.
type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
	Down        MigrationFunc
}

// MigrationManager applies versioned migrations, each in its own transaction,
// and records them in schema_migrations.
type MigrationManager struct {
	db         *bun.DB
	logger     Logger
	migrations []MigrationItem
}

func NewMigrationManager(db *bun.DB, logger Logger, migrations ...MigrationItem) *MigrationManager {
	if logger == nil {
		logger = GetLogger()
	}
	sorted := append([]MigrationItem(nil), migrations...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})
	return &MigrationManager{db: db, logger: logger, migrations: sorted}
}

// Migrations returns the known migrations in version order.
func (mm *MigrationManager) Migrations() []MigrationItem {
	return append([]MigrationItem(nil), mm.migrations...)
}

func (mm *MigrationManager) validate() error {
	seen := make(map[string]string, len(mm.migrations))
	for _, m := range mm.migrations {
		if m.Version == "" {
			return fmt.Errorf("migration %q has no version", m.Name)
		}
		if m.Up == nil {
			return fmt.Errorf("migration %s has no up step", m.Version)
		}
		if other, ok := seen[m.Version]; ok {
			return fmt.Errorf("migration version %s is used by both %s and %s", m.Version, other, m.Name)
		}
		seen[m.Version] = m.Name
	}
	return nil
}

// RunMigrations creates the tracking table if needed and applies the pending
// migrations in ascending version order.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := mm.validate(); err != nil {
		return err
	}

	if _, ok := os.LookupEnv("BUNDEBUG_MIGRATION"); !ok {
		EnableSilentMode(true)
		defer EnableSilentMode(false)
	}

	if err := mm.createMigrationTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	pending, err := mm.PendingMigrations(ctx)
	if err != nil {
		return err
	}
	for _, migration := range pending {
		if err := mm.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
	}

	mm.logger.Info("Database migrations completed!", "applied", len(pending))
	return nil
}

func (mm *MigrationManager) createMigrationTable(ctx context.Context) error {
	_, err := mm.db.NewCreateTable().
		Model((*Migration)(nil)).
		IfNotExists().
		Exec(ctx)
	if is, kind := IsSqlError(err); is && kind == ExistTableErr {
		return nil
	}
	return err
}

// PendingMigrations returns the migrations not recorded as applied.
func (mm *MigrationManager) PendingMigrations(ctx context.Context) ([]MigrationItem, error) {
	applied, err := mm.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[string]struct{}, len(applied))
	for _, m := range applied {
		done[m.Version] = struct{}{}
	}
	var pending []MigrationItem
	for _, m := range mm.migrations {
		if _, ok := done[m.Version]; !ok {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

func (mm *MigrationManager) runMigration(ctx context.Context, migration MigrationItem) error {
	err := mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := migration.Up(ctx, tx); err != nil {
			return err
		}
		_, err := tx.NewInsert().
			Model(&Migration{
				Version:     migration.Version,
				Name:        migration.Name,
				AppliedAt:   time.Now(),
				Description: migration.Description,
			}).
			Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}
	mm.logger.Info("Migration executed successfully", "version", migration.Version, "name", migration.Name)
	return nil
}

// GetAppliedMigrations returns migration records ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	var migrations []Migration
	err := mm.db.NewSelect().
		Model(&migrations).
		Order("version ASC").
		Scan(ctx)
	return migrations, err
}

// RollbackMigration runs the down step of an applied migration and removes
// its record.
func (mm *MigrationManager) RollbackMigration(ctx context.Context, version string) error {
	var target *MigrationItem
	for i := range mm.migrations {
		if mm.migrations[i].Version == version {
			target = &mm.migrations[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration %s is not registered", version)
	}
	if target.Down == nil {
		return fmt.Errorf("migration %s cannot be rolled back", version)
	}

	return mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*Migration)(nil)).Where("version = ?", version).Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("migration %s is not applied", version)
		}
		if err := target.Down(ctx, tx); err != nil {
			return err
		}
		mm.logger.Info("Migration rolled back", "version", version, "name", target.Name)
		return nil
	})
}

// CreateTablesMigration returns a migration creating one table per model in
// the given order and dropping them in reverse on rollback.
func CreateTablesMigration(version, name string, models ...interface{}) MigrationItem {
	return MigrationItem{
		Version:     version,
		Name:        name,
		Description: fmt.Sprintf("Create %d tables", len(models)),
		Up: func(ctx context.Context, db bun.IDB) error {
			for _, model := range models {
				_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
				if is, kind := IsSqlError(err); is && kind == ExistTableErr {
					continue
				}
				if err != nil {
					return fmt.Errorf("failed to create table %T: %w", model, err)
				}
			}
			return nil
		},
		Down: func(ctx context.Context, db bun.IDB) error {
			for i := len(models) - 1; i >= 0; i-- {
				if _, err := db.NewDropTable().Model(models[i]).IfExists().Exec(ctx); err != nil {
					return fmt.Errorf("failed to drop table %T: %w", models[i], err)
				}
			}
			return nil
		},
	}
}
