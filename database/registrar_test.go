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
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/go-sql-driver/mysql"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/samber/do/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/anvil/container"
	"github.com/tomoncle/anvil/health"
	"github.com/tomoncle/anvil/repository"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) record(level, msg string, fields ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+msg+fmt.Sprint(fields...))
}

func (l *recordingLogger) Debug(msg string, f ...interface{}) { l.record("DEBUG", msg, f...) }
func (l *recordingLogger) Info(msg string, f ...interface{})  { l.record("INFO", msg, f...) }
func (l *recordingLogger) Warn(msg string, f ...interface{})  { l.record("WARN", msg, f...) }
func (l *recordingLogger) Error(msg string, f ...interface{}) { l.record("ERROR", msg, f...) }

func (l *recordingLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

func useRecordingLogger(t *testing.T) *recordingLogger {
	t.Helper()
	rec := &recordingLogger{}
	prev := SetLogger(rec)
	t.Cleanup(func() { SetLogger(prev) })
	return rec
}

func newSQLiteContext(t *testing.T) *Context {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	settings := DefaultDatabaseSettings()
	settings.MaxOpenConns = 1
	settings.DBProvider = "sqlite"
	dc := NewContext(bun.NewDB(sqldb, sqlitedialect.New()), settings, GetLogger())
	t.Cleanup(func() { _ = dc.Shutdown() })
	return dc
}

func settingsViper(values map[string]string) *viper.Viper {
	v := viper.New()
	for k, val := range values {
		v.Set(SectionName+"."+k, val)
	}
	return v
}

func TestAddPersistenceMissingSettingsRegistersNothing(t *testing.T) {
	useRecordingLogger(t)
	cases := []map[string]string{
		{},
		{"DBProvider": "mysql"},
		{"ConnectionString": "Server=db;Database=app"},
		{"ConnectionString": "Server=db;Database=app", "DBProvider": "db2"},
	}
	for _, values := range cases {
		c := container.New()
		err := AddPersistence(c, settingsViper(values))
		require.Error(t, err, values)
		assert.ErrorIs(t, err, ErrConfiguration)
		var cfgErr *ConfigError
		assert.True(t, errors.As(err, &cfgErr))
		assert.Empty(t, c.Registrations(), values)
	}
}

func TestAddPersistenceUnsupportedProviderMessage(t *testing.T) {
	useRecordingLogger(t)
	err := AddPersistence(container.New(), settingsViper(map[string]string{
		"ConnectionString": "Server=db",
		"DBProvider":       "Oracle",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Oracle")
}

func TestAddPersistenceRegistersServices(t *testing.T) {
	for _, name := range []string{"MySql", "mysql", "MYSQL", "mssql", "MSSQL"} {
		rec := useRecordingLogger(t)
		c := container.New()
		var selected ProviderKey
		err := AddPersistenceWith(c, settingsViper(map[string]string{
			"ConnectionString": "Server=db;Database=app;Uid=sa;Pwd=x",
			"DBProvider":       name,
		}), func(s DatabaseSettings, p ProviderKey, l Logger) (*Context, error) {
			selected = p
			return newSQLiteContext(t), nil
		})
		require.NoError(t, err, name)
		assert.Equal(t, []string{"INFO Current DB Provider : " + name}, rec.Lines())

		assert.True(t, c.Has(do.NameOf[*Context]()))
		assert.True(t, c.Has(do.NameOf[bun.IDB]()))
		assert.True(t, c.Has(do.NameOf[DatabaseInitializer]()))
		assert.True(t, c.Has(do.NameOf[*ApplicationDbInitializer]()))
		assert.True(t, c.Has(do.NameOf[*ApplicationDbSeeder]()))
		for _, r := range c.Registrations() {
			switch r.Name {
			case do.NameOf[bun.IDB]():
				assert.Equal(t, container.Scoped, r.Lifetime)
			case do.NameOf[DatabaseInitializer](), do.NameOf[*ApplicationDbSeeder]():
				assert.Equal(t, container.Transient, r.Lifetime)
			}
		}

		settings := do.MustInvoke[DatabaseSettings](c.Injector())
		assert.Equal(t, name, settings.DBProvider)
		assert.Equal(t, 100, settings.MaxOpenConns)

		_ = do.MustInvoke[*Context](c.Injector())
		expected, _ := ParseProviderKey(name)
		assert.Equal(t, expected, selected)
		c.Shutdown()
	}
}

type note struct {
	bun.BaseModel `bun:"table:notes"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Text string `bun:"text,notnull"`
}

type noteSeeder struct{ runs *int }

func (s noteSeeder) Name() string { return "notes" }

func (s noteSeeder) Initialize(ctx context.Context, db bun.IDB) error {
	*s.runs++
	exists, err := db.NewSelect().Model((*note)(nil)).Where("text = ?", "welcome").Exists(ctx)
	if err != nil || exists {
		return err
	}
	_, err = db.NewInsert().Model(&note{Text: "welcome"}).Exec(ctx)
	return err
}

func TestInitializeDatabasesInScope(t *testing.T) {
	useRecordingLogger(t)
	c := container.New()
	dc := newSQLiteContext(t)
	require.NoError(t, AddPersistenceWith(c, settingsViper(map[string]string{
		"ConnectionString": "sqlserver://sa:x@localhost?database=app",
		"DBProvider":       "mssql",
	}), func(DatabaseSettings, ProviderKey, Logger) (*Context, error) { return dc, nil }))

	RegisterModel[note](c, 10)
	AddMigration(c, CreateTablesMigration("001", "create_notes", (*note)(nil)))
	runs := 0
	AddSeeder(c, container.Singleton, func(do.Injector) (CustomSeeder, error) { return noteSeeder{runs: &runs}, nil })

	for i := 0; i < 2; i++ {
		scope := c.CreateScope("startup")
		initializer, err := do.Invoke[DatabaseInitializer](scope.Injector())
		require.NoError(t, err)
		require.NoError(t, initializer.InitializeDatabases(context.Background()))
		scope.Close()
	}
	assert.Equal(t, 2, runs)

	scope := c.CreateScope("request")
	defer scope.Close()
	notes := do.MustInvoke[repository.Repository[note]](scope.Injector())
	n, err := notes.Count(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	checks, err := container.InvokeGroup[health.Check](c.Injector())
	require.NoError(t, err)
	require.Len(t, checks, 1)
	report := health.NewRegistry(0, checks...).Run(context.Background())
	assert.Equal(t, health.Healthy, report.Status)
	assert.Equal(t, "sqlite", report.Entries["database"].Description)
}

func TestMigrationManager(t *testing.T) {
	useRecordingLogger(t)
	dc := newSQLiteContext(t)
	ctx := context.Background()
	mm := NewMigrationManager(dc.DB(), nil,
		CreateTablesMigration("002", "create_notes", (*note)(nil)),
		MigrationItem{Version: "001", Name: "noop", Up: func(context.Context, bun.IDB) error { return nil }},
	)
	assert.Equal(t, "001", mm.Migrations()[0].Version)

	require.NoError(t, mm.RunMigrations(ctx))
	require.NoError(t, mm.RunMigrations(ctx))
	applied, err := mm.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, "create_notes", applied[1].Name)

	require.NoError(t, mm.RollbackMigration(ctx, "002"))
	_, err = dc.DB().NewSelect().Model((*note)(nil)).Count(ctx)
	is, kind := IsSqlError(err)
	assert.True(t, is)
	assert.Equal(t, NoTableErr, kind)
	assert.Error(t, mm.RollbackMigration(ctx, "001"))
	assert.Error(t, mm.RollbackMigration(ctx, "999"))

	pending, err := mm.PendingMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "002", pending[0].Version)
}

func TestMigrationFailureRollsBack(t *testing.T) {
	useRecordingLogger(t)
	dc := newSQLiteContext(t)
	ctx := context.Background()
	boom := errors.New("boom")
	mm := NewMigrationManager(dc.DB(), nil, MigrationItem{
		Version: "001",
		Name:    "broken",
		Up: func(ctx context.Context, db bun.IDB) error {
			if _, err := db.NewCreateTable().Model((*note)(nil)).Exec(ctx); err != nil {
				return err
			}
			return boom
		},
	})
	assert.ErrorIs(t, mm.RunMigrations(ctx), boom)
	applied, err := mm.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	dup := NewMigrationManager(dc.DB(), nil,
		MigrationItem{Version: "001", Name: "a", Up: func(context.Context, bun.IDB) error { return nil }},
		MigrationItem{Version: "001", Name: "b", Up: func(context.Context, bun.IDB) error { return nil }},
	)
	assert.ErrorContains(t, dup.RunMigrations(ctx), "used by both")
}

func TestIsSqlError(t *testing.T) {
	is, kind := IsSqlError(fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.True(t, is)
	assert.Equal(t, DuplicateKeyErr, kind)

	is, kind = IsSqlError(mssql.Error{Number: 2714, Message: "There is already an object named 'notes' in the database."})
	assert.True(t, is)
	assert.Equal(t, ExistTableErr, kind)

	_, kind = IsSqlError(mssql.Error{Number: 547, Message: "The INSERT statement conflicted with the CHECK constraint"})
	assert.Equal(t, CheckConstraintViolationErr, kind)

	_, kind = IsSqlError(errors.New("UNIQUE constraint failed: notes.text"))
	assert.Equal(t, DuplicateKeyErr, kind)

	is, _ = IsSqlError(nil)
	assert.False(t, is)
}
