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

	"github.com/samber/do/v2"
	"github.com/spf13/viper"
	"github.com/tomoncle/anvil/config"
	"github.com/tomoncle/anvil/container"
	"github.com/tomoncle/anvil/health"
	"github.com/uptrace/bun"
)

// Opener creates the database context once settings are validated.
type Opener func(settings DatabaseSettings, provider ProviderKey, logger Logger) (*Context, error)

// AddPersistence reads the DatabaseSettings section, validates it and
// registers the database context with its collaborators. Invalid settings
// return a ConfigError and leave the container untouched.
func AddPersistence(c *container.Container, v *viper.Viper) error {
	return AddPersistenceWith(c, v, func(settings DatabaseSettings, provider ProviderKey, logger Logger) (*Context, error) {
		return UseDatabase(provider, settings, logger)
	})
}

// AddPersistenceWith is AddPersistence with a custom context opener.
func AddPersistenceWith(c *container.Container, v *viper.Viper, open Opener) error {
	settings := DefaultDatabaseSettings()
	if err := config.Bind(v, SectionName, &settings); err != nil {
		return &ConfigError{Message: "DatabaseSettings could not be read:", Err: err}
	}
	provider, err := settings.Validate()
	if err != nil {
		return err
	}

	logger := GetLogger()
	logger.Info(fmt.Sprintf("Current DB Provider : %s", settings.DBProvider))

	register(c, settings, provider, logger, open)
	return nil
}

func register(c *container.Container, settings DatabaseSettings, provider ProviderKey, logger Logger, open Opener) {
	container.ProvideValue(c, settings)
	container.ProvideValue(c, provider)

	container.Provide(c, container.Singleton, func(i do.Injector) (*Context, error) {
		dc, err := open(settings, provider, logger)
		if err != nil {
			return nil, err
		}
		models, err := container.InvokeGroup[SQLModel](i)
		if err != nil {
			return nil, err
		}
		dc.RegisterModels(models)
		return dc, nil
	})

	// unit of work shared by the repositories of one scope
	container.Provide(c, container.Scoped, func(i do.Injector) (bun.IDB, error) {
		dc, err := do.Invoke[*Context](i)
		if err != nil {
			return nil, err
		}
		return dc.DB(), nil
	})

	container.Provide(c, container.Transient, func(i do.Injector) (DatabaseInitializer, error) {
		initializer, err := do.Invoke[*ApplicationDbInitializer](i)
		if err != nil {
			return nil, err
		}
		return NewDatabaseInitializer(initializer), nil
	})
	container.Provide(c, container.Transient, func(i do.Injector) (*ApplicationDbInitializer, error) {
		dc, err := do.Invoke[*Context](i)
		if err != nil {
			return nil, err
		}
		migrations, err := container.InvokeGroup[MigrationItem](i)
		if err != nil {
			return nil, err
		}
		seeder, err := do.Invoke[*ApplicationDbSeeder](i)
		if err != nil {
			return nil, err
		}
		return NewApplicationDbInitializer(dc, migrations, seeder, logger), nil
	})
	container.Provide(c, container.Transient, func(i do.Injector) (*ApplicationDbSeeder, error) {
		seeders, err := container.InvokeGroup[CustomSeeder](i)
		if err != nil {
			return nil, err
		}
		return NewApplicationDbSeeder(seeders, logger), nil
	})

	container.ProvideGroup(c, container.Singleton, func(i do.Injector) (health.Check, error) {
		dc, err := do.Invoke[*Context](i)
		if err != nil {
			return nil, err
		}
		return NewHealthCheck(dc), nil
	})
}

// NewHealthCheck reports the database unhealthy when it cannot be pinged.
func NewHealthCheck(dc *Context) health.Check {
	return health.NewCheck("database", func(ctx context.Context) health.Result {
		status := dc.HealthCheck(ctx)
		data := status.Data()
		if !status.Healthy {
			r := health.UnhealthyResult("database is unreachable", fmt.Errorf("%s", status.LastError))
			r.Data = data
			return r
		}
		r := health.HealthyResult(dc.Dialect())
		r.Data = data
		return r
	})
}

// AddMigration contributes a migration to the application database.
func AddMigration(c *container.Container, migration MigrationItem) {
	container.ProvideGroup(c, container.Singleton, func(do.Injector) (MigrationItem, error) {
		return migration, nil
	})
}

// AddSeeder contributes a seeder run after the migrations.
func AddSeeder(c *container.Container, lifetime container.Lifetime, provider do.Provider[CustomSeeder]) {
	container.ProvideGroup(c, lifetime, provider)
}
