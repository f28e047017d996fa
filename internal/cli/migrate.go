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

package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
	"github.com/tomoncle/anvil"
	"github.com/tomoncle/anvil/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
	RunE:  runMigrateUp,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations and run the seeders",
	RunE:  runMigrateUp,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE:  runMigrateStatus,
}

var migrateRollbackCmd = &cobra.Command{
	Use:   "rollback VERSION",
	Short: "Roll back one applied migration",
	Args:  cobra.ExactArgs(1),
	RunE:  runMigrateRollback,
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
	migrateCmd.AddCommand(migrateRollbackCmd)
}

func withMigrations(fn func(mm *database.MigrationManager) error) error {
	c, err := build()
	if err != nil {
		return err
	}
	defer c.Shutdown()

	scope := c.CreateScope("migrate")
	defer scope.Close()
	initializer, err := do.Invoke[*database.ApplicationDbInitializer](scope.Injector())
	if err != nil {
		return err
	}
	return fn(initializer.Migrations())
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	c, err := build()
	if err != nil {
		return err
	}
	defer c.Shutdown()
	if err := anvil.InitializeDatabases(cmd.Context(), c); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Database is up to date"))
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	return withMigrations(func(mm *database.MigrationManager) error {
		applied, err := mm.GetAppliedMigrations(cmd.Context())
		if err != nil {
			if is, kind := database.IsSqlError(err); !is || kind != database.NoTableErr {
				return err
			}
		}
		done := make(map[string]bool, len(applied))
		for _, m := range applied {
			done[m.Version] = true
		}
		out := cmd.OutOrStdout()
		for _, m := range mm.Migrations() {
			state := color.YellowString("pending")
			if done[m.Version] {
				state = color.GreenString("applied")
			}
			fmt.Fprintf(out, "%s  %-40s %s\n", m.Version, m.Name, state)
		}
		return nil
	})
}

func runMigrateRollback(cmd *cobra.Command, args []string) error {
	return withMigrations(func(mm *database.MigrationManager) error {
		if err := mm.RollbackMigration(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Rolled back %s", args[0]))
		return nil
	})
}
