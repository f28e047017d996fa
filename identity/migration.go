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

package identity

import (
	"context"

	"github.com/tomoncle/anvil/database"
	"github.com/uptrace/bun"
)

// Migrations returns the identity schema migrations.
func Migrations() []database.MigrationItem {
	return []database.MigrationItem{
		database.CreateTablesMigration("20250601000000", "create_identity_tables",
			(*ApplicationUser)(nil),
			(*ApplicationRole)(nil),
		),
		{
			Version:     "20250601000001",
			Name:        "create_user_roles",
			Description: "Create user_roles with cascading foreign keys",
			Up: func(ctx context.Context, db bun.IDB) error {
				_, err := db.NewCreateTable().
					Model((*ApplicationUserRole)(nil)).
					IfNotExists().
					ForeignKey("(?) REFERENCES ? (?) ON DELETE CASCADE", bun.Ident("user_id"), bun.Ident("users"), bun.Ident("id")).
					ForeignKey("(?) REFERENCES ? (?) ON DELETE CASCADE", bun.Ident("role_id"), bun.Ident("roles"), bun.Ident("id")).
					Exec(ctx)
				if is, kind := database.IsSqlError(err); is && kind == database.ExistTableErr {
					return nil
				}
				return err
			},
			Down: func(ctx context.Context, db bun.IDB) error {
				_, err := db.NewDropTable().Model((*ApplicationUserRole)(nil)).IfExists().Exec(ctx)
				return err
			},
		},
		{
			Version:     "20250601000002",
			Name:        "index_users_normalized_email",
			Description: "Index users by normalized email",
			Up: func(ctx context.Context, db bun.IDB) error {
				_, err := db.NewCreateIndex().
					Model((*ApplicationUser)(nil)).
					Index("ix_users_normalized_email").
					Column("normalized_email").
					Exec(ctx)
				if is, kind := database.IsSqlError(err); is && kind == database.ExistIndexErr {
					return nil
				}
				return err
			},
		},
	}
}
