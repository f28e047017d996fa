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
	"errors"
	"fmt"

	"github.com/tomoncle/anvil/repository"
	"github.com/uptrace/bun"
)

// Seeder creates the default roles and, when configured, the default
// administrator. Existing rows are left alone.
type Seeder struct {
	opts   Options
	hasher PasswordHasher
	tokens *DataProtectorTokenProvider
	admin  DefaultAdmin
}

func NewSeeder(opts Options, hasher PasswordHasher, tokens *DataProtectorTokenProvider, admin DefaultAdmin) *Seeder {
	return &Seeder{opts: opts, hasher: hasher, tokens: tokens, admin: admin}
}

func (s *Seeder) Name() string { return "identity" }

func (s *Seeder) Initialize(ctx context.Context, db bun.IDB) error {
	roleRepo := repository.NewRepository[ApplicationRole](db)
	roles := NewRoleManager(roleRepo)
	for _, name := range DefaultRoles {
		exists, err := roles.Exists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := roles.Create(ctx, &ApplicationRole{Name: name, Description: fmt.Sprintf("%s Role", name)}); err != nil {
			return err
		}
		logger.WithField("role", name).Info("Seeded role")
	}

	if s.admin.UserName == "" {
		return nil
	}
	users := NewUserManager(
		repository.NewRepository[ApplicationUser](db),
		roleRepo,
		repository.NewRepository[ApplicationUserRole](db),
		s.opts, s.hasher, s.tokens,
	)
	_, err := users.FindByName(ctx, s.admin.UserName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return err
	}
	admin := &ApplicationUser{
		UserName:       s.admin.UserName,
		Email:          s.admin.Email,
		EmailConfirmed: true,
		IsActive:       true,
		FirstName:      RoleAdmin,
	}
	if err := users.Create(ctx, admin, s.admin.Password); err != nil {
		return fmt.Errorf("failed to seed default admin: %w", err)
	}
	if err := users.AddToRole(ctx, admin, RoleAdmin); err != nil {
		return err
	}
	logger.WithField("user", admin.UserName).Info("Seeded default admin")
	return nil
}
