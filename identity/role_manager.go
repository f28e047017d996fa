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
	"database/sql"
	"errors"
	"strings"

	"github.com/tomoncle/anvil/repository"
)

type RoleManager struct {
	roles repository.Repository[ApplicationRole]
}

func NewRoleManager(roles repository.Repository[ApplicationRole]) *RoleManager {
	return &RoleManager{roles: roles}
}

func (m *RoleManager) Create(ctx context.Context, role *ApplicationRole) error {
	role.Name = strings.TrimSpace(role.Name)
	if role.Name == "" {
		return ValidationError("Role name is required.")
	}
	exists, err := m.Exists(ctx, role.Name)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateRoleName
	}
	if role.ID == "" {
		role.ID = newID()
	}
	role.NormalizedName = Normalize(role.Name)
	return m.roles.Create(ctx, role)
}

func (m *RoleManager) Exists(ctx context.Context, name string) (bool, error) {
	return m.roles.Any(ctx, repository.NewSpecification[ApplicationRole]().Where("normalized_name = ?", Normalize(name)))
}

func (m *RoleManager) FindByName(ctx context.Context, name string) (*ApplicationRole, error) {
	role, err := m.roles.First(ctx, repository.NewSpecification[ApplicationRole]().Where("normalized_name = ?", Normalize(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoleNotFound
	}
	return role, err
}

func (m *RoleManager) FindByID(ctx context.Context, id string) (*ApplicationRole, error) {
	role, err := m.roles.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoleNotFound
	}
	return role, err
}

// Roles lists every role ordered by name.
func (m *RoleManager) Roles(ctx context.Context) ([]*ApplicationRole, error) {
	return m.roles.List(ctx, repository.NewSpecification[ApplicationRole]().OrderBy("name"))
}

func (m *RoleManager) Delete(ctx context.Context, role *ApplicationRole) error {
	return m.roles.RunInTx(ctx, func(ctx context.Context, roles repository.Repository[ApplicationRole]) error {
		if _, err := roles.NewDelete().Model((*ApplicationUserRole)(nil)).Where("role_id = ?", role.ID).Exec(ctx); err != nil {
			return err
		}
		return roles.Delete(ctx, role)
	})
}
