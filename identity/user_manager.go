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
	"fmt"
	"strings"
	"time"

	"github.com/tomoncle/anvil/repository"
	"github.com/tomoncle/anvil/types"
)

// UserManager creates, finds and authenticates users. It lives for one scope.
type UserManager struct {
	users     repository.Repository[ApplicationUser]
	roles     repository.Repository[ApplicationRole]
	userRoles repository.Repository[ApplicationUserRole]
	opts      Options
	validator *PasswordValidator
	hasher    PasswordHasher
	tokens    *DataProtectorTokenProvider
	now       func() time.Time
}

func NewUserManager(
	users repository.Repository[ApplicationUser],
	roles repository.Repository[ApplicationRole],
	userRoles repository.Repository[ApplicationUserRole],
	opts Options,
	hasher PasswordHasher,
	tokens *DataProtectorTokenProvider,
) *UserManager {
	return &UserManager{
		users:     users,
		roles:     roles,
		userRoles: userRoles,
		opts:      opts,
		validator: NewPasswordValidator(opts.Password),
		hasher:    hasher,
		tokens:    tokens,
		now:       time.Now,
	}
}

func (m *UserManager) Options() Options {
	return m.opts
}

func (m *UserManager) validateUser(ctx context.Context, user *ApplicationUser) error {
	var messages []string
	name := strings.TrimSpace(user.UserName)
	if name == "" {
		messages = append(messages, "User name is required.")
	} else if allowed := m.opts.User.AllowedUserNameCharacters; allowed != "" {
		for _, r := range name {
			if !strings.ContainsRune(allowed, r) {
				messages = append(messages, fmt.Sprintf("User name '%s' is invalid, can only contain letters or digits.", name))
				break
			}
		}
	}
	if m.opts.User.RequireUniqueEmail && strings.TrimSpace(user.Email) == "" {
		messages = append(messages, "Email is required.")
	}
	if len(messages) > 0 {
		return ValidationError(messages...)
	}

	taken, err := m.users.Any(ctx, repository.NewSpecification[ApplicationUser]().
		Where("normalized_user_name = ?", Normalize(name)).
		Where("id <> ?", user.ID))
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateUserName
	}
	if m.opts.User.RequireUniqueEmail {
		taken, err := m.users.Any(ctx, repository.NewSpecification[ApplicationUser]().
			Where("normalized_email = ?", Normalize(user.Email)).
			Where("id <> ?", user.ID))
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateEmail
		}
	}
	return nil
}

// Create validates and stores a new user with the given password.
func (m *UserManager) Create(ctx context.Context, user *ApplicationUser, password string) error {
	if user.ID == "" {
		user.ID = newID()
	}
	if err := m.validateUser(ctx, user); err != nil {
		return err
	}
	if err := m.validator.Validate(password); err != nil {
		return err
	}
	hash, err := m.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.UserName = strings.TrimSpace(user.UserName)
	user.NormalizedUserName = Normalize(user.UserName)
	user.NormalizedEmail = Normalize(user.Email)
	user.PasswordHash = hash
	user.SecurityStamp = newID()
	user.LockoutEnabled = m.opts.Lockout.AllowedForNewUsers
	if user.CreatedAt.IsZero() {
		user.CreatedAt = m.now().UTC()
	}
	return m.users.Create(ctx, user)
}

// Update stores profile changes after validating the user name and email.
func (m *UserManager) Update(ctx context.Context, user *ApplicationUser) error {
	if err := m.validateUser(ctx, user); err != nil {
		return err
	}
	user.NormalizedUserName = Normalize(user.UserName)
	user.NormalizedEmail = Normalize(user.Email)
	return m.users.Update(ctx, user)
}

func (m *UserManager) Delete(ctx context.Context, user *ApplicationUser) error {
	return m.users.RunInTx(ctx, func(ctx context.Context, users repository.Repository[ApplicationUser]) error {
		if _, err := users.NewDelete().Model((*ApplicationUserRole)(nil)).Where("user_id = ?", user.ID).Exec(ctx); err != nil {
			return err
		}
		return users.Delete(ctx, user)
	})
}

func (m *UserManager) first(ctx context.Context, spec *repository.Specification[ApplicationUser]) (*ApplicationUser, error) {
	user, err := m.users.First(ctx, spec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (m *UserManager) FindByID(ctx context.Context, id string) (*ApplicationUser, error) {
	return m.first(ctx, repository.NewSpecification[ApplicationUser]().Where("?TableAlias.id = ?", id))
}

func (m *UserManager) FindByName(ctx context.Context, userName string) (*ApplicationUser, error) {
	return m.first(ctx, repository.NewSpecification[ApplicationUser]().Where("normalized_user_name = ?", Normalize(userName)))
}

// FindByEmail returns the oldest user with the email; emails need not be
// unique.
func (m *UserManager) FindByEmail(ctx context.Context, email string) (*ApplicationUser, error) {
	return m.first(ctx, repository.NewSpecification[ApplicationUser]().
		Where("normalized_email = ?", Normalize(email)).
		OrderBy("created_at"))
}

// List pages through users ordered by user name.
func (m *UserManager) List(ctx context.Context, req types.PageRequest) (*types.Pagination[ApplicationUser], error) {
	return m.users.Page(ctx, repository.NewSpecification[ApplicationUser]().OrderBy("normalized_user_name"), req)
}

func (m *UserManager) IsLockedOut(user *ApplicationUser) bool {
	return user.IsLockedOut(m.now())
}

// CheckPassword verifies the password, counting failures towards lockout.
// A locked out user gets ErrLockedOut whatever the password.
func (m *UserManager) CheckPassword(ctx context.Context, user *ApplicationUser, password string) (bool, error) {
	if m.IsLockedOut(user) {
		return false, ErrLockedOut
	}
	if m.hasher.Verify(user.PasswordHash, password) {
		if user.AccessFailedCount > 0 || user.LockoutEnd != nil {
			user.AccessFailedCount = 0
			user.LockoutEnd = nil
			if err := m.users.Update(ctx, user); err != nil {
				return false, err
			}
		}
		return true, nil
	}

	if user.LockoutEnabled && m.opts.Lockout.MaxFailedAccessAttempts > 0 {
		user.AccessFailedCount++
		if user.AccessFailedCount >= m.opts.Lockout.MaxFailedAccessAttempts {
			end := m.now().Add(m.opts.Lockout.DefaultLockoutTimeSpan)
			user.LockoutEnd = &end
			user.AccessFailedCount = 0
		}
		if err := m.users.Update(ctx, user); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (m *UserManager) setPassword(ctx context.Context, user *ApplicationUser, password string) error {
	if err := m.validator.Validate(password); err != nil {
		return err
	}
	hash, err := m.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hash
	user.SecurityStamp = newID()
	return m.users.Update(ctx, user)
}

func (m *UserManager) ChangePassword(ctx context.Context, user *ApplicationUser, currentPassword, newPassword string) error {
	if !m.hasher.Verify(user.PasswordHash, currentPassword) {
		return ErrPasswordMismatch
	}
	return m.setPassword(ctx, user, newPassword)
}

func (m *UserManager) GeneratePasswordResetToken(user *ApplicationUser) (string, error) {
	return m.tokens.Generate(PurposeResetPassword, user)
}

func (m *UserManager) ResetPassword(ctx context.Context, user *ApplicationUser, token, newPassword string) error {
	if !m.tokens.Validate(PurposeResetPassword, token, user) {
		return ErrInvalidToken
	}
	return m.setPassword(ctx, user, newPassword)
}

func (m *UserManager) GenerateEmailConfirmationToken(user *ApplicationUser) (string, error) {
	return m.tokens.Generate(PurposeEmailConfirmation, user)
}

func (m *UserManager) ConfirmEmail(ctx context.Context, user *ApplicationUser, token string) error {
	if !m.tokens.Validate(PurposeEmailConfirmation, token, user) {
		return ErrInvalidToken
	}
	user.EmailConfirmed = true
	return m.users.Update(ctx, user)
}

// UpdateSecurityStamp invalidates outstanding purpose tokens.
func (m *UserManager) UpdateSecurityStamp(ctx context.Context, user *ApplicationUser) error {
	user.SecurityStamp = newID()
	return m.users.Update(ctx, user)
}

func (m *UserManager) findRole(ctx context.Context, name string) (*ApplicationRole, error) {
	role, err := m.roles.First(ctx, repository.NewSpecification[ApplicationRole]().Where("normalized_name = ?", Normalize(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoleNotFound
	}
	return role, err
}

func (m *UserManager) AddToRole(ctx context.Context, user *ApplicationUser, roleName string) error {
	role, err := m.findRole(ctx, roleName)
	if err != nil {
		return err
	}
	exists, err := m.userRoles.Any(ctx, repository.NewSpecification[ApplicationUserRole]().
		Where("user_id = ?", user.ID).
		Where("role_id = ?", role.ID))
	if err != nil {
		return err
	}
	if exists {
		return ErrUserAlreadyInRole
	}
	return m.userRoles.Create(ctx, &ApplicationUserRole{UserID: user.ID, RoleID: role.ID})
}

func (m *UserManager) RemoveFromRole(ctx context.Context, user *ApplicationUser, roleName string) error {
	role, err := m.findRole(ctx, roleName)
	if err != nil {
		return err
	}
	_, err = m.userRoles.NewDelete().
		Model((*ApplicationUserRole)(nil)).
		Where("user_id = ?", user.ID).
		Where("role_id = ?", role.ID).
		Exec(ctx)
	return err
}

// GetRoles returns the names of the user's roles, sorted.
func (m *UserManager) GetRoles(ctx context.Context, user *ApplicationUser) ([]string, error) {
	links, err := m.userRoles.List(ctx, repository.NewSpecification[ApplicationUserRole]().
		Include("Role").
		Where("?TableAlias.user_id = ?", user.ID).
		OrderBy("role.name"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(links))
	for _, link := range links {
		if link.Role != nil {
			names = append(names, link.Role.Name)
		}
	}
	return names, nil
}

func (m *UserManager) IsInRole(ctx context.Context, user *ApplicationUser, roleName string) (bool, error) {
	roles, err := m.GetRoles(ctx, user)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if Normalize(r) == Normalize(roleName) {
			return true, nil
		}
	}
	return false, nil
}
