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
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	RoleAdmin = "Admin"
	RoleBasic = "Basic"
)

// DefaultRoles are seeded on every startup.
var DefaultRoles = []string{RoleAdmin, RoleBasic}

type ApplicationUser struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                 string     `bun:"id,pk,type:varchar(36)" json:"id"`
	UserName           string     `bun:"user_name,notnull,type:varchar(256)" json:"userName"`
	NormalizedUserName string     `bun:"normalized_user_name,notnull,unique,type:varchar(256)" json:"-"`
	Email              string     `bun:"email,type:varchar(256)" json:"email"`
	NormalizedEmail    string     `bun:"normalized_email,type:varchar(256)" json:"-"`
	EmailConfirmed     bool       `bun:"email_confirmed,notnull" json:"emailConfirmed"`
	FirstName          string     `bun:"first_name,type:varchar(128)" json:"firstName"`
	LastName           string     `bun:"last_name,type:varchar(128)" json:"lastName"`
	PhoneNumber        string     `bun:"phone_number,type:varchar(32)" json:"phoneNumber"`
	IsActive           bool       `bun:"is_active,notnull" json:"isActive"`
	PasswordHash       string     `bun:"password_hash,type:varchar(128)" json:"-"`
	SecurityStamp      string     `bun:"security_stamp,type:varchar(36)" json:"-"`
	LockoutEnabled     bool       `bun:"lockout_enabled,notnull" json:"-"`
	LockoutEnd         *time.Time `bun:"lockout_end,nullzero" json:"-"`
	AccessFailedCount  int        `bun:"access_failed_count,notnull" json:"-"`
	CreatedAt          time.Time  `bun:"created_at,notnull" json:"createdAt"`

	Roles []ApplicationRole `bun:"m2m:user_roles,join:User=Role" json:"roles,omitempty"`
}

type ApplicationRole struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID             string `bun:"id,pk,type:varchar(36)" json:"id"`
	Name           string `bun:"name,notnull,type:varchar(256)" json:"name"`
	NormalizedName string `bun:"normalized_name,notnull,unique,type:varchar(256)" json:"-"`
	Description    string `bun:"description,type:varchar(512)" json:"description"`
}

type ApplicationUserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	UserID string           `bun:"user_id,pk,type:varchar(36)"`
	User   *ApplicationUser `bun:"rel:belongs-to,join:user_id=id"`
	RoleID string           `bun:"role_id,pk,type:varchar(36)"`
	Role   *ApplicationRole `bun:"rel:belongs-to,join:role_id=id"`
}

// Normalize is the lookup form of user names, emails and role names.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func newID() string {
	return uuid.NewString()
}

// IsLockedOut reports whether the user is locked out at now.
func (u *ApplicationUser) IsLockedOut(now time.Time) bool {
	return u.LockoutEnabled && u.LockoutEnd != nil && u.LockoutEnd.After(now)
}

func (u *ApplicationUser) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
