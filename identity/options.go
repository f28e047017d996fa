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

// Package identity provides users, roles, password policy, bearer tokens and
// purpose tokens backed by the application database.
package identity

import (
	"time"
)

const DefaultAllowedUserNameCharacters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-._@+"

type PasswordOptions struct {
	RequiredLength         int
	RequiredUniqueChars    int
	RequireDigit           bool
	RequireLowercase       bool
	RequireNonAlphanumeric bool
	RequireUppercase       bool
}

type UserOptions struct {
	// AllowedUserNameCharacters lists the runes a user name may contain; empty
	// allows any.
	AllowedUserNameCharacters string
	RequireUniqueEmail        bool
}

type LockoutOptions struct {
	AllowedForNewUsers      bool
	MaxFailedAccessAttempts int
	DefaultLockoutTimeSpan  time.Duration
}

type SignInOptions struct {
	RequireConfirmedEmail bool
}

type TokenOptions struct {
	// PurposeTokenLifespan bounds password reset and email confirmation
	// tokens.
	PurposeTokenLifespan time.Duration
}

// Options configures the identity services.
type Options struct {
	Password PasswordOptions
	User     UserOptions
	Lockout  LockoutOptions
	SignIn   SignInOptions
	Tokens   TokenOptions
}

// Option mutates Options during registration.
type Option func(*Options)

// DefaultOptions returns the strict defaults: eight characters with digit,
// upper, lower and symbol, and five attempts before a five minute lockout.
func DefaultOptions() Options {
	return Options{
		Password: PasswordOptions{
			RequiredLength:         8,
			RequiredUniqueChars:    1,
			RequireDigit:           true,
			RequireLowercase:       true,
			RequireNonAlphanumeric: true,
			RequireUppercase:       true,
		},
		User: UserOptions{
			AllowedUserNameCharacters: DefaultAllowedUserNameCharacters,
			RequireUniqueEmail:        false,
		},
		Lockout: LockoutOptions{
			AllowedForNewUsers:      true,
			MaxFailedAccessAttempts: 5,
			DefaultLockoutTimeSpan:  5 * time.Minute,
		},
		Tokens: TokenOptions{
			PurposeTokenLifespan: 24 * time.Hour,
		},
	}
}

// NewOptions applies opts over DefaultOptions.
func NewOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
