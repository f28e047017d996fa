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
	"net/http"
	"strings"
)

// Error is an identity failure carrying the HTTP status it maps to. Code is
// stable; Messages are user facing.
type Error struct {
	Status   int
	Code     string
	Messages []string
}

func newError(status int, code string, messages ...string) *Error {
	return &Error{Status: status, Code: code, Messages: messages}
}

func (e *Error) Error() string {
	if len(e.Messages) == 0 {
		return e.Code
	}
	return strings.Join(e.Messages, " ")
}

func (e *Error) HTTPStatus() int { return e.Status }

func (e *Error) ErrorMessages() []string { return e.Messages }

// Is matches another *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrUserNotFound       = newError(http.StatusNotFound, "UserNotFound", "User Not Found.")
	ErrRoleNotFound       = newError(http.StatusNotFound, "RoleNotFound", "Role Not Found.")
	ErrInvalidCredentials = newError(http.StatusUnauthorized, "InvalidCredentials", "Authentication Failed.")
	ErrLockedOut          = newError(http.StatusUnauthorized, "LockedOut", "User account is locked out.")
	ErrUserInactive       = newError(http.StatusUnauthorized, "UserInactive", "User Not Active. Please contact the administrator.")
	ErrEmailNotConfirmed  = newError(http.StatusUnauthorized, "EmailNotConfirmed", "E-Mail not confirmed.")
	ErrInvalidToken       = newError(http.StatusBadRequest, "InvalidToken", "Invalid token.")
	ErrDuplicateUserName  = newError(http.StatusConflict, "DuplicateUserName", "User name is already taken.")
	ErrDuplicateEmail     = newError(http.StatusConflict, "DuplicateEmail", "Email is already taken.")
	ErrDuplicateRoleName  = newError(http.StatusConflict, "DuplicateRoleName", "Role name is already taken.")
	ErrUserAlreadyInRole  = newError(http.StatusConflict, "UserAlreadyInRole", "User already in role.")
	ErrPasswordMismatch   = newError(http.StatusBadRequest, "PasswordMismatch", "Incorrect password.")
)

// ValidationError collects every failed rule of one validation.
func ValidationError(messages ...string) *Error {
	return newError(http.StatusBadRequest, "ValidationFailed", messages...)
}
