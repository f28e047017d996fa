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
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

var errPasswordTooLong = fmt.Sprintf("Passwords must be at most %d bytes long.", MaxPasswordBytes)

// PasswordValidator enforces PasswordOptions.
type PasswordValidator struct {
	opts PasswordOptions
}

func NewPasswordValidator(opts PasswordOptions) *PasswordValidator {
	return &PasswordValidator{opts: opts}
}

// Validate reports every rule the password breaks in one ValidationError.
func (v *PasswordValidator) Validate(password string) error {
	var messages []string
	if len([]rune(password)) < v.opts.RequiredLength {
		messages = append(messages, fmt.Sprintf("Passwords must be at least %d characters.", v.opts.RequiredLength))
	}
	if len(password) > MaxPasswordBytes {
		messages = append(messages, errPasswordTooLong)
	}

	var hasDigit, hasLower, hasUpper, hasSymbol bool
	unique := make(map[rune]struct{})
	for _, r := range password {
		unique[r] = struct{}{}
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case !unicode.IsLetter(r):
			hasSymbol = true
		}
	}
	if v.opts.RequireNonAlphanumeric && !hasSymbol {
		messages = append(messages, "Passwords must have at least one non alphanumeric character.")
	}
	if v.opts.RequireDigit && !hasDigit {
		messages = append(messages, "Passwords must have at least one digit ('0'-'9').")
	}
	if v.opts.RequireLowercase && !hasLower {
		messages = append(messages, "Passwords must have at least one lowercase ('a'-'z').")
	}
	if v.opts.RequireUppercase && !hasUpper {
		messages = append(messages, "Passwords must have at least one uppercase ('A'-'Z').")
	}
	if v.opts.RequiredUniqueChars > 1 && len(unique) < v.opts.RequiredUniqueChars {
		messages = append(messages, fmt.Sprintf("Passwords must use at least %d different characters.", v.opts.RequiredUniqueChars))
	}
	if len(messages) > 0 {
		return ValidationError(messages...)
	}
	return nil
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

type bcryptHasher struct {
	cost int
}

// NewPasswordHasher returns a bcrypt hasher; cost 0 uses bcrypt.DefaultCost.
func NewPasswordHasher(cost int) PasswordHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (h *bcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ValidationError(errPasswordTooLong)
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *bcryptHasher) Verify(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
