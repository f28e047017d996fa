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
	"crypto/rand"
	"fmt"
	"strings"
)

// SecuritySectionName is the configuration section SecuritySettings is read
// from.
const SecuritySectionName = "SecuritySettings"

// MinKeyLength is the minimum HS256 signing key size in bytes.
const MinKeyLength = 32

type JwtSettings struct {
	Key                      string `mapstructure:"Key"`
	Issuer                   string `mapstructure:"Issuer"`
	TokenExpirationInMinutes int    `mapstructure:"TokenExpirationInMinutes"`
}

// DefaultAdmin describes the administrator seeded on startup. Nothing is
// seeded when UserName is empty.
type DefaultAdmin struct {
	UserName string `mapstructure:"UserName"`
	Email    string `mapstructure:"Email"`
	Password string `mapstructure:"Password"`
}

type SecuritySettings struct {
	JwtSettings  JwtSettings  `mapstructure:"JwtSettings"`
	DefaultAdmin DefaultAdmin `mapstructure:"DefaultAdmin"`
}

func DefaultSecuritySettings() SecuritySettings {
	return SecuritySettings{
		JwtSettings: JwtSettings{
			Issuer:                   "anvil",
			TokenExpirationInMinutes: 60,
		},
	}
}

// signingKey returns the configured key, or a random key when none is set.
// Tokens signed with a random key do not survive a restart.
func (s JwtSettings) signingKey() ([]byte, bool, error) {
	key := strings.TrimSpace(s.Key)
	if key == "" {
		b := make([]byte, MinKeyLength)
		if _, err := rand.Read(b); err != nil {
			return nil, false, err
		}
		return b, true, nil
	}
	if len(key) < MinKeyLength {
		return nil, false, fmt.Errorf("JwtSettings.Key must be at least %d bytes, got %d", MinKeyLength, len(key))
	}
	return []byte(key), false, nil
}
