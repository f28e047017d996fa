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
	"fmt"
	"slices"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

const accessAudience = "api"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID    string    `json:"id"`
	UserName  string    `json:"userName"`
	Email     string    `json:"email,omitempty"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (p *Principal) IsAuthenticated() bool {
	return p != nil && p.UserID != ""
}

func (p *Principal) IsInRole(role string) bool {
	if !p.IsAuthenticated() {
		return false
	}
	return slices.ContainsFunc(p.Roles, func(r string) bool { return Normalize(r) == Normalize(role) })
}

type accessClaims struct {
	UserName string   `json:"unique_name"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// JwtTokenHandler signs and validates HS256 access tokens.
type JwtTokenHandler struct {
	key        []byte
	signer     jose.Signer
	issuer     string
	expiration time.Duration
	now        func() time.Time
}

func NewJwtTokenHandler(key []byte, settings JwtSettings) (*JwtTokenHandler, error) {
	signer, err := newSigner(key)
	if err != nil {
		return nil, err
	}
	expiration := time.Duration(settings.TokenExpirationInMinutes) * time.Minute
	if expiration <= 0 {
		expiration = time.Hour
	}
	return &JwtTokenHandler{
		key:        key,
		signer:     signer,
		issuer:     settings.Issuer,
		expiration: expiration,
		now:        time.Now,
	}, nil
}

func newSigner(key []byte) (jose.Signer, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token signer: %w", err)
	}
	return signer, nil
}

// Issue signs an access token for user carrying roles.
func (h *JwtTokenHandler) Issue(user *ApplicationUser, roles []string) (string, time.Time, error) {
	now := h.now()
	expiresAt := now.Add(h.expiration)
	std := jwt.Claims{
		ID:        newID(),
		Issuer:    h.issuer,
		Subject:   user.ID,
		Audience:  jwt.Audience{accessAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.Signed(h.signer).
		Claims(std).
		Claims(accessClaims{UserName: user.UserName, Email: user.Email, Roles: roles}).
		Serialize()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Validate checks signature, issuer, audience and lifetime and returns the
// token's principal.
func (h *JwtTokenHandler) Validate(token string) (*Principal, error) {
	parsed, err := jwt.ParseSigned(token, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, ErrInvalidToken
	}
	var std jwt.Claims
	var claims accessClaims
	if err := parsed.Claims(h.key, &std, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	err = std.ValidateWithLeeway(jwt.Expected{
		Issuer:      h.issuer,
		AnyAudience: jwt.Audience{accessAudience},
		Time:        h.now(),
	}, 0)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &Principal{
		UserID:    std.Subject,
		UserName:  claims.UserName,
		Email:     claims.Email,
		Roles:     claims.Roles,
		ExpiresAt: std.Expiry.Time(),
	}, nil
}

const (
	PurposeResetPassword     = "ResetPassword"
	PurposeEmailConfirmation = "EmailConfirmation"
)

type purposeClaims struct {
	Stamp string `json:"stamp"`
}

// DataProtectorTokenProvider issues single-purpose tokens bound to the
// user's security stamp, so they stop validating once the stamp changes.
type DataProtectorTokenProvider struct {
	key      []byte
	signer   jose.Signer
	issuer   string
	lifespan time.Duration
	now      func() time.Time
}

func NewDataProtectorTokenProvider(key []byte, issuer string, lifespan time.Duration) (*DataProtectorTokenProvider, error) {
	signer, err := newSigner(key)
	if err != nil {
		return nil, err
	}
	if lifespan <= 0 {
		lifespan = 24 * time.Hour
	}
	return &DataProtectorTokenProvider{key: key, signer: signer, issuer: issuer, lifespan: lifespan, now: time.Now}, nil
}

func purposeAudience(purpose string) string {
	return "purpose:" + purpose
}

func (p *DataProtectorTokenProvider) Generate(purpose string, user *ApplicationUser) (string, error) {
	now := p.now()
	std := jwt.Claims{
		Issuer:   p.issuer,
		Subject:  user.ID,
		Audience: jwt.Audience{purposeAudience(purpose)},
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(p.lifespan)),
	}
	return jwt.Signed(p.signer).Claims(std).Claims(purposeClaims{Stamp: user.SecurityStamp}).Serialize()
}

func (p *DataProtectorTokenProvider) Validate(purpose, token string, user *ApplicationUser) bool {
	parsed, err := jwt.ParseSigned(token, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return false
	}
	var std jwt.Claims
	var claims purposeClaims
	if err := parsed.Claims(p.key, &std, &claims); err != nil {
		return false
	}
	err = std.ValidateWithLeeway(jwt.Expected{
		Issuer:      p.issuer,
		Subject:     user.ID,
		AnyAudience: jwt.Audience{purposeAudience(purpose)},
		Time:        p.now(),
	}, 0)
	return err == nil && claims.Stamp == user.SecurityStamp
}
