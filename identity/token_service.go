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
	"strings"
	"time"
)

type TokenRequest struct {
	Email    string `json:"email"`
	UserName string `json:"userName"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TokenService exchanges credentials for access tokens.
type TokenService struct {
	users *UserManager
	jwt   *JwtTokenHandler
}

func NewTokenService(users *UserManager, jwt *JwtTokenHandler) *TokenService {
	return &TokenService{users: users, jwt: jwt}
}

// GetToken authenticates by email, or by user name when no email is given.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *TokenService) GetToken(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	var user *ApplicationUser
	var err error
	if strings.TrimSpace(req.Email) != "" {
		user, err = s.users.FindByEmail(ctx, req.Email)
	} else {
		user, err = s.users.FindByName(ctx, req.UserName)
	}
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if s.users.Options().SignIn.RequireConfirmedEmail && !user.EmailConfirmed {
		return nil, ErrEmailNotConfirmed
	}
	ok, err := s.users.CheckPassword(ctx, user, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	roles, err := s.users.GetRoles(ctx, user)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.jwt.Issue(user, roles)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{Token: token, ExpiresAt: expiresAt}, nil
}
