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

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tomoncle/anvil/identity"
)

const principalKey = "anvil.principal"

// Authentication resolves a bearer token into the request principal. Missing
// or invalid tokens leave the request anonymous; authorization decides.
func Authentication(tokens *identity.JwtTokenHandler) Middleware {
	return Middleware{Name: AuthenticationName, Handler: func(c *gin.Context) {
		if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
			if p, err := tokens.Validate(token); err == nil {
				c.Set(principalKey, p)
			}
		}
		c.Next()
	}}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// CurrentUser returns the authenticated principal, or nil.
func CurrentUser(c *gin.Context) *identity.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*identity.Principal)
	return p
}
