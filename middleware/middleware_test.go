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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/anvil/identity"
)

const testKey = "0123456789abcdef0123456789abcdef"

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(t *testing.T) (*gin.Engine, *identity.JwtTokenHandler, *EndpointPolicies) {
	t.Helper()
	tokens, err := identity.NewJwtTokenHandler([]byte(testKey), identity.JwtSettings{Issuer: "anvil"})
	require.NoError(t, err)
	policies := NewEndpointPolicies()

	engine := gin.New()
	for _, m := range []Middleware{NewExceptionMiddleware().Middleware(), Authentication(tokens), Authorization(policies)} {
		engine.Use(m.Handler)
	}
	return engine, tokens, policies
}

func send(engine *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) ErrorResult {
	t.Helper()
	var result ErrorResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func TestExceptionMiddleware(t *testing.T) {
	engine, _, policies := newEngine(t)
	engine.GET("/missing", func(c *gin.Context) { _ = c.Error(fmt.Errorf("lookup: %w", sql.ErrNoRows)) })
	engine.GET("/conflict", func(c *gin.Context) { _ = c.Error(identity.ErrDuplicateUserName) })
	engine.GET("/boom", func(c *gin.Context) { _ = c.Error(errors.New("connection reset")) })
	engine.GET("/panic", func(c *gin.Context) { panic("unreachable state") })
	for _, path := range []string{"/missing", "/conflict", "/boom", "/panic"} {
		policies.Set(http.MethodGet, path, AllowAnonymous())
	}

	w := send(engine, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 404, decode(t, w).StatusCode)

	w = send(engine, http.MethodGet, "/conflict", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	result := decode(t, w)
	assert.Equal(t, []string{"User name is already taken."}, result.Messages)
	assert.NotEmpty(t, result.ErrorID)
	assert.Empty(t, result.SupportMessage)

	w = send(engine, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	result = decode(t, w)
	assert.Equal(t, "connection reset", result.Exception)
	assert.Contains(t, result.SupportMessage, result.ErrorID)

	w = send(engine, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "unreachable state", decode(t, w).Exception)
}

func TestAuthorizationPolicies(t *testing.T) {
	engine, tokens, policies := newEngine(t)
	ok := func(c *gin.Context) { c.String(http.StatusOK, CurrentUser(c).UserName) }
	engine.GET("/open", func(c *gin.Context) {
		assert.Nil(t, CurrentUser(c))
		c.Status(http.StatusNoContent)
	})
	engine.GET("/private", ok)
	engine.GET("/admin/:id", ok)
	engine.GET("/unlisted", ok)
	policies.Set(http.MethodGet, "/open", AllowAnonymous())
	policies.Set(http.MethodGet, "/private", RequireAuthorization())
	policies.Set(http.MethodGet, "/admin/:id", RequireAuthorization(identity.RoleAdmin))
	assert.Equal(t, 3, policies.Len())

	basic, _, err := tokens.Issue(&identity.ApplicationUser{ID: "1", UserName: "basic"}, []string{identity.RoleBasic})
	require.NoError(t, err)
	admin, _, err := tokens.Issue(&identity.ApplicationUser{ID: "2", UserName: "root"}, []string{identity.RoleAdmin})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, send(engine, http.MethodGet, "/open", "").Code)

	w := send(engine, http.MethodGet, "/private", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 401, decode(t, w).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, send(engine, http.MethodGet, "/private", "garbage").Code)

	w = send(engine, http.MethodGet, "/private", basic)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "basic", w.Body.String())

	assert.Equal(t, http.StatusForbidden, send(engine, http.MethodGet, "/admin/7", basic).Code)
	assert.Equal(t, http.StatusOK, send(engine, http.MethodGet, "/admin/7", admin).Code)

	assert.Equal(t, http.StatusUnauthorized, send(engine, http.MethodGet, "/unlisted", "").Code)
	assert.Equal(t, http.StatusOK, send(engine, http.MethodGet, "/unlisted", basic).Code)

	assert.Equal(t, http.StatusNotFound, send(engine, http.MethodGet, "/nowhere", "").Code)
}

func TestEndpointPoliciesTrackEngines(t *testing.T) {
	policies := NewEndpointPolicies()
	engine := gin.New()
	assert.False(t, policies.Attached(engine))
	policies.Attach(engine)
	assert.True(t, policies.Attached(engine))
	assert.False(t, policies.Attached(gin.New()))
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)
	_, ok = bearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = bearerToken("Bearer ")
	assert.False(t, ok)
	_, ok = bearerToken("")
	assert.False(t, ok)
}
