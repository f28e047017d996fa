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
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

// Policy is the authorization requirement of one endpoint. The zero Policy
// requires an authenticated caller.
type Policy struct {
	AllowAnonymous bool
	Roles          []string
}

// RequireAuthorization is the policy of every mapped endpoint unless it opts
// out.
func RequireAuthorization(roles ...string) Policy {
	return Policy{Roles: roles}
}

func AllowAnonymous() Policy {
	return Policy{AllowAnonymous: true}
}

// EndpointPolicies maps method and route template to a Policy. It also
// remembers the engines its Authorization middleware was installed on.
type EndpointPolicies struct {
	mu       sync.RWMutex
	policies map[string]Policy
	engines  map[*gin.Engine]struct{}
}

func NewEndpointPolicies() *EndpointPolicies {
	return &EndpointPolicies{
		policies: make(map[string]Policy),
		engines:  make(map[*gin.Engine]struct{}),
	}
}

// Attach records that engine runs the Authorization middleware.
func (e *EndpointPolicies) Attach(engine *gin.Engine) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.engines[engine] = struct{}{}
}

// Attached reports whether Attach was called for engine.
func (e *EndpointPolicies) Attached(engine *gin.Engine) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.engines[engine]
	return ok
}

func endpointKey(method, path string) string {
	return method + " " + path
}

func (e *EndpointPolicies) Set(method, path string, p Policy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policies[endpointKey(method, path)] = p
}

func (e *EndpointPolicies) Get(method, path string) (Policy, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.policies[endpointKey(method, path)]
	return p, ok
}

// Len returns the number of mapped endpoints.
func (e *EndpointPolicies) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.policies)
}

// Authorization enforces the policy of the matched route: 401 for anonymous
// callers, 403 when none of the required roles is held. A matched route
// without a registered policy requires an authenticated caller. Unmatched
// routes pass through to the 404 handler.
func Authorization(policies *EndpointPolicies) Middleware {
	return Middleware{Name: AuthorizationName, Handler: func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			c.Next()
			return
		}
		policy, _ := policies.Get(c.Request.Method, route)
		if policy.AllowAnonymous {
			c.Next()
			return
		}
		user := CurrentUser(c)
		if !user.IsAuthenticated() {
			abort(c, http.StatusUnauthorized, "Authentication Failed.")
			return
		}
		if len(policy.Roles) > 0 {
			allowed := false
			for _, role := range policy.Roles {
				if user.IsInRole(role) {
					allowed = true
					break
				}
			}
			if !allowed {
				abort(c, http.StatusForbidden, "You are not authorized to access this resource.")
				return
			}
		}
		c.Next()
	}}
}
