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

// Package controller holds the HTTP endpoints of the service. Every handler
// runs in its own container scope.
package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/samber/do/v2"
	"github.com/tomoncle/anvil/container"
	"github.com/tomoncle/anvil/identity"
	"github.com/tomoncle/anvil/middleware"
)

// Route is one endpoint. The zero Policy requires an authenticated caller.
type Route struct {
	Method  string
	Path    string
	Policy  middleware.Policy
	Handler gin.HandlerFunc
}

type Controller interface {
	Name() string
	Routes() []Route
}

// HandlerFunc handles a request with services resolved from its scope.
type HandlerFunc func(c *gin.Context, scope do.Injector) error

// Scoped adapts fn into a gin handler that opens a request scope, releases
// it when fn returns and reports fn's error to the exception middleware.
func Scoped(c *container.Container, fn HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		scope := c.CreateScope("request")
		defer scope.Close()
		if err := fn(ctx, scope.Injector()); err != nil {
			_ = ctx.Error(err)
		}
	}
}

func bind(c *gin.Context, out any) error {
	if err := c.ShouldBindJSON(out); err != nil {
		return identity.ValidationError(err.Error())
	}
	return nil
}
