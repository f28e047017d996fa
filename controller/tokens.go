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

package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/do/v2"
	"github.com/tomoncle/anvil/container"
	"github.com/tomoncle/anvil/identity"
	"github.com/tomoncle/anvil/middleware"
)

type TokensController struct {
	c *container.Container
}

func NewTokensController(c *container.Container) *TokensController {
	return &TokensController{c: c}
}

func (t *TokensController) Name() string { return "tokens" }

func (t *TokensController) Routes() []Route {
	return []Route{
		{Method: http.MethodPost, Path: "/api/tokens", Policy: middleware.AllowAnonymous(), Handler: Scoped(t.c, t.getToken)},
	}
}

// getToken handles POST /api/tokens
func (t *TokensController) getToken(c *gin.Context, scope do.Injector) error {
	var req identity.TokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	tokens, err := do.Invoke[*identity.TokenService](scope)
	if err != nil {
		return err
	}
	resp, err := tokens.GetToken(c.Request.Context(), req)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, resp)
	return nil
}
