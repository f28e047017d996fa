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
	"github.com/tomoncle/anvil/repository"
	"github.com/tomoncle/anvil/service"
)

type RolesController struct {
	c *container.Container
}

func NewRolesController(c *container.Container) *RolesController {
	return &RolesController{c: c}
}

func (r *RolesController) Name() string { return "roles" }

func (r *RolesController) Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/api/roles", Handler: Scoped(r.c, r.list)},
	}
}

// list handles GET /api/roles
func (r *RolesController) list(c *gin.Context, scope do.Injector) error {
	roles, err := do.Invoke[service.Service[identity.ApplicationRole]](scope)
	if err != nil {
		return err
	}
	list, err := roles.List(c.Request.Context(), repository.NewSpecification[identity.ApplicationRole]().OrderBy("name"))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, list)
	return nil
}
