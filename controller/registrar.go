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
	"github.com/samber/do/v2"
	"github.com/tomoncle/anvil/container"
	"github.com/tomoncle/anvil/identity"
	"github.com/tomoncle/anvil/middleware"
	"github.com/tomoncle/anvil/service"
)

// AddServices registers the application services, the controllers and the
// endpoint policies their routes are mapped into.
func AddServices(c *container.Container) {
	service.Provide[identity.ApplicationRole](c)
	container.ProvideValue(c, middleware.NewEndpointPolicies())

	container.ProvideGroup(c, container.Singleton, func(do.Injector) (Controller, error) {
		return NewTokensController(c), nil
	})
	container.ProvideGroup(c, container.Singleton, func(do.Injector) (Controller, error) {
		return NewUsersController(c), nil
	})
	container.ProvideGroup(c, container.Singleton, func(do.Injector) (Controller, error) {
		return NewRolesController(c), nil
	})
}
