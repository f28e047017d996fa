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

// Package anvil composes the infrastructure of a web service: persistence,
// identity, health checks, the middleware pipeline and the endpoints.
//
// Startup runs in this order:
//
//	c := container.New()
//	anvil.AddInfrastructure(c, v)
//	anvil.InitializeDatabases(ctx, c)
//	anvil.UseInfrastructure(engine, c)
//	anvil.MapEndpoints(engine, c)
package anvil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/do/v2"
	"github.com/spf13/viper"
	"github.com/tomoncle/anvil/container"
	"github.com/tomoncle/anvil/controller"
	"github.com/tomoncle/anvil/database"
	"github.com/tomoncle/anvil/health"
	"github.com/tomoncle/anvil/identity"
	"github.com/tomoncle/anvil/middleware"
)

// HealthCheckTimeout bounds each health check.
const HealthCheckTimeout = 5 * time.Second

// PingPath serves the health report to authenticated callers.
const PingPath = "/api/ping"

// IdentityPolicy relaxes passwords to six characters of any kind and allows
// shared emails.
func IdentityPolicy(o *identity.Options) {
	o.Password.RequiredLength = 6
	o.Password.RequireDigit = false
	o.Password.RequireLowercase = false
	o.Password.RequireNonAlphanumeric = false
	o.Password.RequireUppercase = false
	o.User.RequireUniqueEmail = false
}

// AddInfrastructure registers every infrastructure service. It stops at the
// first failing step; database configuration errors are fatal.
func AddInfrastructure(c *container.Container, v *viper.Viper) error {
	return AddInfrastructureWith(c, v, nil)
}

// AddInfrastructureWith is AddInfrastructure with a custom database opener;
// a nil opener connects to the configured provider.
func AddInfrastructureWith(c *container.Container, v *viper.Viper, open database.Opener) error {
	AddExceptionMiddleware(c)
	if err := identity.AddIdentity(c, v, IdentityPolicy); err != nil {
		return fmt.Errorf("failed to add identity: %w", err)
	}
	AddHealthCheck(c)
	if open == nil {
		if err := database.AddPersistence(c, v); err != nil {
			return err
		}
	} else if err := database.AddPersistenceWith(c, v, open); err != nil {
		return err
	}
	controller.AddServices(c)
	return nil
}

// AddExceptionMiddleware registers the singleton ExceptionMiddleware.
func AddExceptionMiddleware(c *container.Container) {
	container.ProvideValue(c, middleware.NewExceptionMiddleware())
}

// AddHealthCheck registers the health registry over every contributed check.
func AddHealthCheck(c *container.Container) {
	container.Provide(c, container.Singleton, func(i do.Injector) (*health.Registry, error) {
		checks, err := container.InvokeGroup[health.Check](i)
		if err != nil {
			return nil, err
		}
		return health.NewRegistry(HealthCheckTimeout, checks...), nil
	})
}

// Pipeline returns the request middleware in order: exception handling,
// authentication, authorization.
func Pipeline(c *container.Container) ([]middleware.Middleware, error) {
	exception, err := do.Invoke[*middleware.ExceptionMiddleware](c.Injector())
	if err != nil {
		return nil, err
	}
	tokens, err := do.Invoke[*identity.JwtTokenHandler](c.Injector())
	if err != nil {
		return nil, err
	}
	policies, err := do.Invoke[*middleware.EndpointPolicies](c.Injector())
	if err != nil {
		return nil, err
	}
	return []middleware.Middleware{
		exception.Middleware(),
		middleware.Authentication(tokens),
		middleware.Authorization(policies),
	}, nil
}

// ErrPipelineNotInstalled is returned by MapEndpoints when UseInfrastructure
// has not run on the engine yet.
var ErrPipelineNotInstalled = errors.New("request pipeline not installed: call UseInfrastructure before MapEndpoints")

// UseInfrastructure installs the Pipeline on engine. It must run before
// MapEndpoints: gin only applies middleware to routes added afterwards.
func UseInfrastructure(engine *gin.Engine, c *container.Container) error {
	pipeline, err := Pipeline(c)
	if err != nil {
		return err
	}
	policies, err := do.Invoke[*middleware.EndpointPolicies](c.Injector())
	if err != nil {
		return err
	}
	for _, m := range pipeline {
		engine.Use(m.Handler)
	}
	policies.Attach(engine)
	return nil
}

// MapEndpoints maps every controller route and the ping endpoint. Routes
// require an authenticated caller unless their policy allows anonymous
// access. UseInfrastructure must have been called on engine first, otherwise
// ErrPipelineNotInstalled is returned and nothing is mapped.
func MapEndpoints(engine *gin.Engine, c *container.Container) error {
	policies, err := do.Invoke[*middleware.EndpointPolicies](c.Injector())
	if err != nil {
		return err
	}
	if !policies.Attached(engine) {
		return ErrPipelineNotInstalled
	}
	controllers, err := container.InvokeGroup[controller.Controller](c.Injector())
	if err != nil {
		return err
	}
	for _, ctrl := range controllers {
		for _, route := range ctrl.Routes() {
			engine.Handle(route.Method, route.Path, route.Handler)
			policies.Set(route.Method, route.Path, route.Policy)
		}
	}

	registry, err := do.Invoke[*health.Registry](c.Injector())
	if err != nil {
		return err
	}
	engine.GET(PingPath, health.Handler(registry))
	policies.Set(http.MethodGet, PingPath, middleware.RequireAuthorization())
	return nil
}

// InitializeDatabases migrates and seeds the databases from a dedicated
// scope, blocking until done.
func InitializeDatabases(ctx context.Context, c *container.Container) error {
	scope := c.CreateScope("startup")
	defer scope.Close()

	initializer, err := do.Invoke[database.DatabaseInitializer](scope.Injector())
	if err != nil {
		return err
	}
	return initializer.InitializeDatabases(ctx)
}
