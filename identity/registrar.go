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
	"github.com/samber/do/v2"
	"github.com/spf13/viper"
	"github.com/tomoncle/anvil/config"
	"github.com/tomoncle/anvil/container"
	"github.com/tomoncle/anvil/database"
	"github.com/tomoncle/anvil/repository"
	"github.com/tomoncle/anvil/utils"
)

var logger = utils.NewLogger("IDENTITY")

// AddIdentity registers the identity options, token handlers, entities,
// migrations and seeder, and the scoped user, role and token services.
func AddIdentity(c *container.Container, v *viper.Viper, opts ...Option) error {
	settings := DefaultSecuritySettings()
	if err := config.Bind(v, SecuritySectionName, &settings); err != nil {
		return err
	}
	key, generated, err := settings.JwtSettings.signingKey()
	if err != nil {
		return err
	}
	if generated {
		logger.Warn("JwtSettings.Key is not configured, signing tokens with a random key")
	}

	options := NewOptions(opts...)
	jwtHandler, err := NewJwtTokenHandler(key, settings.JwtSettings)
	if err != nil {
		return err
	}
	purposeTokens, err := NewDataProtectorTokenProvider(key, settings.JwtSettings.Issuer, options.Tokens.PurposeTokenLifespan)
	if err != nil {
		return err
	}
	hasher := NewPasswordHasher(0)

	container.ProvideValue(c, options)
	container.ProvideValue(c, settings)
	container.ProvideValue(c, jwtHandler)
	container.ProvideValue(c, purposeTokens)
	container.ProvideValue(c, hasher)

	database.RegisterModel[ApplicationUserRole](c, 0)
	database.RegisterModel[ApplicationUser](c, 10)
	database.RegisterModel[ApplicationRole](c, 10)
	for _, m := range Migrations() {
		database.AddMigration(c, m)
	}
	database.AddSeeder(c, container.Singleton, func(do.Injector) (database.CustomSeeder, error) {
		return NewSeeder(options, hasher, purposeTokens, settings.DefaultAdmin), nil
	})

	container.Provide(c, container.Scoped, func(i do.Injector) (*UserManager, error) {
		users, err := do.Invoke[repository.Repository[ApplicationUser]](i)
		if err != nil {
			return nil, err
		}
		roles, err := do.Invoke[repository.Repository[ApplicationRole]](i)
		if err != nil {
			return nil, err
		}
		userRoles, err := do.Invoke[repository.Repository[ApplicationUserRole]](i)
		if err != nil {
			return nil, err
		}
		return NewUserManager(users, roles, userRoles, options, hasher, purposeTokens), nil
	})
	container.Provide(c, container.Scoped, func(i do.Injector) (*RoleManager, error) {
		roles, err := do.Invoke[repository.Repository[ApplicationRole]](i)
		if err != nil {
			return nil, err
		}
		return NewRoleManager(roles), nil
	})
	container.Provide(c, container.Scoped, func(i do.Injector) (*TokenService, error) {
		users, err := do.Invoke[*UserManager](i)
		if err != nil {
			return nil, err
		}
		return NewTokenService(users, jwtHandler), nil
	})
	return nil
}
