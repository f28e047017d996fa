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

package repository

import (
	"fmt"

	"github.com/samber/do/v2"
	"github.com/tomoncle/anvil/container"
	"github.com/uptrace/bun"
)

// Provide registers Repository[T] and SpecificationFactory[T] with a scoped
// lifetime. The repository resolves the scoped bun.IDB unit of work declared
// by the persistence layer.
func Provide[T any](c *container.Container) {
	container.Provide(c, container.Scoped, func(i do.Injector) (Repository[T], error) {
		db, err := do.Invoke[bun.IDB](i)
		if err != nil {
			return nil, fmt.Errorf("repository %s: %w", do.NameOf[T](), err)
		}
		return NewRepository[T](db), nil
	})
	container.Provide(c, container.Scoped, func(do.Injector) (SpecificationFactory[T], error) {
		return NewSpecification[T], nil
	})
}
