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

package database

import (
	"sort"

	"github.com/samber/do/v2"
	"github.com/tomoncle/anvil/container"
	"github.com/tomoncle/anvil/repository"
)

// SQLModel is an entity known to the database context. Instance returns a
// struct pointer compatible with Bun; lower Priority values are created and
// registered first.
type SQLModel interface {
	Instance() interface{}
	Priority() int
}

type ModelAdapter struct {
	instance interface{}
	priority int
}

// NewModelAdapter wraps a struct instance and priority into an SQLModel.
func NewModelAdapter(instance interface{}, priority int) SQLModel {
	return &ModelAdapter{
		instance: instance,
		priority: priority,
	}
}

func (a *ModelAdapter) Instance() interface{} {
	return a.instance
}

func (a *ModelAdapter) Priority() int {
	return a.priority
}

// RegisterModel declares T as an entity of the database context and registers
// its scoped Repository[T] and SpecificationFactory[T].
func RegisterModel[T any](c *container.Container, priority int) {
	container.ProvideGroup(c, container.Singleton, func(do.Injector) (SQLModel, error) {
		return NewModelAdapter((*T)(nil), priority), nil
	})
	repository.Provide[T](c)
}

// SortModels orders models by ascending priority, keeping declaration order
// for equal priorities.
func SortModels(models []SQLModel) []SQLModel {
	result := make([]SQLModel, len(models))
	copy(result, models)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Priority() < result[j].Priority()
	})
	return result
}

// ModelInstances returns the instances of models in priority order.
func ModelInstances(models []SQLModel) []interface{} {
	sorted := SortModels(models)
	instances := make([]interface{}, len(sorted))
	for i, model := range sorted {
		instances[i] = model.Instance()
	}
	return instances
}
