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

// Package service offers a generic CRUD service over the repository of an
// entity, resolved per scope.
package service

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"
	"github.com/tomoncle/anvil/container"
	"github.com/tomoncle/anvil/repository"
	"github.com/tomoncle/anvil/types"
)

type Service[T any] interface {
	// Get returns a single entity by its identifier.
	Get(ctx context.Context, id any) (*T, error)

	// List returns the entities selected by spec; nil selects all.
	List(ctx context.Context, spec *repository.Specification[T]) ([]*T, error)

	// Page returns one page of the entities selected by spec.
	Page(ctx context.Context, spec *repository.Specification[T], page types.PageRequest) (*types.Pagination[T], error)

	// Save inserts one or more new entities.
	Save(ctx context.Context, model ...*T) error

	// SaveOrUpdate upserts entities, updating fields on conflict of
	// duplicateKeys.
	SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error

	Update(ctx context.Context, model *T) error

	Delete(ctx context.Context, id any) error
}

type baseServiceImpl[T any] struct {
	repo repository.Repository[T]
}

// NewService returns the default Service over repo.
func NewService[T any](repo repository.Repository[T]) Service[T] {
	return &baseServiceImpl[T]{repo: repo}
}

// Provide registers a scoped Service[T] on top of the scoped Repository[T].
func Provide[T any](c *container.Container) {
	container.Provide(c, container.Scoped, func(i do.Injector) (Service[T], error) {
		repo, err := do.Invoke[repository.Repository[T]](i)
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", do.NameOf[T](), err)
		}
		return NewService(repo), nil
	})
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, spec *repository.Specification[T]) ([]*T, error) {
	return s.repo.List(ctx, spec)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, spec *repository.Specification[T], page types.PageRequest) (*types.Pagination[T], error) {
	return s.repo.Page(ctx, spec, page)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	return s.repo.Create(ctx, model...)
}

func (s *baseServiceImpl[T]) SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error {
	return s.repo.Upsert(ctx, fields, duplicateKeys, model...)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T) error {
	return s.repo.Update(ctx, model)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	return s.repo.DeleteByID(ctx, id)
}
