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
	"context"

	"github.com/tomoncle/anvil/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// ReadRepository defines queries for a generic entity type. A nil
// specification matches every row.
type ReadRepository[T any] interface {
	GetByID(ctx context.Context, id any) (*T, error)

	List(ctx context.Context, spec *Specification[T]) ([]*T, error)

	// First returns sql.ErrNoRows when nothing matches.
	First(ctx context.Context, spec *Specification[T]) (*T, error)

	Count(ctx context.Context, spec *Specification[T]) (int, error)

	Any(ctx context.Context, spec *Specification[T]) (bool, error)

	Page(ctx context.Context, spec *Specification[T], req types.PageRequest) (*types.Pagination[T], error)
}

// WriteRepository defines mutations for a generic entity type.
type WriteRepository[T any] interface {
	Create(ctx context.Context, entity ...*T) error

	Update(ctx context.Context, entity *T) error

	// Upsert inserts entities, updating fields on a conflict over conflictKeys.
	Upsert(ctx context.Context, fields []string, conflictKeys []string, entity ...*T) error

	Delete(ctx context.Context, entity *T) error

	DeleteByID(ctx context.Context, id any) error
}

// Repository combines reads, writes and unit-of-work helpers, and exposes Bun
// query builders for the cases the specification does not cover.
type Repository[T any] interface {
	ReadRepository[T]
	WriteRepository[T]

	// WithTx returns a repository bound to tx.
	WithTx(tx bun.IDB) Repository[T]

	// RunInTx runs fn in a transaction, committing when fn returns nil.
	RunInTx(ctx context.Context, fn func(ctx context.Context, repo Repository[T]) error) error

	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}
