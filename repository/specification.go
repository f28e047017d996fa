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
	"github.com/uptrace/bun"
)

type criterion struct {
	query string
	args  []interface{}
	or    bool
}

// Specification describes which rows of T a query selects: criteria, related
// models to load, ordering and paging. All methods are safe on a nil receiver,
// which selects everything.
type Specification[T any] struct {
	criteria []criterion
	includes []string
	orders   []string
	skip     int
	take     int
	paging   bool
}

// SpecificationFactory creates empty specifications for T.
type SpecificationFactory[T any] func() *Specification[T]

// NewSpecification returns an empty specification.
func NewSpecification[T any]() *Specification[T] {
	return &Specification[T]{}
}

// Where adds a criterion joined with AND, e.g. Where("email = ?", email).
func (s *Specification[T]) Where(query string, args ...interface{}) *Specification[T] {
	s.criteria = append(s.criteria, criterion{query: query, args: args})
	return s
}

// WhereOr adds a criterion joined with OR.
func (s *Specification[T]) WhereOr(query string, args ...interface{}) *Specification[T] {
	s.criteria = append(s.criteria, criterion{query: query, args: args, or: true})
	return s
}

// Include loads a Bun relation declared on T.
func (s *Specification[T]) Include(relation string) *Specification[T] {
	s.includes = append(s.includes, relation)
	return s
}

func (s *Specification[T]) OrderBy(column string) *Specification[T] {
	s.orders = append(s.orders, column+" ASC")
	return s
}

func (s *Specification[T]) OrderByDescending(column string) *Specification[T] {
	s.orders = append(s.orders, column+" DESC")
	return s
}

// ApplyPaging skips skip rows and keeps at most take.
func (s *Specification[T]) ApplyPaging(skip, take int) *Specification[T] {
	s.skip, s.take, s.paging = skip, take, true
	return s
}

func (s *Specification[T]) IsPagingEnabled() bool {
	return s != nil && s.paging
}

func (s *Specification[T]) HasOrder() bool {
	return s != nil && len(s.orders) > 0
}

// ApplyFilter adds includes and criteria to q.
func (s *Specification[T]) ApplyFilter(q *bun.SelectQuery) *bun.SelectQuery {
	if s == nil {
		return q
	}
	for _, rel := range s.includes {
		q = q.Relation(rel)
	}
	if len(s.criteria) == 0 {
		return q
	}
	return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, c := range s.criteria {
			if c.or {
				q = q.WhereOr(c.query, c.args...)
			} else {
				q = q.Where(c.query, c.args...)
			}
		}
		return q
	})
}

// ApplyCriteria adds includes, criteria and ordering to q.
func (s *Specification[T]) ApplyCriteria(q *bun.SelectQuery) *bun.SelectQuery {
	q = s.ApplyFilter(q)
	if s.HasOrder() {
		q = q.Order(s.orders...)
	}
	return q
}

// Apply adds everything, paging included, to q.
func (s *Specification[T]) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	q = s.ApplyCriteria(q)
	if s.IsPagingEnabled() {
		q = q.Offset(s.skip).Limit(s.take)
	}
	return q
}
