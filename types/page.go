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

package types

const (
	DefaultPageSize = 10
	MaxPageSize     = 500
)

// PageRequest is a 1-based page number and a page size.
type PageRequest struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"pageSize" form:"pageSize"`
}

// NewPageRequest constructs a PageRequest; out of range values are clamped
// when read.
func NewPageRequest(page int, pageSize int) PageRequest {
	return PageRequest{Page: page, PageSize: pageSize}
}

func (p PageRequest) GetPage() int {
	if p.Page < 1 {
		return 1
	}
	return p.Page
}

func (p PageRequest) GetPageSize() int {
	switch {
	case p.PageSize < 1:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

func (p PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// Pagination holds one page of items along with paging metadata.
type Pagination[T any] struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	Items      []*T `json:"items"`
}

// NewPagination builds the page envelope for total matching rows.
func NewPagination[T any](req PageRequest, total int, items []*T) *Pagination[T] {
	if items == nil {
		items = make([]*T, 0)
	}
	size := req.GetPageSize()
	pages := (total + size - 1) / size
	return &Pagination[T]{
		Page:       req.GetPage(),
		PageSize:   size,
		Total:      total,
		TotalPages: pages,
		HasNext:    req.GetPage() < pages,
		Items:      items,
	}
}
