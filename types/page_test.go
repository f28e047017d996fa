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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequestClamps(t *testing.T) {
	p := NewPageRequest(0, 0)
	assert.Equal(t, 1, p.GetPage())
	assert.Equal(t, DefaultPageSize, p.GetPageSize())
	assert.Equal(t, 0, p.GetOffset())

	p = NewPageRequest(3, 10_000)
	assert.Equal(t, MaxPageSize, p.GetPageSize())
	assert.Equal(t, 2*MaxPageSize, p.GetOffset())
}

func TestNewPagination(t *testing.T) {
	one := 1
	pg := NewPagination(NewPageRequest(2, 10), 25, []*int{&one})
	assert.Equal(t, 3, pg.TotalPages)
	assert.True(t, pg.HasNext)
	assert.Len(t, pg.Items, 1)

	last := NewPagination[int](NewPageRequest(3, 10), 25, nil)
	assert.False(t, last.HasNext)
	assert.NotNil(t, last.Items)
}

type color int

func (c color) IsValid() bool  { return c == 1 || c == 2 }
func (c color) Number() int    { return int(c) }
func (c color) String() string { return map[color]string{1: "red", 2: "green"}[c] }
func (c color) Desc() string   { return c.String() }
func (c color) Name() string   { return c.String() }

func TestParseEnum(t *testing.T) {
	c, ok := ParseEnum(" RED ", []color{1, 2})
	assert.True(t, ok)
	assert.Equal(t, color(1), c)

	_, ok = ParseEnum("blue", []color{1, 2})
	assert.False(t, ok)
}
