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
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/anvil/container"
	"github.com/tomoncle/anvil/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type widget struct {
	bun.BaseModel `bun:"table:widgets,alias:w"`

	ID     int64  `bun:"id,pk,autoincrement"`
	Name   string `bun:"name,notnull,unique"`
	Color  string `bun:"color"`
	Weight int    `bun:"weight"`
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.NewCreateTable().Model((*widget)(nil)).IfNotExists().Exec(context.Background())
	require.NoError(t, err)
	return db
}

func seedWidgets(t *testing.T, repo Repository[widget]) {
	t.Helper()
	err := repo.Create(context.Background(),
		&widget{Name: "bolt", Color: "red", Weight: 3},
		&widget{Name: "nut", Color: "blue", Weight: 1},
		&widget{Name: "gear", Color: "red", Weight: 7},
		&widget{Name: "spring", Color: "green", Weight: 2},
		&widget{Name: "washer", Color: "red", Weight: 1},
	)
	require.NoError(t, err)
}

func TestRepositoryQueries(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository[widget](newTestDB(t))
	seedWidgets(t, repo)

	total, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, total)

	reds := NewSpecification[widget]().Where("color = ?", "red").OrderByDescending("weight")
	n, err := repo.Count(ctx, reds)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	list, err := repo.List(ctx, reds)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"gear", "bolt", "washer"}, []string{list[0].Name, list[1].Name, list[2].Name})

	first, err := repo.First(ctx, reds)
	require.NoError(t, err)
	assert.Equal(t, "gear", first.Name)

	either := NewSpecification[widget]().Where("color = ?", "blue").WhereOr("color = ?", "green")
	n, err = repo.Count(ctx, either)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	exists, err := repo.Any(ctx, NewSpecification[widget]().Where("name = ?", "spring"))
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.Any(ctx, NewSpecification[widget]().Where("name = ?", "spanner"))
	require.NoError(t, err)
	assert.False(t, exists)

	paged, err := repo.List(ctx, NewSpecification[widget]().OrderBy("name").ApplyPaging(1, 2))
	require.NoError(t, err)
	require.Len(t, paged, 2)
	assert.Equal(t, "gear", paged[0].Name)
	assert.Equal(t, "nut", paged[1].Name)
}

func TestRepositoryPage(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository[widget](newTestDB(t))
	seedWidgets(t, repo)

	page, err := repo.Page(ctx, NewSpecification[widget]().OrderBy("id"), types.NewPageRequest(2, 2))
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNext)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "gear", page.Items[0].Name)

	empty, err := repo.Page(ctx, NewSpecification[widget]().Where("color = ?", "black"), types.NewPageRequest(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
}

func TestRepositoryWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository[widget](newTestDB(t))
	seedWidgets(t, repo)

	bolt, err := repo.First(ctx, NewSpecification[widget]().Where("name = ?", "bolt"))
	require.NoError(t, err)
	bolt.Weight = 4
	require.NoError(t, repo.Update(ctx, bolt))

	got, err := repo.GetByID(ctx, bolt.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Weight)

	err = repo.Upsert(ctx, []string{"weight"}, []string{"name"},
		&widget{Name: "bolt", Color: "red", Weight: 9},
		&widget{Name: "rivet", Color: "grey", Weight: 1},
	)
	require.NoError(t, err)
	got, err = repo.GetByID(ctx, bolt.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Weight)
	total, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, total)

	assert.Error(t, repo.Upsert(ctx, nil, nil, bolt))

	require.NoError(t, repo.DeleteByID(ctx, bolt.ID))
	_, err = repo.GetByID(ctx, bolt.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	nut, err := repo.First(ctx, NewSpecification[widget]().Where("name = ?", "nut"))
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, nut))
	total, err = repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}

func TestRepositoryRunInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository[widget](newTestDB(t))

	boom := errors.New("boom")
	err := repo.RunInTx(ctx, func(ctx context.Context, tx Repository[widget]) error {
		require.NoError(t, tx.Create(ctx, &widget{Name: "lost", Color: "white"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	total, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestProvideRegistersScopedRepository(t *testing.T) {
	db := newTestDB(t)
	c := container.New()
	container.Provide(c, container.Scoped, func(do.Injector) (bun.IDB, error) { return db, nil })
	Provide[widget](c)

	scope := c.CreateScope("test")
	defer scope.Close()

	repo, err := do.Invoke[Repository[widget]](scope.Injector())
	require.NoError(t, err)
	assert.Same(t, repo, do.MustInvoke[Repository[widget]](scope.Injector()))

	newSpec, err := do.Invoke[SpecificationFactory[widget]](scope.Injector())
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), &widget{Name: "cog"}))
	exists, err := repo.Any(context.Background(), newSpec().Where("name = ?", "cog"))
	require.NoError(t, err)
	assert.True(t, exists)

	for _, r := range c.Registrations() {
		assert.Equal(t, container.Scoped, r.Lifetime, r.Name)
	}
}
