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

package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/anvil/container"
	"github.com/tomoncle/anvil/repository"
	"github.com/tomoncle/anvil/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type setting struct {
	bun.BaseModel `bun:"table:settings,alias:s"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Key   string `bun:"key,notnull,unique"`
	Value string `bun:"value"`
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.NewCreateTable().Model((*setting)(nil)).Exec(context.Background())
	require.NoError(t, err)
	return db
}

func TestServiceInScope(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	c := container.New()
	container.Provide(c, container.Scoped, func(do.Injector) (bun.IDB, error) { return db, nil })
	repository.Provide[setting](c)
	Provide[setting](c)

	scope := c.CreateScope("test")
	defer scope.Close()
	svc := do.MustInvoke[Service[setting]](scope.Injector())

	require.NoError(t, svc.Save(ctx, &setting{Key: "theme", Value: "dark"}, &setting{Key: "lang", Value: "en"}))
	require.NoError(t, svc.SaveOrUpdate(ctx, []string{"value"}, []string{"key"}, &setting{Key: "lang", Value: "de"}))

	list, err := svc.List(ctx, repository.NewSpecification[setting]().OrderBy("key"))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "de", list[0].Value)

	page, err := svc.Page(ctx, nil, types.NewPageRequest(1, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalPages)

	theme := list[1]
	theme.Value = "light"
	require.NoError(t, svc.Update(ctx, theme))
	got, err := svc.Get(ctx, theme.ID)
	require.NoError(t, err)
	assert.Equal(t, "light", got.Value)

	require.NoError(t, svc.Delete(ctx, theme.ID))
	_, err = svc.Get(ctx, theme.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
