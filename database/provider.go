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
	"github.com/tomoncle/anvil/types"
)

// ProviderKey identifies a supported relational database driver.
type ProviderKey int

const (
	UnknownProvider ProviderKey = iota
	SqlServer
	MySql
)

var _ types.BaseEnum = SqlServer

var providerKeys = map[ProviderKey]struct {
	key, name, desc, driver string
}{
	SqlServer: {key: "mssql", name: "SqlServer", desc: "Microsoft SQL Server", driver: "sqlserver"},
	MySql:     {key: "mysql", name: "MySql", desc: "MySQL", driver: "mysql"},
}

// Providers lists the supported providers.
func Providers() []ProviderKey {
	return []ProviderKey{SqlServer, MySql}
}

// ParseProviderKey resolves a provider key ("mssql", "mysql")
// case-insensitively.
func ParseProviderKey(s string) (ProviderKey, error) {
	if p, ok := types.ParseEnum(s, Providers()); ok {
		return p, nil
	}
	return UnknownProvider, NewConfigError("DB Provider %s is not supported.", s)
}

func (p ProviderKey) IsValid() bool {
	_, ok := providerKeys[p]
	return ok
}

func (p ProviderKey) Number() int {
	if !p.IsValid() {
		return types.IllegalValue
	}
	return int(p)
}

// String returns the configuration key, e.g. "mysql".
func (p ProviderKey) String() string {
	if !p.IsValid() {
		return types.IllegalName
	}
	return providerKeys[p].key
}

func (p ProviderKey) Name() string {
	if !p.IsValid() {
		return types.IllegalName
	}
	return providerKeys[p].name
}

func (p ProviderKey) Desc() string {
	if !p.IsValid() {
		return types.IllegalDesc
	}
	return providerKeys[p].desc
}

// DriverName is the database/sql driver registered for the provider.
func (p ProviderKey) DriverName() string {
	return providerKeys[p].driver
}
