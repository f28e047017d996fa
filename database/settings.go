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
	"strings"
	"time"
)

// SectionName is the configuration section DatabaseSettings is read from.
const SectionName = "DatabaseSettings"

// DatabaseSettings selects the database driver and tunes its connection pool.
// ConnectionString and DBProvider are required.
type DatabaseSettings struct {
	ConnectionString string        `mapstructure:"ConnectionString" json:"connectionString"`
	DBProvider       string        `mapstructure:"DBProvider" json:"dbProvider"`
	MaxOpenConns     int           `mapstructure:"MaxOpenConns" json:"maxOpenConns"`
	MaxIdleConns     int           `mapstructure:"MaxIdleConns" json:"maxIdleConns"`
	ConnMaxLifetime  time.Duration `mapstructure:"ConnMaxLifetime" json:"connMaxLifetime"`
	ConnMaxIdleTime  time.Duration `mapstructure:"ConnMaxIdleTime" json:"connMaxIdleTime"`
	ConnectTimeout   time.Duration `mapstructure:"ConnectTimeout" json:"connectTimeout"`
	EnableQueryLog   bool          `mapstructure:"EnableQueryLog" json:"enableQueryLog"`
	SlowQueryTime    time.Duration `mapstructure:"SlowQueryTime" json:"slowQueryTime"`
}

// DefaultDatabaseSettings returns settings with pool defaults and no
// connection information.
func DefaultDatabaseSettings() DatabaseSettings {
	return DatabaseSettings{
		MaxOpenConns:    100,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute * 30,
		ConnectTimeout:  time.Second * 10,
		SlowQueryTime:   time.Second * 2,
	}
}

// Validate checks the required fields and resolves the provider key. A MySQL
// connection string must also be convertible to a driver DSN.
func (s DatabaseSettings) Validate() (ProviderKey, error) {
	if strings.TrimSpace(s.ConnectionString) == "" {
		return UnknownProvider, NewConfigError("DB ConnectionString is not configured.")
	}
	if strings.TrimSpace(s.DBProvider) == "" {
		return UnknownProvider, NewConfigError("DB Provider is not configured.")
	}
	provider, err := ParseProviderKey(s.DBProvider)
	if err != nil {
		return UnknownProvider, err
	}
	if provider == MySql {
		if _, err := MySQLDSN(s.ConnectionString); err != nil {
			return UnknownProvider, err
		}
	}
	return provider, nil
}
