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
	"database/sql"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/uptrace/bun/dialect/mssqldialect"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/schema"
)

// openDatabase opens the driver selected by provider. The connection is
// established lazily by database/sql.
func openDatabase(provider ProviderKey, connectionString string) (*sql.DB, schema.Dialect, error) {
	switch provider {
	case SqlServer:
		sqlDB, err := sql.Open(provider.DriverName(), connectionString)
		if err != nil {
			return nil, nil, err
		}
		return sqlDB, mssqldialect.New(), nil
	case MySql:
		dsn, err := MySQLDSN(connectionString)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := sql.Open(provider.DriverName(), dsn)
		if err != nil {
			return nil, nil, err
		}
		return sqlDB, mysqldialect.New(), nil
	default:
		return nil, nil, NewConfigError("DB Provider %s is not supported.", provider)
	}
}

var (
	adoServerKeys   = []string{"server", "host", "data source", "datasource", "address", "addr"}
	adoDatabaseKeys = []string{"database", "initial catalog"}
	adoUserKeys     = []string{"user id", "userid", "uid", "user", "username"}
	adoPasswordKeys = []string{"password", "pwd"}
)

// MySQLDSN converts a MySQL connection string to a go-sql-driver DSN. Both the
// driver's own format ("user:pass@tcp(host:3306)/db") and the key/value format
// ("Server=host;Port=3306;Database=db;Uid=user;Pwd=pass") are accepted. Times
// are always parsed into time.Time.
func MySQLDSN(connectionString string) (string, error) {
	if values, ok := parseKeyValueConnectionString(connectionString); ok {
		return keyValueMySQLDSN(values)
	}
	cfg, err := mysql.ParseDSN(connectionString)
	if err != nil {
		return "", &ConfigError{Message: "DB ConnectionString is not a valid mysql connection string:", Err: err}
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func keyValueMySQLDSN(values map[string]string) (string, error) {
	host := lookup(values, adoServerKeys)
	if host == "" {
		return "", NewConfigError("DB ConnectionString has no server.")
	}
	port := values["port"]
	if h, p, err := net.SplitHostPort(host); err == nil {
		host, port = h, p
	} else if h, p, found := strings.Cut(host, ","); found {
		host, port = strings.TrimSpace(h), strings.TrimSpace(p)
	}
	if port == "" {
		port = "3306"
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, port)
	cfg.DBName = lookup(values, adoDatabaseKeys)
	cfg.User = lookup(values, adoUserKeys)
	cfg.Passwd = lookup(values, adoPasswordKeys)
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	if charset := values["charset"]; charset != "" {
		cfg.Params["charset"] = charset
	}
	if mode := strings.ToLower(values["sslmode"]); mode == "none" || mode == "disabled" {
		cfg.TLSConfig = "false"
	}
	return cfg.FormatDSN(), nil
}

// parseKeyValueConnectionString splits "k=v;k=v" strings. It reports false
// when the input does not name a server, so driver DSNs fall through.
func parseKeyValueConnectionString(s string) (map[string]string, bool) {
	values := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, found := strings.Cut(part, "=")
		if !found {
			return nil, false
		}
		values[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return values, lookup(values, adoServerKeys) != ""
}

func lookup(values map[string]string, keys []string) string {
	for _, k := range keys {
		if v, ok := values[k]; ok {
			return v
		}
	}
	return ""
}
