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
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	mssql "github.com/microsoft/go-mssqldb"
)

// ErrConfiguration matches every error raised for invalid database settings.
var ErrConfiguration = errors.New("database configuration error")

// ConfigError reports invalid database settings. It is fatal at startup.
type ConfigError struct {
	Message string
	Err     error
}

// NewConfigError formats a configuration error message.
func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return e.Message + " " + e.Err.Error()
	}
	return e.Message
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoIndexErr
	NoColumnErr
	ExistIndexErr
	ExistColumnErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
)

// IsSqlError classifies driver errors from MySQL and SQL Server, falling back
// to message matching for other drivers.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1091:
			return true, NoIndexErr
		case 1054:
			return true, NoColumnErr
		case 1061:
			return true, ExistIndexErr
		case 1060:
			return true, ExistColumnErr
		case 1146:
			return true, NoTableErr
		case 1050:
			return true, ExistTableErr
		case 1062:
			return true, DuplicateKeyErr
		case 1048:
			return true, NotNullViolationErr
		case 1216, 1217, 1451, 1452:
			return true, ForeignKeyViolationErr
		case 3819:
			return true, CheckConstraintViolationErr
		case 1265, 1406:
			return true, DataTruncatedErr
		default:
			return true, UnknownErr
		}
	}
	var mssqlErr mssql.Error
	if errors.As(err, &mssqlErr) {
		switch mssqlErr.Number {
		case 3701:
			return true, NoIndexErr
		case 207:
			return true, NoColumnErr
		case 1913:
			return true, ExistIndexErr
		case 2705:
			return true, ExistColumnErr
		case 208:
			return true, NoTableErr
		case 2714:
			return true, ExistTableErr
		case 2601, 2627:
			return true, DuplicateKeyErr
		case 515:
			return true, NotNullViolationErr
		case 547:
			if strings.Contains(strings.ToLower(mssqlErr.Message), "check constraint") {
				return true, CheckConstraintViolationErr
			}
			return true, ForeignKeyViolationErr
		case 2628, 8152:
			return true, DataTruncatedErr
		case 245, 8114:
			return true, InvalidTypeCastErr
		default:
			return true, UnknownErr
		}
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "no such column") {
		return true, NoColumnErr
	}
	if strings.Contains(s, "no such index") {
		return true, NoIndexErr
	}
	if strings.Contains(s, "no such table") {
		return true, NoTableErr
	}
	if strings.Contains(s, "already exists") && strings.Contains(s, "index") {
		return true, ExistIndexErr
	}
	if strings.Contains(s, "already exists") && strings.Contains(s, "table") {
		return true, ExistTableErr
	}
	if strings.Contains(s, "unique constraint failed") {
		return true, DuplicateKeyErr
	}
	if strings.Contains(s, "not null constraint failed") {
		return true, NotNullViolationErr
	}
	if strings.Contains(s, "foreign key constraint failed") {
		return true, ForeignKeyViolationErr
	}
	if strings.Contains(s, "check constraint") {
		return true, CheckConstraintViolationErr
	}
	return false, UnknownErr
}
