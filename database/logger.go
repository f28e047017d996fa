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
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/anvil/utils"
)

// Logger is the key/value logger used by the persistence layer. Fields are
// passed as alternating keys and values.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

var (
	pkgLogger   Logger
	pkgLoggerMu sync.RWMutex
)

// SetLogger swaps the package logger and returns the one it replaced. Passing
// nil brings back the DATABASE logrus logger on next use.
func SetLogger(log Logger) Logger {
	pkgLoggerMu.Lock()
	defer pkgLoggerMu.Unlock()
	prev := pkgLogger
	pkgLogger = log
	return prev
}

func GetLogger() Logger {
	pkgLoggerMu.RLock()
	l := pkgLogger
	pkgLoggerMu.RUnlock()
	if l != nil {
		return l
	}

	pkgLoggerMu.Lock()
	defer pkgLoggerMu.Unlock()
	if pkgLogger == nil {
		pkgLogger = NewLogger(utils.NewLogger("DATABASE"))
	}
	return pkgLogger
}

// NewLogger adapts a logrus logger to Logger.
func NewLogger(l *utils.Logger) Logger {
	return fieldLogger{log: l}
}

type fieldLogger struct {
	log *utils.Logger
}

func (l fieldLogger) Debug(msg string, kv ...interface{}) { l.entry(kv).Debug(msg) }
func (l fieldLogger) Info(msg string, kv ...interface{})  { l.entry(kv).Info(msg) }
func (l fieldLogger) Warn(msg string, kv ...interface{})  { l.entry(kv).Warn(msg) }
func (l fieldLogger) Error(msg string, kv ...interface{}) { l.entry(kv).Error(msg) }

// entry pairs up kv; an odd trailing key is kept under "extra".
func (l fieldLogger) entry(kv []interface{}) *logrus.Entry {
	fields := make(logrus.Fields, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		if i+1 == len(kv) {
			fields["extra"] = kv[i]
			break
		}
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return l.log.WithFields(fields)
}
