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

package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel(" warning "))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel(""))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("nonsense"))
}

func TestNewLoggerIsCachedByName(t *testing.T) {
	a := NewLogger("TEST-CACHE")
	b := NewLogger("TEST-CACHE")
	assert.Same(t, a, b)
}

func TestJSONLogFormatterLiftsRequestFields(t *testing.T) {
	f := &JSONLogFormatter{LoggerName: "EXCEPTION"}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.ErrorLevel,
		Message: "Request failed",
		Data: logrus.Fields{
			"method":        "GET",
			"path":          "/api/ping",
			"status":        500,
			"errorId":       "abc",
			logrus.ErrorKey: errors.New("connection reset"),
			"attempt":       2,
		},
	}
	out, err := f.Format(entry)
	require.NoError(t, err)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &rec))
	assert.Equal(t, "EXCEPTION", rec["logger"])
	assert.Equal(t, "GET", rec["method"])
	assert.Equal(t, "/api/ping", rec["path"])
	assert.EqualValues(t, 500, rec["status"])
	assert.Equal(t, "abc", rec["errorId"])
	assert.Equal(t, "connection reset", rec["error"])
	assert.Equal(t, map[string]interface{}{"attempt": float64(2)}, rec["fields"])
}

func TestLog4jColorFormatterPlain(t *testing.T) {
	f := &Log4jColorFormatter{LoggerName: "DATABASE", NameWidth: 10}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "Current DB Provider : mysql",
		Data:    logrus.Fields{"b": 2, "a": 1},
	}
	out, err := f.Format(entry)
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "2025-01-02 03:04:05.000")
	assert.Contains(t, s, "   INFO")
	assert.Contains(t, s, "  DATABASE : Current DB Provider : mysql a=1 b=2\n")
}

func TestLog4jColorFormatterColored(t *testing.T) {
	f := &Log4jColorFormatter{LoggerName: "HEALTH", NameWidth: 10, Color: true}
	out, err := f.Format(&logrus.Entry{Time: time.Now(), Level: logrus.WarnLevel, Message: "degraded"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "\x1b[")
	assert.Contains(t, string(out), "degraded")
}

func TestLogColorFollowsEnvironment(t *testing.T) {
	var buf bytes.Buffer
	ConfigureOutput(&buf)
	t.Cleanup(func() { ConfigureOutput(os.Stdout) })

	t.Setenv("LOG_COLOR", "true")
	f, ok := newFormatter("COLOR").(*Log4jColorFormatter)
	require.True(t, ok)
	assert.True(t, f.Color)

	t.Setenv("LOG_COLOR", "nope")
	f = newFormatter("COLOR").(*Log4jColorFormatter)
	assert.False(t, f.Color, "a malformed value falls back to terminal detection")
}
