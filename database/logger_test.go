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
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerPairsFields(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	NewLogger(l).Warn("slow", "duration", "2s", "query", "SELECT 1", "orphan")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "slow", rec["msg"])
	assert.Equal(t, "warning", rec["level"])
	assert.Equal(t, "2s", rec["duration"])
	assert.Equal(t, "SELECT 1", rec["query"])
	assert.Equal(t, "orphan", rec["extra"])
}

func TestSetLoggerRestoresDefault(t *testing.T) {
	rec := &recordingLogger{}
	prev := SetLogger(rec)
	assert.Same(t, rec, GetLogger())

	SetLogger(nil)
	assert.NotNil(t, GetLogger())
	assert.IsType(t, fieldLogger{}, GetLogger())
	SetLogger(prev)
}
