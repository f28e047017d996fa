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

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyRegistryIsHealthy(t *testing.T) {
	report := NewRegistry(0).Run(context.Background())
	assert.Equal(t, Healthy, report.Status)
	assert.Empty(t, report.Entries)
}

func TestReportTakesWorstStatus(t *testing.T) {
	r := NewRegistry(time.Second,
		NewCheck("ok", func(context.Context) Result { return HealthyResult("fine") }),
		NewCheck("slow", func(context.Context) Result { return DegradedResult("lagging", errors.New("replica lag")) }),
	)
	report := r.Run(context.Background())
	assert.Equal(t, Degraded, report.Status)
	assert.Equal(t, "fine", report.Entries["ok"].Description)
	assert.Equal(t, "replica lag", report.Entries["slow"].Error)

	r.Add(NewCheck("down", func(context.Context) Result { return UnhealthyResult("", errors.New("refused")) }))
	assert.Equal(t, Unhealthy, r.Run(context.Background()).Status)
}

func TestTimeoutAndPanicAreUnhealthy(t *testing.T) {
	r := NewRegistry(20*time.Millisecond,
		NewCheck("hang", func(ctx context.Context) Result {
			<-ctx.Done()
			time.Sleep(10 * time.Millisecond)
			return HealthyResult("too late")
		}),
		NewCheck("boom", func(context.Context) Result { panic("kaboom") }),
	)
	report := r.Run(context.Background())
	assert.Equal(t, Unhealthy, report.Status)
	assert.Contains(t, report.Entries["hang"].Error, "timed out")
	assert.Contains(t, report.Entries["boom"].Error, "kaboom")
}

func TestRunCapsParallelChecks(t *testing.T) {
	var running, peak atomic.Int32
	r := NewRegistry(time.Second)
	for n := 0; n < 3*MaxParallelChecks; n++ {
		r.Add(NewCheck("check-"+strconv.Itoa(n), func(context.Context) Result {
			cur := running.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return HealthyResult("")
		}))
	}

	report := r.Run(context.Background())
	assert.Equal(t, Healthy, report.Status)
	assert.Len(t, report.Entries, 3*MaxParallelChecks)
	assert.LessOrEqual(t, peak.Load(), int32(MaxParallelChecks))
}

func TestStatusEnum(t *testing.T) {
	assert.Equal(t, "Degraded", Degraded.String())
	assert.False(t, Status(9).IsValid())
	assert.Equal(t, -1, Status(9).Number())
	out, err := json.Marshal(Healthy)
	require.NoError(t, err)
	assert.Equal(t, `"Healthy"`, string(out))
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := true
	r := NewRegistry(time.Second, NewCheck("database", func(context.Context) Result {
		if healthy {
			return HealthyResult("")
		}
		return UnhealthyResult("", errors.New("connection refused"))
	}))
	engine := gin.New()
	engine.GET("/api/ping", Handler(r))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Healthy", body["status"])

	healthy = false
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}
