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
	"time"
)

// HealthStatus is the outcome of one Context.HealthCheck.
type HealthStatus struct {
	Healthy   bool          `json:"healthy"`
	Provider  string        `json:"provider"`
	Latency   time.Duration `json:"latency"`
	Pool      PoolStats     `json:"pool"`
	LastError string        `json:"lastError,omitempty"`
	CheckedAt time.Time     `json:"checkedAt"`
}

// PoolStats is the connection pool usage reported with health results.
type PoolStats struct {
	MaxOpen      int           `json:"maxOpen"`
	Open         int           `json:"open"`
	InUse        int           `json:"inUse"`
	Idle         int           `json:"idle"`
	WaitCount    int64         `json:"waitCount"`
	WaitDuration time.Duration `json:"waitDuration"`
	// Closed counts connections closed by the idle and lifetime limits.
	Closed int64 `json:"closed"`
}

func newPoolStats(s sql.DBStats) PoolStats {
	return PoolStats{
		MaxOpen:      s.MaxOpenConnections,
		Open:         s.OpenConnections,
		InUse:        s.InUse,
		Idle:         s.Idle,
		WaitCount:    s.WaitCount,
		WaitDuration: s.WaitDuration,
		Closed:       s.MaxIdleClosed + s.MaxIdleTimeClosed + s.MaxLifetimeClosed,
	}
}

// Data flattens the status into health result data.
func (s *HealthStatus) Data() map[string]interface{} {
	return map[string]interface{}{
		"provider": s.Provider,
		"latency":  s.Latency.String(),
		"inUse":    s.Pool.InUse,
		"idle":     s.Pool.Idle,
		"maxOpen":  s.Pool.MaxOpen,
	}
}
