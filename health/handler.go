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
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler serves the registry report as JSON: 200 while healthy or degraded,
// 503 when unhealthy.
func Handler(r *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := r.Run(c.Request.Context())
		code := http.StatusOK
		if report.Status == Unhealthy {
			code = http.StatusServiceUnavailable
		}
		c.Header("Cache-Control", "no-store, no-cache")
		c.JSON(code, report)
	}
}
