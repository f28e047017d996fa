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

// Package middleware holds the request pipeline: error rendering, bearer
// authentication and per-endpoint authorization.
package middleware

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/anvil/utils"
)

// Middleware is a named pipeline stage.
type Middleware struct {
	Name    string
	Handler gin.HandlerFunc
}

const (
	ExceptionName      = "exception"
	AuthenticationName = "authentication"
	AuthorizationName  = "authorization"
)

// ErrorResult is the body of every error response.
type ErrorResult struct {
	Messages       []string `json:"messages"`
	Source         string   `json:"source,omitempty"`
	Exception      string   `json:"exception,omitempty"`
	ErrorID        string   `json:"errorId"`
	SupportMessage string   `json:"supportMessage,omitempty"`
	StatusCode     int      `json:"statusCode"`
}

type statusCoder interface {
	HTTPStatus() int
}

type messenger interface {
	ErrorMessages() []string
}

// StatusOf maps err to an HTTP status.
func StatusOf(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// ExceptionMiddleware renders errors attached with c.Error and recovered
// panics as ErrorResult.
type ExceptionMiddleware struct {
	logger *logrus.Logger
}

func NewExceptionMiddleware() *ExceptionMiddleware {
	return &ExceptionMiddleware{logger: utils.NewLogger("EXCEPTION")}
}

func (m *ExceptionMiddleware) Middleware() Middleware {
	return Middleware{Name: ExceptionName, Handler: m.Handle}
}

func (m *ExceptionMiddleware) Handle(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			m.render(c, err)
			c.Abort()
		}
	}()
	c.Next()

	if len(c.Errors) > 0 && !c.Writer.Written() {
		m.render(c, c.Errors.Last().Err)
	}
}

func (m *ExceptionMiddleware) render(c *gin.Context, err error) {
	status := StatusOf(err)
	result := ErrorResult{
		Source:     c.HandlerName(),
		Exception:  err.Error(),
		ErrorID:    uuid.NewString(),
		StatusCode: status,
	}
	var msg messenger
	if errors.As(err, &msg) && len(msg.ErrorMessages()) > 0 {
		result.Messages = msg.ErrorMessages()
	} else if status == http.StatusNotFound {
		result.Messages = []string{"Resource not found."}
	} else {
		result.Messages = []string{err.Error()}
	}
	if status >= http.StatusInternalServerError {
		result.Messages = []string{"An unexpected error occurred."}
		result.SupportMessage = fmt.Sprintf("Provide the ErrorId %s to the support team for further analysis.", result.ErrorID)
	}

	entry := m.logger.WithFields(logrus.Fields{
		"errorId": result.ErrorID,
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  status,
	})
	if status >= http.StatusInternalServerError {
		entry.WithError(err).Error("Request failed")
	} else {
		entry.WithError(err).Warn("Request rejected")
	}
	c.JSON(status, result)
}

// abort writes an error result without an underlying error.
func abort(c *gin.Context, status int, messages ...string) {
	c.AbortWithStatusJSON(status, ErrorResult{
		Messages:   messages,
		ErrorID:    uuid.NewString(),
		StatusCode: status,
	})
}
