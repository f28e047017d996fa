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

// Package health runs registered health checks and serves their report.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/tomoncle/anvil/types"
	"github.com/tomoncle/anvil/utils"
	"golang.org/x/sync/errgroup"
)

var logger = utils.NewLogger("HEALTH")

// DefaultTimeout bounds a single check when the registry has no timeout.
const DefaultTimeout = 5 * time.Second

// MaxParallelChecks caps how many checks Run executes at once.
const MaxParallelChecks = 8

// Status is the outcome of a check. Lower values are worse.
type Status int

const (
	Unhealthy Status = iota
	Degraded
	Healthy
)

var _ types.BaseEnum = Healthy

var statusNames = map[Status][2]string{
	Unhealthy: {"Unhealthy", "the component is not working"},
	Degraded:  {"Degraded", "the component works with reduced capability"},
	Healthy:   {"Healthy", "the component works"},
}

func (s Status) IsValid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s Status) Number() int {
	if !s.IsValid() {
		return types.IllegalValue
	}
	return int(s)
}

func (s Status) String() string { return s.Name() }

func (s Status) Name() string {
	if !s.IsValid() {
		return types.IllegalName
	}
	return statusNames[s][0]
}

func (s Status) Desc() string {
	if !s.IsValid() {
		return types.IllegalDesc
	}
	return statusNames[s][1]
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Name())
}

// Result is what a check reports.
type Result struct {
	Status      Status
	Description string
	Err         error
	Data        map[string]interface{}
}

func HealthyResult(description string) Result {
	return Result{Status: Healthy, Description: description}
}

func DegradedResult(description string, err error) Result {
	return Result{Status: Degraded, Description: description, Err: err}
}

func UnhealthyResult(description string, err error) Result {
	return Result{Status: Unhealthy, Description: description, Err: err}
}

// Check is one named health probe.
type Check interface {
	Name() string
	Check(ctx context.Context) Result
}

type checkFunc struct {
	name string
	fn   func(ctx context.Context) Result
}

func (c *checkFunc) Name() string                     { return c.name }
func (c *checkFunc) Check(ctx context.Context) Result { return c.fn(ctx) }

// NewCheck adapts a function to a Check.
func NewCheck(name string, fn func(ctx context.Context) Result) Check {
	return &checkFunc{name: name, fn: fn}
}

// Entry is the outcome of one check within a Report.
type Entry struct {
	Status      Status                 `json:"status"`
	Description string                 `json:"description,omitempty"`
	Duration    string                 `json:"duration"`
	Error       string                 `json:"error,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// Report aggregates every entry. Its status is the worst entry status, and
// Healthy when no checks are registered.
type Report struct {
	Status        Status           `json:"status"`
	TotalDuration string           `json:"totalDuration"`
	Entries       map[string]Entry `json:"entries"`
}

// Registry holds the checks served by the health endpoint.
type Registry struct {
	mu      sync.RWMutex
	checks  []Check
	timeout time.Duration
}

func NewRegistry(timeout time.Duration, checks ...Check) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{checks: checks, timeout: timeout}
}

func (r *Registry) Add(check Check) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks = append(r.checks, check)
}

func (r *Registry) Checks() []Check {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Check(nil), r.checks...)
}

// Run executes the checks concurrently, at most MaxParallelChecks at a time,
// each bounded by the registry timeout. A check that panics or times out is
// reported unhealthy.
func (r *Registry) Run(ctx context.Context) Report {
	checks := r.Checks()
	start := time.Now()
	entries := make([]Entry, len(checks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxParallelChecks)
	for i, check := range checks {
		g.Go(func() error {
			entries[i] = r.runOne(gctx, check)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		Status:        Healthy,
		TotalDuration: time.Since(start).String(),
		Entries:       make(map[string]Entry, len(checks)),
	}
	for i, check := range checks {
		entry := entries[i]
		report.Entries[check.Name()] = entry
		if entry.Status < report.Status {
			report.Status = entry.Status
		}
		if entry.Status != Healthy {
			logger.WithField("check", check.Name()).WithField("status", entry.Status.Name()).Warn(entry.Error)
		}
	}
	return report
}

func (r *Registry) runOne(ctx context.Context, check Check) (entry Entry) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	defer func() { entry.Duration = time.Since(start).String() }()

	done := make(chan Result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- UnhealthyResult("", fmt.Errorf("check panicked: %v", p))
			}
		}()
		done <- check.Check(ctx)
	}()

	var result Result
	select {
	case result = <-done:
	case <-ctx.Done():
		result = UnhealthyResult("", fmt.Errorf("check timed out after %s", r.timeout))
	}
	entry = Entry{Status: result.Status, Description: result.Description, Data: result.Data}
	if !result.Status.IsValid() {
		entry.Status = Unhealthy
	}
	if result.Err != nil {
		entry.Error = result.Err.Error()
	}
	return entry
}
