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

package container

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/samber/do/v2"
)

// Lifetime controls how long a resolved service instance lives.
type Lifetime int

const (
	// Singleton instances are created once, on first resolution, in the root scope.
	Singleton Lifetime = iota
	// Scoped instances are created once per Scope and released with it.
	Scoped
	// Transient instances are created on every resolution.
	Transient
)

func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case Scoped:
		return "scoped"
	case Transient:
		return "transient"
	default:
		return "unknown"
	}
}

// Registration records one service declared on the container.
type Registration struct {
	Name     string
	Lifetime Lifetime
}

// Container is the application service collection. Singleton and transient
// services are declared on the root injector; scoped services are replayed
// into every Scope created from the container.
type Container struct {
	mu            sync.Mutex
	root          *do.RootScope
	registrations []Registration
	scoped        []func(do.Injector)
	forwards      []func(do.Injector)
	groups        map[string]int
	scopeSeq      atomic.Uint64
}

// New returns an empty container. The container resolves itself as
// *Container so providers can reach group registrations.
func New() *Container {
	c := &Container{
		root:   do.New(),
		groups: make(map[string]int),
	}
	do.ProvideValue(c.root, c)
	c.forwards = append(c.forwards, forward[*Container](c.root, do.NameOf[*Container]()))
	return c
}

// Injector returns the root injector.
func (c *Container) Injector() do.Injector {
	return c.root
}

// Registrations returns the services declared so far, in declaration order.
func (c *Container) Registrations() []Registration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.registrations)
}

// Has reports whether a service with the given name was declared.
func (c *Container) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.registrations {
		if r.Name == name {
			return true
		}
	}
	return false
}

// Shutdown releases every singleton that implements one of the do shutdown
// interfaces, such as the database context.
func (c *Container) Shutdown() {
	c.root.Shutdown()
}

// Provide declares a service of type T with the given lifetime.
func Provide[T any](c *Container, lifetime Lifetime, provider do.Provider[T]) {
	ProvideNamed(c, do.NameOf[T](), lifetime, provider)
}

// ProvideNamed declares a service of type T under an explicit name.
func ProvideNamed[T any](c *Container, name string, lifetime Lifetime, provider do.Provider[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registrations = append(c.registrations, Registration{Name: name, Lifetime: lifetime})
	switch lifetime {
	case Transient:
		do.ProvideNamedTransient(c.root, name, provider)
		c.scoped = append(c.scoped, func(i do.Injector) {
			do.ProvideNamedTransient(i, name, provider)
		})
		return
	case Scoped:
		c.scoped = append(c.scoped, func(i do.Injector) {
			do.ProvideNamed(i, name, provider)
		})
		return
	default:
		do.ProvideNamed(c.root, name, provider)
	}
	c.forwards = append(c.forwards, forward[T](c.root, name))
}

// ProvideValue declares an already-built singleton.
func ProvideValue[T any](c *Container, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registrations = append(c.registrations, Registration{Name: do.NameOf[T](), Lifetime: Singleton})
	do.ProvideValue(c.root, value)
	c.forwards = append(c.forwards, forward[T](c.root, do.NameOf[T]()))
}

// forward exposes a root service inside a scope. It is declared transient so
// that closing the scope never shuts the root instance down.
func forward[T any](root *do.RootScope, name string) func(do.Injector) {
	return func(i do.Injector) {
		do.ProvideNamedTransient(i, name, func(do.Injector) (T, error) {
			return do.InvokeNamed[T](root, name)
		})
	}
}

// ProvideGroup adds one member to the group of services of type T. Members are
// resolved together, in declaration order, with InvokeGroup.
func ProvideGroup[T any](c *Container, lifetime Lifetime, provider do.Provider[T]) {
	key := do.NameOf[T]()
	c.mu.Lock()
	n := c.groups[key]
	c.groups[key] = n + 1
	c.mu.Unlock()
	ProvideNamed(c, groupMemberName(key, n), lifetime, provider)
}

// InvokeGroup resolves every member of the group of T from injector i.
func InvokeGroup[T any](i do.Injector) ([]T, error) {
	c, err := do.Invoke[*Container](i)
	if err != nil {
		return nil, fmt.Errorf("container not registered on injector: %w", err)
	}
	key := do.NameOf[T]()
	c.mu.Lock()
	count := c.groups[key]
	c.mu.Unlock()

	members := make([]T, 0, count)
	for n := 0; n < count; n++ {
		member, err := do.InvokeNamed[T](i, groupMemberName(key, n))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", groupMemberName(key, n), err)
		}
		members = append(members, member)
	}
	return members, nil
}

func groupMemberName(key string, n int) string {
	return fmt.Sprintf("%s#%d", key, n)
}

// Scope is a bounded container lifetime: one request or one startup task.
// It owns a private injector, so nothing is left behind on the root once it
// is closed.
type Scope struct {
	name     string
	injector *do.RootScope
}

// CreateScope opens a scope holding fresh instances of every scoped service.
// Transient services are built inside the scope, so they may depend on scoped
// ones; singletons resolve through the root. Callers must Close it.
func (c *Container) CreateScope(name string) *Scope {
	c.mu.Lock()
	packages := make([]func(do.Injector), 0, len(c.forwards)+len(c.scoped))
	packages = append(packages, c.forwards...)
	packages = append(packages, c.scoped...)
	c.mu.Unlock()
	id := c.scopeSeq.Add(1)
	return &Scope{name: fmt.Sprintf("%s-%d", name, id), injector: do.New(packages...)}
}

// Name returns the unique scope name, e.g. "request-42".
func (s *Scope) Name() string {
	return s.name
}

// Injector returns the scope injector.
func (s *Scope) Injector() do.Injector {
	return s.injector
}

// Close shuts the scoped instances down. Root services are untouched.
func (s *Scope) Close() {
	s.injector.Shutdown()
}
