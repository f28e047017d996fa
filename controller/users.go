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

package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/do/v2"
	"github.com/tomoncle/anvil/container"
	"github.com/tomoncle/anvil/identity"
	"github.com/tomoncle/anvil/middleware"
	"github.com/tomoncle/anvil/types"
)

type UserDetails struct {
	ID             string   `json:"id"`
	UserName       string   `json:"userName"`
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	Email          string   `json:"email"`
	PhoneNumber    string   `json:"phoneNumber"`
	IsActive       bool     `json:"isActive"`
	EmailConfirmed bool     `json:"emailConfirmed"`
	Roles          []string `json:"roles,omitempty"`
}

func toUserDetails(u *identity.ApplicationUser, roles []string) UserDetails {
	return UserDetails{
		ID:             u.ID,
		UserName:       u.UserName,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		PhoneNumber:    u.PhoneNumber,
		IsActive:       u.IsActive,
		EmailConfirmed: u.EmailConfirmed,
		Roles:          roles,
	}
}

type CreateUserRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	UserName        string `json:"userName" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
	PhoneNumber     string `json:"phoneNumber"`
}

type UsersController struct {
	c *container.Container
}

func NewUsersController(c *container.Container) *UsersController {
	return &UsersController{c: c}
}

func (u *UsersController) Name() string { return "users" }

func (u *UsersController) Routes() []Route {
	admin := middleware.RequireAuthorization(identity.RoleAdmin)
	return []Route{
		{Method: http.MethodGet, Path: "/api/users", Policy: admin, Handler: Scoped(u.c, u.list)},
		{Method: http.MethodGet, Path: "/api/users/me", Handler: Scoped(u.c, u.me)},
		{Method: http.MethodGet, Path: "/api/users/:id", Policy: admin, Handler: Scoped(u.c, u.get)},
		{Method: http.MethodPost, Path: "/api/users", Policy: admin, Handler: Scoped(u.c, u.create)},
	}
}

// list handles GET /api/users
func (u *UsersController) list(c *gin.Context, scope do.Injector) error {
	var page types.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		return identity.ValidationError(err.Error())
	}
	users, err := do.Invoke[*identity.UserManager](scope)
	if err != nil {
		return err
	}
	result, err := users.List(c.Request.Context(), page)
	if err != nil {
		return err
	}
	items := make([]UserDetails, len(result.Items))
	for i, user := range result.Items {
		items[i] = toUserDetails(user, nil)
	}
	c.JSON(http.StatusOK, gin.H{
		"page":       result.Page,
		"pageSize":   result.PageSize,
		"total":      result.Total,
		"totalPages": result.TotalPages,
		"hasNext":    result.HasNext,
		"items":      items,
	})
	return nil
}

func (u *UsersController) details(c *gin.Context, scope do.Injector, id string) error {
	users, err := do.Invoke[*identity.UserManager](scope)
	if err != nil {
		return err
	}
	user, err := users.FindByID(c.Request.Context(), id)
	if err != nil {
		return err
	}
	roles, err := users.GetRoles(c.Request.Context(), user)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, toUserDetails(user, roles))
	return nil
}

// me handles GET /api/users/me
func (u *UsersController) me(c *gin.Context, scope do.Injector) error {
	return u.details(c, scope, middleware.CurrentUser(c).UserID)
}

// get handles GET /api/users/:id
func (u *UsersController) get(c *gin.Context, scope do.Injector) error {
	return u.details(c, scope, c.Param("id"))
}

// create handles POST /api/users
func (u *UsersController) create(c *gin.Context, scope do.Injector) error {
	var req CreateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Password != req.ConfirmPassword {
		return identity.ValidationError("Passwords do not match.")
	}
	users, err := do.Invoke[*identity.UserManager](scope)
	if err != nil {
		return err
	}
	user := &identity.ApplicationUser{
		UserName:    req.UserName,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		IsActive:    true,
	}
	if err := users.Create(c.Request.Context(), user, req.Password); err != nil {
		return err
	}
	if err := users.AddToRole(c.Request.Context(), user, identity.RoleBasic); err != nil {
		return err
	}
	c.JSON(http.StatusCreated, toUserDetails(user, []string{identity.RoleBasic}))
	return nil
}
