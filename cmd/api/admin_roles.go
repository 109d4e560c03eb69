package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"loft/internal/domain/accesscontrol"

	"github.com/go-chi/chi/v5"
)

type assignRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// knownRoles guards assignment against typos; the roles table is seeded with
// exactly these names.
var knownRoles = map[accesscontrol.RoleName]bool{
	accesscontrol.RoleAdmin:    true,
	accesscontrol.RoleManager:  true,
	accesscontrol.RoleDesigner: true,
	accesscontrol.RoleGuest:    true,
}

// AdminGetUserRoles godoc
//
//	@Summary		List a user's roles
//	@Description	Returns every role held by the given user
//	@Tags			admin
//	@Produce		json
//	@Param			userID	path		int	true	"User ID"
//	@Success		200		{array}		accesscontrol.Role
//	@Failure		400		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/users/{userID}/roles [get]
func (app *application) adminGetUserRolesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid userID"))
		return
	}

	roles, err := app.store.AccessControl.GetUserRoles(ctx, userID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, roles); err != nil {
		app.internalServerError(w, r, err)
	}
}

// AdminAssignUserRole godoc
//
//	@Summary		Assign a role to a user
//	@Description	Grants the named role to the user. Assigning an already held role is a no-op.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			userID	path		int					true	"User ID"
//	@Param			body	body		assignRoleRequest	true	"Role name (admin, manager, designer, guest)"
//	@Success		200		{object}	map[string]string
//	@Failure		400		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/users/{userID}/roles [post]
func (app *application) adminAssignUserRoleHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid userID"))
		return
	}

	var in assignRoleRequest
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	role := accesscontrol.RoleName(strings.ToLower(strings.TrimSpace(in.Role)))
	if !knownRoles[role] {
		app.badRequestResponse(w, r, fmt.Errorf("unknown role %q", in.Role))
		return
	}

	if err := app.store.AccessControl.AssignRole(ctx, userID, role); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, map[string]string{
		"message": "role assigned",
	})
}

// AdminRemoveUserRole godoc
//
//	@Summary		Remove a role from a user
//	@Description	Revokes the named role from the user
//	@Tags			admin
//	@Produce		json
//	@Param			userID		path		int		true	"User ID"
//	@Param			roleName	path		string	true	"Role name"
//	@Success		200			{object}	map[string]string
//	@Failure		400			{object}	error
//	@Failure		404			{object}	error	"Role not held by user"
//	@Security		ApiKeyAuth
//	@Router			/admin/users/{userID}/roles/{roleName} [delete]
func (app *application) adminRemoveUserRoleHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid userID"))
		return
	}

	role := accesscontrol.RoleName(strings.ToLower(chi.URLParam(r, "roleName")))
	if !knownRoles[role] {
		app.badRequestResponse(w, r, fmt.Errorf("unknown role %q", role))
		return
	}

	if err := app.store.AccessControl.RemoveRole(ctx, userID, role); err != nil {
		if strings.Contains(err.Error(), "not held") {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, map[string]string{
		"message": "role removed",
	})
}
