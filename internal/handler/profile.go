package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kasraf/reelbase/internal/activity"
	"github.com/kasraf/reelbase/internal/auth"
	"github.com/kasraf/reelbase/internal/middleware"
	"github.com/kasraf/reelbase/internal/model"
)

// ProfileHandler serves the authenticated profile endpoints.
type ProfileHandler struct {
	Store    auth.Store
	Activity *activity.Logger
}

func NewProfileHandler(store auth.Store, logger *activity.Logger) *ProfileHandler {
	return &ProfileHandler{Store: store, Activity: logger}
}

type updateProfileReq struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Avatar          *string `json:"avatar"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     string  `json:"newPassword"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Update edits name/email/avatar.  A password pair in the same request rides
// along in the same store update, so a failure on either part changes
// nothing.
func (h *ProfileHandler) Update(c echo.Context) error {
	u, ok := middleware.UserFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name == nil && req.Email == nil && req.Avatar == nil && req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}
	ctx := c.Request().Context()

	upd := auth.ProfileUpdate{
		Name:   req.Name,
		Email:  req.Email,
		Avatar: req.Avatar,
	}
	if req.NewPassword != "" {
		upd.Password = &auth.PasswordChange{
			Current: req.CurrentPassword,
			New:     req.NewPassword,
		}
	}

	updated, err := h.Store.UpdateProfile(ctx, u.ID, upd)
	if err != nil {
		return respondError(c, "update-profile", err)
	}
	h.Activity.Log(ctx, model.ActivityEntry{
		ActorID: u.ID, Action: "update",
		EntityType: "user", EntityID: u.ID, EntityTitle: updated.Name,
		IP: c.RealIP(),
	})
	if req.Name == nil && req.Email == nil && req.Avatar == nil {
		return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "profile updated", "user": updated})
}

// ChangePassword is the dedicated password endpoint; it requires the current
// password and a matching confirmation.
func (h *ProfileHandler) ChangePassword(c echo.Context) error {
	u, ok := middleware.UserFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "current and new password are required"})
	}
	if req.NewPassword != req.ConfirmPassword {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password confirmation does not match"})
	}
	ctx := c.Request().Context()
	err := h.Store.ChangePassword(ctx, u.ID, auth.PasswordChange{
		Current: req.CurrentPassword,
		New:     req.NewPassword,
	})
	if err != nil {
		return respondError(c, "change-password", err)
	}
	h.Activity.Log(ctx, model.ActivityEntry{
		ActorID: u.ID, Action: "change_password", IP: c.RealIP(),
	})
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}
